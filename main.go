package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ByLCY/textcanvas/binding"
	"github.com/ByLCY/textcanvas/layout"
	"github.com/ByLCY/textcanvas/rasterize"
	"github.com/ByLCY/textcanvas/renderer"
	canvasrenderer "github.com/ByLCY/textcanvas/renderer/canvas"
)

// config 是一次命令行调用的参数。
type config struct {
	input, output string
	cssPath       string
	debugPath     string
	scale         float64
	offscreen     bool
	graphemes     bool
	data          any
}

func main() {
	input := flag.String("in", "examples/demo.html", "HTML 文件路径")
	output := flag.String("out", "output/demo.png", "输出路径，扩展名为 .png 或 .pdf")
	cssPath := flag.String("css", "", "附加样式表路径")
	scale := flag.Float64("scale", 1, "缩放系数（像素尺寸与字号同时放大）")
	offscreen := flag.Bool("offscreen", false, "使用离屏表面")
	graphemes := flag.Bool("graphemes", false, "按字素簇而不是码点拆分字符")
	debug := flag.String("debug", "", "绘制轨迹 JSON 输出路径")
	dataJSON := flag.String("data", "", "绑定到 HTML 模板的 JSON 数据")
	verbose := flag.Bool("v", false, "输出调试日志")
	flag.Parse()

	cfg := config{
		input:     *input,
		output:    *output,
		cssPath:   *cssPath,
		debugPath: *debug,
		scale:     *scale,
		offscreen: *offscreen,
		graphemes: *graphemes,
	}
	if *dataJSON != "" {
		if err := json.Unmarshal([]byte(*dataJSON), &cfg.data); err != nil {
			log.Fatalf("解析 data JSON 失败: %v", err)
		}
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(cfg, logger); err != nil {
		log.Fatalf("渲染失败: %v", err)
	}
	fmt.Printf("已生成：%s\n", cfg.output)
}

// exporter 由 canvas 表面实现。
type exporter interface {
	WritePNG(w io.Writer) error
	WritePDF(w io.Writer) error
}

// run 串联模板绑定、排版与绘制。
func run(cfg config, logger *slog.Logger) error {
	raw, err := os.ReadFile(cfg.input)
	if err != nil {
		return fmt.Errorf("无法读取 HTML 文件 %s: %w", cfg.input, err)
	}
	markup := binding.InterpolateHTML(string(raw), cfg.data)

	cr := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{BaseDir: filepath.Dir(cfg.input)})
	doc := layout.NewDocument(cr, layout.DocumentOptions{})
	if cfg.cssPath != "" {
		css, err := os.ReadFile(cfg.cssPath)
		if err != nil {
			return fmt.Errorf("无法读取样式表 %s: %w", cfg.cssPath, err)
		}
		if err := doc.AddStyleSheet(string(css)); err != nil {
			return err
		}
	}

	opts := rasterize.Options{Scale: cfg.scale}
	if cfg.offscreen {
		opts.Mode = rasterize.SurfaceOffscreen
	}
	if cfg.graphemes {
		opts.Segmentation = rasterize.SegmentGraphemes
	}
	var trace rasterize.Trace
	if cfg.debugPath != "" {
		opts.Trace = &trace
	}

	r := rasterize.NewRenderer(doc, cr, rasterize.WithLogger(logger))
	surface, err := r.RenderHTML(markup, opts)
	if err != nil {
		return err
	}

	if cfg.debugPath != "" {
		if err := writeDebug(&trace, cfg.debugPath); err != nil {
			return err
		}
	}
	return writeOutput(surface, cfg.output)
}

func writeOutput(surface renderer.Surface, outputPath string) error {
	exp, ok := surface.(exporter)
	if !ok {
		return fmt.Errorf("绘制表面不支持导出")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("创建输出文件失败: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".pdf":
		err = exp.WritePDF(f)
	case ".png", "":
		err = exp.WritePNG(f)
	default:
		return fmt.Errorf("不支持的输出格式 %s", filepath.Ext(outputPath))
	}
	if err != nil {
		return err
	}
	return f.Close()
}

func writeDebug(trace *rasterize.Trace, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(trace, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
