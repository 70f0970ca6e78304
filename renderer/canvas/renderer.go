package canvasrenderer

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/textcanvas/fonts"
	"github.com/ByLCY/textcanvas/fontspec"
	"github.com/ByLCY/textcanvas/layout"
	"github.com/ByLCY/textcanvas/renderer"
)

// Renderer creates canvas-backed surfaces and measures text for the layout engine.
// One canvas millimeter is one pixel, so face sizes are given as px * MmToPt.
type Renderer struct {
	baseDir string

	// injected resources
	fontBlobs map[string][]byte // by lower-cased family name, optionally suffixed with :bold/:italic/:bold-italic

	fontMu         sync.Mutex
	fontFamilies   map[string]*canvas.FontFamily
	fallbackFamily *canvas.FontFamily
}

var (
	_ renderer.Factory = (*Renderer)(nil)
	_ layout.Measurer  = (*Renderer)(nil)
)

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	// Fonts 按 CSS 家族名注入字体文件；"Name:bold"、"Name:italic"、"Name:bold-italic" 为对应变体。
	Fonts map[string]Resource
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a renderer that only uses the built-in fonts.
func NewRenderer() *Renderer { return NewRendererWithOptions(Options{}) }

// NewRendererWithOptions creates a renderer with injected fonts and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:      opts.BaseDir,
		fontBlobs:    map[string][]byte{},
		fontFamilies: map[string]*canvas.FontFamily{},
	}
	for name, res := range opts.Fonts {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			r.fontBlobs[key] = res.Bytes
			continue
		}
		if res.Path != "" {
			data, _ := r.readFile(res.Path) // 读取失败时该家族不可用，解析时会落到下一个候选
			if len(data) > 0 {
				r.fontBlobs[key] = data
			}
		}
	}
	return r
}

func (r *Renderer) readFile(path string) ([]byte, error) {
	if !filepath.IsAbs(path) {
		if r.baseDir == "" {
			return nil, fmt.Errorf("未指定资源目录时不允许使用相对字体路径：%s", path)
		}
		path = filepath.Join(r.baseDir, path)
	}
	return os.ReadFile(path)
}

// NewSurface 返回可上屏的表面，展示尺寸初始等于像素尺寸。
func (r *Renderer) NewSurface(width, height int) (renderer.Surface, error) {
	s, err := r.newSurface(width, height)
	if err != nil {
		return nil, err
	}
	return &Surface{surface: s, presentW: float64(s.width), presentH: float64(s.height)}, nil
}

// NewOffscreenSurface 返回离屏表面，它不实现展示尺寸。
func (r *Renderer) NewOffscreenSurface(width, height int) (renderer.Surface, error) {
	s, err := r.newSurface(width, height)
	if err != nil {
		return nil, err
	}
	return &OffscreenSurface{s}, nil
}

// Metrics 实现 layout.Measurer，返回 px 单位的纵向度量。
func (r *Renderer) Metrics(font fontspec.Font) (layout.FontMetrics, error) {
	face, err := r.fontFace(font, color.Black)
	if err != nil {
		return layout.FontMetrics{}, err
	}
	m := face.Metrics()
	ascent, descent := m.Ascent, math.Abs(m.Descent)
	return layout.FontMetrics{
		Ascent:  ascent,
		Descent: descent,
		LineGap: math.Max(m.LineHeight-ascent-descent, 0),
	}, nil
}

// TextWidth 实现 layout.Measurer。
func (r *Renderer) TextWidth(font fontspec.Font, s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	face, err := r.fontFace(font, color.Black)
	if err != nil {
		return 0, err
	}
	return face.TextWidth(s), nil
}

// fontFace 创建指定颜色的字体面；px 字号按 1mm=1px 换算为 pt。
func (r *Renderer) fontFace(font fontspec.Font, col color.Color) (*canvas.FontFace, error) {
	family, err := r.ensureFontFamily(font)
	if err != nil {
		return nil, err
	}
	return family.Face(toPt(font.Pixels()), col, canvas.FontRegular, canvas.FontNormal), nil
}

// ensureFontFamily 依次尝试 font.Families，每个字形文件各自一个 FontFamily 并缓存。
func (r *Renderer) ensureFontFamily(font fontspec.Font) (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	families := font.Families
	if len(families) == 0 {
		families = []string{"sans-serif"}
	}
	for _, name := range families {
		key, data, ok := r.resolveFace(name, font)
		if !ok {
			continue
		}
		if family, ok := r.fontFamilies[key]; ok {
			return family, nil
		}
		family := canvas.NewFontFamily(key)
		if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
			continue
		}
		r.fontFamilies[key] = family
		return family, nil
	}
	return r.fallback()
}

// resolveFace 先查注入的字体，再查内置字体；返回缓存键与字形数据。
func (r *Renderer) resolveFace(name string, font fontspec.Font) (string, []byte, bool) {
	base := strings.ToLower(strings.TrimSpace(name))
	for _, key := range injectedKeys(base, font.Bold(), font.Italic()) {
		if blob, ok := r.fontBlobs[key]; ok {
			return "built-in:" + key, blob, true
		}
	}
	generic, ok := fonts.Lookup(base)
	if !ok {
		return "", nil, false
	}
	face := fonts.Face{Family: generic, Bold: font.Bold(), Italic: font.Italic(), Condensed: font.Condensed()}
	data, err := fonts.Load(face)
	if err != nil {
		return "", nil, false
	}
	return "embed:" + face.Key(), data, true
}

func injectedKeys(base string, bold, italic bool) []string {
	switch {
	case bold && italic:
		return []string{base + ":bold-italic", base + ":bold", base + ":italic", base}
	case bold:
		return []string{base + ":bold", base}
	case italic:
		return []string{base + ":italic", base}
	default:
		return []string{base}
	}
}

// fallback 在所有家族都不可用时使用内置 sans-serif 常规体。调用方持有 fontMu。
func (r *Renderer) fallback() (*canvas.FontFamily, error) {
	if r.fallbackFamily != nil {
		return r.fallbackFamily, nil
	}
	data, err := fonts.Load(fonts.Face{Family: "sans-serif"})
	if err != nil {
		return nil, fmt.Errorf("加载后备字体失败: %w", err)
	}
	family := canvas.NewFontFamily("textcanvas-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("加载后备字体失败: %w", err)
	}
	r.fallbackFamily = family
	return family, nil
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }
