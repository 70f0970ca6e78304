// Package rasterize 把带样式的 HTML 文本逐字符绘制到光栅表面上。
//
// 排版引擎只报告元素盒子的位置，因此渲染时先把每个文本节点拆成逐字符的 <span>，
// 让每个字符拥有可查询的盒子；再按字符组合成字体描述符，换算坐标并逐个绘制；
// 结束时（无论成功与否）恢复原来的树结构并移除临时宿主。
package rasterize

import (
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/net/html"

	"github.com/ByLCY/textcanvas/layout"
	"github.com/ByLCY/textcanvas/renderer"
)

// Renderer 协调排版引擎与绘制表面。调用方需要串行化共享同一节点的调用。
type Renderer struct {
	engine  layout.Engine
	factory renderer.Factory
	logger  *slog.Logger
}

// NewRenderer 创建渲染器；只使用调用方提供的表面时 factory 可以为 nil。
func NewRenderer(engine layout.Engine, factory renderer.Factory, opts ...Option) *Renderer {
	r := &Renderer{engine: engine, factory: factory, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderHTML 渲染一段 HTML 文本。
func (r *Renderer) RenderHTML(markup string, opts Options) (renderer.Surface, error) {
	return r.Render(markup, opts)
}

// RenderNode 渲染一个已有的元素节点，返回前恢复该节点的子树。
func (r *Renderer) RenderNode(n *html.Node, opts Options) (renderer.Surface, error) {
	return r.Render(n, opts)
}

// Render 接受 string、[]byte（HTML 文本）或 *html.Node（元素），返回绘制好的表面。
func (r *Renderer) Render(input any, opts Options) (renderer.Surface, error) {
	if r.engine == nil {
		return nil, fmt.Errorf("%w: 未配置排版引擎", ErrInvalidOptions)
	}
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	if opts.Mode != SurfaceSupplied && r.factory == nil {
		return nil, fmt.Errorf("%w: 未配置表面工厂", ErrInvalidOptions)
	}
	root, transient, err := resolveInput(input)
	if err != nil {
		return nil, err
	}

	if !r.engine.IsConnected(root) {
		kind := layout.HostDocument
		if opts.Mode == SurfaceOffscreen {
			kind = layout.HostScratch
		}
		host, err := r.engine.Attach(root, kind)
		if err != nil {
			return nil, fmt.Errorf("挂载节点失败: %w", err)
		}
		defer host.Detach()
	}

	groups, err := Decompose(root, opts.Segmentation)
	if !transient {
		defer Restore(groups)
	}
	if err != nil {
		return nil, fmt.Errorf("拆分字符失败: %w", err)
	}
	r.logger.Debug("开始渲染", "groups", len(groups), "scale", opts.Scale, "mode", opts.Mode.String())

	if err := r.engine.Layout(root); err != nil {
		return nil, fmt.Errorf("布局计算失败: %w", err)
	}
	box, err := r.engine.BoundingBox(root)
	if err != nil {
		return nil, fmt.Errorf("查询容器盒子失败: %w", err)
	}
	width, height := pixelSize(box.Width*opts.Scale), pixelSize(box.Height*opts.Scale)
	surface, err := r.acquire(opts, width, height, box)
	if err != nil {
		return nil, fmt.Errorf("创建绘制表面失败: %w", err)
	}
	if opts.Trace != nil {
		*opts.Trace = Trace{Width: width, Height: height, Scale: opts.Scale}
	}

	surface.ClearRect(0, 0, float64(width), float64(height))
	rootStyle, err := r.engine.ComputedStyle(root)
	if err != nil {
		return nil, fmt.Errorf("查询容器样式失败: %w", err)
	}
	if bg := rootStyle.BackgroundColor; bg != "" {
		if err := surface.SetFillColor(bg); err != nil {
			r.logger.Warn("背景色无法识别，跳过背景填充", "color", bg, "err", err)
		} else {
			surface.FillRect(0, 0, float64(width), float64(height))
			if opts.Trace != nil {
				opts.Trace.Background = bg
			}
		}
	}

	for _, g := range groups {
		if err := r.paintGroup(surface, g, box, opts); err != nil {
			return nil, err
		}
	}
	return surface, nil
}

func resolveInput(input any) (*html.Node, bool, error) {
	switch v := input.(type) {
	case string:
		return newContainer(v)
	case []byte:
		return newContainer(string(v))
	case *html.Node:
		if v == nil || v.Type != html.ElementNode {
			return nil, false, ErrInvalidInput
		}
		return v, false, nil
	default:
		return nil, false, fmt.Errorf("%w: %T", ErrInvalidInput, input)
	}
}

// newContainer 解析 HTML 文本。只有一个元素时直接以它为根，背景色等取自该元素；
// 否则放进一个新的 <span class="__canvas_text__">。
func newContainer(markup string) (*html.Node, bool, error) {
	nodes, err := layout.ParseFragment(markup)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(nodes) == 1 && nodes[0].Type == html.ElementNode {
		return nodes[0], true, nil
	}
	el := newSpan(containerClass)
	for _, n := range nodes {
		el.AppendChild(n)
	}
	return el, true, nil
}

func (r *Renderer) acquire(opts Options, width, height int, box layout.Rect) (renderer.Surface, error) {
	switch opts.Mode {
	case SurfaceSupplied:
		opts.Surface.Resize(width, height)
		return opts.Surface, nil
	case SurfaceOffscreen:
		return r.factory.NewOffscreenSurface(width, height)
	default:
		s, err := r.factory.NewSurface(width, height)
		if err != nil {
			return nil, err
		}
		if p, ok := s.(renderer.Presenter); ok {
			p.SetPresentationSize(box.Width, box.Height)
		}
		return s, nil
	}
}

// paintGroup 为一个字符组设置字体与颜色，然后按字符单元的位置逐个绘制。
func (r *Renderer) paintGroup(surface renderer.Surface, g *CharacterGroup, container layout.Rect, opts Options) error {
	style, err := r.engine.ComputedStyle(g.Wrapper)
	if err != nil {
		return fmt.Errorf("查询字符组样式失败: %w", err)
	}
	override := ""
	if opts.Scale != 1 {
		if override = ScaleFontSize(style.FontSize, opts.Scale); override == "" {
			r.logger.Warn("字号无法缩放，按原字号绘制", "size", style.FontSize)
		}
	}
	font := SynthesizeFont(style, override)
	if err := surface.SetFont(font); err != nil {
		assembled := assembleFont(style, override)
		if assembled == font {
			return fmt.Errorf("设置字体 %q 失败: %w", font, err)
		}
		r.logger.Warn("引擎给出的字体简写不可用，改用分量拼装", "font", font, "err", err)
		if err := surface.SetFont(assembled); err != nil {
			return fmt.Errorf("设置字体 %q 失败: %w", assembled, err)
		}
		font = assembled
	}
	if err := surface.SetFillColor(style.Color); err != nil {
		r.logger.Warn("文字颜色无法识别，沿用当前填充色", "color", style.Color, "err", err)
	}
	surface.SetTextBaseline(renderer.BaselineTop)

	text := layout.TransformText(style.TextTransform, g.Text())
	chars := Split(text, opts.Segmentation)

	offset := 0.0
	if m, err := surface.MeasureText(text); err != nil {
		r.logger.Warn("无法测量字体 ascent，基线偏移按 0 处理", "font", font, "err", err)
	} else if !math.IsNaN(m.FontBoundingBoxAscent) && !math.IsInf(m.FontBoundingBoxAscent, 0) {
		offset = m.FontBoundingBoxAscent
	}

	var prev Point
	for i, ch := range chars {
		var p Point
		if i < len(g.Units) {
			ubox, err := r.engine.BoundingBox(g.Units[i].Node)
			if err != nil {
				return fmt.Errorf("查询字符 %q 的盒子失败: %w", g.Chars[i], err)
			}
			p = MapPosition(ubox, container, opts.Scale, offset)
		} else if i > 0 {
			// 变换后多出的字符接在前一个字符之后
			p = prev
			if m, err := surface.MeasureText(chars[i-1]); err == nil {
				p.X += m.Width
			}
		}
		if err := surface.FillText(ch, p.X, p.Y); err != nil {
			return fmt.Errorf("绘制字符 %q 失败: %w", ch, err)
		}
		if opts.Trace != nil {
			opts.Trace.Calls = append(opts.Trace.Calls, PaintCall{Text: ch, X: p.X, Y: p.Y, Font: font, Color: style.Color})
		}
		prev = p
	}
	return nil
}

// pixelSize 向上取整，避免裁掉最后一列像素。
func pixelSize(v float64) int {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return int(math.Ceil(v - 1e-9))
}
