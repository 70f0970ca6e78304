package canvasrenderer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/textcanvas/fontspec"
	"github.com/ByLCY/textcanvas/layout"
	"github.com/ByLCY/textcanvas/renderer"
)

const defaultFont = "10px sans-serif"

var (
	_ renderer.Surface   = (*Surface)(nil)
	_ renderer.Presenter = (*Surface)(nil)
	_ renderer.Surface   = (*OffscreenSurface)(nil)
)

// Surface 是可上屏的画布表面，带独立的展示尺寸。
type Surface struct {
	*surface
	presentW, presentH float64
}

// SetPresentationSize 设置展示尺寸（CSS px），与像素尺寸无关。
func (s *Surface) SetPresentationSize(width, height float64) {
	s.presentW, s.presentH = width, height
}

// PresentationSize 返回展示尺寸。
func (s *Surface) PresentationSize() (float64, float64) { return s.presentW, s.presentH }

// OffscreenSurface 是只用于离屏绘制的表面。
type OffscreenSurface struct {
	*surface
}

type opKind int

const (
	opFillRect opKind = iota
	opFillText
)

// op 是记录下来的一次绘制，供导出 PDF 时重放。
type op struct {
	kind       opKind
	x, y, w, h float64
	text       string
	font       fontspec.Font
	color      layout.Color
}

// surface 立即把绘制光栅化到 img，同时保留显示列表。
type surface struct {
	r             *Renderer
	width, height int
	img           *image.RGBA
	ctx           *canvas.Context
	ops           []op

	font     fontspec.Font
	fill     layout.Color
	baseline renderer.TextBaseline
}

func (r *Renderer) newSurface(width, height int) (*surface, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("画布尺寸非法: %dx%d", width, height)
	}
	s := &surface{r: r}
	s.Resize(width, height)
	return s, nil
}

func (s *surface) Size() (int, int) { return s.width, s.height }

// Resize 重新分配像素缓冲并重置绘制状态与显示列表。
func (s *surface) Resize(width, height int) {
	s.width, s.height = max(width, 0), max(height, 0)
	s.img = image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	s.ctx = nil
	if s.width > 0 && s.height > 0 {
		ras := rasterizer.FromImage(s.img, canvas.DPMM(1), canvas.DefaultColorSpace)
		s.ctx = canvas.NewContext(ras)
		s.ctx.SetCoordSystem(canvas.CartesianIV) // 左上角为原点
	}
	s.ops = nil
	s.font, _ = fontspec.Parse(defaultFont)
	s.fill = layout.Black
	s.baseline = renderer.BaselineAlphabetic
}

// ClearRect 把矩形区域置为全透明。覆盖整个表面时显示列表一并清空。
func (s *surface) ClearRect(x, y, w, h float64) {
	rect := image.Rect(int(x), int(y), int(x+w+0.5), int(y+h+0.5)).Intersect(s.img.Bounds())
	draw.Draw(s.img, rect, image.Transparent, image.Point{}, draw.Src)
	if rect == s.img.Bounds() {
		s.ops = nil
	}
}

func (s *surface) FillRect(x, y, w, h float64) {
	o := op{kind: opFillRect, x: x, y: y, w: w, h: h, color: s.fill}
	s.ops = append(s.ops, o)
	if s.ctx != nil {
		_ = s.draw(s.ctx, o)
	}
}

func (s *surface) SetFont(spec string) error {
	f, err := fontspec.Parse(spec)
	if err != nil {
		return err
	}
	s.font = f
	return nil
}

// Font 返回当前字体的规范化简写。
func (s *surface) Font() string { return s.font.String() }

func (s *surface) SetFillColor(css string) error {
	c, err := layout.ParseColor(css)
	if err != nil {
		return fmt.Errorf("设置填充色失败: %w", err)
	}
	s.fill = c
	return nil
}

func (s *surface) SetTextBaseline(b renderer.TextBaseline) { s.baseline = b }

// MeasureText 返回宽度与相对当前锚点的字体包围盒。
func (s *surface) MeasureText(text string) (renderer.TextMetrics, error) {
	m, err := s.r.Metrics(s.font)
	if err != nil {
		return renderer.TextMetrics{}, err
	}
	width, err := s.r.TextWidth(s.font, text)
	if err != nil {
		return renderer.TextMetrics{}, err
	}
	shift := anchorShift(s.baseline, s.font.Pixels(), m)
	return renderer.TextMetrics{
		Width:                  width,
		FontBoundingBoxAscent:  m.Ascent - shift,
		FontBoundingBoxDescent: m.Descent + shift,
	}, nil
}

func (s *surface) FillText(text string, x, y float64) error {
	if text == "" {
		return nil
	}
	m, err := s.r.Metrics(s.font)
	if err != nil {
		return err
	}
	o := op{
		kind:  opFillText,
		x:     x,
		y:     y + anchorShift(s.baseline, s.font.Pixels(), m),
		text:  text,
		font:  s.font,
		color: s.fill,
	}
	s.ops = append(s.ops, o)
	if s.ctx == nil {
		return nil
	}
	return s.draw(s.ctx, o)
}

func (s *surface) Image() image.Image { return s.img }

// anchorShift 返回从锚点到字母基线的向下距离。top/bottom 取字号 em 框按 ascent:descent 分配后的边。
func anchorShift(b renderer.TextBaseline, size float64, m layout.FontMetrics) float64 {
	emAscent := size * 0.8
	if h := m.ContentHeight(); h > 0 {
		emAscent = size * m.Ascent / h
	}
	switch b {
	case renderer.BaselineTop:
		return emAscent
	case renderer.BaselineBottom:
		return -(size - emAscent)
	default:
		return 0
	}
}

// draw 在 ctx 上执行一次绘制；ctx 使用左上角原点、1 单位 = 1px。
func (s *surface) draw(ctx *canvas.Context, o op) error {
	switch o.kind {
	case opFillRect:
		ctx.SetFillColor(o.color.NRGBA())
		ctx.SetStrokeColor(color.RGBA{})
		ctx.DrawPath(o.x, o.y, canvas.Rectangle(o.w, o.h))
	case opFillText:
		face, err := s.r.fontFace(o.font, o.color.NRGBA())
		if err != nil {
			return err
		}
		ctx.DrawText(o.x, o.y, canvas.NewTextLine(face, o.text, canvas.Left))
	}
	return nil
}

// WritePNG 输出当前像素缓冲。
func (s *surface) WritePNG(w io.Writer) error {
	if err := png.Encode(w, s.img); err != nil {
		return fmt.Errorf("写入 PNG 失败: %w", err)
	}
	return nil
}

// WritePDF 重放显示列表，输出与像素尺寸等大（1px = 1mm）的单页 PDF。
func (s *surface) WritePDF(w io.Writer) error {
	width, height := float64(s.width), float64(s.height)
	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV)
	for _, o := range s.ops {
		if err := s.draw(ctx, o); err != nil {
			return err
		}
	}
	writer := pdf.New(w, width, height, nil)
	c.RenderTo(writer)
	if err := writer.Close(); err != nil {
		return fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return nil
}
