package renderer

import "image"

// TextBaseline 决定 FillText 的 y 坐标锚定在字形的哪个位置。
type TextBaseline int

const (
	BaselineAlphabetic TextBaseline = iota
	BaselineTop
	BaselineBottom
)

func (b TextBaseline) String() string {
	switch b {
	case BaselineTop:
		return "top"
	case BaselineBottom:
		return "bottom"
	default:
		return "alphabetic"
	}
}

// TextMetrics 是 MeasureText 的结果；纵向数值相对当前 TextBaseline 锚点，向上为正。
type TextMetrics struct {
	Width                  float64
	FontBoundingBoxAscent  float64
	FontBoundingBoxDescent float64
}

// Surface 是光栅绘制表面：矩形填充、按字体描述符绘制文字、度量文字。
// 坐标单位为像素，原点在左上角。
type Surface interface {
	Size() (width, height int)
	Resize(width, height int)
	ClearRect(x, y, w, h float64)
	FillRect(x, y, w, h float64)
	// SetFont 接受 CSS font 简写，无法解析时返回错误并保留原字体。
	SetFont(spec string) error
	Font() string
	// SetFillColor 接受 CSS 颜色字符串。
	SetFillColor(css string) error
	SetTextBaseline(b TextBaseline)
	MeasureText(s string) (TextMetrics, error)
	FillText(s string, x, y float64) error
	Image() image.Image
}

// Presenter 由可上屏的表面实现：展示尺寸与像素尺寸相互独立。
type Presenter interface {
	SetPresentationSize(width, height float64)
	PresentationSize() (width, height float64)
}

// Factory 创建新的绘制表面。
type Factory interface {
	// NewSurface 返回可上屏的表面，通常同时实现 Presenter。
	NewSurface(width, height int) (Surface, error)
	// NewOffscreenSurface 返回仅用于离屏绘制的表面。
	NewOffscreenSurface(width, height int) (Surface, error)
}
