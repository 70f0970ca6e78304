package layout

import "math"

// 该文件定义引擎对外暴露的几何与样式快照，供分解、绘制与调试 JSON 共用。

// Rect 是布局坐标（px，左上角为原点）中的盒子。
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right 返回右边界。
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom 返回下边界。
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Union 返回同时包含 r 与 o 的最小矩形。
func (r Rect) Union(o Rect) Rect {
	x0 := math.Min(r.X, o.X)
	y0 := math.Min(r.Y, o.Y)
	x1 := math.Max(r.Right(), o.Right())
	y1 := math.Max(r.Bottom(), o.Bottom())
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// ResolvedStyle 是节点的计算样式快照，取值均为 CSS 计算值字符串（如 "16px"、"700"、"150%"）。
type ResolvedStyle struct {
	FontFamily      string `json:"fontFamily"`
	FontSize        string `json:"fontSize"`
	FontWeight      string `json:"fontWeight"`
	FontStyle       string `json:"fontStyle"`
	FontVariant     string `json:"fontVariant"`
	FontStretch     string `json:"fontStretch"`
	LineHeight      string `json:"lineHeight"`
	Color           string `json:"color"`
	BackgroundColor string `json:"backgroundColor"`
	TextTransform   string `json:"textTransform"`
	// Font 是引擎预先组合好的 font 简写；部分引擎不提供，此时为空。
	Font string `json:"font,omitempty"`
}

// FontSpecifier 区分引擎直接给出的简写与需要手工拼装的分量。
type FontSpecifier interface {
	isFontSpecifier()
}

// DirectFont 是引擎给出的完整 font 简写。
type DirectFont string

// ComponentFont 表示只能从分量拼装。
type ComponentFont struct {
	Style ResolvedStyle
}

func (DirectFont) isFontSpecifier()    {}
func (ComponentFont) isFontSpecifier() {}

// Specifier 返回带标签的字体描述来源。
func (s ResolvedStyle) Specifier() FontSpecifier {
	if s.Font != "" {
		return DirectFont(s.Font)
	}
	return ComponentFont{Style: s}
}

// FontMetrics 是字体在给定字号下的纵向度量（px）。
type FontMetrics struct {
	Ascent  float64 `json:"ascent"`
	Descent float64 `json:"descent"`
	LineGap float64 `json:"lineGap"`
}

// ContentHeight 返回内容区高度（ascent + descent）。
func (m FontMetrics) ContentHeight() float64 { return m.Ascent + m.Descent }
