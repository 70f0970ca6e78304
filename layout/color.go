package layout

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Color 采用 0-255 的 RGB 数值与 0-1 的不透明度。
type Color struct {
	R uint8   `json:"r"`
	G uint8   `json:"g"`
	B uint8   `json:"b"`
	A float64 `json:"a"`
}

var (
	Transparent = Color{}
	Black       = Color{A: 1}
)

// String 输出计算值格式：不透明时为 rgb()，否则为 rgba()。
func (c Color) String() string {
	if c.A >= 1 {
		return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, formatNumber(c.A))
}

// NRGBA 转为非预乘的标准库颜色。
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(clamp01(c.A) * 255))}
}

// ParseColor 解析 CSS 颜色：#rgb/#rgba/#rrggbb/#rrggbbaa、rgb()/rgba()、颜色名与 transparent。
// currentcolor 由调用方处理。
func ParseColor(s string) (Color, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "":
		return Color{}, fmt.Errorf("颜色为空")
	case v == "transparent":
		return Transparent, nil
	case strings.HasPrefix(v, "#"):
		return parseHex(v[1:])
	case strings.HasPrefix(v, "rgb(") || strings.HasPrefix(v, "rgba("):
		return parseRGBFunc(v)
	}
	if named, ok := colornames.Map[v]; ok {
		return Color{R: named.R, G: named.G, B: named.B, A: 1}, nil
	}
	return Color{}, fmt.Errorf("无法识别的颜色 %q", s)
}

func parseHex(h string) (Color, error) {
	expand := func(s string) string {
		var b strings.Builder
		for _, r := range s {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		return b.String()
	}
	switch len(h) {
	case 3, 4:
		h = expand(h)
	case 6, 8:
	default:
		return Color{}, fmt.Errorf("非法的十六进制颜色 #%s", h)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("非法的十六进制颜色 #%s: %w", h, err)
	}
	if len(h) == 6 {
		return Color{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 1}, nil
	}
	return Color{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: float64(uint8(n)) / 255}, nil
}

func parseRGBFunc(v string) (Color, error) {
	open := strings.IndexByte(v, '(')
	if !strings.HasSuffix(v, ")") {
		return Color{}, fmt.Errorf("非法的颜色函数 %q", v)
	}
	body := v[open+1 : len(v)-1]
	body = strings.ReplaceAll(body, "/", " ")
	body = strings.ReplaceAll(body, ",", " ")
	args := strings.Fields(body)
	if len(args) != 3 && len(args) != 4 {
		return Color{}, fmt.Errorf("颜色函数参数数量错误 %q", v)
	}
	var ch [3]uint8
	for i := 0; i < 3; i++ {
		f, err := parseChannel(args[i])
		if err != nil {
			return Color{}, fmt.Errorf("颜色通道 %q: %w", args[i], err)
		}
		ch[i] = uint8(math.Round(f))
	}
	alpha := 1.0
	if len(args) == 4 {
		a, err := parseAlpha(args[3])
		if err != nil {
			return Color{}, fmt.Errorf("不透明度 %q: %w", args[3], err)
		}
		alpha = a
	}
	return Color{R: ch[0], G: ch[1], B: ch[2], A: alpha}, nil
}

func parseChannel(s string) (float64, error) {
	if strings.HasSuffix(s, "%") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, err
		}
		return math.Max(0, math.Min(255, f*255/100)), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return math.Max(0, math.Min(255, f)), nil
}

func parseAlpha(s string) (float64, error) {
	if strings.HasSuffix(s, "%") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, err
		}
		return clamp01(f / 100), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return clamp01(f), nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
