// Package fontspec 解析与生成 CSS font 简写字符串（画布 API 的字体描述符）。
package fontspec

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidFont 表示字体描述符无法解析。
var ErrInvalidFont = errors.New("非法的字体描述符")

// DefaultSize 是相对字号关键字与 em/% 的基准（px）。
const DefaultSize = 16.0

// Font 是解析后的字体描述符。
type Font struct {
	Style      string   // normal | italic | oblique
	Variant    string   // normal | small-caps
	Weight     int      // 1-1000
	Stretch    string   // 关键字；表中没有的百分比原样保留
	Size       string   // 原始字号，如 "16px"、"12pt"、"medium"
	LineHeight string   // normal 或原始行高
	Families   []string // 按优先级排列，已去引号
}

// String 按固定顺序输出：style variant weight stretch size[/line-height] family。
func (f Font) String() string {
	parts := []string{
		orDefault(f.Style, "normal"),
		orDefault(f.Variant, "normal"),
		strconv.Itoa(f.weightOrDefault()),
		orDefault(f.Stretch, "normal"),
	}
	size := orDefault(f.Size, "10px")
	if f.LineHeight != "" && f.LineHeight != "normal" {
		size += "/" + f.LineHeight
	}
	parts = append(parts, size, FormatFamilies(f.Families))
	return strings.Join(parts, " ")
}

func (f Font) weightOrDefault() int {
	if f.Weight <= 0 {
		return 400
	}
	return f.Weight
}

// Pixels 将字号换算为 px；em/% 以 DefaultSize 为基准。
func (f Font) Pixels() float64 {
	px, ok := LengthToPixels(f.Size, DefaultSize)
	if !ok {
		return 10
	}
	return px
}

// Bold 表示字重达到粗体文件的阈值。
func (f Font) Bold() bool { return f.weightOrDefault() >= 600 }

// Italic 表示 italic 或 oblique。
func (f Font) Italic() bool { return f.Style == "italic" || f.Style == "oblique" }

// Condensed 表示 stretch 窄于 normal。
func (f Font) Condensed() bool {
	pct, ok := StretchPercent(f.Stretch)
	return ok && pct < 100
}

// FormatFamilies 输出逗号分隔的家族列表，含空白或非标识符字符的名字加双引号。
func FormatFamilies(families []string) string {
	if len(families) == 0 {
		return "sans-serif"
	}
	out := make([]string, 0, len(families))
	for _, fam := range families {
		if needsQuote(fam) {
			out = append(out, strconv.Quote(fam))
			continue
		}
		out = append(out, fam)
	}
	return strings.Join(out, ", ")
}

func needsQuote(name string) bool {
	if name == "" {
		return true
	}
	if _, ok := genericFamilies[strings.ToLower(name)]; ok {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '-', r >= 0x80:
		case r >= '0' && r <= '9':
			if i == 0 {
				return true
			}
		default:
			return true
		}
	}
	return false
}

var genericFamilies = map[string]struct{}{
	"serif": {}, "sans-serif": {}, "monospace": {}, "cursive": {}, "fantasy": {},
	"system-ui": {}, "ui-serif": {}, "ui-sans-serif": {}, "ui-monospace": {},
}

// IsGenericFamily 判断是否为 CSS 通用家族名。
func IsGenericFamily(name string) bool {
	_, ok := genericFamilies[strings.ToLower(name)]
	return ok
}

var stretchKeywords = map[float64]string{
	50:    "ultra-condensed",
	62.5:  "extra-condensed",
	75:    "condensed",
	87.5:  "semi-condensed",
	100:   "normal",
	112.5: "semi-expanded",
	125:   "expanded",
	150:   "extra-expanded",
	200:   "ultra-expanded",
}

var stretchPercents = map[string]float64{
	"ultra-condensed": 50,
	"extra-condensed": 62.5,
	"condensed":       75,
	"semi-condensed":  87.5,
	"normal":          100,
	"semi-expanded":   112.5,
	"expanded":        125,
	"extra-expanded":  150,
	"ultra-expanded":  200,
}

// NormalizeStretch 将已知百分比映射为关键字；未收录的百分比与其他取值原样返回。
func NormalizeStretch(v string) string {
	s := strings.TrimSpace(v)
	if !strings.HasSuffix(s, "%") {
		return s
	}
	pct, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return s
	}
	if kw, ok := stretchKeywords[pct]; ok {
		return kw
	}
	return s
}

// StretchPercent 返回关键字或百分比对应的数值。
func StretchPercent(v string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(v))
	if pct, ok := stretchPercents[s]; ok {
		return pct, true
	}
	if strings.HasSuffix(s, "%") {
		pct, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err == nil && pct > 0 {
			return pct, true
		}
	}
	return 0, false
}

// ResolveWeight 解析 font-weight，bolder/lighter 相对 parent 计算。
func ResolveWeight(v string, parent int) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "normal":
		return 400, true
	case "bold":
		return 700, true
	case "bolder":
		switch {
		case parent < 350:
			return 400, true
		case parent < 550:
			return 700, true
		default:
			return 900, true
		}
	case "lighter":
		switch {
		case parent < 550:
			return 100, true
		case parent < 750:
			return 400, true
		default:
			return 700, true
		}
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || n < 1 || n > 1000 {
		return 0, false
	}
	return int(n), true
}

var sizeKeywords = map[string]float64{
	"xx-small":  9,
	"x-small":   10,
	"small":     13,
	"medium":    16,
	"large":     18,
	"x-large":   24,
	"xx-large":  32,
	"xxx-large": 48,
	"smaller":   DefaultSize / 1.2,
	"larger":    DefaultSize * 1.2,
}

var lengthUnits = map[string]bool{
	"px": true, "pt": true, "pc": true, "in": true, "cm": true, "mm": true, "q": true,
	"em": true, "rem": true, "ex": true, "ch": true,
}

// LengthToPixels 将 CSS 长度换算为 px，base 用于 em/%/ex/ch 与相对关键字。
func LengthToPixels(v string, base float64) (float64, bool) {
	lower := strings.ToLower(strings.TrimSpace(v))
	switch lower {
	case "smaller":
		return base / 1.2, true
	case "larger":
		return base * 1.2, true
	}
	if px, ok := sizeKeywords[lower]; ok {
		return px, true
	}
	n, unit, ok := SplitNumber(lower)
	if !ok {
		return 0, false
	}
	switch unit {
	case "px":
		return n, true
	case "pt":
		return n * 96 / 72, true
	case "pc":
		return n * 16, true
	case "in":
		return n * 96, true
	case "cm":
		return n * 96 / 2.54, true
	case "mm":
		return n * 96 / 25.4, true
	case "q":
		return n * 96 / 101.6, true
	case "em", "rem":
		return n * base, true
	case "ex", "ch":
		return n * base / 2, true
	case "%":
		return n * base / 100, true
	case "":
		return n, n == 0
	}
	return 0, false
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
