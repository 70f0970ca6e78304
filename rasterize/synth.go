package rasterize

import (
	"strconv"
	"strings"

	"github.com/ByLCY/textcanvas/fontspec"
	"github.com/ByLCY/textcanvas/layout"
)

// SynthesizeFont 返回画布可接受的字体描述符。
// 引擎给出了简写且不需要改字号时原样返回；否则按固定顺序拼装：
// style variant weight stretch size[/line-height] family，stretch 百分比换成关键字。
func SynthesizeFont(style layout.ResolvedStyle, sizeOverride string) string {
	switch spec := style.Specifier().(type) {
	case layout.DirectFont:
		if sizeOverride == "" {
			return string(spec)
		}
	}
	return assembleFont(style, sizeOverride)
}

func assembleFont(style layout.ResolvedStyle, sizeOverride string) string {
	size := sizeOverride
	if size == "" {
		size = orDefault(style.FontSize, "10px")
	}
	if lh := strings.TrimSpace(style.LineHeight); lh != "" && lh != "normal" {
		size += "/" + lh
	}
	return strings.Join([]string{
		orDefault(style.FontStyle, "normal"),
		orDefault(style.FontVariant, "normal"),
		orDefault(style.FontWeight, "normal"),
		fontspec.NormalizeStretch(orDefault(style.FontStretch, "normal")),
		size,
		orDefault(style.FontFamily, "sans-serif"),
	}, " ")
}

// ScaleFontSize 按比例缩放带单位的字号（"16px" x2 -> "32px"）；无法解析时返回空串。
func ScaleFontSize(size string, scale float64) string {
	n, unit, ok := fontspec.SplitNumber(strings.TrimSpace(size))
	if !ok {
		return ""
	}
	return strconv.FormatFloat(n*scale, 'f', -1, 64) + unit
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
