package rasterize

import (
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// Split 把 s 拆成字符串序列，拼接后与 s 逐字节相同（非法 UTF-8 字节各自成为一个单元）。
func Split(s string, seg Segmentation) []string {
	if s == "" {
		return nil
	}
	if seg == SegmentGraphemes {
		var out []string
		g := uniseg.NewGraphemes(s)
		for g.Next() {
			out = append(out, g.Str())
		}
		return out
	}
	out := make([]string, 0, utf8.RuneCountInString(s))
	for len(s) > 0 {
		_, size := utf8.DecodeRuneInString(s)
		out = append(out, s[:size])
		s = s[size:]
	}
	return out
}
