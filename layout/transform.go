package layout

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	upperCaser = cases.Upper(language.Und)
	lowerCaser = cases.Lower(language.Und)
	titleCaser = cases.Title(language.Und, cases.NoLower)
)

// TransformText 按 CSS text-transform 变换一段完整文本，capitalize 以文本开头为词首。
// 变换可能改变字符数量（例如 ß 大写为 SS）。
func TransformText(transform, s string) string {
	out, _ := transformText(transform, s, false)
	return out
}

// transformText 变换 s，inWord 表示 s 之前紧挨着词内字符；返回变换结果与末尾的词内状态。
func transformText(transform, s string, inWord bool) (string, bool) {
	switch transform {
	case "uppercase":
		return upperCaser.String(s), trailingInWord(s, inWord)
	case "lowercase":
		return lowerCaser.String(s), trailingInWord(s, inWord)
	case "capitalize":
		var b strings.Builder
		for _, r := range s {
			word := isWordRune(r)
			if word && !inWord {
				b.WriteString(titleCaser.String(string(r)))
			} else {
				b.WriteRune(r)
			}
			inWord = word
		}
		return b.String(), inWord
	default:
		return s, trailingInWord(s, inWord)
	}
}

func trailingInWord(s string, inWord bool) bool {
	for _, r := range s {
		inWord = isWordRune(r)
	}
	return inWord
}
