// Package fonts 提供内置字体（Latin Modern），按 CSS 通用家族与粗/斜体选择字形文件。
package fonts

import (
	"fmt"
	"strings"

	"github.com/go-fonts/latin-modern/lmmono10italic"
	"github.com/go-fonts/latin-modern/lmmono10regular"
	"github.com/go-fonts/latin-modern/lmmonolt10bold"
	"github.com/go-fonts/latin-modern/lmmonolt10boldoblique"
	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10bolditalic"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/go-fonts/latin-modern/lmsans10bold"
	"github.com/go-fonts/latin-modern/lmsans10boldoblique"
	"github.com/go-fonts/latin-modern/lmsans10oblique"
	"github.com/go-fonts/latin-modern/lmsans10regular"
	"github.com/go-fonts/latin-modern/lmsansdemicond10oblique"
	"github.com/go-fonts/latin-modern/lmsansdemicond10regular"
)

// Face 描述一个字形文件的选择条件。
type Face struct {
	Family    string // serif | sans-serif | monospace
	Bold      bool
	Italic    bool
	Condensed bool
}

// Key 返回缓存用的唯一键。
func (f Face) Key() string {
	return fmt.Sprintf("%s|%t|%t|%t", f.Family, f.Bold, f.Italic, f.Condensed)
}

type faceData struct {
	regular, bold, italic, boldItalic []byte
	condensed, condensedItalic        []byte
}

var builtin = map[string]faceData{
	"serif": {
		regular:    lmroman10regular.TTF,
		bold:       lmroman10bold.TTF,
		italic:     lmroman10italic.TTF,
		boldItalic: lmroman10bolditalic.TTF,
	},
	"sans-serif": {
		regular:         lmsans10regular.TTF,
		bold:            lmsans10bold.TTF,
		italic:          lmsans10oblique.TTF,
		boldItalic:      lmsans10boldoblique.TTF,
		condensed:       lmsansdemicond10regular.TTF,
		condensedItalic: lmsansdemicond10oblique.TTF,
	},
	"monospace": {
		regular:    lmmono10regular.TTF,
		bold:       lmmonolt10bold.TTF,
		italic:     lmmono10italic.TTF,
		boldItalic: lmmonolt10boldoblique.TTF,
	},
}

// 具名家族到通用家族的别名，便于 "Latin Modern Roman" 之类的写法直接命中内置字体。
var aliases = map[string]string{
	"latin modern roman": "serif",
	"lmroman":            "serif",
	"latin modern sans":  "sans-serif",
	"lmsans":             "sans-serif",
	"latin modern mono":  "monospace",
	"lmmono":             "monospace",
	"system-ui":          "sans-serif",
	"ui-sans-serif":      "sans-serif",
	"ui-serif":           "serif",
	"ui-monospace":       "monospace",
	"cursive":            "serif",
	"fantasy":            "serif",
}

// Lookup 把 CSS 家族名规范化为内置家族，找不到时返回 false。
func Lookup(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if _, ok := builtin[key]; ok {
		return key, true
	}
	if target, ok := aliases[key]; ok {
		return target, true
	}
	return "", false
}

// Load 返回内置字体的字节数据，face.Family 可写为 "embed:serif" 或直接 "serif"。
// 没有对应粗/斜/窄变体时退回到最接近的文件。
func Load(face Face) ([]byte, error) {
	name, ok := Lookup(strings.TrimPrefix(face.Family, "embed:"))
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 未知家族", face.Family)
	}
	data := builtin[name]
	switch {
	case face.Condensed && face.Italic && data.condensedItalic != nil:
		return data.condensedItalic, nil
	case face.Condensed && !face.Bold && data.condensed != nil:
		return data.condensed, nil
	case face.Bold && face.Italic:
		return data.boldItalic, nil
	case face.Bold:
		return data.bold, nil
	case face.Italic:
		return data.italic, nil
	default:
		return data.regular, nil
	}
}
