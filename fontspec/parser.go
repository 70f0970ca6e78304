package fontspec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	fontLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r\n\f]+`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"|'(?:\\.|[^'])*'`},
		{Name: "Number", Pattern: `[+-]?(?:\d+\.\d*|\.\d+|\d+)(?:%|[A-Za-z]+)?`},
		{Name: "Ident", Pattern: `-?[A-Za-z_\x{80}-\x{10FFFF}][A-Za-z0-9_\x{80}-\x{10FFFF}-]*`},
		{Name: "Symbol", Pattern: `[/,]`},
	})

	shorthandParser = participle.MustBuild[shorthand](
		participle.Lexer(fontLexer),
		participle.Elide("Whitespace"),
	)
)

// shorthand 是 CSS font 简写的语法树。
// 家族名与前缀关键字在词法上无法区分，Head 会贪婪地吃掉首个家族名，由 Parse 再做切分。
type shorthand struct {
	Head       []*word   `parser:"@@+"`
	LineHeight *word     `parser:"( '/' @@"`
	Tail       []*word   `parser:"  @@* )?"`
	Fallbacks  []*family `parser:"( ',' @@ )*"`
}

type family struct {
	Words []*word `parser:"@@+"`
}

type word struct {
	Quoted *quoted `parser:"  @String"`
	Raw    *string `parser:"| @(Number | Ident)"`
}

func (w *word) text() string {
	if w.Quoted != nil {
		return string(*w.Quoted)
	}
	if w.Raw != nil {
		return *w.Raw
	}
	return ""
}

// quoted 在捕获时去掉引号并处理反斜杠转义，兼容单双引号。
type quoted string

// Capture implements participle.Capture.
func (q *quoted) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("字符串捕获缺少取值")
	}
	raw := values[0]
	if len(raw) < 2 {
		return fmt.Errorf("非法字符串 %s", raw)
	}
	body := raw[1 : len(raw)-1]
	var b strings.Builder
	escaped := false
	for _, r := range body {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	*q = quoted(b.String())
	return nil
}

// Parse 解析 CSS font 简写，例如 `italic small-caps 700 condensed 16px/20px "Times New Roman", serif`。
// 语法与 CanvasRenderingContext2D.font 一致：前缀（style/variant/weight/stretch）任意顺序且至多四个，
// 随后必须是字号、可选的 /行高，最后是至少一个字体家族。
func Parse(spec string) (Font, error) {
	if strings.TrimSpace(spec) == "" {
		return Font{}, fmt.Errorf("%w: 空字符串", ErrInvalidFont)
	}
	ast, err := shorthandParser.ParseString("", spec)
	if err != nil {
		return Font{}, fmt.Errorf("%w: %q: %v", ErrInvalidFont, spec, err)
	}

	sizeAt := -1
	for i, w := range ast.Head {
		if w.Quoted != nil || !isSizeToken(w.text()) {
			continue
		}
		if i+1 < len(ast.Head) && ast.Head[i+1].Quoted == nil && isSizeToken(ast.Head[i+1].text()) {
			continue
		}
		sizeAt = i
		break
	}
	if sizeAt < 0 {
		return Font{}, fmt.Errorf("%w: %q 缺少字号", ErrInvalidFont, spec)
	}

	f := Font{
		Style:      "normal",
		Variant:    "normal",
		Weight:     400,
		Stretch:    "normal",
		LineHeight: "normal",
	}
	if len(ast.Head[:sizeAt]) > 4 {
		return Font{}, fmt.Errorf("%w: %q 前缀过多", ErrInvalidFont, spec)
	}
	for _, w := range ast.Head[:sizeAt] {
		if err := f.applyPrefix(w.text()); err != nil {
			return Font{}, fmt.Errorf("%w: %q: %v", ErrInvalidFont, spec, err)
		}
	}
	f.Size = ast.Head[sizeAt].text()

	familyWords := ast.Head[sizeAt+1:]
	if ast.LineHeight != nil {
		if len(familyWords) > 0 {
			return Font{}, fmt.Errorf("%w: %q 行高位置错误", ErrInvalidFont, spec)
		}
		f.LineHeight = ast.LineHeight.text()
		familyWords = ast.Tail
	}
	if len(familyWords) == 0 {
		return Font{}, fmt.Errorf("%w: %q 缺少字体家族", ErrInvalidFont, spec)
	}
	f.Families = append(f.Families, joinWords(familyWords))
	for _, fb := range ast.Fallbacks {
		f.Families = append(f.Families, joinWords(fb.Words))
	}
	return f, nil
}

func (f *Font) applyPrefix(token string) error {
	lower := strings.ToLower(token)
	switch lower {
	case "normal":
		return nil
	case "italic", "oblique":
		f.Style = lower
		return nil
	case "small-caps":
		f.Variant = lower
		return nil
	}
	if w, ok := ResolveWeight(lower, 400); ok {
		f.Weight = w
		return nil
	}
	if _, ok := stretchPercents[lower]; ok {
		f.Stretch = lower
		return nil
	}
	if strings.HasSuffix(lower, "%") {
		if _, err := strconv.ParseFloat(strings.TrimSuffix(lower, "%"), 64); err == nil {
			f.Stretch = NormalizeStretch(lower)
			return nil
		}
	}
	return fmt.Errorf("无法识别的前缀 %s", token)
}

func joinWords(words []*word) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		parts = append(parts, w.text())
	}
	return strings.Join(parts, " ")
}

func isSizeToken(token string) bool {
	lower := strings.ToLower(token)
	if _, ok := sizeKeywords[lower]; ok {
		return true
	}
	_, unit, ok := SplitNumber(lower)
	if !ok || unit == "" {
		return false
	}
	return unit == "%" || lengthUnits[unit]
}

// SplitNumber 将 "12.5px" 拆成数值与单位，单位可能为空。
func SplitNumber(s string) (float64, string, bool) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' || ((c == '+' || c == '-') && i == 0) {
			i++
			continue
		}
		break
	}
	if i == 0 {
		return 0, "", false
	}
	v, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0, "", false
	}
	return v, strings.ToLower(s[i:]), true
}
