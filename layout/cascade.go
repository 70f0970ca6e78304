package layout

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	selcss "github.com/ericchiang/css"
	"golang.org/x/net/html"

	"github.com/ByLCY/textcanvas/fontspec"
)

// computed 是级联后的内部样式，数值已换算为 px。
type computed struct {
	families   []string
	size       float64
	weight     int
	style      string
	variant    string
	stretch    float64
	lineHeight LineHeightSpec
	color      Color
	background Color
	transform  string
	display    string
	whiteSpace string
	position   string
	left, top  float64
}

func (c *computed) inherit() *computed {
	return &computed{
		families:   c.families,
		size:       c.size,
		weight:     c.weight,
		style:      c.style,
		variant:    c.variant,
		stretch:    c.stretch,
		lineHeight: c.lineHeight,
		color:      c.color,
		background: Transparent,
		transform:  c.transform,
		display:    "inline",
		whiteSpace: c.whiteSpace,
		position:   "static",
	}
}

// font 返回交给 Measurer 的字体描述。
func (c *computed) font() fontspec.Font {
	return fontspec.Font{
		Style:      c.style,
		Variant:    c.variant,
		Weight:     c.weight,
		Stretch:    fontspec.NormalizeStretch(formatNumber(c.stretch) + "%"),
		Size:       formatPx(c.size),
		LineHeight: "normal",
		Families:   c.families,
	}
}

func (c *computed) resolved(omitShorthand bool) ResolvedStyle {
	rs := ResolvedStyle{
		FontFamily:      fontspec.FormatFamilies(c.families),
		FontSize:        formatPx(c.size),
		FontWeight:      strconv.Itoa(c.weight),
		FontStyle:       c.style,
		FontVariant:     c.variant,
		FontStretch:     formatNumber(c.stretch) + "%",
		LineHeight:      c.lineHeight.String(c.size),
		Color:           c.color.String(),
		BackgroundColor: c.background.String(),
		TextTransform:   c.transform,
	}
	if !omitShorthand {
		rs.Font = c.shorthand()
	}
	return rs
}

// shorthand 组合 font 简写，省略 normal 分量；stretch 没有对应关键字时无法表达，返回空串。
func (c *computed) shorthand() string {
	var parts []string
	if c.style != "normal" {
		parts = append(parts, c.style)
	}
	if c.variant != "normal" {
		parts = append(parts, c.variant)
	}
	if c.weight != 400 {
		parts = append(parts, strconv.Itoa(c.weight))
	}
	if c.stretch != 100 {
		kw := fontspec.NormalizeStretch(formatNumber(c.stretch) + "%")
		if strings.HasSuffix(kw, "%") {
			return ""
		}
		parts = append(parts, kw)
	}
	size := formatPx(c.size)
	if c.lineHeight.Kind != LineHeightNormal {
		size += " / " + c.lineHeight.String(c.size)
	}
	parts = append(parts, size, fontspec.FormatFamilies(c.families))
	return strings.Join(parts, " ")
}

func decl(property, value string) *css.Declaration {
	return &css.Declaration{Property: property, Value: value}
}

// 浏览器默认样式表里与文字相关的部分。
var uaRules = map[string][]*css.Declaration{
	"b":          {decl("font-weight", "bold")},
	"strong":     {decl("font-weight", "bold")},
	"i":          {decl("font-style", "italic")},
	"em":         {decl("font-style", "italic")},
	"cite":       {decl("font-style", "italic")},
	"var":        {decl("font-style", "italic")},
	"dfn":        {decl("font-style", "italic")},
	"address":    {decl("display", "block"), decl("font-style", "italic")},
	"code":       {decl("font-family", "monospace"), decl("font-size", "0.8125em")},
	"kbd":        {decl("font-family", "monospace"), decl("font-size", "0.8125em")},
	"samp":       {decl("font-family", "monospace"), decl("font-size", "0.8125em")},
	"tt":         {decl("font-family", "monospace"), decl("font-size", "0.8125em")},
	"pre":        {decl("display", "block"), decl("font-family", "monospace"), decl("font-size", "0.8125em"), decl("white-space", "pre")},
	"small":      {decl("font-size", "smaller")},
	"big":        {decl("font-size", "larger")},
	"sub":        {decl("font-size", "smaller")},
	"sup":        {decl("font-size", "smaller")},
	"mark":       {decl("background-color", "yellow"), decl("color", "black")},
	"h1":         {decl("display", "block"), decl("font-size", "2em"), decl("font-weight", "bold")},
	"h2":         {decl("display", "block"), decl("font-size", "1.5em"), decl("font-weight", "bold")},
	"h3":         {decl("display", "block"), decl("font-size", "1.17em"), decl("font-weight", "bold")},
	"h4":         {decl("display", "block"), decl("font-weight", "bold")},
	"h5":         {decl("display", "block"), decl("font-size", "0.83em"), decl("font-weight", "bold")},
	"h6":         {decl("display", "block"), decl("font-size", "0.67em"), decl("font-weight", "bold")},
	"div":        {decl("display", "block")},
	"p":          {decl("display", "block")},
	"section":    {decl("display", "block")},
	"article":    {decl("display", "block")},
	"header":     {decl("display", "block")},
	"footer":     {decl("display", "block")},
	"blockquote": {decl("display", "block")},
	"ul":         {decl("display", "block")},
	"ol":         {decl("display", "block")},
	"li":         {decl("display", "block")},
	"body":       {decl("display", "block")},
	"html":       {decl("display", "block")},
	"head":       {decl("display", "none")},
	"style":      {decl("display", "none")},
	"script":     {decl("display", "none")},
	"template":   {decl("display", "none")},
}

// sheetRule 是一条已编译的样式表规则。
type sheetRule struct {
	sel   *selcss.Selector
	decls []*css.Declaration
}

func compileStyleSheet(text string) ([]sheetRule, error) {
	ss, err := parser.Parse(text)
	if err != nil {
		return nil, err
	}
	var rules []sheetRule
	for _, rule := range ss.Rules {
		if rule.Kind == css.AtRule || len(rule.Selectors) == 0 {
			continue
		}
		sel, err := selcss.Parse(strings.Join(rule.Selectors, ","))
		if err != nil {
			slog.Debug("忽略无法解析的选择器", "selectors", rule.Selectors, "err", err)
			continue
		}
		rules = append(rules, sheetRule{sel: sel, decls: rule.Declarations})
	}
	return rules, nil
}

// matchRules 把每条规则的声明按出现顺序分配到命中的节点上。
func matchRules(root *html.Node, rules []sheetRule) map[*html.Node][]*css.Declaration {
	out := map[*html.Node][]*css.Declaration{}
	for _, rule := range rules {
		for _, match := range rule.sel.Select(root) {
			out[match] = append(out[match], rule.decls...)
		}
	}
	return out
}

func inlineDeclarations(n *html.Node) []*css.Declaration {
	for _, attr := range n.Attr {
		if attr.Key != "style" {
			continue
		}
		val := attr.Val
		// douceur 对分号要求严格，行内样式允许省略结尾分号
		if !strings.HasSuffix(strings.TrimSpace(val), ";") {
			val += ";"
		}
		decls, err := parser.ParseDeclarations(val)
		if err != nil {
			slog.Debug("忽略无法解析的行内样式", "style", attr.Val, "err", err)
			return nil
		}
		return decls
	}
	return nil
}

// cascade 计算元素的样式：继承 -> UA 默认 -> 样式表 -> 行内样式，!important 最后生效。
func cascade(n *html.Node, parent *computed, root float64, sheet []*css.Declaration) *computed {
	c := parent.inherit()
	var important []*css.Declaration
	apply := func(decls []*css.Declaration) {
		for _, d := range decls {
			if d.Important {
				important = append(important, d)
				continue
			}
			c.apply(d.Property, d.Value, parent, root)
		}
	}
	apply(uaRules[strings.ToLower(n.Data)])
	apply(sheet)
	apply(inlineDeclarations(n))
	for _, d := range important {
		c.apply(d.Property, d.Value, parent, root)
	}
	return c
}

func (c *computed) apply(property, value string, parent *computed, root float64) {
	prop := strings.ToLower(strings.TrimSpace(property))
	val := strings.TrimSpace(value)
	lower := strings.ToLower(val)
	if lower == "inherit" {
		c.inheritProperty(prop, parent)
		return
	}
	switch prop {
	case "font":
		f, err := fontspec.Parse(val)
		if err != nil {
			slog.Debug("忽略无法解析的 font 简写", "value", val, "err", err)
			return
		}
		c.style = f.Style
		c.variant = f.Variant
		c.weight = f.Weight
		if pct, ok := fontspec.StretchPercent(f.Stretch); ok {
			c.stretch = pct
		}
		c.setSize(f.Size, parent, root)
		if lh, ok := ParseLineHeight(f.LineHeight, c.size, root); ok {
			c.lineHeight = lh
		}
		c.families = f.Families
	case "font-family":
		if fams := parseFamilies(val); len(fams) > 0 {
			c.families = fams
		}
	case "font-size":
		c.setSize(val, parent, root)
	case "font-weight":
		if w, ok := fontspec.ResolveWeight(lower, parent.weight); ok {
			c.weight = w
		}
	case "font-style":
		switch {
		case lower == "normal", lower == "italic":
			c.style = lower
		case strings.HasPrefix(lower, "oblique"):
			c.style = "oblique"
		}
	case "font-variant", "font-variant-caps":
		if lower == "normal" || lower == "small-caps" {
			c.variant = lower
		}
	case "font-stretch":
		if pct, ok := fontspec.StretchPercent(lower); ok {
			c.stretch = pct
		}
	case "line-height":
		if lh, ok := ParseLineHeight(lower, c.size, root); ok {
			c.lineHeight = lh
		}
	case "color":
		if lower == "currentcolor" {
			c.color = parent.color
			return
		}
		if col, err := ParseColor(val); err == nil {
			c.color = col
		}
	case "background-color", "background":
		if lower == "currentcolor" {
			c.background = c.color
			return
		}
		if col, err := ParseColor(val); err == nil {
			c.background = col
		}
	case "text-transform":
		switch lower {
		case "none", "uppercase", "lowercase", "capitalize":
			c.transform = lower
		}
	case "display":
		c.display = lower
	case "white-space":
		switch lower {
		case "normal", "nowrap", "pre", "pre-wrap", "pre-line":
			c.whiteSpace = lower
		}
	case "position":
		c.position = lower
	case "left":
		if l, ok := ParseLength(lower); ok {
			c.left = l.ToPx(c.size, root)
		}
	case "top":
		if l, ok := ParseLength(lower); ok {
			c.top = l.ToPx(c.size, root)
		}
	}
}

func (c *computed) setSize(val string, parent *computed, root float64) {
	if px, ok := fontspec.LengthToPixels(val, parent.size); ok && px >= 0 {
		if l, lok := ParseLength(val); lok && l.Unit == UnitREM {
			px = l.ToPx(parent.size, root)
		}
		c.size = px
	}
}

func (c *computed) inheritProperty(prop string, parent *computed) {
	switch prop {
	case "background-color", "background":
		c.background = parent.background
	case "display":
		c.display = parent.display
	case "position":
		c.position = parent.position
	}
}

func parseFamilies(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		name := strings.TrimSpace(part)
		name = strings.Trim(name, `"'`)
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}
