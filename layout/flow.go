package layout

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/aymerick/douceur/css"
	"golang.org/x/net/html"
)

// fragment 是一行中的一段文字，归属于包含它的元素。
type fragment struct {
	owner      *html.Node
	x, width   float64
	metrics    FontMetrics
	lineHeight float64
}

// flow 执行简化的行内排版：不自动换行，只在 <br>、块级元素与 pre 换行符处断行。
type flow struct {
	measurer Measurer
	root     float64
	sheet    map[*html.Node][]*css.Declaration

	styles map[*html.Node]*computed
	boxes  map[*html.Node]Rect

	stop     *html.Node // 当前格式化上下文的根，盒子并集不越过它
	originX  float64
	x, y     float64
	line     []fragment
	maxRight float64

	emitted    int  // 已放置的片段数，用于判断元素是否还有未结束的行
	collapse   bool // 上一个字符是可折叠空白，或位于行首
	prevLetter bool // capitalize 用的词内状态
	metrics    map[string]FontMetrics
}

func (f *flow) fontMetrics(c *computed) (FontMetrics, error) {
	font := c.font()
	key := font.String()
	if m, ok := f.metrics[key]; ok {
		return m, nil
	}
	m, err := f.measurer.Metrics(font)
	if err != nil {
		return FontMetrics{}, fmt.Errorf("测量字体 %s 失败: %w", key, err)
	}
	f.metrics[key] = m
	return m, nil
}

// element 布局一个元素及其子树。
func (f *flow) element(n *html.Node, parent *computed) error {
	c := cascade(n, parent, f.root, f.sheet[n])
	f.styles[n] = c

	if c.display == "none" {
		f.hide(n)
		return nil
	}
	if strings.EqualFold(n.Data, "br") {
		f.boxes[n] = Rect{X: f.x, Y: f.y}
		return f.breakLine(c, true)
	}
	if c.position == "absolute" || c.position == "fixed" {
		return f.absolute(n, c)
	}
	if c.display == "block" || c.display == "list-item" || c.display == "flow-root" {
		return f.block(n, c)
	}

	start, emitted := f.x, f.emitted
	if err := f.children(n, c); err != nil {
		return err
	}
	if _, ok := f.boxes[n]; !ok && emitted == f.emitted {
		// 没有任何内容的行内元素：在起点给一个零尺寸盒子
		f.boxes[n] = Rect{X: start, Y: f.y}
	}
	return nil
}

func (f *flow) children(n *html.Node, c *computed) error {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case html.TextNode:
			if err := f.text(n, child, c); err != nil {
				return err
			}
		case html.ElementNode:
			if err := f.element(child, c); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *flow) block(n *html.Node, c *computed) error {
	if len(f.line) > 0 {
		if err := f.breakLine(c, false); err != nil {
			return err
		}
	}
	startY := f.y
	savedMax := f.maxRight
	f.maxRight = f.originX
	f.collapse = true
	if err := f.children(n, c); err != nil {
		return err
	}
	if len(f.line) > 0 {
		if err := f.breakLine(c, false); err != nil {
			return err
		}
	}
	f.boxes[n] = Rect{X: f.originX, Y: startY, Width: f.maxRight - f.originX, Height: f.y - startY}
	f.unionAncestors(n, f.boxes[n])
	f.maxRight = math.Max(savedMax, f.maxRight)
	return nil
}

// absolute 以 left/top 为原点开启独立的格式化上下文，宽度收缩到内容。
func (f *flow) absolute(n *html.Node, c *computed) error {
	saved := *f
	f.stop = n
	f.originX, f.x, f.y = c.left, c.left, c.top
	f.line = nil
	f.maxRight = c.left
	f.collapse = true
	f.prevLetter = false
	if err := f.children(n, c); err != nil {
		return err
	}
	if len(f.line) > 0 {
		if err := f.breakLine(c, false); err != nil {
			return err
		}
	}
	if _, ok := f.boxes[n]; !ok {
		f.boxes[n] = Rect{X: c.left, Y: c.top}
	}
	f.stop, f.originX, f.x, f.y = saved.stop, saved.originX, saved.x, saved.y
	f.line, f.maxRight = saved.line, saved.maxRight
	f.collapse, f.prevLetter = saved.collapse, saved.prevLetter
	return nil
}

func (f *flow) text(owner, n *html.Node, c *computed) error {
	pre := c.whiteSpace == "pre" || c.whiteSpace == "pre-wrap"
	var b strings.Builder
	for _, r := range n.Data {
		if pre && r == '\n' {
			if err := f.emit(owner, c, b.String()); err != nil {
				return err
			}
			b.Reset()
			if err := f.breakLine(c, true); err != nil {
				return err
			}
			continue
		}
		if !pre && isCollapsible(r) {
			if f.collapse {
				continue
			}
			f.collapse = true
			b.WriteRune(' ')
			continue
		}
		f.collapse = false
		b.WriteRune(r)
	}
	return f.emit(owner, c, b.String())
}

// emit 测量一段可见文本并放到当前行；全部折叠的文本也留下零宽片段，让元素拥有盒子。
func (f *flow) emit(owner *html.Node, c *computed, visible string) error {
	m, err := f.fontMetrics(c)
	if err != nil {
		return err
	}
	var transformed string
	transformed, f.prevLetter = transformText(c.transform, visible, f.prevLetter)
	width := 0.0
	if transformed != "" {
		width, err = f.measurer.TextWidth(c.font(), transformed)
		if err != nil {
			return fmt.Errorf("测量文本 %q 失败: %w", transformed, err)
		}
	}
	f.line = append(f.line, fragment{
		owner:      owner,
		x:          f.x,
		width:      width,
		metrics:    m,
		lineHeight: c.lineHeight.Resolve(c.size, m),
	})
	f.x += width
	f.emitted++
	return nil
}

// breakLine 结束当前行，按基线对齐计算每个片段的盒子。forced 时空行也占用一行高度。
func (f *flow) breakLine(strut *computed, forced bool) error {
	if len(f.line) == 0 {
		if forced {
			m, err := f.fontMetrics(strut)
			if err != nil {
				return err
			}
			f.y += strut.lineHeight.Resolve(strut.size, m)
		}
		f.x = f.originX
		f.collapse = true
		return nil
	}
	above, below := 0.0, 0.0
	for _, fr := range f.line {
		half := (fr.lineHeight - fr.metrics.ContentHeight()) / 2
		above = math.Max(above, fr.metrics.Ascent+half)
		below = math.Max(below, fr.metrics.Descent+half)
	}
	baseline := f.y + above
	for _, fr := range f.line {
		box := Rect{
			X:      fr.x,
			Y:      baseline - fr.metrics.Ascent,
			Width:  fr.width,
			Height: fr.metrics.ContentHeight(),
		}
		f.unionAncestors(fr.owner, box)
		f.maxRight = math.Max(f.maxRight, box.Right())
	}
	f.y = baseline + below
	f.x = f.originX
	f.line = nil
	f.collapse = true
	return nil
}

// unionAncestors 把盒子并入 n 及其祖先，直到当前格式化上下文的根。
func (f *flow) unionAncestors(n *html.Node, box Rect) {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			if prev, ok := f.boxes[p]; ok {
				f.boxes[p] = prev.Union(box)
			} else {
				f.boxes[p] = box
			}
		}
		if p == f.stop {
			return
		}
	}
}

func (f *flow) hide(n *html.Node) {
	f.boxes[n] = Rect{}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode {
			f.styles[child] = f.styles[n]
			f.hide(child)
		}
	}
}

func isCollapsible(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f'
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
