package rasterize

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	groupClass     = "__char_group__"
	containerClass = "__canvas_text__"
)

// CharacterGroup 是一个原始文本节点拆出的字符组。
type CharacterGroup struct {
	// Wrapper 是替换原文本节点插入的 <span class="__char_group__">。
	Wrapper *html.Node
	// Origin 是被替换的原文本节点，Restore 时放回原处。
	Origin *html.Node
	// Source 是原文本。
	Source string
	Chars  []string
	Units  []CharacterUnit
}

// CharacterUnit 是一个字符的占位 <span>，盒子在布局后向引擎查询。
type CharacterUnit struct {
	Index int
	Node  *html.Node
}

// Text 返回包装节点当前的可见文本。
func (g *CharacterGroup) Text() string {
	var b strings.Builder
	collectText(&b, g.Wrapper)
	return b.String()
}

// 不参与渲染的元素，其中的文本不拆分。
var opaqueElements = map[atom.Atom]bool{
	atom.Style:    true,
	atom.Script:   true,
	atom.Template: true,
	atom.Head:     true,
	atom.Title:    true,
}

// Decompose 深度优先遍历 root 的子孙，把每个非空文本节点原地替换为字符组。
// 出错时返回已创建的字符组，调用方仍需 Restore。
func Decompose(root *html.Node, seg Segmentation) ([]*CharacterGroup, error) {
	if root == nil {
		return nil, ErrInvalidInput
	}
	var groups []*CharacterGroup
	err := decompose(root, seg, &groups)
	return groups, err
}

func decompose(n *html.Node, seg Segmentation, groups *[]*CharacterGroup) error {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		switch child.Type {
		case html.TextNode:
			if child.Data != "" {
				g, err := split(child, seg)
				if err != nil {
					return err
				}
				*groups = append(*groups, g)
			}
		case html.ElementNode:
			if !opaqueElements[child.DataAtom] && !isGroup(child) {
				if err := decompose(child, seg, groups); err != nil {
					return err
				}
			}
		}
		child = next
	}
	return nil
}

func split(text *html.Node, seg Segmentation) (*CharacterGroup, error) {
	parent := text.Parent
	if parent == nil {
		return nil, fmt.Errorf("文本节点没有父节点")
	}
	g := &CharacterGroup{
		Wrapper: newSpan(groupClass),
		Origin:  text,
		Source:  text.Data,
		Chars:   Split(text.Data, seg),
	}
	for i, ch := range g.Chars {
		unit := newSpan("")
		unit.AppendChild(&html.Node{Type: html.TextNode, Data: ch})
		g.Wrapper.AppendChild(unit)
		g.Units = append(g.Units, CharacterUnit{Index: i, Node: unit})
	}
	parent.InsertBefore(g.Wrapper, text)
	parent.RemoveChild(text)
	return g, nil
}

// Restore 用文本节点替换每个字符组包装，文本为包装当前的可见文本。可重复调用。
func Restore(groups []*CharacterGroup) {
	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		if g == nil || g.Wrapper == nil || g.Wrapper.Parent == nil {
			continue
		}
		parent := g.Wrapper.Parent
		text := g.Origin
		if text == nil || text.Parent != nil {
			text = &html.Node{Type: html.TextNode}
		}
		text.Data = g.Text()
		parent.InsertBefore(text, g.Wrapper)
		parent.RemoveChild(g.Wrapper)
	}
}

func newSpan(class string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: "span", DataAtom: atom.Span}
	if class != "" {
		n.Attr = []html.Attribute{{Key: "class", Val: class}}
	}
	return n
}

func isGroup(n *html.Node) bool {
	if n.DataAtom != atom.Span {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "class" && a.Val == groupClass {
			return true
		}
	}
	return false
}

func collectText(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			collectText(b, c)
		}
	}
}
