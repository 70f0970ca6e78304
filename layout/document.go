package layout

import (
	"fmt"
	"strings"

	"github.com/aymerick/douceur/css"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document 是内置的结构化排版引擎：一棵可见文档树加一棵离屏草稿树，
// 使用 Measurer 度量文字，实现 Engine。
type Document struct {
	measurer Measurer
	opts     DocumentOptions

	doc, body       *html.Node
	scratch, sbody  *html.Node
	rules           []sheetRule
	styles          map[*html.Node]*computed
	boxes           map[*html.Node]Rect
	metrics         map[string]FontMetrics
}

var _ Engine = (*Document)(nil)

// NewDocument 创建空文档，measurer 不能为空。
func NewDocument(m Measurer, opts DocumentOptions) *Document {
	if len(opts.DefaultFamilies) == 0 {
		opts.DefaultFamilies = []string{"serif"}
	}
	if opts.DefaultSize <= 0 {
		opts.DefaultSize = 16
	}
	d := &Document{
		measurer: m,
		opts:     opts,
		styles:   map[*html.Node]*computed{},
		boxes:    map[*html.Node]Rect{},
		metrics:  map[string]FontMetrics{},
	}
	d.doc, d.body = newTree()
	d.scratch, d.sbody = newTree()
	return d
}

func newTree() (*html.Node, *html.Node) {
	doc := &html.Node{Type: html.DocumentNode}
	root := &html.Node{Type: html.ElementNode, Data: "html", DataAtom: atom.Html}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	doc.AppendChild(root)
	root.AppendChild(body)
	return doc, body
}

// Body 返回可见文档的 body。
func (d *Document) Body() *html.Node { return d.body }

// AddStyleSheet 追加一份样式表，规则按追加顺序生效。
func (d *Document) AddStyleSheet(text string) error {
	rules, err := compileStyleSheet(text)
	if err != nil {
		return fmt.Errorf("解析样式表失败: %w", err)
	}
	d.rules = append(d.rules, rules...)
	return nil
}

// AppendHTML 把 markup 解析后放进一个新的 <div>，挂到 body 末尾并返回该 div。
func (d *Document) AppendHTML(markup string) (*html.Node, error) {
	nodes, err := ParseFragment(markup)
	if err != nil {
		return nil, err
	}
	div := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		div.AppendChild(n)
	}
	d.body.AppendChild(div)
	return div, nil
}

// ParseFragment 以 <body> 为上下文解析 HTML 片段。
func ParseFragment(markup string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, fmt.Errorf("解析 HTML 片段失败: %w", err)
	}
	return nodes, nil
}

// IsConnected 判断 n 是否位于可见文档中。
func (d *Document) IsConnected(n *html.Node) bool {
	return n != nil && topOf(n) == d.doc
}

func topOf(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

// Attach 把 n 放进一个位于原点的绝对定位宿主；Detach 时恢复 n 原来的位置。
func (d *Document) Attach(n *html.Node, kind HostKind) (Host, error) {
	if n == nil || n.Type != html.ElementNode {
		return nil, ErrNotElement
	}
	parent := d.body
	if kind == HostScratch {
		parent = d.sbody
	}
	h := &host{
		el: &html.Node{
			Type:     html.ElementNode,
			Data:     "span",
			DataAtom: atom.Span,
			Attr: []html.Attribute{
				{Key: "class", Val: "__canvas_host__"},
				{Key: "style", Val: "position:absolute;left:0;top:0"},
			},
		},
		node:       n,
		origParent: n.Parent,
		origNext:   n.NextSibling,
	}
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
	h.el.AppendChild(n)
	parent.AppendChild(h.el)
	return h, nil
}

type host struct {
	el, node             *html.Node
	origParent, origNext *html.Node
	detached             bool
}

func (h *host) Detach() {
	if h.detached {
		return
	}
	h.detached = true
	if h.node.Parent == h.el {
		h.el.RemoveChild(h.node)
	}
	if h.el.Parent != nil {
		h.el.Parent.RemoveChild(h.el)
	}
	if h.origParent != nil && h.node.Parent == nil {
		next := h.origNext
		if next != nil && next.Parent != h.origParent {
			next = nil
		}
		h.origParent.InsertBefore(h.node, next)
	}
}

// Layout 重新计算 n 所在树的样式与几何。
func (d *Document) Layout(n *html.Node) error {
	if n == nil {
		return ErrNotElement
	}
	top := topOf(n)
	if top != d.doc && top != d.scratch {
		return ErrDetached
	}
	d.styles = map[*html.Node]*computed{}
	d.boxes = map[*html.Node]Rect{}

	var sheet map[*html.Node][]*css.Declaration
	if len(d.rules) > 0 {
		sheet = matchRules(top, d.rules)
	}
	f := &flow{
		measurer: d.measurer,
		root:     d.opts.DefaultSize,
		sheet:    sheet,
		styles:   d.styles,
		boxes:    d.boxes,
		metrics:  d.metrics,
		collapse: true,
	}
	base := &computed{
		families:   d.opts.DefaultFamilies,
		size:       d.opts.DefaultSize,
		weight:     400,
		style:      "normal",
		variant:    "normal",
		stretch:    100,
		lineHeight: LineHeightSpec{Kind: LineHeightNormal},
		color:      Black,
		background: Transparent,
		transform:  "none",
		display:    "block",
		whiteSpace: "normal",
		position:   "static",
	}
	for child := top.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		if err := f.element(child, base); err != nil {
			return fmt.Errorf("布局计算失败: %w", err)
		}
	}
	return nil
}

// ComputedStyle 返回元素的计算样式；文本节点取其父元素。
func (d *Document) ComputedStyle(n *html.Node) (ResolvedStyle, error) {
	el, err := d.element(n)
	if err != nil {
		return ResolvedStyle{}, err
	}
	c, ok := d.styles[el]
	if !ok {
		if err := d.Layout(el); err != nil {
			return ResolvedStyle{}, err
		}
		if c, ok = d.styles[el]; !ok {
			return ResolvedStyle{}, ErrNoBox
		}
	}
	return c.resolved(d.opts.OmitFontShorthand), nil
}

// BoundingBox 返回元素在最近一次布局中的盒子，未布局过的节点会触发一次布局。
func (d *Document) BoundingBox(n *html.Node) (Rect, error) {
	el, err := d.element(n)
	if err != nil {
		return Rect{}, err
	}
	box, ok := d.boxes[el]
	if !ok {
		if err := d.Layout(el); err != nil {
			return Rect{}, err
		}
		if box, ok = d.boxes[el]; !ok {
			return Rect{}, ErrNoBox
		}
	}
	return box, nil
}

func (d *Document) element(n *html.Node) (*html.Node, error) {
	if n == nil {
		return nil, ErrNotElement
	}
	if n.Type == html.TextNode && n.Parent != nil {
		n = n.Parent
	}
	if n.Type != html.ElementNode {
		return nil, ErrNotElement
	}
	return n, nil
}
