package layout

import (
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/ByLCY/textcanvas/fontspec"
)

// stubMeasurer 是固定宽度的度量实现：每个字符宽 size/2，ascent/descent 为 0.8/0.2 size。
type stubMeasurer struct {
	failMetrics bool
}

func (s *stubMeasurer) Metrics(font fontspec.Font) (FontMetrics, error) {
	if s.failMetrics {
		return FontMetrics{}, errors.New("no metrics")
	}
	px := font.Pixels()
	return FontMetrics{Ascent: px * 0.8, Descent: px * 0.2}, nil
}

func (s *stubMeasurer) TextWidth(font fontspec.Font, text string) (float64, error) {
	return float64(utf8.RuneCountInString(text)) * font.Pixels() / 2, nil
}

func newTestDocument(t *testing.T, markup string) (*Document, *html.Node) {
	t.Helper()
	doc := NewDocument(&stubMeasurer{}, DocumentOptions{})
	div, err := doc.AppendHTML(markup)
	require.NoError(t, err)
	return doc, div
}

// find 返回第一个带指定 id 的元素。
func find(n *html.Node, id string) *html.Node {
	for _, a := range n.Attr {
		if a.Key == "id" && a.Val == id {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if got := find(c, id); got != nil {
			return got
		}
	}
	return nil
}

func TestInlineBoxesFollowTextWidth(t *testing.T) {
	doc, div := newTestDocument(t, `<span id="a">ab</span><span id="b">c</span>`)
	require.NoError(t, doc.Layout(div))

	a, err := doc.BoundingBox(find(div, "a"))
	require.NoError(t, err)
	b, err := doc.BoundingBox(find(div, "b"))
	require.NoError(t, err)
	box, err := doc.BoundingBox(div)
	require.NoError(t, err)

	assert.Equal(t, Rect{X: 0, Y: 0, Width: 16, Height: 16}, a)
	assert.Equal(t, Rect{X: 16, Y: 0, Width: 8, Height: 16}, b)
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 24, Height: 16}, box)
}

func TestMixedSizesShareBaseline(t *testing.T) {
	doc, div := newTestDocument(t, `<span id="big" style="font-size:32px">A</span><span id="small">b</span>`)
	require.NoError(t, doc.Layout(div))

	big, err := doc.BoundingBox(find(div, "big"))
	require.NoError(t, err)
	small, err := doc.BoundingBox(find(div, "small"))
	require.NoError(t, err)

	assert.InDelta(t, 0, big.Y, 1e-9)
	assert.InDelta(t, 32, big.Height, 1e-9)
	// 基线在 25.6，小字 ascent 12.8
	assert.InDelta(t, 12.8, small.Y, 1e-9)
	assert.InDelta(t, big.Y+big.Height*0.8, small.Y+small.Height*0.8, 1e-9)
}

func TestLineBreaks(t *testing.T) {
	doc, div := newTestDocument(t, `<span id="a">a</span><br><span id="b">b</span><p id="p">c</p>`)
	require.NoError(t, doc.Layout(div))

	a, _ := doc.BoundingBox(find(div, "a"))
	b, _ := doc.BoundingBox(find(div, "b"))
	p, _ := doc.BoundingBox(find(div, "p"))
	assert.InDelta(t, 0, a.Y, 1e-9)
	assert.InDelta(t, 16, b.Y, 1e-9)
	assert.InDelta(t, 0, b.X, 1e-9)
	assert.InDelta(t, 32, p.Y, 1e-9)
}

func TestWhitespaceCollapses(t *testing.T) {
	doc, div := newTestDocument(t, "<span id=\"a\">  a \n\t b  </span>")
	require.NoError(t, doc.Layout(div))
	a, err := doc.BoundingBox(find(div, "a"))
	require.NoError(t, err)
	// "a b " 四个字符，前导空白被折叠
	assert.InDelta(t, 32, a.Width, 1e-9)
}

func TestComputedStyleCascade(t *testing.T) {
	doc, div := newTestDocument(t,
		`<p class="note" style="font-size:20px"><b id="b">x</b><em id="em" style="color:#f00">y</em></p>`)
	require.NoError(t, doc.AddStyleSheet(`.note { font-family: "Latin Modern Sans", sans-serif; color: rgb(0 0 255) }`))
	require.NoError(t, doc.Layout(div))

	b, err := doc.ComputedStyle(find(div, "b"))
	require.NoError(t, err)
	assert.Equal(t, "700", b.FontWeight)
	assert.Equal(t, "20px", b.FontSize)
	assert.Equal(t, `"Latin Modern Sans", sans-serif`, b.FontFamily)
	assert.Equal(t, "rgb(0, 0, 255)", b.Color)
	assert.Equal(t, "rgba(0, 0, 0, 0)", b.BackgroundColor)
	assert.Equal(t, `700 20px "Latin Modern Sans", sans-serif`, b.Font)

	em, err := doc.ComputedStyle(find(div, "em"))
	require.NoError(t, err)
	assert.Equal(t, "italic", em.FontStyle)
	assert.Equal(t, "rgb(255, 0, 0)", em.Color)

	spec, ok := em.Specifier().(DirectFont)
	require.True(t, ok)
	assert.Equal(t, DirectFont(`italic 20px "Latin Modern Sans", sans-serif`), spec)
}

func TestFontShorthandAndOmission(t *testing.T) {
	m := &stubMeasurer{}
	doc := NewDocument(m, DocumentOptions{OmitFontShorthand: true})
	div, err := doc.AppendHTML(`<span id="s" style="font: italic small-caps bold condensed 12pt/1.5 monospace">x</span>`)
	require.NoError(t, err)
	require.NoError(t, doc.Layout(div))

	s, err := doc.ComputedStyle(find(div, "s"))
	require.NoError(t, err)
	assert.Empty(t, s.Font)
	assert.Equal(t, "italic", s.FontStyle)
	assert.Equal(t, "small-caps", s.FontVariant)
	assert.Equal(t, "700", s.FontWeight)
	assert.Equal(t, "75%", s.FontStretch)
	assert.Equal(t, "16px", s.FontSize)
	assert.Equal(t, "24px", s.LineHeight)
	assert.Equal(t, "monospace", s.FontFamily)
	assert.IsType(t, ComponentFont{}, s.Specifier())
}

// 表中没有关键字的 stretch 无法写进简写，引擎不报告简写。
func TestUnmappedStretchOmitsShorthand(t *testing.T) {
	doc, div := newTestDocument(t, `<span id="s" style="font-stretch:83%">x</span>`)
	require.NoError(t, doc.Layout(div))
	s, err := doc.ComputedStyle(find(div, "s"))
	require.NoError(t, err)
	assert.Equal(t, "83%", s.FontStretch)
	assert.Empty(t, s.Font)
}

func TestTextTransformAffectsWidth(t *testing.T) {
	doc, div := newTestDocument(t, `<span id="s" style="text-transform:uppercase">ß</span>`)
	require.NoError(t, doc.Layout(div))
	s, err := doc.BoundingBox(find(div, "s"))
	require.NoError(t, err)
	assert.InDelta(t, 16, s.Width, 1e-9)
}

func TestDisplayNoneHasEmptyBox(t *testing.T) {
	doc, div := newTestDocument(t, `<span id="h" style="display:none">hidden</span><span id="v">v</span>`)
	require.NoError(t, doc.Layout(div))
	h, err := doc.BoundingBox(find(div, "h"))
	require.NoError(t, err)
	v, err := doc.BoundingBox(find(div, "v"))
	require.NoError(t, err)
	assert.Equal(t, Rect{}, h)
	assert.InDelta(t, 0, v.X, 1e-9)
}

func TestAttachDetachRestoresPosition(t *testing.T) {
	doc, div := newTestDocument(t, `<span id="a">a</span><span id="b">b</span><span id="c">c</span>`)
	b := find(div, "b")

	h, err := doc.Attach(b, HostDocument)
	require.NoError(t, err)
	assert.True(t, doc.IsConnected(b))
	assert.NotEqual(t, div, b.Parent)

	// 宿主绝对定位在原点，不受前面内容影响
	require.NoError(t, doc.Layout(b))
	box, err := doc.BoundingBox(b)
	require.NoError(t, err)
	assert.InDelta(t, 0, box.X, 1e-9)
	assert.InDelta(t, 0, box.Y, 1e-9)

	h.Detach()
	h.Detach()
	assert.Equal(t, div, b.Parent)
	assert.Equal(t, find(div, "c"), b.NextSibling)
	assert.Equal(t, find(div, "a"), b.PrevSibling)
}

func TestScratchHostIsNotConnected(t *testing.T) {
	doc := NewDocument(&stubMeasurer{}, DocumentOptions{})
	nodes, err := ParseFragment(`<span>x</span>`)
	require.NoError(t, err)
	span := nodes[0]

	h, err := doc.Attach(span, HostScratch)
	require.NoError(t, err)
	assert.False(t, doc.IsConnected(span))
	require.NoError(t, doc.Layout(span))
	box, err := doc.BoundingBox(span)
	require.NoError(t, err)
	assert.InDelta(t, 8, box.Width, 1e-9)

	h.Detach()
	assert.Nil(t, span.Parent)
	assert.ErrorIs(t, doc.Layout(span), ErrDetached)
}

func TestQueriesRejectNonElements(t *testing.T) {
	doc := NewDocument(&stubMeasurer{}, DocumentOptions{})
	_, err := doc.BoundingBox(nil)
	assert.ErrorIs(t, err, ErrNotElement)
	_, err = doc.Attach(&html.Node{Type: html.CommentNode}, HostDocument)
	assert.ErrorIs(t, err, ErrNotElement)
}

func TestMetricFailurePropagates(t *testing.T) {
	doc := NewDocument(&stubMeasurer{failMetrics: true}, DocumentOptions{})
	div, err := doc.AppendHTML(`x`)
	require.NoError(t, err)
	assert.Error(t, doc.Layout(div))
}
