package rasterize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/ByLCY/textcanvas/layout"
	"github.com/ByLCY/textcanvas/renderer"
)

func newTestRenderer(engine layout.Engine) (*Renderer, *recordingFactory) {
	f := &recordingFactory{ascent: 2, charWidth: 8}
	return NewRenderer(engine, f), f
}

func TestRoundTripRestoresLiveTree(t *testing.T) {
	engine := newSpyEngine(layout.DocumentOptions{})
	div, err := engine.AppendHTML(`<p>Hello <b>wörld</b> 👍🏽</p><!-- note -->tail`)
	require.NoError(t, err)
	p := div.FirstChild
	hello := p.FirstChild
	before := serialize(t, engine.Body())

	r, f := newTestRenderer(engine)
	_, err = r.RenderNode(div, Options{})
	require.NoError(t, err)

	assert.Equal(t, before, serialize(t, engine.Body()))
	assert.Same(t, hello, p.FirstChild, "原文本节点应被放回原处")
	assert.Empty(t, engine.attached, "已挂载的节点不需要临时宿主")
	require.Len(t, f.onscreen, 1)
}

func TestRoundTripAfterMidRenderFailure(t *testing.T) {
	engine := newSpyEngine(layout.DocumentOptions{})
	nodes, err := layout.ParseFragment(`<span>ab<i>cd</i></span>`)
	require.NoError(t, err)
	span := nodes[0]
	holder := &html.Node{Type: html.ElementNode, Data: "div"}
	holder.AppendChild(span)
	before := serialize(t, holder)

	// 第 1 次查询容器，第 2 次查询第一个字符，第 3 次失败
	engine.failBoxAfter = 2
	r, _ := newTestRenderer(engine)
	_, err = r.RenderNode(span, Options{})
	require.ErrorIs(t, err, errBoom)

	assert.Equal(t, before, serialize(t, holder))
	assert.Same(t, holder, span.Parent, "临时宿主应被移除，节点回到原父节点")
	assert.Nil(t, engine.Body().FirstChild, "可见文档中不应残留宿主")
}

func TestCharacterCountPerCodepoint(t *testing.T) {
	engine := newSpyEngine(layout.DocumentOptions{})
	r, f := newTestRenderer(engine)

	_, err := r.RenderHTML("<span>a👍🏽é</span>", Options{})
	require.NoError(t, err)
	got := f.onscreen[0].textsOnly()
	assert.Equal(t, []string{"a", "👍", "🏽", "é"}, got)

	_, err = r.RenderHTML("<span>a👍🏽é</span>", Options{Segmentation: SegmentGraphemes})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "👍🏽", "é"}, f.onscreen[1].textsOnly())
}

func TestScaleInvariance(t *testing.T) {
	engine := newSpyEngine(layout.DocumentOptions{})
	r, f := newTestRenderer(engine)

	one, err := r.RenderHTML("<span>Hi <b>there</b></span>", Options{Scale: 1})
	require.NoError(t, err)
	two, err := r.RenderHTML("<span>Hi <b>there</b></span>", Options{Scale: 2})
	require.NoError(t, err)

	w1, h1 := one.Size()
	w2, h2 := two.Size()
	assert.Equal(t, 2*w1, w2)
	assert.Equal(t, 2*h1, h2)

	pw1, ph1 := f.onscreen[0].PresentationSize()
	pw2, ph2 := f.onscreen[1].PresentationSize()
	assert.Equal(t, pw1, pw2)
	assert.Equal(t, ph1, ph2)
	assert.Equal(t, float64(w1), pw1)

	// 字号随缩放放大
	assert.Equal(t, "16px serif", f.onscreen[0].texts[0].Font)
	assert.Equal(t, "normal normal 400 normal 32px serif", f.onscreen[1].texts[0].Font)
	assert.InDelta(t, 2*f.onscreen[0].texts[1].X, f.onscreen[1].texts[1].X, 1e-9)
}

func TestUppercaseUsesOriginalPositions(t *testing.T) {
	engine := newSpyEngine(layout.DocumentOptions{})
	r, f := newTestRenderer(engine)

	_, err := r.RenderHTML(`<span style="text-transform:uppercase">café</span>`, Options{})
	require.NoError(t, err)

	want := []textCall{
		{Text: "C", X: 0, Y: 2},
		{Text: "A", X: 8, Y: 2},
		{Text: "F", X: 16, Y: 2},
		{Text: "É", X: 24, Y: 2},
	}
	got := f.onscreen[0].texts
	diff := cmp.Diff(want, got, cmp.Comparer(func(a, b textCall) bool {
		return a.Text == b.Text && a.X == b.X && a.Y == b.Y
	}))
	assert.Empty(t, diff)
	for _, c := range got {
		assert.Equal(t, renderer.BaselineTop, c.Baseline)
	}
}

func TestExtraTransformedCharactersFollowLastUnit(t *testing.T) {
	engine := newSpyEngine(layout.DocumentOptions{})
	r, f := newTestRenderer(engine)

	_, err := r.RenderHTML(`<span style="text-transform:uppercase">aß</span>`, Options{})
	require.NoError(t, err)
	got := f.onscreen[0].texts
	require.Len(t, got, 3)
	assert.Equal(t, []string{"A", "S", "S"}, f.onscreen[0].textsOnly())
	assert.InDelta(t, 8, got[1].X, 1e-9)
	assert.InDelta(t, got[1].X+8, got[2].X, 1e-9)
	assert.Equal(t, got[1].Y, got[2].Y)
}

func TestBackgroundFilledBeforeText(t *testing.T) {
	engine := newSpyEngine(layout.DocumentOptions{})
	r, f := newTestRenderer(engine)

	_, err := r.RenderHTML(`<span style="background-color:red">Hi</span>`, Options{})
	require.NoError(t, err)
	s := f.onscreen[0]
	assert.Equal(t, []string{"clear", "fill:rgb(255, 0, 0)", "text:H", "text:i"}, s.ops)
	assert.Equal(t, 16, s.w)
	assert.Equal(t, 16, s.h)
}

func TestOffscreenNeverTouchesVisibleDocument(t *testing.T) {
	engine := newSpyEngine(layout.DocumentOptions{})
	r, f := newTestRenderer(engine)

	surface, err := r.RenderHTML(`<span>Hi</span>`, Options{Mode: SurfaceOffscreen})
	require.NoError(t, err)
	assert.Equal(t, []layout.HostKind{layout.HostScratch}, engine.attached)
	assert.Nil(t, engine.Body().FirstChild)
	assert.Empty(t, f.onscreen)
	require.Len(t, f.offscreen, 1)
	_, isPresenter := surface.(renderer.Presenter)
	assert.False(t, isPresenter)
	assert.Len(t, f.offscreen[0].texts, 2)
}

func TestSuppliedSurfaceIsResized(t *testing.T) {
	engine := newSpyEngine(layout.DocumentOptions{})
	r := NewRenderer(engine, nil)
	supplied := &presentingSurface{recordingSurface: &recordingSurface{w: 1, h: 1, ascent: 2, charWidth: 8}}

	out, err := r.Render("<span>abc</span>", Options{Surface: supplied, Scale: 2})
	require.NoError(t, err)
	assert.Same(t, supplied, out)
	assert.Equal(t, 48, supplied.w)
	assert.Equal(t, 32, supplied.h)
	assert.False(t, supplied.presented)
	assert.Equal(t, "resize", supplied.ops[0])
}

func TestInvalidInputLeavesNothingBehind(t *testing.T) {
	engine := newSpyEngine(layout.DocumentOptions{})
	r, f := newTestRenderer(engine)

	for _, in := range []any{42, nil, (*html.Node)(nil), &html.Node{Type: html.TextNode, Data: "x"}} {
		_, err := r.Render(in, Options{})
		assert.ErrorIs(t, err, ErrInvalidInput, "%T", in)
	}
	assert.Empty(t, f.onscreen)
	assert.Empty(t, engine.attached)
}

func TestInvalidOptions(t *testing.T) {
	r, _ := newTestRenderer(newSpyEngine(layout.DocumentOptions{}))
	_, err := r.Render("x", Options{Scale: -1})
	assert.ErrorIs(t, err, ErrInvalidOptions)
	_, err = r.Render("x", Options{Mode: SurfaceSupplied})
	assert.ErrorIs(t, err, ErrMissingSurface)
	_, err = NewRenderer(newSpyEngine(layout.DocumentOptions{}), nil).Render("x", Options{})
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestAscentFailureDegradesToZeroOffset(t *testing.T) {
	engine := newSpyEngine(layout.DocumentOptions{})
	r := NewRenderer(engine, nil)
	supplied := &recordingSurface{measureErr: errBoom, charWidth: 8}

	_, err := r.Render("<span>ok</span>", Options{Surface: supplied})
	require.NoError(t, err)
	require.Len(t, supplied.texts, 2)
	assert.Zero(t, supplied.texts[0].Y)
	assert.Zero(t, supplied.texts[1].Y)
}

// 引擎给出的简写被表面拒绝时，改用分量拼装的描述符，仍然绘制全部字符。
func TestDirectFontFallsBackToComponents(t *testing.T) {
	engine := newSpyEngine(layout.DocumentOptions{})
	r := NewRenderer(engine, nil)
	supplied := &recordingSurface{ascent: 2, charWidth: 8, rejectFont: func(spec string) bool {
		return spec == "700 16px serif"
	}}

	_, err := r.Render("<b>ok</b>", Options{Surface: supplied})
	require.NoError(t, err)
	require.Len(t, supplied.texts, 2)
	assert.Equal(t, "normal normal 700 normal 16px serif", supplied.texts[0].Font)
}

func TestEngineWithoutShorthandUsesComponents(t *testing.T) {
	engine := newSpyEngine(layout.DocumentOptions{OmitFontShorthand: true})
	r, f := newTestRenderer(engine)

	_, err := r.RenderHTML(`<span style="font-stretch:150%; color:#00f">x</span>`, Options{})
	require.NoError(t, err)
	c := f.onscreen[0].texts[0]
	assert.Equal(t, "normal normal 400 extra-expanded 16px serif", c.Font)
	assert.Equal(t, "rgb(0, 0, 255)", c.Color)
}

func TestTraceRecordsCalls(t *testing.T) {
	engine := newSpyEngine(layout.DocumentOptions{})
	r, _ := newTestRenderer(engine)
	var trace Trace

	_, err := r.RenderHTML(`<span style="background:#fff">ab</span>`, Options{Trace: &trace, Scale: 1.5})
	require.NoError(t, err)
	assert.Equal(t, 24, trace.Width)
	assert.Equal(t, 24, trace.Height)
	assert.Equal(t, "rgb(255, 255, 255)", trace.Background)
	require.Len(t, trace.Calls, 2)
	assert.Equal(t, PaintCall{Text: "b", X: 12, Y: 2, Font: "normal normal 400 normal 24px serif", Color: "rgb(0, 0, 0)"}, trace.Calls[1])
}
