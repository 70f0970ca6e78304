package rasterize

import (
	"bytes"
	"errors"
	"image"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/ByLCY/textcanvas/fontspec"
	"github.com/ByLCY/textcanvas/layout"
	"github.com/ByLCY/textcanvas/renderer"
)

var errBoom = errors.New("boom")

// stubMeasurer：每个字符宽 size/2，ascent/descent 为 0.8/0.2 size。
type stubMeasurer struct{}

func (stubMeasurer) Metrics(font fontspec.Font) (layout.FontMetrics, error) {
	px := font.Pixels()
	return layout.FontMetrics{Ascent: px * 0.8, Descent: px * 0.2}, nil
}

func (stubMeasurer) TextWidth(font fontspec.Font, s string) (float64, error) {
	return float64(utf8.RuneCountInString(s)) * font.Pixels() / 2, nil
}

// spyEngine 包装 Document，记录挂载并可注入盒子查询失败。
type spyEngine struct {
	*layout.Document
	attached     []layout.HostKind
	failBoxAfter int
	boxCalls     int
}

func newSpyEngine(opts layout.DocumentOptions) *spyEngine {
	return &spyEngine{Document: layout.NewDocument(stubMeasurer{}, opts)}
}

func (e *spyEngine) Attach(n *html.Node, kind layout.HostKind) (layout.Host, error) {
	e.attached = append(e.attached, kind)
	return e.Document.Attach(n, kind)
}

func (e *spyEngine) BoundingBox(n *html.Node) (layout.Rect, error) {
	e.boxCalls++
	if e.failBoxAfter > 0 && e.boxCalls > e.failBoxAfter {
		return layout.Rect{}, errBoom
	}
	return e.Document.BoundingBox(n)
}

type textCall struct {
	Text     string
	X, Y     float64
	Font     string
	Color    string
	Baseline renderer.TextBaseline
}

// recordingSurface 记录所有调用，MeasureText 返回固定的 ascent 与每字符宽度。
type recordingSurface struct {
	w, h       int
	font       string
	color      string
	baseline   renderer.TextBaseline
	ops        []string
	texts      []textCall
	ascent     float64
	charWidth  float64
	measureErr error
	rejectFont func(spec string) bool
}

func (s *recordingSurface) Size() (int, int) { return s.w, s.h }
func (s *recordingSurface) Resize(w, h int) {
	s.w, s.h = w, h
	s.ops = append(s.ops, "resize")
}
func (s *recordingSurface) ClearRect(x, y, w, h float64) { s.ops = append(s.ops, "clear") }
func (s *recordingSurface) FillRect(x, y, w, h float64) {
	s.ops = append(s.ops, "fill:"+s.color)
}
func (s *recordingSurface) SetFont(spec string) error {
	if s.rejectFont != nil && s.rejectFont(spec) {
		return fontspec.ErrInvalidFont
	}
	s.font = spec
	return nil
}
func (s *recordingSurface) Font() string { return s.font }
func (s *recordingSurface) SetFillColor(css string) error {
	if _, err := layout.ParseColor(css); err != nil {
		return err
	}
	s.color = css
	return nil
}
func (s *recordingSurface) SetTextBaseline(b renderer.TextBaseline) { s.baseline = b }
func (s *recordingSurface) MeasureText(text string) (renderer.TextMetrics, error) {
	if s.measureErr != nil {
		return renderer.TextMetrics{}, s.measureErr
	}
	return renderer.TextMetrics{
		Width:                 float64(utf8.RuneCountInString(text)) * s.charWidth,
		FontBoundingBoxAscent: s.ascent,
	}, nil
}
func (s *recordingSurface) FillText(text string, x, y float64) error {
	s.ops = append(s.ops, "text:"+text)
	s.texts = append(s.texts, textCall{Text: text, X: x, Y: y, Font: s.font, Color: s.color, Baseline: s.baseline})
	return nil
}
func (s *recordingSurface) Image() image.Image { return image.NewRGBA(image.Rect(0, 0, s.w, s.h)) }

func (s *recordingSurface) textsOnly() []string {
	out := make([]string, 0, len(s.texts))
	for _, c := range s.texts {
		out = append(out, c.Text)
	}
	return out
}

type presentingSurface struct {
	*recordingSurface
	presentW, presentH float64
	presented          bool
}

func (s *presentingSurface) SetPresentationSize(w, h float64) {
	s.presentW, s.presentH, s.presented = w, h, true
}
func (s *presentingSurface) PresentationSize() (float64, float64) { return s.presentW, s.presentH }

type recordingFactory struct {
	ascent    float64
	charWidth float64
	onscreen  []*presentingSurface
	offscreen []*recordingSurface
}

func (f *recordingFactory) newRecording(w, h int) *recordingSurface {
	return &recordingSurface{w: w, h: h, ascent: f.ascent, charWidth: f.charWidth}
}

func (f *recordingFactory) NewSurface(w, h int) (renderer.Surface, error) {
	s := &presentingSurface{recordingSurface: f.newRecording(w, h)}
	f.onscreen = append(f.onscreen, s)
	return s, nil
}

func (f *recordingFactory) NewOffscreenSurface(w, h int) (renderer.Surface, error) {
	s := f.newRecording(w, h)
	f.offscreen = append(f.offscreen, s)
	return s, nil
}

func serialize(t *testing.T, n *html.Node) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, html.Render(&buf, n))
	return buf.String()
}

func unwrap(s renderer.Surface) *recordingSurface {
	switch v := s.(type) {
	case *presentingSurface:
		return v.recordingSurface
	case *recordingSurface:
		return v
	}
	return nil
}
