package layout

import (
	"math"
	"strconv"
	"strings"
)

// This file defines unit-safe types and helpers for CSS lengths and line-height.

// Unit represents the original unit of a CSS length value.
type Unit int

const (
	UnitNone    Unit = iota // unit-less numbers like factors
	UnitPX                  // CSS pixels
	UnitPT                  // points
	UnitPC                  // picas
	UnitMM                  // millimeters
	UnitCM                  // centimeters
	UnitIN                  // inches
	UnitEM                  // relative to the element font size
	UnitREM                 // relative to the root font size
	UnitPercent             // relative to a property-specific base
)

// Conversion constants between pt and mm. The canvas backend treats one canvas
// millimeter as one CSS pixel, so face sizes go through MmToPt.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitPX:
		return "px"
	case UnitPT:
		return "pt"
	case UnitPC:
		return "pc"
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitEM:
		return "em"
	case UnitREM:
		return "rem"
	case UnitPercent:
		return "%"
	default:
		return ""
	}
}

var unitSuffixes = []struct {
	s string
	u Unit
}{
	{"rem", UnitREM}, {"px", UnitPX}, {"pt", UnitPT}, {"pc", UnitPC}, {"mm", UnitMM},
	{"cm", UnitCM}, {"in", UnitIN}, {"em", UnitEM}, {"%", UnitPercent},
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// ToPx converts the length to CSS pixels. em and % resolve against base, rem against root.
func (l Length) ToPx(base, root float64) float64 {
	switch l.Unit {
	case UnitPX, UnitNone:
		return l.Value
	case UnitPT:
		return l.Value * 96 / 72
	case UnitPC:
		return l.Value * 16
	case UnitMM:
		return l.Value * 96 / 25.4
	case UnitCM:
		return l.Value * 96 / 2.54
	case UnitIN:
		return l.Value * 96
	case UnitEM:
		return l.Value * base
	case UnitREM:
		return l.Value * root
	case UnitPercent:
		return l.Value * base / 100
	}
	return l.Value
}

// ParseLength parses a CSS length string preserving its unit.
func ParseLength(value string) (Length, bool) {
	lower := strings.ToLower(strings.TrimSpace(value))
	if lower == "" {
		return Length{}, false
	}
	unit := UnitNone
	num := lower
	for _, suf := range unitSuffixes {
		if strings.HasSuffix(lower, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(lower, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Length{}, false
	}
	return Length{Value: f, Unit: unit}, true
}

// LineHeightKind distinguishes normal, factor-based and absolute line-height.
type LineHeightKind int

const (
	LineHeightNormal LineHeightKind = iota
	LineHeightFactor
	LineHeightAbsolute
)

// LineHeightSpec preserves the inheritable form of line-height: numbers inherit as
// factors, lengths and percentages are already absolute (px) once computed.
type LineHeightSpec struct {
	Kind   LineHeightKind `json:"kind"`
	Factor float64        `json:"factor,omitempty"`
	Px     float64        `json:"px,omitempty"`
}

// ParseLineHeight parses a line-height declaration against the element font size.
func ParseLineHeight(value string, fontSize, root float64) (LineHeightSpec, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "normal" {
		return LineHeightSpec{Kind: LineHeightNormal}, true
	}
	l, ok := ParseLength(v)
	if !ok || l.Value < 0 {
		return LineHeightSpec{}, false
	}
	if l.Unit == UnitNone {
		return LineHeightSpec{Kind: LineHeightFactor, Factor: l.Value}, true
	}
	return LineHeightSpec{Kind: LineHeightAbsolute, Px: l.ToPx(fontSize, root)}, true
}

// Resolve computes the used line height in px; normal falls back to the font's own metrics.
func (s LineHeightSpec) Resolve(fontSize float64, m FontMetrics) float64 {
	switch s.Kind {
	case LineHeightFactor:
		return fontSize * s.Factor
	case LineHeightAbsolute:
		return s.Px
	default:
		return m.Ascent + m.Descent + m.LineGap
	}
}

// String returns the computed value as reported by ComputedStyle.
func (s LineHeightSpec) String(fontSize float64) string {
	switch s.Kind {
	case LineHeightFactor:
		return formatPx(fontSize * s.Factor)
	case LineHeightAbsolute:
		return formatPx(s.Px)
	default:
		return "normal"
	}
}

func formatPx(v float64) string {
	return formatNumber(v) + "px"
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', -1, 64)
}
