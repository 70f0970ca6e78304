package rasterize

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/ByLCY/textcanvas/renderer"
)

// SurfaceMode 选择输出表面的来源。
type SurfaceMode int

const (
	// SurfaceOnscreen 新建可上屏表面，并把展示尺寸设为未缩放的盒子尺寸。
	SurfaceOnscreen SurfaceMode = iota
	// SurfaceOffscreen 新建离屏表面；未挂载的节点只会挂到引擎的离屏宿主上。
	SurfaceOffscreen
	// SurfaceSupplied 使用 Options.Surface，并把它调整到输出尺寸。
	SurfaceSupplied
)

func (m SurfaceMode) String() string {
	switch m {
	case SurfaceOnscreen:
		return "onscreen"
	case SurfaceOffscreen:
		return "offscreen"
	case SurfaceSupplied:
		return "supplied"
	default:
		return fmt.Sprintf("SurfaceMode(%d)", int(m))
	}
}

// Segmentation 决定文本如何拆成字符单元。
type Segmentation int

const (
	// SegmentCodepoints 按 Unicode 码点拆分。
	SegmentCodepoints Segmentation = iota
	// SegmentGraphemes 按扩展字素簇拆分，组合字符与 emoji 序列保持完整。
	SegmentGraphemes
)

// Options 是单次渲染的参数。
type Options struct {
	// Scale 同时放大像素尺寸与字号；0 视为 1。
	Scale float64
	Mode  SurfaceMode
	// Surface 非空时总是使用它，Mode 视为 SurfaceSupplied。
	Surface      renderer.Surface
	Segmentation Segmentation
	// Trace 非空时记录每次绘制，便于调试。
	Trace *Trace
}

// normalize 校验选项并补齐默认值。
func (o Options) normalize() (Options, error) {
	switch {
	case o.Scale == 0:
		o.Scale = 1
	case math.IsNaN(o.Scale) || math.IsInf(o.Scale, 0) || o.Scale < 0:
		return o, fmt.Errorf("%w: 缩放系数 %g", ErrInvalidOptions, o.Scale)
	}
	if o.Surface != nil {
		o.Mode = SurfaceSupplied
	}
	switch o.Mode {
	case SurfaceOnscreen, SurfaceOffscreen:
	case SurfaceSupplied:
		if o.Surface == nil {
			return o, ErrMissingSurface
		}
	default:
		return o, fmt.Errorf("%w: 未知的表面模式 %s", ErrInvalidOptions, o.Mode)
	}
	switch o.Segmentation {
	case SegmentCodepoints, SegmentGraphemes:
	default:
		return o, fmt.Errorf("%w: 未知的拆分方式 %d", ErrInvalidOptions, o.Segmentation)
	}
	return o, nil
}

// Option 配置 Renderer。
type Option func(*Renderer)

// WithLogger 设置降级路径使用的日志；默认 slog.Default()。
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// Trace 记录一次渲染的输出尺寸、背景与全部绘制调用。
type Trace struct {
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Scale      float64     `json:"scale"`
	Background string      `json:"background"`
	Calls      []PaintCall `json:"calls"`
}

// PaintCall 是一次 FillText。
type PaintCall struct {
	Text  string  `json:"text"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Font  string  `json:"font"`
	Color string  `json:"color"`
}
