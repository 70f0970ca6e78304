package layout

import (
	"errors"

	"golang.org/x/net/html"

	"github.com/ByLCY/textcanvas/fontspec"
)

var (
	// ErrDetached 表示节点未挂到任何可布局的文档。
	ErrDetached = errors.New("节点未挂载到文档")
	// ErrNotElement 表示需要元素节点的地方传入了其他节点。
	ErrNotElement = errors.New("节点不是元素")
	// ErrNoBox 表示节点在最近一次布局中没有盒子。
	ErrNoBox = errors.New("节点没有布局盒子")
)

// HostKind 选择临时宿主挂在哪棵树上。
type HostKind int

const (
	// HostDocument 挂到可见文档 body 下的绝对定位宿主。
	HostDocument HostKind = iota
	// HostScratch 挂到引擎私有的离屏文档，仅用于测量。
	HostScratch
)

// Host 是一次临时挂载，Detach 把节点放回原处。
type Host interface {
	Detach()
}

// Engine 是结构化排版引擎：级联样式、几何查询与挂载。
type Engine interface {
	IsConnected(n *html.Node) bool
	Attach(n *html.Node, kind HostKind) (Host, error)
	// Layout 重新布局 n 所在的整棵树，之后的几何查询以此为准。
	Layout(n *html.Node) error
	ComputedStyle(n *html.Node) (ResolvedStyle, error)
	BoundingBox(n *html.Node) (Rect, error)
}

// Measurer 负责字体度量，由渲染后端实现（例如 canvas 渲染器）。
type Measurer interface {
	Metrics(font fontspec.Font) (FontMetrics, error)
	TextWidth(font fontspec.Font, s string) (float64, error)
}

// DocumentOptions 配置内置 Document 引擎。
type DocumentOptions struct {
	// OmitFontShorthand 模拟不报告组合 font 简写的引擎。
	OmitFontShorthand bool
	// DefaultFamilies 是根节点字体家族，默认 serif。
	DefaultFamilies []string
	// DefaultSize 是根节点字号（px），默认 16。
	DefaultSize float64
}
