package rasterize

import "errors"

var (
	// ErrInvalidInput 表示输入既不是 HTML 文本也不是元素节点，此时不会修改任何树。
	ErrInvalidInput = errors.New("无效的输入：需要 HTML 文本或元素节点")
	// ErrInvalidOptions 表示渲染选项非法（例如负的缩放系数）。
	ErrInvalidOptions = errors.New("无效的渲染选项")
	// ErrMissingSurface 表示选择了调用方提供的表面却没有传入。
	ErrMissingSurface = errors.New("未提供绘制表面")
)
