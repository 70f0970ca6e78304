package rasterize

import "github.com/ByLCY/textcanvas/layout"

// Point 是光栅坐标（px）。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MapPosition 把字符盒子换算到以容器左上角为原点的光栅坐标。
func MapPosition(unit, container layout.Rect, scale, baselineOffset float64) Point {
	return Point{
		X: (unit.X - container.X) * scale,
		Y: (unit.Y-container.Y)*scale + baselineOffset,
	}
}
