// Package geometry provides the pixel rectangle and coordinate primitives
// shared by the compositing engine and the screen driver.
package geometry

import "fmt"

// Rect is an axis-aligned pixel rectangle with its origin at the top-left.
type Rect struct {
	X, Y int
	W, H int
}

// NewRect returns the rectangle at (x, y) with size w x h.
func NewRect(x, y, w, h int) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// Clip returns r truncated so that it does not extend past width x height.
// The origin is kept. An origin outside the bounds yields a zero-area
// rectangle at the same origin.
func (r Rect) Clip(width, height int) Rect {
	if r.X < 0 || r.Y < 0 || r.X >= width || r.Y >= height {
		return Rect{X: r.X, Y: r.Y}
	}
	return Rect{
		X: r.X,
		Y: r.Y,
		W: clamp(r.W, 0, width-r.X),
		H: clamp(r.H, 0, height-r.Y),
	}
}

// Empty reports whether r covers no pixels.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Origin returns the top-left corner of r.
func (r Rect) Origin() Coord {
	return Coord{X: r.X, Y: r.Y}
}

// Union returns the smallest rectangle covering both r and o. Empty
// rectangles do not contribute.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x0, y0 := min(r.X, o.X), min(r.Y, o.Y)
	x1, y1 := max(r.X+r.W, o.X+o.W), max(r.Y+r.H, o.Y+o.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// String formats r as "@x,y+wxh".
func (r Rect) String() string {
	return fmt.Sprintf("@%d,%d+%dx%d", r.X, r.Y, r.W, r.H)
}

// Coord is a destination offset in pixels.
type Coord struct {
	X, Y int
}

// NewCoord returns the coordinate (x, y).
func NewCoord(x, y int) Coord {
	return Coord{X: x, Y: y}
}

// String formats c as "@x,y".
func (c Coord) String() string {
	return fmt.Sprintf("@%d,%d", c.X, c.Y)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
