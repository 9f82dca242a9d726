// Package layout provides the core geometric primitives shared by every
// layout component: absolute lengths, points, sizes and colors.
package layout

import "math"

// Abs represents an absolute length in typographic points (1/72 inch).
// This is the fundamental unit for all layout calculations.
type Abs float64

// Common length constants.
const (
	// Pt is one typographic point.
	Pt Abs = 1.0
	// Mm is one millimeter.
	Mm Abs = 2.8346456692913
	// Cm is one centimeter.
	Cm Abs = 28.346456692913
	// In is one inch.
	In Abs = 72.0
)

// IsZero returns true if the length is zero.
func (a Abs) IsZero() bool {
	return a == 0
}

// Abs returns the absolute value.
func (a Abs) Abs() Abs {
	if a < 0 {
		return -a
	}
	return a
}

// Min returns the smaller of two lengths.
func (a Abs) Min(b Abs) Abs {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of two lengths.
func (a Abs) Max(b Abs) Abs {
	if a > b {
		return a
	}
	return b
}

// Clamp clamps the length to the given range.
func (a Abs) Clamp(min, max Abs) Abs {
	if a < min {
		return min
	}
	if a > max {
		return max
	}
	return a
}

// Points returns the length in points.
func (a Abs) Points() float64 {
	return float64(a)
}

// Point represents a 2D point in layout coordinates.
type Point struct {
	X Abs
	Y Abs
}

// Add adds two points.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub subtracts two points.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Size represents 2D dimensions (width and height).
type Size struct {
	Width  Abs
	Height Abs
}

// IsZero returns true if both dimensions are zero.
func (s Size) IsZero() bool {
	return s.Width == 0 && s.Height == 0
}

// AspectRatio returns width/height ratio.
func (s Size) AspectRatio() float64 {
	if s.Height == 0 {
		return math.Inf(1)
	}
	return float64(s.Width) / float64(s.Height)
}

// Color represents an RGB color in the 0..1 range used by the renderer
// collaborator's set_fill_rgb operation.
type Color struct {
	R, G, B float64
}

// Alignment represents the horizontal placement of a line within its column.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
	AlignCentred
	AlignJustified
	AlignNone
)

// String returns a human-readable alignment name, used in diagnostics.
func (a Alignment) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignRight:
		return "right"
	case AlignCentred:
		return "centred"
	case AlignJustified:
		return "justified"
	case AlignNone:
		return "none"
	default:
		return "unknown"
	}
}
