package ocsort

import "math"

// BoundingBox is an axis-aligned rectangle given by its top-left
// (X1,Y1) and bottom-right (X2,Y2) corners. An invalid box (X1>X2 or
// Y1>Y2) always collapses to the zero-box rather than carrying
// negative width/height around.
type BoundingBox struct {
	X1, Y1, X2, Y2 float64
}

// NewBoundingBox constructs a box from its corners. Inverted corners
// collapse to the zero-box.
func NewBoundingBox(x1, y1, x2, y2 float64) BoundingBox {
	if x1 > x2 || y1 > y2 {
		return BoundingBox{}
	}
	return BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Width returns max(x2-x1, 0).
func (b BoundingBox) Width() float64 {
	return maxFloat64(b.X2-b.X1, 0)
}

// Height returns max(y2-y1, 0).
func (b BoundingBox) Height() float64 {
	return maxFloat64(b.Y2-b.Y1, 0)
}

// Area returns width*height.
func (b BoundingBox) Area() float64 {
	return b.Width() * b.Height()
}

// Center returns the box's center point.
func (b BoundingBox) Center() (cx, cy float64) {
	return (b.X1 + b.X2) / 2.0, (b.Y1 + b.Y2) / 2.0
}

// AspectRatio returns width/(height+eps).
func (b BoundingBox) AspectRatio() float64 {
	return b.Width() / (b.Height() + epsFloat64)
}

// epsFloat64 is the machine epsilon for float64, matching Rust's
// std::f64::EPSILON used by the reference implementation.
const epsFloat64 = 2.220446049250313e-16

// FromState reconstructs a box from a 7-dim (or any >=4-dim) Kalman
// state vector [cx, cy, s, r, ...], where s is area and r is aspect
// ratio. Negative size components or a degenerate width collapse to
// the zero-box (no division by zero).
func FromState(state []float64) BoundingBox {
	cx, cy, s, r := state[0], state[1], state[2], state[3]
	if s < 0 || r < 0 {
		return BoundingBox{}
	}
	w := math.Sqrt(s * r)
	if w == 0 {
		return BoundingBox{}
	}
	h := s / w
	return NewBoundingBox(cx-w/2.0, cy-h/2.0, cx+w/2.0, cy+h/2.0)
}

// ToObservation returns the 4-dim observation vector [cx, cy, area, aspect].
func (b BoundingBox) ToObservation() [4]float64 {
	cx, cy := b.Center()
	return [4]float64{cx, cy, b.Area(), b.AspectRatio()}
}

// IoU returns the intersection-over-union with other, in [0,1]. A
// zero union maps to 0.
func (b BoundingBox) IoU(other BoundingBox) float64 {
	xA := maxFloat64(b.X1, other.X1)
	yA := maxFloat64(b.Y1, other.Y1)
	xB := minFloat64(b.X2, other.X2)
	yB := minFloat64(b.Y2, other.Y2)

	interArea := maxFloat64(0, xB-xA) * maxFloat64(0, yB-yA)
	union := b.Area() + other.Area() - interArea
	if union == 0 {
		return 0
	}
	return interArea / union
}

// SpeedDirection returns the unit vector pointing from other's center
// to b's center, or the zero vector if the two centers coincide.
func (b BoundingBox) SpeedDirection(other BoundingBox) (dx, dy float64) {
	bo := b.ToObservation()
	oo := other.ToObservation()
	diffX := bo[0] - oo[0]
	diffY := bo[1] - oo[1]
	norm := math.Hypot(diffX, diffY)
	if norm == 0 {
		return 0, 0
	}
	return diffX / norm, diffY / norm
}

func maxFloat64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
