package geom

import (
	"encoding/json"
	"fmt"
	"math"
)

// Vec is a point or a displacement in page space.
// It serialises as a [x, y] pair.
type Vec struct {
	X float64
	Y float64
}

// V is shorthand for Vec{x, y}.
func V(x, y float64) Vec {
	return Vec{X: x, Y: y}
}

func (v Vec) Add(o Vec) Vec        { return Vec{v.X + o.X, v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec        { return Vec{v.X - o.X, v.Y - o.Y} }
func (v Vec) Mul(s float64) Vec    { return Vec{v.X * s, v.Y * s} }
func (v Vec) MulV(o Vec) Vec       { return Vec{v.X * o.X, v.Y * o.Y} }
func (v Vec) Neg() Vec             { return Vec{-v.X, -v.Y} }
func (v Vec) Len() float64         { return math.Hypot(v.X, v.Y) }
func (v Vec) Dist(o Vec) float64   { return v.Sub(o).Len() }
func (v Vec) IsZero() bool         { return v.X == 0 && v.Y == 0 }
func (v Vec) Min(o Vec) Vec        { return Vec{min(v.X, o.X), min(v.Y, o.Y)} }
func (v Vec) Max(o Vec) Vec        { return Vec{max(v.X, o.X), max(v.Y, o.Y)} }
func (v Vec) Lerp(o Vec, t float64) Vec {
	return Vec{v.X + (o.X-v.X)*t, v.Y + (o.Y-v.Y)*t}
}

// Div divides component-wise. A zero divisor component yields zero.
func (v Vec) Div(o Vec) Vec {
	var r Vec
	if o.X != 0 {
		r.X = v.X / o.X
	}
	if o.Y != 0 {
		r.Y = v.Y / o.Y
	}
	return r
}

// RotateAround rotates v by angle radians around center.
func (v Vec) RotateAround(center Vec, angle float64) Vec {
	if angle == 0 {
		return v
	}
	return RotateAt(center, angle).Apply(v)
}

// Angle returns the angle of the vector from a to b, in radians.
func Angle(a, b Vec) float64 {
	return math.Atan2(b.Y-a.Y, b.X-a.X)
}

// Round rounds both components to two decimals, which keeps snapshots stable
// across repeated float arithmetic.
func (v Vec) Round() Vec {
	return Vec{math.Round(v.X*100) / 100, math.Round(v.Y*100) / 100}
}

// Nearly reports whether v and o are within eps on both axes.
func (v Vec) Nearly(o Vec, eps float64) bool {
	return math.Abs(v.X-o.X) <= eps && math.Abs(v.Y-o.Y) <= eps
}

func (v Vec) String() string {
	return fmt.Sprintf("[%g, %g]", v.X, v.Y)
}

func (v Vec) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{v.X, v.Y})
}

func (v *Vec) UnmarshalJSON(data []byte) error {
	var arr []float64
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("vec: %w", err)
	}
	if len(arr) < 2 {
		return fmt.Errorf("vec: expected [x, y], got %d values", len(arr))
	}
	v.X, v.Y = arr[0], arr[1]
	return nil
}
