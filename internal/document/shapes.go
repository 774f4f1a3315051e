package document

import (
	"math"

	"github.com/inamate/whiteboard/internal/geom"
)

// ShapeUtil holds the behaviour of one shape kind. Every function is pure.
type ShapeUtil struct {
	// Defaults fills in the fields a caller left empty when creating a shape.
	Defaults func(s *Shape)
	// Bounds is the axis-aligned page-space bounding box.
	Bounds func(s *Shape) geom.Rect
	// Contains reports whether a page point is within the shape's region
	// grown by margin.
	Contains func(s *Shape, p geom.Vec, margin float64) bool
	// CanBind reports whether arrows may bind to the kind.
	CanBind bool
}

var shapeUtils = map[ShapeType]ShapeUtil{
	ShapeRectangle: {
		Defaults: boxDefaults,
		Bounds:   boxBounds,
		Contains: boxContains,
		CanBind:  true,
	},
	ShapeEllipse: {
		Defaults: boxDefaults,
		Bounds:   boxBounds,
		Contains: ellipseContains,
		CanBind:  true,
	},
	ShapeArrow: {
		Defaults: arrowDefaults,
		Bounds:   arrowBounds,
		Contains: func(s *Shape, p geom.Vec, margin float64) bool {
			return arrowBounds(s).Expand(margin).Contains(p)
		},
	},
	ShapeGroup: {
		Defaults: func(s *Shape) {
			if s.Children == nil {
				s.Children = []string{}
			}
		},
		Bounds:   boxBounds,
		Contains: boxContains,
	},
}

// Util returns the behaviour table entry for a shape kind.
func Util(t ShapeType) (ShapeUtil, bool) {
	u, ok := shapeUtils[t]
	return u, ok
}

// Known reports whether t is a supported shape kind.
func Known(t ShapeType) bool {
	_, ok := shapeUtils[t]
	return ok
}

// ApplyDefaults fills unset fields of a new shape for its kind.
func ApplyDefaults(s *Shape) {
	if u, ok := shapeUtils[s.Type]; ok && u.Defaults != nil {
		u.Defaults(s)
	}
}

// Bounds returns the page-space bounding box of s.
func Bounds(s *Shape) geom.Rect {
	if u, ok := shapeUtils[s.Type]; ok {
		return u.Bounds(s)
	}
	return boxBounds(s)
}

// CanBind reports whether arrows may bind to s.
func CanBind(s *Shape) bool {
	u, ok := shapeUtils[s.Type]
	return ok && u.CanBind
}

// Contains reports whether p lies inside s grown by margin.
func Contains(s *Shape, p geom.Vec, margin float64) bool {
	if u, ok := shapeUtils[s.Type]; ok {
		return u.Contains(s, p, margin)
	}
	return boxContains(s, p, margin)
}

// CommonBounds returns the union of the bounds of the given shapes.
func CommonBounds(shapes []*Shape) geom.Rect {
	var r geom.Rect
	for i, s := range shapes {
		if i == 0 {
			r = Bounds(s)
			continue
		}
		b := Bounds(s)
		r = geom.RectFromPoints(r.Min(), r.Max(), b.Min(), b.Max())
	}
	return r
}

// HandlePoint returns the page-space position of a handle.
func (s *Shape) HandlePoint(name string) (geom.Vec, bool) {
	h, ok := s.Handles[name]
	if !ok {
		return geom.Vec{}, false
	}
	return s.Point.Add(h.Point), true
}

// IsGroup reports whether the shape owns children.
func (s *Shape) IsGroup() bool {
	return s.Type == ShapeGroup
}

func boxDefaults(s *Shape) {
	if s.Size.IsZero() {
		s.Size = geom.V(100, 100)
	}
}

func boxBounds(s *Shape) geom.Rect {
	local := geom.Rect{Width: s.Size.X, Height: s.Size.Y}
	return geom.ShapeTransform(s.Point, s.Size, s.Rotation).ApplyRect(local)
}

// toLocal maps a page point into the shape's unrotated local space.
func toLocal(s *Shape, p geom.Vec) geom.Vec {
	return geom.ShapeTransform(s.Point, s.Size, s.Rotation).Invert().Apply(p)
}

func boxContains(s *Shape, p geom.Vec, margin float64) bool {
	local := geom.Rect{Width: s.Size.X, Height: s.Size.Y}.Expand(margin)
	return local.Contains(toLocal(s, p))
}

func ellipseContains(s *Shape, p geom.Vec, margin float64) bool {
	rx, ry := s.Size.X/2+margin, s.Size.Y/2+margin
	if rx <= 0 || ry <= 0 {
		return false
	}
	d := toLocal(s, p).Sub(s.Size.Mul(0.5))
	return math.Pow(d.X/rx, 2)+math.Pow(d.Y/ry, 2) <= 1
}

func arrowDefaults(s *Shape) {
	if s.Handles == nil {
		s.Handles = map[string]Handle{
			"start": {ID: "start", Index: 0, Point: geom.V(0, 0)},
			"end":   {ID: "end", Index: 1, Point: geom.V(1, 1)},
		}
	}
	s.Size = arrowLocalBounds(s).Max()
}

func arrowLocalBounds(s *Shape) geom.Rect {
	pts := make([]geom.Vec, 0, len(s.Handles))
	for _, h := range s.Handles {
		pts = append(pts, h.Point)
	}
	return geom.RectFromPoints(pts...)
}

func arrowBounds(s *Shape) geom.Rect {
	r := arrowLocalBounds(s)
	r.X += s.Point.X
	r.Y += s.Point.Y
	return r
}
