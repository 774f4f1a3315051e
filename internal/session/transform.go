package session

import (
	"fmt"

	"github.com/inamate/whiteboard/internal/binding"
	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/geom"
	"github.com/inamate/whiteboard/internal/history"
	"github.com/inamate/whiteboard/internal/input"
	"github.com/inamate/whiteboard/internal/selection"
)

// Edge names the bounds handle a resize drags.
type Edge string

const (
	EdgeTop         Edge = "top"
	EdgeRight       Edge = "right"
	EdgeBottom      Edge = "bottom"
	EdgeLeft        Edge = "left"
	EdgeTopLeft     Edge = "top_left"
	EdgeTopRight    Edge = "top_right"
	EdgeBottomRight Edge = "bottom_right"
	EdgeBottomLeft  Edge = "bottom_left"
)

// MinSize keeps resized bounds from collapsing.
const MinSize = 1.0

// sides reports which sides of the bounds an edge moves.
func (e Edge) sides() (top, right, bottom, left bool, ok bool) {
	switch e {
	case EdgeTop:
		return true, false, false, false, true
	case EdgeRight:
		return false, true, false, false, true
	case EdgeBottom:
		return false, false, true, false, true
	case EdgeLeft:
		return false, false, false, true, true
	case EdgeTopLeft:
		return true, false, false, true, true
	case EdgeTopRight:
		return true, true, false, false, true
	case EdgeBottomRight:
		return false, true, true, false, true
	case EdgeBottomLeft:
		return false, false, true, true, true
	}
	return false, false, false, false, false
}

// Transform resizes the selection's common bounds by one edge or corner,
// scaling every shape inside proportionally.
type Transform struct {
	origin  geom.Vec
	edge    Edge
	bounds  geom.Rect
	initial map[string]*document.Shape
	ids     []string
	// last is the bounds produced by the last update.
	last geom.Rect
}

func NewTransform(page *document.Page, ids []string, edge Edge, origin geom.Vec) (*Transform, error) {
	if _, _, _, _, ok := edge.sides(); !ok {
		return nil, fmt.Errorf("transform edge %q: %w", edge, ErrInvalidSessionState)
	}
	roots := selection.Roots(page, ids)
	if len(roots) == 0 {
		return nil, fmt.Errorf("transform: nothing selected: %w", ErrInvalidSessionState)
	}
	moving := selection.WithDescendants(page, roots)
	initial := snapshot(page, moving)
	bounds := document.CommonBounds(selection.Shapes(page, roots))
	return &Transform{
		origin:  origin,
		edge:    edge,
		bounds:  bounds,
		initial: initial,
		ids:     sortedKeys(initial),
		last:    bounds,
	}, nil
}

func (s *Transform) Kind() Kind       { return KindTransform }
func (s *Transform) Origin() geom.Vec { return s.origin }
func (s *Transform) Shapes() []string { return s.ids }

// Resize returns the bounds after dragging the edge by delta.
func (s *Transform) Resize(delta geom.Vec, keepAspect bool) geom.Rect {
	top, right, bottom, left, _ := s.edge.sides()
	minX, minY := s.bounds.X, s.bounds.Y
	maxX, maxY := s.bounds.X+s.bounds.Width, s.bounds.Y+s.bounds.Height

	if left {
		minX = min(minX+delta.X, maxX-MinSize)
	}
	if right {
		maxX = max(maxX+delta.X, minX+MinSize)
	}
	if top {
		minY = min(minY+delta.Y, maxY-MinSize)
	}
	if bottom {
		maxY = max(maxY+delta.Y, minY+MinSize)
	}

	r := geom.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
	if !keepAspect || s.bounds.IsEmpty() {
		return r
	}

	aspect := s.bounds.Width / s.bounds.Height
	horizontal := left || right
	vertical := top || bottom
	switch {
	case horizontal && !vertical:
		r.Height = r.Width / aspect
	case vertical && !horizontal:
		r.Width = r.Height * aspect
	case r.Width/s.bounds.Width > r.Height/s.bounds.Height:
		r.Height = r.Width / aspect
	default:
		r.Width = r.Height * aspect
	}
	if left {
		r.X = maxX - r.Width
	}
	if top {
		r.Y = maxY - r.Height
	}
	return r
}

func (s *Transform) Update(tx *history.Tx, point geom.Vec, mods input.Modifiers) error {
	next := s.Resize(point.Sub(s.origin), mods.Shift)
	s.last = next
	if sameBounds(next, s.bounds) {
		return s.restore(tx)
	}

	scale := next.Size().Div(s.bounds.Size())
	if s.bounds.Width == 0 {
		scale.X = 1
	}
	if s.bounds.Height == 0 {
		scale.Y = 1
	}

	for _, id := range s.ids {
		init := s.initial[id]
		patch := document.ShapePatch{}
		p := init.Point.Sub(s.bounds.Min()).MulV(scale).Add(next.Min())
		patch.Point = &p
		if len(init.Handles) > 0 {
			handles := make(map[string]document.Handle, len(init.Handles))
			for name, h := range init.Handles {
				h.Point = h.Point.MulV(scale)
				handles[name] = h
			}
			patch.Handles = handles
		}
		size := init.Size.MulV(scale)
		patch.Size = &size
		if err := tx.UpdateShape(id, patch); err != nil {
			return err
		}
	}
	return settle(tx, s.ids)
}

// restore puts every shape back exactly as it was when the session started.
func (s *Transform) restore(tx *history.Tx) error {
	for _, id := range s.ids {
		init := s.initial[id]
		p, size := init.Point, init.Size
		patch := document.ShapePatch{Point: &p, Size: &size}
		if len(init.Handles) > 0 {
			handles := make(map[string]document.Handle, len(init.Handles))
			for name, h := range init.Handles {
				handles[name] = h
			}
			patch.Handles = handles
		}
		if err := tx.UpdateShape(id, patch); err != nil {
			return err
		}
	}
	return settle(tx, s.ids)
}

func sameBounds(a, b geom.Rect) bool {
	const eps = 1e-9
	return a.Min().Nearly(b.Min(), eps) && a.Max().Nearly(b.Max(), eps)
}

// Complete lets go of bindings whose arrow was resized without its target,
// unless the bounds ended where they started.
func (s *Transform) Complete(tx *history.Tx) error {
	if sameBounds(s.last, s.bounds) {
		return nil
	}
	return binding.Detach(tx, s.ids)
}
