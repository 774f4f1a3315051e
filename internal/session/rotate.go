package session

import (
	"math"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/geom"
	"github.com/inamate/whiteboard/internal/history"
	"github.com/inamate/whiteboard/internal/input"
	"github.com/inamate/whiteboard/internal/selection"
)

// RotateSnap is the angle step used while shift is held.
const RotateSnap = math.Pi / 12

// Rotate turns the selection around the center of its common bounds.
type Rotate struct {
	origin  geom.Vec
	center  geom.Vec
	initial map[string]*document.Shape
	ids     []string
}

func NewRotate(page *document.Page, ids []string, origin geom.Vec) *Rotate {
	roots := selection.Roots(page, ids)
	initial := snapshot(page, selection.WithDescendants(page, roots))
	return &Rotate{
		origin:  origin,
		center:  document.CommonBounds(selection.Shapes(page, roots)).Center(),
		initial: initial,
		ids:     sortedKeys(initial),
	}
}

func (s *Rotate) Kind() Kind       { return KindRotate }
func (s *Rotate) Origin() geom.Vec { return s.origin }
func (s *Rotate) Shapes() []string { return s.ids }

func (s *Rotate) Update(tx *history.Tx, point geom.Vec, mods input.Modifiers) error {
	angle := geom.Angle(s.center, point) - geom.Angle(s.center, s.origin)
	if mods.Shift {
		angle = math.Round(angle/RotateSnap) * RotateSnap
	}

	for _, id := range s.ids {
		init := s.initial[id]
		if init.IsGroup() {
			continue
		}
		patch := document.ShapePatch{}
		if len(init.Handles) > 0 {
			// Handle shapes keep their point and turn their handles instead.
			handles := make(map[string]document.Handle, len(init.Handles))
			for name, h := range init.Handles {
				abs := init.Point.Add(h.Point).RotateAround(s.center, angle)
				h.Point = abs.Sub(init.Point)
				handles[name] = h
			}
			patch.Handles = handles
		} else {
			half := init.Size.Mul(0.5)
			c := init.Point.Add(half).RotateAround(s.center, angle)
			p := c.Sub(half)
			r := math.Mod(init.Rotation+angle+2*math.Pi, 2*math.Pi)
			patch.Point = &p
			patch.Rotation = &r
		}
		if err := tx.UpdateShape(id, patch); err != nil {
			return err
		}
	}
	return settle(tx, s.ids)
}

func (s *Rotate) Complete(tx *history.Tx) error {
	return nil
}
