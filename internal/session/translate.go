package session

import (
	"github.com/inamate/whiteboard/internal/binding"
	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/geom"
	"github.com/inamate/whiteboard/internal/history"
	"github.com/inamate/whiteboard/internal/input"
	"github.com/inamate/whiteboard/internal/selection"
)

// Translate drags the selected shapes. Groups carry their descendants.
type Translate struct {
	origin  geom.Vec
	initial map[string]*document.Shape
	ids     []string
	// delta is the offset applied by the last update.
	delta geom.Vec
}

func NewTranslate(page *document.Page, ids []string, origin geom.Vec) *Translate {
	moving := selection.WithDescendants(page, selection.Roots(page, ids))
	initial := snapshot(page, moving)
	return &Translate{origin: origin, initial: initial, ids: sortedKeys(initial)}
}

func (s *Translate) Kind() Kind       { return KindTranslate }
func (s *Translate) Origin() geom.Vec { return s.origin }
func (s *Translate) Shapes() []string { return s.ids }

func (s *Translate) Update(tx *history.Tx, point geom.Vec, mods input.Modifiers) error {
	delta := point.Sub(s.origin)
	if mods.Shift {
		delta = lockAxis(delta)
	}
	s.delta = delta
	for _, id := range s.ids {
		p := s.initial[id].Point.Add(delta)
		if err := tx.UpdateShape(id, document.ShapePatch{Point: &p}); err != nil {
			return err
		}
	}
	return settle(tx, s.ids)
}

// Complete lets go of bindings whose arrow moved without its target. A
// drag that ends where it started keeps them.
func (s *Translate) Complete(tx *history.Tx) error {
	if s.delta.IsZero() {
		return nil
	}
	return binding.Detach(tx, s.ids)
}
