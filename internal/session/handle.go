package session

import (
	"fmt"

	"github.com/inamate/whiteboard/internal/binding"
	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/geom"
	"github.com/inamate/whiteboard/internal/history"
	"github.com/inamate/whiteboard/internal/input"
)

// Handle drags one handle of one shape. On completion the handle binds to
// whatever shape it was dropped on.
type Handle struct {
	origin   geom.Vec
	shapeID  string
	handleID string
	initial  document.Handle
	newID    func() string
}

// NewHandle starts a handle drag. newID generates ids for new bindings.
func NewHandle(page *document.Page, shapeID, handleID string, origin geom.Vec, newID func() string) (*Handle, error) {
	s, ok := page.Shape(shapeID)
	if !ok {
		return nil, fmt.Errorf("handle session: shape %q: %w", shapeID, document.ErrNotFound)
	}
	h, ok := s.Handles[handleID]
	if !ok {
		return nil, fmt.Errorf("handle session: handle %q on %q: %w", handleID, shapeID, document.ErrNotFound)
	}
	return &Handle{origin: origin, shapeID: shapeID, handleID: handleID, initial: h, newID: newID}, nil
}

func (s *Handle) Kind() Kind       { return KindHandle }
func (s *Handle) Origin() geom.Vec { return s.origin }
func (s *Handle) Shapes() []string { return []string{s.shapeID} }
func (s *Handle) ShapeID() string  { return s.shapeID }
func (s *Handle) HandleID() string { return s.handleID }

func (s *Handle) Update(tx *history.Tx, point geom.Vec, mods input.Modifiers) error {
	delta := point.Sub(s.origin)
	if mods.Shift {
		delta = lockAxis(delta)
	}
	h, ok := tx.Page().Shapes[s.shapeID].Handles[s.handleID]
	if !ok {
		return fmt.Errorf("handle session: handle %q vanished: %w", s.handleID, document.ErrNotFound)
	}
	h.Point = s.initial.Point.Add(delta)
	return tx.UpdateShape(s.shapeID, document.ShapePatch{Handles: map[string]document.Handle{s.handleID: h}})
}

func (s *Handle) Complete(tx *history.Tx) error {
	if _, err := binding.ResolveHandle(tx, s.shapeID, s.handleID, s.newID); err != nil {
		return err
	}
	return FitGroups(tx, []string{s.shapeID})
}
