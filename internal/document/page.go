package document

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateID  = errors.New("duplicate id")
	// ErrInvalidShape rejects shape values that cannot be placed on a page.
	ErrInvalidShape = errors.New("invalid shape")
)

// The accessors below touch only the targeted map. Keeping bindings
// consistent is the caller's job.

func (p *Page) Shape(id string) (*Shape, bool) {
	s, ok := p.Shapes[id]
	return s, ok
}

func (p *Page) CreateShape(s *Shape) error {
	if _, ok := p.Shapes[s.ID]; ok {
		return fmt.Errorf("create shape %q: %w", s.ID, ErrDuplicateID)
	}
	p.Shapes[s.ID] = s
	return nil
}

func (p *Page) UpdateShape(id string, patch ShapePatch) error {
	s, ok := p.Shapes[id]
	if !ok {
		return fmt.Errorf("update shape %q: %w", id, ErrNotFound)
	}
	patch.applyTo(s)
	return nil
}

func (p *Page) DeleteShape(id string) error {
	if _, ok := p.Shapes[id]; !ok {
		return fmt.Errorf("delete shape %q: %w", id, ErrNotFound)
	}
	delete(p.Shapes, id)
	return nil
}

// PutShape stores s, replacing any shape with the same id.
func (p *Page) PutShape(s *Shape) {
	p.Shapes[s.ID] = s
}

func (p *Page) Binding(id string) (*Binding, bool) {
	b, ok := p.Bindings[id]
	return b, ok
}

func (p *Page) CreateBinding(b *Binding) error {
	if _, ok := p.Bindings[b.ID]; ok {
		return fmt.Errorf("create binding %q: %w", b.ID, ErrDuplicateID)
	}
	p.Bindings[b.ID] = b
	return nil
}

func (p *Page) UpdateBinding(id string, patch BindingPatch) error {
	b, ok := p.Bindings[id]
	if !ok {
		return fmt.Errorf("update binding %q: %w", id, ErrNotFound)
	}
	if patch.ToID != nil {
		b.ToID = *patch.ToID
	}
	if patch.Meta != nil {
		b.Meta = *patch.Meta
	}
	return nil
}

func (p *Page) DeleteBinding(id string) error {
	if _, ok := p.Bindings[id]; !ok {
		return fmt.Errorf("delete binding %q: %w", id, ErrNotFound)
	}
	delete(p.Bindings, id)
	return nil
}

// PutBinding stores b, replacing any binding with the same id.
func (p *Page) PutBinding(b *Binding) {
	p.Bindings[b.ID] = b
}

// BindingsOf returns the ids of every binding that starts or ends at shapeID.
func (p *Page) BindingsOf(shapeID string) []string {
	var ids []string
	for id, b := range p.Bindings {
		if b.FromID == shapeID || b.ToID == shapeID {
			ids = append(ids, id)
		}
	}
	return ids
}

// TopLevel reports whether the shape sits directly on the page.
func (p *Page) TopLevel(s *Shape) bool {
	return s.ParentID == p.ID
}

// MaxChildIndex returns the highest z-order among the page's top-level shapes.
func (p *Page) MaxChildIndex() float64 {
	var idx float64
	for _, s := range p.Shapes {
		if p.TopLevel(s) && s.ChildIndex > idx {
			idx = s.ChildIndex
		}
	}
	return idx
}

func (patch ShapePatch) applyTo(s *Shape) {
	if patch.Name != nil {
		s.Name = *patch.Name
	}
	if patch.ParentID != nil {
		s.ParentID = *patch.ParentID
	}
	if patch.ChildIndex != nil {
		s.ChildIndex = *patch.ChildIndex
	}
	if patch.Point != nil {
		s.Point = *patch.Point
	}
	if patch.Size != nil {
		s.Size = *patch.Size
	}
	if patch.Rotation != nil {
		s.Rotation = *patch.Rotation
	}
	if patch.Children != nil {
		s.Children = append([]string{}, (*patch.Children)...)
	}
	if len(patch.Handles) > 0 {
		if s.Handles == nil {
			s.Handles = make(map[string]Handle, len(patch.Handles))
		}
		for name, h := range patch.Handles {
			s.Handles[name] = h
		}
	}
}
