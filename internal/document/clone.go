package document

import (
	"maps"
	"reflect"
	"slices"
)

// Clone returns a deep copy of the shape. Snapshots held by commands are
// always clones so later in-place edits cannot reach them.
func (s *Shape) Clone() *Shape {
	if s == nil {
		return nil
	}
	c := *s
	if s.Children != nil {
		c.Children = slices.Clone(s.Children)
	}
	if s.Handles != nil {
		c.Handles = maps.Clone(s.Handles)
	}
	return &c
}

func (s *Shape) Equal(o *Shape) bool {
	if s == nil || o == nil {
		return s == o
	}
	return reflect.DeepEqual(s, o)
}

func (b *Binding) Clone() *Binding {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

func (b *Binding) Equal(o *Binding) bool {
	if b == nil || o == nil {
		return b == o
	}
	return *b == *o
}

func (ps *PageState) Clone() *PageState {
	if ps == nil {
		return nil
	}
	c := *ps
	c.SelectedIDs = slices.Clone(ps.SelectedIDs)
	if c.SelectedIDs == nil {
		c.SelectedIDs = []string{}
	}
	return &c
}

func (ps *PageState) Equal(o *PageState) bool {
	if ps == nil || o == nil {
		return ps == o
	}
	return ps.HoveredID == o.HoveredID &&
		ps.Tool == o.Tool &&
		ps.Camera == o.Camera &&
		slices.Equal(ps.SelectedIDs, o.SelectedIDs)
}

func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	c := NewPage(p.ID, p.Name)
	for id, s := range p.Shapes {
		c.Shapes[id] = s.Clone()
	}
	for id, b := range p.Bindings {
		c.Bindings[id] = b.Clone()
	}
	return c
}

func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := &Document{
		ID:            d.ID,
		Name:          d.Name,
		Version:       d.Version,
		CurrentPageID: d.CurrentPageID,
		Pages:         make(map[string]*Page, len(d.Pages)),
		PageStates:    make(map[string]*PageState, len(d.PageStates)),
	}
	for id, p := range d.Pages {
		c.Pages[id] = p.Clone()
	}
	for id, ps := range d.PageStates {
		c.PageStates[id] = ps.Clone()
	}
	return c
}
