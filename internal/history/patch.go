package history

import (
	"maps"

	"github.com/inamate/whiteboard/internal/document"
)

// Patch is a partial snapshot of a page. A nil entry means the entity does
// not exist in that snapshot. Values are private copies.
type Patch struct {
	Shapes    map[string]*document.Shape   `json:"shapes,omitempty"`
	Bindings  map[string]*document.Binding `json:"bindings,omitempty"`
	PageState *document.PageState          `json:"pageState,omitempty"`
}

// Empty reports whether applying the patch would change nothing.
func (p Patch) Empty() bool {
	return len(p.Shapes) == 0 && len(p.Bindings) == 0 && p.PageState == nil
}

// Size is the number of entities recorded.
func (p Patch) Size() int {
	n := len(p.Shapes) + len(p.Bindings)
	if p.PageState != nil {
		n++
	}
	return n
}

// ApplyTo writes the patch into page and state. Entries are cloned again so
// the patch stays immutable however the page is edited afterwards.
func (p Patch) ApplyTo(page *document.Page, state *document.PageState) {
	for id, s := range p.Shapes {
		if s == nil {
			delete(page.Shapes, id)
			continue
		}
		page.Shapes[id] = s.Clone()
	}
	for id, b := range p.Bindings {
		if b == nil {
			delete(page.Bindings, id)
			continue
		}
		page.Bindings[id] = b.Clone()
	}
	if p.PageState != nil && state != nil {
		id := state.ID
		*state = *p.PageState.Clone()
		state.ID = id
	}
}

// overlay returns base with every entry of top written over it.
func overlay(base, top Patch) Patch {
	out := Patch{
		Shapes:    maps.Clone(base.Shapes),
		Bindings:  maps.Clone(base.Bindings),
		PageState: base.PageState,
	}
	if out.Shapes == nil {
		out.Shapes = map[string]*document.Shape{}
	}
	if out.Bindings == nil {
		out.Bindings = map[string]*document.Binding{}
	}
	maps.Copy(out.Shapes, top.Shapes)
	maps.Copy(out.Bindings, top.Bindings)
	if top.PageState != nil {
		out.PageState = top.PageState
	}
	return out
}
