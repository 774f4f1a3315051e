package history

import (
	"slices"

	"github.com/inamate/whiteboard/internal/document"
)

// Tx records every entity a mutation touches. The first time an entity is
// touched its current value is saved; Commit diffs those saved values
// against the final ones, so a command holds only what actually changed.
type Tx struct {
	page  *document.Page
	state *document.PageState

	shapes    map[string]*document.Shape
	bindings  map[string]*document.Binding
	pageState *document.PageState
}

// Begin starts recording mutations of page and state.
func Begin(page *document.Page, state *document.PageState) *Tx {
	return &Tx{
		page:     page,
		state:    state,
		shapes:   map[string]*document.Shape{},
		bindings: map[string]*document.Binding{},
	}
}

// Page gives read access to the live page. Mutations must go through the Tx.
func (t *Tx) Page() *document.Page { return t.page }

// PageState gives read access to the live page state.
func (t *Tx) PageState() *document.PageState { return t.state }

func (t *Tx) touchShape(id string) {
	if _, ok := t.shapes[id]; ok {
		return
	}
	s, _ := t.page.Shape(id)
	t.shapes[id] = s.Clone()
}

func (t *Tx) touchBinding(id string) {
	if _, ok := t.bindings[id]; ok {
		return
	}
	b, _ := t.page.Binding(id)
	t.bindings[id] = b.Clone()
}

func (t *Tx) touchPageState() {
	if t.pageState == nil {
		t.pageState = t.state.Clone()
	}
}

func (t *Tx) CreateShape(s *document.Shape) error {
	if _, ok := t.page.Shape(s.ID); ok {
		return t.page.CreateShape(s)
	}
	t.touchShape(s.ID)
	return t.page.CreateShape(s)
}

func (t *Tx) UpdateShape(id string, patch document.ShapePatch) error {
	if _, ok := t.page.Shape(id); ok {
		t.touchShape(id)
	}
	return t.page.UpdateShape(id, patch)
}

// PutShape replaces the stored shape wholesale.
func (t *Tx) PutShape(s *document.Shape) {
	t.touchShape(s.ID)
	t.page.PutShape(s)
}

func (t *Tx) DeleteShape(id string) error {
	if _, ok := t.page.Shape(id); ok {
		t.touchShape(id)
	}
	return t.page.DeleteShape(id)
}

func (t *Tx) CreateBinding(b *document.Binding) error {
	if _, ok := t.page.Binding(b.ID); ok {
		return t.page.CreateBinding(b)
	}
	t.touchBinding(b.ID)
	return t.page.CreateBinding(b)
}

func (t *Tx) UpdateBinding(id string, patch document.BindingPatch) error {
	if _, ok := t.page.Binding(id); ok {
		t.touchBinding(id)
	}
	return t.page.UpdateBinding(id, patch)
}

func (t *Tx) DeleteBinding(id string) error {
	if _, ok := t.page.Binding(id); ok {
		t.touchBinding(id)
	}
	return t.page.DeleteBinding(id)
}

// SetSelection replaces the selected ids.
func (t *Tx) SetSelection(ids []string) {
	t.touchPageState()
	t.state.SelectedIDs = slices.Clone(ids)
	if t.state.SelectedIDs == nil {
		t.state.SelectedIDs = []string{}
	}
}

// UpdatePageState edits the page state through fn.
func (t *Tx) UpdatePageState(fn func(ps *document.PageState)) {
	t.touchPageState()
	fn(t.state)
}

// TouchedShapes lists the ids of shapes recorded so far.
func (t *Tx) TouchedShapes() []string {
	ids := make([]string, 0, len(t.shapes))
	for id := range t.shapes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// TouchedBindings lists the ids of bindings recorded so far.
func (t *Tx) TouchedBindings() []string {
	ids := make([]string, 0, len(t.bindings))
	for id := range t.bindings {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Diff returns the before and after patches of every changed entity.
func (t *Tx) Diff() (before, after Patch) {
	before = Patch{Shapes: map[string]*document.Shape{}, Bindings: map[string]*document.Binding{}}
	after = Patch{Shapes: map[string]*document.Shape{}, Bindings: map[string]*document.Binding{}}

	for id, old := range t.shapes {
		cur, _ := t.page.Shape(id)
		if old.Equal(cur) {
			continue
		}
		before.Shapes[id] = old
		after.Shapes[id] = cur.Clone()
	}
	for id, old := range t.bindings {
		cur, _ := t.page.Binding(id)
		if old.Equal(cur) {
			continue
		}
		before.Bindings[id] = old
		after.Bindings[id] = cur.Clone()
	}
	if t.pageState != nil && !t.pageState.Equal(t.state) {
		before.PageState = t.pageState
		after.PageState = t.state.Clone()
	}
	return before, after
}

// Rollback restores every touched entity to its recorded value.
func (t *Tx) Rollback() {
	before := Patch{Shapes: t.shapes, Bindings: t.bindings, PageState: t.pageState}
	before.ApplyTo(t.page, t.state)
}
