package editor

import (
	"fmt"
	"slices"

	"github.com/inamate/whiteboard/internal/binding"
	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/history"
	"github.com/inamate/whiteboard/internal/selection"
	"github.com/inamate/whiteboard/internal/session"
)

// ShapeUpdate is a patch for one shape.
type ShapeUpdate struct {
	ID string `json:"id"`
	document.ShapePatch
}

// --- Selection ---
// Selection changes are UI state and are not recorded as commands. Commands
// that change the document record the selection they leave behind.

// Select replaces the selection. Every id must exist.
func (e *Editor) Select(ids ...string) error {
	page, state := e.current()
	for _, id := range ids {
		if _, ok := page.Shape(id); !ok {
			return fmt.Errorf("select %q: %w", id, document.ErrNotFound)
		}
	}
	state.SelectedIDs = dedupe(ids)
	return nil
}

// SelectAll selects every top-level shape.
func (e *Editor) SelectAll() error {
	page, state := e.current()
	state.SelectedIDs = selection.All(page)
	return nil
}

func (e *Editor) DeselectAll() error {
	_, state := e.current()
	state.SelectedIDs = []string{}
	return nil
}

// selected returns ids, or the selection when ids is empty.
func (e *Editor) selected(ids []string) []string {
	if len(ids) > 0 {
		return ids
	}
	_, state := e.current()
	return slices.Clone(state.SelectedIDs)
}

// --- Document commands ---

// CreateShapes adds shapes to the current page and selects them. Missing ids
// are generated; a shape without a parent goes on the page above every
// existing shape.
func (e *Editor) CreateShapes(shapes ...*document.Shape) error {
	if len(shapes) == 0 {
		return nil
	}
	for i, s := range shapes {
		if s == nil {
			return fmt.Errorf("%s: shape %d is empty: %w", CmdCreate, i, document.ErrInvalidShape)
		}
	}
	return e.dispatch(CmdCreate, func(tx *history.Tx) error {
		page := tx.Page()
		ids := make([]string, 0, len(shapes))
		var parents []string
		for _, in := range shapes {
			if !document.Known(in.Type) {
				return fmt.Errorf("shape type %q: %w", in.Type, document.ErrNotFound)
			}
			s := in.Clone()
			if s.ID == "" {
				s.ID = e.opts.NewShapeID()
			}
			if s.ParentID == "" {
				s.ParentID = page.ID
			}
			if s.ChildIndex == 0 {
				s.ChildIndex = page.MaxChildIndex() + 1
			}
			document.ApplyDefaults(s)
			if err := tx.CreateShape(s); err != nil {
				return err
			}
			if s.ParentID != page.ID {
				parent, ok := page.Shape(s.ParentID)
				if !ok || !parent.IsGroup() {
					return fmt.Errorf("parent %q of %q: %w", s.ParentID, s.ID, document.ErrNotFound)
				}
				children := append(slices.Clone(parent.Children), s.ID)
				if err := tx.UpdateShape(parent.ID, document.ShapePatch{Children: &children}); err != nil {
					return err
				}
				parents = append(parents, parent.ID)
			}
			ids = append(ids, s.ID)
		}
		if err := session.RefitGroups(tx, parents); err != nil {
			return err
		}
		tx.SetSelection(ids)
		return nil
	})
}

// UpdateShapes patches existing shapes. Arrows bound to a changed shape
// follow it and the groups around it are refitted.
func (e *Editor) UpdateShapes(updates ...ShapeUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return e.dispatch(CmdUpdate, func(tx *history.Tx) error {
		ids := make([]string, 0, len(updates))
		for _, u := range updates {
			if err := tx.UpdateShape(u.ID, u.ShapePatch); err != nil {
				return err
			}
			ids = append(ids, u.ID)
		}
		if err := binding.FollowTargets(tx, ids); err != nil {
			return err
		}
		return session.FitGroups(tx, ids)
	})
}

// Delete removes the given shapes, or the selection when none are given,
// together with their descendants and bindings. Ids that do not exist are
// ignored; deleting nothing records nothing.
func (e *Editor) Delete(ids ...string) error {
	ids = e.selected(ids)
	return e.dispatch(CmdDelete, func(tx *history.Tx) error {
		page := tx.Page()
		parentOf := make(map[string]string, len(page.Shapes))
		for id, s := range page.Shapes {
			parentOf[id] = s.ParentID
		}

		removed, err := binding.DeleteShapes(tx, ids, binding.DeleteOptions{DeleteEmptyGroups: e.opts.DeleteEmptyGroups})
		if err != nil || len(removed) == 0 {
			return err
		}

		// Every surviving group that lost a child, including the parents
		// of groups removed for being empty.
		var parents []string
		for _, id := range removed {
			pid := parentOf[id]
			if pid == page.ID || slices.Contains(removed, pid) || slices.Contains(parents, pid) {
				continue
			}
			parents = append(parents, pid)
		}
		slices.Sort(parents)
		if err := session.RefitGroups(tx, parents); err != nil {
			return err
		}

		kept := slices.DeleteFunc(slices.Clone(tx.PageState().SelectedIDs), func(id string) bool {
			return slices.Contains(removed, id)
		})
		tx.SetSelection(kept)
		return nil
	})
}

// Group puts the given shapes, or the selection, under a new group and
// selects it. Grouping fewer than two shapes is a no-op.
func (e *Editor) Group(ids ...string) error {
	ids = e.selected(ids)
	page, _ := e.current()
	if len(selection.Roots(page, ids)) < 2 {
		return nil
	}
	return e.dispatch(CmdGroup, func(tx *history.Tx) error {
		plan, err := selection.PlanGroup(tx.Page(), ids, e.opts.NewShapeID())
		if err != nil {
			return err
		}
		if err := tx.CreateShape(plan.Group); err != nil {
			return err
		}
		for _, id := range plan.Children {
			parent := plan.Group.ID
			if err := tx.UpdateShape(id, document.ShapePatch{ParentID: &parent}); err != nil {
				return err
			}
		}
		var former []string
		for pid, children := range plan.FormerParents {
			if err := tx.UpdateShape(pid, document.ShapePatch{Children: &children}); err != nil {
				return err
			}
			former = append(former, pid)
		}
		slices.Sort(former)
		if err := session.RefitGroups(tx, former); err != nil {
			return err
		}
		tx.SetSelection([]string{plan.Group.ID})
		return nil
	})
}

// Ungroup dissolves the given groups, or the selected ones, moving their
// children into the group's place. Non-group ids are ignored.
func (e *Editor) Ungroup(ids ...string) error {
	ids = e.selected(ids)
	return e.dispatch(CmdUngroup, func(tx *history.Tx) error {
		page := tx.Page()
		var freed []string
		for _, id := range selection.Roots(page, ids) {
			g, ok := page.Shape(id)
			if !ok || !g.IsGroup() {
				continue
			}
			children, err := ungroup(tx, g)
			if err != nil {
				return err
			}
			freed = append(freed, children...)
		}
		if len(freed) == 0 {
			return nil
		}
		tx.SetSelection(freed)
		return nil
	})
}

// ungroup moves the children of g up one level and deletes g. Children are
// spread between g's stacking position and that of the next sibling so
// their order is kept.
func ungroup(tx *history.Tx, g *document.Shape) ([]string, error) {
	page := tx.Page()
	children := selection.SortByChildIndex(page, g.Children)
	group := g.Clone()

	next := group.ChildIndex + 1
	for _, s := range page.Shapes {
		if s.ParentID == group.ParentID && s.ID != group.ID && s.ChildIndex > group.ChildIndex && s.ChildIndex < next {
			next = s.ChildIndex
		}
	}
	step := (next - group.ChildIndex) / float64(len(children)+1)

	for i, id := range children {
		parent := group.ParentID
		index := group.ChildIndex + step*float64(i)
		if err := tx.UpdateShape(id, document.ShapePatch{ParentID: &parent, ChildIndex: &index}); err != nil {
			return nil, err
		}
	}
	empty := []string{}
	if err := tx.UpdateShape(group.ID, document.ShapePatch{Children: &empty}); err != nil {
		return nil, err
	}

	if group.ParentID != page.ID {
		parent, ok := page.Shape(group.ParentID)
		if !ok {
			return nil, fmt.Errorf("parent %q of %q: %w", group.ParentID, group.ID, document.ErrNotFound)
		}
		siblings := slices.Clone(parent.Children)
		if i := slices.Index(siblings, group.ID); i >= 0 {
			siblings = slices.Replace(siblings, i, i+1, children...)
		}
		if err := tx.UpdateShape(parent.ID, document.ShapePatch{Children: &siblings}); err != nil {
			return nil, err
		}
	}
	if err := tx.DeleteShape(group.ID); err != nil {
		return nil, err
	}
	return children, nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
