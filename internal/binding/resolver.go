// Package binding keeps arrow bindings consistent while shapes are created,
// moved and deleted.
package binding

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/geom"
	"github.com/inamate/whiteboard/internal/selection"
)

// Distance is how far outside a shape a handle may be dropped and still bind.
const Distance = 16.0

const tieEpsilon = 1e-9

var ErrIntegrityViolation = errors.New("binding integrity violation")

// Store is the mutable view of a page the resolver works through. Reads go
// to Page(); every write goes through the store so it can be recorded.
type Store interface {
	Page() *document.Page
	UpdateShape(id string, patch document.ShapePatch) error
	DeleteShape(id string) error
	CreateBinding(b *document.Binding) error
	UpdateBinding(id string, patch document.BindingPatch) error
	DeleteBinding(id string) error
}

type DeleteOptions struct {
	// DeleteEmptyGroups removes a group once its last child is deleted.
	DeleteEmptyGroups bool
}

// DeleteShapes removes ids together with their descendants, every binding
// that touches them and their entries in surviving parents. It returns the
// removed ids in removal order.
func DeleteShapes(st Store, ids []string, opts DeleteOptions) ([]string, error) {
	page := st.Page()
	order := selection.Expand(page, ids, true)
	if len(order) == 0 {
		return nil, nil
	}

	doomed := make(map[string]bool, len(order))
	for _, id := range order {
		doomed[id] = true
	}

	for _, id := range order {
		for _, bid := range page.BindingsOf(id) {
			if err := removeBinding(st, bid, doomed); err != nil {
				return nil, err
			}
		}
	}

	var emptied []string
	for _, id := range order {
		s, _ := page.Shape(id)
		if s.ParentID == page.ID || doomed[s.ParentID] {
			continue
		}
		parent, ok := page.Shape(s.ParentID)
		if !ok {
			continue
		}
		children := slices.DeleteFunc(slices.Clone(parent.Children), func(c string) bool { return c == id })
		if err := st.UpdateShape(parent.ID, document.ShapePatch{Children: &children}); err != nil {
			return nil, fmt.Errorf("%w: detach %q from %q: %w", ErrIntegrityViolation, id, parent.ID, err)
		}
		if len(children) == 0 && opts.DeleteEmptyGroups {
			emptied = append(emptied, parent.ID)
		}
	}

	for _, id := range order {
		if err := st.DeleteShape(id); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIntegrityViolation, err)
		}
	}

	if len(emptied) > 0 {
		more, err := DeleteShapes(st, emptied, opts)
		if err != nil {
			return nil, err
		}
		order = append(order, more...)
	}
	return order, nil
}

// removeBinding deletes bid and clears the handle that referenced it, unless
// the handle's shape is itself being deleted.
func removeBinding(st Store, bid string, doomed map[string]bool) error {
	b, ok := st.Page().Binding(bid)
	if !ok {
		return nil
	}
	if !doomed[b.FromID] {
		if err := clearHandles(st, b.FromID, bid); err != nil {
			return err
		}
	}
	if err := st.DeleteBinding(bid); err != nil {
		return fmt.Errorf("%w: %w", ErrIntegrityViolation, err)
	}
	return nil
}

func clearHandles(st Store, shapeID, bid string) error {
	s, ok := st.Page().Shape(shapeID)
	if !ok {
		return nil
	}
	patch := map[string]document.Handle{}
	for name, h := range s.Handles {
		if h.BindingID == bid {
			h.BindingID = ""
			patch[name] = h
		}
	}
	if len(patch) == 0 {
		return nil
	}
	if err := st.UpdateShape(shapeID, document.ShapePatch{Handles: patch}); err != nil {
		return fmt.Errorf("%w: clear handle on %q: %w", ErrIntegrityViolation, shapeID, err)
	}
	return nil
}

// ResolveHandle binds the handle to the best target under its current
// position, or unbinds it when there is none. It returns the id of the
// binding now attached to the handle, or "".
func ResolveHandle(st Store, shapeID, handleID string, newID func() string) (string, error) {
	page := st.Page()
	from, ok := page.Shape(shapeID)
	if !ok {
		return "", fmt.Errorf("resolve handle: shape %q: %w", shapeID, document.ErrNotFound)
	}
	h, ok := from.Handles[handleID]
	if !ok {
		return "", fmt.Errorf("resolve handle: handle %q on %q: %w", handleID, shapeID, document.ErrNotFound)
	}

	point := from.Point.Add(h.Point)
	target, found := FindTarget(page, from, point)

	existing, hasExisting := page.Binding(h.BindingID)
	if hasExisting && existing.FromID != shapeID {
		return "", fmt.Errorf("%w: handle %q on %q references binding %q of %q",
			ErrIntegrityViolation, handleID, shapeID, existing.ID, existing.FromID)
	}

	if !found {
		if hasExisting {
			if err := removeBinding(st, existing.ID, nil); err != nil {
				return "", err
			}
		}
		return "", nil
	}

	bounds := document.Bounds(target)
	meta := document.BindingMeta{
		HandleID: handleID,
		Point:    bounds.Normalize(point),
		Distance: bounds.DistanceTo(point),
	}

	if hasExisting {
		if err := st.UpdateBinding(existing.ID, document.BindingPatch{ToID: &target.ID, Meta: &meta}); err != nil {
			return "", fmt.Errorf("%w: %w", ErrIntegrityViolation, err)
		}
		return existing.ID, nil
	}

	b := &document.Binding{ID: newID(), FromID: shapeID, ToID: target.ID, Meta: meta}
	if err := st.CreateBinding(b); err != nil {
		return "", fmt.Errorf("%w: %w", ErrIntegrityViolation, err)
	}
	h.BindingID = b.ID
	if err := st.UpdateShape(shapeID, document.ShapePatch{Handles: map[string]document.Handle{handleID: h}}); err != nil {
		return "", fmt.Errorf("%w: %w", ErrIntegrityViolation, err)
	}
	return b.ID, nil
}

// FindTarget picks the shape an arrow handle at point binds to: among
// bindable shapes whose grown region contains the point, the one whose
// center is closest, with the top-most shape winning ties. The arrow itself
// and its ancestors and descendants are never targets.
func FindTarget(page *document.Page, from *document.Shape, point geom.Vec) (*document.Shape, bool) {
	var best *document.Shape
	bestDist := math.Inf(1)

	for _, s := range page.Shapes {
		if !document.CanBind(s) || selection.IsRelated(page, s.ID, from.ID) {
			continue
		}
		if !document.Contains(s, point, Distance) {
			continue
		}
		d := point.Dist(document.Bounds(s).Center())
		switch {
		case best == nil || d < bestDist-tieEpsilon:
			best, bestDist = s, d
		case math.Abs(d-bestDist) <= tieEpsilon && compareZ(page, s, best) > 0:
			best, bestDist = s, d
		}
	}
	return best, best != nil
}

// compareZ orders shapes by their stacking position on the page. Shapes in
// groups stack with their outermost group first.
func compareZ(page *document.Page, a, b *document.Shape) int {
	za, zb := zPath(page, a), zPath(page, b)
	if c := slices.Compare(za, zb); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func zPath(page *document.Page, s *document.Shape) []float64 {
	anc := selection.Ancestors(page, s.ID)
	path := make([]float64, 0, len(anc)+1)
	for i := len(anc) - 1; i >= 0; i-- {
		path = append(path, page.Shapes[anc[i]].ChildIndex)
	}
	return append(path, s.ChildIndex)
}

// FollowTargets moves bound handles so arrows stay attached to targets that
// moved. Arrows that moved along with their target are left alone.
func FollowTargets(st Store, moved []string) error {
	page := st.Page()
	set := make(map[string]bool, len(moved))
	for _, id := range moved {
		set[id] = true
	}

	ids := make([]string, 0, len(page.Bindings))
	for id, b := range page.Bindings {
		if set[b.ToID] && !set[b.FromID] {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	for _, id := range ids {
		b := page.Bindings[id]
		from, okFrom := page.Shape(b.FromID)
		to, okTo := page.Shape(b.ToID)
		if !okFrom || !okTo {
			return fmt.Errorf("%w: binding %q has a missing endpoint", ErrIntegrityViolation, id)
		}
		h, ok := from.Handles[b.Meta.HandleID]
		if !ok {
			return fmt.Errorf("%w: binding %q names missing handle %q", ErrIntegrityViolation, id, b.Meta.HandleID)
		}
		anchor := document.Bounds(to).Denormalize(b.Meta.Point)
		h.Point = anchor.Sub(from.Point)
		if err := st.UpdateShape(from.ID, document.ShapePatch{Handles: map[string]document.Handle{h.ID: h}}); err != nil {
			return fmt.Errorf("%w: %w", ErrIntegrityViolation, err)
		}
	}
	return nil
}

// Detach removes the bindings of arrows in moved whose targets stayed put.
// An arrow dragged away on its own lets go of what it was attached to.
func Detach(st Store, moved []string) error {
	page := st.Page()
	set := make(map[string]bool, len(moved))
	for _, id := range moved {
		set[id] = true
	}

	var ids []string
	for id, b := range page.Bindings {
		if set[b.FromID] && !set[b.ToID] {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	for _, id := range ids {
		if err := removeBinding(st, id, nil); err != nil {
			return err
		}
	}
	return nil
}
