package binding

import (
	"fmt"
	"slices"

	"github.com/inamate/whiteboard/internal/document"
)

// Validate checks the invariants around the given shapes and bindings:
// every binding joins two present shapes and is named by its handle, every
// bound handle names a binding that starts at it, and group membership is
// mirrored by ParentID. Only entities reachable from the ids are checked.
func Validate(page *document.Page, shapeIDs, bindingIDs []string) error {
	for _, id := range bindingIDs {
		if b, ok := page.Binding(id); ok {
			if err := checkBinding(page, b); err != nil {
				return err
			}
		}
	}

	for _, id := range shapeIDs {
		s, ok := page.Shape(id)
		if !ok {
			for bid, b := range page.Bindings {
				if b.FromID == id || b.ToID == id {
					return fmt.Errorf("%w: binding %q references deleted shape %q", ErrIntegrityViolation, bid, id)
				}
			}
			continue
		}
		if err := checkShape(page, s); err != nil {
			return err
		}
	}
	return nil
}

func checkBinding(page *document.Page, b *document.Binding) error {
	if b.FromID == b.ToID {
		return fmt.Errorf("%w: binding %q binds %q to itself", ErrIntegrityViolation, b.ID, b.FromID)
	}
	from, ok := page.Shape(b.FromID)
	if !ok {
		return fmt.Errorf("%w: binding %q: from shape %q is missing", ErrIntegrityViolation, b.ID, b.FromID)
	}
	if _, ok := page.Shape(b.ToID); !ok {
		return fmt.Errorf("%w: binding %q: to shape %q is missing", ErrIntegrityViolation, b.ID, b.ToID)
	}
	h, ok := from.Handles[b.Meta.HandleID]
	if !ok || h.BindingID != b.ID {
		return fmt.Errorf("%w: binding %q is not referenced by handle %q of %q",
			ErrIntegrityViolation, b.ID, b.Meta.HandleID, b.FromID)
	}
	return nil
}

func checkShape(page *document.Page, s *document.Shape) error {
	for name, h := range s.Handles {
		if h.BindingID == "" {
			continue
		}
		b, ok := page.Binding(h.BindingID)
		if !ok {
			return fmt.Errorf("%w: handle %q of %q references missing binding %q",
				ErrIntegrityViolation, name, s.ID, h.BindingID)
		}
		if err := checkBinding(page, b); err != nil {
			return err
		}
		if b.FromID != s.ID || b.Meta.HandleID != name {
			return fmt.Errorf("%w: handle %q of %q references binding %q of another handle",
				ErrIntegrityViolation, name, s.ID, b.ID)
		}
	}

	if s.ParentID != page.ID {
		parent, ok := page.Shape(s.ParentID)
		if !ok {
			return fmt.Errorf("%w: shape %q has missing parent %q", ErrIntegrityViolation, s.ID, s.ParentID)
		}
		if !slices.Contains(parent.Children, s.ID) {
			return fmt.Errorf("%w: shape %q is not listed by parent %q", ErrIntegrityViolation, s.ID, s.ParentID)
		}
	}
	for _, c := range s.Children {
		child, ok := page.Shape(c)
		if !ok {
			return fmt.Errorf("%w: group %q lists missing child %q", ErrIntegrityViolation, s.ID, c)
		}
		if child.ParentID != s.ID {
			return fmt.Errorf("%w: group %q lists %q whose parent is %q", ErrIntegrityViolation, s.ID, c, child.ParentID)
		}
	}
	return nil
}
