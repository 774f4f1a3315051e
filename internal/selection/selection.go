// Package selection resolves which shapes an operation implicates: group
// expansion, descendant closures and z-order.
package selection

import (
	"cmp"
	"slices"

	"github.com/inamate/whiteboard/internal/document"
)

// Expand returns the operation set for ids. Missing ids are dropped and
// duplicates collapse. For structural operations (delete) every group is
// preceded by its full descendant closure, deepest first, so callers can
// remove shapes in the returned order.
func Expand(page *document.Page, ids []string, structural bool) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))

	var visit func(id string)
	visit = func(id string) {
		s, ok := page.Shape(id)
		if !ok || seen[id] {
			return
		}
		seen[id] = true
		if structural && s.IsGroup() {
			for _, child := range s.Children {
				visit(child)
			}
		}
		out = append(out, id)
	}

	for _, id := range ids {
		visit(id)
	}
	return out
}

// Descendants returns every shape below id, deepest first.
func Descendants(page *document.Page, id string) []string {
	all := Expand(page, []string{id}, true)
	return all[:max(len(all)-1, 0)]
}

// WithDescendants returns ids plus all their descendants, parents first.
// Moving a group moves everything inside it.
func WithDescendants(page *document.Page, ids []string) []string {
	seen := make(map[string]bool)
	var out []string

	var visit func(id string)
	visit = func(id string) {
		s, ok := page.Shape(id)
		if !ok || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
		for _, child := range s.Children {
			visit(child)
		}
	}
	for _, id := range ids {
		visit(id)
	}
	return out
}

// Ancestors returns the group chain above id, nearest first.
func Ancestors(page *document.Page, id string) []string {
	var out []string
	s, ok := page.Shape(id)
	for ok && s.ParentID != page.ID {
		parent, found := page.Shape(s.ParentID)
		if !found {
			break
		}
		out = append(out, parent.ID)
		s, ok = parent, true
	}
	return out
}

// IsRelated reports whether a and b are the same shape or one contains the other.
func IsRelated(page *document.Page, a, b string) bool {
	if a == b {
		return true
	}
	return slices.Contains(Ancestors(page, a), b) || slices.Contains(Ancestors(page, b), a)
}

// Roots drops every id that has an ancestor also present in ids.
func Roots(page *document.Page, ids []string) []string {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	var out []string
	for _, id := range ids {
		if _, ok := page.Shape(id); !ok {
			continue
		}
		nested := false
		for _, anc := range Ancestors(page, id) {
			if set[anc] {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, id)
		}
	}
	return out
}

// Outermost maps id to its top-level group, or to itself when ungrouped.
// Clicking a grouped shape selects the group.
func Outermost(page *document.Page, id string) string {
	anc := Ancestors(page, id)
	if len(anc) == 0 {
		return id
	}
	return anc[len(anc)-1]
}

// All returns the top-level shapes of the page in z-order.
func All(page *document.Page) []string {
	var ids []string
	for id, s := range page.Shapes {
		if page.TopLevel(s) {
			ids = append(ids, id)
		}
	}
	return SortByChildIndex(page, ids)
}

// SortByChildIndex orders ids back to front; ties fall back to the id.
func SortByChildIndex(page *document.Page, ids []string) []string {
	out := slices.Clone(ids)
	slices.SortStableFunc(out, func(a, b string) int {
		sa, oka := page.Shape(a)
		sb, okb := page.Shape(b)
		if oka && okb && sa.ChildIndex != sb.ChildIndex {
			return cmp.Compare(sa.ChildIndex, sb.ChildIndex)
		}
		return cmp.Compare(a, b)
	})
	return out
}

// Shapes resolves ids to shapes, skipping missing ones.
func Shapes(page *document.Page, ids []string) []*document.Shape {
	out := make([]*document.Shape, 0, len(ids))
	for _, id := range ids {
		if s, ok := page.Shape(id); ok {
			out = append(out, s)
		}
	}
	return out
}
