package session

import (
	"math"
	"slices"

	"github.com/inamate/whiteboard/internal/binding"
	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/geom"
	"github.com/inamate/whiteboard/internal/history"
	"github.com/inamate/whiteboard/internal/selection"
)

// snapshot clones the shapes the session will edit.
func snapshot(page *document.Page, ids []string) map[string]*document.Shape {
	out := make(map[string]*document.Shape, len(ids))
	for _, id := range ids {
		if s, ok := page.Shape(id); ok {
			out[id] = s.Clone()
		}
	}
	return out
}

func sortedKeys(m map[string]*document.Shape) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// lockAxis keeps only the dominant component of d.
func lockAxis(d geom.Vec) geom.Vec {
	if math.Abs(d.X) > math.Abs(d.Y) {
		return geom.V(d.X, 0)
	}
	return geom.V(0, d.Y)
}

// settle runs after shapes moved: bound arrows follow their targets and
// every group around a moved shape is refitted to its children.
func settle(tx *history.Tx, moved []string) error {
	if err := binding.FollowTargets(tx, moved); err != nil {
		return err
	}
	return FitGroups(tx, moved)
}

// FitGroups resizes the groups above ids to the union of their children.
func FitGroups(tx *history.Tx, ids []string) error {
	var groups []string
	for _, id := range ids {
		groups = append(groups, selection.Ancestors(tx.Page(), id)...)
	}
	return RefitGroups(tx, groups)
}

// RefitGroups resizes the given groups and every group above them. Empty
// groups keep their geometry.
func RefitGroups(tx *history.Tx, groupIDs []string) error {
	page := tx.Page()
	seen := map[string]bool{}
	var groups []string
	for _, gid := range groupIDs {
		for _, id := range append([]string{gid}, selection.Ancestors(page, gid)...) {
			if !seen[id] {
				seen[id] = true
				groups = append(groups, id)
			}
		}
	}
	// Deepest groups first so outer groups see refitted children.
	slices.SortStableFunc(groups, func(a, b string) int {
		return len(selection.Ancestors(page, b)) - len(selection.Ancestors(page, a))
	})
	for _, gid := range groups {
		g, ok := page.Shape(gid)
		if !ok || !g.IsGroup() || len(g.Children) == 0 {
			continue
		}
		b := document.CommonBounds(selection.Shapes(page, g.Children))
		point, size := b.Min(), b.Size()
		if err := tx.UpdateShape(gid, document.ShapePatch{Point: &point, Size: &size}); err != nil {
			return err
		}
	}
	return nil
}
