package selection

import (
	"errors"
	"fmt"
	"slices"

	"github.com/inamate/whiteboard/internal/document"
)

var ErrNothingToGroup = errors.New("need at least two shapes to group")

// GroupPlan describes the shape changes that put ids under a new group.
type GroupPlan struct {
	Group    *document.Shape
	Children []string
	// FormerParents maps each old group parent to its remaining children.
	FormerParents map[string][]string
}

// PlanGroup builds a group named groupID around ids. The group takes the
// place of the lowest member in the z-order and inherits a parent only when
// every member shares it.
func PlanGroup(page *document.Page, ids []string, groupID string) (*GroupPlan, error) {
	if _, ok := page.Shape(groupID); ok {
		return nil, fmt.Errorf("group %q: %w", groupID, document.ErrDuplicateID)
	}

	members := SortByChildIndex(page, Roots(page, ids))
	if len(members) < 2 {
		return nil, ErrNothingToGroup
	}

	shapes := Shapes(page, members)
	parentID := shapes[0].ParentID
	for _, s := range shapes[1:] {
		if s.ParentID != parentID {
			parentID = page.ID
			break
		}
	}

	bounds := document.CommonBounds(shapes)
	group := &document.Shape{
		ID:         groupID,
		Type:       document.ShapeGroup,
		Name:       "Group",
		ParentID:   parentID,
		ChildIndex: shapes[0].ChildIndex,
		Point:      bounds.Min(),
		Size:       bounds.Size(),
		Children:   members,
	}

	plan := &GroupPlan{Group: group, Children: members, FormerParents: map[string][]string{}}
	for _, s := range shapes {
		if s.ParentID == page.ID {
			continue
		}
		parent, ok := page.Shape(s.ParentID)
		if !ok {
			continue
		}
		remaining, seen := plan.FormerParents[parent.ID]
		if !seen {
			remaining = slices.Clone(parent.Children)
		}
		remaining = slices.DeleteFunc(remaining, func(id string) bool { return id == s.ID })
		plan.FormerParents[parent.ID] = remaining
	}
	if parentID != page.ID {
		// The new group replaces its members inside the shared parent.
		remaining := plan.FormerParents[parentID]
		idx := slices.Index(page.Shapes[parentID].Children, members[0])
		plan.FormerParents[parentID] = slices.Insert(remaining, min(max(idx, 0), len(remaining)), groupID)
	}
	return plan, nil
}
