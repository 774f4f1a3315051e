package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/geom"
)

// nestedPage builds: outer{ inner{ rect1, rect2 }, rect3 } plus a loose ellipse.
func nestedPage(t *testing.T) *document.Page {
	t.Helper()
	page, _ := document.NewSampleDocument("doc1").CurrentPage()
	page.PutShape(&document.Shape{ID: "inner", Type: document.ShapeGroup, ParentID: "outer", ChildIndex: 1, Children: []string{"rect1", "rect2"}})
	page.PutShape(&document.Shape{ID: "outer", Type: document.ShapeGroup, ParentID: page.ID, ChildIndex: 1, Children: []string{"inner", "rect3"}})
	page.PutShape(&document.Shape{ID: "ellipse", Type: document.ShapeEllipse, ParentID: page.ID, ChildIndex: 5, Size: geom.V(10, 10)})
	page.Shapes["rect1"].ParentID = "inner"
	page.Shapes["rect2"].ParentID = "inner"
	page.Shapes["rect3"].ParentID = "outer"
	return page
}

func TestExpand_Structural(t *testing.T) {
	page := nestedPage(t)

	assert.Equal(t,
		[]string{"rect1", "rect2", "inner", "rect3", "outer"},
		Expand(page, []string{"outer"}, true))
}

func TestExpand_NonStructuralKeepsGroupOnly(t *testing.T) {
	page := nestedPage(t)

	assert.Equal(t, []string{"outer", "ellipse"}, Expand(page, []string{"outer", "ellipse", "missing", "outer"}, false))
}

func TestDescendantsAndAncestors(t *testing.T) {
	page := nestedPage(t)

	assert.Equal(t, []string{"rect1", "rect2", "inner", "rect3"}, Descendants(page, "outer"))
	assert.Empty(t, Descendants(page, "ellipse"))
	assert.Equal(t, []string{"inner", "outer"}, Ancestors(page, "rect1"))
	assert.Equal(t, "outer", Outermost(page, "rect2"))
	assert.Equal(t, "ellipse", Outermost(page, "ellipse"))
	assert.True(t, IsRelated(page, "rect1", "outer"))
	assert.False(t, IsRelated(page, "rect1", "rect3"))
}

func TestWithDescendants_ParentsFirst(t *testing.T) {
	page := nestedPage(t)

	assert.Equal(t, []string{"inner", "rect1", "rect2", "ellipse"}, WithDescendants(page, []string{"inner", "ellipse"}))
}

func TestRoots(t *testing.T) {
	page := nestedPage(t)

	assert.Equal(t, []string{"outer", "ellipse"}, Roots(page, []string{"rect1", "outer", "ellipse"}))
}

func TestAll_TopLevelInZOrder(t *testing.T) {
	page := nestedPage(t)

	assert.Equal(t, []string{"outer", "ellipse"}, All(page))
}

func TestPlanGroup(t *testing.T) {
	page, _ := document.NewSampleDocument("doc1").CurrentPage()

	plan, err := PlanGroup(page, []string{"rect3", "rect1", "rect2"}, "g")
	require.NoError(t, err)

	assert.Equal(t, []string{"rect1", "rect2", "rect3"}, plan.Children)
	assert.Equal(t, page.ID, plan.Group.ParentID)
	assert.Equal(t, geom.V(0, 0), plan.Group.Point)
	assert.Equal(t, geom.V(200, 200), plan.Group.Size)
	assert.Equal(t, 1.0, plan.Group.ChildIndex)
	assert.Empty(t, plan.FormerParents)
}

func TestPlanGroup_InsideExistingGroup(t *testing.T) {
	page := nestedPage(t)

	plan, err := PlanGroup(page, []string{"inner", "rect3"}, "g")
	require.NoError(t, err)

	assert.Equal(t, "outer", plan.Group.ParentID)
	assert.Equal(t, []string{"g"}, plan.FormerParents["outer"])
}

func TestPlanGroup_Rejects(t *testing.T) {
	page, _ := document.NewSampleDocument("doc1").CurrentPage()

	_, err := PlanGroup(page, []string{"rect1"}, "g")
	assert.ErrorIs(t, err, ErrNothingToGroup)

	_, err = PlanGroup(page, []string{"rect1", "rect2"}, "rect3")
	assert.ErrorIs(t, err, document.ErrDuplicateID)
}
