package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/geom"
	"github.com/inamate/whiteboard/internal/history"
)

func fixedID(id string) func() string {
	return func() string { return id }
}

// sampleWithArrow returns the sample page plus arrow1 at the origin.
func sampleWithArrow(t *testing.T) (*document.Page, *document.PageState) {
	t.Helper()
	page, state := document.NewSampleDocument("doc1").CurrentPage()
	arrow := &document.Shape{ID: "arrow1", Type: document.ShapeArrow, ParentID: page.ID, ChildIndex: 4}
	document.ApplyDefaults(arrow)
	require.NoError(t, page.CreateShape(arrow))
	return page, state
}

func moveHandle(t *testing.T, st Store, shapeID, handleID string, to geom.Vec) {
	t.Helper()
	s, _ := st.Page().Shape(shapeID)
	h := s.Handles[handleID]
	h.Point = to.Sub(s.Point)
	require.NoError(t, st.UpdateShape(shapeID, document.ShapePatch{Handles: map[string]document.Handle{handleID: h}}))
}

func TestFindTarget_ClosestThenTopMost(t *testing.T) {
	page, _ := sampleWithArrow(t)
	arrow := page.Shapes["arrow1"]

	// rect2 and rect3 centers are equally far from (110,110); rect3 is on top.
	target, ok := FindTarget(page, arrow, geom.V(110, 110))
	require.True(t, ok)
	assert.Equal(t, "rect3", target.ID)

	target, ok = FindTarget(page, arrow, geom.V(190, 190))
	require.True(t, ok)
	assert.Equal(t, "rect2", target.ID)

	_, ok = FindTarget(page, arrow, geom.V(500, 500))
	assert.False(t, ok)
}

func TestFindTarget_BindingMargin(t *testing.T) {
	page := document.NewPage(document.DefaultPageID, "Page 1")
	require.NoError(t, page.CreateShape(&document.Shape{
		ID: "rect1", Type: document.ShapeRectangle, ParentID: page.ID, Size: geom.V(100, 100),
	}))
	arrow := &document.Shape{ID: "arrow1", Type: document.ShapeArrow, ParentID: page.ID}
	document.ApplyDefaults(arrow)
	require.NoError(t, page.CreateShape(arrow))

	target, ok := FindTarget(page, arrow, geom.V(110, 110))
	require.True(t, ok)
	assert.Equal(t, "rect1", target.ID)

	_, ok = FindTarget(page, arrow, geom.V(100+Distance+1, 50))
	assert.False(t, ok)
}

func TestResolveHandle_CreatesThenRemoves(t *testing.T) {
	page, state := sampleWithArrow(t)
	tx := history.Begin(page, state)

	moveHandle(t, tx, "arrow1", "start", geom.V(110, 110))
	id, err := ResolveHandle(tx, "arrow1", "start", fixedID("b1"))
	require.NoError(t, err)
	require.Equal(t, "b1", id)

	b := page.Bindings["b1"]
	require.NotNil(t, b)
	assert.Equal(t, "arrow1", b.FromID)
	assert.Equal(t, "rect3", b.ToID)
	assert.Equal(t, "start", b.Meta.HandleID)
	assert.Equal(t, "b1", page.Shapes["arrow1"].Handles["start"].BindingID)
	require.NoError(t, Validate(page, tx.TouchedShapes(), tx.TouchedBindings()))

	moveHandle(t, tx, "arrow1", "start", geom.V(900, 900))
	id, err = ResolveHandle(tx, "arrow1", "start", fixedID("b2"))
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, page.Bindings)
	assert.Empty(t, page.Shapes["arrow1"].Handles["start"].BindingID)
}

func TestResolveHandle_RetargetsExistingBinding(t *testing.T) {
	page, state := sampleWithArrow(t)
	tx := history.Begin(page, state)

	moveHandle(t, tx, "arrow1", "start", geom.V(110, 110))
	_, err := ResolveHandle(tx, "arrow1", "start", fixedID("b1"))
	require.NoError(t, err)

	moveHandle(t, tx, "arrow1", "start", geom.V(190, 190))
	id, err := ResolveHandle(tx, "arrow1", "start", fixedID("unused"))
	require.NoError(t, err)
	assert.Equal(t, "b1", id)
	assert.Equal(t, "rect2", page.Bindings["b1"].ToID)
	assert.Len(t, page.Bindings, 1)
}

func TestResolveHandle_MissingHandle(t *testing.T) {
	page, state := sampleWithArrow(t)
	tx := history.Begin(page, state)

	_, err := ResolveHandle(tx, "rect1", "start", fixedID("b1"))
	assert.ErrorIs(t, err, document.ErrNotFound)
	_, err = ResolveHandle(tx, "nope", "start", fixedID("b1"))
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestDeleteShapes_TargetClearsHandle(t *testing.T) {
	page, state := sampleWithArrow(t)
	tx := history.Begin(page, state)
	moveHandle(t, tx, "arrow1", "start", geom.V(110, 110))
	_, err := ResolveHandle(tx, "arrow1", "start", fixedID("b1"))
	require.NoError(t, err)

	deleted, err := DeleteShapes(tx, []string{"rect3"}, DeleteOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"rect3"}, deleted)
	assert.Empty(t, page.Bindings)
	assert.Empty(t, page.Shapes["arrow1"].Handles["start"].BindingID)
	assert.NoError(t, Validate(page, tx.TouchedShapes(), tx.TouchedBindings()))
}

func TestDeleteShapes_ArrowRemovesItsBindings(t *testing.T) {
	page, state := sampleWithArrow(t)
	tx := history.Begin(page, state)
	moveHandle(t, tx, "arrow1", "start", geom.V(110, 110))
	_, err := ResolveHandle(tx, "arrow1", "start", fixedID("b1"))
	require.NoError(t, err)

	_, err = DeleteShapes(tx, []string{"arrow1"}, DeleteOptions{})
	require.NoError(t, err)
	assert.Empty(t, page.Bindings)
	assert.Contains(t, page.Shapes, "rect3")
}

func groupPage(t *testing.T) *document.Page {
	t.Helper()
	page, _ := document.NewSampleDocument("doc1").CurrentPage()
	page.PutShape(&document.Shape{
		ID: "g", Type: document.ShapeGroup, ParentID: page.ID,
		Children: []string{"rect1", "rect2", "rect3"},
	})
	for _, id := range []string{"rect1", "rect2", "rect3"} {
		page.Shapes[id].ParentID = "g"
	}
	return page
}

func TestDeleteShapes_ChildKeepsSiblingOrder(t *testing.T) {
	page := groupPage(t)
	tx := history.Begin(page, document.NewPageState(page.ID))

	_, err := DeleteShapes(tx, []string{"rect2"}, DeleteOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"rect1", "rect3"}, page.Shapes["g"].Children)
	assert.NoError(t, Validate(page, tx.TouchedShapes(), nil))
}

func TestDeleteShapes_GroupCascadesDescendantsFirst(t *testing.T) {
	page := groupPage(t)
	tx := history.Begin(page, document.NewPageState(page.ID))

	deleted, err := DeleteShapes(tx, []string{"g"}, DeleteOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"rect1", "rect2", "rect3", "g"}, deleted)
	assert.Empty(t, page.Shapes)
}

func TestDeleteShapes_EmptyGroupOption(t *testing.T) {
	all := []string{"rect1", "rect2", "rect3"}

	page := groupPage(t)
	_, err := DeleteShapes(history.Begin(page, document.NewPageState(page.ID)), all, DeleteOptions{})
	require.NoError(t, err)
	require.Contains(t, page.Shapes, "g")
	assert.Empty(t, page.Shapes["g"].Children)

	page = groupPage(t)
	deleted, err := DeleteShapes(history.Begin(page, document.NewPageState(page.ID)), all, DeleteOptions{DeleteEmptyGroups: true})
	require.NoError(t, err)
	assert.NotContains(t, page.Shapes, "g")
	assert.Equal(t, "g", deleted[len(deleted)-1])
}

func TestDeleteShapes_MissingIsNoop(t *testing.T) {
	page, state := document.NewSampleDocument("doc1").CurrentPage()
	tx := history.Begin(page, state)

	deleted, err := DeleteShapes(tx, []string{"nope"}, DeleteOptions{})
	require.NoError(t, err)
	assert.Empty(t, deleted)
	before, _ := tx.Diff()
	assert.True(t, before.Empty())
}

func TestFollowTargets(t *testing.T) {
	page, state := sampleWithArrow(t)
	tx := history.Begin(page, state)
	moveHandle(t, tx, "arrow1", "start", geom.V(110, 110))
	_, err := ResolveHandle(tx, "arrow1", "start", fixedID("b1"))
	require.NoError(t, err)

	p := geom.V(120, 20)
	require.NoError(t, tx.UpdateShape("rect3", document.ShapePatch{Point: &p}))
	require.NoError(t, FollowTargets(tx, []string{"rect3"}))

	got, _ := page.Shapes["arrow1"].HandlePoint("start")
	assert.True(t, got.Nearly(geom.V(210, 110), 1e-9), "got %v", got)
}

func TestDetach(t *testing.T) {
	page, state := sampleWithArrow(t)
	tx := history.Begin(page, state)
	moveHandle(t, tx, "arrow1", "start", geom.V(110, 110))
	_, err := ResolveHandle(tx, "arrow1", "start", fixedID("b1"))
	require.NoError(t, err)

	require.NoError(t, Detach(tx, []string{"arrow1", "rect3"}))
	assert.Len(t, page.Bindings, 1, "target moved too")

	require.NoError(t, Detach(tx, []string{"arrow1"}))
	assert.Empty(t, page.Bindings)
	assert.Empty(t, page.Shapes["arrow1"].Handles["start"].BindingID)
}

func TestValidate_DetectsDanglingReferences(t *testing.T) {
	page, _ := sampleWithArrow(t)
	page.PutBinding(&document.Binding{ID: "b1", FromID: "arrow1", ToID: "rect1", Meta: document.BindingMeta{HandleID: "start"}})

	err := Validate(page, nil, []string{"b1"})
	assert.ErrorIs(t, err, ErrIntegrityViolation, "handle does not reference the binding")

	h := page.Shapes["arrow1"].Handles["start"]
	h.BindingID = "b1"
	page.Shapes["arrow1"].Handles["start"] = h
	assert.NoError(t, Validate(page, []string{"arrow1"}, []string{"b1"}))

	delete(page.Shapes, "rect1")
	assert.ErrorIs(t, Validate(page, []string{"rect1"}, nil), ErrIntegrityViolation)
	assert.ErrorIs(t, Validate(page, []string{"arrow1"}, nil), ErrIntegrityViolation)
}
