package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/geom"
)

func samplePage(t *testing.T) (*document.Page, *document.PageState) {
	t.Helper()
	doc := document.NewSampleDocument("doc1")
	return doc.CurrentPage()
}

// move records a translation of id by d as a command.
func move(t *testing.T, page *document.Page, state *document.PageState, id string, d geom.Vec) Command {
	t.Helper()
	tx := Begin(page, state)
	s, ok := page.Shape(id)
	require.True(t, ok)
	p := s.Point.Add(d)
	require.NoError(t, tx.UpdateShape(id, document.ShapePatch{Point: &p}))
	before, after := tx.Diff()
	return NewCommand("move", before, after)
}

func TestTx_DiffOnlyChangedEntities(t *testing.T) {
	page, state := samplePage(t)
	tx := Begin(page, state)

	same := page.Shapes["rect1"].Point
	require.NoError(t, tx.UpdateShape("rect1", document.ShapePatch{Point: &same}))
	moved := geom.V(5, 5)
	require.NoError(t, tx.UpdateShape("rect2", document.ShapePatch{Point: &moved}))

	before, after := tx.Diff()
	assert.Equal(t, 1, before.Size())
	assert.Contains(t, after.Shapes, "rect2")
	assert.NotContains(t, after.Shapes, "rect1")
	assert.Equal(t, geom.V(100, 100), before.Shapes["rect2"].Point)
}

func TestTx_CreateAndDeleteRecordAbsence(t *testing.T) {
	page, state := samplePage(t)
	tx := Begin(page, state)

	require.NoError(t, tx.CreateShape(&document.Shape{ID: "new", Type: document.ShapeRectangle, ParentID: page.ID}))
	require.NoError(t, tx.DeleteShape("rect1"))

	before, after := tx.Diff()
	assert.Nil(t, before.Shapes["new"])
	assert.NotNil(t, after.Shapes["new"])
	assert.NotNil(t, before.Shapes["rect1"])
	assert.Contains(t, after.Shapes, "rect1")
	assert.Nil(t, after.Shapes["rect1"])
}

func TestTx_Rollback(t *testing.T) {
	page, state := samplePage(t)
	original := page.Clone()

	tx := Begin(page, state)
	require.NoError(t, tx.DeleteShape("rect1"))
	require.NoError(t, tx.CreateShape(&document.Shape{ID: "new", Type: document.ShapeRectangle, ParentID: page.ID}))
	tx.SetSelection([]string{"new"})
	tx.Rollback()

	assert.Equal(t, original, page)
	assert.Empty(t, state.SelectedIDs)
}

func TestTx_CreateDuplicateDoesNotRecord(t *testing.T) {
	page, state := samplePage(t)
	tx := Begin(page, state)

	err := tx.CreateShape(&document.Shape{ID: "rect1", Type: document.ShapeRectangle})
	assert.ErrorIs(t, err, document.ErrDuplicateID)

	before, _ := tx.Diff()
	assert.True(t, before.Empty())
}

func TestHistory_UndoRedo(t *testing.T) {
	page, state := samplePage(t)
	original := page.Clone()
	h := New(0)

	h.Push(move(t, page, state, "rect1", geom.V(10, 0)))
	moved := page.Clone()

	_, ok := h.Undo(page, state)
	require.True(t, ok)
	assert.Equal(t, original, page)

	_, ok = h.Undo(page, state)
	assert.False(t, ok, "undo past the start is a no-op")

	_, ok = h.Redo(page, state)
	require.True(t, ok)
	assert.Equal(t, moved, page)

	_, ok = h.Redo(page, state)
	assert.False(t, ok, "redo at the top is a no-op")
}

func TestHistory_PushPrunesRedoTail(t *testing.T) {
	page, state := samplePage(t)
	h := New(0)

	h.Push(move(t, page, state, "rect1", geom.V(10, 0)))
	h.Push(move(t, page, state, "rect1", geom.V(10, 0)))
	h.Undo(page, state)
	h.Undo(page, state)
	require.Equal(t, 2, h.Len())
	require.True(t, h.CanRedo())

	h.Push(move(t, page, state, "rect2", geom.V(0, 10)))
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, 0, h.Pointer())
	assert.False(t, h.CanRedo())
}

func TestHistory_MergeKeepsOldestBefore(t *testing.T) {
	page, state := samplePage(t)
	h := New(0)

	for range 3 {
		c := move(t, page, state, "rect1", geom.V(10, 0))
		c.Mergeable = true
		c.SessionID = "s1"
		h.Push(c)
	}
	require.Equal(t, 1, h.Len())

	top, _ := h.Top()
	assert.Equal(t, geom.V(0, 0), top.Before.Shapes["rect1"].Point)
	assert.Equal(t, geom.V(30, 0), top.After.Shapes["rect1"].Point)

	h.Undo(page, state)
	assert.Equal(t, geom.V(0, 0), page.Shapes["rect1"].Point)
}

func TestHistory_DifferentSessionsDoNotMerge(t *testing.T) {
	page, state := samplePage(t)
	h := New(0)

	for _, sid := range []string{"s1", "s2"} {
		c := move(t, page, state, "rect1", geom.V(10, 0))
		c.Mergeable = true
		c.SessionID = sid
		h.Push(c)
	}
	assert.Equal(t, 2, h.Len())
}

func TestHistory_LimitEvictsOldest(t *testing.T) {
	page, state := samplePage(t)
	h := New(2)

	for range 3 {
		h.Push(move(t, page, state, "rect1", geom.V(1, 0)))
	}
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, 1, h.Pointer())

	h.Undo(page, state)
	h.Undo(page, state)
	assert.False(t, h.CanUndo())
	assert.Equal(t, geom.V(1, 0), page.Shapes["rect1"].Point)
}

func TestHistory_Discard(t *testing.T) {
	page, state := samplePage(t)
	h := New(0)

	h.Push(move(t, page, state, "rect1", geom.V(1, 0)))
	_, ok := h.Discard()
	require.True(t, ok)
	assert.Equal(t, 0, h.Len())
	assert.False(t, h.CanUndo())
}

func TestHistory_SealMakesLiveCommandPermanent(t *testing.T) {
	page, state := samplePage(t)
	h := New(0)

	c := move(t, page, state, "rect1", geom.V(10, 0))
	c.Mergeable = true
	c.SessionID = "s1"
	h.Push(c)

	_, ok := h.Seal("other")
	assert.False(t, ok)

	sealed, ok := h.Seal("s1")
	require.True(t, ok)
	assert.False(t, sealed.Mergeable)

	// A later live command of the same session no longer merges.
	next := move(t, page, state, "rect1", geom.V(10, 0))
	next.Mergeable = true
	next.SessionID = "s1"
	h.Push(next)
	assert.Equal(t, 2, h.Len())
}

func TestHistory_SealDropsNoop(t *testing.T) {
	page, state := samplePage(t)
	h := New(0)

	for _, d := range []geom.Vec{geom.V(10, 0), geom.V(-10, 0)} {
		c := move(t, page, state, "rect1", d)
		c.Mergeable = true
		c.SessionID = "s1"
		h.Push(c)
	}
	top, _ := h.Top()
	assert.True(t, top.IsNoop())

	_, ok := h.Seal("s1")
	assert.False(t, ok)
	assert.Equal(t, 0, h.Len())
}
