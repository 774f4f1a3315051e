package document

import "github.com/inamate/whiteboard/internal/geom"

// NewSampleDocument returns a one-page document with three overlapping
// rectangles: rect1 at [0,0], rect2 at [100,100] and rect3 at [20,20], each
// 100x100, stacked in that order.
func NewSampleDocument(docID string) *Document {
	doc := NewEmptyDocument(docID, "Untitled", DefaultPageID)
	page := doc.Pages[DefaultPageID]

	for i, seed := range []struct {
		id    string
		point geom.Vec
	}{
		{"rect1", geom.V(0, 0)},
		{"rect2", geom.V(100, 100)},
		{"rect3", geom.V(20, 20)},
	} {
		page.PutShape(&Shape{
			ID:         seed.id,
			Type:       ShapeRectangle,
			Name:       "Rectangle",
			ParentID:   page.ID,
			ChildIndex: float64(i + 1),
			Point:      seed.point,
			Size:       geom.V(100, 100),
		})
	}

	return doc
}
