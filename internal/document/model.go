package document

import "github.com/inamate/whiteboard/internal/geom"

// Document is the full editable state: pages of shapes and bindings plus the
// per-page UI state. It is exclusively owned by one editor instance.
type Document struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Version       int                   `json:"version"`
	CurrentPageID string                `json:"currentPageId"`
	Pages         map[string]*Page      `json:"pages"`
	PageStates    map[string]*PageState `json:"pageStates"`
}

type Page struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	Shapes   map[string]*Shape   `json:"shapes"`
	Bindings map[string]*Binding `json:"bindings"`
}

// PageState is the UI-relevant state of a page. It is recorded by commands so
// undo restores the selection, but it is not document content.
type PageState struct {
	ID          string   `json:"id"`
	SelectedIDs []string `json:"selectedIds"`
	HoveredID   string   `json:"hoveredId,omitempty"`
	Tool        string   `json:"tool"`
	Camera      Camera   `json:"camera"`
}

type Camera struct {
	Point geom.Vec `json:"point"`
	Zoom  float64  `json:"zoom"`
}

type ShapeType string

const (
	ShapeRectangle ShapeType = "rectangle"
	ShapeEllipse   ShapeType = "ellipse"
	ShapeArrow     ShapeType = "arrow"
	ShapeGroup     ShapeType = "group"
)

// Shape is a drawable entity. Point is the top-left corner in page space and
// Rotation (radians) turns the shape around the center of Size.
// Children is only set on groups; Handles only on shapes with handles.
type Shape struct {
	ID         string            `json:"id"`
	Type       ShapeType         `json:"type"`
	Name       string            `json:"name,omitempty"`
	ParentID   string            `json:"parentId"`
	ChildIndex float64           `json:"childIndex"`
	Point      geom.Vec          `json:"point"`
	Size       geom.Vec          `json:"size"`
	Rotation   float64           `json:"rotation"`
	Children   []string          `json:"children,omitempty"`
	Handles    map[string]Handle `json:"handles,omitempty"`
}

// Handle is a draggable control point. Point is relative to the owning
// shape's Point and is not rotated.
type Handle struct {
	ID        string   `json:"id"`
	Index     int      `json:"index"`
	Point     geom.Vec `json:"point"`
	BindingID string   `json:"bindingId,omitempty"`
}

// Binding is a directed edge from a handle of FromID to the shape ToID.
type Binding struct {
	ID     string      `json:"id"`
	FromID string      `json:"fromId"`
	ToID   string      `json:"toId"`
	Meta   BindingMeta `json:"meta"`
}

// BindingMeta holds arrow-binding data. Point is the anchor inside the
// target's bounds, normalised to 0..1 on each axis.
type BindingMeta struct {
	HandleID string   `json:"handleId"`
	Point    geom.Vec `json:"point"`
	Distance float64  `json:"distance"`
}

// ShapePatch lists the fields to change on a shape. Nil fields are left
// untouched; Handles entries replace the handle of the same name.
type ShapePatch struct {
	Name       *string           `json:"name,omitempty"`
	ParentID   *string           `json:"parentId,omitempty"`
	ChildIndex *float64          `json:"childIndex,omitempty"`
	Point      *geom.Vec         `json:"point,omitempty"`
	Size       *geom.Vec         `json:"size,omitempty"`
	Rotation   *float64          `json:"rotation,omitempty"`
	Children   *[]string         `json:"children,omitempty"`
	Handles    map[string]Handle `json:"handles,omitempty"`
}

type BindingPatch struct {
	ToID *string      `json:"toId,omitempty"`
	Meta *BindingMeta `json:"meta,omitempty"`
}

const (
	DefaultPageID = "page1"
	ToolSelect    = "select"
)

// NewPage creates an empty page.
func NewPage(id, name string) *Page {
	return &Page{
		ID:       id,
		Name:     name,
		Shapes:   map[string]*Shape{},
		Bindings: map[string]*Binding{},
	}
}

// NewPageState creates the initial UI state for a page.
func NewPageState(pageID string) *PageState {
	return &PageState{
		ID:          pageID,
		SelectedIDs: []string{},
		Tool:        ToolSelect,
		Camera:      Camera{Zoom: 1},
	}
}

// NewEmptyDocument creates a document with a single empty page.
func NewEmptyDocument(docID, name, pageID string) *Document {
	return &Document{
		ID:            docID,
		Name:          name,
		Version:       1,
		CurrentPageID: pageID,
		Pages: map[string]*Page{
			pageID: NewPage(pageID, "Page 1"),
		},
		PageStates: map[string]*PageState{
			pageID: NewPageState(pageID),
		},
	}
}

// CurrentPage returns the active page and its state.
func (d *Document) CurrentPage() (*Page, *PageState) {
	return d.Pages[d.CurrentPageID], d.PageStates[d.CurrentPageID]
}
