// Package engine is the string-in, string-out face of the editor used by
// the browser build. Every argument and result is JSON so the JS side
// never handles Go values.
package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/editor"
	"github.com/inamate/whiteboard/internal/geom"
	"github.com/inamate/whiteboard/internal/input"
	"github.com/inamate/whiteboard/internal/session"
)

// Engine owns an editor and translates JSON calls into editor calls.
type Engine struct {
	ed *editor.Editor
}

func NewEngine(opts editor.Options) *Engine {
	return &Engine{ed: editor.New(opts)}
}

// Editor exposes the wrapped editor.
func (e *Engine) Editor() *editor.Editor { return e.ed }

// --- Commands (frontend → engine) ---

// LoadDocument replaces the document with the one encoded in jsonData.
func (e *Engine) LoadDocument(jsonData string) error {
	var doc document.Document
	if err := json.Unmarshal([]byte(jsonData), &doc); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return e.ed.LoadDocument(&doc)
}

// LoadSampleDocument loads the built-in three-rectangle document.
func (e *Engine) LoadSampleDocument(docID string) error {
	return e.ed.LoadDocument(document.NewSampleDocument(docID))
}

func (e *Engine) NewProject(docID string) { e.ed.NewProject(docID) }

func (e *Engine) Select(idsJSON string) error {
	ids, err := decodeIDs(idsJSON)
	if err != nil {
		return err
	}
	return e.ed.Select(ids...)
}

func (e *Engine) SelectAll() error   { return e.ed.SelectAll() }
func (e *Engine) DeselectAll() error { return e.ed.DeselectAll() }

// CreateShapes takes a JSON array of shapes.
func (e *Engine) CreateShapes(shapesJSON string) error {
	var shapes []*document.Shape
	if err := json.Unmarshal([]byte(shapesJSON), &shapes); err != nil {
		return fmt.Errorf("decode shapes: %w", err)
	}
	return e.ed.CreateShapes(shapes...)
}

// UpdateShapes takes a JSON array of {id, ...patch}.
func (e *Engine) UpdateShapes(updatesJSON string) error {
	var updates []editor.ShapeUpdate
	if err := json.Unmarshal([]byte(updatesJSON), &updates); err != nil {
		return fmt.Errorf("decode updates: %w", err)
	}
	return e.ed.UpdateShapes(updates...)
}

// Delete, Group and Ungroup take a JSON array of ids; an empty string
// means the selection.
func (e *Engine) Delete(idsJSON string) error {
	ids, err := decodeIDs(idsJSON)
	if err != nil {
		return err
	}
	return e.ed.Delete(ids...)
}

func (e *Engine) Group(idsJSON string) error {
	ids, err := decodeIDs(idsJSON)
	if err != nil {
		return err
	}
	return e.ed.Group(ids...)
}

func (e *Engine) Ungroup(idsJSON string) error {
	ids, err := decodeIDs(idsJSON)
	if err != nil {
		return err
	}
	return e.ed.Ungroup(ids...)
}

func (e *Engine) Undo() error { return e.ed.Undo() }
func (e *Engine) Redo() error { return e.ed.Redo() }

// StartSession starts a session of kind at page point (x, y). edge is used
// by transform sessions; handleID and shapeID by handle sessions.
func (e *Engine) StartSession(kind string, x, y float64, edge, handleID, shapeID string) error {
	p := geom.V(x, y)
	switch session.Kind(kind) {
	case session.KindTranslate:
		return e.ed.StartTranslateSession(p)
	case session.KindTransform:
		return e.ed.StartTransformSession(p, session.Edge(edge))
	case session.KindRotate:
		return e.ed.StartRotateSession(p)
	case session.KindHandle:
		return e.ed.StartHandleSession(p, handleID, shapeID)
	}
	return fmt.Errorf("start %q session: %w", kind, session.ErrInvalidSessionState)
}

// UpdateSession moves the session pointer. modsJSON holds the modifier
// keys and may be empty.
func (e *Engine) UpdateSession(x, y float64, modsJSON string) error {
	var mods input.Modifiers
	if modsJSON != "" {
		if err := json.Unmarshal([]byte(modsJSON), &mods); err != nil {
			return fmt.Errorf("decode modifiers: %w", err)
		}
	}
	return e.ed.UpdateSession(geom.V(x, y), mods)
}

func (e *Engine) CompleteSession() error { return e.ed.CompleteSession() }
func (e *Engine) CancelSession() error   { return e.ed.CancelSession() }

// pointerEvent is a DOM pointer event as sent by the frontend. Time is in
// milliseconds since the epoch.
type pointerEvent struct {
	PointerID int     `json:"pointerId"`
	ClientX   float64 `json:"clientX"`
	ClientY   float64 `json:"clientY"`
	Pressure  float64 `json:"pressure"`
	input.Modifiers
	Time int64 `json:"time"`
}

func decodePointer(eventJSON string) (input.PointerEvent, error) {
	var ev pointerEvent
	if err := json.Unmarshal([]byte(eventJSON), &ev); err != nil {
		return input.PointerEvent{}, fmt.Errorf("decode pointer event: %w", err)
	}
	return input.PointerEvent{
		PointerID: ev.PointerID,
		ClientX:   ev.ClientX,
		ClientY:   ev.ClientY,
		Pressure:  ev.Pressure,
		Modifiers: ev.Modifiers,
		Time:      time.UnixMilli(ev.Time),
	}, nil
}

// PointerDown, PointerMove and PointerUp route raw pointer events to the
// select tool. target is a shape id or one of the editor.Target values.
func (e *Engine) PointerDown(eventJSON, target string) error {
	ev, err := decodePointer(eventJSON)
	if err != nil {
		return err
	}
	return e.ed.OnPointerDown(ev, target)
}

func (e *Engine) PointerMove(eventJSON, target string) error {
	ev, err := decodePointer(eventJSON)
	if err != nil {
		return err
	}
	return e.ed.OnPointerMove(ev, target)
}

func (e *Engine) PointerUp(eventJSON, target string) error {
	ev, err := decodePointer(eventJSON)
	if err != nil {
		return err
	}
	return e.ed.OnPointerUp(ev, target)
}

// --- Queries (frontend ← engine) ---

// Render returns the draw commands of the current page as JSON.
func (e *Engine) Render() string {
	return marshal(CompileDrawCommands(e.ed.Page(), e.ed.PageState()), "[]")
}

// HitTest returns the id of the frontmost shape at page point (x, y), or "".
func (e *Engine) HitTest(x, y float64) string {
	return HitTest(e.ed.Page(), geom.V(x, y))
}

// GetSelectionBounds returns the bounds of the selection as JSON.
func (e *Engine) GetSelectionBounds() string {
	page := e.ed.Page()
	var shapes []*document.Shape
	for _, id := range e.ed.SelectedIDs() {
		if s, ok := page.Shape(id); ok {
			shapes = append(shapes, s)
		}
	}
	var r geom.Rect
	if len(shapes) > 0 {
		r = document.CommonBounds(shapes)
	}
	return marshal(map[string]float64{"x": r.X, "y": r.Y, "width": r.Width, "height": r.Height}, "{}")
}

func (e *Engine) GetDocument() string  { return marshal(e.ed.Document(), "{}") }
func (e *Engine) GetPage() string      { return marshal(e.ed.Page(), "{}") }
func (e *Engine) GetPageState() string { return marshal(e.ed.PageState(), "{}") }
func (e *Engine) GetSelection() string { return marshal(e.ed.SelectedIDs(), "[]") }
func (e *Engine) GetBindings() string  { return marshal(e.ed.Bindings(), "[]") }

// GetEditorState returns undo/redo availability and the running session.
func (e *Engine) GetEditorState() string {
	kind, active := e.ed.ActiveSession()
	return marshal(map[string]any{
		"canUndo": e.ed.CanUndo(),
		"canRedo": e.ed.CanRedo(),
		"session": string(kind),
		"active":  active,
		"version": e.ed.Version(),
	}, "{}")
}

func decodeIDs(idsJSON string) ([]string, error) {
	if idsJSON == "" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(idsJSON), &ids); err != nil {
		return nil, fmt.Errorf("decode ids: %w", err)
	}
	return ids, nil
}

func marshal(v any, fallback string) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fallback
	}
	return string(data)
}
