package editor

import (
	"slices"
	"strings"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/geom"
	"github.com/inamate/whiteboard/internal/input"
	"github.com/inamate/whiteboard/internal/selection"
	"github.com/inamate/whiteboard/internal/session"
)

// Pointer targets. A target is either a shape id or one of these.
const (
	TargetCanvas = "canvas"
	TargetRotate = "rotate"
	// TargetHandlePrefix is followed by "<shapeID>:<handleID>".
	TargetHandlePrefix = "handle:"
	// TargetBoundsPrefix is followed by a session.Edge.
	TargetBoundsPrefix = "bounds:"
)

type toolStatus int

const (
	statusIdle toolStatus = iota
	statusPointingCanvas
	statusPointingShape
	statusPointingHandle
	statusPointingBounds
	statusPointingRotate
	statusBrushing
)

// toolState is what the select tool remembers between pointer events.
type toolState struct {
	status   toolStatus
	shapeID  string
	handleID string
	edge     session.Edge
	// initial is the selection when a shift-brush started.
	initial []string
}

// pagePoint maps a screen point into page space through the camera.
func (e *Editor) pagePoint(p geom.Vec) geom.Vec {
	_, state := e.current()
	zoom := state.Camera.Zoom
	if zoom == 0 {
		zoom = 1
	}
	return p.Mul(1 / zoom).Sub(state.Camera.Point)
}

// OnPointerDown routes a press on target to the select tool.
func (e *Editor) OnPointerDown(ev input.PointerEvent, target string) error {
	double := input.IsDoubleClick(e.input, ev.Time)
	var info input.PointerInfo
	e.input, info = input.PointerDown(e.input, ev, target)

	page, state := e.current()
	switch {
	case target == "" || target == TargetCanvas:
		e.tool = toolState{status: statusPointingCanvas}
		if info.Shift {
			e.tool.initial = slices.Clone(state.SelectedIDs)
			return nil
		}
		return e.DeselectAll()

	case target == TargetRotate:
		e.tool = toolState{status: statusPointingRotate}
		return nil

	case strings.HasPrefix(target, TargetBoundsPrefix):
		e.tool = toolState{status: statusPointingBounds, edge: session.Edge(strings.TrimPrefix(target, TargetBoundsPrefix))}
		return nil

	case strings.HasPrefix(target, TargetHandlePrefix):
		shapeID, handleID, _ := strings.Cut(strings.TrimPrefix(target, TargetHandlePrefix), ":")
		e.tool = toolState{status: statusPointingHandle, shapeID: shapeID, handleID: handleID}
		return nil
	}

	if _, ok := page.Shape(target); !ok {
		e.tool = toolState{}
		return nil
	}
	e.tool = toolState{status: statusPointingShape, shapeID: target}

	pick := selection.Outermost(page, target)
	if double && slices.Contains(state.SelectedIDs, pick) && pick != target {
		// Double clicking inside a selected group selects the shape itself.
		pick = target
	}
	switch {
	case info.Shift && slices.Contains(state.SelectedIDs, pick):
		return e.Select(slices.DeleteFunc(slices.Clone(state.SelectedIDs), func(id string) bool { return id == pick })...)
	case info.Shift:
		return e.Select(append(slices.Clone(state.SelectedIDs), pick)...)
	case slices.Contains(state.SelectedIDs, pick):
		return nil
	default:
		return e.Select(pick)
	}
}

// OnPointerMove drives the running session, or starts one once the press
// has moved far enough to be a drag.
func (e *Editor) OnPointerMove(ev input.PointerEvent, target string) error {
	var info input.PointerInfo
	e.input, info = input.PointerMove(e.input, ev, target)
	point := e.pagePoint(info.Point)

	if _, _, active := e.sessions.Active(); active {
		return e.UpdateSession(point, info.Modifiers)
	}
	if e.tool.status == statusIdle || input.IsStationary(info) {
		return nil
	}

	origin := e.pagePoint(info.Origin)
	var err error
	switch e.tool.status {
	case statusPointingCanvas, statusBrushing:
		e.tool.status = statusBrushing
		return e.brush(origin, point)
	case statusPointingShape:
		err = e.StartTranslateSession(origin)
	case statusPointingHandle:
		err = e.StartHandleSession(origin, e.tool.handleID, e.tool.shapeID)
	case statusPointingBounds:
		err = e.StartTransformSession(origin, e.tool.edge)
	case statusPointingRotate:
		err = e.StartRotateSession(origin)
	}
	if err != nil {
		e.tool = toolState{}
		return err
	}
	return e.UpdateSession(point, info.Modifiers)
}

// OnPointerUp completes the running session.
func (e *Editor) OnPointerUp(ev input.PointerEvent, target string) error {
	e.input, _ = input.PointerUp(e.input, ev, target)
	e.tool = toolState{}
	if _, _, active := e.sessions.Active(); active {
		return e.CompleteSession()
	}
	return nil
}

// brush selects the top-level shapes touching the rectangle from origin to
// point, added to the selection held when a shift-brush started.
func (e *Editor) brush(origin, point geom.Vec) error {
	page, state := e.current()
	area := geom.RectFromPoints(origin, point)
	ids := append([]string{}, e.tool.initial...)
	for _, id := range selection.All(page) {
		s := page.Shapes[id]
		if area.Intersects(document.Bounds(s)) && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	state.SelectedIDs = ids
	return nil
}
