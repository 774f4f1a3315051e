package editor

import (
	"fmt"

	"github.com/inamate/whiteboard/internal/geom"
	"github.com/inamate/whiteboard/internal/history"
	"github.com/inamate/whiteboard/internal/input"
	"github.com/inamate/whiteboard/internal/session"
)

var errSessionActive = fmt.Errorf("a session is active: %w", session.ErrInvalidSessionState)

// Sessions record one live command per interaction. Every update replaces
// it; completion seals it as a permanent command and cancellation restores
// the page from it and drops it.

func sessionCommand(k session.Kind) string {
	return "session:" + string(k)
}

// StartTranslateSession starts dragging the selection from point.
func (e *Editor) StartTranslateSession(point geom.Vec) error {
	page, _ := e.current()
	ids, err := e.requireSelection("translate")
	if err != nil {
		return err
	}
	return e.startSession(session.NewTranslate(page, ids, point))
}

// StartTransformSession starts resizing the selection by edge from point.
func (e *Editor) StartTransformSession(point geom.Vec, edge session.Edge) error {
	page, _ := e.current()
	ids, err := e.requireSelection("transform")
	if err != nil {
		return err
	}
	s, err := session.NewTransform(page, ids, edge, point)
	if err != nil {
		return err
	}
	return e.startSession(s)
}

// StartRotateSession starts rotating the selection from point.
func (e *Editor) StartRotateSession(point geom.Vec) error {
	page, _ := e.current()
	ids, err := e.requireSelection("rotate")
	if err != nil {
		return err
	}
	return e.startSession(session.NewRotate(page, ids, point))
}

// StartHandleSession starts dragging handleID of shapeID from point. An
// empty shapeID uses the only selected shape.
func (e *Editor) StartHandleSession(point geom.Vec, handleID, shapeID string) error {
	page, state := e.current()
	if shapeID == "" {
		if len(state.SelectedIDs) != 1 {
			return fmt.Errorf("handle session: select exactly one shape: %w", session.ErrInvalidSessionState)
		}
		shapeID = state.SelectedIDs[0]
	}
	s, err := session.NewHandle(page, shapeID, handleID, point, e.opts.NewBindingID)
	if err != nil {
		return err
	}
	return e.startSession(s)
}

func (e *Editor) requireSelection(op string) ([]string, error) {
	_, state := e.current()
	if len(state.SelectedIDs) == 0 {
		return nil, fmt.Errorf("%s session: nothing selected: %w", op, session.ErrInvalidSessionState)
	}
	return state.SelectedIDs, nil
}

func (e *Editor) startSession(s session.Session) error {
	id, err := e.sessions.Start(s)
	if err != nil {
		return err
	}
	e.log.Debug("session started", "kind", s.Kind(), "session", id, "shapes", len(s.Shapes()))
	return nil
}

// UpdateSession moves the running session's pointer to point.
func (e *Editor) UpdateSession(point geom.Vec, mods input.Modifiers) error {
	s, id, err := e.sessions.Require("update session")
	if err != nil {
		return err
	}
	tx, err := e.record(func(tx *history.Tx) error {
		return s.Update(tx, point, mods)
	})
	if err != nil {
		return fmt.Errorf("update %s session: %w", s.Kind(), err)
	}
	e.pushLive(s, id, tx)
	return nil
}

// UpdateHandleSession is UpdateSession for handle drags.
func (e *Editor) UpdateHandleSession(point geom.Vec, mods input.Modifiers) error {
	s, _, err := e.sessions.Require("update handle session")
	if err != nil {
		return err
	}
	if s.Kind() != session.KindHandle {
		return fmt.Errorf("update handle session: running session is %s: %w", s.Kind(), session.ErrInvalidSessionState)
	}
	return e.UpdateSession(point, mods)
}

// CompleteSession finishes the running session and records its effect as
// one command. A session that changed nothing records nothing. If the
// final step fails, the session stays active and can be cancelled.
func (e *Editor) CompleteSession() error {
	s, id, err := e.sessions.Require("complete session")
	if err != nil {
		return err
	}
	tx, err := e.record(s.Complete)
	if err != nil {
		return fmt.Errorf("complete %s session: %w", s.Kind(), err)
	}
	e.pushLive(s, id, tx)

	if c, ok := e.history.Seal(id); ok {
		e.log.Debug("session completed", "kind", s.Kind(), "session", id, "command", c.ID)
	} else {
		e.log.Debug("session completed without changes", "kind", s.Kind(), "session", id)
	}
	return e.sessions.Finish(session.StateCompleted)
}

// CancelSession restores the page to how it was before the running session
// started. Without a running session it does nothing.
func (e *Editor) CancelSession() error {
	s, id, ok := e.sessions.Active()
	if !ok {
		return nil
	}
	if top, ok := e.history.Top(); ok && top.Mergeable && top.SessionID == id {
		page, state := e.current()
		top.Before.ApplyTo(page, state)
		e.history.Discard()
		e.doc.Version++
	}
	e.log.Debug("session cancelled", "kind", s.Kind(), "session", id)
	return e.sessions.Finish(session.StateCancelled)
}

// pushLive records the changes in tx as the session's live command.
func (e *Editor) pushLive(s session.Session, id string, tx *history.Tx) {
	before, after := tx.Diff()
	if after.Empty() {
		return
	}
	c := history.NewCommand(sessionCommand(s.Kind()), before, after)
	c.Mergeable = true
	c.SessionID = id
	e.history.Push(c)
	e.sessions.MarkUpdated()
	e.doc.Version++
}

// ActiveSession reports the kind of the running session.
func (e *Editor) ActiveSession() (session.Kind, bool) {
	s, _, ok := e.sessions.Active()
	if !ok {
		return "", false
	}
	return s.Kind(), true
}
