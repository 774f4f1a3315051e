// Package session turns a continuous pointer interaction into shape changes.
// A Session computes the effect of the pointer at each update from the
// snapshots it took at start; the Machine enforces that only one session
// runs at a time.
package session

import (
	"errors"
	"fmt"

	"github.com/inamate/whiteboard/internal/geom"
	"github.com/inamate/whiteboard/internal/history"
	"github.com/inamate/whiteboard/internal/input"
	"github.com/inamate/whiteboard/internal/typeid"
)

var ErrInvalidSessionState = errors.New("invalid session state")

type Kind string

const (
	KindTranslate Kind = "translate"
	KindTransform Kind = "transform"
	KindRotate    Kind = "rotate"
	KindHandle    Kind = "handle"
)

type State string

const (
	StateIdle      State = "idle"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// Session is one kind of interaction.
type Session interface {
	Kind() Kind
	// Origin is the page point where the interaction started.
	Origin() geom.Vec
	// Update writes the effect of the pointer being at point through tx.
	Update(tx *history.Tx, point geom.Vec, mods input.Modifiers) error
	// Complete writes any final effect through tx, such as binding
	// resolution. It runs after the last Update.
	Complete(tx *history.Tx) error
	// Shapes lists the shapes the session edits.
	Shapes() []string
}

// Machine tracks the lifecycle of the current session.
type Machine struct {
	current Session
	id      string
	state   State
	last    State
	updated bool
}

func NewMachine() *Machine {
	return &Machine{state: StateIdle, last: StateIdle}
}

// Start makes s the active session. Starting while another session is
// active is rejected and changes nothing.
func (m *Machine) Start(s Session) (string, error) {
	if m.state == StateActive {
		return "", fmt.Errorf("start %s session: %s session %s is active: %w",
			s.Kind(), m.current.Kind(), m.id, ErrInvalidSessionState)
	}
	m.current = s
	m.id = typeid.NewSessionID()
	m.state = StateActive
	m.updated = false
	return m.id, nil
}

// Active returns the running session and its id.
func (m *Machine) Active() (Session, string, bool) {
	if m.state != StateActive {
		return nil, "", false
	}
	return m.current, m.id, true
}

// Require returns the running session or ErrInvalidSessionState.
func (m *Machine) Require(op string) (Session, string, error) {
	s, id, ok := m.Active()
	if !ok {
		return nil, "", fmt.Errorf("%s: no active session: %w", op, ErrInvalidSessionState)
	}
	return s, id, nil
}

// MarkUpdated records that the session has pushed a live command.
func (m *Machine) MarkUpdated() { m.updated = true }

// Updated reports whether the session has pushed a live command.
func (m *Machine) Updated() bool { return m.updated }

// Finish ends the active session with a terminal state and returns the
// machine to idle.
func (m *Machine) Finish(final State) error {
	if m.state != StateActive {
		return fmt.Errorf("finish session: %w", ErrInvalidSessionState)
	}
	if final != StateCompleted && final != StateCancelled {
		return fmt.Errorf("finish session with %q: %w", final, ErrInvalidSessionState)
	}
	m.current = nil
	m.id = ""
	m.updated = false
	m.state = StateIdle
	m.last = final
	return nil
}

// State is idle or active.
func (m *Machine) State() State { return m.state }

// Last is how the most recent session ended.
func (m *Machine) Last() State { return m.last }

// Reset drops any session without recording its outcome.
func (m *Machine) Reset() {
	*m = *NewMachine()
}
