package hub

import (
	"encoding/json"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/editor"
	"github.com/inamate/whiteboard/internal/geom"
	"github.com/inamate/whiteboard/internal/input"
)

type Message struct {
	Type     string          `json:"type"`
	BoardID  string          `json:"boardId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Document sync
	TypeDocSync    = "doc.sync"
	TypeDocRequest = "doc.request"

	TypeOpSubmit = "op.submit"
	TypeOpAck    = "op.ack"
	TypeOpNack   = "op.nack"
)

// Operation types. Each maps onto one editor call.
const (
	OpSelect          = "select"
	OpSelectAll       = "select.all"
	OpDeselectAll     = "deselect.all"
	OpCreate          = "create"
	OpUpdate          = "update"
	OpDelete          = "delete"
	OpGroup           = "group"
	OpUngroup         = "ungroup"
	OpUndo            = "undo"
	OpRedo            = "redo"
	OpSessionStart    = "session.start"
	OpSessionUpdate   = "session.update"
	OpSessionComplete = "session.complete"
	OpSessionCancel   = "session.cancel"
)

// Operation is a request to change the board.
type Operation struct {
	ID        string `json:"id" validate:"required,max=64"`
	Type      string `json:"type" validate:"required,oneof=select select.all deselect.all create update delete group ungroup undo redo session.start session.update session.complete session.cancel"`
	ClientSeq int64  `json:"clientSeq"`

	// IDs are the shapes to act on. Empty means the selection. For
	// session.start they replace the selection first.
	IDs []string `json:"ids,omitempty" validate:"omitempty,max=1000"`

	// For create
	Shapes []*document.Shape `json:"shapes,omitempty" validate:"required_if=Type create,dive,required"`
	// For update
	Updates []editor.ShapeUpdate `json:"updates,omitempty" validate:"required_if=Type update"`

	// For session.*
	Session  string    `json:"session,omitempty" validate:"required_if=Type session.start"`
	Point    *geom.Vec `json:"point,omitempty" validate:"required_if=Type session.start,required_if=Type session.update"`
	Edge     string    `json:"edge,omitempty"`
	HandleID string    `json:"handleId,omitempty"`
	ShapeID  string    `json:"shapeId,omitempty"`
	input.Modifiers
}

type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

type OperationAckPayload struct {
	OperationID string `json:"operationId"`
	ServerSeq   int64  `json:"serverSeq"`
	Version     int    `json:"version"`
}

type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Code        string `json:"code"`
	Reason      string `json:"reason"`
}

type WelcomePayload struct {
	ClientID  string `json:"clientId"`
	UserID    string `json:"userId"`
	BoardID   string `json:"boardId"`
	ServerSeq int64  `json:"serverSeq"`
}

// DocSyncPayload is the full board state, sent after every applied
// operation.
type DocSyncPayload struct {
	Version      int                `json:"version"`
	ServerSeq    int64              `json:"serverSeq"`
	Document     *document.Document `json:"document"`
	CanUndo      bool               `json:"canUndo"`
	CanRedo      bool               `json:"canRedo"`
	Session      string             `json:"session,omitempty"`
	SessionOwner string             `json:"sessionOwner,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type PresencePayload struct {
	Cursor      *geom.Vec `json:"cursor,omitempty"`
	Selection   []string  `json:"selection,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

// newMessage builds a message with payload encoded as JSON.
func newMessage(msgType string, payload any) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		// Payloads are plain structs; a failure here is a programming error.
		panic(err)
	}
	return &Message{Type: msgType, Payload: data}
}
