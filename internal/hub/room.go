package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inamate/whiteboard/internal/binding"
	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/editor"
	"github.com/inamate/whiteboard/internal/session"
	"github.com/inamate/whiteboard/internal/validation"
)

var errSessionOwned = errors.New("another client is running a session")

const saveTimeout = 10 * time.Second

type eventKind int

const (
	evJoin eventKind = iota
	evLeave
	evMessage
	evDocument
	evStop
)

type event struct {
	kind   eventKind
	client *Client
	msg    *Message
	done   chan struct{}
	reply  chan *document.Document
}

// Room is one open board. Everything but members is owned by the run
// goroutine.
type Room struct {
	hub     *Hub
	boardID string
	members int // guarded by hub.mu

	editor   *editor.Editor
	clients  map[string]*Client // clientID -> client
	presence *PresenceManager
	inbox    chan event
	quit     chan struct{}

	serverSeq    int64
	savedVersion int
	sessionOwner string
	sessionKind  session.Kind
	log          *slog.Logger
}

func newRoom(h *Hub, boardID string, doc *document.Document) (*Room, error) {
	log := h.log.With("board", boardID)
	opts := h.opts.Editor
	opts.Logger = log

	ed := editor.New(opts)
	if doc == nil {
		ed.NewProject(boardID)
	} else if err := ed.LoadDocument(doc); err != nil {
		return nil, fmt.Errorf("open board %s: %w", boardID, err)
	}

	return &Room{
		hub:          h,
		boardID:      boardID,
		editor:       ed,
		clients:      make(map[string]*Client),
		presence:     NewPresenceManager(),
		inbox:        make(chan event, 64),
		quit:         make(chan struct{}),
		savedVersion: ed.Version(),
		log:          log,
	}, nil
}

// post queues ev for the room. It reports false once the room has stopped.
func (r *Room) post(ev event) bool {
	select {
	case r.inbox <- ev:
		return true
	case <-r.quit:
		return false
	}
}

// stop ends the run loop after the events already queued and waits for the
// final save.
func (r *Room) stop() {
	done := make(chan struct{})
	if r.post(event{kind: evStop, done: done}) {
		<-done
	}
}

func (r *Room) run() {
	ticker := time.NewTicker(r.hub.opts.SaveInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-r.inbox:
			switch ev.kind {
			case evJoin:
				r.join(ev.client)
			case evLeave:
				r.leave(ev.client)
			case evMessage:
				r.handleMessage(ev.client, ev.msg)
			case evDocument:
				ev.reply <- r.editor.Document()
			case evStop:
				r.shutdown()
				close(r.quit)
				close(ev.done)
				return
			}
		case <-ticker.C:
			if r.sessionOwner == "" {
				r.save()
			}
		}
	}
}

func (r *Room) join(c *Client) {
	r.clients[c.ClientID] = c

	c.Send(newMessage(TypeWelcome, WelcomePayload{
		ClientID:  c.ClientID,
		UserID:    c.UserID,
		BoardID:   r.boardID,
		ServerSeq: r.serverSeq,
	}))
	c.Send(r.syncMessage())
	c.Send(r.presence.StateMessage())

	join := newMessage(TypePresenceJoin, PresenceJoinPayload{UserID: c.UserID, DisplayName: c.DisplayName})
	join.UserID = c.UserID
	r.broadcast(join, c.ClientID)

	r.log.Info("client joined", "user", c.UserID, "client", c.ClientID)
}

func (r *Room) leave(c *Client) {
	if _, ok := r.clients[c.ClientID]; !ok {
		return
	}
	delete(r.clients, c.ClientID)
	close(c.send)
	r.presence.Remove(c.UserID)

	if r.sessionOwner == c.ClientID {
		if err := r.editor.CancelSession(); err != nil {
			r.log.Error("cancel abandoned session", "error", err)
		}
		r.endSession()
		r.broadcast(r.syncMessage(), "")
	}

	leave := newMessage(TypePresenceLeave, PresenceLeavePayload{UserID: c.UserID})
	leave.UserID = c.UserID
	r.broadcast(leave, "")

	r.log.Info("client left", "user", c.UserID, "client", c.ClientID)
}

func (r *Room) shutdown() {
	if r.sessionOwner != "" {
		if err := r.editor.CancelSession(); err != nil {
			r.log.Error("cancel session on shutdown", "error", err)
		}
		r.endSession()
	}
	r.save()
	for id, c := range r.clients {
		delete(r.clients, id)
		close(c.send)
	}
}

// save writes the document if it changed since the last save.
func (r *Room) save() {
	version := r.editor.Version()
	if version == r.savedVersion {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	err := r.hub.save(ctx, r.boardID, r.editor.Document())
	r.hub.opts.Metrics.ObserveSnapshot(err)
	if err != nil {
		r.log.Error("save board", "error", err)
		return
	}
	r.savedVersion = version
	r.log.Debug("board saved", "version", version)
}

func (r *Room) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		r.handlePresenceUpdate(sender, msg)
	case TypeOpSubmit:
		r.handleSubmit(sender, msg)
	case TypeDocRequest:
		sender.Send(r.syncMessage())
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		sender.Send(newMessage(TypeError, ErrorPayload{Message: "unknown message type " + msg.Type}))
	}
}

func (r *Room) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}
	presence.DisplayName = sender.DisplayName
	r.presence.Update(sender.UserID, &presence)

	out := newMessage(TypePresenceUpdate, presence)
	out.UserID = sender.UserID
	r.broadcast(out, sender.ClientID)
}

func (r *Room) handleSubmit(sender *Client, msg *Message) {
	var payload OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{Code: "invalid_operation", Reason: err.Error()}))
		return
	}
	op := payload.Operation

	start := time.Now()
	err := r.apply(sender, op)
	r.hub.opts.Metrics.ObserveOperation(op.Type, err, time.Since(start))
	if err != nil {
		r.log.Debug("operation rejected", "op", op.Type, "id", op.ID, "error", err)
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{
			OperationID: op.ID,
			Code:        errorCode(err),
			Reason:      err.Error(),
		}))
		return
	}

	r.serverSeq++
	ack := newMessage(TypeOpAck, OperationAckPayload{
		OperationID: op.ID,
		ServerSeq:   r.serverSeq,
		Version:     r.editor.Version(),
	})
	ack.Seq = r.serverSeq
	sender.Send(ack)

	page := r.editor.Page()
	r.presence.Prune(func(id string) bool {
		_, ok := page.Shapes[id]
		return ok
	})
	r.broadcast(r.syncMessage(), "")
}

// apply runs op against the editor on behalf of sender.
func (r *Room) apply(sender *Client, op Operation) error {
	if err := validation.Struct(op); err != nil {
		return err
	}
	if r.sessionOwner != "" && r.sessionOwner != sender.ClientID {
		return errSessionOwned
	}
	defer r.trackSession(sender)

	ed := r.editor
	switch op.Type {
	case OpSelect:
		return ed.Select(op.IDs...)
	case OpSelectAll:
		return ed.SelectAll()
	case OpDeselectAll:
		return ed.DeselectAll()
	case OpCreate:
		return ed.CreateShapes(op.Shapes...)
	case OpUpdate:
		return ed.UpdateShapes(op.Updates...)
	case OpDelete:
		return ed.Delete(op.IDs...)
	case OpGroup:
		return ed.Group(op.IDs...)
	case OpUngroup:
		return ed.Ungroup(op.IDs...)
	case OpUndo:
		return ed.Undo()
	case OpRedo:
		return ed.Redo()
	case OpSessionStart:
		return r.startSession(op)
	case OpSessionUpdate:
		return ed.UpdateSession(*op.Point, op.Modifiers)
	case OpSessionComplete:
		return ed.CompleteSession()
	case OpSessionCancel:
		return ed.CancelSession()
	}
	return fmt.Errorf("operation %q: %w", op.Type, validation.ErrInvalid)
}

func (r *Room) startSession(op Operation) error {
	ed := r.editor
	if _, active := ed.ActiveSession(); active {
		return fmt.Errorf("start session: %w", session.ErrInvalidSessionState)
	}
	if len(op.IDs) > 0 {
		if err := ed.Select(op.IDs...); err != nil {
			return err
		}
	}
	point := *op.Point
	switch session.Kind(op.Session) {
	case session.KindTranslate:
		return ed.StartTranslateSession(point)
	case session.KindTransform:
		return ed.StartTransformSession(point, session.Edge(op.Edge))
	case session.KindRotate:
		return ed.StartRotateSession(point)
	case session.KindHandle:
		return ed.StartHandleSession(point, op.HandleID, op.ShapeID)
	}
	return fmt.Errorf("session kind %q: %w", op.Session, validation.ErrInvalid)
}

// trackSession records which client owns the running session.
func (r *Room) trackSession(sender *Client) {
	kind, active := r.editor.ActiveSession()
	switch {
	case active && r.sessionOwner == "":
		r.sessionOwner = sender.ClientID
		r.sessionKind = kind
	case !active && r.sessionOwner != "":
		r.endSession()
	}
}

func (r *Room) endSession() {
	outcome := r.editor.LastSessionOutcome()
	r.hub.opts.Metrics.SessionsRun.WithLabelValues(string(r.sessionKind), string(outcome)).Inc()
	r.sessionOwner = ""
	r.sessionKind = ""
}

func (r *Room) syncMessage() *Message {
	ed := r.editor
	msg := newMessage(TypeDocSync, DocSyncPayload{
		Version:      ed.Version(),
		ServerSeq:    r.serverSeq,
		Document:     ed.Document(),
		CanUndo:      ed.CanUndo(),
		CanRedo:      ed.CanRedo(),
		Session:      string(r.sessionKind),
		SessionOwner: r.sessionOwner,
	})
	msg.BoardID = r.boardID
	msg.Seq = r.serverSeq
	return msg
}

func (r *Room) broadcast(msg *Message, excludeClientID string) {
	for _, c := range r.clients {
		if c.ClientID != excludeClientID {
			c.Send(msg)
		}
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errSessionOwned):
		return "session_owned"
	case errors.Is(err, session.ErrInvalidSessionState):
		return "invalid_session_state"
	case errors.Is(err, binding.ErrIntegrityViolation):
		return "integrity_violation"
	case errors.Is(err, document.ErrDuplicateID):
		return "duplicate_id"
	case errors.Is(err, document.ErrNotFound):
		return "not_found"
	case errors.Is(err, validation.ErrInvalid), errors.Is(err, document.ErrInvalidShape):
		return "invalid_operation"
	default:
		return "internal"
	}
}
