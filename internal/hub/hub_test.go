package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/geom"
)

const board = "board1"

type memoryBoards struct {
	mu    sync.Mutex
	docs  map[string]*document.Document
	saves int
}

func (m *memoryBoards) load(_ context.Context, id string) (*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.docs[id]; ok {
		return d.Clone(), nil
	}
	return nil, nil
}

func (m *memoryBoards) save(_ context.Context, id string, doc *document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = doc
	m.saves++
	return nil
}

func (m *memoryBoards) saved(id string) (*document.Document, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[id], m.saves
}

func newTestHub(t *testing.T) (*Hub, *memoryBoards) {
	t.Helper()
	boards := &memoryBoards{docs: map[string]*document.Document{board: document.NewSampleDocument(board)}}
	h := NewHub(boards.load, boards.save, Options{SaveInterval: time.Hour})
	t.Cleanup(h.Stop)
	return h, boards
}

// connect registers a client and consumes its greeting.
func connect(t *testing.T, h *Hub, user string) *Client {
	t.Helper()
	c := NewClient(h, nil, user, "User "+user, board, "client-"+user)
	require.NoError(t, h.Register(context.Background(), c))
	expect(t, c, TypeWelcome)
	expect(t, c, TypeDocSync)
	expect(t, c, TypePresenceState)
	return c
}

// next returns the next message queued for c.
func next(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
		return nil
	}
}

// expect skips messages until one of type msgType arrives.
func expect(t *testing.T, c *Client, msgType string) *Message {
	t.Helper()
	for {
		if msg := next(t, c); msg.Type == msgType {
			return msg
		}
	}
}

// reply waits for the ack or nack of the last submitted operation.
func reply(t *testing.T, c *Client) *Message {
	t.Helper()
	for {
		msg := next(t, c)
		if msg.Type == TypeOpAck || msg.Type == TypeOpNack {
			return msg
		}
	}
}

// waitSync skips doc.sync messages until one satisfies cond.
func waitSync(t *testing.T, c *Client, cond func(DocSyncPayload) bool) DocSyncPayload {
	t.Helper()
	for {
		p := decode[DocSyncPayload](t, expect(t, c, TypeDocSync))
		if cond(p) {
			return p
		}
	}
}

func decode[T any](t *testing.T, msg *Message) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(msg.Payload, &v))
	return v
}

func submit(t *testing.T, c *Client, op Operation) *Message {
	t.Helper()
	data, err := json.Marshal(OperationSubmitPayload{Operation: op})
	require.NoError(t, err)
	c.Deliver(&Message{Type: TypeOpSubmit, Payload: data})
	return reply(t, c)
}

func shapes(p DocSyncPayload) map[string]*document.Shape {
	return p.Document.Pages[p.Document.CurrentPageID].Shapes
}

func pt(x, y float64) *geom.Vec {
	v := geom.V(x, y)
	return &v
}

func TestRoom_JoinSendsStateAndAnnounces(t *testing.T) {
	h, _ := newTestHub(t)
	a := NewClient(h, nil, "a", "Ada", board, "client-a")
	require.NoError(t, h.Register(context.Background(), a))

	welcome := decode[WelcomePayload](t, expect(t, a, TypeWelcome))
	assert.Equal(t, "client-a", welcome.ClientID)
	assert.Equal(t, board, welcome.BoardID)

	sync := decode[DocSyncPayload](t, expect(t, a, TypeDocSync))
	assert.Contains(t, shapes(sync), "rect1")
	assert.False(t, sync.CanUndo)
	expect(t, a, TypePresenceState)

	connect(t, h, "b")
	join := decode[PresenceJoinPayload](t, expect(t, a, TypePresenceJoin))
	assert.Equal(t, "b", join.UserID)
	assert.Equal(t, 1, h.RoomCount())
}

func TestRoom_OperationIsAckedAndBroadcast(t *testing.T) {
	h, _ := newTestHub(t)
	a := connect(t, h, "a")
	b := connect(t, h, "b")

	ack := submit(t, a, Operation{ID: "op1", Type: OpDelete, IDs: []string{"rect1"}})
	require.Equal(t, TypeOpAck, ack.Type)
	payload := decode[OperationAckPayload](t, ack)
	assert.Equal(t, "op1", payload.OperationID)
	assert.Equal(t, int64(1), payload.ServerSeq)

	sync := waitSync(t, b, func(p DocSyncPayload) bool { return p.ServerSeq == 1 })
	assert.NotContains(t, shapes(sync), "rect1")
	assert.True(t, sync.CanUndo)

	require.Equal(t, TypeOpAck, submit(t, b, Operation{ID: "op2", Type: OpUndo}).Type)
	sync = waitSync(t, a, func(p DocSyncPayload) bool { return p.ServerSeq == 2 })
	assert.Contains(t, shapes(sync), "rect1")
}

func TestRoom_RejectsBadOperations(t *testing.T) {
	h, _ := newTestHub(t)
	a := connect(t, h, "a")

	nack := submit(t, a, Operation{ID: "op1", Type: "explode"})
	require.Equal(t, TypeOpNack, nack.Type)
	assert.Equal(t, "invalid_operation", decode[OperationNackPayload](t, nack).Code)

	nack = submit(t, a, Operation{ID: "op2", Type: OpSessionStart, Session: "translate"})
	require.Equal(t, TypeOpNack, nack.Type, "session.start needs a point")
	assert.Equal(t, "invalid_operation", decode[OperationNackPayload](t, nack).Code)

	nack = submit(t, a, Operation{ID: "op3", Type: OpSelect, IDs: []string{"missing"}})
	require.Equal(t, TypeOpNack, nack.Type)
	assert.Equal(t, "not_found", decode[OperationNackPayload](t, nack).Code)

	nack = submit(t, a, Operation{ID: "op4", Type: OpSessionComplete})
	require.Equal(t, TypeOpNack, nack.Type)
	assert.Equal(t, "invalid_session_state", decode[OperationNackPayload](t, nack).Code)

	ack := submit(t, a, Operation{ID: "op5", Type: OpDelete, IDs: []string{"missing"}})
	assert.Equal(t, TypeOpAck, ack.Type, "deleting nothing is not an error")
}

func TestRoom_NullShapeIsRejected(t *testing.T) {
	h, _ := newTestHub(t)
	a := connect(t, h, "a")

	a.Deliver(&Message{
		Type:    TypeOpSubmit,
		Payload: json.RawMessage(`{"operation":{"id":"op1","type":"create","shapes":[null]}}`),
	})
	nack := reply(t, a)
	require.Equal(t, TypeOpNack, nack.Type)
	assert.Equal(t, "invalid_operation", decode[OperationNackPayload](t, nack).Code)

	// The room is still serving.
	ack := submit(t, a, Operation{ID: "op2", Type: OpDelete, IDs: []string{"rect1"}})
	assert.Equal(t, TypeOpAck, ack.Type)
}

func TestRoom_SessionBelongsToItsStarter(t *testing.T) {
	h, _ := newTestHub(t)
	a := connect(t, h, "a")
	b := connect(t, h, "b")

	require.Equal(t, TypeOpAck, submit(t, a, Operation{
		ID: "s1", Type: OpSessionStart, Session: "translate", IDs: []string{"rect1"}, Point: pt(0, 0),
	}).Type)

	nack := submit(t, b, Operation{ID: "b1", Type: OpDelete, IDs: []string{"rect2"}})
	require.Equal(t, TypeOpNack, nack.Type)
	assert.Equal(t, "session_owned", decode[OperationNackPayload](t, nack).Code)

	require.Equal(t, TypeOpAck, submit(t, a, Operation{ID: "s2", Type: OpSessionUpdate, Point: pt(10, 0)}).Type)
	require.Equal(t, TypeOpAck, submit(t, a, Operation{ID: "s3", Type: OpSessionComplete}).Type)

	sync := waitSync(t, b, func(p DocSyncPayload) bool { return p.ServerSeq == 3 })
	assert.Equal(t, geom.V(10, 0), shapes(sync)["rect1"].Point)
	assert.Empty(t, sync.SessionOwner)

	assert.Equal(t, TypeOpAck, submit(t, b, Operation{ID: "b2", Type: OpDelete, IDs: []string{"rect2"}}).Type)
}

func TestRoom_UndoDuringSessionReleasesIt(t *testing.T) {
	h, _ := newTestHub(t)
	a := connect(t, h, "a")
	b := connect(t, h, "b")

	require.Equal(t, TypeOpAck, submit(t, a, Operation{
		ID: "s1", Type: OpSessionStart, Session: "translate", IDs: []string{"rect1"}, Point: pt(0, 0),
	}).Type)
	require.Equal(t, TypeOpAck, submit(t, a, Operation{ID: "s2", Type: OpSessionUpdate, Point: pt(30, 30)}).Type)
	require.Equal(t, TypeOpAck, submit(t, a, Operation{ID: "u1", Type: OpUndo}).Type)

	sync := waitSync(t, b, func(p DocSyncPayload) bool { return p.ServerSeq == 3 })
	assert.Equal(t, geom.V(0, 0), shapes(sync)["rect1"].Point)
	assert.Empty(t, sync.SessionOwner)
	assert.Equal(t, TypeOpAck, submit(t, b, Operation{ID: "b1", Type: OpSelectAll}).Type)
}

func TestRoom_OwnerLeavingCancelsSession(t *testing.T) {
	h, _ := newTestHub(t)
	a := connect(t, h, "a")
	b := connect(t, h, "b")

	require.Equal(t, TypeOpAck, submit(t, a, Operation{
		ID: "s1", Type: OpSessionStart, Session: "translate", IDs: []string{"rect1"}, Point: pt(0, 0),
	}).Type)
	require.Equal(t, TypeOpAck, submit(t, a, Operation{ID: "s2", Type: OpSessionUpdate, Point: pt(50, 50)}).Type)
	waitSync(t, b, func(p DocSyncPayload) bool { return p.SessionOwner == "client-a" && p.ServerSeq == 2 })

	h.Unregister(a)

	sync := waitSync(t, b, func(p DocSyncPayload) bool { return p.SessionOwner == "" })
	assert.Equal(t, geom.V(0, 0), shapes(sync)["rect1"].Point)
	leave := decode[PresenceLeavePayload](t, expect(t, b, TypePresenceLeave))
	assert.Equal(t, "a", leave.UserID)
}

func TestRoom_PresenceIsRelayed(t *testing.T) {
	h, _ := newTestHub(t)
	a := connect(t, h, "a")
	b := connect(t, h, "b")

	data, err := json.Marshal(PresencePayload{Cursor: pt(5, 6), Selection: []string{"rect1"}})
	require.NoError(t, err)
	a.Deliver(&Message{Type: TypePresenceUpdate, Payload: data})

	msg := expect(t, b, TypePresenceUpdate)
	assert.Equal(t, "a", msg.UserID)
	p := decode[PresencePayload](t, msg)
	assert.Equal(t, "User a", p.DisplayName)
	assert.Equal(t, []string{"rect1"}, p.Selection)
}

func TestHub_LastClientOutSavesBoard(t *testing.T) {
	h, boards := newTestHub(t)
	a := connect(t, h, "a")

	require.Equal(t, TypeOpAck, submit(t, a, Operation{ID: "op1", Type: OpDelete, IDs: []string{"rect1"}}).Type)
	h.Unregister(a)

	doc, saves := boards.saved(board)
	assert.Equal(t, 1, saves)
	assert.NotContains(t, doc.Pages[doc.CurrentPageID].Shapes, "rect1")
	assert.Equal(t, 0, h.RoomCount())
}

func TestHub_UnchangedBoardIsNotSaved(t *testing.T) {
	h, boards := newTestHub(t)
	a := connect(t, h, "a")
	require.Equal(t, TypeOpAck, submit(t, a, Operation{ID: "op1", Type: OpSelectAll}).Type)
	h.Unregister(a)

	_, saves := boards.saved(board)
	assert.Equal(t, 0, saves)
}

func TestHub_StopSavesAndRefusesNewClients(t *testing.T) {
	h, boards := newTestHub(t)
	a := connect(t, h, "a")

	require.Equal(t, TypeOpAck, submit(t, a, Operation{
		ID:     "op1",
		Type:   OpCreate,
		Shapes: []*document.Shape{{ID: "ellipse1", Type: document.ShapeEllipse, Size: geom.V(10, 10)}},
	}).Type)
	h.Stop()

	doc, _ := boards.saved(board)
	assert.Contains(t, doc.Pages[doc.CurrentPageID].Shapes, "ellipse1")

	late := NewClient(h, nil, "c", "Cy", board, "client-c")
	assert.ErrorIs(t, h.Register(context.Background(), late), ErrStopped)
}

func TestHub_NewBoardStartsEmpty(t *testing.T) {
	h, _ := newTestHub(t)
	c := NewClient(h, nil, "a", "Ada", "board2", "client-a")
	require.NoError(t, h.Register(context.Background(), c))
	expect(t, c, TypeWelcome)
	sync := decode[DocSyncPayload](t, expect(t, c, TypeDocSync))
	assert.Equal(t, "board2", sync.Document.ID)
	assert.Empty(t, shapes(sync))
}

func TestHub_DocumentReturnsLiveCopy(t *testing.T) {
	h, _ := newTestHub(t)

	_, ok := h.Document(context.Background(), board)
	assert.False(t, ok, "no room is open yet")

	a := connect(t, h, "a")
	require.Equal(t, TypeOpAck, submit(t, a, Operation{ID: "op1", Type: OpDelete, IDs: []string{"rect2"}}).Type)

	doc, ok := h.Document(context.Background(), board)
	require.True(t, ok)
	page, _ := doc.CurrentPage()
	assert.NotContains(t, page.Shapes, "rect2")
	assert.Contains(t, page.Shapes, "rect1")
}
