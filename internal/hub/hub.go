// Package hub serves boards over websockets. Each open board has a Room
// goroutine that owns the board's editor and applies operations from every
// connected client one at a time.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/editor"
	"github.com/inamate/whiteboard/internal/metrics"
)

var ErrStopped = errors.New("hub stopped")

// Loader returns the stored document of a board.
type Loader func(ctx context.Context, boardID string) (*document.Document, error)

// Saver stores the document of a board.
type Saver func(ctx context.Context, boardID string, doc *document.Document) error

type Options struct {
	// Editor configures the editor of every room. Logger is replaced by a
	// per-room logger.
	Editor editor.Options
	// SaveInterval is how often a room with unsaved changes is saved.
	SaveInterval time.Duration
	Metrics      *metrics.Collector
	Logger       *slog.Logger
}

type Hub struct {
	mu      sync.Mutex
	rooms   map[string]*Room // boardID -> room
	stopped bool

	load Loader
	save Saver
	opts Options
	log  *slog.Logger
}

func NewHub(load Loader, save Saver, opts Options) *Hub {
	if opts.SaveInterval <= 0 {
		opts.SaveInterval = 30 * time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Hub{
		rooms: make(map[string]*Room),
		load:  load,
		save:  save,
		opts:  opts,
		log:   opts.Logger,
	}
}

// Register adds client to the room of its board, opening the room if this
// is the first client.
func (h *Hub) Register(ctx context.Context, client *Client) error {
	room, err := h.acquire(ctx, client.BoardID)
	if err != nil {
		return err
	}
	client.room = room
	h.opts.Metrics.Clients.Inc()
	room.post(event{kind: evJoin, client: client})
	return nil
}

// acquire returns the room for boardID with its member count raised.
func (h *Hub) acquire(ctx context.Context, boardID string) (*Room, error) {
	h.mu.Lock()
	if room, ok := h.rooms[boardID]; ok && !h.stopped {
		room.members++
		h.mu.Unlock()
		return room, nil
	}
	h.mu.Unlock()

	doc, err := h.load(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("load board %s: %w", boardID, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return nil, ErrStopped
	}
	room, ok := h.rooms[boardID]
	if !ok {
		room, err = newRoom(h, boardID, doc)
		if err != nil {
			return nil, err
		}
		h.rooms[boardID] = room
		h.opts.Metrics.Rooms.Inc()
		go room.run()
		h.log.Info("room opened", "board", boardID)
	}
	room.members++
	return room, nil
}

// Unregister removes client from its room. The last client out closes the
// room, which saves any unsaved changes.
func (h *Hub) Unregister(client *Client) {
	room := client.room
	if room == nil {
		return
	}

	h.mu.Lock()
	room.members--
	last := room.members == 0 && h.rooms[room.boardID] == room
	if last {
		delete(h.rooms, room.boardID)
	}
	h.mu.Unlock()

	h.opts.Metrics.Clients.Dec()
	room.post(event{kind: evLeave, client: client})
	if last {
		room.stop()
		h.opts.Metrics.Rooms.Dec()
		h.log.Info("room closed", "board", room.boardID)
	}
}

// Stop closes every room, saving unsaved changes. Later registrations fail
// with ErrStopped.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.stopped = true
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.rooms = make(map[string]*Room)
	h.mu.Unlock()

	var wg sync.WaitGroup
	for _, r := range rooms {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.stop()
			h.opts.Metrics.Rooms.Dec()
		}()
	}
	wg.Wait()
	h.log.Info("hub stopped", "rooms", len(rooms))
}

// Document returns a copy of the live document of boardID. It reports false
// when the board has no open room.
func (h *Hub) Document(ctx context.Context, boardID string) (*document.Document, bool) {
	h.mu.Lock()
	room, ok := h.rooms[boardID]
	h.mu.Unlock()
	if !ok {
		return nil, false
	}

	reply := make(chan *document.Document, 1)
	if !room.post(event{kind: evDocument, reply: reply}) {
		return nil, false
	}
	select {
	case doc := <-reply:
		return doc, true
	case <-ctx.Done():
		return nil, false
	case <-room.quit:
		return nil, false
	}
}

// RoomCount reports how many rooms are open.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}
