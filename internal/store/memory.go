package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/typeid"
)

// Memory is a Repository kept in process memory, for development servers
// without a database and for tests.
type Memory struct {
	mu        sync.Mutex
	boards    map[string]*Board
	snapshots map[string][]Snapshot
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		boards:    map[string]*Board{},
		snapshots: map[string][]Snapshot{},
		now:       time.Now,
	}
}

func (m *Memory) CreateBoard(_ context.Context, name, ownerID string) (*Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b := &Board{ID: typeid.NewBoardID(), Name: name, OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}
	m.boards[b.ID] = b
	m.snapshots[b.ID] = []Snapshot{{
		ID:        typeid.NewSnapshotID(),
		BoardID:   b.ID,
		Version:   1,
		Document:  newBoardDocument(b.ID, name),
		CreatedAt: now,
	}}
	out := *b
	return &out, nil
}

func (m *Memory) GetBoard(_ context.Context, id string) (*Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.boards[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *b
	return &out, nil
}

func (m *Memory) ListBoards(_ context.Context, ownerID string) ([]Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []Board{}
	for _, b := range m.boards {
		if b.OwnerID == ownerID {
			out = append(out, *b)
		}
	}
	slices.SortFunc(out, func(a, b Board) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return out, nil
}

func (m *Memory) DeleteBoard(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.boards[id]
	if !ok {
		return ErrNotFound
	}
	if b.OwnerID != ownerID {
		return ErrForbidden
	}
	delete(m.boards, id)
	delete(m.snapshots, id)
	return nil
}

func (m *Memory) LatestSnapshot(_ context.Context, boardID string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snaps := m.snapshots[boardID]
	if len(snaps) == 0 {
		return nil, ErrNotFound
	}
	out := snaps[len(snaps)-1]
	out.Document = out.Document.Clone()
	return &out, nil
}

func (m *Memory) SaveSnapshot(_ context.Context, boardID string, doc *document.Document) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.boards[boardID]
	if !ok {
		return nil, ErrNotFound
	}
	snaps := m.snapshots[boardID]
	version := 1
	if len(snaps) > 0 {
		version = snaps[len(snaps)-1].Version + 1
	}
	now := m.now()
	snap := Snapshot{
		ID:        typeid.NewSnapshotID(),
		BoardID:   boardID,
		Version:   version,
		Document:  doc.Clone(),
		CreatedAt: now,
	}
	snaps = append(snaps, snap)
	if len(snaps) > KeepSnapshots {
		snaps = slices.Clone(snaps[len(snaps)-KeepSnapshots:])
	}
	m.snapshots[boardID] = snaps
	b.UpdatedAt = now

	out := snap
	out.Document = doc.Clone()
	return &out, nil
}
