// Package store persists boards and versioned snapshots of their documents.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/inamate/whiteboard/internal/document"
)

var (
	ErrNotFound  = errors.New("board not found")
	ErrForbidden = errors.New("forbidden")
)

// KeepSnapshots is how many snapshots are retained per board.
const KeepSnapshots = 20

type Board struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Snapshot struct {
	ID        string             `json:"id"`
	BoardID   string             `json:"boardId"`
	Version   int                `json:"version"`
	Document  *document.Document `json:"document"`
	CreatedAt time.Time          `json:"createdAt"`
}

// Repository is the persistence used by the HTTP handlers and the hub.
type Repository interface {
	// CreateBoard creates a board together with an empty first snapshot.
	CreateBoard(ctx context.Context, name, ownerID string) (*Board, error)
	GetBoard(ctx context.Context, id string) (*Board, error)
	ListBoards(ctx context.Context, ownerID string) ([]Board, error)
	// DeleteBoard removes a board and its snapshots. Only the owner may.
	DeleteBoard(ctx context.Context, id, ownerID string) error
	LatestSnapshot(ctx context.Context, boardID string) (*Snapshot, error)
	// SaveSnapshot stores doc as the board's next version.
	SaveSnapshot(ctx context.Context, boardID string, doc *document.Document) (*Snapshot, error)
}

// newBoardDocument is the document every board starts with.
func newBoardDocument(boardID, name string) *document.Document {
	return document.NewEmptyDocument(boardID, name, document.DefaultPageID)
}

var (
	_ Repository = (*Postgres)(nil)
	_ Repository = (*Memory)(nil)
	_ Repository = (*Breaker)(nil)
)
