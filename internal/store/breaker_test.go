package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/whiteboard/internal/document"
)

// flaky fails every snapshot save while down is set.
type flaky struct {
	*Memory
	down  bool
	saves int
}

func (f *flaky) SaveSnapshot(ctx context.Context, boardID string, doc *document.Document) (*Snapshot, error) {
	f.saves++
	if f.down {
		return nil, errors.New("connection refused")
	}
	return f.Memory.SaveSnapshot(ctx, boardID, doc)
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	inner := &flaky{Memory: NewMemory(), down: true}
	b := NewBreaker(inner, BreakerConfig{Name: "test", Failures: 2, Timeout: time.Hour})

	board, err := b.CreateBoard(ctx, "Plan", "user_a")
	require.NoError(t, err)
	doc := document.NewSampleDocument(board.ID)

	for range 2 {
		_, err := b.SaveSnapshot(ctx, board.ID, doc)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, "open", b.State())

	_, err = b.SaveSnapshot(ctx, board.ID, doc)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 2, inner.saves, "an open breaker does not reach storage")
}

func TestBreaker_NotFoundDoesNotTrip(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(NewMemory(), BreakerConfig{Name: "test", Failures: 1, Timeout: time.Hour})

	for range 3 {
		_, err := b.GetBoard(ctx, "board_missing")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, "closed", b.State())

	board, err := b.CreateBoard(ctx, "Plan", "user_a")
	require.NoError(t, err)
	assert.ErrorIs(t, b.DeleteBoard(ctx, board.ID, "user_b"), ErrForbidden)
	assert.Equal(t, "closed", b.State())

	boards, err := b.ListBoards(ctx, "user_a")
	require.NoError(t, err)
	assert.Len(t, boards, 1)
}
