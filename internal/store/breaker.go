package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/inamate/whiteboard/internal/document"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("storage unavailable")

type BreakerConfig struct {
	Name string
	// Failures is how many consecutive storage errors open the breaker.
	Failures uint32
	// Timeout is how long the breaker stays open before a trial call.
	Timeout time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{Name: "store", Failures: 5, Timeout: 30 * time.Second}
}

// Breaker guards a Repository with a circuit breaker. Not-found and
// permission errors are answers, not failures, and never trip it.
type Breaker struct {
	Repository
	cb *gobreaker.CircuitBreaker
}

func NewBreaker(repo Repository, cfg BreakerConfig) *Breaker {
	if cfg.Failures == 0 {
		cfg.Failures = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden)
		},
	})
	return &Breaker{Repository: repo, cb: cb}
}

func execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, ErrUnavailable
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (b *Breaker) CreateBoard(ctx context.Context, name, ownerID string) (*Board, error) {
	return execute(b, func() (*Board, error) { return b.Repository.CreateBoard(ctx, name, ownerID) })
}

func (b *Breaker) GetBoard(ctx context.Context, id string) (*Board, error) {
	return execute(b, func() (*Board, error) { return b.Repository.GetBoard(ctx, id) })
}

func (b *Breaker) ListBoards(ctx context.Context, ownerID string) ([]Board, error) {
	return execute(b, func() ([]Board, error) { return b.Repository.ListBoards(ctx, ownerID) })
}

func (b *Breaker) DeleteBoard(ctx context.Context, id, ownerID string) error {
	_, err := execute(b, func() (struct{}, error) { return struct{}{}, b.Repository.DeleteBoard(ctx, id, ownerID) })
	return err
}

func (b *Breaker) LatestSnapshot(ctx context.Context, boardID string) (*Snapshot, error) {
	return execute(b, func() (*Snapshot, error) { return b.Repository.LatestSnapshot(ctx, boardID) })
}

func (b *Breaker) SaveSnapshot(ctx context.Context, boardID string, doc *document.Document) (*Snapshot, error) {
	return execute(b, func() (*Snapshot, error) { return b.Repository.SaveSnapshot(ctx, boardID, doc) })
}

// State reports the breaker state: "closed", "half-open" or "open".
func (b *Breaker) State() string { return b.cb.State().String() }
