package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/typeid"
)

const schema = `
CREATE TABLE IF NOT EXISTS boards (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	owner_id   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS boards_owner_idx ON boards (owner_id);

CREATE TABLE IF NOT EXISTS board_snapshots (
	id         TEXT PRIMARY KEY,
	board_id   TEXT NOT NULL REFERENCES boards (id) ON DELETE CASCADE,
	version    INTEGER NOT NULL,
	document   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (board_id, version)
);`

// NewPool connects to Postgres and checks the connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the tables if they do not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Postgres) CreateBoard(ctx context.Context, name, ownerID string) (*Board, error) {
	b := &Board{ID: typeid.NewBoardID(), Name: name, OwnerID: ownerID}
	docJSON, err := json.Marshal(newBoardDocument(b.ID, name))
	if err != nil {
		return nil, fmt.Errorf("marshal empty document: %w", err)
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO boards (id, name, owner_id) VALUES ($1, $2, $3) RETURNING created_at, updated_at`,
			b.ID, b.Name, b.OwnerID,
		).Scan(&b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert board: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO board_snapshots (id, board_id, version, document) VALUES ($1, $2, 1, $3)`,
			typeid.NewSnapshotID(), b.ID, docJSON,
		)
		if err != nil {
			return fmt.Errorf("insert initial snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	return b, nil
}

func (s *Postgres) GetBoard(ctx context.Context, id string) (*Board, error) {
	var b Board
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, owner_id, created_at, updated_at FROM boards WHERE id = $1`, id,
	).Scan(&b.ID, &b.Name, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get board: %w", err)
	}
	return &b, nil
}

func (s *Postgres) ListBoards(ctx context.Context, ownerID string) ([]Board, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, owner_id, created_at, updated_at FROM boards WHERE owner_id = $1 ORDER BY updated_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	boards, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Board, error) {
		var b Board
		err := row.Scan(&b.ID, &b.Name, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return boards, nil
}

func (s *Postgres) DeleteBoard(ctx context.Context, id, ownerID string) error {
	b, err := s.GetBoard(ctx, id)
	if err != nil {
		return err
	}
	if b.OwnerID != ownerID {
		return ErrForbidden
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM boards WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	return nil
}

func (s *Postgres) LatestSnapshot(ctx context.Context, boardID string) (*Snapshot, error) {
	snap := Snapshot{BoardID: boardID}
	var docJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, version, document, created_at FROM board_snapshots
		 WHERE board_id = $1 ORDER BY version DESC LIMIT 1`, boardID,
	).Scan(&snap.ID, &snap.Version, &docJSON, &snap.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	if err := json.Unmarshal(docJSON, &snap.Document); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	return &snap, nil
}

func (s *Postgres) SaveSnapshot(ctx context.Context, boardID string, doc *document.Document) (*Snapshot, error) {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	snap := Snapshot{ID: typeid.NewSnapshotID(), BoardID: boardID, Document: doc}
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO board_snapshots (id, board_id, version, document)
			 SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3 FROM board_snapshots WHERE board_id = $2
			 RETURNING version, created_at`,
			snap.ID, boardID, docJSON,
		).Scan(&snap.Version, &snap.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM board_snapshots WHERE board_id = $1 AND version <= $2`,
			boardID, snap.Version-KeepSnapshots,
		); err != nil {
			return fmt.Errorf("prune snapshots: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE boards SET updated_at = now() WHERE id = $1`, boardID); err != nil {
			return fmt.Errorf("touch board: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	return &snap, nil
}
