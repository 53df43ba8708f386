package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/timeout"
	_ "github.com/mattn/go-sqlite3"

	"parking_twin/internal/grid"
)

// writeTimeout bounds each durable write. There is deliberately no retry
// policy: a failed write leaves memory ahead of the store until the next
// full-record rewrite self-heals it.
const writeTimeout = 2 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS slots (
	id         TEXT PRIMARY KEY,
	row        INTEGER NOT NULL,
	col        INTEGER NOT NULL,
	zone       TEXT    NOT NULL,
	status     INTEGER NOT NULL,
	type       TEXT    NOT NULL,
	price      REAL    NOT NULL,
	updated_at TEXT    NOT NULL
)`

const upsertQuery = `
INSERT OR REPLACE INTO slots (id, row, col, zone, status, type, price, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteStore is the durable document sink backing one lot.
type SQLiteStore struct {
	db     *sql.DB
	writes failsafe.Executor[any]
}

// NewSQLiteStore opens (and if needed initializes) the slot database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Enable WAL mode for crash recovery
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		writes: failsafe.With[any](timeout.New[any](writeTimeout)),
	}, nil
}

// LoadAll reads every persisted slot record. An empty result signals that the
// grid needs seeding.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]grid.Record, error) {
	const q = `SELECT id, row, col, zone, status, type, price, updated_at FROM slots`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to read slots: %w", err)
	}
	defer rows.Close()

	var recs []grid.Record
	for rows.Next() {
		var rec grid.Record
		var updatedAt string
		if err := rows.Scan(&rec.ID, &rec.Row, &rec.Col, &rec.Zone, &rec.Status, &rec.Type, &rec.Price, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid updated_at for slot %s: %w", rec.ID, err)
		}
		rec.UpdatedAt = ts
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read slots: %w", err)
	}
	return recs, nil
}

// Upsert rewrites one full slot record, keyed by id.
func (s *SQLiteStore) Upsert(ctx context.Context, rec grid.Record) error {
	return s.writes.Run(func() error {
		_, err := s.db.ExecContext(ctx, upsertQuery,
			rec.ID, rec.Row, rec.Col, rec.Zone, rec.Status, rec.Type, rec.Price,
			rec.UpdatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("failed to upsert slot %s: %w", rec.ID, err)
		}
		return nil
	})
}

// UpsertMany rewrites a batch of records in a single transaction.
func (s *SQLiteStore) UpsertMany(ctx context.Context, recs []grid.Record) error {
	if len(recs) == 0 {
		return nil
	}
	return s.writes.Run(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		stmt, err := tx.PrepareContext(ctx, upsertQuery)
		if err != nil {
			return fmt.Errorf("failed to prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range recs {
			if _, err := stmt.ExecContext(ctx,
				rec.ID, rec.Row, rec.Col, rec.Zone, rec.Status, rec.Type, rec.Price,
				rec.UpdatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
				return fmt.Errorf("failed to upsert slot %s: %w", rec.ID, err)
			}
		}
		return tx.Commit()
	})
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
