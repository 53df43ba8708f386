// Package store persists slot records. The grid is the authority; the store
// is a write-through mirror that is read exactly once, at startup.
package store

import (
	"context"

	"parking_twin/internal/grid"
)

// Store is the durable upsert sink consumed by the twin service.
// Implementations must be idempotent by slot id: every write rewrites the
// full record, so a missed write is healed by the next successful one.
type Store interface {
	LoadAll(ctx context.Context) ([]grid.Record, error)
	Upsert(ctx context.Context, rec grid.Record) error
	UpsertMany(ctx context.Context, recs []grid.Record) error
	Close() error
}
