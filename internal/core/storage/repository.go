package storage

import (
	"context"
	"errors"

	"github.com/JFreegman/toxstats/internal/core/aggregation"
)

// CheckpointName is the misc_state row holding the timestamp of the last applied snapshot.
const CheckpointName = "lastUpdate"

// ErrStaleCheckpoint is returned by Commit when the unit's checkpoint is not
// ahead of the durable one, i.e. another writer already applied the snapshot.
var ErrStaleCheckpoint = errors.New("checkpoint is not ahead of the durable value")

// ErrUnitClosed is returned when a unit is used after Commit or Rollback.
var ErrUnitClosed = errors.New("unit already committed or rolled back")

// Store opens the units the ingester writes through.
type Store interface {
	// LoadCheckpoint returns the durable checkpoint. ok is false when none was ever written.
	LoadCheckpoint(ctx context.Context) (ts int64, ok bool, err error)
	Begin(ctx context.Context) (Unit, error)
}

// Unit groups every store write of one snapshot. Nothing is visible to other
// readers until Commit; Rollback discards the lot and is a no-op after Commit.
type Unit interface {
	// Contains observes purges and records made earlier in the same unit.
	Contains(ctx context.Context, identifier string, p aggregation.Period) (bool, error)
	Record(ctx context.Context, identifier string, p aggregation.Period) error
	// Purge deletes dedup entries whose period equals p exactly.
	Purge(ctx context.Context, p aggregation.Period) (int64, error)
	Increment(p aggregation.Period, country string)
	AdvanceCheckpoint(ts int64)
	Commit(ctx context.Context) error
	Rollback() error
}

// CountReader serves the query API.
type CountReader interface {
	LoadCheckpoint(ctx context.Context) (ts int64, ok bool, err error)
	// ScanCounts returns up to limit counts of one country at granularity g, newest first.
	ScanCounts(ctx context.Context, g aggregation.Granularity, country string, limit int) ([]aggregation.NodeCount, error)
	// CountsAt returns every country's count for exactly p.
	CountsAt(ctx context.Context, p aggregation.Period) ([]aggregation.NodeCount, error)
	HasPeriod(ctx context.Context, p aggregation.Period) (bool, error)
	// Countries lists the distinct real country codes seen at year level, sorted.
	Countries(ctx context.Context) ([]string, error)
}
