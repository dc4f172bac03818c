package metrics

import "time"

// Sink records ingestion metrics.
// Methods are fire-and-forget: implementations must not block or return errors.
type Sink interface {
	SnapshotProcessed(identifiers int)
	SnapshotSkipped(reason string)
	IncrementsApplied(n int)
	EntriesPurged(n int64)
	FilesDeleted(deleted, failed int)
	RunCompleted(duration time.Duration, err error)
	CheckpointUpdate(ts int64)
}

// Skip reasons reported through SnapshotSkipped.
const (
	SkipRedundantTick = "redundant_tick"
	SkipMalformed     = "malformed"
	SkipBelowActivity = "below_activity"
	SkipAlreadyDone   = "already_processed"
)
