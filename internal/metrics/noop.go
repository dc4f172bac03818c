package metrics

import "time"

// NoopSink discards everything. Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) SnapshotProcessed(identifiers int)              {}
func (n *NoopSink) SnapshotSkipped(reason string)                  {}
func (n *NoopSink) IncrementsApplied(count int)                    {}
func (n *NoopSink) EntriesPurged(count int64)                      {}
func (n *NoopSink) FilesDeleted(deleted, failed int)               {}
func (n *NoopSink) RunCompleted(duration time.Duration, err error) {}
func (n *NoopSink) CheckpointUpdate(ts int64)                      {}
