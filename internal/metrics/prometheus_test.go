package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusSink_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewPrometheusSink(reg)

	s.SnapshotProcessed(1600)
	s.SnapshotProcessed(1700)
	s.SnapshotSkipped(SkipBelowActivity)
	s.SnapshotSkipped(SkipRedundantTick)
	s.SnapshotSkipped(SkipRedundantTick)
	s.IncrementsApplied(10)
	s.EntriesPurged(42)
	s.FilesDeleted(3, 1)
	s.RunCompleted(2*time.Second, nil)
	s.RunCompleted(time.Second, errors.New("boom"))
	s.CheckpointUpdate(1704067200)

	assert.Equal(t, float64(2), testutil.ToFloat64(s.snapshotsProcessed))
	assert.Equal(t, float64(3300), testutil.ToFloat64(s.identifiersSeen))
	assert.Equal(t, float64(2), testutil.ToFloat64(s.snapshotsSkipped.WithLabelValues(SkipRedundantTick)))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.snapshotsSkipped.WithLabelValues(SkipBelowActivity)))
	assert.Equal(t, float64(10), testutil.ToFloat64(s.increments))
	assert.Equal(t, float64(42), testutil.ToFloat64(s.entriesPurged))
	assert.Equal(t, float64(3), testutil.ToFloat64(s.filesDeleted.WithLabelValues("deleted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.filesDeleted.WithLabelValues("failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.runsTotal.WithLabelValues("error")))
	assert.Equal(t, float64(1704067200), testutil.ToFloat64(s.checkpoint))
}

func TestPrometheusSink_DuplicateRegistrationDoesNotPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewPrometheusSink(reg)
	assert.NotPanics(t, func() { _ = NewPrometheusSink(reg) })
}

func TestNoopSink_AllMethods(t *testing.T) {
	s := NewNoopSink()
	s.SnapshotProcessed(1)
	s.SnapshotSkipped(SkipMalformed)
	s.IncrementsApplied(1)
	s.EntriesPurged(1)
	s.FilesDeleted(1, 1)
	s.RunCompleted(time.Second, nil)
	s.CheckpointUpdate(1)
}

var (
	_ Sink = (*NoopSink)(nil)
	_ Sink = (*PrometheusSink)(nil)
)
