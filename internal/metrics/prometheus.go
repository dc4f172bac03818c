package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink with the Prometheus client.
// Registration errors are logged and never propagated.
type PrometheusSink struct {
	snapshotsProcessed prometheus.Counter
	snapshotsSkipped   *prometheus.CounterVec
	identifiersSeen    prometheus.Counter
	increments         prometheus.Counter
	entriesPurged      prometheus.Counter
	filesDeleted       *prometheus.CounterVec
	runsTotal          *prometheus.CounterVec
	runDuration        prometheus.Histogram
	checkpoint         prometheus.Gauge
}

func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		snapshotsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "toxstats_snapshots_processed_total",
			Help: "Snapshots whose identifiers were counted.",
		}),
		snapshotsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toxstats_snapshots_skipped_total",
			Help: "Snapshots skipped, by reason.",
		}, []string{"reason"}),
		identifiersSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "toxstats_identifiers_processed_total",
			Help: "Identifiers read from counted snapshots.",
		}),
		increments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "toxstats_count_increments_total",
			Help: "Node count increments applied.",
		}),
		entriesPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "toxstats_dedup_entries_purged_total",
			Help: "Dedup entries deleted when their period closed.",
		}),
		filesDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toxstats_snapshot_files_deleted_total",
			Help: "Compaction deletions, by result.",
		}, []string{"result"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toxstats_ingest_runs_total",
			Help: "Ingestion runs, by result.",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "toxstats_ingest_run_duration_seconds",
			Help:    "Duration of ingestion runs in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
		checkpoint: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "toxstats_checkpoint_timestamp_seconds",
			Help: "Timestamp of the last applied snapshot.",
		}),
	}

	s.register(reg, s.snapshotsProcessed, "toxstats_snapshots_processed_total")
	s.register(reg, s.snapshotsSkipped, "toxstats_snapshots_skipped_total")
	s.register(reg, s.identifiersSeen, "toxstats_identifiers_processed_total")
	s.register(reg, s.increments, "toxstats_count_increments_total")
	s.register(reg, s.entriesPurged, "toxstats_dedup_entries_purged_total")
	s.register(reg, s.filesDeleted, "toxstats_snapshot_files_deleted_total")
	s.register(reg, s.runsTotal, "toxstats_ingest_runs_total")
	s.register(reg, s.runDuration, "toxstats_ingest_run_duration_seconds")
	s.register(reg, s.checkpoint, "toxstats_checkpoint_timestamp_seconds")
	return s
}

func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		slog.Warn("[Metrics] Failed to register collector", "name", name, "error", err)
	}
}

func (s *PrometheusSink) SnapshotProcessed(identifiers int) {
	s.snapshotsProcessed.Inc()
	s.identifiersSeen.Add(float64(identifiers))
}

func (s *PrometheusSink) SnapshotSkipped(reason string) {
	s.snapshotsSkipped.WithLabelValues(reason).Inc()
}

func (s *PrometheusSink) IncrementsApplied(n int) {
	s.increments.Add(float64(n))
}

func (s *PrometheusSink) EntriesPurged(n int64) {
	s.entriesPurged.Add(float64(n))
}

func (s *PrometheusSink) FilesDeleted(deleted, failed int) {
	s.filesDeleted.WithLabelValues("deleted").Add(float64(deleted))
	s.filesDeleted.WithLabelValues("failed").Add(float64(failed))
}

func (s *PrometheusSink) RunCompleted(duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	s.runsTotal.WithLabelValues(result).Inc()
	s.runDuration.Observe(duration.Seconds())
}

func (s *PrometheusSink) CheckpointUpdate(ts int64) {
	s.checkpoint.Set(float64(ts))
}
