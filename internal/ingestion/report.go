package ingestion

import (
	"time"

	"github.com/JFreegman/toxstats/internal/metrics"
)

// Report summarizes one ingestion run.
type Report struct {
	RunID          string         `json:"run_id"`
	StartedAt      time.Time      `json:"started_at"`
	Elapsed        time.Duration  `json:"elapsed_ns"`
	Checkpoint     int64          `json:"checkpoint"`
	Listed         int            `json:"listed"`
	Processed      int            `json:"processed"`
	Skipped        map[string]int `json:"skipped"`
	Increments     int64          `json:"increments"`
	Purged         int64          `json:"purged"`
	Marked         int            `json:"marked"`
	Deleted        int            `json:"deleted"`
	DeleteFailures int            `json:"delete_failures"`
	// Superseded is set when another writer had already moved the checkpoint past this run.
	Superseded bool   `json:"superseded"`
	Error      string `json:"error,omitempty"`
}

func newReport(runID string, startedAt time.Time) *Report {
	return &Report{
		RunID:     runID,
		StartedAt: startedAt,
		Skipped: map[string]int{
			metrics.SkipRedundantTick: 0,
			metrics.SkipMalformed:     0,
			metrics.SkipBelowActivity: 0,
			metrics.SkipAlreadyDone:   0,
		},
	}
}

// TotalSkipped is the number of listed snapshots that were not counted.
func (r *Report) TotalSkipped() int {
	n := 0
	for _, v := range r.Skipped {
		n += v
	}
	return n
}
