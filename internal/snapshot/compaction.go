package snapshot

import (
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
)

// Reason says why a snapshot was marked for deletion.
type Reason string

const (
	// ReasonRedundant marks a file whose tick already has a retained snapshot.
	ReasonRedundant Reason = "redundant"
	// ReasonNoise marks a file below the minimum-activity threshold.
	ReasonNoise Reason = "noise"
)

type marked struct {
	snap   Snapshot
	reason Reason
}

// Compactor collects snapshots to delete once a run is over.
type Compactor struct {
	marked []marked
}

func NewCompactor() *Compactor {
	return &Compactor{}
}

func (c *Compactor) MarkRedundant(snap Snapshot) {
	c.marked = append(c.marked, marked{snap: snap, reason: ReasonRedundant})
}

func (c *Compactor) MarkNoise(snap Snapshot) {
	c.marked = append(c.marked, marked{snap: snap, reason: ReasonNoise})
}

// Marked returns the marked snapshots in marking order.
func (c *Compactor) Marked() []Snapshot {
	out := make([]Snapshot, len(c.marked))
	for i, m := range c.marked {
		out[i] = m.snap
	}
	return out
}

// DeleteMarked removes every marked file. It keeps going past failures and
// returns them combined; the caller treats them as warnings.
func (c *Compactor) DeleteMarked(fs afero.Fs) (int, error) {
	var (
		deleted int
		merr    *multierror.Error
	)
	for _, m := range c.marked {
		if err := fs.Remove(m.snap.Path); err != nil {
			slog.Warn("[Compaction] Failed to delete snapshot",
				"path", m.snap.Path,
				"reason", m.reason,
				"error", err)
			merr = multierror.Append(merr, err)
			continue
		}
		slog.Debug("[Compaction] Deleted snapshot", "path", m.snap.Path, "reason", m.reason)
		deleted++
	}
	c.marked = nil
	return deleted, merr.ErrorOrNil()
}
