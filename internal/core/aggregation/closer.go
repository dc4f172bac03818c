package aggregation

import (
	"context"
	"fmt"
)

// Purger deletes every dedup entry recorded for exactly one period.
type Purger interface {
	Purge(ctx context.Context, p Period) (int64, error)
}

// ClosePeriods purges the dedup state of every bucket of previous that current
// has moved past. It walks Hour, Day, Month, Year and stops at the first level
// whose prefix did not advance. A zero previous closes nothing.
func ClosePeriods(ctx context.Context, purger Purger, previous, current Period) ([]Period, int64, error) {
	if previous.IsZero() || current.IsZero() {
		return nil, 0, nil
	}

	var (
		closed []Period
		purged int64
	)
	for _, g := range DedupGranularities {
		prev := previous.Prefix(g)
		if !prev.Before(current.Prefix(g)) {
			break
		}
		n, err := purger.Purge(ctx, prev)
		if err != nil {
			return closed, purged, fmt.Errorf("close period %s: %w", prev, err)
		}
		closed = append(closed, prev)
		purged += n
	}
	return closed, purged, nil
}
