package aggregation

import (
	"context"
	"fmt"
	"log/slog"
)

// Resolver maps an identifier to a country code.
type Resolver interface {
	Lookup(ctx context.Context, identifier string) (string, error)
}

// UnitWriter is the slice of a storage unit the rollup needs.
// Increments are buffered by the unit and applied at commit.
type UnitWriter interface {
	Contains(ctx context.Context, identifier string, p Period) (bool, error)
	Record(ctx context.Context, identifier string, p Period) error
	Increment(p Period, country string)
}

// Rollup applies one identifier's contribution to every granularity it is new in.
type Rollup struct {
	resolver Resolver
}

func NewRollup(resolver Resolver) *Rollup {
	if resolver == nil {
		panic("aggregation.NewRollup: nil resolver")
	}
	return &Rollup{resolver: resolver}
}

// Country resolves identifier, falling back to CountryUnknown on any failure.
func (r *Rollup) Country(ctx context.Context, identifier string) string {
	code, err := r.resolver.Lookup(ctx, identifier)
	if err != nil || code == "" {
		return CountryUnknown
	}
	return code
}

// ProcessIdentifier counts identifier at the tick unconditionally, then ascends
// Hour, Day, Month and Year until it meets a bucket that already contains it.
// It returns the number of increments applied.
func (r *Rollup) ProcessIdentifier(ctx context.Context, w UnitWriter, identifier string, tick Period) (int, error) {
	if tick.Granularity != GranularityTick {
		return 0, fmt.Errorf("process identifier: period %s is not tick level", tick)
	}

	country := r.Country(ctx, identifier)
	increment(w, tick, country)
	applied := 2

	for _, g := range DedupGranularities {
		p := tick.Prefix(g)
		seen, err := w.Contains(ctx, identifier, p)
		if err != nil {
			return applied, fmt.Errorf("dedup lookup %s: %w", p, err)
		}
		if seen {
			// Coarser buckets were recorded when this one was.
			break
		}
		if err := w.Record(ctx, identifier, p); err != nil {
			return applied, fmt.Errorf("dedup record %s: %w", p, err)
		}
		increment(w, p, country)
		applied += 2
	}

	slog.Debug("[Rollup] Processed identifier", "identifier", identifier, "country", country, "increments", applied)
	return applied, nil
}

func increment(w UnitWriter, p Period, country string) {
	w.Increment(p, country)
	w.Increment(p, CountryAll)
}
