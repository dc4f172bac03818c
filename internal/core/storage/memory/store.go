// Package memory is an in-process implementation of the storage interfaces.
// It backs the engine tests and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JFreegman/toxstats/internal/core/aggregation"
	"github.com/JFreegman/toxstats/internal/core/storage"
)

type countKey struct {
	period  string
	country string
}

// Store keeps counts, dedup entries and the checkpoint in maps.
// A unit holds the store lock from Begin until Commit or Rollback.
type Store struct {
	mu          sync.Mutex
	tickMinutes int

	counts        map[countKey]int64
	entries       map[string]map[string]struct{}
	checkpoint    int64
	hasCheckpoint bool
	mutations     int64
}

func NewStore(tickMinutes int) *Store {
	if tickMinutes <= 0 {
		tickMinutes = aggregation.DefaultTickMinutes
	}
	return &Store{
		tickMinutes: tickMinutes,
		counts:      make(map[countKey]int64),
		entries:     make(map[string]map[string]struct{}),
	}
}

func (s *Store) LoadCheckpoint(_ context.Context) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkpoint, s.hasCheckpoint, nil
}

func (s *Store) Begin(_ context.Context) (storage.Unit, error) {
	s.mu.Lock()
	return &unit{
		store:   s,
		purged:  make(map[string]struct{}),
		records: make(map[string]map[string]struct{}),
		counts:  make(map[countKey]int64),
	}, nil
}

// Mutations counts committed writes: inserted and deleted dedup entries,
// count increments and checkpoint updates.
func (s *Store) Mutations() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutations
}

// Count returns the committed total for (p, country).
func (s *Store) Count(p aggregation.Period, country string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[countKey{p.Key(), country}]
}

// HasEntry reports whether identifier is recorded for p.
func (s *Store) HasEntry(identifier string, p aggregation.Period) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[p.Key()][identifier]
	return ok
}

// EntryPeriods returns the keys of every period that still holds dedup entries.
func (s *Store) EntryPeriods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for k, ids := range s.entries {
		if len(ids) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) ScanCounts(_ context.Context, g aggregation.Granularity, country string, limit int) ([]aggregation.NodeCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []aggregation.NodeCount
	for k, n := range s.counts {
		if k.country != country || len(k.period) != g.KeyLength() {
			continue
		}
		p, err := aggregation.ParsePeriodKey(k.period, s.tickMinutes)
		if err != nil {
			return nil, err
		}
		out = append(out, aggregation.NodeCount{Period: p, Country: k.country, Nodes: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Period.Before(out[i].Period) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CountsAt(_ context.Context, p aggregation.Period) ([]aggregation.NodeCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := p.Key()
	var out []aggregation.NodeCount
	for k, n := range s.counts {
		if k.period == key {
			out = append(out, aggregation.NodeCount{Period: p, Country: k.country, Nodes: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Country < out[j].Country })
	return out, nil
}

func (s *Store) HasPeriod(_ context.Context, p aggregation.Period) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.counts[countKey{p.Key(), aggregation.CountryAll}]
	return ok, nil
}

func (s *Store) Countries(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	for k := range s.counts {
		if len(k.period) == aggregation.GranularityYear.KeyLength() && k.country != aggregation.CountryAll {
			seen[k.country] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

var (
	_ storage.Store       = (*Store)(nil)
	_ storage.CountReader = (*Store)(nil)
)
