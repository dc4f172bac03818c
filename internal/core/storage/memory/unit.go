package memory

import (
	"context"

	"github.com/JFreegman/toxstats/internal/core/aggregation"
	"github.com/JFreegman/toxstats/internal/core/storage"
)

// unit stages writes and applies them to the store on Commit.
type unit struct {
	store *Store
	done  bool

	purged     map[string]struct{}
	purgeOrder []string
	records    map[string]map[string]struct{}
	counts     map[countKey]int64
	checkpoint int64
	advanced   bool
}

func (u *unit) Contains(_ context.Context, identifier string, p aggregation.Period) (bool, error) {
	if u.done {
		return false, storage.ErrUnitClosed
	}
	key := p.Key()
	if _, ok := u.records[key][identifier]; ok {
		return true, nil
	}
	if _, ok := u.purged[key]; ok {
		return false, nil
	}
	_, ok := u.store.entries[key][identifier]
	return ok, nil
}

func (u *unit) Record(_ context.Context, identifier string, p aggregation.Period) error {
	if u.done {
		return storage.ErrUnitClosed
	}
	key := p.Key()
	if u.records[key] == nil {
		u.records[key] = make(map[string]struct{})
	}
	u.records[key][identifier] = struct{}{}
	return nil
}

func (u *unit) Purge(_ context.Context, p aggregation.Period) (int64, error) {
	if u.done {
		return 0, storage.ErrUnitClosed
	}
	key := p.Key()
	var n int64
	if _, already := u.purged[key]; !already {
		n = int64(len(u.store.entries[key]))
		u.purged[key] = struct{}{}
		u.purgeOrder = append(u.purgeOrder, key)
	}
	n += int64(len(u.records[key]))
	delete(u.records, key)
	return n, nil
}

func (u *unit) Increment(p aggregation.Period, country string) {
	u.counts[countKey{p.Key(), country}]++
}

func (u *unit) AdvanceCheckpoint(ts int64) {
	u.checkpoint = ts
	u.advanced = true
}

func (u *unit) Commit(_ context.Context) error {
	if u.done {
		return storage.ErrUnitClosed
	}
	s := u.store
	defer u.release()

	if u.advanced && s.hasCheckpoint && u.checkpoint <= s.checkpoint {
		return storage.ErrStaleCheckpoint
	}

	for _, key := range u.purgeOrder {
		s.mutations += int64(len(s.entries[key]))
		delete(s.entries, key)
	}
	for key, ids := range u.records {
		if s.entries[key] == nil {
			s.entries[key] = make(map[string]struct{})
		}
		for id := range ids {
			if _, ok := s.entries[key][id]; !ok {
				s.entries[key][id] = struct{}{}
				s.mutations++
			}
		}
	}
	for k, n := range u.counts {
		s.counts[k] += n
		s.mutations += n
	}
	if u.advanced {
		s.checkpoint = u.checkpoint
		s.hasCheckpoint = true
		s.mutations++
	}
	return nil
}

func (u *unit) Rollback() error {
	if u.done {
		return nil
	}
	u.release()
	return nil
}

func (u *unit) release() {
	u.done = true
	u.store.mu.Unlock()
}
