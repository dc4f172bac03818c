package aggregation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countKey struct {
	period  string
	country string
}

// fakeUnit keeps dedup entries and counts in maps so tests can inspect them.
type fakeUnit struct {
	entries     map[string]map[string]bool
	counts      map[countKey]int64
	containsErr error
	lookups     int
}

func newFakeUnit() *fakeUnit {
	return &fakeUnit{entries: map[string]map[string]bool{}, counts: map[countKey]int64{}}
}

func (f *fakeUnit) Contains(_ context.Context, identifier string, p Period) (bool, error) {
	f.lookups++
	if f.containsErr != nil {
		return false, f.containsErr
	}
	return f.entries[p.Key()][identifier], nil
}

func (f *fakeUnit) Record(_ context.Context, identifier string, p Period) error {
	if f.entries[p.Key()] == nil {
		f.entries[p.Key()] = map[string]bool{}
	}
	f.entries[p.Key()][identifier] = true
	return nil
}

func (f *fakeUnit) Increment(p Period, country string) {
	f.counts[countKey{p.Key(), country}]++
}

func (f *fakeUnit) Purge(_ context.Context, p Period) (int64, error) {
	n := int64(len(f.entries[p.Key()]))
	delete(f.entries, p.Key())
	return n, nil
}

type mapResolver map[string]string

func (m mapResolver) Lookup(_ context.Context, identifier string) (string, error) {
	code, ok := m[identifier]
	if !ok {
		return "", errors.New("not found")
	}
	return code, nil
}

func TestProcessIdentifierFirstSighting(t *testing.T) {
	r := NewRollup(mapResolver{"a": "US"})
	u := newFakeUnit()
	tick := PeriodFor(epoch(t, "2024-01-01T00:00:00Z"), 5)

	n, err := r.ProcessIdentifier(context.Background(), u, "a", tick)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, 4, u.lookups)

	for _, key := range []string{"2024-01-01-00-00", "2024-01-01-00", "2024-01-01", "2024-01", "2024"} {
		assert.Equal(t, int64(1), u.counts[countKey{key, "US"}], key)
		assert.Equal(t, int64(1), u.counts[countKey{key, CountryAll}], key)
	}
}

func TestProcessIdentifierStopsAtFirstSeenLevel(t *testing.T) {
	r := NewRollup(mapResolver{"a": "US"})
	u := newFakeUnit()
	ctx := context.Background()

	first := PeriodFor(epoch(t, "2024-01-01T00:00:00Z"), 5)
	second := PeriodFor(epoch(t, "2024-01-01T00:05:00Z"), 5)

	_, err := r.ProcessIdentifier(ctx, u, "a", first)
	require.NoError(t, err)
	u.lookups = 0

	n, err := r.ProcessIdentifier(ctx, u, "a", second)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, u.lookups)
	assert.Equal(t, int64(1), u.counts[countKey{"2024-01-01-00-05", "US"}])
	assert.Equal(t, int64(1), u.counts[countKey{"2024-01-01-00", "US"}])
}

func TestProcessIdentifierNewHourSameDay(t *testing.T) {
	r := NewRollup(mapResolver{"a": "DE"})
	u := newFakeUnit()
	ctx := context.Background()

	first := PeriodFor(epoch(t, "2024-01-01T00:00:00Z"), 5)
	next := PeriodFor(epoch(t, "2024-01-01T01:00:00Z"), 5)

	_, err := r.ProcessIdentifier(ctx, u, "a", first)
	require.NoError(t, err)
	_, err = u.Purge(ctx, first.Prefix(GranularityHour))
	require.NoError(t, err)

	n, err := r.ProcessIdentifier(ctx, u, "a", next)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, int64(1), u.counts[countKey{"2024-01-01-01", "DE"}])
	assert.Equal(t, int64(1), u.counts[countKey{"2024-01-01", "DE"}])
}

func TestProcessIdentifierUnknownCountry(t *testing.T) {
	r := NewRollup(mapResolver{})
	u := newFakeUnit()
	tick := PeriodFor(epoch(t, "2024-01-01T00:00:00Z"), 5)

	_, err := r.ProcessIdentifier(context.Background(), u, "nobody", tick)
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.counts[countKey{"2024-01-01-00-00", CountryUnknown}])
	assert.Equal(t, int64(1), u.counts[countKey{"2024", CountryAll}])
}

func TestProcessIdentifierPropagatesStoreError(t *testing.T) {
	r := NewRollup(mapResolver{"a": "US"})
	u := newFakeUnit()
	u.containsErr = errors.New("connection reset")
	tick := PeriodFor(epoch(t, "2024-01-01T00:00:00Z"), 5)

	_, err := r.ProcessIdentifier(context.Background(), u, "a", tick)
	require.Error(t, err)
	assert.ErrorIs(t, err, u.containsErr)
}

func TestProcessIdentifierRejectsCoarsePeriod(t *testing.T) {
	r := NewRollup(mapResolver{})
	hour := PeriodFor(epoch(t, "2024-01-01T00:00:00Z"), 5).Prefix(GranularityHour)

	_, err := r.ProcessIdentifier(context.Background(), newFakeUnit(), "a", hour)
	require.Error(t, err)
}

func TestNewRollupPanicsOnNilResolver(t *testing.T) {
	assert.Panics(t, func() { NewRollup(nil) })
}
