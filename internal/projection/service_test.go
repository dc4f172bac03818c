package projection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JFreegman/toxstats/internal/core/aggregation"
	"github.com/JFreegman/toxstats/internal/core/storage/memory"
	storagemocks "github.com/JFreegman/toxstats/internal/mocks/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func unix(t *testing.T, s string) int64 {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return v.Unix()
}

type seedCount struct {
	at      string
	g       aggregation.Granularity
	country string
	nodes   int
}

// seed writes counts and a checkpoint through a store unit.
func seed(t *testing.T, store *memory.Store, checkpoint string, counts ...seedCount) {
	t.Helper()
	u, err := store.Begin(context.Background())
	require.NoError(t, err)
	for _, c := range counts {
		p := aggregation.PeriodFor(unix(t, c.at), 5).Prefix(c.g)
		for i := 0; i < c.nodes; i++ {
			u.Increment(p, c.country)
		}
	}
	if checkpoint != "" {
		u.AdvanceCheckpoint(unix(t, checkpoint))
	}
	require.NoError(t, u.Commit(context.Background()))
}

func TestService_Series_Validation(t *testing.T) {
	svc := NewService(storagemocks.NewCountReader(t), 5)

	tests := []struct {
		name string
		req  SeriesRequest
	}{
		{name: "unknown granularity", req: SeriesRequest{Granularity: "week"}},
		{name: "too many countries", req: SeriesRequest{Countries: []string{"US", "DE", "FR", "GB", "NL", "SE"}}},
		{name: "malformed country", req: SeriesRequest{Countries: []string{"USA"}}},
		{name: "negative limit", req: SeriesRequest{Limit: -1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Series(context.Background(), tc.req)
			require.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestService_Series(t *testing.T) {
	store := memory.NewStore(5)
	seed(t, store, "2024-01-01T02:10:00Z",
		seedCount{"2024-01-01T00:00:00Z", aggregation.GranularityHour, "US", 3},
		seedCount{"2024-01-01T01:00:00Z", aggregation.GranularityHour, "US", 4},
		seedCount{"2024-01-01T02:00:00Z", aggregation.GranularityHour, "US", 1},
		seedCount{"2024-01-01T00:00:00Z", aggregation.GranularityHour, aggregation.CountryAll, 5},
		seedCount{"2024-01-01T02:00:00Z", aggregation.GranularityHour, aggregation.CountryAll, 2},
		seedCount{"2024-01-01T02:05:00Z", aggregation.GranularityTick, "US", 7},
		seedCount{"2024-01-01T02:10:00Z", aggregation.GranularityTick, "US", 6},
	)
	svc := NewService(store, 5)

	t.Run("hour drops the open bucket", func(t *testing.T) {
		resp, err := svc.Series(context.Background(), SeriesRequest{Granularity: "hour", Countries: []string{"us", "ALL", "US"}})
		require.NoError(t, err)

		assert.Equal(t, "hour", resp.Granularity)
		assert.Equal(t, unix(t, "2024-01-01T02:10:00Z"), resp.Checkpoint)
		require.Len(t, resp.Series, 2)
		assert.Equal(t, "US", resp.Series[0].Country)
		assert.Equal(t, []SeriesPoint{
			{Period: "2024-01-01-00", Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Nodes: 3},
			{Period: "2024-01-01-01", Start: time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), Nodes: 4},
		}, resp.Series[0].Points)
		assert.Equal(t, "ALL", resp.Series[1].Country)
		require.Len(t, resp.Series[1].Points, 1)
		assert.Equal(t, int64(5), resp.Series[1].Points[0].Nodes)
	})

	t.Run("tick keeps every bucket", func(t *testing.T) {
		resp, err := svc.Series(context.Background(), SeriesRequest{Countries: []string{"US"}})
		require.NoError(t, err)
		require.Len(t, resp.Series, 1)
		require.Len(t, resp.Series[0].Points, 2)
		assert.Equal(t, "2024-01-01-02-05", resp.Series[0].Points[0].Period)
		assert.Equal(t, "2024-01-01-02-10", resp.Series[0].Points[1].Period)
	})

	t.Run("limit keeps the newest points", func(t *testing.T) {
		resp, err := svc.Series(context.Background(), SeriesRequest{Granularity: "tick", Countries: []string{"US"}, Limit: 1})
		require.NoError(t, err)
		require.Len(t, resp.Series[0].Points, 1)
		assert.Equal(t, int64(6), resp.Series[0].Points[0].Nodes)
	})

	t.Run("unknown country is empty", func(t *testing.T) {
		resp, err := svc.Series(context.Background(), SeriesRequest{Countries: []string{"DE"}})
		require.NoError(t, err)
		assert.Empty(t, resp.Series[0].Points)
	})
}

func TestService_Series_UsesLevelPointLimit(t *testing.T) {
	reader := storagemocks.NewCountReader(t)
	reader.EXPECT().LoadCheckpoint(mock.Anything).Return(int64(0), false, nil).Once()
	reader.EXPECT().ScanCounts(mock.Anything, aggregation.GranularityYear, "ALL", 100).Return(nil, nil).Once()

	svc := NewService(reader, 5)
	resp, err := svc.Series(context.Background(), SeriesRequest{Granularity: "year", Limit: 5000})
	require.NoError(t, err)
	require.Len(t, resp.Series, 1)
	assert.Empty(t, resp.Series[0].Points)
}

func TestService_CurrentBreakdown(t *testing.T) {
	store := memory.NewStore(5)
	at := "2024-03-10T12:07:00Z"
	seed(t, store, at,
		seedCount{at, aggregation.GranularityTick, "US", 3},
		seedCount{at, aggregation.GranularityTick, "DE", 3},
		seedCount{at, aggregation.GranularityTick, "??", 1},
		seedCount{at, aggregation.GranularityTick, "FR", 2},
		seedCount{at, aggregation.GranularityTick, aggregation.CountryAll, 9},
	)
	svc := NewService(store, 5)

	resp, err := svc.CurrentBreakdown(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2024-03-10-12-05", resp.Period)
	assert.Equal(t, int64(9), resp.Total)
	require.Len(t, resp.Countries, 4)
	assert.Equal(t, []string{"DE", "US", "FR", "??"}, []string{
		resp.Countries[0].Country, resp.Countries[1].Country, resp.Countries[2].Country, resp.Countries[3].Country,
	})
	assert.True(t, decimal.RequireFromString("0.3333").Equal(resp.Countries[0].Share))
	assert.True(t, decimal.RequireFromString("0.1111").Equal(resp.Countries[3].Share))
}

func TestService_DayBreakdown(t *testing.T) {
	t.Run("uses the most recent completed day", func(t *testing.T) {
		store := memory.NewStore(5)
		seed(t, store, "2024-03-10T12:00:00Z",
			seedCount{"2024-03-07T00:00:00Z", aggregation.GranularityDay, "US", 10},
			seedCount{"2024-03-07T00:00:00Z", aggregation.GranularityDay, aggregation.CountryAll, 10},
			seedCount{"2024-03-10T00:00:00Z", aggregation.GranularityDay, "US", 2},
			seedCount{"2024-03-10T00:00:00Z", aggregation.GranularityDay, aggregation.CountryAll, 2},
		)

		resp, err := NewService(store, 5).DayBreakdown(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "2024-03-07", resp.Period)
		assert.Equal(t, int64(10), resp.Total)
		require.Len(t, resp.Countries, 1)
		assert.True(t, decimal.NewFromInt(1).Equal(resp.Countries[0].Share))
	})

	t.Run("falls back to the checkpoint day", func(t *testing.T) {
		store := memory.NewStore(5)
		seed(t, store, "2024-03-10T12:00:00Z",
			seedCount{"2024-01-01T00:00:00Z", aggregation.GranularityDay, aggregation.CountryAll, 8},
			seedCount{"2024-03-10T00:00:00Z", aggregation.GranularityDay, "DE", 2},
			seedCount{"2024-03-10T00:00:00Z", aggregation.GranularityDay, aggregation.CountryAll, 2},
		)

		resp, err := NewService(store, 5).DayBreakdown(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "2024-03-10", resp.Period)
		assert.Equal(t, int64(2), resp.Total)
	})
}

func TestService_NoData(t *testing.T) {
	svc := NewService(memory.NewStore(5), 5)
	ctx := context.Background()

	_, err := svc.LastUpdate(ctx)
	assert.ErrorIs(t, err, ErrNoData)
	_, err = svc.CurrentBreakdown(ctx)
	assert.ErrorIs(t, err, ErrNoData)
	_, err = svc.DayBreakdown(ctx)
	assert.ErrorIs(t, err, ErrNoData)

	countries, err := svc.Countries(ctx)
	require.NoError(t, err)
	assert.Empty(t, countries.Countries)
}

func TestService_LastUpdate(t *testing.T) {
	store := memory.NewStore(5)
	seed(t, store, "2024-03-10T12:07:09Z")

	resp, err := NewService(store, 5).LastUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10 12:07:09", resp.LastUpdate)
	assert.Equal(t, unix(t, "2024-03-10T12:07:09Z"), resp.Timestamp)
}

func TestService_CachesByCheckpoint(t *testing.T) {
	reader := storagemocks.NewCountReader(t)
	reader.EXPECT().LoadCheckpoint(mock.Anything).Return(int64(1704067200), true, nil).Once()
	reader.EXPECT().Countries(mock.Anything).Return([]string{"DE", "US"}, nil).Once()

	svc := NewService(reader, 5, WithCache(NewMemoryCache(16)))
	for i := 0; i < 3; i++ {
		resp, err := svc.Countries(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"DE", "US"}, resp.Countries)
	}
}

func TestService_NewCheckpointInvalidates(t *testing.T) {
	reader := storagemocks.NewCountReader(t)
	reader.EXPECT().LoadCheckpoint(mock.Anything).Return(int64(100), true, nil).Once()
	reader.EXPECT().LoadCheckpoint(mock.Anything).Return(int64(400), true, nil).Once()
	reader.EXPECT().Countries(mock.Anything).Return([]string{"US"}, nil).Once()
	reader.EXPECT().Countries(mock.Anything).Return([]string{"DE", "US"}, nil).Once()

	ttl := DefaultTTLs()
	ttl.Checkpoint = time.Nanosecond
	svc := NewService(reader, 5, WithCache(NewMemoryCache(16)), WithTTLs(ttl))

	first, err := svc.Countries(context.Background())
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	second, err := svc.Countries(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"US"}, first.Countries)
	assert.Equal(t, []string{"DE", "US"}, second.Countries)
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("cache down")
}

func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("cache down")
}

func TestService_CacheFailureFallsThrough(t *testing.T) {
	store := memory.NewStore(5)
	seed(t, store, "2024-03-10T12:07:09Z",
		seedCount{"2024-03-10T12:07:09Z", aggregation.GranularityYear, "US", 1})

	resp, err := NewService(store, 5, WithCache(brokenCache{})).Countries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"US"}, resp.Countries)
}

func TestService_ReaderErrorsPropagate(t *testing.T) {
	boom := errors.New("db down")
	reader := storagemocks.NewCountReader(t)
	reader.EXPECT().LoadCheckpoint(mock.Anything).Return(int64(0), false, boom).Once()

	_, err := NewService(reader, 5).LastUpdate(context.Background())
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvalidQuery)
}
