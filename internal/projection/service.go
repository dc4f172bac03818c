package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/JFreegman/toxstats/internal/core/aggregation"
	"github.com/JFreegman/toxstats/internal/core/storage"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMaxCountries = 5
	// dayLookback is how many days back the day breakdown searches for a completed day.
	dayLookback = 31
)

var (
	// ErrInvalidQuery marks request validation errors that should return HTTP 400.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNoData is returned before the first snapshot has been ingested.
	ErrNoData = errors.New("no data ingested yet")

	// levelPoints caps the number of points a series returns per granularity.
	levelPoints = map[aggregation.Granularity]int{
		aggregation.GranularityYear:  100,
		aggregation.GranularityMonth: 1200,
		aggregation.GranularityDay:   1200,
		aggregation.GranularityHour:  3031,
		aggregation.GranularityTick:  28800,
	}

	// The newest bucket at these levels is still filling up.
	dropsOpenBucket = map[aggregation.Granularity]bool{
		aggregation.GranularityMonth: true,
		aggregation.GranularityDay:   true,
		aggregation.GranularityHour:  true,
	}
)

// TTLs is how long each kind of response stays cached.
type TTLs struct {
	Checkpoint time.Duration
	Current    time.Duration
	Day        time.Duration
	Countries  time.Duration
	Series     time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{
		Checkpoint: 10 * time.Second,
		Current:    5 * time.Minute,
		Day:        time.Hour,
		Countries:  8 * time.Hour,
		Series:     5 * time.Minute,
	}
}

type Option func(*Service)

// WithCache enables response caching. Without it every request hits the reader.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithTTLs(t TTLs) Option {
	return func(s *Service) { s.ttl = t }
}

func WithMaxCountries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxCountries = n
		}
	}
}

// Service implements the read side over the aggregated counts.
// Cache keys embed the checkpoint, so a finished ingestion run invalidates them.
type Service struct {
	reader       storage.CountReader
	cache        Cache
	ttl          TTLs
	maxCountries int
	tickMinutes  int
	group        singleflight.Group
}

func NewService(reader storage.CountReader, tickMinutes int, opts ...Option) *Service {
	if reader == nil {
		panic("projection: reader must not be nil")
	}
	if tickMinutes <= 0 {
		tickMinutes = aggregation.DefaultTickMinutes
	}
	s := &Service{
		reader:       reader,
		ttl:          DefaultTTLs(),
		maxCountries: DefaultMaxCountries,
		tickMinutes:  tickMinutes,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// MaxCountries is the most countries one series request may select.
func (s *Service) MaxCountries() int {
	return s.maxCountries
}

type checkpointValue struct {
	Timestamp int64 `json:"ts"`
	OK        bool  `json:"ok"`
}

func (s *Service) checkpoint(ctx context.Context) (int64, bool, error) {
	v, err := cached(ctx, s, "checkpoint", s.ttl.Checkpoint, func(ctx context.Context) (checkpointValue, error) {
		ts, ok, err := s.reader.LoadCheckpoint(ctx)
		if err != nil {
			return checkpointValue{}, fmt.Errorf("load checkpoint: %w", err)
		}
		return checkpointValue{Timestamp: ts, OK: ok}, nil
	})
	return v.Timestamp, v.OK, err
}

// Series returns each requested country's counts at one granularity, oldest first.
func (s *Service) Series(ctx context.Context, req SeriesRequest) (*SeriesResponse, error) {
	g, countries, limit, err := s.normalizeSeries(req)
	if err != nil {
		return nil, err
	}

	cp, _, err := s.checkpoint(ctx)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("series:%d:%s:%d:%s", cp, g, limit, strings.Join(countries, ","))
	return cached(ctx, s, key, s.ttl.Series, func(ctx context.Context) (*SeriesResponse, error) {
		resp := &SeriesResponse{
			Granularity: g.String(),
			Checkpoint:  cp,
			Series:      make([]CountrySeries, 0, len(countries)),
		}
		for _, country := range countries {
			counts, err := s.reader.ScanCounts(ctx, g, country, limit)
			if err != nil {
				return nil, fmt.Errorf("scan %s counts for %s: %w", g, country, err)
			}
			if dropsOpenBucket[g] && len(counts) > 0 {
				counts = counts[1:]
			}
			points := make([]SeriesPoint, len(counts))
			for i, c := range counts {
				// counts are newest first
				points[len(counts)-1-i] = SeriesPoint{Period: c.Period.Key(), Start: c.Period.Start(), Nodes: c.Nodes}
			}
			resp.Series = append(resp.Series, CountrySeries{Country: country, Points: points})
		}
		return resp, nil
	})
}

func (s *Service) normalizeSeries(req SeriesRequest) (aggregation.Granularity, []string, int, error) {
	g := aggregation.GranularityTick
	if req.Granularity != "" {
		parsed, err := aggregation.ParseGranularity(req.Granularity)
		if err != nil {
			return 0, nil, 0, invalidQueryf("%v (must be tick, hour, day, month or year)", err)
		}
		g = parsed
	}

	var countries []string
	seen := make(map[string]bool)
	for _, c := range req.Countries {
		code := strings.ToUpper(strings.TrimSpace(c))
		if !validCountryCode(code) {
			return 0, nil, 0, invalidQueryf("invalid country code %q", c)
		}
		if !seen[code] {
			seen[code] = true
			countries = append(countries, code)
		}
	}
	if len(countries) == 0 {
		countries = []string{aggregation.CountryAll}
	}
	if len(countries) > s.maxCountries {
		return 0, nil, 0, invalidQueryf("at most %d countries may be selected, got %d", s.maxCountries, len(countries))
	}

	limit := levelPoints[g]
	if req.Limit < 0 {
		return 0, nil, 0, invalidQueryf("limit must not be negative")
	}
	if req.Limit > 0 && req.Limit < limit {
		limit = req.Limit
	}
	return g, countries, limit, nil
}

func validCountryCode(code string) bool {
	if code == aggregation.CountryAll || code == aggregation.CountryUnknown {
		return true
	}
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// CurrentBreakdown splits the tick of the latest ingested snapshot by country.
func (s *Service) CurrentBreakdown(ctx context.Context) (*Breakdown, error) {
	cp, ok, err := s.checkpoint(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoData
	}
	key := fmt.Sprintf("current:%d", cp)
	return cached(ctx, s, key, s.ttl.Current, func(ctx context.Context) (*Breakdown, error) {
		return s.breakdown(ctx, aggregation.PeriodFor(cp, s.tickMinutes))
	})
}

// DayBreakdown splits the most recent completed day by country. It searches up
// to a month back and falls back to the checkpoint's own day.
func (s *Service) DayBreakdown(ctx context.Context) (*Breakdown, error) {
	cp, ok, err := s.checkpoint(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoData
	}
	key := fmt.Sprintf("day:%d", cp)
	return cached(ctx, s, key, s.ttl.Day, func(ctx context.Context) (*Breakdown, error) {
		day, err := s.lastCompleteDay(ctx, cp)
		if err != nil {
			return nil, err
		}
		return s.breakdown(ctx, day)
	})
}

func (s *Service) lastCompleteDay(ctx context.Context, cp int64) (aggregation.Period, error) {
	today := aggregation.PeriodFor(cp, s.tickMinutes).Prefix(aggregation.GranularityDay)
	start := today.Start()
	for i := 1; i <= dayLookback; i++ {
		day := aggregation.PeriodFor(start.AddDate(0, 0, -i).Unix(), s.tickMinutes).Prefix(aggregation.GranularityDay)
		ok, err := s.reader.HasPeriod(ctx, day)
		if err != nil {
			return aggregation.Period{}, fmt.Errorf("look up day %s: %w", day, err)
		}
		if ok {
			return day, nil
		}
	}
	slog.Debug("[Projection] No completed day found, using checkpoint day", "day", today)
	return today, nil
}

func (s *Service) breakdown(ctx context.Context, p aggregation.Period) (*Breakdown, error) {
	counts, err := s.reader.CountsAt(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("counts at %s: %w", p, err)
	}

	out := &Breakdown{Period: p.Key(), Start: p.Start(), Countries: []CountryShare{}}
	for _, c := range counts {
		if c.Country == aggregation.CountryAll {
			out.Total = c.Nodes
		}
	}
	for _, c := range counts {
		if c.Country == aggregation.CountryAll {
			continue
		}
		out.Countries = append(out.Countries, CountryShare{
			Country: c.Country,
			Nodes:   c.Nodes,
			Share:   aggregation.Share(c.Nodes, out.Total),
		})
	}
	sort.SliceStable(out.Countries, func(i, j int) bool {
		a, b := out.Countries[i], out.Countries[j]
		if a.Nodes != b.Nodes {
			return a.Nodes > b.Nodes
		}
		return a.Country < b.Country
	})
	return out, nil
}

// LastUpdate reports when the latest snapshot was taken.
func (s *Service) LastUpdate(ctx context.Context) (*LastUpdate, error) {
	cp, ok, err := s.checkpoint(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoData
	}
	return &LastUpdate{
		Timestamp:  cp,
		LastUpdate: time.Unix(cp, 0).UTC().Format("2006-01-02 15:04:05"),
	}, nil
}

// Countries lists the country codes that have ever been counted.
func (s *Service) Countries(ctx context.Context) (*CountriesResponse, error) {
	cp, _, err := s.checkpoint(ctx)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("countries:%d", cp)
	return cached(ctx, s, key, s.ttl.Countries, func(ctx context.Context) (*CountriesResponse, error) {
		codes, err := s.reader.Countries(ctx)
		if err != nil {
			return nil, fmt.Errorf("list countries: %w", err)
		}
		if codes == nil {
			codes = []string{}
		}
		return &CountriesResponse{Countries: codes}, nil
	})
}

// cached serves key from the cache or loads it once for all concurrent callers.
// Cache failures degrade to a direct load.
func cached[T any](ctx context.Context, s *Service, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if s.cache == nil {
		return load(ctx)
	}

	var zero T
	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		slog.Warn("[Projection] Cache read failed", "key", key, "error", err)
	} else if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		slog.Warn("[Projection] Discarding undecodable cache entry", "key", key)
	}

	res, err, _ := s.group.Do(key, func() (interface{}, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		if err := s.cache.Set(ctx, key, raw, ttl); err != nil {
			slog.Warn("[Projection] Cache write failed", "key", key, "error", err)
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}

func invalidQueryf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}
