package aggregation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Granularity is one level of the calendar hierarchy, coarsest first.
type Granularity int

const (
	GranularityYear Granularity = iota + 1
	GranularityMonth
	GranularityDay
	GranularityHour
	GranularityTick
)

// DedupGranularities are the levels that carry dedup state, finest to coarsest.
// ProcessIdentifier ascends them in this order and ClosePeriods closes them in this order.
var DedupGranularities = []Granularity{
	GranularityHour,
	GranularityDay,
	GranularityMonth,
	GranularityYear,
}

var granularityNames = map[Granularity]string{
	GranularityYear:  "year",
	GranularityMonth: "month",
	GranularityDay:   "day",
	GranularityHour:  "hour",
	GranularityTick:  "tick",
}

func (g Granularity) String() string {
	if name, ok := granularityNames[g]; ok {
		return name
	}
	return fmt.Sprintf("granularity(%d)", int(g))
}

func (g Granularity) Valid() bool {
	return g >= GranularityYear && g <= GranularityTick
}

// KeyLength is the length of a storage key at this granularity.
func (g Granularity) KeyLength() int {
	switch g {
	case GranularityYear:
		return 4
	case GranularityMonth:
		return 7
	case GranularityDay:
		return 10
	case GranularityHour:
		return 13
	case GranularityTick:
		return 16
	default:
		return 0
	}
}

// ParseGranularity accepts the lower-case level names. "minute" is an alias for tick.
func ParseGranularity(s string) (Granularity, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "minute" {
		return GranularityTick, nil
	}
	for g, n := range granularityNames {
		if n == name {
			return g, nil
		}
	}
	return 0, fmt.Errorf("unknown granularity %q", s)
}

// Period is a calendar bucket. Fields finer than Granularity are always zero,
// so two periods of the same granularity compare field by field.
type Period struct {
	Year        int
	Month       int
	Day         int
	Hour        int
	Tick        int
	TickMinutes int
	Granularity Granularity
}

// PeriodFor returns the tick-level period containing the UTC epoch timestamp ts.
func PeriodFor(ts int64, tickMinutes int) Period {
	if tickMinutes <= 0 {
		tickMinutes = DefaultTickMinutes
	}
	t := time.Unix(ts, 0).UTC()
	return Period{
		Year:        t.Year(),
		Month:       int(t.Month()),
		Day:         t.Day(),
		Hour:        t.Hour(),
		Tick:        t.Minute() / tickMinutes,
		TickMinutes: tickMinutes,
		Granularity: GranularityTick,
	}
}

// Prefix truncates p to granularity g. Asking for a finer level than p has returns p.
func (p Period) Prefix(g Granularity) Period {
	if !g.Valid() || g >= p.Granularity {
		return p
	}
	q := p
	q.Granularity = g
	if g < GranularityTick {
		q.Tick = 0
	}
	if g < GranularityHour {
		q.Hour = 0
	}
	if g < GranularityDay {
		q.Day = 0
	}
	if g < GranularityMonth {
		q.Month = 0
	}
	return q
}

func (p Period) IsZero() bool {
	return p.Granularity == 0
}

// Compare orders two periods of the same granularity chronologically.
func (p Period) Compare(o Period) int {
	a := [...]int{p.Year, p.Month, p.Day, p.Hour, p.Tick}
	b := [...]int{o.Year, o.Month, o.Day, o.Hour, o.Tick}
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

func (p Period) Before(o Period) bool {
	return p.Compare(o) < 0
}

// Start is the first instant of the period in UTC.
func (p Period) Start() time.Time {
	month := p.Month
	if month == 0 {
		month = 1
	}
	day := p.Day
	if day == 0 {
		day = 1
	}
	return time.Date(p.Year, time.Month(month), day, p.Hour, p.Tick*p.TickMinutes, 0, 0, time.UTC)
}

// Key is the storage form of the period.
func (p Period) Key() string {
	switch p.Granularity {
	case GranularityYear:
		return fmt.Sprintf("%04d", p.Year)
	case GranularityMonth:
		return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
	case GranularityDay:
		return fmt.Sprintf("%04d-%02d-%02d", p.Year, p.Month, p.Day)
	case GranularityHour:
		return fmt.Sprintf("%04d-%02d-%02d-%02d", p.Year, p.Month, p.Day, p.Hour)
	case GranularityTick:
		return fmt.Sprintf("%04d-%02d-%02d-%02d-%02d", p.Year, p.Month, p.Day, p.Hour, p.Tick*p.TickMinutes)
	default:
		return ""
	}
}

func (p Period) String() string {
	if p.IsZero() {
		return "<none>"
	}
	return p.Key()
}

// ParsePeriodKey is the inverse of Key.
func ParsePeriodKey(key string, tickMinutes int) (Period, error) {
	if tickMinutes <= 0 {
		tickMinutes = DefaultTickMinutes
	}
	parts := strings.Split(key, "-")
	if len(parts) < 1 || len(parts) > 5 || len(key) != Granularity(len(parts)).KeyLength() {
		return Period{}, fmt.Errorf("parse period key %q: unexpected shape", key)
	}

	fields := make([]int, len(parts))
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return Period{}, fmt.Errorf("parse period key %q: %w", key, err)
		}
		fields[i] = v
	}

	p := Period{Year: fields[0], TickMinutes: tickMinutes, Granularity: Granularity(len(parts))}
	if len(fields) > 1 {
		p.Month = fields[1]
		if p.Month < 1 || p.Month > 12 {
			return Period{}, fmt.Errorf("parse period key %q: month out of range", key)
		}
	}
	if len(fields) > 2 {
		p.Day = fields[2]
		if p.Day < 1 || p.Day > 31 {
			return Period{}, fmt.Errorf("parse period key %q: day out of range", key)
		}
	}
	if len(fields) > 3 {
		p.Hour = fields[3]
		if p.Hour > 23 {
			return Period{}, fmt.Errorf("parse period key %q: hour out of range", key)
		}
	}
	if len(fields) > 4 {
		minute := fields[4]
		if minute > 59 || minute%tickMinutes != 0 {
			return Period{}, fmt.Errorf("parse period key %q: minute %d is not a tick boundary", key, minute)
		}
		p.Tick = minute / tickMinutes
	}
	return p, nil
}
