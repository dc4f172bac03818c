package projection

import (
	"time"

	"github.com/shopspring/decimal"
)

// SeriesRequest selects one granularity and up to MaxCountries countries.
type SeriesRequest struct {
	Granularity string   `form:"granularity"` // default: "tick"
	Countries   []string `form:"country"`     // default: ["ALL"]
	Limit       int      `form:"limit"`
}

// SeriesPoint is one bucket of a country's series.
type SeriesPoint struct {
	Period string    `json:"period"`
	Start  time.Time `json:"start"`
	Nodes  int64     `json:"nodes"`
}

type CountrySeries struct {
	Country string        `json:"country"`
	Points  []SeriesPoint `json:"points"`
}

type SeriesResponse struct {
	Granularity string          `json:"granularity"`
	Checkpoint  int64           `json:"checkpoint"`
	Series      []CountrySeries `json:"series"`
}

// CountryShare is a country's count and its share of the ALL total.
type CountryShare struct {
	Country string          `json:"country"`
	Nodes   int64           `json:"nodes"`
	Share   decimal.Decimal `json:"share"`
}

// Breakdown is the per-country split of one period.
type Breakdown struct {
	Period    string         `json:"period"`
	Start     time.Time      `json:"start"`
	Total     int64          `json:"total"`
	Countries []CountryShare `json:"countries"`
}

type LastUpdate struct {
	Timestamp  int64  `json:"timestamp"`
	LastUpdate string `json:"last_update"`
}

type CountriesResponse struct {
	Countries []string `json:"countries"`
}
