package aggregation

const (
	// CountryAll is the aggregate pseudo-country incremented alongside every real one.
	CountryAll = "ALL"
	// CountryUnknown is recorded when an identifier cannot be resolved.
	CountryUnknown = "??"

	DefaultTickMinutes = 5
	// DefaultMinActivity is the identifier count below which a snapshot is treated as noise.
	DefaultMinActivity = 1500
)

// NodeCount is one materialized (period, country) total.
type NodeCount struct {
	Period  Period
	Country string
	Nodes   int64
}
