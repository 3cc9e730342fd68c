package domain

import "time"

// Series identifies one tracked daily rate or index series.
type Series string

const (
	SeriesPassiveCentralBank Series = "passiveRateCentralBank"
	SeriesPassiveStateBank   Series = "passiveRateStateBank"
	SeriesActiveStateBank    Series = "activeRateStateBank"
	SeriesActiveJudicial     Series = "activeRateJudicial"
	SeriesCPIIndex           Series = "cpiIndex"
	SeriesWageIndex          Series = "wageIndex"
)

// SeriesAll is the ledger sentinel that tracks record presence for a day
// regardless of which fields the record holds. It is not a record field.
const SeriesAll Series = "all"

// KnownSeries lists every rate field a DailyRateRecord may carry, in the
// order merges and scans iterate them.
var KnownSeries = []Series{
	SeriesPassiveCentralBank,
	SeriesPassiveStateBank,
	SeriesActiveStateBank,
	SeriesActiveJudicial,
	SeriesCPIIndex,
	SeriesWageIndex,
}

// IsKnownSeries reports whether s names a record field (SeriesAll is not one).
func IsKnownSeries(s Series) bool {
	for _, k := range KnownSeries {
		if k == s {
			return true
		}
	}
	return false
}

// Day truncates t to UTC midnight, the canonical key for a daily record.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DailyRateRecord holds the values observed for one calendar day. A missing
// key in Fields means "not yet known", never zero. Date is stored as
// observed: a scrape that captured time-of-day skew keeps it, which is what
// gap detection classifies as a conflict.
type DailyRateRecord struct {
	ID     string             `json:"id"`
	Date   time.Time          `json:"date"`
	Fields map[Series]float64 `json:"fields"`
}

// Has reports whether the record already holds a value for s.
func (r *DailyRateRecord) Has(s Series) bool {
	_, ok := r.Fields[s]
	return ok
}

// ScrapedValue is one data point delivered by an ingestion adapter.
type ScrapedValue struct {
	Date   time.Time `json:"date"`
	Series Series    `json:"series"`
	Value  float64   `json:"value"`
	Source string    `json:"source,omitempty"`
}
