// Package ratecalc computes simple-interest accumulation over a stored rate
// series. This is what the tracked series exist for: a judicial liquidation
// applies the daily rate of every calendar day in the claim period.
package ratecalc

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tasas/ratesync/internal/daterange"
	"github.com/tasas/ratesync/internal/domain"
	"github.com/tasas/ratesync/internal/repository"
)

// Result holds one accumulation. Days without a stored value are listed in
// DaysMissing and contribute nothing; a caller that needs them exact should
// run a field scan and retry once the gaps are backfilled.
type Result struct {
	Series      domain.Series   `json:"series"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	Days        int             `json:"days"`
	DaysMissing []time.Time     `json:"days_missing,omitempty"`
	Coefficient decimal.Decimal `json:"coefficient"`
	Interest    decimal.Decimal `json:"interest"`
	Total       decimal.Decimal `json:"total"`
}

// Calculator reads daily rates from the canonical store.
type Calculator struct {
	records *repository.RecordRepo
}

func NewCalculator(records *repository.RecordRepo) *Calculator {
	return &Calculator{records: records}
}

// daysBetween is the day count of the half-open range (from, to].
func daysBetween(from, to time.Time) int {
	return int(domain.Day(to).Sub(domain.Day(from)).Hours() / 24)
}

// SimpleInterest accumulates the series' daily rates over (from, to] and
// applies the resulting coefficient to principal. Rates are stored as
// annual percentages; each day contributes rate/100/365.
func (c *Calculator) SimpleInterest(series domain.Series, from, to time.Time, principal float64) (*Result, error) {
	if !domain.IsKnownSeries(series) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownField, series)
	}

	quantity := daysBetween(from, to)
	if quantity < 1 {
		return nil, fmt.Errorf("%w: %s..%s", domain.ErrInvalidRange,
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	days, err := daterange.Generate(from, to, quantity)
	if err != nil {
		return nil, err
	}

	recs, err := c.records.FindByDateRange(days[0], days[len(days)-1])
	if err != nil {
		return nil, err
	}

	byDay := make(map[time.Time]float64)
	for _, rec := range recs {
		d := domain.Day(rec.Date)
		if !rec.Date.UTC().Equal(d) {
			continue // skewed records are reconciliation's problem
		}
		if v, ok := rec.Fields[series]; ok {
			byDay[d] = v
		}
	}

	res := &Result{
		Series: series,
		From:   domain.Day(from),
		To:     domain.Day(to),
		Days:   len(days),
	}

	yearBasis := decimal.NewFromInt(36500) // percent * 365 days
	coefficient := decimal.Zero
	for _, d := range days {
		rate, ok := byDay[d]
		if !ok {
			res.DaysMissing = append(res.DaysMissing, d)
			continue
		}
		coefficient = coefficient.Add(decimal.NewFromFloat(rate).Div(yearBasis))
	}

	p := decimal.NewFromFloat(principal)
	res.Coefficient = coefficient.Round(10)
	res.Interest = p.Mul(coefficient).Round(2)
	res.Total = p.Add(res.Interest).Round(2)
	return res, nil
}
