// Package daterange produces the calendar-day sequences a reconciliation
// pass walks. Ranges are half-open: the start day is excluded, the end day
// included, so consecutive passes chained on a checkpoint never revisit the
// day the previous pass finished on.
package daterange

import (
	"fmt"
	"time"

	"github.com/tasas/ratesync/internal/domain"
)

// Generate returns the ascending, duplicate-free sequence of UTC midnights
// after start through end, capped at quantity days. start and end are
// truncated to UTC midnight before comparison. end before start, or a
// non-positive quantity, is ErrInvalidRange. start == end yields an empty
// range.
func Generate(start, end time.Time, quantity int) ([]time.Time, error) {
	first := domain.Day(start)
	last := domain.Day(end)

	if last.Before(first) {
		return nil, fmt.Errorf("%w: end %s before start %s",
			domain.ErrInvalidRange, last.Format("2006-01-02"), first.Format("2006-01-02"))
	}
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity %d", domain.ErrInvalidRange, quantity)
	}

	capped := first.AddDate(0, 0, quantity)
	if capped.Before(last) {
		last = capped
	}

	var days []time.Time
	for d := first.AddDate(0, 0, 1); !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days, nil
}
