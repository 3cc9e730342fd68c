package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tasas/ratesync/internal/domain"
)

func TestDay_TruncatesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("ART", -3*60*60)
	in := time.Date(2024, 1, 3, 22, 15, 0, 0, loc) // 2024-01-04 01:15 UTC

	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), domain.Day(in))
}

func TestIsKnownSeries(t *testing.T) {
	assert.True(t, domain.IsKnownSeries(domain.SeriesCPIIndex))
	assert.False(t, domain.IsKnownSeries(domain.SeriesAll))
	assert.False(t, domain.IsKnownSeries(domain.Series("bogus")))
}

func TestLedgerState(t *testing.T) {
	l := &domain.Ledger{}
	assert.Equal(t, domain.StateIdle, l.State())

	l.MissingDates = []time.Time{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, domain.StatePendingReview, l.State())

	l.MissingDates = nil
	l.ConflictEntries = []domain.ConflictEntry{{RecordID: "r", Resolved: false}}
	assert.Equal(t, domain.StatePendingReview, l.State())

	l.ConflictEntries[0].Resolved = true
	assert.Equal(t, domain.StateIdle, l.State())
}
