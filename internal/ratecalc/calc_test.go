package ratecalc_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasas/ratesync/internal/domain"
	"github.com/tasas/ratesync/internal/ratecalc"
	"github.com/tasas/ratesync/internal/repository"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newCalc(t *testing.T) (*ratecalc.Calculator, *repository.RecordRepo) {
	db, err := repository.InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	records := repository.NewRecordRepo(db)
	return ratecalc.NewCalculator(records), records
}

func TestSimpleInterest_AccumulatesDailyRates(t *testing.T) {
	calc, records := newCalc(t)

	// 365% annual over two days: 1% per day, 2% total.
	_, err := records.UpsertDailyValue(day(2024, 1, 2), domain.SeriesActiveJudicial, 365.0)
	require.NoError(t, err)
	_, err = records.UpsertDailyValue(day(2024, 1, 3), domain.SeriesActiveJudicial, 365.0)
	require.NoError(t, err)

	res, err := calc.SimpleInterest(domain.SeriesActiveJudicial, day(2024, 1, 1), day(2024, 1, 3), 1000)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Days)
	assert.Empty(t, res.DaysMissing)
	assert.True(t, res.Coefficient.Equal(decimal.RequireFromString("0.02")),
		"coefficient = %s", res.Coefficient)
	assert.True(t, res.Interest.Equal(decimal.RequireFromString("20")),
		"interest = %s", res.Interest)
	assert.True(t, res.Total.Equal(decimal.RequireFromString("1020")),
		"total = %s", res.Total)
}

func TestSimpleInterest_ReportsMissingDays(t *testing.T) {
	calc, records := newCalc(t)

	_, err := records.UpsertDailyValue(day(2024, 1, 2), domain.SeriesActiveJudicial, 365.0)
	require.NoError(t, err)

	res, err := calc.SimpleInterest(domain.SeriesActiveJudicial, day(2024, 1, 1), day(2024, 1, 4), 1000)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Days)
	require.Len(t, res.DaysMissing, 2)
	assert.Equal(t, day(2024, 1, 3), res.DaysMissing[0])
	assert.Equal(t, day(2024, 1, 4), res.DaysMissing[1])

	// Only the present day accrues.
	assert.True(t, res.Interest.Equal(decimal.RequireFromString("10")),
		"interest = %s", res.Interest)
}

func TestSimpleInterest_RejectsUnknownSeries(t *testing.T) {
	calc, _ := newCalc(t)
	_, err := calc.SimpleInterest(domain.Series("bogus"), day(2024, 1, 1), day(2024, 1, 3), 1000)
	assert.ErrorIs(t, err, domain.ErrUnknownField)
}

func TestSimpleInterest_RejectsEmptyPeriod(t *testing.T) {
	calc, _ := newCalc(t)
	_, err := calc.SimpleInterest(domain.SeriesActiveJudicial, day(2024, 1, 3), day(2024, 1, 3), 1000)
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}
