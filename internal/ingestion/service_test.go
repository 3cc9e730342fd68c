package ingestion_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasas/ratesync/internal/domain"
	"github.com/tasas/ratesync/internal/ingestion"
	"github.com/tasas/ratesync/internal/repository"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestIngestion(t *testing.T) (*ingestion.Service, *repository.RecordRepo, *repository.LedgerRepo) {
	db, err := repository.InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	records := repository.NewRecordRepo(db)
	ledgers := repository.NewLedgerRepo(db)
	return ingestion.NewService(records, ledgers), records, ledgers
}

func TestApply_CreatesRecordsAndLedgers(t *testing.T) {
	svc, records, ledgers := newTestIngestion(t)

	res, err := svc.Apply([]domain.ScrapedValue{
		{Date: day(2024, 1, 2), Series: domain.SeriesPassiveCentralBank, Value: 118.4},
		{Date: day(2024, 1, 3), Series: domain.SeriesPassiveCentralBank, Value: 118.6},
		{Date: day(2024, 1, 3), Series: domain.SeriesCPIIndex, Value: 2.5},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Applied)
	assert.Zero(t, res.Skipped)

	rec, err := records.FindByDate(day(2024, 1, 3))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 118.6, rec.Fields[domain.SeriesPassiveCentralBank])
	assert.Equal(t, 2.5, rec.Fields[domain.SeriesCPIIndex])

	all, err := ledgers.Load("all")
	require.NoError(t, err)
	require.NotNil(t, all)
	assert.Equal(t, day(2024, 1, 3), all.LastKnownSource)

	cpi, err := ledgers.Load(string(domain.SeriesCPIIndex))
	require.NoError(t, err)
	require.NotNil(t, cpi)
	assert.Equal(t, day(2024, 1, 3), cpi.LastKnownSource)
	assert.Equal(t, day(2024, 1, 2), cpi.LastChecked)
}

func TestApply_AdvancesWatermarkOnExistingLedger(t *testing.T) {
	svc, _, ledgers := newTestIngestion(t)

	_, err := svc.Apply([]domain.ScrapedValue{
		{Date: day(2024, 1, 2), Series: domain.SeriesWageIndex, Value: 1.05},
	})
	require.NoError(t, err)

	_, err = svc.Apply([]domain.ScrapedValue{
		{Date: day(2024, 1, 9), Series: domain.SeriesWageIndex, Value: 1.06},
	})
	require.NoError(t, err)

	ledger, err := ledgers.Load(string(domain.SeriesWageIndex))
	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 9), ledger.LastKnownSource)
	// The checkpoint does not move on ingestion; only detection advances it.
	assert.Equal(t, day(2024, 1, 1), ledger.LastChecked)
}

func TestApply_DoesNotOverwriteExistingValue(t *testing.T) {
	svc, records, _ := newTestIngestion(t)

	_, err := svc.Apply([]domain.ScrapedValue{
		{Date: day(2024, 1, 2), Series: domain.SeriesCPIIndex, Value: 2.4},
	})
	require.NoError(t, err)
	_, err = svc.Apply([]domain.ScrapedValue{
		{Date: day(2024, 1, 2), Series: domain.SeriesCPIIndex, Value: 9.9},
	})
	require.NoError(t, err)

	rec, err := records.FindByDate(day(2024, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, 2.4, rec.Fields[domain.SeriesCPIIndex])
}

func TestApply_SkipsUnknownSeries(t *testing.T) {
	svc, _, _ := newTestIngestion(t)

	res, err := svc.Apply([]domain.ScrapedValue{
		{Date: day(2024, 1, 2), Series: domain.Series("mystery"), Value: 1},
		{Date: day(2024, 1, 2), Series: domain.SeriesCPIIndex, Value: 2.4},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, res.Skipped)
}
