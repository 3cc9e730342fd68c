package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasas/ratesync/internal/domain"
	"github.com/tasas/ratesync/internal/ingestion"
	"github.com/tasas/ratesync/internal/notify"
	"github.com/tasas/ratesync/internal/reconciliation"
	"github.com/tasas/ratesync/internal/repository"
	"github.com/tasas/ratesync/internal/schedule"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestRunner(t *testing.T) (*schedule.Runner, *repository.RecordRepo, *repository.LedgerRepo) {
	db, err := repository.InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	records := repository.NewRecordRepo(db)
	ledgers := repository.NewLedgerRepo(db)
	recon := reconciliation.NewService(records, ledgers)
	ingest := ingestion.NewService(records, ledgers)
	notifier := notify.NewNotifier(notify.SmtpConfig{}, nil)

	ids := []string{string(domain.SeriesAll)}
	for _, s := range domain.KnownSeries {
		ids = append(ids, string(s))
	}
	return schedule.NewRunner(time.UTC, recon, ingest, notifier, nil, ids, 30), records, ledgers
}

func TestRegister_MountsAllFourJobs(t *testing.T) {
	runner, _, _ := newTestRunner(t)
	require.NoError(t, runner.Register("0 7 * * *", "30 7 * * *", "45 7 * * *", "0 8 * * *"))
	runner.Stop()
}

func TestRegister_RejectsBadScanSpec(t *testing.T) {
	runner, _, _ := newTestRunner(t)
	assert.Error(t, runner.Register("0 7 * * *", "30 7 * * *", "not a spec", "0 8 * * *"))
}

func TestRunScan_FlagsRecordsLackingSeriesField(t *testing.T) {
	// The scan job walks the per-series ledgers; a record that lacks the
	// series its ledger tracks becomes a conflict entry on that ledger.
	runner, records, ledgers := newTestRunner(t)

	require.NoError(t, ledgers.Register(string(domain.SeriesCPIIndex), domain.SeriesCPIIndex,
		day(2024, 1, 1), day(2024, 1, 2)))
	withoutID, err := records.UpsertDailyValue(day(2024, 1, 2), domain.SeriesPassiveCentralBank, 118.4)
	require.NoError(t, err)

	runner.RunScan()

	ledger, err := ledgers.Load(string(domain.SeriesCPIIndex))
	require.NoError(t, err)
	require.Len(t, ledger.ConflictEntries, 1)
	assert.Equal(t, withoutID, ledger.ConflictEntries[0].RecordID)
	assert.Equal(t, day(2024, 1, 2), ledger.LastChecked)
}

func TestRunScan_SkipsAggregateAndUnregisteredLedgers(t *testing.T) {
	// Only the aggregate ledger exists. It has no single field to scan and
	// the unregistered per-series ledgers are quietly skipped.
	runner, _, ledgers := newTestRunner(t)
	require.NoError(t, ledgers.Register(string(domain.SeriesAll), domain.SeriesAll,
		day(2024, 1, 1), day(2024, 1, 2)))

	runner.RunScan()

	ledger, err := ledgers.Load(string(domain.SeriesAll))
	require.NoError(t, err)
	assert.Empty(t, ledger.ConflictEntries)
	assert.Equal(t, day(2024, 1, 1), ledger.LastChecked)
}
