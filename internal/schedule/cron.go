// Package schedule wires the reconciliation entry points onto cron timers.
// Each job runs independently: a failed pass logs and waits for the next
// tick, it is never retried in-process.
package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/tasas/ratesync/internal/domain"
	"github.com/tasas/ratesync/internal/ingestion"
	"github.com/tasas/ratesync/internal/notify"
	"github.com/tasas/ratesync/internal/reconciliation"
	"github.com/tasas/ratesync/internal/scrape"
)

// Source is anything that can deliver a batch of scraped values.
type Source interface {
	FetchDaily(ctx context.Context) ([]domain.ScrapedValue, error)
}

var _ Source = (*scrape.CentralBankSource)(nil)
var _ Source = (*scrape.StateBankSource)(nil)

// Runner owns the cron instance and the jobs it triggers.
type Runner struct {
	cron      *cron.Cron
	recon     *reconciliation.Service
	ingest    *ingestion.Service
	notifier  *notify.Notifier
	sources   []Source
	ledgerIDs []string
	quantity  int
}

// NewRunner builds a runner in the given location. ledgerIDs lists the
// ledgers detection and resolution walk on every tick; quantity bounds one
// pass.
func NewRunner(
	loc *time.Location,
	recon *reconciliation.Service,
	ingest *ingestion.Service,
	notifier *notify.Notifier,
	sources []Source,
	ledgerIDs []string,
	quantity int,
) *Runner {
	return &Runner{
		cron:      cron.New(cron.WithLocation(loc)),
		recon:     recon,
		ingest:    ingest,
		notifier:  notifier,
		sources:   sources,
		ledgerIDs: ledgerIDs,
		quantity:  quantity,
	}
}

// Register mounts the four recurring jobs and starts the cron loop.
func (r *Runner) Register(scrapeSpec, detectSpec, scanSpec, resolveSpec string) error {
	if _, err := r.cron.AddFunc(scrapeSpec, r.RunScrape); err != nil {
		return err
	}
	if _, err := r.cron.AddFunc(detectSpec, r.RunDetect); err != nil {
		return err
	}
	if _, err := r.cron.AddFunc(scanSpec, r.RunScan); err != nil {
		return err
	}
	if _, err := r.cron.AddFunc(resolveSpec, r.RunResolve); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
}

// RunScrape fetches every configured source and ingests what it delivered.
func (r *Runner) RunScrape() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for _, src := range r.sources {
		values, err := src.FetchDaily(ctx)
		if err != nil {
			log.Error().Err(err).Msg("scrape failed")
			continue
		}
		if _, err := r.ingest.Apply(values); err != nil {
			log.Error().Err(err).Msg("ingestion failed")
		}
	}
}

// RunDetect runs one gap-detection pass per ledger and alerts on findings.
func (r *Runner) RunDetect() {
	for _, id := range r.ledgerIDs {
		report, err := r.recon.DetectGaps(id, r.quantity)
		if err != nil {
			if errors.Is(err, domain.ErrLedgerNotFound) {
				// Nothing ingested for this series yet.
				continue
			}
			log.Error().Err(err).Str("ledger", id).Msg("gap detection failed")
			continue
		}
		if report.Missing == 0 && report.Conflicting == 0 {
			continue
		}
		if err := r.notifier.DetectionAlert(id, report); err != nil {
			log.Error().Err(err).Str("ledger", id).Msg("alert failed")
		}
	}
}

// RunScan walks the per-series ledgers and scans each for records lacking
// its own series. The aggregate ledger has no single field to scan and is
// skipped.
func (r *Runner) RunScan() {
	for _, id := range r.ledgerIDs {
		series := domain.Series(id)
		if !domain.IsKnownSeries(series) {
			continue
		}
		if _, err := r.recon.ScanMissingField(id, r.quantity, series); err != nil {
			if errors.Is(err, domain.ErrLedgerNotFound) {
				continue
			}
			log.Error().Err(err).Str("ledger", id).Msg("missing-field scan failed")
		}
	}
}

// RunResolve runs one conflict-resolution pass per ledger.
func (r *Runner) RunResolve() {
	for _, id := range r.ledgerIDs {
		if _, err := r.recon.ResolveConflicts(id); err != nil {
			if errors.Is(err, domain.ErrLedgerNotFound) {
				continue
			}
			log.Error().Err(err).Str("ledger", id).Msg("conflict resolution failed")
		}
	}
}
