// Package ingestion applies freshly scraped data points to the canonical
// store and keeps the reconciliation ledgers' source watermark current.
package ingestion

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tasas/ratesync/internal/domain"
	"github.com/tasas/ratesync/internal/repository"
)

// Result summarises one ingestion batch.
type Result struct {
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
}

// Service is the ingestion adapter: scraped values go in, canonical records
// and ledger watermarks come out. It never downgrades a populated field;
// the store's first-writer-wins upsert guarantees that.
type Service struct {
	records *repository.RecordRepo
	ledgers *repository.LedgerRepo
}

func NewService(records *repository.RecordRepo, ledgers *repository.LedgerRepo) *Service {
	return &Service{records: records, ledgers: ledgers}
}

// Apply upserts each value into its day's record, registers ledgers on
// first sight of a series, and bumps the series ledger and the aggregate
// ledger to the newest ingested day. Values naming an unknown series are
// skipped and counted, not fatal: a scraper picking up a new publication
// column must not poison the batch.
func (s *Service) Apply(values []domain.ScrapedValue) (*Result, error) {
	res := &Result{}
	newest := make(map[domain.Series]time.Time)
	oldest := make(map[domain.Series]time.Time)

	observe := func(series domain.Series, day time.Time) {
		if day.After(newest[series]) {
			newest[series] = day
		}
		if first, ok := oldest[series]; !ok || day.Before(first) {
			oldest[series] = day
		}
	}

	for _, v := range values {
		if !domain.IsKnownSeries(v.Series) {
			log.Warn().Str("series", string(v.Series)).Msg("skipping unknown series")
			res.Skipped++
			continue
		}

		day := domain.Day(v.Date)
		if _, err := s.records.UpsertDailyValue(day, v.Series, v.Value); err != nil {
			return nil, fmt.Errorf("upsert %s %s: %w", v.Series, day.Format("2006-01-02"), err)
		}
		res.Applied++

		observe(v.Series, day)
		observe(domain.SeriesAll, day)
	}

	for series, last := range newest {
		// Seed new ledgers one day before their oldest value so the first
		// detection pass covers every observed day; existing ledgers are
		// untouched.
		if err := s.ledgers.Register(
			string(series), series, oldest[series].AddDate(0, 0, -1), last,
		); err != nil {
			return nil, err
		}
		if err := s.ledgers.BumpLastKnownSource(string(series), last); err != nil {
			return nil, err
		}
	}

	if res.Applied > 0 {
		log.Info().Int("applied", res.Applied).Int("skipped", res.Skipped).Msg("ingested scraped values")
	}
	return res, nil
}
