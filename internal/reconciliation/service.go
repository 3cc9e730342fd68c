// Package reconciliation implements the rate-series reconciliation engine:
// gap detection between the canonical store and a ledger's checkpoint,
// conflict resolution by field merge, and single-field scans.
package reconciliation

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tasas/ratesync/internal/daterange"
	"github.com/tasas/ratesync/internal/domain"
	"github.com/tasas/ratesync/internal/repository"
)

// Service runs reconciliation passes over the canonical store and ledgers.
// It holds no state of its own: every pass loads the ledger, derives its
// range from the persisted checkpoint, and commits findings atomically, so
// passes are idempotent and independently schedulable.
type Service struct {
	records *repository.RecordRepo
	ledgers *repository.LedgerRepo
}

func NewService(records *repository.RecordRepo, ledgers *repository.LedgerRepo) *Service {
	return &Service{records: records, ledgers: ledgers}
}

// DetectGaps walks the days between the ledger's checkpoint and its last
// known source date (capped at quantity days) and classifies each as
// matching, missing, or conflicting. Findings and the checkpoint advance
// commit together; re-running without a store change is a no-op.
func (s *Service) DetectGaps(ledgerID string, quantity int) (*domain.Report, error) {
	ledger, err := s.ledgers.Load(ledgerID)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrLedgerNotFound, ledgerID)
	}

	// A checkpoint already at (or past) the newest source day means there
	// is nothing to check yet.
	if !ledger.LastChecked.Before(ledger.LastKnownSource) {
		return &domain.Report{Updated: false, LastChecked: ledger.LastChecked}, nil
	}

	days, err := daterange.Generate(ledger.LastChecked, ledger.LastKnownSource, quantity)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return &domain.Report{Updated: false, LastChecked: ledger.LastChecked}, nil
	}

	recs, err := s.records.FindByDateRange(days[0], days[len(days)-1])
	if err != nil {
		return nil, err
	}

	missing, conflicts := classify(days, recs)

	newMissing, newConflicts, err := s.ledgers.ApplyDetection(
		ledgerID, missing, conflicts, days[len(days)-1],
	)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("ledger", ledgerID).
		Int("days", len(days)).
		Int("missing", newMissing).
		Int("conflicting", newConflicts).
		Msg("gap detection pass complete")

	return &domain.Report{
		Updated:     true,
		Missing:     newMissing,
		Conflicting: newConflicts,
		LastChecked: days[len(days)-1],
	}, nil
}

// classify partitions the range days against the records found in the
// window. An exact-midnight record on a range day matches; a record whose
// stored date truncates to a range day but is not exactly that day (a
// timezone-shifted insert) is a conflict; a day with neither is missing.
func classify(days []time.Time, recs []domain.DailyRateRecord) ([]time.Time, []domain.FieldGap) {
	exact := make(map[time.Time]bool, len(recs))
	skewed := make(map[time.Time][]string)
	for _, rec := range recs {
		day := domain.Day(rec.Date)
		if rec.Date.UTC().Equal(day) {
			exact[day] = true
		} else {
			skewed[day] = append(skewed[day], rec.ID)
		}
	}

	var missing []time.Time
	var conflicts []domain.FieldGap
	for _, day := range days {
		// Every skewed record is a conflict, also when the day has an exact
		// record: its fields still need merging into the canonical one.
		for _, id := range skewed[day] {
			conflicts = append(conflicts, domain.FieldGap{Date: day, RecordID: id})
		}
		if !exact[day] && len(skewed[day]) == 0 {
			missing = append(missing, day)
		}
	}
	return missing, conflicts
}

// ResolveConflicts backfills unresolved ledger entries from the canonical
// store. For each entry it merges, field by field, what the conflicting
// record has and the canonical record lacks; populated fields are never
// overwritten. Entries that produced at least one merged field are marked
// resolved, as are entries whose canonical record already carries every
// conflicting value; entries with diverging values stay pending. Days in
// the missing set that have since gained a canonical record are cleared.
func (s *Service) ResolveConflicts(ledgerID string) (*domain.ResolutionReport, error) {
	ledger, err := s.ledgers.Load(ledgerID)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrLedgerNotFound, ledgerID)
	}

	unresolved := ledger.Unresolved()

	var merges []repository.RecordMerge
	var resolvedIDs []int64

	for _, entry := range unresolved {
		lookup := domain.Day(entry.Date)

		canonical, err := s.records.FindByDate(lookup)
		if err != nil {
			return nil, err
		}
		if canonical == nil {
			// The day has not been separately backfilled yet; leave the
			// entry pending for a later pass.
			continue
		}

		conflicting, err := s.records.FindByID(entry.RecordID)
		if err != nil {
			return nil, err
		}
		if conflicting == nil {
			continue
		}

		// A field scan records the record against itself; there is nothing
		// to merge from, the entry closes once the record gained the
		// ledger's own series.
		if conflicting.ID == canonical.ID {
			if ledger.Series != domain.SeriesAll && canonical.Has(ledger.Series) {
				resolvedIDs = append(resolvedIDs, entry.ID)
			}
			continue
		}

		fields := make(map[domain.Series]float64)
		for _, series := range domain.KnownSeries {
			if canonical.Has(series) {
				continue
			}
			if v, ok := conflicting.Fields[series]; ok {
				fields[series] = v
			}
		}
		if len(fields) == 0 {
			// Nothing left to copy. When the canonical record already holds
			// every conflicting value the entry is settled (a pass that was
			// cut short after merging lands here); diverging values keep it
			// pending for review.
			if settled(canonical, conflicting) {
				resolvedIDs = append(resolvedIDs, entry.ID)
			}
			continue
		}

		merges = append(merges, repository.RecordMerge{ID: canonical.ID, Fields: fields})
		resolvedIDs = append(resolvedIDs, entry.ID)
	}

	backfilled, err := s.backfilledMissing(ledger)
	if err != nil {
		return nil, err
	}

	if len(merges) == 0 && len(resolvedIDs) == 0 && len(backfilled) == 0 {
		return &domain.ResolutionReport{Resolved: 0}, nil
	}

	matched, modified, err := s.records.BulkMerge(merges)
	if err != nil {
		return nil, err
	}
	if err := s.ledgers.MarkResolved(ledgerID, resolvedIDs); err != nil {
		return nil, err
	}
	if err := s.ledgers.ClearResolvedMissing(ledgerID, backfilled); err != nil {
		return nil, err
	}

	log.Info().
		Str("ledger", ledgerID).
		Int("resolved", len(resolvedIDs)).
		Int("matched", matched).
		Int("modified", modified).
		Int("backfilled_missing", len(backfilled)).
		Msg("conflict resolution pass complete")

	return &domain.ResolutionReport{
		Resolved: len(resolvedIDs),
		Matched:  matched,
		Modified: modified,
	}, nil
}

// settled reports whether every field of the conflicting record is already
// present on the canonical record with the same value.
func settled(canonical, conflicting *domain.DailyRateRecord) bool {
	if len(conflicting.Fields) == 0 {
		return false
	}
	for series, v := range conflicting.Fields {
		cv, ok := canonical.Fields[series]
		if !ok || cv != v {
			return false
		}
	}
	return true
}

// backfilledMissing returns the ledger's missing days for which an
// exact-date canonical record now exists.
func (s *Service) backfilledMissing(ledger *domain.Ledger) ([]time.Time, error) {
	var out []time.Time
	for _, day := range ledger.MissingDates {
		rec, err := s.records.FindByDate(day)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			out = append(out, day)
		}
	}
	return out, nil
}

// ScanMissingField finds in-range records that exist but lack one specific
// series. Found records are appended as conflict entries (a missing single
// field is a conflict to resolve once the field lands elsewhere) and the
// checkpoint advances, also when nothing was found.
func (s *Service) ScanMissingField(ledgerID string, quantity int, field domain.Series) ([]domain.FieldGap, error) {
	if !domain.IsKnownSeries(field) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownField, field)
	}

	ledger, err := s.ledgers.Load(ledgerID)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrLedgerNotFound, ledgerID)
	}

	if !ledger.LastChecked.Before(ledger.LastKnownSource) {
		return nil, nil
	}

	days, err := daterange.Generate(ledger.LastChecked, ledger.LastKnownSource, quantity)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, nil
	}

	recs, err := s.records.FindByDateRange(days[0], days[len(days)-1])
	if err != nil {
		return nil, err
	}

	inRange := make(map[time.Time]bool, len(days))
	for _, d := range days {
		inRange[d] = true
	}

	var gaps []domain.FieldGap
	for _, rec := range recs {
		day := domain.Day(rec.Date)
		if !inRange[day] || rec.Has(field) {
			continue
		}
		gaps = append(gaps, domain.FieldGap{Date: day, RecordID: rec.ID})
	}

	if _, _, err := s.ledgers.ApplyDetection(ledgerID, nil, gaps, days[len(days)-1]); err != nil {
		return nil, err
	}

	log.Info().
		Str("ledger", ledgerID).
		Str("field", string(field)).
		Int("gaps", len(gaps)).
		Msg("missing-field scan complete")

	return gaps, nil
}
