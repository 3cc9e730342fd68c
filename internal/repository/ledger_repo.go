package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tasas/ratesync/internal/domain"
)

// LedgerRepo persists reconciliation ledgers. Every mutation is a single
// transaction with set-semantics appends, which is what serializes
// overlapping passes for the same ledger: a re-derived range appends
// nothing the first pass already recorded.
type LedgerRepo struct {
	db *sql.DB
}

func NewLedgerRepo(db *sql.DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

// Register creates a ledger if it does not exist yet. Existing ledgers are
// left untouched.
func (r *LedgerRepo) Register(id string, series domain.Series, lastChecked, lastKnownSource time.Time) error {
	_, err := r.db.Exec(
		`INSERT OR IGNORE INTO ledgers (id, series, last_checked, last_known_source)
		 VALUES (?, ?, ?, ?)`,
		id, string(series),
		domain.Day(lastChecked).Format(time.RFC3339),
		domain.Day(lastKnownSource).Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: register ledger: %v", domain.ErrPersistence, err)
	}
	return nil
}

// Load returns the ledger with its missing days and conflict entries, or
// nil when no ledger exists for the id.
func (r *LedgerRepo) Load(id string) (*domain.Ledger, error) {
	var l domain.Ledger
	var series, checkedStr, sourceStr string

	err := r.db.QueryRow(
		"SELECT id, series, last_checked, last_known_source FROM ledgers WHERE id = ?", id,
	).Scan(&l.ID, &series, &checkedStr, &sourceStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load ledger: %v", domain.ErrStoreUnavailable, err)
	}

	l.Series = domain.Series(series)
	l.LastChecked, _ = time.Parse(time.RFC3339, checkedStr)
	l.LastKnownSource, _ = time.Parse(time.RFC3339, sourceStr)

	rows, err := r.db.Query(
		"SELECT date FROM ledger_missing WHERE ledger_id = ? ORDER BY date", id,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: load missing: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	for rows.Next() {
		var dateStr string
		if err := rows.Scan(&dateStr); err != nil {
			return nil, fmt.Errorf("%w: scan missing: %v", domain.ErrStoreUnavailable, err)
		}
		d, _ := time.Parse(time.RFC3339, dateStr)
		l.MissingDates = append(l.MissingDates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: missing rows: %v", domain.ErrStoreUnavailable, err)
	}

	crows, err := r.db.Query(
		`SELECT id, date, record_id, resolved FROM ledger_conflicts
		 WHERE ledger_id = ? ORDER BY id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: load conflicts: %v", domain.ErrStoreUnavailable, err)
	}
	defer crows.Close()
	for crows.Next() {
		var e domain.ConflictEntry
		var dateStr string
		var resolved int
		if err := crows.Scan(&e.ID, &dateStr, &e.RecordID, &resolved); err != nil {
			return nil, fmt.Errorf("%w: scan conflict: %v", domain.ErrStoreUnavailable, err)
		}
		e.Date, _ = time.Parse(time.RFC3339, dateStr)
		e.Resolved = resolved != 0
		l.ConflictEntries = append(l.ConflictEntries, e)
	}
	if err := crows.Err(); err != nil {
		return nil, fmt.Errorf("%w: conflict rows: %v", domain.ErrStoreUnavailable, err)
	}

	return &l, nil
}

// List returns all ledgers without their entry detail.
func (r *LedgerRepo) List() ([]domain.Ledger, error) {
	rows, err := r.db.Query(
		"SELECT id, series, last_checked, last_known_source FROM ledgers ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list ledgers: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []domain.Ledger
	for rows.Next() {
		var l domain.Ledger
		var series, checkedStr, sourceStr string
		if err := rows.Scan(&l.ID, &series, &checkedStr, &sourceStr); err != nil {
			return nil, fmt.Errorf("%w: scan ledger: %v", domain.ErrStoreUnavailable, err)
		}
		l.Series = domain.Series(series)
		l.LastChecked, _ = time.Parse(time.RFC3339, checkedStr)
		l.LastKnownSource, _ = time.Parse(time.RFC3339, sourceStr)
		out = append(out, l)
	}
	return out, rows.Err()
}

// ApplyDetection records the findings of one detection pass and advances
// the checkpoint, all in one transaction. Appends are INSERT OR IGNORE
// against the unique keys, so a re-derived range never duplicates entries.
// Returns how many missing days and conflict entries were actually new.
func (r *LedgerRepo) ApplyDetection(
	ledgerID string,
	missing []time.Time,
	conflicts []domain.FieldGap,
	advanceTo time.Time,
) (newMissing, newConflicts int, err error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: begin: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback()

	for _, d := range missing {
		res, err := tx.Exec(
			"INSERT OR IGNORE INTO ledger_missing (ledger_id, date) VALUES (?, ?)",
			ledgerID, domain.Day(d).Format(time.RFC3339),
		)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: append missing: %v", domain.ErrPersistence, err)
		}
		if ra, _ := res.RowsAffected(); ra > 0 {
			newMissing++
		}
	}

	for _, c := range conflicts {
		res, err := tx.Exec(
			`INSERT OR IGNORE INTO ledger_conflicts (ledger_id, date, record_id, resolved)
			 VALUES (?, ?, ?, 0)`,
			ledgerID, domain.Day(c.Date).Format(time.RFC3339), c.RecordID,
		)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: append conflict: %v", domain.ErrPersistence, err)
		}
		if ra, _ := res.RowsAffected(); ra > 0 {
			newConflicts++
		}
	}

	if _, err := tx.Exec(
		"UPDATE ledgers SET last_checked = ? WHERE id = ?",
		domain.Day(advanceTo).Format(time.RFC3339), ledgerID,
	); err != nil {
		return 0, 0, fmt.Errorf("%w: advance checkpoint: %v", domain.ErrPersistence, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("%w: commit: %v", domain.ErrPersistence, err)
	}
	return newMissing, newConflicts, nil
}

// MarkResolved flips the given conflict entries to resolved.
func (r *LedgerRepo) MarkResolved(ledgerID string, entryIDs []int64) error {
	if len(entryIDs) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"UPDATE ledger_conflicts SET resolved = 1 WHERE ledger_id = ? AND id = ?",
	)
	if err != nil {
		return fmt.Errorf("%w: prepare: %v", domain.ErrPersistence, err)
	}
	defer stmt.Close()

	for _, id := range entryIDs {
		if _, err := stmt.Exec(ledgerID, id); err != nil {
			return fmt.Errorf("%w: mark %d: %v", domain.ErrPersistence, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrPersistence, err)
	}
	return nil
}

// ClearResolvedMissing removes days from the missing set once a record for
// them has landed. Called by ingestion when a backfill arrives.
func (r *LedgerRepo) ClearResolvedMissing(ledgerID string, dates []time.Time) error {
	if len(dates) == 0 {
		return nil
	}
	for _, d := range dates {
		if _, err := r.db.Exec(
			"DELETE FROM ledger_missing WHERE ledger_id = ? AND date = ?",
			ledgerID, domain.Day(d).Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("%w: clear missing: %v", domain.ErrPersistence, err)
		}
	}
	return nil
}

// BumpLastKnownSource advances last_known_source to date when it is newer.
// Maintained by ingestion whenever fresh source data lands.
func (r *LedgerRepo) BumpLastKnownSource(ledgerID string, date time.Time) error {
	_, err := r.db.Exec(
		"UPDATE ledgers SET last_known_source = ? WHERE id = ? AND last_known_source < ?",
		domain.Day(date).Format(time.RFC3339), ledgerID,
		domain.Day(date).Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: bump source date: %v", domain.ErrPersistence, err)
	}
	return nil
}
