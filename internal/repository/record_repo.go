package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tasas/ratesync/internal/domain"
)

// RecordRepo persists the canonical daily rate series. Read failures are
// wrapped as ErrStoreUnavailable, write failures as ErrPersistence, so the
// reconciliation engine can surface them untranslated.
type RecordRepo struct {
	db *sql.DB
}

func NewRecordRepo(db *sql.DB) *RecordRepo {
	return &RecordRepo{db: db}
}

// Insert stores a new record with whatever fields it carries. The record
// date is stored as given (a skewed, non-midnight date stays skewed; gap
// detection is what flags it).
func (r *RecordRepo) Insert(rec *domain.DailyRateRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO rate_records (id, date) VALUES (?, ?)",
		rec.ID, rec.Date.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("%w: insert record: %v", domain.ErrPersistence, err)
	}

	for series, value := range rec.Fields {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO record_fields (record_id, series, value) VALUES (?, ?, ?)",
			rec.ID, string(series), value,
		); err != nil {
			return fmt.Errorf("%w: insert field %s: %v", domain.ErrPersistence, series, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrPersistence, err)
	}
	return nil
}

// UpsertDailyValue creates or updates one field of one day's record. The
// date is truncated to UTC midnight. A populated field is never downgraded:
// the write is INSERT OR IGNORE on (record, series). Returns the record id.
func (r *RecordRepo) UpsertDailyValue(date time.Time, series domain.Series, value float64) (string, error) {
	day := domain.Day(date)

	rec, err := r.FindByDate(day)
	if err != nil {
		return "", err
	}

	if rec == nil {
		id := uuid.NewString()
		if _, err := r.db.Exec(
			"INSERT INTO rate_records (id, date) VALUES (?, ?)",
			id, day.Format(time.RFC3339),
		); err != nil {
			return "", fmt.Errorf("%w: insert record: %v", domain.ErrPersistence, err)
		}
		rec = &domain.DailyRateRecord{ID: id, Date: day}
	}

	if _, err := r.db.Exec(
		"INSERT OR IGNORE INTO record_fields (record_id, series, value) VALUES (?, ?, ?)",
		rec.ID, string(series), value,
	); err != nil {
		return "", fmt.Errorf("%w: upsert field: %v", domain.ErrPersistence, err)
	}

	return rec.ID, nil
}

// FindByDate returns the record stored exactly at the given UTC-midnight
// date, or nil when absent.
func (r *RecordRepo) FindByDate(day time.Time) (*domain.DailyRateRecord, error) {
	row := r.db.QueryRow(
		"SELECT id, date FROM rate_records WHERE date = ?",
		domain.Day(day).Format(time.RFC3339),
	)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	if err := r.loadFields(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// FindByID returns the record with the given id, or nil when absent.
func (r *RecordRepo) FindByID(id string) (*domain.DailyRateRecord, error) {
	row := r.db.QueryRow("SELECT id, date FROM rate_records WHERE id = ?", id)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	if err := r.loadFields(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// FindByDateRange returns every record whose stored date falls in
// [start, end], ordered by date. Skewed dates inside the window are
// included; that is how conflicts surface.
func (r *RecordRepo) FindByDateRange(start, end time.Time) ([]domain.DailyRateRecord, error) {
	rows, err := r.db.Query(
		"SELECT id, date FROM rate_records WHERE date >= ? AND date <= ? ORDER BY date",
		start.UTC().Format(time.RFC3339),
		// A record's skew never moves it past the end of its own day.
		domain.Day(end).Add(24*time.Hour-time.Second).Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query range: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var recs []domain.DailyRateRecord
	for rows.Next() {
		var rec domain.DailyRateRecord
		var dateStr string
		if err := rows.Scan(&rec.ID, &dateStr); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", domain.ErrStoreUnavailable, err)
		}
		rec.Date, _ = time.Parse(time.RFC3339, dateStr)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", domain.ErrStoreUnavailable, err)
	}

	for i := range recs {
		if err := r.loadFields(&recs[i]); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

// RecordMerge is one entry of a bulk merge: fields to copy into a record.
type RecordMerge struct {
	ID     string
	Fields map[domain.Series]float64
}

// BulkMerge applies field merges as a single transaction. Each field write
// is INSERT OR IGNORE, so populated fields keep their first value. Returns
// how many records matched an existing row and how many gained at least one
// field.
func (r *RecordRepo) BulkMerge(merges []RecordMerge) (matched, modified int, err error) {
	if len(merges) == 0 {
		return 0, 0, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: begin: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT OR IGNORE INTO record_fields (record_id, series, value) VALUES (?, ?, ?)",
	)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: prepare: %v", domain.ErrPersistence, err)
	}
	defer stmt.Close()

	for _, m := range merges {
		var exists int
		if err := tx.QueryRow(
			"SELECT COUNT(*) FROM rate_records WHERE id = ?", m.ID,
		).Scan(&exists); err != nil {
			return 0, 0, fmt.Errorf("%w: match %s: %v", domain.ErrPersistence, m.ID, err)
		}
		if exists == 0 {
			continue
		}
		matched++

		changed := false
		for series, value := range m.Fields {
			res, err := stmt.Exec(m.ID, string(series), value)
			if err != nil {
				return 0, 0, fmt.Errorf("%w: merge %s/%s: %v", domain.ErrPersistence, m.ID, series, err)
			}
			if ra, _ := res.RowsAffected(); ra > 0 {
				changed = true
			}
		}
		if changed {
			modified++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("%w: commit: %v", domain.ErrPersistence, err)
	}
	return matched, modified, nil
}

// --- helpers ---

func scanRecord(row *sql.Row) (*domain.DailyRateRecord, error) {
	var rec domain.DailyRateRecord
	var dateStr string
	err := row.Scan(&rec.ID, &dateStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan record: %v", domain.ErrStoreUnavailable, err)
	}
	rec.Date, _ = time.Parse(time.RFC3339, dateStr)
	return &rec, nil
}

func (r *RecordRepo) loadFields(rec *domain.DailyRateRecord) error {
	rows, err := r.db.Query(
		"SELECT series, value FROM record_fields WHERE record_id = ?", rec.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: query fields: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	rec.Fields = make(map[domain.Series]float64)
	for rows.Next() {
		var series string
		var value float64
		if err := rows.Scan(&series, &value); err != nil {
			return fmt.Errorf("%w: scan field: %v", domain.ErrStoreUnavailable, err)
		}
		rec.Fields[domain.Series(series)] = value
	}
	return rows.Err()
}
