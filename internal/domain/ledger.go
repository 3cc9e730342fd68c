package domain

import "time"

// LedgerState is derived from outstanding discrepancies, not stored.
type LedgerState string

const (
	StateIdle          LedgerState = "IDLE"
	StatePendingReview LedgerState = "PENDING_REVIEW"
)

// ConflictEntry records a day whose stored record disagreed with the
// expected date-keyed record, pending reconciliation. Entries are
// append-only; Resolved flips once corroborating data has been merged.
type ConflictEntry struct {
	ID       int64     `json:"id"`
	Date     time.Time `json:"date"`
	RecordID string    `json:"record_id"`
	Resolved bool      `json:"resolved"`
}

// Ledger tracks reconciliation progress for one series (or SeriesAll).
// LastChecked never exceeds LastKnownSource after a completed pass.
type Ledger struct {
	ID              string          `json:"id"`
	Series          Series          `json:"series"`
	LastChecked     time.Time       `json:"last_checked"`
	LastKnownSource time.Time       `json:"last_known_source"`
	MissingDates    []time.Time     `json:"missing_dates"`
	ConflictEntries []ConflictEntry `json:"conflict_entries"`
}

// Unresolved returns the conflict entries still awaiting resolution.
func (l *Ledger) Unresolved() []ConflictEntry {
	var out []ConflictEntry
	for _, e := range l.ConflictEntries {
		if !e.Resolved {
			out = append(out, e)
		}
	}
	return out
}

// State reports whether the ledger has pending work.
func (l *Ledger) State() LedgerState {
	if len(l.MissingDates) > 0 || len(l.Unresolved()) > 0 {
		return StatePendingReview
	}
	return StateIdle
}

// Report summarises one gap-detection pass.
type Report struct {
	Updated     bool      `json:"updated"`
	Missing     int       `json:"missing"`
	Conflicting int       `json:"conflicting"`
	LastChecked time.Time `json:"last_checked"`
}

// ResolutionReport summarises one conflict-resolution pass. Matched and
// Modified mirror the bulk merge counts from the store.
type ResolutionReport struct {
	Resolved int `json:"resolved"`
	Matched  int `json:"matched"`
	Modified int `json:"modified"`
}

// FieldGap identifies a record that exists for a day but lacks one series.
type FieldGap struct {
	Date     time.Time `json:"date"`
	RecordID string    `json:"record_id"`
}
