package domain

import "errors"

// Sentinel errors for the reconciliation core. Callers match them with
// errors.Is; lower layers wrap them with context via fmt.Errorf and %w.
var (
	// ErrInvalidRange is returned when a date range's end precedes its
	// start or the quantity cap is not positive.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrLedgerNotFound is returned when no ledger exists for the given id.
	ErrLedgerNotFound = errors.New("ledger not found")

	// ErrUnknownField is returned when a field scan names a series that is
	// not a record field.
	ErrUnknownField = errors.New("unknown series field")

	// ErrStoreUnavailable wraps transient canonical-store read failures.
	// The whole pass may be retried by the scheduler.
	ErrStoreUnavailable = errors.New("canonical store unavailable")

	// ErrPersistence wraps ledger/store write failures. The pass is
	// considered not completed and the checkpoint is not advanced.
	ErrPersistence = errors.New("persistence failure")
)
