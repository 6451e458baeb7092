/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All engine error types in one place for consistency and discoverability.
  Callers classify errors with the helpers at the bottom instead of matching
  on strings.

ERROR CATEGORIES:
  1. Validation errors - Bad input; store left unchanged
  2. Not-found errors  - Absent data; distinct from bad input
  3. Persistence errors - Snapshot I/O failures; the in-memory mutation is
     rolled back, the caller should report "not saved, try again"

Parse errors live in the parse package; they never reach the engine.

SEE ALSO:
  - engine.go: Returns these errors
  - parse/parse.go: Parse-side error taxonomy
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPersonNotFound is returned when the named person has no movements
	// under the given owner. Absent data, not bad input.
	ErrPersonNotFound = errors.New("person not found")

	// ErrIndexOutOfRange is returned when a 1-based movement index falls
	// outside [1, movement count].
	ErrIndexOutOfRange = errors.New("movement index out of range")

	// ErrNegativeAmount is returned when a movement amount is negative.
	// Direction is carried by Kind, never by sign.
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrInvalidKind is returned for a movement kind other than debit/credit.
	ErrInvalidKind = errors.New("invalid movement kind")

	// ErrNotSaved is returned when the snapshot could not be persisted after
	// bounded retries. The in-memory store is left as it was before the call.
	ErrNotSaved = errors.New("snapshot not saved")

	// ErrEmptyName is returned when a person name is empty after trimming.
	ErrEmptyName = errors.New("person name must not be empty")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError reports which person was missing.
type NotFoundError struct {
	Owner OwnerID
	Name  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no movements recorded for %s", e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrPersonNotFound }

// IndexError reports an out-of-range movement index.
type IndexError struct {
	Name  string
	Index int
	Count int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range for %s (1..%d)", e.Index, e.Name, e.Count)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }

// PersistenceError reports a snapshot save that kept failing after retries.
type PersistenceError struct {
	Attempts int
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("snapshot save failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *PersistenceError) Unwrap() error { return ErrNotSaved }

// DateError reports an input that does not parse as DD/MM/YYYY.
type DateError struct {
	Input string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("invalid date %q (want DD/MM/YYYY)", e.Input)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates absent data.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPersonNotFound)
}

// IsValidation reports whether the error is due to invalid caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrIndexOutOfRange) ||
		errors.Is(err, ErrNegativeAmount) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrEmptyName)
}

// IsPersistence reports whether the error is a snapshot I/O fault. These
// should be reported to the operator, not blamed on the user.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrNotSaved)
}
