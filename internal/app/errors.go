// internal/app/errors.go
package app

import (
	"errors"
	"fmt"
)

// Validation failures: the user has to fix the input and try again.
var (
	ErrProfileNotLoaded   = errors.New("student profile is not loaded")
	ErrSessionKindMissing = errors.New("session kind is not selected")
	ErrTargetMissing      = errors.New("check-in target is not selected")
)

var (
	ErrStaleSelection        = errors.New("selected target is no longer available, refresh the list")
	ErrCheckInInProgress     = errors.New("a check-in is already in progress")
	ErrNoPersistenceProvider = errors.New("no persistence provider configured")
	ErrQueueEntryNotFound    = errors.New("offline queue entry not found")
	ErrHistoryUnavailable    = errors.New("check-in history is not available")
)

// ValidationError is returned before any location or network call is made.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "invalid check-in request: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// PayloadError is returned when an assembled attempt fails payload validation.
// Nothing is sent and nothing is queued; retrying the same selection will not help.
type PayloadError struct {
	Err error
}

func (e *PayloadError) Error() string {
	return "check-in record is incomplete: " + e.Err.Error()
}

func (e *PayloadError) Unwrap() error { return e.Err }

// SubmissionError is returned when both the atomic procedure and the direct insert fail while online.
// The attempt is not queued; the caller should offer a retry.
type SubmissionError struct {
	Primary  error
	Fallback error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("check-in submission failed: primary: %v; fallback: %v", e.Primary, e.Fallback)
}

func (e *SubmissionError) Unwrap() []error { return []error{e.Primary, e.Fallback} }

func (e *SubmissionError) Retryable() bool { return true }
