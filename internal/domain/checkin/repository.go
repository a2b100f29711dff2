// internal/domain/checkin/repository.go
package checkin

import (
	"context"
	"time"
)

// Submitter is the remote persistence provider for check-ins.
// Both methods take the same Payload; InsertCheckInDirect is the fallback path.
type Submitter interface {
	SubmitCheckIn(ctx context.Context, p Payload) error
	InsertCheckInDirect(ctx context.Context, p Payload) error
}

// HistoryRecord is one row of a student's check-in history.
type HistoryRecord struct {
	Timestamp    time.Time
	Kind         SessionKind
	TargetName   string
	LocationName string
	IsVerified   bool
}

type HistoryReader interface {
	// QueryCheckInHistory returns the most recent check-ins first.
	QueryCheckInHistory(ctx context.Context, subjectID string, limit int) ([]HistoryRecord, error)
}

// TargetCatalog exposes the two independent target sources for each session kind.
type TargetCatalog interface {
	// ListTargets returns targets that carry their own coordinates.
	ListTargets(ctx context.Context, kind SessionKind, cohort Cohort) ([]Target, error)
	// ListMappedTargets returns targets whose coordinates come from a joined lookup table.
	ListMappedTargets(ctx context.Context, kind SessionKind, cohort Cohort) ([]Target, error)
}

// LocalStore is the durable string key-value store on this device.
type LocalStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}
