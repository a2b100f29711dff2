// internal/app/offline_queue.go
package app

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"geo_checkin_bot/internal/domain/checkin"

	"github.com/google/uuid"
)

// OfflineQueue persists check-in attempts made while the database is unreachable.
// Each mutation reads the whole list, changes it and writes it back under one lock,
// so the queue is safe to share between the check-in handlers and the replay job.
type OfflineQueue struct {
	store checkin.LocalStore
	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

func NewOfflineQueue(store checkin.LocalStore) *OfflineQueue {
	return &OfflineQueue{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// Enqueue stores the attempt and returns its queue id.
// Entries stay in capture order: an attempt captured before the tail is inserted ahead of it.
func (q *OfflineQueue) Enqueue(a checkin.Attempt) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.load()
	if err != nil {
		return "", err
	}

	entry := checkin.QueueEntry{
		QueueID:  q.newID(),
		QueuedAt: q.now().UTC(),
		Attempt:  a,
	}

	pos := len(entries)
	for pos > 0 && entries[pos-1].Attempt.Timestamp.After(a.Timestamp) {
		pos--
	}
	entries = append(entries, checkin.QueueEntry{})
	copy(entries[pos+1:], entries[pos:])
	entries[pos] = entry

	if err := q.save(entries); err != nil {
		return "", err
	}
	return entry.QueueID, nil
}

// Dequeue removes one entry. It returns ErrQueueEntryNotFound when the id is not queued.
func (q *OfflineQueue) Dequeue(queueID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.load()
	if err != nil {
		return err
	}
	idx := indexOf(entries, queueID)
	if idx < 0 {
		return ErrQueueEntryNotFound
	}
	entries = append(entries[:idx], entries[idx+1:]...)
	return q.save(entries)
}

// MarkFailed records a failed replay on the entry, leaving it queued.
func (q *OfflineQueue) MarkFailed(queueID string, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.load()
	if err != nil {
		return err
	}
	idx := indexOf(entries, queueID)
	if idx < 0 {
		return ErrQueueEntryNotFound
	}
	entries[idx].Attempts++
	if cause != nil {
		entries[idx].LastError = cause.Error()
	}
	return q.save(entries)
}

// ListPending returns a snapshot of the queue in replay order.
func (q *OfflineQueue) ListPending() ([]checkin.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load()
}

// ListPendingFor returns the queued entries of one student.
func (q *OfflineQueue) ListPendingFor(subjectID string) ([]checkin.QueueEntry, error) {
	all, err := q.ListPending()
	if err != nil {
		return nil, err
	}
	mine := make([]checkin.QueueEntry, 0)
	for _, e := range all {
		if e.Attempt.SubjectID == subjectID {
			mine = append(mine, e)
		}
	}
	return mine, nil
}

func (q *OfflineQueue) load() ([]checkin.QueueEntry, error) {
	raw, ok, err := q.store.Get(checkin.QueueKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read offline queue: %w", err)
	}
	entries := make([]checkin.QueueEntry, 0)
	if !ok || raw == "" {
		return entries, nil
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode offline queue: %w", err)
	}
	return entries, nil
}

func (q *OfflineQueue) save(entries []checkin.QueueEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode offline queue: %w", err)
	}
	if err := q.store.Set(checkin.QueueKey, string(raw)); err != nil {
		return fmt.Errorf("failed to write offline queue: %w", err)
	}
	return nil
}

func indexOf(entries []checkin.QueueEntry, queueID string) int {
	for i, e := range entries {
		if e.QueueID == queueID {
			return i
		}
	}
	return -1
}

// DeviceIdentity returns this device's stable identifier, generating and storing it on first use.
func DeviceIdentity(store checkin.LocalStore) (string, error) {
	id, ok, err := store.Get(checkin.DeviceIDKey)
	if err != nil {
		return "", fmt.Errorf("failed to read device id: %w", err)
	}
	if ok && id != "" {
		return id, nil
	}
	id = "device-" + uuid.NewString()
	if err := store.Set(checkin.DeviceIDKey, id); err != nil {
		return "", fmt.Errorf("failed to store device id: %w", err)
	}
	return id, nil
}
