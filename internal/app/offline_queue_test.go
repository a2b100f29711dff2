package app

import (
	"fmt"
	"testing"
	"time"

	"geo_checkin_bot/internal/domain/checkin"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queuedAttempt(subject, target string, ts time.Time) checkin.Attempt {
	return checkin.Attempt{
		SubjectID:  subject,
		TargetID:   target,
		TargetName: target,
		Timestamp:  ts,
		Kind:       checkin.SessionKindClinical,
		DeviceID:   "dev-1",
	}
}

func newTestQueue(store checkin.LocalStore) *OfflineQueue {
	q := NewOfflineQueue(store)
	n := 0
	q.newID = func() string {
		n++
		return fmt.Sprintf("q-%d", n)
	}
	return q
}

func targetsOf(entries []checkin.QueueEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Attempt.TargetID)
	}
	return out
}

func TestOfflineQueue_EnqueueKeepsCaptureOrder(t *testing.T) {
	q := newTestQueue(newMemStore())
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	for i, name := range []string{"A", "B", "C"} {
		id, err := q.Enqueue(queuedAttempt("42", name, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("q-%d", i+1), id)
	}

	pending, err := q.ListPending()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, targetsOf(pending))

	// a late enqueue of an earlier capture lands before later captures
	_, err = q.Enqueue(queuedAttempt("42", "early", base.Add(30*time.Second)))
	require.NoError(t, err)
	pending, err = q.ListPending()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "early", "B", "C"}, targetsOf(pending))
}

func TestOfflineQueue_DequeueAndMarkFailed(t *testing.T) {
	q := newTestQueue(newMemStore())
	now := time.Now()
	idA, _ := q.Enqueue(queuedAttempt("42", "A", now))
	idB, _ := q.Enqueue(queuedAttempt("7", "B", now.Add(time.Second)))

	require.NoError(t, q.MarkFailed(idB, errBoom))
	require.NoError(t, q.MarkFailed(idB, errBoom))
	require.NoError(t, q.Dequeue(idA))

	pending, err := q.ListPending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, idB, pending[0].QueueID)
	assert.Equal(t, 2, pending[0].Attempts)
	assert.Equal(t, "boom", pending[0].LastError)

	assert.ErrorIs(t, q.Dequeue(idA), ErrQueueEntryNotFound)
	assert.ErrorIs(t, q.MarkFailed("missing", errBoom), ErrQueueEntryNotFound)
}

func TestOfflineQueue_PersistsThroughStore(t *testing.T) {
	store := newMemStore()
	q := newTestQueue(store)
	_, err := q.Enqueue(queuedAttempt("42", "A", time.Now()))
	require.NoError(t, err)

	reopened := NewOfflineQueue(store)
	pending, err := reopened.ListPending()
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, targetsOf(pending))
}

func TestOfflineQueue_ListPendingFor(t *testing.T) {
	q := newTestQueue(newMemStore())
	now := time.Now()
	_, _ = q.Enqueue(queuedAttempt("42", "A", now))
	_, _ = q.Enqueue(queuedAttempt("7", "B", now.Add(time.Second)))
	_, _ = q.Enqueue(queuedAttempt("42", "C", now.Add(2*time.Second)))

	mine, err := q.ListPendingFor("42")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, targetsOf(mine))
}

func TestOfflineQueue_StoreErrors(t *testing.T) {
	store := newMemStore()
	q := newTestQueue(store)
	store.err = errBoom

	_, err := q.Enqueue(queuedAttempt("42", "A", time.Now()))
	assert.ErrorIs(t, err, errBoom)
	_, err = q.ListPending()
	assert.ErrorIs(t, err, errBoom)

	store.err = nil
	store.data[checkin.QueueKey] = "{not json"
	_, err = q.ListPending()
	assert.Error(t, err)
}

func TestDeviceIdentity_StableAcrossCalls(t *testing.T) {
	store := newMemStore()

	first, err := DeviceIdentity(store)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := DeviceIdentity(store)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, first, store.data[checkin.DeviceIDKey])
}
