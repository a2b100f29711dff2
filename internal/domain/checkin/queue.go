// internal/domain/checkin/queue.go
package checkin

import "time"

// QueueKey is the local store key holding the offline queue as a JSON array.
const QueueKey = "offline_checkin_queue"

// DeviceIDKey is the local store key holding this device's stable identifier.
const DeviceIDKey = "device_id"

// QueueEntry is an attempt waiting in the offline queue.
type QueueEntry struct {
	QueueID   string    `json:"queue_id"`
	QueuedAt  time.Time `json:"queued_at"`
	Attempts  int       `json:"replay_attempts"`
	LastError string    `json:"last_error,omitempty"`
	Attempt   Attempt   `json:"attempt"`
}
