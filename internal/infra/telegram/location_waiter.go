package telegram

import (
	"context"
	"errors"
	"sync"

	"geo_checkin_bot/internal/app"
	"geo_checkin_bot/internal/domain/checkin"
)

// ErrLocationRequestPending is returned by Locate when the same user already waits in the chat.
var ErrLocationRequestPending = errors.New("a location request is already pending for this user")

type locationReply struct {
	reading checkin.Reading
	err     error
}

// waitKey scopes a request to one user in one chat, so in a group only the requester's own
// location completes their check-in.
type waitKey struct {
	chatID int64
	userID int64
}

// LocationWaiter hands a shared location from the chat to the check-in that is waiting for it.
// At most one check-in waits per user and chat.
type LocationWaiter struct {
	mu      sync.Mutex
	waiting map[waitKey]chan locationReply
}

func NewLocationWaiter() *LocationWaiter {
	return &LocationWaiter{waiting: make(map[waitKey]chan locationReply)}
}

// ForSender returns a DeviceLocator that blocks until userID shares a location in chatID or declines.
func (w *LocationWaiter) ForSender(chatID, userID int64) app.DeviceLocator {
	return senderLocator{waiter: w, key: waitKey{chatID: chatID, userID: userID}}
}

// Deliver passes a reading from userID to their waiting check-in. It reports false when nothing waits.
func (w *LocationWaiter) Deliver(chatID, userID int64, r checkin.Reading) bool {
	return w.reply(waitKey{chatID, userID}, locationReply{reading: r})
}

// Decline fails the waiting check-in with err, e.g. checkin.ErrLocationPermissionDenied.
func (w *LocationWaiter) Decline(chatID, userID int64, err error) bool {
	return w.reply(waitKey{chatID, userID}, locationReply{err: err})
}

// Waiting reports whether a check-in of userID is waiting for a location in chatID.
func (w *LocationWaiter) Waiting(chatID, userID int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.waiting[waitKey{chatID, userID}]
	return ok
}

func (w *LocationWaiter) reply(key waitKey, r locationReply) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch, ok := w.waiting[key]
	if !ok {
		return false
	}
	select {
	case ch <- r:
		return true
	default:
		return false // already answered
	}
}

func (w *LocationWaiter) register(key waitKey) (chan locationReply, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.waiting[key]; busy {
		return nil, ErrLocationRequestPending
	}
	ch := make(chan locationReply, 1)
	w.waiting[key] = ch
	return ch, nil
}

func (w *LocationWaiter) release(key waitKey, ch chan locationReply) {
	w.mu.Lock()
	if w.waiting[key] == ch {
		delete(w.waiting, key)
	}
	w.mu.Unlock()
}

type senderLocator struct {
	waiter *LocationWaiter
	key    waitKey
}

func (l senderLocator) Locate(ctx context.Context) (checkin.Reading, error) {
	ch, err := l.waiter.register(l.key)
	if err != nil {
		return checkin.Reading{}, err
	}
	defer l.waiter.release(l.key, ch)

	select {
	case r := <-ch:
		return r.reading, r.err
	case <-ctx.Done():
		return checkin.Reading{}, ctx.Err()
	}
}
