package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"geo_checkin_bot/internal/domain/checkin"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func ptr[T any](v T) *T { return &v }

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newMemStore() *memStore { return &memStore{data: make(map[string]string)} }

func (m *memStore) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.data, key)
	return nil
}

type fakeCatalog struct {
	direct    []checkin.Target
	mapped    []checkin.Target
	directErr error
	mappedErr error
	calls     int32
}

func (f *fakeCatalog) ListTargets(_ context.Context, _ checkin.SessionKind, _ checkin.Cohort) ([]checkin.Target, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.direct, f.directErr
}

func (f *fakeCatalog) ListMappedTargets(_ context.Context, _ checkin.SessionKind, _ checkin.Cohort) ([]checkin.Target, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.mapped, f.mappedErr
}

// fakeSubmitter records every call. failPrimary/failDirect decide per payload whether a path fails.
type fakeSubmitter struct {
	mu          sync.Mutex
	primary     []checkin.Payload
	direct      []checkin.Payload
	failPrimary func(p checkin.Payload) error
	failDirect  func(p checkin.Payload) error
}

func (f *fakeSubmitter) SubmitCheckIn(_ context.Context, p checkin.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.primary = append(f.primary, p)
	if f.failPrimary != nil {
		return f.failPrimary(p)
	}
	return nil
}

func (f *fakeSubmitter) InsertCheckInDirect(_ context.Context, p checkin.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.direct = append(f.direct, p)
	if f.failDirect != nil {
		return f.failDirect(p)
	}
	return nil
}

func (f *fakeSubmitter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.primary) + len(f.direct)
}

type fakeConnectivity struct{ online atomic.Bool }

func (f *fakeConnectivity) IsOnline() bool { return f.online.Load() }

type fakeLocator struct {
	reading checkin.Reading
	err     error
	calls   int32
}

func (f *fakeLocator) Locate(_ context.Context) (checkin.Reading, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.reading, f.err
}

// blockingLocator waits until released or the context ends.
type blockingLocator struct {
	entered chan struct{}
	release chan checkin.Reading
}

func newBlockingLocator() *blockingLocator {
	return &blockingLocator{entered: make(chan struct{}, 1), release: make(chan checkin.Reading, 1)}
}

func (b *blockingLocator) Locate(ctx context.Context) (checkin.Reading, error) {
	b.entered <- struct{}{}
	select {
	case r := <-b.release:
		return r, nil
	case <-ctx.Done():
		return checkin.Reading{}, ctx.Err()
	}
}

type fakeGeocoder struct {
	name  string
	calls int32
}

func (f *fakeGeocoder) DescribeLocation(_ context.Context, lat, lon float64) string {
	atomic.AddInt32(&f.calls, 1)
	if f.name == "" {
		return checkin.CoordinateLabel(lat, lon)
	}
	return f.name
}

type sentNotice struct {
	chatID int64
	text   string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotice
}

func (f *fakeNotifier) Notify(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotice{chatID: chatID, text: text})
	return nil
}

type fakeHistory struct {
	records []checkin.HistoryRecord
	err     error
	limit   int
}

func (f *fakeHistory) QueryCheckInHistory(_ context.Context, _ string, limit int) ([]checkin.HistoryRecord, error) {
	f.limit = limit
	return f.records, f.err
}

var errBoom = errors.New("boom")
