package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const DefaultProbeTimeout = 5 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Monitor tracks whether the remote database is reachable.
type Monitor struct {
	pinger       Pinger
	probeTimeout time.Duration
	logger       *logrus.Entry

	online  atomic.Bool
	checkMu sync.Mutex // one probe at a time so transitions are observed once

	listenersMu sync.Mutex
	listeners   []func(ctx context.Context)
}

// NewMonitor starts in the offline state; the first successful Check counts as a restore.
func NewMonitor(pinger Pinger, probeTimeout time.Duration, logger *logrus.Entry) *Monitor {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	return &Monitor{
		pinger:       pinger,
		probeTimeout: probeTimeout,
		logger:       logger,
	}
}

func (m *Monitor) IsOnline() bool {
	return m.online.Load()
}

// OnRestore registers fn to run after every offline to online transition.
// Listeners run synchronously inside Check, in registration order.
func (m *Monitor) OnRestore(fn func(ctx context.Context)) {
	m.listenersMu.Lock()
	m.listeners = append(m.listeners, fn)
	m.listenersMu.Unlock()
}

// MarkOffline forces the offline state until the next successful probe.
func (m *Monitor) MarkOffline() {
	if m.online.Swap(false) {
		m.logger.Warn("Database marked offline")
	}
}

// Check probes the database and returns the probe error, if any.
func (m *Monitor) Check(ctx context.Context) error {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	pctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	err := m.pinger.PingContext(pctx)
	cancel()

	if err != nil {
		if m.online.Swap(false) {
			m.logger.WithError(err).Warn("Database connection lost, check-ins will be queued")
		} else {
			m.logger.WithError(err).Debug("Database still unreachable")
		}
		return errors.Wrap(err, "database probe failed")
	}

	if !m.online.Swap(true) {
		m.logger.Info("Database connection restored")
		m.fireRestore(ctx)
	}
	return nil
}

func (m *Monitor) fireRestore(ctx context.Context) {
	m.listenersMu.Lock()
	listeners := append([]func(context.Context){}, m.listeners...)
	m.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(ctx)
	}
}
