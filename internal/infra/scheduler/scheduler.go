package scheduler

import (
	"context"
	"fmt"
	"time"

	"geo_checkin_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ConnectivityChecker probes the database; a restore triggers replay through its listeners.
type ConnectivityChecker interface {
	Check(ctx context.Context) error
}

type Replayer interface {
	ReplayAll(ctx context.Context) app.ReplaySummary
}

type SyncScheduler struct {
	cronEngine           *cron.Cron
	checker              ConnectivityChecker
	replayer             Replayer
	logger               *logrus.Entry
	cronSpecConnectivity string
	cronSpecReplaySweep  string // empty disables the sweep
}

func NewSyncScheduler(
	checker ConnectivityChecker,
	replayer Replayer,
	logger *logrus.Entry,
	cronSpecConnectivity string, // e.g. "@every 30s"
	cronSpecReplaySweep string, // e.g. "*/10 * * * *"
) *SyncScheduler {
	return &SyncScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.Local),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		checker:              checker,
		replayer:             replayer,
		logger:               logger,
		cronSpecConnectivity: cronSpecConnectivity,
		cronSpecReplaySweep:  cronSpecReplaySweep,
	}
}

// Start registers the jobs and starts the cron engine.
func (s *SyncScheduler) Start() error {
	s.logger.Info("Starting sync scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecConnectivity, s.checkConnectivity)
	if err != nil {
		return fmt.Errorf("could not add connectivity check cron job: %w", err)
	}

	if s.cronSpecReplaySweep != "" {
		_, err = s.cronEngine.AddFunc(s.cronSpecReplaySweep, s.sweepQueue)
		if err != nil {
			return fmt.Errorf("could not add replay sweep cron job: %w", err)
		}
	}

	s.cronEngine.Start()
	s.logger.WithField("jobs", len(s.cronEngine.Entries())).Info("Sync scheduler started")
	return nil
}

func (s *SyncScheduler) checkConnectivity() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute) // covers a replay fired on restore
	defer cancel()
	if err := s.checker.Check(ctx); err != nil {
		s.logger.WithError(err).Debug("Connectivity check failed")
	}
}

func (s *SyncScheduler) sweepQueue() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	summary := s.replayer.ReplayAll(ctx)
	if summary.Skipped {
		s.logger.Debug("Replay sweep skipped")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"synced": summary.Synced,
		"failed": summary.Failed,
	}).Debug("Replay sweep finished")
}

func (s *SyncScheduler) Stop() {
	s.logger.Info("Stopping sync scheduler...")
	ctx := s.cronEngine.Stop() // waits for running jobs
	<-ctx.Done()
	s.logger.Info("Sync scheduler gracefully stopped.")
}
