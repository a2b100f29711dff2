// internal/app/checkin_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"geo_checkin_bot/internal/domain/checkin"
	"geo_checkin_bot/internal/domain/geo"
	domainTelegram "geo_checkin_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

const DefaultSubmitTimeout = 10 * time.Second

// LocationDescriber resolves a human readable place name. It must never fail.
type LocationDescriber interface {
	DescribeLocation(ctx context.Context, lat, lon float64) string
}

// Connectivity reports whether the remote database is reachable.
type Connectivity interface {
	IsOnline() bool
}

// CheckInStatus is the outcome of a successful CheckIn call.
type CheckInStatus string

const (
	StatusSubmitted CheckInStatus = "submitted"
	StatusQueued    CheckInStatus = "queued"
)

// CheckInRequest carries everything a single check-in needs from the caller.
type CheckInRequest struct {
	Profile      *checkin.Profile
	Kind         checkin.SessionKind
	TargetID     string
	Locator      DeviceLocator
	NotifyChatID int64
}

type CheckInResult struct {
	Status         CheckInStatus
	Attempt        checkin.Attempt
	QueueID        string // set when queued
	LocationNotice string // fallback reason, empty for a device fix
}

// ReplaySummary counts the outcome of one replay pass.
type ReplaySummary struct {
	Synced    int
	Failed    int
	Remaining int
	Skipped   bool // another replay was running, or the database is offline
}

// CheckInDeps are the collaborators of CheckInService. Submitter and Connectivity are required.
type CheckInDeps struct {
	Resolver     *TargetResolver
	Locations    *LocationAcquirer
	Geocoder     LocationDescriber
	Submitter    checkin.Submitter
	History      checkin.HistoryReader
	Queue        *OfflineQueue
	Connectivity Connectivity
	Notifier     domainTelegram.Notifier
}

type CheckInConfig struct {
	DeviceID      string
	Verifier      geo.Verifier
	Fallback      geo.Point
	SubmitTimeout time.Duration
	AdminChatID   int64
}

// CheckInService runs the check-in workflow and replays the offline queue.
type CheckInService struct {
	resolver     *TargetResolver
	locations    *LocationAcquirer
	geocoder     LocationDescriber
	submitter    checkin.Submitter
	history      checkin.HistoryReader
	queue        *OfflineQueue
	connectivity Connectivity
	notifier     domainTelegram.Notifier

	deviceID      string
	verifier      geo.Verifier
	fallback      geo.Point
	submitTimeout time.Duration
	adminChatID   int64

	logger *logrus.Entry
	now    func() time.Time

	inflightMu sync.Mutex
	inflight   map[string]struct{}
	replayMu   sync.Mutex
	lastMu     sync.Mutex
	lastReplay ReplaySummary
}

func NewCheckInService(deps CheckInDeps, cfg CheckInConfig, logger *logrus.Entry) (*CheckInService, error) {
	if deps.Submitter == nil {
		return nil, ErrNoPersistenceProvider
	}
	if deps.Connectivity == nil || deps.Queue == nil || deps.Resolver == nil || deps.Locations == nil {
		return nil, fmt.Errorf("check-in service is missing a required collaborator")
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = DefaultSubmitTimeout
	}
	if cfg.Verifier.RadiusMeters <= 0 {
		cfg.Verifier = geo.NewVerifier(0)
	}
	return &CheckInService{
		resolver:      deps.Resolver,
		locations:     deps.Locations,
		geocoder:      deps.Geocoder,
		submitter:     deps.Submitter,
		history:       deps.History,
		queue:         deps.Queue,
		connectivity:  deps.Connectivity,
		notifier:      deps.Notifier,
		deviceID:      cfg.DeviceID,
		verifier:      cfg.Verifier,
		fallback:      cfg.Fallback,
		submitTimeout: cfg.SubmitTimeout,
		adminChatID:   cfg.AdminChatID,
		logger:        logger,
		now:           time.Now,
		inflight:      make(map[string]struct{}),
	}, nil
}

// Targets resolves the selectable targets for a student and refreshes the lookup cache.
func (s *CheckInService) Targets(ctx context.Context, kind checkin.SessionKind, profile checkin.Profile) []checkin.Target {
	return s.resolver.ResolveTargets(ctx, kind, profile)
}

// RefreshTargets drops cached catalogs so the next selection refetches them.
func (s *CheckInService) RefreshTargets() {
	s.resolver.Invalidate()
}

// CheckIn verifies the student's location against the selected target and either submits
// the attempt or, while offline, queues it for replay.
func (s *CheckInService) CheckIn(ctx context.Context, req CheckInRequest) (*CheckInResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	profile := *req.Profile

	log := s.logger.WithFields(logrus.Fields{
		"subject_id": profile.ID,
		"kind":       req.Kind,
		"target_id":  req.TargetID,
	})

	if !s.beginCheckIn(profile.ID) {
		log.Info("Rejected overlapping check-in")
		return nil, ErrCheckInInProgress
	}
	defer s.endCheckIn(profile.ID)

	target, ok := s.resolver.Lookup(req.Kind, profile, req.TargetID)
	if !ok {
		log.Info("Selected target not in cached catalog")
		return nil, ErrStaleSelection
	}

	log.Debug("State: locating")
	reading := s.locations.Acquire(ctx, req.Locator)
	locationName := reading.Name
	if locationName == "" {
		locationName = s.describe(ctx, reading)
	}

	log.Debug("State: verifying")
	targetPoint := target.Point(s.fallback)
	attempt := checkin.Attempt{
		SubjectID:       profile.ID,
		SubjectName:     profile.DisplayName,
		NotifyChatID:    req.NotifyChatID,
		Timestamp:       s.now().UTC(),
		Kind:            req.Kind,
		TargetID:        target.ID,
		TargetName:      target.Name,
		TargetLatitude:  targetPoint.Latitude,
		TargetLongitude: targetPoint.Longitude,
		Latitude:        reading.Latitude,
		Longitude:       reading.Longitude,
		Accuracy:        reading.Accuracy,
		LocationName:    locationName,
		LocationSource:  reading.Source,
		Program:         profile.Program,
		IntakeYear:      profile.IntakeYear,
		BlockTerm:       profile.BlockTerm,
		DeviceID:        s.deviceID,
	}
	if req.Kind == checkin.SessionKindClass {
		attempt.CourseID = target.CourseID
	}
	attempt.Reverify(s.verifier)

	log = log.WithFields(logrus.Fields{
		"distance_m":      attempt.Distance,
		"is_verified":     attempt.IsVerified,
		"location_source": attempt.LocationSource,
	})

	result := &CheckInResult{Attempt: attempt, LocationNotice: reading.Reason}

	if !s.connectivity.IsOnline() {
		log.Debug("State: queuing")
		queueID, err := s.queue.Enqueue(attempt)
		if err != nil {
			log.WithError(err).Error("Failed to queue offline check-in")
			return nil, fmt.Errorf("failed to queue offline check-in: %w", err)
		}
		log.WithField("queue_id", queueID).Info("Check-in queued while offline")
		result.Status = StatusQueued
		result.QueueID = queueID
		return result, nil
	}

	log.Debug("State: submitting")
	if err := s.submit(ctx, attempt); err != nil {
		log.WithError(err).Error("Check-in submission failed")
		return nil, err
	}
	log.Info("Check-in submitted")
	result.Status = StatusSubmitted
	return result, nil
}

func validateRequest(req CheckInRequest) error {
	switch {
	case req.Profile == nil || req.Profile.ID == "":
		return &ValidationError{Err: ErrProfileNotLoaded}
	case req.Kind == "":
		return &ValidationError{Err: ErrSessionKindMissing}
	case !req.Kind.Valid():
		return &ValidationError{Err: fmt.Errorf("%w: unknown kind %q", ErrSessionKindMissing, req.Kind)}
	case strings.TrimSpace(req.TargetID) == "":
		return &ValidationError{Err: ErrTargetMissing}
	}
	return nil
}

func (s *CheckInService) beginCheckIn(subjectID string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, busy := s.inflight[subjectID]; busy {
		return false
	}
	s.inflight[subjectID] = struct{}{}
	return true
}

func (s *CheckInService) endCheckIn(subjectID string) {
	s.inflightMu.Lock()
	delete(s.inflight, subjectID)
	s.inflightMu.Unlock()
}

func (s *CheckInService) describe(ctx context.Context, r checkin.Reading) string {
	if s.geocoder == nil {
		return checkin.CoordinateLabel(r.Latitude, r.Longitude)
	}
	return s.geocoder.DescribeLocation(ctx, r.Latitude, r.Longitude)
}

// submit sends the attempt through the atomic procedure, falling back to a direct insert
// with the identical payload when the procedure call fails.
func (s *CheckInService) submit(ctx context.Context, attempt checkin.Attempt) error {
	payload := attempt.Payload()
	if err := payload.Validate(); err != nil {
		return &PayloadError{Err: err}
	}

	pctx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	primaryErr := s.submitter.SubmitCheckIn(pctx, payload)
	cancel()
	if primaryErr == nil {
		return nil
	}
	s.logger.WithError(primaryErr).WithField("subject_id", payload.SubjectID).
		Warn("Atomic check-in procedure failed, falling back to direct insert")

	fctx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	fallbackErr := s.submitter.InsertCheckInDirect(fctx, payload)
	cancel()
	if fallbackErr == nil {
		return nil
	}
	return &SubmissionError{Primary: primaryErr, Fallback: fallbackErr}
}

// ReplayAll resubmits queued attempts in order. Each success is removed from the queue
// immediately; failures stay queued and do not stop later entries.
func (s *CheckInService) ReplayAll(ctx context.Context) ReplaySummary {
	if !s.replayMu.TryLock() {
		s.logger.Debug("Replay already running, skipping")
		return ReplaySummary{Skipped: true}
	}
	defer s.replayMu.Unlock()

	summary := s.replay(ctx)
	s.lastMu.Lock()
	s.lastReplay = summary
	s.lastMu.Unlock()
	return summary
}

// LastReplay returns the summary of the most recent replay pass that was not skipped as concurrent.
func (s *CheckInService) LastReplay() ReplaySummary {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	return s.lastReplay
}

func (s *CheckInService) replay(ctx context.Context) ReplaySummary {
	if !s.connectivity.IsOnline() {
		s.logger.Debug("Offline, replay deferred")
		return ReplaySummary{Skipped: true}
	}

	entries, err := s.queue.ListPending()
	if err != nil {
		s.logger.WithError(err).Error("Failed to read offline queue for replay")
		return ReplaySummary{Skipped: true}
	}
	if len(entries) == 0 {
		return ReplaySummary{}
	}
	s.logger.WithField("pending", len(entries)).Info("Replaying offline check-ins")

	var summary ReplaySummary
	synced := make([]checkin.QueueEntry, 0, len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			s.logger.WithError(ctx.Err()).Warn("Replay interrupted")
			break
		}
		log := s.logger.WithFields(logrus.Fields{
			"queue_id":   entry.QueueID,
			"subject_id": entry.Attempt.SubjectID,
		})

		attempt := entry.Attempt
		attempt.Reverify(s.verifier)

		if err := s.submit(ctx, attempt); err != nil {
			summary.Failed++
			log.WithError(err).Warn("Queued check-in failed to sync")
			if markErr := s.queue.MarkFailed(entry.QueueID, err); markErr != nil && !errors.Is(markErr, ErrQueueEntryNotFound) {
				log.WithError(markErr).Error("Failed to record replay failure")
			}
			continue
		}

		if err := s.queue.Dequeue(entry.QueueID); err != nil && !errors.Is(err, ErrQueueEntryNotFound) {
			// Submitted but still queued: the next pass would send it again.
			log.WithError(err).Error("Failed to remove synced check-in from queue")
		}
		summary.Synced++
		entry.Attempt = attempt
		synced = append(synced, entry)
		log.Info("Queued check-in synced")
	}

	if remaining, err := s.queue.ListPending(); err == nil {
		summary.Remaining = len(remaining)
	}

	s.logger.WithFields(logrus.Fields{
		"synced":    summary.Synced,
		"failed":    summary.Failed,
		"remaining": summary.Remaining,
	}).Info("Offline queue replay finished")

	s.notifyReplay(summary, synced)
	return summary
}

func (s *CheckInService) notifyReplay(summary ReplaySummary, synced []checkin.QueueEntry) {
	if s.notifier == nil || summary.Synced+summary.Failed == 0 {
		return
	}

	byChat := make(map[int64][]checkin.QueueEntry)
	for _, e := range synced {
		if e.Attempt.NotifyChatID != 0 {
			byChat[e.Attempt.NotifyChatID] = append(byChat[e.Attempt.NotifyChatID], e)
		}
	}
	chats := make([]int64, 0, len(byChat))
	for id := range byChat {
		chats = append(chats, id)
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i] < chats[j] })

	for _, chatID := range chats {
		var msg strings.Builder
		msg.WriteString("Your offline check-ins have been synced:\n")
		for _, e := range byChat[chatID] {
			status := "unverified"
			if e.Attempt.IsVerified {
				status = "verified"
			}
			msg.WriteString(fmt.Sprintf("- %s at %s (%s)\n", e.Attempt.TargetName, e.Attempt.Timestamp.Format("2006-01-02 15:04"), status))
		}
		if err := s.notifier.Notify(chatID, msg.String()); err != nil {
			s.logger.WithError(err).WithField("chat_id", chatID).Warn("Failed to send sync notice")
		}
	}

	if s.adminChatID != 0 {
		text := fmt.Sprintf("Offline queue replay: %d synced, %d failed, %d still queued.", summary.Synced, summary.Failed, summary.Remaining)
		if err := s.notifier.Notify(s.adminChatID, text); err != nil {
			s.logger.WithError(err).Warn("Failed to send replay summary to admin")
		}
	}
}

// Pending lists a student's queued check-ins.
func (s *CheckInService) Pending(subjectID string) ([]checkin.QueueEntry, error) {
	return s.queue.ListPendingFor(subjectID)
}

// Queue lists every queued check-in on this device.
func (s *CheckInService) Queue() ([]checkin.QueueEntry, error) {
	return s.queue.ListPending()
}

// PurgePending removes a queued entry that will never sync. Admin only.
func (s *CheckInService) PurgePending(performingAdminID int64, queueID string) error {
	if performingAdminID != s.adminChatID {
		return ErrAdminNotAuthorized
	}
	if err := s.queue.Dequeue(queueID); err != nil {
		return err
	}
	s.logger.WithField("queue_id", queueID).Warn("Queued check-in purged by admin")
	return nil
}

// History returns the student's most recent check-ins.
func (s *CheckInService) History(ctx context.Context, subjectID string, limit int) ([]checkin.HistoryRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryUnavailable
	}
	if limit <= 0 {
		limit = 10
	}
	records, err := s.history.QueryCheckInHistory(ctx, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query check-in history: %w", err)
	}
	return records, nil
}
