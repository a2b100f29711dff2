package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"geo_checkin_bot/internal/domain/checkin"
	"geo_checkin_bot/internal/domain/student"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors for the student registry
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")
var ErrStudentAlreadyExists = fmt.Errorf("student with this Telegram ID already exists")
var ErrStudentAlreadyInactive = fmt.Errorf("student is already inactive")
var ErrStudentNotRegistered = fmt.Errorf("student is not registered")
var ErrStudentInactive = fmt.Errorf("student account is inactive")

// NewStudentInput describes a student added by the admin.
type NewStudentInput struct {
	TelegramID int64
	FirstName  string
	LastName   string
	Program    string
	IntakeYear string
	BlockTerm  string
}

// StudentService is the profile provider: it owns student registration and profile lookup.
// Loaded profiles are kept in the local store so check-ins can still be queued while the
// database is unreachable.
type StudentService struct {
	studentRepo     student.Repository
	profiles        checkin.LocalStore
	adminTelegramID int64
	logger          *logrus.Entry
}

// NewStudentService builds the service. profiles may be nil, which disables the offline profile cache.
func NewStudentService(sr student.Repository, profiles checkin.LocalStore, adminID int64, logger *logrus.Entry) *StudentService {
	return &StudentService{
		studentRepo:     sr,
		profiles:        profiles,
		adminTelegramID: adminID,
		logger:          logger,
	}
}

// AddStudent handles the business logic for registering a new student.
func (s *StudentService) AddStudent(ctx context.Context, performingAdminID int64, in NewStudentInput) (*student.Student, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}

	_, err := s.studentRepo.GetByTelegramID(ctx, in.TelegramID)
	if err == nil {
		return nil, ErrStudentAlreadyExists
	}
	if !errors.Is(err, student.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing student: %w", err)
	}

	var lastName sql.NullString
	if strings.TrimSpace(in.LastName) != "" {
		lastName = sql.NullString{String: in.LastName, Valid: true}
	}

	newStudent := &student.Student{
		TelegramID: in.TelegramID,
		FirstName:  in.FirstName,
		LastName:   lastName,
		Program:    in.Program,
		IntakeYear: in.IntakeYear,
		BlockTerm:  in.BlockTerm,
		IsActive:   true,
	}

	if err := s.studentRepo.Create(ctx, newStudent); err != nil {
		if errors.Is(err, student.ErrDuplicateTelegramID) {
			return nil, ErrStudentAlreadyExists
		}
		return nil, fmt.Errorf("failed to create student in repository: %w", err)
	}
	return newStudent, nil
}

// RemoveStudent deactivates a student. Their check-in history is kept.
func (s *StudentService) RemoveStudent(ctx context.Context, performingAdminID int64, telegramID int64) (*student.Student, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}

	target, err := s.studentRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, student.ErrNotFound) {
			return nil, student.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get student by Telegram ID for removal: %w", err)
	}

	if !target.IsActive {
		return target, ErrStudentAlreadyInactive
	}

	target.IsActive = false
	if err := s.studentRepo.Update(ctx, target); err != nil {
		return nil, fmt.Errorf("failed to update student to inactive in repository: %w", err)
	}
	s.forgetProfile(telegramID)
	return target, nil
}

func (s *StudentService) ListActiveStudents(ctx context.Context, performingAdminID int64) ([]*student.Student, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	return s.studentRepo.ListActive(ctx)
}

func (s *StudentService) ListAllStudents(ctx context.Context, performingAdminID int64) ([]*student.Student, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	return s.studentRepo.ListAll(ctx)
}

// ProfileFor loads the check-in profile of an active student.
// When the database cannot be reached the last profile loaded for this user is served instead.
func (s *StudentService) ProfileFor(ctx context.Context, telegramID int64) (*checkin.Profile, error) {
	st, err := s.studentRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, student.ErrNotFound) {
			s.forgetProfile(telegramID)
			return nil, ErrStudentNotRegistered
		}
		if cached, ok := s.cachedProfile(telegramID); ok {
			s.logger.WithError(err).WithField("telegram_id", telegramID).Warn("Student registry unavailable, using cached profile")
			return cached, nil
		}
		return nil, fmt.Errorf("failed to load student profile: %w", err)
	}
	if !st.IsActive {
		s.forgetProfile(telegramID)
		return nil, ErrStudentInactive
	}
	p := st.Profile()
	s.rememberProfile(p)
	return &p, nil
}

func (s *StudentService) rememberProfile(p checkin.Profile) {
	if s.profiles == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err == nil {
		err = s.profiles.Set(checkin.ProfileKey(p.TelegramID), string(raw))
	}
	if err != nil {
		s.logger.WithError(err).WithField("telegram_id", p.TelegramID).Warn("Failed to cache student profile")
	}
}

func (s *StudentService) cachedProfile(telegramID int64) (*checkin.Profile, bool) {
	if s.profiles == nil {
		return nil, false
	}
	raw, ok, err := s.profiles.Get(checkin.ProfileKey(telegramID))
	if err != nil || !ok {
		return nil, false
	}
	var p checkin.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.ID == "" {
		s.logger.WithError(err).WithField("telegram_id", telegramID).Warn("Discarding unreadable cached profile")
		return nil, false
	}
	return &p, true
}

func (s *StudentService) forgetProfile(telegramID int64) {
	if s.profiles == nil {
		return
	}
	if err := s.profiles.Delete(checkin.ProfileKey(telegramID)); err != nil {
		s.logger.WithError(err).WithField("telegram_id", telegramID).Warn("Failed to drop cached profile")
	}
}

// IsAdmin reports whether the Telegram user is the configured admin.
func (s *StudentService) IsAdmin(telegramID int64) bool {
	return telegramID == s.adminTelegramID
}
