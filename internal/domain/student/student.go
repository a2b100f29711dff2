package student

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"geo_checkin_bot/internal/domain/checkin"
)

// Student is a registered student who may check in through the bot.
type Student struct {
	ID         int64
	TelegramID int64
	FirstName  string
	LastName   sql.NullString
	Program    string
	IntakeYear string
	BlockTerm  string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (s Student) FullName() string {
	if s.LastName.Valid && strings.TrimSpace(s.LastName.String) != "" {
		return s.FirstName + " " + s.LastName.String
	}
	return s.FirstName
}

// Profile converts the student into the read-only profile the check-in engine consumes.
func (s Student) Profile() checkin.Profile {
	return checkin.Profile{
		ID:          strconv.FormatInt(s.ID, 10),
		TelegramID:  s.TelegramID,
		DisplayName: s.FullName(),
		Program:     s.Program,
		IntakeYear:  s.IntakeYear,
		BlockTerm:   s.BlockTerm,
	}
}
