// internal/domain/checkin/profile.go
package checkin

import "strconv"

// Profile is the read-only view of the student making a check-in.
type Profile struct {
	ID          string `json:"id"`
	TelegramID  int64  `json:"telegram_id"`
	DisplayName string `json:"display_name"`
	Program     string `json:"program"`
	IntakeYear  string `json:"intake_year"`
	BlockTerm   string `json:"block_term"`
}

func (p Profile) Cohort() Cohort {
	return Cohort{Program: p.Program, IntakeYear: p.IntakeYear, BlockTerm: p.BlockTerm}
}

// ProfileKey is the local store key of a student's last loaded profile.
func ProfileKey(telegramID int64) string {
	return "profile:" + strconv.FormatInt(telegramID, 10)
}
