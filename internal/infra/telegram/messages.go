package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"geo_checkin_bot/internal/app"
	"geo_checkin_bot/internal/domain/checkin"
	"geo_checkin_bot/internal/domain/student"
)

const timeLayout = "2006-01-02 15:04"

func verifiedLabel(ok bool) string {
	if ok {
		return "verified"
	}
	return "not verified"
}

// checkInResultText renders the outcome shown to the student after a check-in.
func checkInResultText(res *app.CheckInResult) string {
	a := res.Attempt
	var b strings.Builder
	switch res.Status {
	case app.StatusQueued:
		b.WriteString("📥 You are offline. Your check-in was saved on this device and will sync automatically.\n")
	default:
		b.WriteString("✅ Check-in recorded.\n")
	}
	fmt.Fprintf(&b, "%s: %s\n", a.Kind, a.TargetName)
	fmt.Fprintf(&b, "Distance: %.0f m (%s)\n", a.Distance, verifiedLabel(a.IsVerified))
	if a.LocationName != "" {
		fmt.Fprintf(&b, "Location: %s\n", a.LocationName)
	}
	if res.LocationNotice != "" {
		fmt.Fprintf(&b, "⚠️ Approximate location used: %s.\n", res.LocationNotice)
	}
	if res.QueueID != "" {
		fmt.Fprintf(&b, "Queue reference: %s\n", res.QueueID)
	}
	return strings.TrimRight(b.String(), "\n")
}

// checkInErrorText maps service errors to a user facing message.
func checkInErrorText(err error) string {
	var verr *app.ValidationError
	var serr *app.SubmissionError
	var perr *app.PayloadError
	switch {
	case errors.As(err, &verr):
		switch {
		case errors.Is(err, app.ErrProfileNotLoaded):
			return "Your student profile is not loaded. Ask the administrator to register you."
		case errors.Is(err, app.ErrSessionKindMissing):
			return "Choose Clinical or Class first with /checkin."
		default:
			return "Choose where you are checking in first with /checkin."
		}
	case errors.Is(err, app.ErrStaleSelection):
		return "That location is no longer in your list. Use /refresh and start again with /checkin."
	case errors.Is(err, app.ErrCheckInInProgress):
		return "A check-in is already in progress. Please wait for it to finish."
	case errors.As(err, &serr):
		return "❌ The check-in could not be saved. Nothing was lost, please try again."
	case errors.As(err, &perr):
		return "❌ The check-in record was incomplete and was not saved (" + perr.Err.Error() + "). Start again with /checkin, and contact the administrator if this repeats."
	case errors.Is(err, app.ErrStudentNotRegistered):
		return "You are not registered. Ask the administrator to add you."
	case errors.Is(err, app.ErrStudentInactive):
		return "Your student account is inactive. Please contact the administrator."
	}
	return "Something went wrong. Please try again later."
}

func pendingText(entries []checkin.QueueEntry) string {
	if len(entries) == 0 {
		return "You have no check-ins waiting to sync."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Check-ins waiting to sync: %d\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s %s (%s)", e.Attempt.Timestamp.Format(timeLayout), e.Attempt.TargetName, verifiedLabel(e.Attempt.IsVerified))
		if e.Attempts > 0 {
			fmt.Fprintf(&b, ", %d failed attempts", e.Attempts)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// queueText is the admin view of the whole queue, with ids for /purge_pending.
func queueText(entries []checkin.QueueEntry) string {
	if len(entries) == 0 {
		return "The offline queue is empty."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Offline queue: %d entries\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "%s | %s | %s | %s | attempts: %d",
			e.QueueID, e.Attempt.SubjectName, e.Attempt.TargetName, e.Attempt.Timestamp.Format(timeLayout), e.Attempts)
		if e.LastError != "" {
			fmt.Fprintf(&b, " | last error: %s", e.LastError)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func historyText(records []checkin.HistoryRecord) string {
	if len(records) == 0 {
		return "No check-ins yet."
	}
	var b strings.Builder
	b.WriteString("Recent check-ins:\n")
	for _, r := range records {
		fmt.Fprintf(&b, "- %s %s %s (%s)", r.Timestamp.Local().Format(timeLayout), r.Kind, r.TargetName, verifiedLabel(r.IsVerified))
		if r.LocationName != "" {
			fmt.Fprintf(&b, ", %s", r.LocationName)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func replaySummaryText(s app.ReplaySummary, stillPending int) string {
	if s.Skipped {
		return fmt.Sprintf("Sync is not possible right now. %d check-ins are waiting.", stillPending)
	}
	if s.Synced+s.Failed == 0 {
		return "Nothing to sync."
	}
	return fmt.Sprintf("Sync finished: %d synced, %d failed, %d still queued.", s.Synced, s.Failed, s.Remaining)
}

func studentListText(title string, students []*student.Student) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s ---\n", title)
	for _, s := range students {
		status := "Inactive"
		if s.IsActive {
			status = "Active"
		}
		block := s.BlockTerm
		if block == "" {
			block = "-"
		}
		fmt.Fprintf(&b, "ID: %d, Telegram ID: %d, Name: %s, Cohort: %s %s %s, Status: %s\n",
			s.ID, s.TelegramID, s.FullName(), s.Program, s.IntakeYear, block, status)
	}
	return strings.TrimRight(b.String(), "\n")
}

// parseAddStudentArgs parses "<TelegramID>; <First> [Last...]; <Program>; <IntakeYear>[; <Block>]".
func parseAddStudentArgs(payload string) (app.NewStudentInput, error) {
	parts := strings.Split(payload, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 4 || len(parts) > 5 {
		return app.NewStudentInput{}, fmt.Errorf("expected 4 or 5 fields separated by ';', got %d", len(parts))
	}

	var in app.NewStudentInput
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		return app.NewStudentInput{}, fmt.Errorf("telegram id must be a positive number")
	}
	in.TelegramID = id
	name := strings.Fields(parts[1])
	if len(name) == 0 {
		return app.NewStudentInput{}, fmt.Errorf("name must not be empty")
	}
	in.FirstName = name[0]
	in.LastName = strings.Join(name[1:], " ")
	in.Program = parts[2]
	in.IntakeYear = parts[3]
	if in.Program == "" || in.IntakeYear == "" {
		return app.NewStudentInput{}, fmt.Errorf("program and intake year are required")
	}
	if len(parts) == 5 {
		in.BlockTerm = parts[4]
	}
	return in, nil
}
