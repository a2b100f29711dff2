package telegram

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"geo_checkin_bot/internal/app"
	"geo_checkin_bot/internal/domain/checkin"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

func TestParseAddStudentArgs(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    app.NewStudentInput
		wantErr bool
	}{
		{
			name:    "full",
			payload: "4242; Achieng Atieno Otieno; BScN; 2024; Block 3",
			want:    app.NewStudentInput{TelegramID: 4242, FirstName: "Achieng", LastName: "Atieno Otieno", Program: "BScN", IntakeYear: "2024", BlockTerm: "Block 3"},
		},
		{
			name:    "no block no last name",
			payload: "7;Baraka;KRCHN;2023",
			want:    app.NewStudentInput{TelegramID: 7, FirstName: "Baraka", Program: "KRCHN", IntakeYear: "2023"},
		},
		{name: "too few fields", payload: "7; Baraka; KRCHN", wantErr: true},
		{name: "bad id", payload: "12abc; Baraka; KRCHN; 2023", wantErr: true},
		{name: "empty name", payload: "7; ; KRCHN; 2023", wantErr: true},
		{name: "empty program", payload: "7; Baraka; ; 2023", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAddStudentArgs(tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadingFromMessage(t *testing.T) {
	acc := float32(12)
	t.Run("location", func(t *testing.T) {
		r := readingFromMessage(&telebot.Message{Location: &telebot.Location{Lat: -1.5, Lng: 36.5, HorizontalAccuracy: &acc}})
		assert.Equal(t, -1.5, r.Latitude)
		assert.Equal(t, 36.5, r.Longitude)
		require.NotNil(t, r.Accuracy)
		assert.Equal(t, 12.0, *r.Accuracy)
		assert.Empty(t, r.Name)
	})

	t.Run("venue supplies the name", func(t *testing.T) {
		venue := &telebot.Venue{Location: telebot.Location{Lat: -1.25, Lng: 36.75}, Title: "Kenyatta National Hospital", Address: "Hospital Rd"}
		r := readingFromMessage(&telebot.Message{Location: &venue.Location, Venue: venue})
		assert.Equal(t, -1.25, r.Latitude)
		assert.Nil(t, r.Accuracy)
		assert.Equal(t, "Kenyatta National Hospital, Hospital Rd", r.Name)
	})
}

func TestCheckInResultText(t *testing.T) {
	res := &app.CheckInResult{
		Status: app.StatusQueued,
		Attempt: checkin.Attempt{
			Kind: checkin.SessionKindClinical, TargetName: "Ward 4",
			Distance: 12.4, IsVerified: true, LocationName: "Lat:-1.2921, Lon:36.8219",
		},
		QueueID:        "q-1",
		LocationNotice: "location permission was denied",
	}
	text := checkInResultText(res)
	assert.Contains(t, text, "offline")
	assert.Contains(t, text, "Clinical: Ward 4")
	assert.Contains(t, text, "Distance: 12 m (verified)")
	assert.Contains(t, text, "permission was denied")
	assert.Contains(t, text, "q-1")

	res.Status = app.StatusSubmitted
	res.QueueID = ""
	res.Attempt.IsVerified = false
	text = checkInResultText(res)
	assert.Contains(t, text, "Check-in recorded")
	assert.Contains(t, text, "(not verified)")
	assert.NotContains(t, text, "Queue reference")
}

func TestCheckInErrorText(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&app.ValidationError{Err: app.ErrSessionKindMissing}, "Choose Clinical or Class"},
		{&app.ValidationError{Err: app.ErrTargetMissing}, "Choose where you are"},
		{app.ErrStaleSelection, "/refresh"},
		{app.ErrCheckInInProgress, "already in progress"},
		{fmt.Errorf("wrapped: %w", &app.SubmissionError{Primary: errors.New("a"), Fallback: errors.New("b")}), "try again"},
		{&app.PayloadError{Err: fmt.Errorf("%w: DeviceID(required)", checkin.ErrInvalidPayload)}, "DeviceID(required)"},
		{app.ErrStudentNotRegistered, "not registered"},
		{errors.New("boom"), "Something went wrong"},
	}
	for _, tt := range tests {
		assert.Contains(t, checkInErrorText(tt.err), tt.want, tt.err.Error())
	}
}

func TestQueueAndPendingText(t *testing.T) {
	ts := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
	entries := []checkin.QueueEntry{
		{QueueID: "q-1", Attempts: 2, LastError: "connection refused", Attempt: checkin.Attempt{SubjectName: "Achieng Otieno", TargetName: "Ward 4", Timestamp: ts, IsVerified: true}},
	}

	assert.Equal(t, "You have no check-ins waiting to sync.", pendingText(nil))
	pending := pendingText(entries)
	assert.Contains(t, pending, "2026-03-02 08:30 Ward 4 (verified), 2 failed attempts")

	assert.Equal(t, "The offline queue is empty.", queueText(nil))
	queue := queueText(entries)
	assert.Contains(t, queue, "q-1 | Achieng Otieno | Ward 4")
	assert.Contains(t, queue, "last error: connection refused")
}

func TestReplaySummaryText(t *testing.T) {
	assert.Contains(t, replaySummaryText(app.ReplaySummary{Skipped: true}, 3), "3 check-ins are waiting")
	assert.Equal(t, "Nothing to sync.", replaySummaryText(app.ReplaySummary{}, 0))
	assert.Equal(t, "Sync finished: 2 synced, 1 failed, 1 still queued.",
		replaySummaryText(app.ReplaySummary{Synced: 2, Failed: 1, Remaining: 1}, 1))
}
