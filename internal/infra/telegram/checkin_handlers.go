// internal/infra/telegram/checkin_handlers.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"geo_checkin_bot/internal/app"
	"geo_checkin_bot/internal/domain/checkin"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const historyLimit = 10

// ConnectivityProbe is the connectivity monitor as seen by /sync.
type ConnectivityProbe interface {
	IsOnline() bool
	Check(ctx context.Context) error
}

// queueReplayer is the part of the check-in service driven by /sync.
type queueReplayer interface {
	ReplayAll(ctx context.Context) app.ReplaySummary
	LastReplay() app.ReplaySummary
	Queue() ([]checkin.QueueEntry, error)
}

var (
	btnKind   = telebot.Btn{Unique: "ck_kind"}
	btnTarget = telebot.Btn{Unique: "ck_target"}
	// Reply keyboard buttons are matched by their text.
	btnNoLocation = telebot.Btn{Text: "🚫 I can't share my location"}
)

func RegisterCheckInHandlers(
	ctx context.Context,
	b *telebot.Bot,
	checkins *app.CheckInService,
	students *app.StudentService,
	waiter *LocationWaiter,
	probe ConnectivityProbe,
	baseLogger *logrus.Entry,
) {
	checkinLogger := baseLogger.WithField("handler_group", "checkin")

	loadProfile := func(c telebot.Context, log *logrus.Entry) (*checkin.Profile, bool) {
		profile, err := students.ProfileFor(ctx, c.Sender().ID)
		if err != nil {
			if !errors.Is(err, app.ErrStudentNotRegistered) && !errors.Is(err, app.ErrStudentInactive) {
				log.WithError(err).Error("Failed to load student profile")
			}
			_ = c.Send(checkInErrorText(err))
			return nil, false
		}
		return profile, true
	}

	b.Handle("/checkin", func(c telebot.Context) error {
		log := checkinLogger.WithFields(logrus.Fields{"command": "/checkin", "sender_id": c.Sender().ID})
		if _, ok := loadProfile(c, log); !ok {
			return nil
		}
		markup := &telebot.ReplyMarkup{}
		markup.Inline(markup.Row(
			markup.Data("🏥 Clinical", btnKind.Unique, string(checkin.SessionKindClinical)),
			markup.Data("📚 Class", btnKind.Unique, string(checkin.SessionKindClass)),
		))
		return c.Send("What are you checking in to?", markup)
	})

	b.Handle(&btnKind, func(c telebot.Context) error {
		log := checkinLogger.WithFields(logrus.Fields{"callback": btnKind.Unique, "sender_id": c.Sender().ID})
		args := c.Args()
		if len(args) != 1 {
			c.Bot().OnError(fmt.Errorf("invalid kind callback data: %q", c.Callback().Data), c)
			return c.Respond(&telebot.CallbackResponse{Text: "Unknown option."})
		}
		kind, err := checkin.ParseSessionKind(args[0])
		if err != nil {
			c.Bot().OnError(err, c)
			return c.Respond(&telebot.CallbackResponse{Text: "Unknown option."})
		}
		_ = c.Respond()

		profile, ok := loadProfile(c, log)
		if !ok {
			return nil
		}

		targets := checkins.Targets(ctx, kind, *profile)
		log.WithFields(logrus.Fields{"kind": kind, "targets": len(targets)}).Debug("Targets resolved")
		if len(targets) == 0 {
			return c.Edit(fmt.Sprintf("No %s locations are available for your cohort. Try /refresh later.", strings.ToLower(string(kind))))
		}

		markup := &telebot.ReplyMarkup{}
		rows := make([]telebot.Row, 0, len(targets))
		for _, t := range targets {
			rows = append(rows, markup.Row(markup.Data(t.Name, btnTarget.Unique, string(kind), t.ID)))
		}
		markup.Inline(rows...)
		return c.Edit(fmt.Sprintf("%s: where are you?", kind), markup)
	})

	b.Handle(&btnTarget, func(c telebot.Context) error {
		log := checkinLogger.WithFields(logrus.Fields{"callback": btnTarget.Unique, "sender_id": c.Sender().ID})
		args := c.Args()
		if len(args) != 2 {
			c.Bot().OnError(fmt.Errorf("invalid target callback data: %q", c.Callback().Data), c)
			return c.Respond(&telebot.CallbackResponse{Text: "Unknown option."})
		}
		kind, err := checkin.ParseSessionKind(args[0])
		if err != nil {
			c.Bot().OnError(err, c)
			return c.Respond(&telebot.CallbackResponse{Text: "Unknown option."})
		}
		_ = c.Respond()

		profile, ok := loadProfile(c, log)
		if !ok {
			return nil
		}
		chatID, userID := c.Chat().ID, c.Sender().ID
		if waiter.Waiting(chatID, userID) {
			return c.Send(checkInErrorText(app.ErrCheckInInProgress))
		}

		prompt := &telebot.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
		prompt.Reply(
			prompt.Row(prompt.Location("📍 Share my location")),
			prompt.Row(btnNoLocation),
		)
		if err := c.Send("Share your current location to check in.", prompt); err != nil {
			return err
		}

		req := app.CheckInRequest{
			Profile:      profile,
			Kind:         kind,
			TargetID:     args[1],
			Locator:      waiter.ForSender(chatID, userID),
			NotifyChatID: chatID,
		}
		go runCheckIn(ctx, b, checkins, req, log)
		return nil
	})

	b.Handle(telebot.OnLocation, func(c telebot.Context) error {
		if c.Sender() == nil {
			return nil // channel posts carry no sender
		}
		chatID := c.Chat().ID
		if !waiter.Deliver(chatID, c.Sender().ID, readingFromMessage(c.Message())) {
			return c.Send("Use /checkin to start a check-in first.", &telebot.ReplyMarkup{RemoveKeyboard: true})
		}
		checkinLogger.WithField("chat_id", chatID).Debug("Location delivered to waiting check-in")
		return nil
	})

	b.Handle(&btnNoLocation, func(c telebot.Context) error {
		if !waiter.Decline(c.Chat().ID, c.Sender().ID, checkin.ErrLocationPermissionDenied) {
			return c.Send("Use /checkin to start a check-in first.", &telebot.ReplyMarkup{RemoveKeyboard: true})
		}
		return nil
	})

	b.Handle("/pending", func(c telebot.Context) error {
		log := checkinLogger.WithFields(logrus.Fields{"command": "/pending", "sender_id": c.Sender().ID})
		profile, ok := loadProfile(c, log)
		if !ok {
			return nil
		}
		entries, err := checkins.Pending(profile.ID)
		if err != nil {
			log.WithError(err).Error("Failed to read offline queue")
			return c.Send("Could not read the offline queue.")
		}
		return c.Send(pendingText(entries))
	})

	b.Handle("/history", func(c telebot.Context) error {
		log := checkinLogger.WithFields(logrus.Fields{"command": "/history", "sender_id": c.Sender().ID})
		profile, ok := loadProfile(c, log)
		if !ok {
			return nil
		}
		records, err := checkins.History(ctx, profile.ID, historyLimit)
		if err != nil {
			log.WithError(err).Warn("Failed to load check-in history")
			return c.Send("History is not available right now. Please try again later.")
		}
		return c.Send(historyText(records))
	})

	b.Handle("/sync", func(c telebot.Context) error {
		log := checkinLogger.WithFields(logrus.Fields{"command": "/sync", "sender_id": c.Sender().ID})
		log.Info("Manual sync requested")

		summary, stillQueued := syncNow(ctx, probe, checkins)
		log.WithFields(logrus.Fields{"synced": summary.Synced, "failed": summary.Failed, "queued": stillQueued}).Info("Manual sync finished")
		return c.Send(replaySummaryText(summary, stillQueued))
	})

	b.Handle("/refresh", func(c telebot.Context) error {
		checkins.RefreshTargets()
		checkinLogger.WithField("sender_id", c.Sender().ID).Info("Target lists invalidated")
		return c.Send("Location lists will be reloaded on your next /checkin.")
	})
}

// syncNow probes the database and replays the queue once. When the probe itself restores
// connectivity, the monitor's listeners have already replayed and their summary is reported.
func syncNow(ctx context.Context, probe ConnectivityProbe, r queueReplayer) (app.ReplaySummary, int) {
	wasOnline := probe.IsOnline()

	var summary app.ReplaySummary
	switch err := probe.Check(ctx); {
	case err != nil:
		summary = app.ReplaySummary{Skipped: true}
	case !wasOnline:
		summary = r.LastReplay()
	default:
		summary = r.ReplayAll(ctx)
	}

	queued, _ := r.Queue()
	return summary, len(queued)
}

// runCheckIn blocks until the location arrives or times out, then reports the outcome to the chat.
func runCheckIn(ctx context.Context, b *telebot.Bot, checkins *app.CheckInService, req app.CheckInRequest, log *logrus.Entry) {
	chat := &telebot.Chat{ID: req.NotifyChatID}
	removeKeyboard := &telebot.ReplyMarkup{RemoveKeyboard: true}

	res, err := checkins.CheckIn(ctx, req)
	if err != nil {
		var (
			serr *app.SubmissionError
			perr *app.PayloadError
		)
		if errors.As(err, &serr) || errors.As(err, &perr) {
			log.WithError(err).Error("Check-in could not be saved")
		} else {
			log.WithError(err).Info("Check-in rejected")
		}
		if _, sendErr := b.Send(chat, checkInErrorText(err), removeKeyboard); sendErr != nil {
			log.WithError(sendErr).Warn("Failed to send check-in error")
		}
		if serr != nil && serr.Retryable() {
			retry := &telebot.ReplyMarkup{}
			retry.Inline(retry.Row(retry.Data("🔁 Try again", btnTarget.Unique, string(req.Kind), req.TargetID)))
			if _, sendErr := b.Send(chat, "Tap to try again.", retry); sendErr != nil {
				log.WithError(sendErr).Warn("Failed to send retry button")
			}
		}
		return
	}

	if _, err := b.Send(chat, checkInResultText(res), removeKeyboard); err != nil {
		log.WithError(err).Warn("Failed to send check-in result")
	}
}

// readingFromMessage converts a shared location or venue into a device reading.
func readingFromMessage(m *telebot.Message) checkin.Reading {
	var r checkin.Reading
	loc := m.Location
	if loc == nil && m.Venue != nil {
		loc = &m.Venue.Location
	}
	if loc == nil {
		return r
	}
	r.Latitude = float64(loc.Lat)
	r.Longitude = float64(loc.Lng)
	if loc.HorizontalAccuracy != nil {
		acc := float64(*loc.HorizontalAccuracy)
		r.Accuracy = &acc
	}
	if m.Venue != nil {
		r.Name = strings.TrimSpace(m.Venue.Title)
		if addr := strings.TrimSpace(m.Venue.Address); addr != "" {
			if r.Name == "" {
				r.Name = addr
			} else {
				r.Name += ", " + addr
			}
		}
	}
	return r
}
