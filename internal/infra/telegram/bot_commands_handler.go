// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"

	"geo_checkin_bot/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const studentHelp = "Check in at your clinical area or class from where you are.\n\n" +
	"`/checkin` - Start a check-in and share your location.\n" +
	"`/pending` - Check-ins saved while offline that have not synced yet.\n" +
	"`/history` - Your recent check-ins.\n" +
	"`/sync` - Try to sync saved check-ins now.\n" +
	"`/refresh` - Reload the location lists.\n" +
	"`/help` - Show this message.\n\n" +
	"A check-in is verified when you are within the allowed distance of the selected location."

const adminHelp = "Admin commands:\n\n" +
	"`/add_student <TelegramID>; <First name> [Last name]; <Program>; <Intake year>[; <Block>]`\n - Register a student.\n\n" +
	"`/remove_student <TelegramID>`\n - Deactivate a student. History is kept.\n\n" +
	"`/list_students [active|all]`\n - List students, active by default.\n\n" +
	"`/queue`\n - Show check-ins waiting to sync on this server.\n\n" +
	"`/purge_pending <queue_id>`\n - Drop a queued check-in that will never sync.\n\n" +
	"`/sync`\n - Probe the database and replay the queue.\n\n" +
	"`/help`\n - Show this message."

func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	adminTelegramID int64,
	studentService *app.StudentService,
	baseLogger *logrus.Entry,
) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if senderID == adminTelegramID {
			logCtx.Info("User identified as Admin")
			return c.Send(fmt.Sprintf("Hello, administrator %s! Use /help for the list of commands.", c.Sender().FirstName))
		}

		profile, err := studentService.ProfileFor(ctx, senderID)
		switch {
		case err == nil:
			logCtx.WithField("student_id", profile.ID).Info("User identified as active student")
			return c.Send(fmt.Sprintf("Hello, %s! Use /checkin when you arrive at your clinical area or class.", profile.DisplayName))
		case errors.Is(err, app.ErrStudentInactive):
			logCtx.Info("User identified as inactive student")
			return c.Send("Your student account is inactive. Please contact the administrator.")
		case errors.Is(err, app.ErrStudentNotRegistered):
			logCtx.Info("User is unknown")
			return c.Send(fmt.Sprintf("Hello! This bot records attendance check-ins. Ask the administrator to register your Telegram ID: %d", senderID))
		default:
			logCtx.WithError(err).Error("Error checking student status for /start command")
			return c.Send("Could not check your registration right now. Please try again later.")
		}
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if senderID == adminTelegramID {
			return c.Send(adminHelp, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
		}

		_, err := studentService.ProfileFor(ctx, senderID)
		switch {
		case err == nil:
			return c.Send(studentHelp, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
		case errors.Is(err, app.ErrStudentInactive):
			return c.Send("Your student account is inactive. Contact the administrator to reactivate it.")
		case errors.Is(err, app.ErrStudentNotRegistered):
			return c.Send("No commands are available to you yet. Ask the administrator to register you, then use /start.")
		default:
			logCtx.WithError(err).Error("Error checking student status for /help command")
			return c.Send("Could not check your registration right now. Please try again later.")
		}
	})
}
