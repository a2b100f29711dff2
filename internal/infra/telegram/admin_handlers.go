package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"geo_checkin_bot/internal/app"
	"geo_checkin_bot/internal/domain/student"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const notAuthorizedText = "Error: you are not allowed to run this command."

// RegisterAdminHandlers registers handlers for admin commands.
// It requires the bot instance, the services, and the configured admin Telegram ID.
func RegisterAdminHandlers(
	ctx context.Context,
	b *telebot.Bot,
	studentService *app.StudentService,
	checkins *app.CheckInService,
	adminTelegramID int64,
	baseLogger *logrus.Entry,
) {
	adminOnly := func(command string, next func(c telebot.Context, log *logrus.Entry) error) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			log := baseLogger.WithFields(logrus.Fields{
				"handler":   command,
				"sender_id": c.Sender().ID,
			})
			log.Info("Command received")
			if c.Sender().ID != adminTelegramID {
				log.Warn("Unauthorized access attempt")
				return c.Send(notAuthorizedText)
			}
			return next(c, log)
		}
	}

	b.Handle("/add_student", adminOnly("/add_student", func(c telebot.Context, log *logrus.Entry) error {
		in, err := parseAddStudentArgs(c.Message().Payload)
		if err != nil {
			log.WithError(err).Warn("Invalid command format")
			return c.Send("Invalid format: " + err.Error() + ".\nUse: /add_student <TelegramID>; <First name> [Last name]; <Program>; <Intake year>[; <Block>]")
		}
		log = log.WithFields(logrus.Fields{
			"student_telegram_id": in.TelegramID,
			"program":             in.Program,
			"intake_year":         in.IntakeYear,
			"block":               in.BlockTerm,
		})

		newStudent, err := studentService.AddStudent(ctx, c.Sender().ID, in)
		if err != nil {
			switch {
			case errors.Is(err, app.ErrAdminNotAuthorized):
				log.WithError(err).Warn("Admin not authorized (service level)")
				return c.Send(notAuthorizedText)
			case errors.Is(err, app.ErrStudentAlreadyExists):
				log.WithError(err).Warn("Student already exists")
				return c.Send(fmt.Sprintf("Error: a student with Telegram ID %d already exists.", in.TelegramID))
			default:
				log.WithError(err).Error("Failed to add student")
				return c.Send("An error occurred while adding the student: " + err.Error())
			}
		}

		log.WithField("new_student_id", newStudent.ID).Info("Student added successfully")
		return c.Send(fmt.Sprintf("Student %s (Telegram ID: %d) added to %s %s %s.",
			newStudent.FullName(), newStudent.TelegramID, newStudent.Program, newStudent.IntakeYear, newStudent.BlockTerm))
	}))

	b.Handle("/remove_student", adminOnly("/remove_student", func(c telebot.Context, log *logrus.Entry) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Invalid format. Use: /remove_student <TelegramID>")
		}
		studentTelegramID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			log.WithField("arg", args[0]).Warn("Invalid Telegram ID format")
			return c.Send("Error: Telegram ID must be a number.")
		}
		log = log.WithField("student_telegram_id", studentTelegramID)

		removed, err := studentService.RemoveStudent(ctx, c.Sender().ID, studentTelegramID)
		if err != nil {
			switch {
			case errors.Is(err, app.ErrAdminNotAuthorized):
				log.WithError(err).Warn("Admin not authorized (service level)")
				return c.Send(notAuthorizedText)
			case errors.Is(err, student.ErrNotFound):
				log.WithError(err).Warn("Student to remove not found")
				return c.Send(fmt.Sprintf("No student with Telegram ID %d.", studentTelegramID))
			case errors.Is(err, app.ErrStudentAlreadyInactive):
				log.WithError(err).Warn("Student already inactive")
				return c.Send(fmt.Sprintf("Student %s (Telegram ID: %d) is already inactive.", removed.FullName(), removed.TelegramID))
			default:
				log.WithError(err).Error("Failed to remove student")
				return c.Send("An error occurred while removing the student: " + err.Error())
			}
		}

		log.WithField("removed_student_id", removed.ID).Info("Student deactivated")
		return c.Send(fmt.Sprintf("Student %s (Telegram ID: %d) deactivated. Their check-in history is kept.", removed.FullName(), removed.TelegramID))
	}))

	b.Handle("/list_students", adminOnly("/list_students", func(c telebot.Context, log *logrus.Entry) error {
		listType := "active"
		if args := c.Args(); len(args) > 0 {
			listType = strings.ToLower(args[0])
		}
		log = log.WithField("list_type", listType)

		var (
			list  []*student.Student
			err   error
			title string
		)
		switch listType {
		case "active":
			title = "Active students"
			list, err = studentService.ListActiveStudents(ctx, c.Sender().ID)
		case "all":
			title = "All students"
			list, err = studentService.ListAllStudents(ctx, c.Sender().ID)
		default:
			log.Warn("Invalid list type argument")
			return c.Send("Invalid argument. Use 'active' or 'all', or leave it empty for active students.")
		}
		if err != nil {
			log.WithError(err).Error("Failed to list students")
			return c.Send("An error occurred while listing students: " + err.Error())
		}
		if len(list) == 0 {
			return c.Send("No students found.")
		}
		log.WithField("students_count", len(list)).Info("Student list retrieved")
		return c.Send(studentListText(title, list))
	}))

	b.Handle("/queue", adminOnly("/queue", func(c telebot.Context, log *logrus.Entry) error {
		entries, err := checkins.Queue()
		if err != nil {
			log.WithError(err).Error("Failed to read offline queue")
			return c.Send("Could not read the offline queue.")
		}
		return c.Send(queueText(entries))
	}))

	b.Handle("/purge_pending", adminOnly("/purge_pending", func(c telebot.Context, log *logrus.Entry) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Invalid format. Use: /purge_pending <queue_id> (see /queue)")
		}
		queueID := args[0]
		log = log.WithField("queue_id", queueID)

		if err := checkins.PurgePending(c.Sender().ID, queueID); err != nil {
			switch {
			case errors.Is(err, app.ErrAdminNotAuthorized):
				return c.Send(notAuthorizedText)
			case errors.Is(err, app.ErrQueueEntryNotFound):
				log.Warn("Queue entry not found")
				return c.Send(fmt.Sprintf("No queued check-in with id %s.", queueID))
			default:
				log.WithError(err).Error("Failed to purge queue entry")
				return c.Send("An error occurred while purging: " + err.Error())
			}
		}
		return c.Send(fmt.Sprintf("Queued check-in %s removed.", queueID))
	}))
}
