package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"guardian_bot/internal/app"
	"guardian_bot/internal/domain/report"
	idb "guardian_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const unauthorizedText = "Error: you are not allowed to use this command."

// adminErrorText maps service errors to replies. ok is false for unexpected
// errors, which the caller logs.
func adminErrorText(err error) (string, bool) {
	var ve *app.ValidationError
	var te *report.TransitionError
	switch {
	case errors.Is(err, app.ErrAdminNotAuthorized):
		return unauthorizedText, true
	case errors.As(err, &ve):
		return fmt.Sprintf("Error: %s.", ve.Error()), true
	case errors.As(err, &te):
		return fmt.Sprintf("Error: a %s report cannot move to %s. Use /report_force to override.", te.From, te.To), true
	case errors.Is(err, idb.ErrReportNotFound):
		return "Error: report not found.", true
	case errors.Is(err, idb.ErrStoreUnavailable):
		return "The database is unavailable right now. Please try again later.", false
	}
	return fmt.Sprintf("An error occurred: %s", err.Error()), false
}

// RegisterAdminHandlers registers handlers for admin commands.
// It requires the bot instance, admin service, and the configured admin Telegram ID.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, adminTelegramID int64, baseLogger *logrus.Entry) {
	// handle wraps an admin command with the sender check and error replies.
	handle := func(command string, fn func(c telebot.Context, log *logrus.Entry) error) {
		b.Handle(command, func(c telebot.Context) error {
			handlerLogger := baseLogger.WithFields(logrus.Fields{
				"handler":   command,
				"sender_id": c.Sender().ID,
			})
			handlerLogger.Info("Command received")

			if c.Sender().ID != adminTelegramID {
				handlerLogger.Warn("Unauthorized access attempt")
				return c.Send(unauthorizedText)
			}
			err := fn(c, handlerLogger)
			if err == nil {
				return nil
			}
			text, expected := adminErrorText(err)
			if expected {
				handlerLogger.WithError(err).Warn("Command rejected")
			} else {
				handlerLogger.WithError(err).Error("Command failed")
			}
			return c.Send(text)
		})
	}

	// Expected format, sent inside the group: /setup <DestinationChatID> [EscalationMention]
	handle("/setup", func(c telebot.Context, log *logrus.Entry) error {
		args := c.Args()
		if len(args) < 1 || len(args) > 2 {
			return c.Send("Invalid command format. Use: /setup <DestinationChatID> [EscalationMention]")
		}
		if c.Chat().Type == telebot.ChatPrivate {
			return c.Send("Run /setup inside the group that should send reports.")
		}
		destination, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("Error: the destination chat id must be a number.")
		}
		var escalation string
		if len(args) == 2 {
			escalation = args[1]
		}

		cfg, err := adminService.SetupGroup(ctx, c.Sender().ID, c.Chat().ID, destination, escalation)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"group_id": cfg.GroupID, "destination": cfg.DestinationChatID}).Info("Group configured")
		msg := fmt.Sprintf("Reports from this group will be posted to %d.", cfg.DestinationChatID)
		if cfg.EscalationRole.Valid {
			msg += fmt.Sprintf(" High urgency reports will mention %s.", cfg.EscalationRole.String)
		}
		return c.Send(msg)
	})

	// Expected format: /report_status <ReportID> <Status>
	handle("/report_status", func(c telebot.Context, log *logrus.Entry) error {
		id, status, err := ParseIDAndStatus(c.Args())
		if err != nil {
			return c.Send(fmt.Sprintf("Error: %s. Use: /report_status <ReportID> <%s>", err, statusList()))
		}
		prev, err := adminService.AdvanceReport(ctx, c.Sender().ID, id, status)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"report_id": id, "from": prev, "to": status}).Info("Report advanced")
		return c.Send(fmt.Sprintf("Report #%d: %s -> %s.", id, prev, status))
	})

	// Expected format: /report_force <ReportID> <Status>
	handle("/report_force", func(c telebot.Context, log *logrus.Entry) error {
		id, status, err := ParseIDAndStatus(c.Args())
		if err != nil {
			return c.Send(fmt.Sprintf("Error: %s. Use: /report_force <ReportID> <%s>", err, statusList()))
		}
		if err := adminService.ForceReport(ctx, c.Sender().ID, id, status); err != nil {
			return err
		}
		return c.Send(fmt.Sprintf("Report #%d forced to %s.", id, status))
	})

	// Optional argument: a status or 'all'
	handle("/reports", func(c telebot.Context, log *logrus.Entry) error {
		filter := "all"
		if args := c.Args(); len(args) > 0 {
			filter = strings.ToLower(args[0])
		}
		reports, err := adminService.ListReports(ctx, c.Sender().ID, filter)
		if err != nil {
			return err
		}
		log.WithField("reports_count", len(reports)).Info("Successfully retrieved report list")
		return c.Send(FormatReportList(reports, filter))
	})

	handle("/report_stats", func(c telebot.Context, log *logrus.Entry) error {
		stats, err := adminService.ReportStats(ctx, c.Sender().ID)
		if err != nil {
			return err
		}
		return c.Send(FormatReportStats(stats))
	})

	handle("/remind_now", func(c telebot.Context, log *logrus.Entry) error {
		res, err := adminService.RemindNow(ctx, c.Sender().ID)
		if err != nil {
			return err
		}
		switch {
		case res.Skipped:
			return c.Send("Another instance is sending the reminder. Try again shortly.")
		case len(res.Notified) == 0:
			return c.Send("Every known member has posted an introduction! 🎉")
		}
		return c.Send(fmt.Sprintf("Introduction reminder sent (%d members).", len(res.Notified)))
	})

	handle("/leaderboard", func(c telebot.Context, log *logrus.Entry) error {
		lb, err := adminService.Leaderboard(ctx, c.Sender().ID)
		if err != nil {
			return err
		}
		return c.Send(FormatLeaderboard(lb))
	})
}

func statusList() string {
	statuses := report.Statuses()
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return strings.Join(names, "|")
}
