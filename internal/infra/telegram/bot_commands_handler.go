// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"guardian_bot/internal/app"
	"guardian_bot/internal/infra/config"
	idb "guardian_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	cfg *config.AppConfig, // For AdminTelegramID
	directoryService *app.DirectoryService,
	baseLogger *logrus.Entry, // For contextual logging
) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if senderID == cfg.AdminTelegramID {
			logCtx.Info("User identified as Admin")
			return c.Send(fmt.Sprintf("Hello, %s! I am ready. Use /help for the list of commands.", c.Sender().FirstName))
		}

		_, err := directoryService.LookupIntroduction(ctx, senderID)
		if err == nil {
			return c.Send("Hello! I will send you the outcome of your reports here. Use /help to see how reporting works.")
		} else if !errors.Is(err, idb.ErrDirectoryEntryNotFound) {
			logCtx.WithError(err).Error("Error looking up introduction for /start command")
			return c.Send("Something went wrong. Please try again later.")
		}
		return c.Send("Hello! I will send you the outcome of your reports here. Don't forget to post an introduction in the community.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		var helpText strings.Builder
		helpText.WriteString("Reporting:\n\n")
		helpText.WriteString("`/report <rule> [low|medium|high] [details]`\n - Reply to a message to report it. Your report is anonymous.\n")
		helpText.WriteString(fmt.Sprintf(" Rules: %s. Details are required for 'other'.\n\n", ruleList()))

		if senderID == cfg.AdminTelegramID {
			logCtx.Info("User identified as Admin, sending admin help.")
			helpText.WriteString("Admin commands:\n\n")
			helpText.WriteString("`/setup <DestinationChatID> [Mention]`\n - Route this group's reports.\n\n")
			helpText.WriteString("`/reports [status|all]`\n - List the most recent reports.\n\n")
			helpText.WriteString("`/report_status <ID> <status>`\n - Move a report along its lifecycle.\n\n")
			helpText.WriteString("`/report_force <ID> <status>`\n - Set any status.\n\n")
			helpText.WriteString("`/report_stats`, `/leaderboard`, `/remind_now`\n")
		}
		return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}
