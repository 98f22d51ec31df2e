// internal/infra/telegram/report_handlers.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"guardian_bot/internal/app"
	"guardian_bot/internal/domain/report"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func ruleList() string {
	rules := report.Rules()
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

// RegisterReportHandlers wires /report. A member replies to the offending
// message with "/report <rule> [urgency] [details]". The command message is
// deleted and the outcome is sent privately so the group never sees who reported.
func RegisterReportHandlers(ctx context.Context, b *telebot.Bot, reportService *app.ReportService, baseLogger *logrus.Entry) {
	b.Handle("/report", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler": "/report",
			"chat_id": c.Chat().ID,
		})

		msg := c.Message()
		if c.Chat().Type == telebot.ChatPrivate {
			return c.Send("Reply to the offending message in the group with /report <rule> [low|medium|high] [details].")
		}
		// Removing the command keeps the submission anonymous.
		if err := c.Delete(); err != nil {
			handlerLogger.WithError(err).Warn("Could not delete /report command message")
		}

		reply := func(text string) error {
			if _, err := b.Send(c.Sender(), text); err != nil {
				handlerLogger.WithError(err).Warn("Could not reach reporter privately")
			}
			return nil
		}

		if msg.ReplyTo == nil || msg.ReplyTo.Sender == nil {
			return reply("To report someone, reply to their message with /report <rule> [low|medium|high] [details].")
		}
		args, err := ParseReportArgs(c.Args())
		if err != nil {
			return reply(fmt.Sprintf("Error: %s. Rules: %s.", err, ruleList()))
		}

		in := app.SubmitReportInput{
			GroupID:      c.Chat().ID,
			SubmitterID:  c.Sender().ID,
			TargetUserID: msg.ReplyTo.Sender.ID,
			Rule:         args.Rule,
			Details:      args.Details,
			EvidenceLink: MessageLink(c.Chat().ID, c.Chat().Username, msg.ReplyTo.ID),
			Urgency:      args.Urgency,
		}
		outcome, err := reportService.SubmitReport(ctx, in)
		if err != nil {
			var ve *app.ValidationError
			if errors.As(err, &ve) {
				if ve.Field == "rule" {
					return reply(fmt.Sprintf("Error: %s. Rules: %s.", ve.Reason, ruleList()))
				}
				return reply(fmt.Sprintf("Error: %s.", ve.Error()))
			}
			handlerLogger.WithError(err).Error("Failed to submit report")
			return reply("Your report could not be saved right now. Please try again later.")
		}

		if !outcome.Decision.Allowed {
			return reply(fmt.Sprintf("You can send another report in %s.", FormatRemaining(outcome.Decision.Remaining)))
		}
		handlerLogger.WithField("report_id", outcome.Report.ID).Info("Report submitted")
		return reply(fmt.Sprintf("Thank you. Report #%d was sent to the moderators.", outcome.Report.ID))
	})
}
