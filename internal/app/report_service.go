// internal/app/report_service.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"guardian_bot/internal/domain/cooldown"
	"guardian_bot/internal/domain/guild"
	"guardian_bot/internal/domain/report"
	domainTelegram "guardian_bot/internal/domain/telegram"
	idb "guardian_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const maxDetailsLength = 1000

// ValidationError rejects caller input before it reaches the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SubmitReportInput is what a member provides when filing a report.
type SubmitReportInput struct {
	GroupID      int64
	SubmitterID  int64 // Only used for the cooldown, never stored with the report
	TargetUserID int64
	Rule         report.Rule
	Details      string
	EvidenceLink string
	Urgency      report.Urgency
}

// SubmitOutcome is the result of a submission that passed validation. Report is
// nil when the cooldown denied it.
type SubmitOutcome struct {
	Decision cooldown.Decision
	Report   *report.Report
	Posted   bool // Summary delivered to the group's destination chat
}

// ReportService is the boundary for filing and handling reports.
type ReportService struct {
	reports   report.Repository
	guard     cooldown.Guard
	guilds    guild.ConfigRepository
	notifier  domainTelegram.Client
	window    time.Duration
	listLimit int
	logger    *logrus.Entry
}

func NewReportService(
	reports report.Repository,
	guard cooldown.Guard,
	guilds guild.ConfigRepository,
	notifier domainTelegram.Client,
	window time.Duration,
	listLimit int,
	logger *logrus.Entry,
) *ReportService {
	return &ReportService{
		reports:   reports,
		guard:     guard,
		guilds:    guilds,
		notifier:  notifier,
		window:    window,
		listLimit: listLimit,
		logger:    logger,
	}
}

func validateSubmission(in SubmitReportInput) error {
	if in.TargetUserID == 0 {
		return &ValidationError{Field: "target", Reason: "a reported user is required"}
	}
	if !in.Rule.Valid() {
		return &ValidationError{Field: "rule", Reason: fmt.Sprintf("unknown rule %q", in.Rule)}
	}
	if !in.Urgency.Valid() {
		return &ValidationError{Field: "urgency", Reason: fmt.Sprintf("unknown urgency %q", in.Urgency)}
	}
	details := strings.TrimSpace(in.Details)
	if in.Rule == report.RuleOther && details == "" {
		return &ValidationError{Field: "details", Reason: "required when the rule is \"other\""}
	}
	if utf8.RuneCountInString(details) > maxDetailsLength {
		return &ValidationError{Field: "details", Reason: fmt.Sprintf("longer than %d characters", maxDetailsLength)}
	}
	if link := strings.TrimSpace(in.EvidenceLink); link != "" {
		u, err := url.ParseRequestURI(link)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ValidationError{Field: "evidence", Reason: "must be an http(s) link"}
		}
	}
	return nil
}

func optionalString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

// SubmitReport validates the input, passes the submitter through the cooldown
// and stores the report. Posting the summary is best effort: a stored report is
// never rolled back because the destination chat could not be reached.
func (s *ReportService) SubmitReport(ctx context.Context, in SubmitReportInput) (*SubmitOutcome, error) {
	logCtx := s.logger.WithFields(logrus.Fields{"group_id": in.GroupID, "rule": in.Rule, "urgency": in.Urgency})

	if err := validateSubmission(in); err != nil {
		logCtx.WithError(err).Info("Report rejected by validation")
		return nil, err
	}

	decision, err := s.guard.TryAcquire(ctx, in.SubmitterID, s.window)
	if err != nil {
		return nil, fmt.Errorf("failed to check report cooldown: %w", err)
	}
	if !decision.Allowed {
		logCtx.WithField("remaining", decision.Remaining.String()).Info("Report denied by cooldown")
		return &SubmitOutcome{Decision: decision}, nil
	}

	rep := &report.Report{
		GroupID:      in.GroupID,
		TargetUserID: in.TargetUserID,
		Rule:         in.Rule,
		Details:      optionalString(in.Details),
		EvidenceLink: optionalString(in.EvidenceLink),
		Urgency:      in.Urgency,
	}
	if err := s.reports.Create(ctx, rep); err != nil {
		return nil, fmt.Errorf("failed to store report: %w", err)
	}
	logCtx = logCtx.WithField("report_id", rep.ID)
	logCtx.Info("Report stored")

	outcome := &SubmitOutcome{Decision: decision, Report: rep}
	if err := s.postSummary(ctx, rep); err != nil {
		logCtx.WithError(err).Warn("Report stored but summary was not posted")
		return outcome, nil
	}
	outcome.Posted = true
	return outcome, nil
}

func (s *ReportService) postSummary(ctx context.Context, rep *report.Report) error {
	cfg, err := s.guilds.Get(ctx, rep.GroupID)
	if err != nil {
		return fmt.Errorf("failed to get group config: %w", err)
	}
	msg, err := s.notifier.SendMessage(cfg.DestinationChatID, FormatReportSummary(rep, cfg.EscalationRole), &telebot.SendOptions{ParseMode: telebot.ModeHTML})
	if err != nil {
		return fmt.Errorf("failed to send report summary: %w", err)
	}
	return s.RecordNotificationRef(ctx, rep.ID, msg.Ref())
}

// RecordNotificationRef remembers where the report was posted. Last write wins.
func (s *ReportService) RecordNotificationRef(ctx context.Context, reportID int64, ref string) error {
	if err := s.reports.AttachNotificationRef(ctx, reportID, ref); err != nil {
		return fmt.Errorf("failed to record notification reference for report %d: %w", reportID, err)
	}
	return nil
}

// ChangeStatus advances the report along its lifecycle and returns the status it
// left. Illegal moves fail with a *report.TransitionError.
func (s *ReportService) ChangeStatus(ctx context.Context, reportID int64, next report.Status) (report.Status, error) {
	if !next.Valid() {
		return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", next)}
	}
	prev, err := s.reports.Advance(ctx, reportID, next)
	if err != nil {
		return prev, err
	}
	s.logger.WithFields(logrus.Fields{"report_id": reportID, "from": prev, "to": next}).Info("Report status changed")
	return prev, nil
}

// ForceStatus overwrites the status regardless of the lifecycle.
func (s *ReportService) ForceStatus(ctx context.Context, reportID int64, status report.Status) error {
	if !status.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}
	if err := s.reports.ForceStatus(ctx, reportID, status); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"report_id": reportID, "to": status}).Warn("Report status forced")
	return nil
}

func (s *ReportService) GetReport(ctx context.Context, reportID int64) (*report.Report, error) {
	return s.reports.Get(ctx, reportID)
}

// QueryReports lists the most recent reports. An empty filter or "all" lists
// every status.
func (s *ReportService) QueryReports(ctx context.Context, filter string) ([]*report.Report, error) {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" || filter == "all" {
		return s.reports.List(ctx, nil, s.listLimit)
	}
	status := report.Status(filter)
	if !status.Valid() {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", filter)}
	}
	return s.reports.List(ctx, &status, s.listLimit)
}

// ReportStats counts reports per status. Absent statuses have no reports.
func (s *ReportService) ReportStats(ctx context.Context) (map[report.Status]int, error) {
	return s.reports.Stats(ctx)
}

// CheckCooldown runs the cooldown gate on its own. An allowed decision records
// the submission.
func (s *ReportService) CheckCooldown(ctx context.Context, userID int64, window time.Duration) (cooldown.Decision, error) {
	return s.guard.TryAcquire(ctx, userID, window)
}

// IsNotFound reports whether err is one of the store's lookup misses.
func IsNotFound(err error) bool {
	return errors.Is(err, idb.ErrReportNotFound) ||
		errors.Is(err, idb.ErrDirectoryEntryNotFound) ||
		errors.Is(err, idb.ErrGroupConfigNotFound) ||
		errors.Is(err, idb.ErrSettingNotFound)
}

var urgencyLabels = map[report.Urgency]string{
	report.UrgencyLow:    "🟢 low",
	report.UrgencyMedium: "🟡 medium",
	report.UrgencyHigh:   "🔴 high",
}

// FormatReportSummary renders the moderator-facing message in HTML.
func FormatReportSummary(rep *report.Report, escalation sql.NullString) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Report #%d</b>\n", rep.ID)
	fmt.Fprintf(&b, "User: <a href=\"tg://user?id=%d\">%d</a>\n", rep.TargetUserID, rep.TargetUserID)
	fmt.Fprintf(&b, "Rule: %s\n", html.EscapeString(string(rep.Rule)))
	fmt.Fprintf(&b, "Urgency: %s\n", urgencyLabels[rep.Urgency])
	if rep.Details.Valid {
		fmt.Fprintf(&b, "Details: %s\n", html.EscapeString(rep.Details.String))
	}
	if rep.EvidenceLink.Valid {
		fmt.Fprintf(&b, "Evidence: %s\n", html.EscapeString(rep.EvidenceLink.String))
	}
	fmt.Fprintf(&b, "Status: %s", rep.Status)
	if rep.Urgency == report.UrgencyHigh && escalation.Valid && escalation.String != "" {
		fmt.Fprintf(&b, "\n\n%s", html.EscapeString(escalation.String))
	}
	return b.String()
}
