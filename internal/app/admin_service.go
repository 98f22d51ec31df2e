package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"guardian_bot/internal/domain/guild"
	"guardian_bot/internal/domain/report"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")

const leaderboardSize = 10

// AdminService gates the moderator commands behind the configured admin id.
type AdminService struct {
	guilds          guild.ConfigRepository
	reports         *ReportService
	directory       *DirectoryService
	reminders       *ReminderService
	adminTelegramID int64
}

func NewAdminService(gr guild.ConfigRepository, rs *ReportService, ds *DirectoryService, rm *ReminderService, adminID int64) *AdminService {
	return &AdminService{
		guilds:          gr,
		reports:         rs,
		directory:       ds,
		reminders:       rm,
		adminTelegramID: adminID,
	}
}

func (s *AdminService) authorize(performingAdminID int64) error {
	if performingAdminID != s.adminTelegramID {
		return ErrAdminNotAuthorized
	}
	return nil
}

// SetupGroup routes the group's reports to destinationChatID. escalation, when
// non-empty, is mentioned on high urgency reports.
func (s *AdminService) SetupGroup(ctx context.Context, performingAdminID, groupID, destinationChatID int64, escalation string) (*guild.Config, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	if destinationChatID == 0 {
		return nil, &ValidationError{Field: "destination", Reason: "a destination chat id is required"}
	}
	escalation = strings.TrimSpace(escalation)
	cfg := &guild.Config{
		GroupID:           groupID,
		DestinationChatID: destinationChatID,
		EscalationRole:    sql.NullString{String: escalation, Valid: escalation != ""},
	}
	if err := s.guilds.Upsert(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to save group config: %w", err)
	}
	return cfg, nil
}

func (s *AdminService) AdvanceReport(ctx context.Context, performingAdminID, reportID int64, next report.Status) (report.Status, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return "", err
	}
	return s.reports.ChangeStatus(ctx, reportID, next)
}

func (s *AdminService) ForceReport(ctx context.Context, performingAdminID, reportID int64, status report.Status) error {
	if err := s.authorize(performingAdminID); err != nil {
		return err
	}
	return s.reports.ForceStatus(ctx, reportID, status)
}

func (s *AdminService) ListReports(ctx context.Context, performingAdminID int64, filter string) ([]*report.Report, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.reports.QueryReports(ctx, filter)
}

func (s *AdminService) ReportStats(ctx context.Context, performingAdminID int64) (map[report.Status]int, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.reports.ReportStats(ctx)
}

func (s *AdminService) RemindNow(ctx context.Context, performingAdminID int64) (*ReminderResult, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.reminders.RunNow(ctx)
}

func (s *AdminService) Leaderboard(ctx context.Context, performingAdminID int64) (*Leaderboard, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.directory.Leaderboard(ctx, leaderboardSize)
}
