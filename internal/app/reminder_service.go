// internal/app/reminder_service.go
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"guardian_bot/internal/domain/cooldown"
	"guardian_bot/internal/domain/guild"
	"guardian_bot/internal/domain/reminder"
	domainTelegram "guardian_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// ReminderLockKey is shared by the scheduled and the manual reminder so that
// only one instance posts at a time.
const ReminderLockKey = "introduction_reminder"

// ReminderResult describes one reminder run.
type ReminderResult struct {
	Skipped  bool
	Reason   string  // Set when Skipped
	Notified []int64 // Members mentioned, empty when everyone is introduced
}

// ReminderService posts the introduction reminder to the community chat.
type ReminderService struct {
	locker      reminder.Locker
	log         reminder.Log
	members     guild.MemberRepository
	stats       cooldown.Stats
	notifier    domainTelegram.Client
	chatID      int64
	location    *time.Location
	maxMentions int
	logger      *logrus.Entry
}

func NewReminderService(
	locker reminder.Locker,
	log reminder.Log,
	members guild.MemberRepository,
	stats cooldown.Stats,
	notifier domainTelegram.Client,
	chatID int64,
	location *time.Location,
	maxMentions int,
	logger *logrus.Entry,
) *ReminderService {
	return &ReminderService{
		locker:      locker,
		log:         log,
		members:     members,
		stats:       stats,
		notifier:    notifier,
		chatID:      chatID,
		location:    location,
		maxMentions: maxMentions,
		logger:      logger,
	}
}

// RunDaily is the scheduled run: at most one reminder per calendar day in the
// reminder timezone, across all instances.
func (s *ReminderService) RunDaily(ctx context.Context, now time.Time) (*ReminderResult, error) {
	day := now.In(s.location)
	logCtx := s.logger.WithField("date", day.Format("2006-01-02"))

	lock, acquired, err := s.locker.TryLock(ctx, ReminderLockKey)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire reminder lock: %w", err)
	}
	if !acquired {
		logCtx.Info("Another instance is running the reminder, skipping")
		return &ReminderResult{Skipped: true, Reason: "locked"}, nil
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			logCtx.WithError(err).Error("Failed to release reminder lock")
		}
	}()

	sent, err := s.log.WasSent(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to check reminder log: %w", err)
	}
	if sent {
		logCtx.Info("Reminder already sent today")
		return &ReminderResult{Skipped: true, Reason: "already sent"}, nil
	}

	notified, err := s.remind(ctx)
	if err != nil {
		return nil, err
	}

	inserted, err := s.log.Record(ctx, day, notified)
	if err != nil {
		return nil, fmt.Errorf("failed to log reminder: %w", err)
	}
	if !inserted {
		logCtx.Warn("Reminder log already had an entry for today")
	}
	logCtx.WithField("notified", len(notified)).Info("Daily reminder completed")
	return &ReminderResult{Notified: notified}, nil
}

// RunNow is the manual trigger. It shares the lock with RunDaily but neither
// consults nor writes the daily log.
func (s *ReminderService) RunNow(ctx context.Context) (*ReminderResult, error) {
	lock, acquired, err := s.locker.TryLock(ctx, ReminderLockKey)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire reminder lock: %w", err)
	}
	if !acquired {
		return &ReminderResult{Skipped: true, Reason: "locked"}, nil
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			s.logger.WithError(err).Error("Failed to release reminder lock")
		}
	}()

	notified, err := s.remind(ctx)
	if err != nil {
		return nil, err
	}
	return &ReminderResult{Notified: notified}, nil
}

func (s *ReminderService) remind(ctx context.Context) ([]int64, error) {
	memberIDs, err := s.members.ListIDs(ctx, s.chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	missing, err := s.stats.MembersWithoutDirectoryEntry(ctx, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get members without introduction: %w", err)
	}
	if len(missing) == 0 {
		s.logger.Info("All known members have posted an introduction")
		return []int64{}, nil
	}

	text := FormatReminder(missing, s.maxMentions)
	if _, err := s.notifier.SendMessage(s.chatID, text, &telebot.SendOptions{ParseMode: telebot.ModeHTML}); err != nil {
		return nil, fmt.Errorf("failed to send reminder message: %w", err)
	}
	s.logger.WithField("members", len(missing)).Info("Reminder message sent")
	return missing, nil
}

// FormatReminder mentions at most maxMentions members and counts the rest.
func FormatReminder(missing []int64, maxMentions int) string {
	shown := missing
	if len(shown) > maxMentions {
		shown = shown[:maxMentions]
	}
	mentions := make([]string, 0, len(shown))
	for i, id := range shown {
		mentions = append(mentions, fmt.Sprintf("<a href=\"tg://user?id=%d\">member %d</a>", id, i+1))
	}

	var b strings.Builder
	b.WriteString("🌟 <b>Introduction reminder</b> 🌟\n\n")
	b.WriteString(strings.Join(mentions, ", "))
	if rest := len(missing) - len(shown); rest > 0 {
		fmt.Fprintf(&b, " and %d more", rest)
	}
	b.WriteString("\n\nWe would love to hear about you! Please post a short introduction in the introductions chat.")
	return b.String()
}
