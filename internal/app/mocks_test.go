package app_test

import (
	"context"
	"io"
	"time"

	"guardian_bot/internal/domain/cooldown"
	"guardian_bot/internal/domain/directory"
	"guardian_bot/internal/domain/guild"
	"guardian_bot/internal/domain/reminder"
	"guardian_bot/internal/domain/report"
	domainTelegram "guardian_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"gopkg.in/telebot.v3"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Create(ctx context.Context, r *report.Report) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReportRepository) AttachNotificationRef(ctx context.Context, reportID int64, ref string) error {
	args := m.Called(ctx, reportID, ref)
	return args.Error(0)
}

func (m *MockReportRepository) Advance(ctx context.Context, reportID int64, next report.Status) (report.Status, error) {
	args := m.Called(ctx, reportID, next)
	return args.Get(0).(report.Status), args.Error(1)
}

func (m *MockReportRepository) ForceStatus(ctx context.Context, reportID int64, status report.Status) error {
	args := m.Called(ctx, reportID, status)
	return args.Error(0)
}

func (m *MockReportRepository) Get(ctx context.Context, reportID int64) (*report.Report, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.Report), args.Error(1)
}

func (m *MockReportRepository) List(ctx context.Context, status *report.Status, limit int) ([]*report.Report, error) {
	args := m.Called(ctx, status, limit)
	return args.Get(0).([]*report.Report), args.Error(1)
}

func (m *MockReportRepository) Stats(ctx context.Context) (map[report.Status]int, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[report.Status]int), args.Error(1)
}

type MockGuard struct {
	mock.Mock
}

func (m *MockGuard) TryAcquire(ctx context.Context, submitterID int64, window time.Duration) (cooldown.Decision, error) {
	args := m.Called(ctx, submitterID, window)
	return args.Get(0).(cooldown.Decision), args.Error(1)
}

type MockGuildRepository struct {
	mock.Mock
}

func (m *MockGuildRepository) Upsert(ctx context.Context, cfg *guild.Config) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *MockGuildRepository) Get(ctx context.Context, groupID int64) (*guild.Config, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*guild.Config), args.Error(1)
}

type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) Touch(ctx context.Context, groupID, userID int64) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func (m *MockMemberRepository) ListIDs(ctx context.Context, groupID int64) ([]int64, error) {
	args := m.Called(ctx, groupID)
	return args.Get(0).([]int64), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendMessage(chatID int64, text string, options *telebot.SendOptions) (domainTelegram.SentMessage, error) {
	args := m.Called(chatID, text, options)
	return args.Get(0).(domainTelegram.SentMessage), args.Error(1)
}

type MockDirectoryRepository struct {
	mock.Mock
}

func (m *MockDirectoryRepository) Upsert(ctx context.Context, userID int64, ref directory.Reference) error {
	args := m.Called(ctx, userID, ref)
	return args.Error(0)
}

func (m *MockDirectoryRepository) Lookup(ctx context.Context, userID int64) (*directory.Entry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*directory.Entry), args.Error(1)
}

func (m *MockDirectoryRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockDirectoryRepository) ListRecent(ctx context.Context, limit int) ([]*directory.Entry, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*directory.Entry), args.Error(1)
}

type MockStats struct {
	mock.Mock
}

func (m *MockStats) TopSubmitters(ctx context.Context, limit int) ([]cooldown.SubmitterCount, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]cooldown.SubmitterCount), args.Error(1)
}

func (m *MockStats) TotalSubmissions(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockStats) MembersWithoutDirectoryEntry(ctx context.Context, memberIDs []int64) ([]int64, error) {
	args := m.Called(ctx, memberIDs)
	return args.Get(0).([]int64), args.Error(1)
}

type MockSettings struct {
	mock.Mock
}

func (m *MockSettings) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockSettings) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockSettings) IsScanCompleted(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettings) MarkScanCompleted(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) TryLock(ctx context.Context, key string) (reminder.Lock, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(reminder.Lock), args.Bool(1), args.Error(2)
}

type MockLock struct {
	mock.Mock
}

func (m *MockLock) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockReminderLog struct {
	mock.Mock
}

func (m *MockReminderLog) WasSent(ctx context.Context, date time.Time) (bool, error) {
	args := m.Called(ctx, date)
	return args.Bool(0), args.Error(1)
}

func (m *MockReminderLog) Record(ctx context.Context, date time.Time, notified []int64) (bool, error) {
	args := m.Called(ctx, date, notified)
	return args.Bool(0), args.Error(1)
}

func (m *MockReminderLog) LastDate(ctx context.Context) (time.Time, bool, error) {
	args := m.Called(ctx)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}
