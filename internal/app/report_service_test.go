package app_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"guardian_bot/internal/app"
	"guardian_bot/internal/domain/cooldown"
	"guardian_bot/internal/domain/guild"
	"guardian_bot/internal/domain/report"
	domainTelegram "guardian_bot/internal/domain/telegram"
	idb "guardian_bot/internal/infra/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const window = 300 * time.Second

type reportFixture struct {
	reports  *MockReportRepository
	guard    *MockGuard
	guilds   *MockGuildRepository
	notifier *MockNotifier
	svc      *app.ReportService
}

func newReportFixture() *reportFixture {
	f := &reportFixture{
		reports:  new(MockReportRepository),
		guard:    new(MockGuard),
		guilds:   new(MockGuildRepository),
		notifier: new(MockNotifier),
	}
	f.svc = app.NewReportService(f.reports, f.guard, f.guilds, f.notifier, window, 20, testLogger())
	return f
}

func validInput() app.SubmitReportInput {
	return app.SubmitReportInput{
		GroupID:      -100,
		SubmitterID:  11,
		TargetUserID: 22,
		Rule:         report.RuleSpam,
		Urgency:      report.UrgencyHigh,
	}
}

func storeAs(id int64) func(mock.Arguments) {
	return func(args mock.Arguments) {
		r := args.Get(1).(*report.Report)
		r.ID = id
		r.Status = report.StatusUnhandled
	}
}

func TestSubmitReport_StoresAndPostsSummary(t *testing.T) {
	// Arrange
	f := newReportFixture()
	ctx := context.Background()
	f.guard.On("TryAcquire", ctx, int64(11), window).Return(cooldown.Allow(), nil)
	f.reports.On("Create", ctx, mock.AnythingOfType("*report.Report")).Run(storeAs(7)).Return(nil)
	f.guilds.On("Get", ctx, int64(-100)).Return(&guild.Config{
		GroupID:           -100,
		DestinationChatID: -200,
		EscalationRole:    sql.NullString{String: "@oncall", Valid: true},
	}, nil)
	f.notifier.On("SendMessage", int64(-200), mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "Report #7") && strings.Contains(text, "@oncall")
	}), mock.Anything).Return(domainTelegram.SentMessage{ChatID: -200, MessageID: 55}, nil)
	f.reports.On("AttachNotificationRef", ctx, int64(7), "-200:55").Return(nil)

	// Act
	out, err := f.svc.SubmitReport(ctx, validInput())

	// Assert
	require.NoError(t, err)
	assert.True(t, out.Decision.Allowed)
	assert.True(t, out.Posted)
	assert.Equal(t, int64(7), out.Report.ID)
	assert.Equal(t, report.StatusUnhandled, out.Report.Status)
	f.reports.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestSubmitReport_CooldownDenialStoresNothing(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	f.guard.On("TryAcquire", ctx, int64(11), window).Return(cooldown.Deny(200*time.Second), nil)

	out, err := f.svc.SubmitReport(ctx, validInput())

	require.NoError(t, err)
	assert.False(t, out.Decision.Allowed)
	assert.Equal(t, 200*time.Second, out.Decision.Remaining)
	assert.Nil(t, out.Report)
	f.reports.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmitReport_ValidationRunsBeforeCooldown(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*app.SubmitReportInput)
		field string
	}{
		{"other needs details", func(in *app.SubmitReportInput) { in.Rule = report.RuleOther; in.Details = "  " }, "details"},
		{"unknown rule", func(in *app.SubmitReportInput) { in.Rule = "rudeness" }, "rule"},
		{"unknown urgency", func(in *app.SubmitReportInput) { in.Urgency = "critical" }, "urgency"},
		{"missing target", func(in *app.SubmitReportInput) { in.TargetUserID = 0 }, "target"},
		{"evidence not a link", func(in *app.SubmitReportInput) { in.EvidenceLink = "see chat" }, "evidence"},
		{"details too long", func(in *app.SubmitReportInput) { in.Details = strings.Repeat("x", 1001) }, "details"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReportFixture()
			in := validInput()
			tt.edit(&in)

			_, err := f.svc.SubmitReport(context.Background(), in)

			var ve *app.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			f.guard.AssertNotCalled(t, "TryAcquire", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSubmitReport_OtherWithDetailsIsAccepted(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	in := validInput()
	in.Rule = report.RuleOther
	in.Details = "  keeps sending voice notes at 3am "
	in.EvidenceLink = "https://t.me/c/100/5"
	in.Urgency = report.UrgencyLow

	f.guard.On("TryAcquire", ctx, int64(11), window).Return(cooldown.Allow(), nil)
	f.reports.On("Create", ctx, mock.MatchedBy(func(r *report.Report) bool {
		return r.Details.String == "keeps sending voice notes at 3am" && r.EvidenceLink.Valid
	})).Run(storeAs(8)).Return(nil)
	f.guilds.On("Get", ctx, int64(-100)).Return(nil, idb.ErrGroupConfigNotFound)

	out, err := f.svc.SubmitReport(ctx, in)

	require.NoError(t, err)
	assert.Equal(t, int64(8), out.Report.ID)
	assert.False(t, out.Posted, "no destination configured")
	f.notifier.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitReport_StoreFailureIsReturned(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	f.guard.On("TryAcquire", ctx, int64(11), window).Return(cooldown.Decision{}, idb.ErrStoreUnavailable)

	_, err := f.svc.SubmitReport(ctx, validInput())
	assert.ErrorIs(t, err, idb.ErrStoreUnavailable)
}

func TestSubmitReport_SendFailureKeepsReport(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	f.guard.On("TryAcquire", ctx, int64(11), window).Return(cooldown.Allow(), nil)
	f.reports.On("Create", ctx, mock.Anything).Run(storeAs(9)).Return(nil)
	f.guilds.On("Get", ctx, int64(-100)).Return(&guild.Config{GroupID: -100, DestinationChatID: -200}, nil)
	f.notifier.On("SendMessage", int64(-200), mock.Anything, mock.Anything).
		Return(domainTelegram.SentMessage{}, errors.New("bot was kicked"))

	out, err := f.svc.SubmitReport(ctx, validInput())

	require.NoError(t, err)
	assert.Equal(t, int64(9), out.Report.ID)
	assert.False(t, out.Posted)
	f.reports.AssertNotCalled(t, "AttachNotificationRef", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangeStatus(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	f.reports.On("Advance", ctx, int64(1), report.StatusResolved).Return(report.StatusInProgress, nil)
	f.reports.On("Advance", ctx, int64(2), report.StatusUnhandled).
		Return(report.StatusResolved, &report.TransitionError{From: report.StatusResolved, To: report.StatusUnhandled})
	f.reports.On("Advance", ctx, int64(3), report.StatusResolved).Return(report.Status(""), idb.ErrReportNotFound)

	prev, err := f.svc.ChangeStatus(ctx, 1, report.StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, report.StatusInProgress, prev)

	_, err = f.svc.ChangeStatus(ctx, 2, report.StatusUnhandled)
	assert.ErrorIs(t, err, report.ErrIllegalTransition)

	_, err = f.svc.ChangeStatus(ctx, 3, report.StatusResolved)
	assert.True(t, app.IsNotFound(err))

	_, err = f.svc.ChangeStatus(ctx, 1, "archived")
	var ve *app.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestForceStatus(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	f.reports.On("ForceStatus", ctx, int64(1), report.StatusUnhandled).Return(nil)

	require.NoError(t, f.svc.ForceStatus(ctx, 1, report.StatusUnhandled))
	assert.Error(t, f.svc.ForceStatus(ctx, 1, "archived"))
	f.reports.AssertNumberOfCalls(t, "ForceStatus", 1)
}

func TestQueryReports_Filter(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	inProgress := report.StatusInProgress
	f.reports.On("List", ctx, (*report.Status)(nil), 20).Return([]*report.Report{{ID: 2}, {ID: 1}}, nil)
	f.reports.On("List", ctx, &inProgress, 20).Return([]*report.Report{{ID: 3, Status: inProgress}}, nil)

	all, err := f.svc.QueryReports(ctx, "all")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	all, err = f.svc.QueryReports(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	some, err := f.svc.QueryReports(ctx, " In_Progress ")
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, inProgress, some[0].Status)

	_, err = f.svc.QueryReports(ctx, "pending")
	var ve *app.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestFormatReportSummary(t *testing.T) {
	rep := &report.Report{
		ID:           4,
		TargetUserID: 22,
		Rule:         report.RuleOther,
		Details:      sql.NullString{String: "<script>", Valid: true},
		Urgency:      report.UrgencyMedium,
		Status:       report.StatusUnhandled,
	}
	text := app.FormatReportSummary(rep, sql.NullString{String: "@oncall", Valid: true})

	assert.Contains(t, text, "Report #4")
	assert.Contains(t, text, "&lt;script&gt;")
	assert.NotContains(t, text, "@oncall", "escalation is only for high urgency")
}
