package telegram

import (
	"testing"
	"time"

	"guardian_bot/internal/app"
	"guardian_bot/internal/domain/cooldown"
	"guardian_bot/internal/domain/report"

	"github.com/stretchr/testify/assert"
)

func TestFormatReportStats_FillsMissingStatuses(t *testing.T) {
	text := FormatReportStats(map[report.Status]int{report.StatusUnhandled: 2, report.StatusResolved: 1})

	assert.Contains(t, text, "unhandled: 2")
	assert.Contains(t, text, "in_progress: 0")
	assert.Contains(t, text, "rejected: 0")
	assert.Contains(t, text, "total: 3")
}

func TestFormatReportList(t *testing.T) {
	assert.Equal(t, "No reports found.", FormatReportList(nil, "all"))

	text := FormatReportList([]*report.Report{
		{ID: 9, Status: report.StatusUnhandled, Rule: report.RuleSpam, Urgency: report.UrgencyLow, TargetUserID: 3},
	}, "")
	assert.Contains(t, text, "(all)")
	assert.Contains(t, text, "#9 [unhandled] spam")
}

func TestFormatLeaderboard(t *testing.T) {
	assert.Equal(t, "No accepted reports yet.", FormatLeaderboard(&app.Leaderboard{}))

	text := FormatLeaderboard(&app.Leaderboard{Top: []cooldown.SubmitterCount{{UserID: 4, Count: 6}}, Total: 6})
	assert.Contains(t, text, "1. user 4: 6")
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "3m20s", FormatRemaining(200*time.Second))
	assert.Equal(t, "45s", FormatRemaining(44*time.Second+time.Millisecond))
	assert.Equal(t, "1m00s", FormatRemaining(time.Minute))
}
