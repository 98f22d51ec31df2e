package telegram

import (
	"fmt"
	"strings"
	"time"

	"guardian_bot/internal/app"
	"guardian_bot/internal/domain/report"
)

// FormatReportList renders one line per report, newest first as given.
func FormatReportList(reports []*report.Report, filter string) string {
	if len(reports) == 0 {
		return "No reports found."
	}
	if filter == "" {
		filter = "all"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "--- Reports (%s) ---\n", filter)
	for _, r := range reports {
		fmt.Fprintf(&b, "#%d [%s] %s, %s urgency, user %d, %s\n",
			r.ID, r.Status, r.Rule, r.Urgency, r.TargetUserID, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return b.String()
}

// FormatReportStats lists every status, zero when the store returned none.
func FormatReportStats(stats map[report.Status]int) string {
	var b strings.Builder
	total := 0
	b.WriteString("--- Report stats ---\n")
	for _, s := range report.Statuses() {
		fmt.Fprintf(&b, "%s: %d\n", s, stats[s])
		total += stats[s]
	}
	fmt.Fprintf(&b, "total: %d", total)
	return b.String()
}

func FormatLeaderboard(lb *app.Leaderboard) string {
	if len(lb.Top) == 0 {
		return "No accepted reports yet."
	}
	var b strings.Builder
	b.WriteString("--- Top reporters ---\n")
	for i, sc := range lb.Top {
		fmt.Fprintf(&b, "%d. user %d: %d\n", i+1, sc.UserID, sc.Count)
	}
	fmt.Fprintf(&b, "Total accepted reports: %d", lb.Total)
	return b.String()
}

// FormatRemaining renders a cooldown wait rounded up to whole seconds.
func FormatRemaining(d time.Duration) string {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	return fmt.Sprintf("%dm%02ds", secs/60, secs%60)
}
