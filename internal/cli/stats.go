package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"guardian_bot/internal/app"
	"guardian_bot/internal/domain/report"

	"github.com/spf13/cobra"
)

// StatsSource is what the stats command reads.
type StatsSource interface {
	Stats(ctx context.Context) (map[report.Status]int, error)
}

type DirectorySource interface {
	Summary(ctx context.Context, recent int) (*app.DirectorySummary, error)
}

type SubmissionSource interface {
	TotalSubmissions(ctx context.Context) (int, error)
}

type ReminderSource interface {
	LastDate(ctx context.Context) (time.Time, bool, error)
}

// StatsOptions are the flags of the stats command.
type StatsOptions struct {
	Recent int
}

type statsSources struct {
	reports     StatsSource
	directory   DirectorySource
	submissions SubmissionSource
	reminders   ReminderSource
}

// RecentEntry is one of the latest introductions.
type RecentEntry struct {
	UserID    int64     `json:"user_id"`
	Location  string    `json:"location"`
	Pointer   string    `json:"pointer,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatsResult is the stats command output.
type StatsResult struct {
	Reports          map[report.Status]int `json:"reports"`
	DirectoryEntries int                   `json:"directory_entries"`
	RecentEntries    []RecentEntry         `json:"recent_entries"`
	TotalSubmissions int                   `json:"total_submissions"`
	LastReminder     string                `json:"last_reminder,omitempty"` // YYYY-MM-DD
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print report counts per status, the directory size and the latest introductions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Recent < 0 {
				return WrapExitError(ExitCommandError, "invalid --recent", fmt.Errorf("must not be negative, got %d", opts.Recent))
			}
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()
			return runStats(cmd.Context(), cmd.OutOrStdout(), rootOpts.Format, opts.Recent, statsSources{
				reports:     rt.reports,
				directory:   rt.directoryService,
				submissions: rt.stats,
				reminders:   rt.reminders,
			})
		},
	}

	cmd.Flags().IntVar(&opts.Recent, "recent", 5, "number of latest introductions to list")
	return cmd
}

func runStats(ctx context.Context, w io.Writer, format string, recent int, src statsSources) error {
	byStatus, err := src.reports.Stats(ctx)
	if err != nil {
		return storeExitError("could not read report stats", err)
	}
	res := StatsResult{Reports: make(map[report.Status]int), RecentEntries: []RecentEntry{}}
	for _, s := range report.Statuses() {
		res.Reports[s] = byStatus[s]
	}

	summary, err := src.directory.Summary(ctx, recent)
	if err != nil {
		return storeExitError("could not read the directory", err)
	}
	res.DirectoryEntries = summary.Entries
	for _, e := range summary.Recent {
		res.RecentEntries = append(res.RecentEntries, RecentEntry{
			UserID:    e.UserID,
			Location:  e.Ref.Location,
			Pointer:   e.Ref.Pointer,
			UpdatedAt: e.UpdatedAt,
		})
	}

	if res.TotalSubmissions, err = src.submissions.TotalSubmissions(ctx); err != nil {
		return storeExitError("could not count submissions", err)
	}
	last, ok, err := src.reminders.LastDate(ctx)
	if err != nil {
		return storeExitError("could not read the reminder log", err)
	}
	if ok {
		res.LastReminder = last.Format("2006-01-02")
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	for _, s := range report.Statuses() {
		fmt.Fprintf(w, "%-12s %d\n", s, res.Reports[s])
	}
	fmt.Fprintf(w, "%-12s %d\n", "directory", res.DirectoryEntries)
	fmt.Fprintf(w, "%-12s %d\n", "submissions", res.TotalSubmissions)
	if res.LastReminder == "" {
		fmt.Fprintf(w, "%-12s %s\n", "reminder", "never")
	} else {
		fmt.Fprintf(w, "%-12s %s\n", "reminder", res.LastReminder)
	}
	for _, e := range res.RecentEntries {
		ref := e.Location
		if e.Pointer != "" {
			ref += "/" + e.Pointer
		}
		fmt.Fprintf(w, "  %d  %s  %s\n", e.UserID, ref, e.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}
