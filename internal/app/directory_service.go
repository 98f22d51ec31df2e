// internal/app/directory_service.go
package app

import (
	"context"
	"errors"
	"fmt"

	"guardian_bot/internal/domain/cooldown"
	"guardian_bot/internal/domain/directory"
	"guardian_bot/internal/domain/guild"
	"guardian_bot/internal/domain/settings"
	idb "guardian_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// ErrBackfillAlreadyDone is returned when the introduction history was imported
// before and the caller did not force a rerun.
var ErrBackfillAlreadyDone = fmt.Errorf("introduction backfill already completed")

// DirectoryService keeps the per-user introduction directory and the member
// roster it is compared against.
type DirectoryService struct {
	entries  directory.Repository
	stats    cooldown.Stats
	members  guild.MemberRepository
	settings settings.Repository
	logger   *logrus.Entry
}

func NewDirectoryService(
	entries directory.Repository,
	stats cooldown.Stats,
	members guild.MemberRepository,
	settingsRepo settings.Repository,
	logger *logrus.Entry,
) *DirectoryService {
	return &DirectoryService{
		entries:  entries,
		stats:    stats,
		members:  members,
		settings: settingsRepo,
		logger:   logger,
	}
}

// RecordIntroduction stores ref as the user's introduction, replacing any older
// one. The created/updated distinction is only logged; the upsert decides.
func (s *DirectoryService) RecordIntroduction(ctx context.Context, userID int64, ref directory.Reference) error {
	logCtx := s.logger.WithFields(logrus.Fields{"user_id": userID, "location": ref.Location})

	existed := true
	if _, err := s.entries.Lookup(ctx, userID); err != nil {
		if !errors.Is(err, idb.ErrDirectoryEntryNotFound) {
			logCtx.WithError(err).Debug("Could not classify introduction before saving")
		}
		existed = false
	}

	if err := s.entries.Upsert(ctx, userID, ref); err != nil {
		return fmt.Errorf("failed to save introduction for user %d: %w", userID, err)
	}
	if existed {
		logCtx.Debug("Introduction updated")
	} else {
		logCtx.Info("Introduction created")
	}
	return nil
}

// LookupIntroduction returns idb.ErrDirectoryEntryNotFound for users without one.
func (s *DirectoryService) LookupIntroduction(ctx context.Context, userID int64) (*directory.Entry, error) {
	return s.entries.Lookup(ctx, userID)
}

// MembersMissingIntroduction filters memberIDs down to users without an
// introduction, keeping their order.
func (s *DirectoryService) MembersMissingIntroduction(ctx context.Context, memberIDs []int64) ([]int64, error) {
	return s.stats.MembersWithoutDirectoryEntry(ctx, memberIDs)
}

// TrackMember marks the user as seen in the group.
func (s *DirectoryService) TrackMember(ctx context.Context, groupID, userID int64) error {
	if err := s.members.Touch(ctx, groupID, userID); err != nil {
		return fmt.Errorf("failed to track member %d in group %d: %w", userID, groupID, err)
	}
	return nil
}

// DirectorySummary is a read-only overview of the directory.
type DirectorySummary struct {
	Entries int
	Recent  []*directory.Entry
}

func (s *DirectoryService) Summary(ctx context.Context, recent int) (*DirectorySummary, error) {
	n, err := s.entries.Count(ctx)
	if err != nil {
		return nil, err
	}
	sum := &DirectorySummary{Entries: n, Recent: []*directory.Entry{}}
	if recent > 0 {
		if sum.Recent, err = s.entries.ListRecent(ctx, recent); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

// Leaderboard ranks members by accepted report submissions.
type Leaderboard struct {
	Top   []cooldown.SubmitterCount
	Total int
}

func (s *DirectoryService) Leaderboard(ctx context.Context, limit int) (*Leaderboard, error) {
	top, err := s.stats.TopSubmitters(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top submitters: %w", err)
	}
	total, err := s.stats.TotalSubmissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get total submissions: %w", err)
	}
	return &Leaderboard{Top: top, Total: total}, nil
}

// BackfillRow is one historical introduction.
type BackfillRow struct {
	UserID int64
	Ref    directory.Reference
}

// Backfill imports historical introductions once. Rows are upserted in order, so
// a later row for the same user wins. force reruns a completed import.
func (s *DirectoryService) Backfill(ctx context.Context, rows []BackfillRow, force bool) (int, error) {
	done, err := s.settings.IsScanCompleted(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read backfill state: %w", err)
	}
	if done && !force {
		return 0, ErrBackfillAlreadyDone
	}

	imported := 0
	for _, row := range rows {
		if err := s.entries.Upsert(ctx, row.UserID, row.Ref); err != nil {
			return imported, fmt.Errorf("failed to import introduction for user %d: %w", row.UserID, err)
		}
		imported++
	}
	if err := s.settings.MarkScanCompleted(ctx); err != nil {
		return imported, fmt.Errorf("failed to mark backfill completed: %w", err)
	}
	s.logger.WithField("imported", imported).Info("Introduction backfill completed")
	return imported, nil
}
