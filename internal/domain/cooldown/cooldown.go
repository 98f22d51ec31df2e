// internal/domain/cooldown/cooldown.go
package cooldown

import (
	"context"
	"time"
)

// Decision is the outcome of a cooldown check. A denial is not an error.
type Decision struct {
	Allowed   bool
	Remaining time.Duration // Zero when Allowed
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(remaining time.Duration) Decision {
	return Decision{Remaining: remaining}
}

// SubmitterCount is one leaderboard row.
type SubmitterCount struct {
	UserID int64
	Count  int
}

// Guard is a mutual-exclusion gate keyed by submitter. TryAcquire records the
// submission only when it is allowed.
type Guard interface {
	TryAcquire(ctx context.Context, submitterID int64, window time.Duration) (Decision, error)
}

// Stats are read-only aggregates over accepted submissions and the directory.
type Stats interface {
	TopSubmitters(ctx context.Context, limit int) ([]SubmitterCount, error)
	TotalSubmissions(ctx context.Context) (int, error)
	MembersWithoutDirectoryEntry(ctx context.Context, memberIDs []int64) ([]int64, error) // Preserves input order
}
