// internal/domain/reminder/log.go
package reminder

import (
	"context"
	"time"
)

// LogEntry records who was notified by the daily reminder on a given date.
// At most one per date. Corresponds to the 'reminder_log' table.
type LogEntry struct {
	Date          time.Time
	NotifiedUsers []int64
	CreatedAt     time.Time
}

// Log makes daily reminders idempotent within a day.
type Log interface {
	WasSent(ctx context.Context, date time.Time) (bool, error)
	Record(ctx context.Context, date time.Time, notified []int64) (inserted bool, err error)
	LastDate(ctx context.Context) (time.Time, bool, error)
}

// Lock is a cross-instance mutex. Release must be called when acquired.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker hands out named cross-instance locks without blocking.
type Locker interface {
	TryLock(ctx context.Context, key string) (Lock, bool, error)
}
