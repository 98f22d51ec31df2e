// internal/infra/database/postgres_reminder_repository.go
package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq" // For pq.Array
)

const dateLayout = "2006-01-02"

type PostgresReminderRepository struct {
	session *Session
}

func NewPostgresReminderRepository(s *Session) *PostgresReminderRepository {
	return &PostgresReminderRepository{session: s}
}

// WasSent reports whether a reminder was logged for the calendar date of date,
// as seen in date's location.
func (r *PostgresReminderRepository) WasSent(ctx context.Context, date time.Time) (bool, error) {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return false, err
	}
	defer cancel()

	var exists bool
	err = db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM reminder_log WHERE reminder_date = $1::date)`, date.Format(dateLayout)).Scan(&exists)
	if err != nil {
		return false, wrapErr("failed to check reminder log", err)
	}
	return exists, nil
}

// Record logs the day's reminder. inserted is false if the day was already logged.
func (r *PostgresReminderRepository) Record(ctx context.Context, date time.Time, notified []int64) (bool, error) {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return false, err
	}
	defer cancel()

	if notified == nil {
		notified = []int64{}
	}
	res, err := db.ExecContext(ctx, `INSERT INTO reminder_log (reminder_date, notified_user_ids, created_at)
               VALUES ($1::date, $2, CURRENT_TIMESTAMP)
               ON CONFLICT (reminder_date) DO NOTHING`, date.Format(dateLayout), pq.Array(notified))
	if err != nil {
		return false, wrapErr("failed to log reminder execution", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr("failed to log reminder execution", err)
	}
	return n == 1, nil
}

// LastDate returns the most recent logged reminder date, if any.
func (r *PostgresReminderRepository) LastDate(ctx context.Context) (time.Time, bool, error) {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	defer cancel()

	var last sql.NullTime
	if err := db.QueryRowContext(ctx, `SELECT MAX(reminder_date) FROM reminder_log`).Scan(&last); err != nil {
		return time.Time{}, false, wrapErr("failed to get last reminder date", err)
	}
	return last.Time, last.Valid, nil
}
