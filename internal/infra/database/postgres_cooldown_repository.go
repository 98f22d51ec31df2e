// internal/infra/database/postgres_cooldown_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"guardian_bot/internal/domain/cooldown"
	"time"
)

// PostgresCooldownRepository is the report cooldown gate. Mutual exclusion per
// submitter comes from row locks in Postgres, so it holds across instances.
type PostgresCooldownRepository struct {
	session *Session
	now     func() time.Time
}

func NewPostgresCooldownRepository(s *Session) *PostgresCooldownRepository {
	return &PostgresCooldownRepository{session: s, now: time.Now}
}

// TryAcquire records a submission for submitterID unless the previous accepted
// one is younger than window. Denials leave the stored timestamp untouched.
func (r *PostgresCooldownRepository) TryAcquire(ctx context.Context, submitterID int64, window time.Duration) (cooldown.Decision, error) {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return cooldown.Decision{}, err
	}
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return cooldown.Decision{}, wrapErr("failed to begin cooldown transaction", err)
	}
	defer tx.Rollback() // Rollback if not committed

	now := r.now().UTC()
	last, found, err := lockLastSubmission(ctx, tx, submitterID)
	if err != nil {
		return cooldown.Decision{}, err
	}

	if !found {
		res, err := tx.ExecContext(ctx, `INSERT INTO submitter_cooldowns (user_id, last_submitted_at, submission_count)
               VALUES ($1, $2, 1)
               ON CONFLICT (user_id) DO NOTHING`, submitterID, now)
		if err != nil {
			return cooldown.Decision{}, wrapErr("error inserting cooldown", err)
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return cooldown.Decision{}, wrapErr("error inserting cooldown", err)
		}
		if inserted == 1 {
			if err := tx.Commit(); err != nil {
				return cooldown.Decision{}, wrapErr("failed to commit cooldown", err)
			}
			return cooldown.Allow(), nil
		}
		// A concurrent first submission committed its row while we waited on the
		// insert. Decide against that row.
		last, found, err = lockLastSubmission(ctx, tx, submitterID)
		if err != nil {
			return cooldown.Decision{}, err
		}
		if !found {
			return cooldown.Decision{}, fmt.Errorf("cooldown row for submitter %d disappeared during check", submitterID)
		}
	}

	elapsed := now.Sub(last)
	if elapsed < 0 {
		elapsed = 0 // Clock skew between instances
	}
	if elapsed < window {
		return cooldown.Deny(window - elapsed), nil
	}

	_, err = tx.ExecContext(ctx, `UPDATE submitter_cooldowns
               SET last_submitted_at = GREATEST(last_submitted_at, $2), submission_count = submission_count + 1
               WHERE user_id = $1`, submitterID, now)
	if err != nil {
		return cooldown.Decision{}, wrapErr("error updating cooldown", err)
	}
	if err := tx.Commit(); err != nil {
		return cooldown.Decision{}, wrapErr("failed to commit cooldown", err)
	}
	return cooldown.Allow(), nil
}

// lockLastSubmission reads the submitter's row and holds its lock until the
// transaction ends.
func lockLastSubmission(ctx context.Context, tx *sql.Tx, submitterID int64) (time.Time, bool, error) {
	var last time.Time
	err := tx.QueryRowContext(ctx, `SELECT last_submitted_at FROM submitter_cooldowns WHERE user_id = $1 FOR UPDATE`, submitterID).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, wrapErr("error reading cooldown", err)
	}
	return last, true, nil
}
