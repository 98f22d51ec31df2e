// internal/infra/database/postgres_stats_repository.go
package database

import (
	"context"
	"guardian_bot/internal/domain/cooldown"

	"github.com/lib/pq" // For pq.Array
)

// PostgresStatsRepository answers read-only aggregate queries.
type PostgresStatsRepository struct {
	session *Session
}

func NewPostgresStatsRepository(s *Session) *PostgresStatsRepository {
	return &PostgresStatsRepository{session: s}
}

func (r *PostgresStatsRepository) TopSubmitters(ctx context.Context, limit int) ([]cooldown.SubmitterCount, error) {
	if limit <= 0 {
		return []cooldown.SubmitterCount{}, nil
	}
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rows, err := db.QueryContext(ctx, `SELECT user_id, submission_count FROM submitter_cooldowns
               WHERE submission_count > 0
               ORDER BY submission_count DESC, user_id
               LIMIT $1`, limit)
	if err != nil {
		return nil, wrapErr("error querying top submitters", err)
	}
	defer rows.Close()

	top := make([]cooldown.SubmitterCount, 0, limit)
	for rows.Next() {
		var sc cooldown.SubmitterCount
		if err := rows.Scan(&sc.UserID, &sc.Count); err != nil {
			return nil, wrapErr("error scanning top submitter", err)
		}
		top = append(top, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("error iterating top submitters", err)
	}
	return top, nil
}

func (r *PostgresStatsRepository) TotalSubmissions(ctx context.Context) (int, error) {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(submission_count), 0) FROM submitter_cooldowns`).Scan(&total); err != nil {
		return 0, wrapErr("error summing submissions", err)
	}
	return total, nil
}

// MembersWithoutDirectoryEntry returns the ids in memberIDs that have no
// directory entry, in input order.
func (r *PostgresStatsRepository) MembersWithoutDirectoryEntry(ctx context.Context, memberIDs []int64) ([]int64, error) {
	if len(memberIDs) == 0 {
		return []int64{}, nil
	}
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rows, err := db.QueryContext(ctx, `SELECT m.user_id
               FROM unnest($1::bigint[]) WITH ORDINALITY AS m(user_id, ord)
               WHERE NOT EXISTS (SELECT 1 FROM identity_directory d WHERE d.user_id = m.user_id)
               ORDER BY m.ord`, pq.Array(memberIDs))
	if err != nil {
		return nil, wrapErr("error querying members without directory entry", err)
	}
	defer rows.Close()

	missing := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr("error scanning member id", err)
		}
		missing = append(missing, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("error iterating member ids", err)
	}
	return missing, nil
}
