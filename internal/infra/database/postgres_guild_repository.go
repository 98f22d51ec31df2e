// internal/infra/database/postgres_guild_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"guardian_bot/internal/domain/guild"
)

type PostgresGuildRepository struct {
	session *Session
}

func NewPostgresGuildRepository(s *Session) *PostgresGuildRepository {
	return &PostgresGuildRepository{session: s}
}

// Upsert stores the group's routing setup, replacing any previous one.
func (r *PostgresGuildRepository) Upsert(ctx context.Context, cfg *guild.Config) error {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	query := `INSERT INTO group_config (group_id, destination_channel, escalation_role)
               VALUES ($1, $2, $3)
               ON CONFLICT (group_id) DO UPDATE SET
                   destination_channel = EXCLUDED.destination_channel,
                   escalation_role = EXCLUDED.escalation_role`
	if _, err := db.ExecContext(ctx, query, cfg.GroupID, cfg.DestinationChatID, cfg.EscalationRole); err != nil {
		return wrapErr("error saving group config", err)
	}
	return nil
}

func (r *PostgresGuildRepository) Get(ctx context.Context, groupID int64) (*guild.Config, error) {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	cfg := &guild.Config{}
	err = db.QueryRowContext(ctx, `SELECT group_id, destination_channel, escalation_role
               FROM group_config WHERE group_id = $1`, groupID).
		Scan(&cfg.GroupID, &cfg.DestinationChatID, &cfg.EscalationRole)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupConfigNotFound
		}
		return nil, wrapErr("error getting group config", err)
	}
	return cfg, nil
}

// PostgresMemberRepository remembers which users were seen in which group.
type PostgresMemberRepository struct {
	session *Session
}

func NewPostgresMemberRepository(s *Session) *PostgresMemberRepository {
	return &PostgresMemberRepository{session: s}
}

func (r *PostgresMemberRepository) Touch(ctx context.Context, groupID, userID int64) error {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	query := `INSERT INTO known_members (group_id, user_id, last_seen_at)
               VALUES ($1, $2, CURRENT_TIMESTAMP)
               ON CONFLICT (group_id, user_id) DO UPDATE SET last_seen_at = EXCLUDED.last_seen_at`
	if _, err := db.ExecContext(ctx, query, groupID, userID); err != nil {
		return wrapErr("error recording member", err)
	}
	return nil
}

// ListIDs returns the group's known members, oldest member id first.
func (r *PostgresMemberRepository) ListIDs(ctx context.Context, groupID int64) ([]int64, error) {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rows, err := db.QueryContext(ctx, `SELECT user_id FROM known_members WHERE group_id = $1 ORDER BY user_id`, groupID)
	if err != nil {
		return nil, wrapErr("error listing members", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr("error scanning member", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("error iterating members", err)
	}
	return ids, nil
}
