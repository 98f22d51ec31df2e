// internal/infra/database/postgres_directory_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"guardian_bot/internal/domain/directory"
)

// PostgresDirectoryRepository keeps one introduction reference per user.
type PostgresDirectoryRepository struct {
	session *Session
}

func NewPostgresDirectoryRepository(s *Session) *PostgresDirectoryRepository {
	return &PostgresDirectoryRepository{session: s}
}

// Upsert is a single INSERT ... ON CONFLICT statement: writers for different
// users never block each other, writers for the same user serialise and the
// later one wins.
func (r *PostgresDirectoryRepository) Upsert(ctx context.Context, userID int64, ref directory.Reference) error {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	query := `INSERT INTO identity_directory (user_id, location_ref, pointer_ref, updated_at)
               VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
               ON CONFLICT (user_id) DO UPDATE SET
                   location_ref = EXCLUDED.location_ref,
                   pointer_ref = EXCLUDED.pointer_ref,
                   updated_at = EXCLUDED.updated_at`
	if _, err := db.ExecContext(ctx, query, userID, ref.Location, ref.Pointer); err != nil {
		return wrapErr("error saving directory entry", err)
	}
	return nil
}

func (r *PostgresDirectoryRepository) Lookup(ctx context.Context, userID int64) (*directory.Entry, error) {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	e := &directory.Entry{}
	err = db.QueryRowContext(ctx, `SELECT user_id, location_ref, pointer_ref, updated_at
               FROM identity_directory WHERE user_id = $1`, userID).
		Scan(&e.UserID, &e.Ref.Location, &e.Ref.Pointer, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDirectoryEntryNotFound
		}
		return nil, wrapErr("error looking up directory entry", err)
	}
	return e, nil
}

func (r *PostgresDirectoryRepository) Count(ctx context.Context) (int, error) {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM identity_directory`).Scan(&count); err != nil {
		return 0, wrapErr("error counting directory entries", err)
	}
	return count, nil
}

func (r *PostgresDirectoryRepository) ListRecent(ctx context.Context, limit int) ([]*directory.Entry, error) {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rows, err := db.QueryContext(ctx, `SELECT user_id, location_ref, pointer_ref, updated_at
               FROM identity_directory
               ORDER BY updated_at DESC, user_id
               LIMIT $1`, limit)
	if err != nil {
		return nil, wrapErr("error listing recent directory entries", err)
	}
	defer rows.Close()

	entries := make([]*directory.Entry, 0)
	for rows.Next() {
		e := &directory.Entry{}
		if err := rows.Scan(&e.UserID, &e.Ref.Location, &e.Ref.Pointer, &e.UpdatedAt); err != nil {
			return nil, wrapErr("error scanning directory entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("error iterating directory entries", err)
	}
	return entries, nil
}
