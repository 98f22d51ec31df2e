// internal/infra/database/postgres_settings_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"guardian_bot/internal/domain/settings"
)

type PostgresSettingsRepository struct {
	session *Session
}

func NewPostgresSettingsRepository(s *Session) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{session: s}
}

func (r *PostgresSettingsRepository) Get(ctx context.Context, key string) (string, error) {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	var value string
	err = db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrSettingNotFound
		}
		return "", wrapErr("error reading setting", err)
	}
	return value, nil
}

func (r *PostgresSettingsRepository) Set(ctx context.Context, key, value string) error {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = db.ExecContext(ctx, `INSERT INTO config (key, value) VALUES ($1, $2)
               ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		return wrapErr("error writing setting", err)
	}
	return nil
}

// IsScanCompleted treats a missing row as "not completed".
func (r *PostgresSettingsRepository) IsScanCompleted(ctx context.Context) (bool, error) {
	value, err := r.Get(ctx, settings.KeyScanCompleted)
	if errors.Is(err, ErrSettingNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return value == "true", nil
}

func (r *PostgresSettingsRepository) MarkScanCompleted(ctx context.Context) error {
	return r.Set(ctx, settings.KeyScanCompleted, "true")
}
