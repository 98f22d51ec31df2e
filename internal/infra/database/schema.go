package database

import (
	"context"
	"fmt"
)

// schemaLockKey serialises concurrent EnsureSchema runs across instances.
const schemaLockKey = "guardian_bot_schema"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS submitter_cooldowns (
		user_id BIGINT PRIMARY KEY,
		last_submitted_at TIMESTAMP WITH TIME ZONE NOT NULL,
		submission_count INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS reports (
		report_id BIGSERIAL PRIMARY KEY,
		group_id BIGINT NOT NULL,
		notification_ref TEXT,
		target_user_id BIGINT NOT NULL,
		violated_rule TEXT NOT NULL,
		details TEXT,
		evidence_link TEXT,
		urgency TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'unhandled',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status, report_id DESC)`,
	`CREATE TABLE IF NOT EXISTS identity_directory (
		user_id BIGINT PRIMARY KEY,
		location_ref TEXT NOT NULL,
		pointer_ref TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS group_config (
		group_id BIGINT PRIMARY KEY,
		destination_channel BIGINT NOT NULL,
		escalation_role TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS known_members (
		group_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		last_seen_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (group_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS reminder_log (
		id SERIAL PRIMARY KEY,
		reminder_date DATE NOT NULL UNIQUE,
		notified_user_ids BIGINT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// columnUpgrade adds a column that older deployments were created without.
type columnUpgrade struct {
	table      string
	column     string
	definition string
}

var columnUpgrades = []columnUpgrade{
	{"identity_directory", "updated_at", "TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP"},
	{"submitter_cooldowns", "submission_count", "INTEGER NOT NULL DEFAULT 0"},
	{"reports", "evidence_link", "TEXT"},
}

// Runs after the upgrades so the index can reference upgraded columns.
const directoryIndexStatement = `CREATE INDEX IF NOT EXISTS idx_identity_directory_updated_at ON identity_directory(updated_at DESC)`

const columnExistsQuery = `SELECT EXISTS (
		SELECT 1 FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2
	)`

const seedConfigStatement = `INSERT INTO config (key, value) VALUES ('scan_completed', 'false') ON CONFLICT (key) DO NOTHING`

// EnsureSchema creates and upgrades every table. It is safe to run on every
// start and from several instances at once: the whole run happens in one
// transaction holding a transaction-scoped advisory lock.
func EnsureSchema(ctx context.Context, s *Session) error {
	db, ctx, cancel, err := s.command(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("failed to begin schema transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, schemaLockKey); err != nil {
		return wrapErr("failed to lock schema", err)
	}

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return wrapErr("failed to create schema", err)
		}
	}

	for _, up := range columnUpgrades {
		var exists bool
		if err := tx.QueryRowContext(ctx, columnExistsQuery, up.table, up.column).Scan(&exists); err != nil {
			return wrapErr(fmt.Sprintf("failed to inspect column %s.%s", up.table, up.column), err)
		}
		if exists {
			continue
		}
		s.logger.WithField("table", up.table).WithField("column", up.column).Info("Adding missing column")
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", up.table, up.column, up.definition)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return wrapErr(fmt.Sprintf("failed to add column %s.%s", up.table, up.column), err)
		}
	}

	if _, err := tx.ExecContext(ctx, directoryIndexStatement); err != nil {
		return wrapErr("failed to create directory index", err)
	}
	if _, err := tx.ExecContext(ctx, seedConfigStatement); err != nil {
		return wrapErr("failed to seed config", err)
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("failed to commit schema", err)
	}
	s.logger.Info("Database schema ensured")
	return nil
}
