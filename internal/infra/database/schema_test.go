package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expectSchemaRun queues one EnsureSchema run. missing names columns the
// information_schema probe reports as absent.
func expectSchemaRun(mock sqlmock.Sqlmock, missing map[string]bool) {
	mock.ExpectBegin()
	mock.ExpectExec(q("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs(schemaLockKey).WillReturnResult(sqlmock.NewResult(0, 0))
	for _, stmt := range schemaStatements {
		mock.ExpectExec(q(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	for _, up := range columnUpgrades {
		name := up.table + "." + up.column
		mock.ExpectQuery(q("FROM information_schema.columns")).
			WithArgs(up.table, up.column).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(!missing[name]))
		if missing[name] {
			mock.ExpectExec(q("ALTER TABLE " + up.table + " ADD COLUMN IF NOT EXISTS " + up.column)).
				WillReturnResult(sqlmock.NewResult(0, 0))
		}
	}
	mock.ExpectExec(q(directoryIndexStatement)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q(seedConfigStatement)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func TestEnsureSchema_FreshDatabase(t *testing.T) {
	s, mock := newMockSession(t)
	expectSchemaRun(mock, nil)

	require.NoError(t, EnsureSchema(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema_AddsColumnsMissingFromOlderDeployments(t *testing.T) {
	s, mock := newMockSession(t)
	expectSchemaRun(mock, map[string]bool{
		"identity_directory.updated_at":        true,
		"submitter_cooldowns.submission_count": true,
	})

	require.NoError(t, EnsureSchema(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema_IsIdempotent(t *testing.T) {
	s, mock := newMockSession(t)
	// First run upgrades an old table, later runs find it current and alter nothing.
	expectSchemaRun(mock, map[string]bool{"reports.evidence_link": true})
	expectSchemaRun(mock, nil)
	expectSchemaRun(mock, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, EnsureSchema(context.Background(), s))
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema_RollsBackOnFailure(t *testing.T) {
	s, mock := newMockSession(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("SELECT pg_advisory_xact_lock")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q(schemaStatements[0])).WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err := EnsureSchema(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchema_SeedIsUpsertNoop(t *testing.T) {
	assert.Contains(t, seedConfigStatement, "ON CONFLICT (key) DO NOTHING")
	for _, stmt := range schemaStatements {
		assert.Contains(t, stmt, "IF NOT EXISTS")
	}
}
