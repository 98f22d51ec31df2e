package database

import (
	"database/sql"
	"io"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// newMockSession returns a session whose pool is a sqlmock connection.
func newMockSession(t *testing.T) (*Session, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewSession(SessionConfig{DatabaseURL: "postgres://guardian@localhost/guardian"}, testLogger(),
		WithOpener(func(string) (*sql.DB, error) { return db, nil }))
	return s, mock
}

func q(sql string) string {
	return regexp.QuoteMeta(sql)
}
