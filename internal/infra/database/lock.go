package database

import (
	"context"
	"database/sql"
	"guardian_bot/internal/domain/reminder"
)

// PostgresLocker hands out transaction-scoped advisory locks. The transaction
// pins one server connection for the lock's lifetime, which also holds behind
// transaction-pooling proxies where session locks would leak.
type PostgresLocker struct {
	session *Session
}

func NewPostgresLocker(s *Session) *PostgresLocker {
	return &PostgresLocker{session: s}
}

type advisoryLock struct {
	tx      *sql.Tx
	key     string
	session *Session
}

// TryLock returns acquired=false without blocking when another holder exists.
func (l *PostgresLocker) TryLock(ctx context.Context, key string) (reminder.Lock, bool, error) {
	db, err := l.session.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, wrapErr("failed to begin lock transaction", err)
	}

	qctx, cancel := l.session.bound(ctx)
	defer cancel()

	var acquired bool
	if err := tx.QueryRowContext(qctx, `SELECT pg_try_advisory_xact_lock(hashtext($1))`, key).Scan(&acquired); err != nil {
		tx.Rollback()
		return nil, false, wrapErr("failed to acquire advisory lock", err)
	}
	if !acquired {
		tx.Rollback()
		l.session.logger.WithField("lock", key).Info("Advisory lock busy, another instance holds it")
		return nil, false, nil
	}
	l.session.logger.WithField("lock", key).Debug("Advisory lock acquired")
	return &advisoryLock{tx: tx, key: key, session: l.session}, true, nil
}

// Release ends the lock transaction, which drops the lock.
func (a *advisoryLock) Release(ctx context.Context) error {
	if err := a.tx.Commit(); err != nil {
		return wrapErr("failed to release advisory lock", err)
	}
	a.session.logger.WithField("lock", a.key).Debug("Advisory lock released")
	return nil
}
