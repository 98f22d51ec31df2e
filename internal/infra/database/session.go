package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const (
	defaultMinConns        = 1
	defaultMaxConns        = 10
	defaultCommandTimeout  = 30 * time.Second
	defaultConnMaxLifetime = 5 * time.Minute

	// A held advisory lock pins one connection; the lock holder still needs
	// another for its own queries.
	minMaxConns = 2
)

// SessionConfig bounds the shared connection pool.
type SessionConfig struct {
	DatabaseURL     string
	MinConns        int           // Connections opened eagerly when the pool is created
	MaxConns        int           // Callers queue beyond this
	CommandTimeout  time.Duration // Deadline applied to every store call
	ConnMaxLifetime time.Duration
}

// Opener creates the *sql.DB behind a session. Replaced in tests.
type Opener func(dsn string) (*sql.DB, error)

type sessionState int

const (
	sessionIdle sessionState = iota // No pool created yet
	sessionOpen
	sessionClosed // Closed explicitly, the next Acquire recreates the pool
)

func (s sessionState) String() string {
	switch s {
	case sessionIdle:
		return "idle"
	case sessionOpen:
		return "open"
	case sessionClosed:
		return "closed"
	}
	return fmt.Sprintf("sessionState(%d)", int(s))
}

// Session owns the single pooled handle to PostgreSQL. Every repository gets the
// same *Session and acquires the handle per call; nothing else opens a pool.
type Session struct {
	cfg    SessionConfig
	open   Opener
	logger *logrus.Entry

	mu    sync.Mutex
	state sessionState
	db    *sql.DB
}

type SessionOption func(*Session)

// WithOpener overrides how the pool is created.
func WithOpener(o Opener) SessionOption {
	return func(s *Session) { s.open = o }
}

func NewSession(cfg SessionConfig, logger *logrus.Entry, opts ...SessionOption) *Session {
	if cfg.MinConns < 1 {
		cfg.MinConns = defaultMinConns
	}
	if cfg.MaxConns < cfg.MinConns {
		cfg.MaxConns = max(defaultMaxConns, cfg.MinConns)
	}
	cfg.MaxConns = max(cfg.MaxConns, minMaxConns)
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = defaultCommandTimeout
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = defaultConnMaxLifetime
	}
	s := &Session{cfg: cfg, open: openPostgres, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire returns the live pool, creating it on first use or after Close.
func (s *Session) Acquire(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == sessionOpen {
		return s.db, nil
	}
	if s.cfg.DatabaseURL == "" {
		return nil, ErrNoDatabaseURL
	}

	db, err := s.open(s.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(s.cfg.MaxConns)
	db.SetMaxIdleConns(s.cfg.MaxConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	warmCtx, cancel := s.bound(ctx)
	defer cancel()
	if err := warm(warmCtx, db, s.cfg.MinConns); err != nil {
		db.Close() // Close the pool if the first connections fail
		return nil, wrapErr("failed to ping database", err)
	}

	previous := s.state
	s.db = db
	s.state = sessionOpen
	s.logger.WithFields(logrus.Fields{
		"min_conns":       s.cfg.MinConns,
		"max_conns":       s.cfg.MaxConns,
		"command_timeout": s.cfg.CommandTimeout.String(),
		"recreated":       previous == sessionClosed,
	}).Info("Database connection pool created")
	return db, nil
}

// Close shuts the pool down. Call it after in-flight operations have drained.
// Closing an idle or already closed session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != sessionOpen {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.state = sessionClosed
	if err != nil {
		s.logger.WithError(err).Error("Error while closing database connection pool")
		return fmt.Errorf("failed to close database connection pool: %w", err)
	}
	s.logger.Info("Database connection pool closed")
	return nil
}

// IsOpen reports whether a pool currently exists.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == sessionOpen
}

func (s *Session) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.CommandTimeout)
}

// command acquires the pool and derives a context carrying the command timeout.
// cancel is always safe to call.
func (s *Session) command(ctx context.Context) (*sql.DB, context.Context, context.CancelFunc, error) {
	db, err := s.Acquire(ctx)
	if err != nil {
		return nil, ctx, func() {}, err
	}
	cctx, cancel := s.bound(ctx)
	return db, cctx, cancel, nil
}

// warm opens n connections and hands them back to the idle pool.
func warm(ctx context.Context, db *sql.DB, n int) error {
	conns := make([]*sql.Conn, 0, n)
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()
	for i := 0; i < n; i++ {
		c, err := db.Conn(ctx)
		if err != nil {
			return err
		}
		conns = append(conns, c)
		if err := c.PingContext(ctx); err != nil {
			return err
		}
	}
	return nil
}

func openPostgres(dsn string) (*sql.DB, error) {
	connector, err := pq.NewConnector(poolerSafeDSN(dsn))
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

// poolerSafeDSN enables lib/pq binary parameters so parameterised queries go out
// as a single unnamed Parse/Bind/Execute. No named statement ever lives on the
// server, which keeps transaction-pooling proxies in front of Postgres happy.
func poolerSafeDSN(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn // pq.NewConnector reports the parse error
		}
		q := u.Query()
		if q.Get("binary_parameters") == "" {
			q.Set("binary_parameters", "yes")
		}
		u.RawQuery = q.Encode()
		return u.String()
	}
	if strings.Contains(dsn, "binary_parameters=") {
		return dsn
	}
	return strings.TrimSpace(dsn + " binary_parameters=yes")
}
