package notes

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db          *sql.DB
	lockTimeout time.Duration
	now         func() time.Time
}

type OpenOptions struct {
	// BusyTimeout is handed to SQLite as the busy_timeout pragma.
	BusyTimeout time.Duration
	// LockTimeout bounds how long busy statements are retried.
	LockTimeout time.Duration
}

func Open(path string) (*Store, error) {
	return OpenWithOptions(path, OpenOptions{})
}

func OpenWithOptions(path string, opts OpenOptions) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	db, err := sql.Open("sqlite", dsn(path, opts))
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	return &Store{db: db, lockTimeout: opts.LockTimeout, now: time.Now}, nil
}

func dsn(path string, opts OpenOptions) string {
	if opts.BusyTimeout <= 0 {
		return path
	}
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)", path, opts.BusyTimeout.Milliseconds())
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SetClock replaces the time source used for created_at and updated_at.
func (s *Store) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.now = now
}

// Init makes sure the schema exists. Failure must stop startup.
func (s *Store) Init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return err
	}
	return EnsureSchema(ctx, s.db, s.now())
}

// Acquire checks out a dedicated connection for one unit of work, usually a
// request. The caller must Close the returned repository.
func (s *Store) Acquire(ctx context.Context) (*Repository, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &Repository{q: conn, conn: conn, lockTimeout: s.lockTimeout, now: s.now}, nil
}

// Repository returns a repository backed by the shared pool. Close is a no-op.
func (s *Store) Repository() *Repository {
	return &Repository{q: s.db, lockTimeout: s.lockTimeout, now: s.now}
}
