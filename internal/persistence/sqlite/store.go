// Package sqlite implements the persistence contracts on SQLite through the
// cgo-free modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/example/conference-central/internal/persistence"
	"github.com/example/conference-central/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store bundles the connection pool with the repositories built on it.
type Store struct {
	pool   *ConnectionPool
	retry  *RetryHelper
	mapper *ErrorMapper
	logger *slog.Logger

	profiles    *ProfileRepository
	conferences *ConferenceRepository
	sessions    *SessionRepository
	tasks       *TaskQueue
}

// Option customises a Store.
type Option func(*Store)

// WithLogger sets the logger used for migrations and transaction retries.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRetryConfig overrides the contention retry policy.
func WithRetryConfig(config RetryConfig) Option {
	return func(s *Store) {
		s.retry = NewRetryHelper(config)
	}
}

// Open connects to the database described by config.
func Open(config Config, opts ...Option) (*Store, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}

	store := &Store{
		pool:   pool,
		retry:  NewRetryHelper(DefaultRetryConfig()),
		mapper: NewErrorMapper(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(store)
	}

	db := pool.DB()
	store.profiles = newProfileRepository(db, store.mapper)
	store.conferences = newConferenceRepository(db, store.mapper)
	store.sessions = newSessionRepository(db, store.mapper)
	store.tasks = &TaskQueue{pool: pool, retry: store.retry, mapper: store.mapper}

	return store, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	files, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("sqlite: open embedded migrations: %w", err)
	}
	if _, err := migration.NewManager(s.pool.DB(), files, s.logger).Run(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Profiles returns the non-transactional profile repository.
func (s *Store) Profiles() persistence.ProfileRepository { return s.profiles }

// Conferences returns the non-transactional conference repository.
func (s *Store) Conferences() persistence.ConferenceRepository { return s.conferences }

// Sessions returns the non-transactional session repository.
func (s *Store) Sessions() persistence.SessionRepository { return s.sessions }

// Tasks returns the task queue.
func (s *Store) Tasks() persistence.TaskRepository { return s.tasks }

// RunInTransaction runs fn in a single BEGIN IMMEDIATE transaction. When the
// transaction fails on lock contention or a stale version the whole of fn is
// replayed against fresh reads.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx persistence.Tx) error) error {
	attempt := 0
	return s.retry.WithRetry(ctx, func() error {
		attempt++
		if attempt > 1 {
			s.logger.DebugContext(ctx, "retrying transaction", "attempt", attempt)
		}
		return s.pool.WithTransaction(ctx, func(sqlTx *sql.Tx) error {
			return fn(&transaction{
				profiles:    newProfileRepository(sqlTx, s.mapper),
				conferences: newConferenceRepository(sqlTx, s.mapper),
				sessions:    newSessionRepository(sqlTx, s.mapper),
			})
		})
	})
}

type transaction struct {
	profiles    *ProfileRepository
	conferences *ConferenceRepository
	sessions    *SessionRepository
}

func (t *transaction) Profiles() persistence.ProfileRepository       { return t.profiles }
func (t *transaction) Conferences() persistence.ConferenceRepository { return t.conferences }
func (t *transaction) Sessions() persistence.SessionRepository       { return t.sessions }

var (
	_ persistence.Transactor           = (*Store)(nil)
	_ persistence.Tx                   = (*transaction)(nil)
	_ persistence.ProfileRepository    = (*ProfileRepository)(nil)
	_ persistence.ConferenceRepository = (*ConferenceRepository)(nil)
	_ persistence.SessionRepository    = (*SessionRepository)(nil)
	_ persistence.TaskRepository       = (*TaskQueue)(nil)
)
