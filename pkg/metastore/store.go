// Package metastore is the Metadata Store: the Postgres-backed system of
// record for File Records, Chunk Records, and the audit log.
package metastore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vaultmesh/vaultmesh/pkg/log"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Config controls the pool and startup behavior of a Store.
type Config struct {
	DSN string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnIdleTimeout time.Duration
	AcquireTimeout  time.Duration

	StartupRetries   int
	StartupRetryWait time.Duration

	// ResetSchema drops and recreates every table before opening for use.
	// Intended for local development and integration tests.
	ResetSchema bool
}

// Store is the Metadata Store's connection pool plus its prepared
// operations. All mutations run inside a transaction.
type Store struct {
	db  *sql.DB
	cfg Config
}

// Open connects to Postgres, retrying with a fixed backoff up to
// cfg.StartupRetries times to tolerate a not-yet-ready database, runs
// pending migrations, and returns a ready Store.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 20
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnIdleTimeout == 0 {
		cfg.ConnIdleTimeout = 5 * time.Minute
	}
	if cfg.AcquireTimeout == 0 {
		cfg.AcquireTimeout = 10 * time.Second
	}
	if cfg.StartupRetries == 0 {
		cfg.StartupRetries = 5
	}
	if cfg.StartupRetryWait == 0 {
		cfg.StartupRetryWait = 2 * time.Second
	}

	var db *sql.DB
	open := func() error {
		var err error
		db, err = sql.Open("pgx", cfg.DSN)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, cfg.AcquireTimeout)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return err
		}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.StartupRetryWait), uint64(cfg.StartupRetries))
	notify := func(err error, wait time.Duration) {
		log.WithComponent("metastore").Warn().Err(err).Dur("retry_in", wait).Msg("database not ready, retrying")
	}
	if err := backoff.RetryNotify(open, policy, notify); err != nil {
		return nil, fmt.Errorf("metastore: could not connect after retries: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.ConnIdleTimeout)

	s := &Store{db: db, cfg: cfg}

	if cfg.ResetSchema {
		if err := s.resetSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate() error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("metastore: loading embedded migrations: %w", err)
	}

	driver, err := postgres.WithInstance(s.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("metastore: creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("metastore: creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("metastore: running migrations: %w", err)
	}
	return nil
}

func (s *Store) resetSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS audit_log, chunks, files CASCADE`)
	if err != nil {
		return fmt.Errorf("metastore: resetting schema: %w", err)
	}
	// schema_migrations also needs clearing so the migrator replays 0001.
	_, _ = s.db.ExecContext(ctx, `DROP TABLE IF EXISTS schema_migrations`)
	return nil
}

// Close releases the connection pool. An AuditSink built over the Store is
// stopped separately, through its own Stop.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying pool for callers that need a raw transaction.
func (s *Store) DB() *sql.DB {
	return s.db
}
