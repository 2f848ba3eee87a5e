package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"freight-service/pkg/logger"
)

const connectAttempts = 30

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
	dsn  string
	log  logger.ILogger
}

// Connect opens a connection pool with retry logic.
func Connect(ctx context.Context, dsn string, log logger.ILogger) (*DB, error) {
	var pool *pgxpool.Pool
	var err error
	for i := 0; i < connectAttempts; i++ {
		pool, err = pgxpool.New(ctx, dsn)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				log.Info("connected to PostgreSQL")
				return &DB{Pool: pool, dsn: dsn, log: log}, nil
			}
			pool.Close()
		}
		log.Warning("waiting for PostgreSQL", logger.Int("attempt", i+1), logger.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, fmt.Errorf("postgres: failed after %d attempts: %w", connectAttempts, err)
}

// RunMigrations applies the embedded up migrations. An already current
// schema is not an error.
func (d *DB) RunMigrations(migrationFS fs.FS) error {
	src, err := iofs.New(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(d.dsn))
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			d.log.Info("no migrations to apply")
			return nil
		}
		return fmt.Errorf("migrate up: %w", err)
	}
	version, dirty, _ := m.Version()
	d.log.Info("migrations applied", logger.Int("version", int(version)), logger.Bool("dirty", dirty))
	return nil
}

// Close shuts down the pool.
func (d *DB) Close() { d.Pool.Close() }

// migrateURL switches a postgres DSN to the pgx/v5 migrate driver scheme.
func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
