package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/spacecore/spacecore/internal/logger"
	"github.com/spacecore/spacecore/pkg/store/migrations"
)

// runPostgresMigrations brings a PostgreSQL database's schema up to date
// with pkg/store/migrations before GORM ever touches it. golang-migrate
// takes a PostgreSQL advisory lock for the duration of the run, so
// concurrent daemon instances racing to migrate the same database
// serialize instead of corrupting each other's DDL.
func runPostgresMigrations(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach database for migration: %w", err)
	}

	driver, err := migratepostgres.WithInstance(db, &migratepostgres.Config{
		MigrationsTable: "schema_migrations",
		DatabaseName:    "spacecore",
	})
	if err != nil {
		return fmt.Errorf("failed to create postgres migration driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("postgres migration failed: %w", err)
	} else if err == migrate.ErrNoChange {
		logger.Info("postgres schema already up to date")
	} else {
		logger.Info("postgres schema migrated")
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	if err == nil {
		logger.Info("postgres schema version", "version", version, "dirty", dirty)
		if dirty {
			logger.Warn("postgres schema is in a dirty state; manual intervention may be required")
		}
	}

	return nil
}
