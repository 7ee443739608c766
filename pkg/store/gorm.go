// Package store provides spacecore's relational persistence layer: devices,
// volumes, locations, entries and their closure table, content identities,
// job records, and sync checkpoints.
//
// Two backends are supported:
//   - SQLite (single-node, default)
//   - PostgreSQL (multi-process capable)
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DatabaseType identifies a supported relational store backend.
type DatabaseType string

const (
	DatabaseTypeSQLite   DatabaseType = "sqlite"
	DatabaseTypePostgres DatabaseType = "postgres"
)

// SQLiteConfig is the SQLite-specific connection configuration.
type SQLiteConfig struct {
	Path string
}

// PostgresConfig is the PostgreSQL-specific connection configuration.
type PostgresConfig struct {
	Host         string
	Port         int
	Database     string
	User         string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += fmt.Sprintf(" sslmode=%s", c.SSLMode)
	}
	return dsn
}

// Config contains the relational store's connection configuration.
type Config struct {
	Type     DatabaseType
	SQLite   SQLiteConfig
	Postgres PostgresConfig
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = DatabaseTypeSQLite
	}
	if c.Type == DatabaseTypeSQLite && c.SQLite.Path == "" {
		configDir := os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			homeDir, _ := os.UserHomeDir()
			configDir = filepath.Join(homeDir, ".config")
		}
		c.SQLite.Path = filepath.Join(configDir, "spacecore", "spacecore.db")
	}
	if c.Type == DatabaseTypePostgres {
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "prefer"
		}
		if c.Postgres.MaxOpenConns == 0 {
			c.Postgres.MaxOpenConns = 25
		}
		if c.Postgres.MaxIdleConns == 0 {
			c.Postgres.MaxIdleConns = 5
		}
	}
}

// Validate checks whether the configuration is usable.
func (c *Config) Validate() error {
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case DatabaseTypePostgres:
		if c.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if c.Postgres.Database == "" {
			return fmt.Errorf("postgres database is required")
		}
		if c.Postgres.User == "" {
			return fmt.Errorf("postgres user is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Type)
	}
	return nil
}

// GORMStore implements the Store interface over GORM, supporting both
// SQLite and PostgreSQL through the same query code.
type GORMStore struct {
	db     *gorm.DB
	config *Config
}

// New opens a connection, brings the schema up to date (AutoMigrate for
// SQLite, golang-migrate for PostgreSQL), and returns a ready GORMStore.
func New(config *Config) (*GORMStore, error) {
	if config == nil {
		config = &Config{}
	}
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	var dialector gorm.Dialector
	switch config.Type {
	case DatabaseTypeSQLite:
		if err := os.MkdirAll(filepath.Dir(config.SQLite.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn := config.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)
	case DatabaseTypePostgres:
		dialector = postgres.Open(config.Postgres.DSN())
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if config.Type == DatabaseTypePostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		sqlDB.SetMaxOpenConns(config.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(config.Postgres.MaxIdleConns)

		if err := runPostgresMigrations(context.Background(), config.Postgres.DSN()); err != nil {
			return nil, fmt.Errorf("failed to run database migration: %w", err)
		}
	} else {
		// SQLite has no concurrent-writer migration race to guard against,
		// so AutoMigrate's reflection-driven DDL stays simpler than a
		// parallel set of SQLite migration files would be.
		if err := db.AutoMigrate(AllModels()...); err != nil {
			return nil, fmt.Errorf("failed to run database migration: %w", err)
		}
	}

	return &GORMStore{db: db, config: config}, nil
}

// DB returns the underlying GORM connection, for advanced queries and tests.
func (s *GORMStore) DB() *gorm.DB {
	return s.db
}

// Healthcheck verifies the store is reachable.
func (s *GORMStore) Healthcheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "duplicate key value violates unique constraint")
}

func convertNotFoundError(err error, notFoundErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr
	}
	return err
}

var _ Store = (*GORMStore)(nil)
