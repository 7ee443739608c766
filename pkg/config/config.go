// Package config loads spacecore's static configuration: logging,
// telemetry, the relational store connection, and the tunables for the
// indexer, job scheduler, pairing protocol, sync engine, and daemon IPC.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (SPACECORE_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Environment variables override only the settings that the configuration
// file sets. When no configuration file is found, Load returns the default
// values and does not read the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/spacecore/spacecore/internal/bytesize"
)

// AppConfig is the root configuration for the spacecore daemon and CLI.
type AppConfig struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Jobs      JobsConfig      `mapstructure:"jobs" yaml:"jobs"`
	Indexer   IndexerConfig   `mapstructure:"indexer" yaml:"indexer"`
	Pairing   PairingConfig   `mapstructure:"pairing" yaml:"pairing"`
	Sync      SyncConfig      `mapstructure:"sync" yaml:"sync"`
	Daemon    DaemonConfig    `mapstructure:"daemon" yaml:"daemon"`

	// ShutdownTimeout bounds how long the daemon waits for running jobs to
	// checkpoint and for connections to drain on SIGTERM.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// DataDir is the root of the on-disk layout (device identity, network
	// keys, per-library databases, job logs).
	DataDir string `mapstructure:"data_dir" validate:"required" yaml:"data_dir"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry tracing and Pyroscope profiling.
// Carried as an ambient concern even though the spec's non-goals exclude a
// REST API surface: tracing instruments internal operations, not an API.
type TelemetryConfig struct {
	Enabled    bool             `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string           `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool             `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64          `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
	Profiling  ProfilingConfig  `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string   `mapstructure:"endpoint" yaml:"endpoint"`
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// DatabaseType identifies a supported relational store backend.
type DatabaseType string

const (
	DatabaseTypeSQLite   DatabaseType = "sqlite"
	DatabaseTypePostgres DatabaseType = "postgres"
)

// DatabaseConfig configures the relational store adapter.
type DatabaseConfig struct {
	Type     DatabaseType   `mapstructure:"type" yaml:"type"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// SQLiteConfig is the SQLite-specific connection configuration.
type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// PostgresConfig is the PostgreSQL-specific connection configuration.
type PostgresConfig struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" yaml:"port"`
	Database     string `mapstructure:"database" yaml:"database"`
	User         string `mapstructure:"user" yaml:"user"`
	Password     string `mapstructure:"password" yaml:"password"`
	SSLMode      string `mapstructure:"ssl_mode" yaml:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
}

// JobsConfig tunes the job scheduler's worker pool and checkpointing.
type JobsConfig struct {
	// WorkerPoolSize bounds concurrent task execution across all jobs.
	WorkerPoolSize int `mapstructure:"worker_pool_size" validate:"omitempty,min=1" yaml:"worker_pool_size"`

	// CheckpointInterval is not read: the scheduler writes a checkpoint
	// every 20 units of work.
	CheckpointInterval int `mapstructure:"checkpoint_interval" validate:"omitempty,min=1" yaml:"checkpoint_interval"`

	// MaxTaskRetries is not read: the scheduler does not re-queue failed
	// jobs.
	MaxTaskRetries int `mapstructure:"max_task_retries" validate:"omitempty,min=0" yaml:"max_task_retries"`
}

// IndexerConfig tunes the indexing engine. MtimeToleranceMs and
// SmallFileThreshold apply to index jobs submitted through the daemon.
type IndexerConfig struct {
	// BatchSize is not read: the walk groups entries in fixed batches of
	// 1000.
	BatchSize int `mapstructure:"batch_size" validate:"omitempty,min=1" yaml:"batch_size"`

	// MtimeToleranceMs is the millisecond tolerance used when comparing
	// modification times for change detection.
	MtimeToleranceMs int64 `mapstructure:"mtime_tolerance_ms" validate:"omitempty,min=0" yaml:"mtime_tolerance_ms"`

	// SmallFileThreshold selects the "full" vs. "sampled" CAS hash scheme.
	SmallFileThreshold bytesize.ByteSize `mapstructure:"small_file_threshold" yaml:"small_file_threshold"`

	// BuiltinGitignore is not read: each index method sets its own
	// .gitignore option.
	BuiltinGitignore bool `mapstructure:"builtin_gitignore" yaml:"builtin_gitignore"`
}

// PairingConfig tunes the pairing protocol.
type PairingConfig struct {
	// CodeExpiration is how long a generated pairing code remains valid.
	CodeExpiration time.Duration `mapstructure:"code_expiration" validate:"omitempty,gt=0" yaml:"code_expiration"`

	// ListenPortMin/Max bound the ephemeral TCP port range the initiator
	// binds for the pairing TLS listener.
	ListenPortMin int `mapstructure:"listen_port_min" validate:"omitempty,min=1,max=65535" yaml:"listen_port_min"`
	ListenPortMax int `mapstructure:"listen_port_max" validate:"omitempty,min=1,max=65535" yaml:"listen_port_max"`

	// MessageTimeout bounds how long the protocol waits for each step's reply.
	MessageTimeout time.Duration `mapstructure:"message_timeout" validate:"omitempty,gt=0" yaml:"message_timeout"`
}

// SyncConfig tunes the peer sync engine.
type SyncConfig struct {
	// CheckpointPageSize is not read: backfill pages hold a fixed 1000 rows.
	CheckpointPageSize int `mapstructure:"checkpoint_page_size" validate:"omitempty,min=1" yaml:"checkpoint_page_size"`

	// BufferSize bounds the per-peer live-event buffer used while a peer is
	// Backfilling or Idle; oldest events are dropped on overflow.
	BufferSize int `mapstructure:"buffer_size" validate:"omitempty,min=1" yaml:"buffer_size"`

	// LiveEventRetry bounds each live-event send. A send that fails is not
	// retried: the event is buffered and the peer is marked Failed.
	LiveEventRetry time.Duration `mapstructure:"live_event_retry" validate:"omitempty,gt=0" yaml:"live_event_retry"`
}

// DaemonConfig configures the line-delimited JSON-RPC IPC server.
type DaemonConfig struct {
	// SocketPath is the Unix domain socket path. There is no named-pipe
	// transport; every platform uses a Unix domain socket.
	SocketPath string `mapstructure:"socket_path" yaml:"socket_path"`

	// DeviceName is this device's human-readable name, used only the
	// first time a device identity is created; later renames go through
	// the `device` identity file directly.
	DeviceName string `mapstructure:"device_name" yaml:"device_name"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*AppConfig, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !found {
		return DefaultConfig(), nil
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, returning a user-facing error with
// instructions when no config file exists at the resolved path.
func MustLoad(configPath string) (*AppConfig, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  spacecore init\n\n"+
				"Or specify a custom config file:\n"+
				"  spacecore <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  spacecore init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML to path, creating parent directories as needed.
func SaveConfig(cfg *AppConfig, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate runs struct-tag validation plus cross-field checks that the
// validator tags can't express.
func Validate(cfg *AppConfig) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return err
	}

	switch cfg.Database.Type {
	case DatabaseTypeSQLite:
		if cfg.Database.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required when database.type is sqlite")
		}
	case DatabaseTypePostgres:
		if cfg.Database.Postgres.Host == "" || cfg.Database.Postgres.Database == "" || cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres host, database, and user are required when database.type is postgres")
		}
	default:
		return fmt.Errorf("unsupported database.type: %s", cfg.Database.Type)
	}

	if cfg.Pairing.ListenPortMin > cfg.Pairing.ListenPortMax {
		return fmt.Errorf("pairing.listen_port_min must be <= pairing.listen_port_max")
	}

	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("SPACECORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "spacecore")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "spacecore")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}

// GetDefaultDataDir returns the default on-disk data directory.
func GetDefaultDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "spacecore")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "spacecore")
}
