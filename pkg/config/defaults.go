package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spacecore/spacecore/internal/bytesize"
)

// DefaultConfig returns a fully populated AppConfig with every field set to
// its default value.
func DefaultConfig() *AppConfig {
	cfg := &AppConfig{}
	ApplyDefaults(cfg)
	return cfg
}

// GetDefaultConfig is an alias for DefaultConfig, kept for callers that
// prefer the explicit "Get" verb used elsewhere in the CLI.
func GetDefaultConfig() *AppConfig {
	return DefaultConfig()
}

// ApplyDefaults fills zero-valued fields of cfg with defaults. Fields that
// already carry a non-zero value (e.g. loaded from file or environment) are
// left untouched.
func ApplyDefaults(cfg *AppConfig) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyDatabaseDefaults(&cfg.Database)
	applyMetricsDefaults(&cfg.Metrics)
	applyJobsDefaults(&cfg.Jobs)
	applyIndexerDefaults(&cfg.Indexer)
	applyPairingDefaults(&cfg.Pairing)
	applySyncDefaults(&cfg.Sync)
	applyDaemonDefaults(&cfg.Daemon)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.DataDir == "" {
		cfg.DataDir = GetDefaultDataDir()
	}
}

func applyLoggingDefaults(c *LoggingConfig) {
	if c.Level == "" {
		c.Level = "INFO"
	}
	if c.Format == "" {
		c.Format = "text"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
}

func applyTelemetryDefaults(c *TelemetryConfig) {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4317"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	applyProfilingDefaults(&c.Profiling)
}

func applyProfilingDefaults(c *ProfilingConfig) {
	if c.Endpoint == "" {
		c.Endpoint = "http://localhost:4040"
	}
	if len(c.ProfileTypes) == 0 {
		c.ProfileTypes = []string{"cpu", "alloc_objects", "alloc_space"}
	}
}

func applyDatabaseDefaults(c *DatabaseConfig) {
	if c.Type == "" {
		c.Type = DatabaseTypeSQLite
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = filepath.Join(GetDefaultDataDir(), "spacecore.db")
	}
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

func applyMetricsDefaults(c *MetricsConfig) {
	if c.Port == 0 {
		c.Port = 9090
	}
}

func applyJobsDefaults(c *JobsConfig) {
	if c.WorkerPoolSize == 0 {
		c.WorkerPoolSize = 4
	}
	if c.CheckpointInterval == 0 {
		c.CheckpointInterval = 500
	}
	if c.MaxTaskRetries == 0 {
		c.MaxTaskRetries = 3
	}
}

func applyIndexerDefaults(c *IndexerConfig) {
	if c.BatchSize == 0 {
		c.BatchSize = 1000
	}
	if c.MtimeToleranceMs == 0 {
		c.MtimeToleranceMs = 1
	}
	if c.SmallFileThreshold == 0 {
		c.SmallFileThreshold = bytesize.ByteSize(128 * 1024) // 128 KiB
	}
}

func applyPairingDefaults(c *PairingConfig) {
	if c.CodeExpiration == 0 {
		c.CodeExpiration = 10 * time.Minute
	}
	if c.ListenPortMin == 0 {
		c.ListenPortMin = 49152
	}
	if c.ListenPortMax == 0 {
		c.ListenPortMax = 65535
	}
	if c.MessageTimeout == 0 {
		c.MessageTimeout = 30 * time.Second
	}
}

func applySyncDefaults(c *SyncConfig) {
	if c.CheckpointPageSize == 0 {
		c.CheckpointPageSize = 1000
	}
	if c.BufferSize == 0 {
		c.BufferSize = 4096
	}
	if c.LiveEventRetry == 0 {
		c.LiveEventRetry = 5 * time.Second
	}
}

func applyDaemonDefaults(c *DaemonConfig) {
	if c.SocketPath == "" {
		c.SocketPath = filepath.Join(GetConfigDir(), "spacecore.sock")
	}
	if c.DeviceName == "" {
		hostname, err := os.Hostname()
		if err != nil || hostname == "" {
			hostname = "spacecore-device"
		}
		c.DeviceName = hostname
	}
}
