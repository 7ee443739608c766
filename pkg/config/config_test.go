package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func TestLoad_DefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

database:
  type: sqlite
  sqlite:
    path: "` + yamlSafePath(tmpDir) + `/spacecore.db"

data_dir: "` + yamlSafePath(tmpDir) + `"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Logging.Format != "text" {
		t.Errorf("expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("expected default shutdown_timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Jobs.WorkerPoolSize != 4 {
		t.Errorf("expected default worker pool size 4, got %d", cfg.Jobs.WorkerPoolSize)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("expected no error when loading default config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config to be returned")
	}
	if cfg.Database.Type != DatabaseTypeSQLite {
		t.Errorf("expected default database type sqlite, got %q", cfg.Database.Type)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
logging:
  level: INFO
  invalid yaml here [[[
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected error loading invalid YAML")
	}
}

func TestLoad_ByteSizeDecodeHook(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
indexer:
  small_file_threshold: 16Mi
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	expected := uint64(16 * 1024 * 1024)
	if cfg.Indexer.SmallFileThreshold.Uint64() != expected {
		t.Errorf("expected small_file_threshold %d, got %d", expected, cfg.Indexer.SmallFileThreshold.Uint64())
	}
}

func TestLoad_DurationDecodeHook(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
pairing:
  code_expiration: 5m
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Pairing.CodeExpiration != 5*time.Minute {
		t.Errorf("expected code_expiration 5m, got %v", cfg.Pairing.CodeExpiration)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Logging.Level = "DEBUG"

	if err := SaveConfig(cfg, configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to reload saved config: %v", err)
	}
	if loaded.Logging.Level != "DEBUG" {
		t.Errorf("expected reloaded log level 'DEBUG', got %q", loaded.Logging.Level)
	}
}

func TestGetDefaultConfigPath_RespectsXDG(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	got := GetDefaultConfigPath()
	want := filepath.Join(tmpDir, "spacecore", "config.yaml")
	if got != want {
		t.Errorf("expected default config path %q, got %q", want, got)
	}
}
