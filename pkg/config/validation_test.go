package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for invalid log format")
	}
}

func TestValidate_MissingSQLitePath(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Database.Type = DatabaseTypeSQLite
	cfg.Database.SQLite.Path = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for missing sqlite path")
	}
	if !strings.Contains(err.Error(), "sqlite.path") {
		t.Errorf("expected sqlite.path validation error, got: %v", err)
	}
}

func TestValidate_MissingPostgresFields(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Database.Type = DatabaseTypePostgres
	cfg.Database.Postgres.Host = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for missing postgres fields")
	}
}

func TestValidate_UnsupportedDatabaseType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Database.Type = "mongodb"

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for unsupported database type")
	}
}

func TestValidate_InvertedPairingPortRange(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Pairing.ListenPortMin = 60000
	cfg.Pairing.ListenPortMax = 50000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for inverted pairing port range")
	}
	if !strings.Contains(err.Error(), "listen_port_min") {
		t.Errorf("expected listen_port_min validation error, got: %v", err)
	}
}

func TestValidate_ZeroShutdownTimeout(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.ShutdownTimeout = 0

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for zero shutdown timeout")
	}
}
