package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spacecore/spacecore/internal/cli/output"
	"github.com/spacecore/spacecore/internal/logger"
	"github.com/spacecore/spacecore/pkg/config"
	"github.com/spacecore/spacecore/pkg/daemon"
)

// Flags holds the global flag values shared across subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags mirrors the persistent flags on rootCmd.
type GlobalFlags struct {
	Output     string
	NoColor    bool
	Verbose    bool
	SocketPath string
	ConfigFile string
	Watch      bool
}

// GetConfigFile returns the --config flag value, or "" to use the default path.
func GetConfigFile() string {
	return Flags.ConfigFile
}

// resolveSocketPath returns the --socket flag value if set, otherwise the
// socket path from the loaded configuration, falling back to the default
// state directory when no config file is present yet.
func resolveSocketPath() string {
	if Flags.SocketPath != "" {
		return Flags.SocketPath
	}
	if cfg, err := config.Load(GetConfigFile()); err == nil && cfg.Daemon.SocketPath != "" {
		return cfg.Daemon.SocketPath
	}
	return filepath.Join(GetDefaultStateDir(), "spacecore.sock")
}

// newClient builds a daemon.Client against the resolved socket path.
func newClient() *daemon.Client {
	return daemon.NewClient(resolveSocketPath(), 30*time.Second)
}

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.AppConfig) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// GetDefaultStateDir returns the default state directory path.
func GetDefaultStateDir() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData != "" {
			return filepath.Join(localAppData, "spacecore")
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "spacecore")
		}
		return filepath.Join(homeDir, "AppData", "Local", "spacecore")
	}

	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "spacecore")
		}
		stateDir = filepath.Join(homeDir, ".local", "state")
	}
	return filepath.Join(stateDir, "spacecore")
}

// GetDefaultPidFile returns the default PID file path.
func GetDefaultPidFile() string {
	return filepath.Join(GetDefaultStateDir(), "spacecore.pid")
}

// GetDefaultLogFile returns the default log file path for daemon mode.
func GetDefaultLogFile() string {
	return filepath.Join(GetDefaultStateDir(), "spacecore.log")
}

// getConfigSource describes where configuration was loaded from, for
// startup log messages.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

func outputFormat() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// printOutput prints data in the configured format: JSON/YAML marshal data
// directly, table format falls back to emptyMsg when isEmpty or else
// renders tableData.
func printOutput(data any, isEmpty bool, emptyMsg string, tableData output.TableRenderer) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, data)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, data)
	default:
		if isEmpty {
			fmt.Println(emptyMsg)
			return nil
		}
		return output.PrintTable(os.Stdout, tableData)
	}
}

func printSuccess(msg string) {
	format, err := outputFormat()
	if err != nil || format != output.FormatTable {
		return
	}
	output.NewPrinter(os.Stdout, format, !Flags.NoColor).Success(msg)
}
