package commands

import (
	"fmt"
	"os"

	"github.com/spacecore/spacecore/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a default spacecore configuration file.

By default, the file is created at $XDG_CONFIG_HOME/spacecore/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  spacecore init

  # Initialize with custom path
  spacecore init --config /etc/spacecore/config.yaml

  # Force overwrite an existing config file
  spacecore init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if !initForce {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", configPath)
		}
	}

	cfg := config.DefaultConfig()
	config.ApplyDefaults(cfg)

	if err := config.SaveConfig(cfg, configPath); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the daemon with: spacecore start")
	fmt.Printf("  3. Or specify a custom config: spacecore start --config %s\n", configPath)

	return nil
}
