// Package commands implements spacecore's CLI command tree.
package commands

import (
	"github.com/spf13/cobra"
)

// Version information injected at build time via main's ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:           "spacecore",
	Short:         "spacecore - distributed, content-addressed file management",
	Long: `spacecore indexes files across your devices by content, schedules
long-running file operations as resumable jobs, and keeps paired devices in
sync.

Most commands talk to a running spacecore daemon over a local Unix socket.
Start it first with "spacecore start", or run "spacecore init" if this is
the first time spacecore has run on this machine.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		Flags.Output, _ = cmd.Flags().GetString("output")
		Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
		Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
		Flags.SocketPath, _ = cmd.Flags().GetString("socket")
		Flags.ConfigFile, _ = cmd.Flags().GetString("config")
		Flags.Watch, _ = cmd.Flags().GetBool("watch")
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().String("socket", "", "Daemon socket path (default: computed from state dir)")
	rootCmd.PersistentFlags().String("config", "", "Path to configuration file")
	rootCmd.PersistentFlags().Bool("watch", false, "Stream progress until the submitted job finishes")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(locationCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(jobCmd)
	rootCmd.AddCommand(deviceCmd)
	rootCmd.AddCommand(volumeCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("spacecore %s (commit %s, built %s)\n", Version, Commit, Date)
		return nil
	},
}
