package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	stopPidFile string
	stopForce   bool
)

// errProcessDone is returned by stopProcess when the process has already exited.
var errProcessDone = errors.New("process already done")

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the spacecore daemon",
	Long: `Stop a running spacecore daemon.

By default, sends a graceful shutdown signal. Use --force for immediate
termination.

Examples:
  # Stop the daemon (uses default PID file)
  spacecore stop

  # Stop using a custom PID file
  spacecore stop --pid-file /var/run/spacecore.pid

  # Force stop
  spacecore stop --force`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/spacecore/spacecore.pid)")
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "Force kill instead of graceful shutdown")
}

func runStop(cmd *cobra.Command, args []string) error {
	pidPath := stopPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	pidData, err := os.ReadFile(pidPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("PID file not found: %s\n\nIs the daemon running?", pidPath)
		}
		return fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		return fmt.Errorf("invalid PID in file: %s", string(pidData))
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	if err := stopProcess(process, pid, stopForce); err != nil {
		if errors.Is(err, errProcessDone) {
			fmt.Println("Daemon already stopped")
			_ = os.Remove(pidPath)
			return nil
		}
		return err
	}

	if stopForce {
		fmt.Println("Daemon terminated")
	} else {
		fmt.Println("Shutdown signal sent. Daemon will stop gracefully.")
	}

	return nil
}
