package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spacecore/spacecore/internal/cli/output"
	"github.com/spacecore/spacecore/internal/cli/timeutil"
	"github.com/spf13/cobra"
)

var statusPidFile string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Display the current status of the spacecore daemon.

This checks both the PID file and whether the daemon responds over its
Unix socket, then reports process uptime.

Examples:
  # Check status
  spacecore status

  # Output as JSON
  spacecore status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/spacecore/spacecore.pid)")
}

// daemonStatus summarizes the result of a status check.
type daemonStatus struct {
	Running bool   `json:"running" yaml:"running"`
	PID     int    `json:"pid,omitempty" yaml:"pid,omitempty"`
	Socket  string `json:"socket" yaml:"socket"`
	Healthy bool   `json:"healthy" yaml:"healthy"`
	Uptime  string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	status := daemonStatus{Message: "Daemon is not running"}

	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	var startedAt time.Time
	if info, statErr := os.Stat(pidPath); statErr == nil {
		startedAt = info.ModTime()
	}

	if pidData, readErr := os.ReadFile(pidPath); readErr == nil {
		if pid, convErr := strconv.Atoi(strings.TrimSpace(string(pidData))); convErr == nil {
			if process, findErr := os.FindProcess(pid); findErr == nil {
				if process.Signal(syscall.Signal(0)) == nil {
					status.Running = true
					status.PID = pid
				}
			}
		}
	}

	status.Socket = resolveSocketPath()

	var pingResult any
	if err := newClient().Call("query:volumes.list.input.v1", "", struct{}{}, &pingResult); err == nil {
		status.Running = true
		status.Healthy = true
		status.Message = "Daemon is running and responding"
		if !startedAt.IsZero() {
			status.Uptime = time.Since(startedAt).String()
		}
	} else if status.Running {
		status.Message = fmt.Sprintf("Process found but daemon is not responding on %s: %v", status.Socket, err)
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		printStatusTable(status)
	}

	return nil
}

func printStatusTable(status daemonStatus) {
	fmt.Println()
	fmt.Println("spacecore daemon status")
	fmt.Println("========================")
	fmt.Println()

	switch {
	case status.Healthy:
		fmt.Printf("  Status:  \033[32m● Running\033[0m\n")
	case status.Running:
		fmt.Printf("  Status:  \033[33m● Running (unresponsive)\033[0m\n")
	default:
		fmt.Printf("  Status:  \033[31m○ Stopped\033[0m\n")
	}
	if status.PID != 0 {
		fmt.Printf("  PID:     %d\n", status.PID)
	}
	fmt.Printf("  Socket:  %s\n", status.Socket)
	if status.Uptime != "" {
		fmt.Printf("  Uptime:  %s\n", timeutil.FormatUptime(status.Uptime))
	}
	fmt.Println()
	fmt.Printf("  %s\n", status.Message)
	fmt.Println()
}
