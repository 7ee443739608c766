//go:build !windows

package commands

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// isProcessRunning reads a PID from the given file and checks whether
// that process is still alive. Returns the PID and true if running, or
// 0 and false otherwise.
func isProcessRunning(pidPath string) (int, bool) {
	pidData, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, false
	}

	var pid int
	if _, err := fmt.Sscanf(string(pidData), "%d", &pid); err != nil {
		return 0, false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}

	if err := process.Signal(syscall.Signal(0)); err != nil {
		return 0, false
	}

	return pid, true
}

// startDaemon re-execs the current binary with --foreground in a detached
// session, writing its stdout/stderr to a log file.
func startDaemon() error {
	stateDir := GetDefaultStateDir()
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	pidPath := pidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	if pid, running := isProcessRunning(pidPath); running {
		return fmt.Errorf("spacecore is already running (PID %d)\nUse 'spacecore stop' to stop the running instance", pid)
	}
	_ = os.Remove(pidPath)

	logPath := logFile
	if logPath == "" {
		logPath = GetDefaultLogFile()
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	daemonArgs := []string{"start", "--foreground", "--pid-file", pidPath, "--log-file", logPath}
	if GetConfigFile() != "" {
		daemonArgs = append(daemonArgs, "--config", GetConfigFile())
	}

	cmd := exec.Command(executable, daemonArgs...)

	logFileHandle, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	cmd.Stdout = logFileHandle
	cmd.Stderr = logFileHandle
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		_ = logFileHandle.Close()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	_ = logFileHandle.Close()

	fmt.Printf("spacecore started in background (PID %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidPath)
	fmt.Printf("  Log file: %s\n", logPath)
	fmt.Println("\nUse 'spacecore stop' to stop the daemon")
	fmt.Println("Use 'spacecore status' to check daemon status")

	return nil
}
