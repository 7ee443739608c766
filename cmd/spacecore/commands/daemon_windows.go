//go:build windows

package commands

import "fmt"

// isProcessRunning and startDaemon have no Windows implementation yet: the
// retrieval pack carries no Windows service/job-object integration to
// ground one on. Foreground mode (spacecore start --foreground) still
// works; only background daemonization is unavailable.
func isProcessRunning(pidPath string) (int, bool) {
	return 0, false
}

func startDaemon() error {
	return fmt.Errorf("background daemon mode is not yet supported on Windows; use 'spacecore start --foreground'")
}
