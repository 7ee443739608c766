//go:build windows

package commands

import (
	"fmt"
	"os"
)

// stopProcess on Windows only supports forceful termination; there is no
// POSIX-style SIGTERM to request a graceful shutdown from outside the
// process.
func stopProcess(process *os.Process, pid int, force bool) error {
	fmt.Printf("Terminating process %d...\n", pid)
	if err := process.Kill(); err != nil {
		if err == os.ErrProcessDone {
			return errProcessDone
		}
		return fmt.Errorf("failed to terminate process: %w", err)
	}
	return nil
}
