package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spacecore/spacecore/pkg/config"
	"github.com/spf13/cobra"
)

var (
	logsFollow bool
	logsLines  int
	logsSince  string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Tail daemon logs",
	Long: `Display and optionally follow the spacecore daemon's log file.

Examples:
  # Show last 100 lines (default)
  spacecore logs

  # Show last 50 lines
  spacecore logs -n 50

  # Follow logs in real-time
  spacecore logs -f

  # Show logs since a specific time
  spacecore logs --since "2024-01-15T10:00:00Z"`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 100, "Number of lines to show")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since timestamp (RFC3339 format)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logOutput := cfg.Logging.Output
	if logOutput == "" || logOutput == "stdout" || logOutput == "stderr" {
		logOutput = GetDefaultLogFile()
	}

	if _, err := os.Stat(logOutput); os.IsNotExist(err) {
		return fmt.Errorf("log file not found: %s\nThe daemon may not have started yet, or is logging elsewhere", logOutput)
	}

	var sinceTime time.Time
	if logsSince != "" {
		sinceTime, err = time.Parse(time.RFC3339, logsSince)
		if err != nil {
			return fmt.Errorf("invalid --since format (use RFC3339): %w", err)
		}
	}

	if logsFollow {
		return followLogs(logOutput, logsLines, sinceTime)
	}
	return showLogs(logOutput, logsLines, sinceTime)
}

func showLogs(logFile string, lines int, since time.Time) error {
	file, err := os.Open(logFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var allLines []string
	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !since.IsZero() {
			if lineTime := extractTimestamp(line); !lineTime.IsZero() && lineTime.Before(since) {
				continue
			}
		}
		allLines = append(allLines, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}

	start := 0
	if len(allLines) > lines {
		start = len(allLines) - lines
	}
	for _, line := range allLines[start:] {
		fmt.Println(line)
	}
	return nil
}

func followLogs(logFile string, initialLines int, since time.Time) error {
	if err := showLogs(logFile, initialLines, since); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(logFile); err != nil {
		return fmt.Errorf("failed to watch log file: %w", err)
	}

	file, err := os.Open(logFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end of log file: %w", err)
	}
	reader := bufio.NewReader(file)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	fmt.Fprintf(os.Stderr, "Following %s (Ctrl+C to stop)...\n", logFile)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == fsnotify.Write {
				for {
					line, err := reader.ReadString('\n')
					if err != nil {
						break
					}
					fmt.Print(line)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// extractTimestamp pulls a timestamp from the start of a plain-text log
// line or a JSON "time" field, for --since filtering.
func extractTimestamp(line string) time.Time {
	if len(line) >= 20 {
		if t, err := time.Parse(time.RFC3339, line[:20]); err == nil {
			return t
		}
		if len(line) >= 25 {
			if t, err := time.Parse(time.RFC3339, line[:25]); err == nil {
				return t
			}
		}
	}

	const timeKey = `"time":"`
	if idx := strings.Index(line, timeKey); idx >= 0 {
		start := idx + len(timeKey)
		for i := start; i < len(line) && i < start+30; i++ {
			if line[i] == '"' {
				if t, err := time.Parse(time.RFC3339Nano, line[start:i]); err == nil {
					return t
				}
				break
			}
		}
	}

	return time.Time{}
}
