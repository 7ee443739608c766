package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/spacecore/spacecore/pkg/eventbus"
)

// watchJob streams JobProgress events for jobID from the daemon's event
// subscription and renders them as a progress bar, returning once the job
// reaches a terminal state. Subcommands call this after submitting a job
// only when --watch is set; without it, submission is fire-and-forget.
func watchJob(jobID, description string) error {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	startedAt := time.Now()
	done := make(chan error, 1)

	go func() {
		done <- newClient().Subscribe(func(raw json.RawMessage) error {
			var ev eventbus.Event
			if err := json.Unmarshal(raw, &ev); err != nil {
				return nil
			}
			if ev.Job == nil || ev.Job.JobID != jobID {
				return nil
			}
			switch ev.Kind {
			case eventbus.KindJobProgress, eventbus.KindJobStarted:
				_ = bar.Set(int(ev.Job.Progress * 100))
			case eventbus.KindJobCompleted:
				_ = bar.Set(100)
				_ = bar.Finish()
				fmt.Printf("%s completed in %s\n", description, humanize.RelTime(startedAt, time.Now(), "", ""))
				return errWatchDone
			case eventbus.KindJobFailed:
				_ = bar.Finish()
				return fmt.Errorf("%s failed: %s", description, ev.Job.Error)
			case eventbus.KindJobCancelled:
				_ = bar.Finish()
				return fmt.Errorf("%s canceled", description)
			}
			return nil
		})
	}()

	if err := <-done; err != nil && err != errWatchDone {
		return err
	}
	return nil
}

// errWatchDone unwinds Subscribe's handler loop once the watched job
// reaches a terminal state; it is never surfaced to the caller.
var errWatchDone = fmt.Errorf("watch: job finished")
