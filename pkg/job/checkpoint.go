package job

import (
	"context"

	"github.com/spacecore/spacecore/pkg/errors"
)

// interruptKind distinguishes why a job's cooperative check returned.
type interruptKind int

const (
	interruptNone interruptKind = iota
	interruptPause
	interruptCancel
)

// Checkpointer is handed to a running Job. It exposes the two cooperative
// suspension-point primitives the spec requires: CheckInterrupt (observe
// pause/cancel requests) and Checkpoint (persist progress periodically
// without stopping).
type Checkpointer struct {
	jobID       string
	interrupt   chan interruptKind
	pending     interruptKind
	unitsDone   int
	everyNUnits int
	persist     func(ctx context.Context, state []byte) error
	serialize   func() ([]byte, error)
	progress    func(done, total float64)
}

// NewCheckpointer constructs a Checkpointer outside the scheduler, for
// jobs' own unit tests. interruptBuf is typically 1 (non-blocking signal
// delivery); a nil persist/progress is treated as a no-op.
func NewCheckpointer(interruptBuf, everyNUnits int, serialize func() ([]byte, error), persist func(ctx context.Context, state []byte) error, progress func(done, total float64)) *Checkpointer {
	if persist == nil {
		persist = func(ctx context.Context, state []byte) error { return nil }
	}
	return &Checkpointer{
		interrupt:   make(chan interruptKind, interruptBuf),
		everyNUnits: everyNUnits,
		serialize:   serialize,
		persist:     persist,
		progress:    progress,
	}
}

// ErrPaused is returned by CheckInterrupt when a Pause command has been
// observed. The job's Run method should return it unwrapped so the
// scheduler can distinguish a pause from a real failure.
var ErrPaused = errors.Canceled("job paused")

// CheckInterrupt observes any pending pause/cancel command. It must be
// called at explicit suspension points: between batches and inside tight
// loops, never while holding a lock across it.
func (c *Checkpointer) CheckInterrupt(ctx context.Context) error {
	select {
	case kind := <-c.interrupt:
		c.pending = kind
	default:
	}
	if c.pending == interruptPause {
		return ErrPaused
	}
	if c.pending == interruptCancel {
		return context.Canceled
	}
	return ctx.Err()
}

// Checkpoint records N completed units of work and, once everyNUnits have
// accumulated since the last write, persists the job's current serialized
// state to the store without stopping the job.
func (c *Checkpointer) Checkpoint(ctx context.Context, n int) error {
	c.unitsDone += n
	if c.unitsDone < c.everyNUnits {
		return nil
	}
	c.unitsDone = 0
	state, err := c.serialize()
	if err != nil {
		return err
	}
	return c.persist(ctx, state)
}

// ReportProgress updates the job record's fractional progress (0..1),
// surfaced to `job monitor` and the CLI table.
func (c *Checkpointer) ReportProgress(done, total float64) {
	if c.progress != nil {
		c.progress(done, total)
	}
}
