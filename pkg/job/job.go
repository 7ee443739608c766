// Package job implements the scheduler: a bounded worker pool running
// resumable, checkpointable jobs with pause/resume/cancel, dedup by
// content hash, and chained successors.
package job

import "context"

// Job is the interface every job type implements. A job holds its own run
// state; Serialize and Resume carry that state across a pause or crash.
type Job interface {
	// Name identifies the job type (e.g. "index.location", "file.copy").
	Name() string

	// Hash is the dedup key: two submissions with the same hash while one
	// is active are rejected with AlreadyRunning.
	Hash() uint64

	// Resumable reports whether Paused instances of this job type are
	// auto-resumed on daemon start.
	Resumable() bool

	// Run executes the job to completion, calling ckpt.Checkpoint
	// periodically and ckpt.CheckInterrupt at suspension points. It
	// returns nil on success, ErrPaused when paused, and context.Canceled
	// when canceled.
	Run(ctx context.Context, ckpt *Checkpointer) error

	// Serialize captures enough state to resume after a pause or crash.
	Serialize() ([]byte, error)

	// Resume restores state previously produced by Serialize. Called
	// before Run when resuming a Paused or crashed job.
	Resume(state []byte) error
}

// Chainer is implemented by jobs that declare successor jobs dispatched
// on their own completion.
type Chainer interface {
	Successors() []Job
}

// LocationScoped is implemented by jobs bound to a single location, for
// the scheduler's at-most-one-running-job-per-(name,location) rule.
type LocationScoped interface {
	LocationID() string
}
