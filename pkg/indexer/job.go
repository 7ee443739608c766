package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/spacecore/spacecore/internal/telemetry"
	"github.com/spacecore/spacecore/pkg/job"
	"github.com/spacecore/spacecore/pkg/metrics"
	"github.com/spacecore/spacecore/pkg/store"
)

// phase marks which of the four index-run stages is in flight, so a
// paused or crashed job resumes at the right point rather than restarting
// the whole run.
type phase string

const (
	phaseWalk      phase = "walk"
	phaseProcess   phase = "process"
	phaseIdentify  phase = "identify"
	phaseAggregate phase = "aggregate"
	phaseDone      phase = "done"
)

// Options controls one index run.
type Options struct {
	DepthLimit         int // 0 means unlimited
	Accept             []string
	Reject             []string
	UseGitignore       bool
	Concurrency        int
	MtimeTolerance     time.Duration
	SmallFileThreshold uint64
	SkipIdentify       bool // true for quick scans that only need structure
}

// Output summarizes a completed index run.
type Output struct {
	Created   int
	Updated   int
	Moved     int
	Unchanged int
	Duplicate int
	Deleted   int64
	Duration  time.Duration
	Errors    []string
}

// Job walks a location's root path, reconciles the result against the
// store's prior state, identifies new/modified file content, and
// aggregates directory totals. It implements pkg/job.Job.
type Job struct {
	LocID    uint
	LocUUID  string
	Root     string
	Options  Options

	store   identityWriter
	metrics metrics.IndexingMetrics

	currentPhase     phase
	batches          [][]DirEntry
	batchCursor      int
	parentIDs        map[string]uint // rel path -> entry id, carried across Process batches and pause/resume
	pendingContentID []uint
	result           processResult
	errs             []string
	startedAt        time.Time
	output           Output
}

// New constructs an index job over a registered location's root path.
func New(st identityWriter, locationID uint, locationUUID, root string, opts Options) *Job {
	return &Job{
		LocID:        locationID,
		LocUUID:      locationUUID,
		Root:         root,
		Options:      opts,
		store:        st,
		currentPhase: phaseWalk,
		parentIDs:    make(map[string]uint),
		startedAt:    time.Now(),
	}
}

// WithMetrics attaches m so this run reports entries indexed, walk
// duration, and failures; m is optional and may be nil.
func (j *Job) WithMetrics(m metrics.IndexingMetrics) *Job {
	j.metrics = m
	return j
}

func (j *Job) Name() string { return "index.location" }

// LocationID implements job.LocationScoped: at most one index job may run
// per location at a time.
func (j *Job) LocationID() string { return j.LocUUID }

func (j *Job) Hash() uint64 {
	state, _ := j.Serialize()
	var h uint64 = 1469598103934665603
	for _, b := range state {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return h
}

func (j *Job) Resumable() bool { return true }

// Output returns the job's result summary. Only meaningful after Run has
// returned nil.
func (j *Job) Output() Output { return j.output }

type jobState struct {
	LocID            uint
	LocUUID          string
	Root             string
	Options          Options
	Phase            phase
	Batches          [][]DirEntry
	BatchCursor      int
	ParentIDs        map[string]uint
	PendingContentID []uint
	Result           processResult
	Errors           []string
}

func (j *Job) Serialize() ([]byte, error) {
	return json.Marshal(jobState{
		LocID:            j.LocID,
		LocUUID:          j.LocUUID,
		Root:             j.Root,
		Options:          j.Options,
		Phase:            j.currentPhase,
		Batches:          j.batches,
		BatchCursor:      j.batchCursor,
		ParentIDs:        j.parentIDs,
		PendingContentID: j.pendingContentID,
		Result:           j.result,
		Errors:           j.errs,
	})
}

func (j *Job) Resume(state []byte) error {
	var s jobState
	if err := json.Unmarshal(state, &s); err != nil {
		return err
	}
	j.LocID = s.LocID
	j.LocUUID = s.LocUUID
	j.Root = s.Root
	j.Options = s.Options
	j.currentPhase = s.Phase
	j.batches = s.Batches
	j.batchCursor = s.BatchCursor
	j.parentIDs = s.ParentIDs
	j.pendingContentID = s.PendingContentID
	j.result = s.Result
	j.errs = s.Errors
	if j.parentIDs == nil {
		j.parentIDs = make(map[string]uint)
	}
	return nil
}

// Run executes the Walk, Process, Identify and Aggregate phases in order,
// resuming at currentPhase so a pause/crash between phases (or between
// batches within Process) does not restart the whole run.
func (j *Job) Run(ctx context.Context, ckpt *job.Checkpointer) error {
	ctx, span := telemetry.StartSpan(ctx, "indexer.run")
	defer span.End()
	telemetry.SetAttributes(ctx,
		attribute.String("location.uuid", j.LocUUID),
		attribute.String("indexer.phase", string(j.currentPhase)),
	)

	if err := j.run(ctx, ckpt); err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}
	return nil
}

func (j *Job) run(ctx context.Context, ckpt *job.Checkpointer) error {
	if j.currentPhase == "" {
		j.currentPhase = phaseWalk
	}

	if j.currentPhase == phaseWalk {
		if err := j.runWalk(ctx, ckpt); err != nil {
			return err
		}
		j.currentPhase = phaseProcess
		if err := j.checkpointPhase(ctx, ckpt); err != nil {
			return err
		}
	}

	loc, err := j.store.GetLocationByID(ctx, j.LocID)
	if err != nil {
		return err
	}

	if j.currentPhase == phaseProcess {
		if err := j.runProcess(ctx, ckpt, loc); err != nil {
			return err
		}
		if j.Options.SkipIdentify {
			j.currentPhase = phaseAggregate
		} else {
			j.currentPhase = phaseIdentify
		}
		if err := j.checkpointPhase(ctx, ckpt); err != nil {
			return err
		}
	}

	if j.currentPhase == phaseIdentify {
		if err := j.runIdentify(ctx, ckpt); err != nil {
			return err
		}
		j.currentPhase = phaseAggregate
		if err := j.checkpointPhase(ctx, ckpt); err != nil {
			return err
		}
	}

	if j.currentPhase == phaseAggregate {
		if err := runAggregate(ctx, j.store, loc); err != nil {
			return err
		}
		j.currentPhase = phaseDone
	}

	duration := time.Since(j.startedAt)
	j.output = Output{
		Created:   j.result.Created,
		Updated:   j.result.Updated,
		Moved:     j.result.Moved,
		Unchanged: j.result.Unchanged,
		Duplicate: j.result.Duplicate,
		Deleted:   int64(j.result.Deleted),
		Duration:  duration,
		Errors:    j.errs,
	}
	if j.metrics != nil {
		indexed := j.result.Created + j.result.Updated + j.result.Moved + j.result.Unchanged + j.result.Duplicate
		j.metrics.RecordEntriesIndexed(j.LocUUID, indexed)
		j.metrics.RecordWalkDuration(j.LocUUID, duration)
		if len(j.errs) > 0 {
			j.metrics.RecordIndexingFailed(j.LocUUID)
		}
	}
	return nil
}

func (j *Job) checkpointPhase(ctx context.Context, ckpt *job.Checkpointer) error {
	if err := ckpt.CheckInterrupt(ctx); err != nil {
		return err
	}
	return ckpt.Checkpoint(ctx, 1)
}

func (j *Job) runWalk(ctx context.Context, ckpt *job.Checkpointer) error {
	excl := NewExclude(j.Options.Accept, j.Options.Reject, j.Root, j.Options.UseGitignore)
	opts := WalkOptions{
		DepthLimit:  j.Options.DepthLimit,
		Exclude:     excl,
		Concurrency: j.Options.Concurrency,
	}
	return Walk(ctx, j.Root, opts, func(batch []DirEntry) error {
		j.batches = append(j.batches, batch)
		return ckpt.CheckInterrupt(ctx)
	})
}

func (j *Job) runProcess(ctx context.Context, ckpt *job.Checkpointer, loc *store.Location) error {
	tolerance := j.Options.MtimeTolerance
	detector, err := loadChangeDetector(ctx, j.store, loc, tolerance)
	if err != nil {
		return err
	}
	proc := newProcessor(j.store, loc, detector, j.Root, j.parentIDs)

	for ; j.batchCursor < len(j.batches); j.batchCursor++ {
		if err := ckpt.CheckInterrupt(ctx); err != nil {
			return err
		}
		res, err := proc.processBatch(ctx, j.batches[j.batchCursor])
		if err != nil {
			j.errs = append(j.errs, err.Error())
			return err
		}
		j.result.add(res)
		j.pendingContentID = append(j.pendingContentID, res.PendingContentID...)
		ckpt.ReportProgress(float64(j.batchCursor+1), float64(len(j.batches)))
		if err := ckpt.Checkpoint(ctx, 1); err != nil {
			return err
		}
	}

	deleted, err := proc.finalize(ctx)
	if err != nil {
		return err
	}
	j.result.Deleted = int(deleted)
	j.batches = nil
	j.batchCursor = 0
	return nil
}

func (j *Job) runIdentify(ctx context.Context, ckpt *job.Checkpointer) error {
	total := len(j.pendingContentID)
	for total > 0 && len(j.pendingContentID) > 0 {
		if err := ckpt.CheckInterrupt(ctx); err != nil {
			return err
		}
		id := j.pendingContentID[0]
		path, err := j.pathFor(ctx, id)
		if err != nil {
			j.errs = append(j.errs, fmt.Sprintf("identify entry %d: %v", id, err))
			j.pendingContentID = j.pendingContentID[1:]
			continue
		}
		if err := identifyOne(ctx, j.store, id, path, j.Options.SmallFileThreshold); err != nil {
			j.errs = append(j.errs, fmt.Sprintf("identify %s: %v", path, err))
		}
		j.pendingContentID = j.pendingContentID[1:]
		ckpt.ReportProgress(float64(total-len(j.pendingContentID)), float64(total))
		if err := ckpt.Checkpoint(ctx, 1); err != nil {
			return err
		}
	}
	return nil
}

// pathFor reconstructs an entry's filesystem path by walking ParentID up
// to the location root.
func (j *Job) pathFor(ctx context.Context, entryID uint) (string, error) {
	var parts []string
	id := entryID
	for {
		entry, err := j.store.GetEntryByID(ctx, id)
		if err != nil {
			return "", err
		}
		if entry.ParentID == nil {
			break
		}
		parts = append([]string{entry.Name}, parts...)
		id = *entry.ParentID
	}
	path := j.Root
	for _, p := range parts {
		path += "/" + p
	}
	return path, nil
}
