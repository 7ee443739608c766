package job

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spacecore/spacecore/internal/logger"
	"github.com/spacecore/spacecore/pkg/errors"
	"github.com/spacecore/spacecore/pkg/eventbus"
	"github.com/spacecore/spacecore/pkg/metrics"
	"github.com/spacecore/spacecore/pkg/store"
)

// checkpointUnits is how many units of work (e.g. files copied, batches
// processed) elapse between state checkpoints.
const checkpointUnits = 20

// Factory reconstructs a Job of a given name from its serialized state,
// used when auto-resuming Paused jobs after a restart.
type Factory func(state []byte) (Job, error)

type running struct {
	id         string
	name       string
	locationID string
	job        Job
	interrupt  chan interruptKind
	cancel     context.CancelFunc
}

// Scheduler dispatches jobs onto a bounded worker pool, persists their
// lifecycle to the store, and emits lifecycle events on the bus.
type Scheduler struct {
	store   store.JobStore
	bus     *eventbus.Bus
	sem     chan struct{}
	metrics metrics.JobMetrics

	mu           sync.Mutex
	byID         map[string]*running
	byHash       map[uint64]string
	byNameAndLoc map[string]string // "name\x00locationID" -> job id
	factories    map[string]Factory
	wg           sync.WaitGroup
}

// New constructs a Scheduler with the given worker pool capacity. m is
// optional; pass nil to disable instrumentation.
func New(st store.JobStore, bus *eventbus.Bus, poolSize int, m metrics.JobMetrics) *Scheduler {
	if poolSize <= 0 {
		poolSize = 4
	}
	return &Scheduler{
		store:        st,
		bus:          bus,
		sem:          make(chan struct{}, poolSize),
		metrics:      m,
		byID:         make(map[string]*running),
		byHash:       make(map[uint64]string),
		byNameAndLoc: make(map[string]string),
		factories:    make(map[string]Factory),
	}
}

func (s *Scheduler) setActiveJobsLocked() {
	if s.metrics == nil {
		return
	}
	s.metrics.SetActiveJobs(len(s.byID))
}

// RegisterFactory associates a job name with a constructor used to
// reconstruct it from serialized state during ResumeAll.
func (s *Scheduler) RegisterFactory(name string, f Factory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factories[name] = f
}

func locKey(name, locationID string) string { return name + "\x00" + locationID }

// Submit dispatches a new job. It rejects a submission whose Hash matches
// an already-active job, and (for LocationScoped jobs) one whose
// (name, location) pair matches an already-active job.
func (s *Scheduler) Submit(ctx context.Context, j Job) (string, error) {
	hash := j.Hash()
	var locationID string
	if ls, ok := j.(LocationScoped); ok {
		locationID = ls.LocationID()
	}

	s.mu.Lock()
	if existingID, ok := s.byHash[hash]; ok {
		s.mu.Unlock()
		return "", errors.AlreadyRunning(existingID)
	}
	if locationID != "" {
		if existingID, ok := s.byNameAndLoc[locKey(j.Name(), locationID)]; ok {
			s.mu.Unlock()
			return "", errors.AlreadyRunning(existingID)
		}
	}
	s.mu.Unlock()

	id := uuid.New().String()
	now := time.Now()
	record := &store.JobRecord{
		ID:        id,
		Name:      j.Name(),
		Status:    store.JobStatusQueued,
		DedupHash: hash,
		CreatedAt: now,
	}
	if err := s.store.CreateJob(ctx, record); err != nil {
		return "", err
	}

	s.bus.Publish(ctx, eventbus.Event{
		Kind: eventbus.KindJobQueued,
		Job:  &eventbus.JobEvent{JobID: id, Name: j.Name()},
	})
	if s.metrics != nil {
		s.metrics.RecordJobQueued(j.Name())
	}

	s.dispatch(id, j, hash, locationID)
	return id, nil
}

// dispatch registers bookkeeping for a job and launches its goroutine,
// which blocks on the pool semaphore until a worker slot is free.
func (s *Scheduler) dispatch(id string, j Job, hash uint64, locationID string) {
	runCtx, cancel := context.WithCancel(context.Background())
	r := &running{
		id:         id,
		name:       j.Name(),
		locationID: locationID,
		job:        j,
		interrupt:  make(chan interruptKind, 1),
		cancel:     cancel,
	}

	s.mu.Lock()
	s.byID[id] = r
	s.byHash[hash] = id
	if locationID != "" {
		s.byNameAndLoc[locKey(j.Name(), locationID)] = id
	}
	s.setActiveJobsLocked()
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case s.sem <- struct{}{}:
		case <-runCtx.Done():
			s.finish(id, hash, locationID)
			return
		}
		defer func() { <-s.sem }()
		s.run(runCtx, r, hash, locationID)
	}()
}

func (s *Scheduler) run(ctx context.Context, r *running, hash uint64, locationID string) {
	now := time.Now()
	_ = s.store.UpdateJob(ctx, &store.JobRecord{ID: r.id, Name: r.name, Status: store.JobStatusRunning, StartedAt: &now})
	s.bus.Publish(ctx, eventbus.Event{Kind: eventbus.KindJobStarted, Job: &eventbus.JobEvent{JobID: r.id, Name: r.name}})
	if s.metrics != nil {
		s.metrics.RecordJobStarted(r.name)
	}
	started := now

	ckpt := &Checkpointer{
		jobID:       r.id,
		interrupt:   r.interrupt,
		everyNUnits: checkpointUnits,
		serialize:   r.job.Serialize,
		persist: func(ctx context.Context, state []byte) error {
			return s.store.UpdateJob(ctx, &store.JobRecord{ID: r.id, Name: r.name, Status: store.JobStatusRunning, StateBlob: state})
		},
		progress: func(done, total float64) {
			frac := 0.0
			if total > 0 {
				frac = done / total
			}
			_ = s.store.UpdateJob(context.Background(), &store.JobRecord{ID: r.id, Name: r.name, Status: store.JobStatusRunning, Progress: frac})
			s.bus.Publish(context.Background(), eventbus.Event{
				Kind: eventbus.KindJobProgress,
				Job:  &eventbus.JobEvent{JobID: r.id, Name: r.name, Progress: frac},
			})
		},
	}

	err := r.job.Run(ctx, ckpt)
	s.finish(r.id, hash, locationID)

	switch {
	case err == nil:
		now := time.Now()
		_ = s.store.UpdateJob(context.Background(), &store.JobRecord{ID: r.id, Name: r.name, Status: store.JobStatusCompleted, Progress: 1, CompletedAt: &now})
		s.bus.Publish(context.Background(), eventbus.Event{Kind: eventbus.KindJobCompleted, Job: &eventbus.JobEvent{JobID: r.id, Name: r.name}})
		if s.metrics != nil {
			s.metrics.RecordJobCompleted(r.name, now.Sub(started))
		}
		s.dispatchSuccessors(r.job)

	case err == ErrPaused:
		s.handlePause(r)

	case err == context.Canceled:
		_ = s.store.UpdateJob(context.Background(), &store.JobRecord{ID: r.id, Name: r.name, Status: store.JobStatusCanceled})
		s.bus.Publish(context.Background(), eventbus.Event{Kind: eventbus.KindJobCancelled, Job: &eventbus.JobEvent{JobID: r.id, Name: r.name}})
		if s.metrics != nil {
			s.metrics.RecordJobCancelled(r.name)
		}

	default:
		logger.Error("job failed", "job_id", r.id, "name", r.name, "error", err)
		_ = s.store.UpdateJob(context.Background(), &store.JobRecord{ID: r.id, Name: r.name, Status: store.JobStatusFailed, ErrorMessage: err.Error()})
		s.bus.Publish(context.Background(), eventbus.Event{Kind: eventbus.KindJobFailed, Job: &eventbus.JobEvent{JobID: r.id, Name: r.name, Error: err.Error()}})
		if s.metrics != nil {
			s.metrics.RecordJobFailed(r.name, time.Since(started))
		}
	}
}

func (s *Scheduler) handlePause(r *running) {
	state, serErr := r.job.Serialize()
	if serErr != nil {
		state = nil
	}
	_ = s.store.UpdateJob(context.Background(), &store.JobRecord{ID: r.id, Name: r.name, Status: store.JobStatusPaused, StateBlob: state})
	s.bus.Publish(context.Background(), eventbus.Event{Kind: eventbus.KindJobPaused, Job: &eventbus.JobEvent{JobID: r.id, Name: r.name}})
}

func (s *Scheduler) dispatchSuccessors(j Job) {
	chainer, ok := j.(Chainer)
	if !ok {
		return
	}
	for _, successor := range chainer.Successors() {
		if _, err := s.Submit(context.Background(), successor); err != nil {
			logger.Error("failed to dispatch chained job", "name", successor.Name(), "error", err)
		}
	}
}

func (s *Scheduler) finish(id string, hash uint64, locationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	delete(s.byID, id)
	delete(s.byHash, hash)
	if ok && locationID != "" {
		delete(s.byNameAndLoc, locKey(r.name, locationID))
	}
	s.setActiveJobsLocked()
}

// Pause requests that the running job with the given id serialize its
// state and stop at its next CheckInterrupt call.
func (s *Scheduler) Pause(jobID string) error {
	return s.signal(jobID, interruptPause)
}

// Cancel requests that the running job with the given id stop
// immediately; its in-flight state is discarded.
func (s *Scheduler) Cancel(jobID string) error {
	s.mu.Lock()
	r, ok := s.byID[jobID]
	s.mu.Unlock()
	if !ok {
		return errors.NotFound("job", jobID)
	}
	r.cancel()
	return s.signal(jobID, interruptCancel)
}

func (s *Scheduler) signal(jobID string, kind interruptKind) error {
	s.mu.Lock()
	r, ok := s.byID[jobID]
	s.mu.Unlock()
	if !ok {
		return errors.NotFound("job", jobID)
	}
	select {
	case r.interrupt <- kind:
	default:
	}
	return nil
}

// Resume re-dispatches a Paused job using the given reconstructed Job
// (already primed with Resume(state)).
func (s *Scheduler) Resume(ctx context.Context, jobID string, j Job) error {
	var locationID string
	if ls, ok := j.(LocationScoped); ok {
		locationID = ls.LocationID()
	}
	s.bus.Publish(ctx, eventbus.Event{Kind: eventbus.KindJobResumed, Job: &eventbus.JobEvent{JobID: jobID, Name: j.Name()}})
	s.dispatch(jobID, j, j.Hash(), locationID)
	return nil
}

// ResumeAll loads every Paused, Resumable job from the store and
// re-dispatches it via its registered Factory, in parent-before-child
// order (a record goes first when it has no ParentID or its parent is not
// itself paused).
func (s *Scheduler) ResumeAll(ctx context.Context) error {
	records, err := s.store.ListJobsByStatus(ctx, store.JobStatusPaused)
	if err != nil {
		return err
	}

	paused := make(map[string]bool, len(records))
	for _, rec := range records {
		paused[rec.ID] = true
	}
	byParent := make(map[string][]*store.JobRecord)
	var roots []*store.JobRecord
	for _, rec := range records {
		if rec.ParentID == nil || !paused[*rec.ParentID] {
			roots = append(roots, rec)
		} else {
			byParent[*rec.ParentID] = append(byParent[*rec.ParentID], rec)
		}
	}

	var walk func(rec *store.JobRecord) error
	walk = func(rec *store.JobRecord) error {
		s.mu.Lock()
		factory, ok := s.factories[rec.Name]
		s.mu.Unlock()
		if !ok {
			logger.Warn("no factory registered for resumable job, skipping", "name", rec.Name)
			return nil
		}
		j, err := factory(rec.StateBlob)
		if err != nil {
			return err
		}
		if !j.Resumable() {
			return nil
		}
		if err := j.Resume(rec.StateBlob); err != nil {
			return err
		}
		if err := s.Resume(ctx, rec.ID, j); err != nil {
			return err
		}
		for _, child := range byParent[rec.ID] {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}

	for _, rec := range roots {
		if err := walk(rec); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown signals every running job to pause and waits up to timeout for
// them to finish serializing, per the spec's process-shutdown contract.
func (s *Scheduler) Shutdown(timeout time.Duration) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		_ = s.Pause(id)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		logger.Warn("scheduler shutdown timed out waiting for jobs to pause")
	}
}
