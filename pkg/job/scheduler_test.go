package job

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spacecore/spacecore/pkg/errors"
	"github.com/spacecore/spacecore/pkg/eventbus"
	"github.com/spacecore/spacecore/pkg/store"
)

type fakeJobStore struct {
	mu      sync.Mutex
	records map[string]*store.JobRecord
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{records: make(map[string]*store.JobRecord)}
}

func (f *fakeJobStore) GetJob(ctx context.Context, id string) (*store.JobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil, errors.NotFound("job", id)
	}
	return r, nil
}

func (f *fakeJobStore) ListJobsByStatus(ctx context.Context, status store.JobStatus) ([]*store.JobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*store.JobRecord
	for _, r := range f.records {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeJobStore) ListActiveJobs(ctx context.Context) ([]*store.JobRecord, error) {
	return nil, nil
}

func (f *fakeJobStore) ListJobsByDedupHash(ctx context.Context, hash uint64) ([]*store.JobRecord, error) {
	return nil, nil
}

func (f *fakeJobStore) CreateJob(ctx context.Context, j *store.JobRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *j
	f.records[j.ID] = &cp
	return nil
}

func (f *fakeJobStore) UpdateJob(ctx context.Context, j *store.JobRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.records[j.ID]
	if !ok {
		return errors.NotFound("job", j.ID)
	}
	existing.Status = j.Status
	existing.Progress = j.Progress
	if j.StateBlob != nil {
		existing.StateBlob = j.StateBlob
	}
	existing.ErrorMessage = j.ErrorMessage
	if j.StartedAt != nil {
		existing.StartedAt = j.StartedAt
	}
	if j.CompletedAt != nil {
		existing.CompletedAt = j.CompletedAt
	}
	return nil
}

func (f *fakeJobStore) status(id string) store.JobStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id].Status
}

// fakeJob runs until told to stop, checkpointing every loop iteration.
type fakeJob struct {
	name       string
	hash       uint64
	locationID string
	resumable  bool

	runs     chan struct{} // closed externally to let Run proceed to completion
	started  chan struct{}
	failWith error
}

func (j *fakeJob) Name() string      { return j.name }
func (j *fakeJob) Hash() uint64      { return j.hash }
func (j *fakeJob) Resumable() bool   { return j.resumable }
func (j *fakeJob) Serialize() ([]byte, error) { return []byte("state"), nil }
func (j *fakeJob) Resume(state []byte) error  { return nil }
func (j *fakeJob) LocationID() string         { return j.locationID }

func (j *fakeJob) Run(ctx context.Context, ckpt *Checkpointer) error {
	close(j.started)
	for {
		select {
		case <-j.runs:
			return j.failWith
		case <-time.After(5 * time.Millisecond):
			if err := ckpt.CheckInterrupt(ctx); err != nil {
				return err
			}
		}
	}
}

func newFakeJob(name string, hash uint64) *fakeJob {
	return &fakeJob{
		name:    name,
		hash:    hash,
		runs:    make(chan struct{}),
		started: make(chan struct{}),
	}
}

func TestSubmit_RejectsDuplicateHashWhileActive(t *testing.T) {
	st := newFakeJobStore()
	sched := New(st, eventbus.New(), 4, nil)

	j1 := newFakeJob("index.location", 42)
	id1, err := sched.Submit(context.Background(), j1)
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	<-j1.started

	j2 := newFakeJob("index.location", 42)
	_, err = sched.Submit(context.Background(), j2)
	if err == nil {
		t.Fatal("expected AlreadyRunning error for duplicate hash")
	}

	close(j1.runs)
	waitForStatus(t, st, id1, store.JobStatusCompleted)
}

func TestSubmit_RejectsDuplicateLocationWhileActive(t *testing.T) {
	st := newFakeJobStore()
	sched := New(st, eventbus.New(), 4, nil)

	j1 := newFakeJob("index.location", 1)
	j1.locationID = "loc-a"
	id1, err := sched.Submit(context.Background(), j1)
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	<-j1.started

	j2 := newFakeJob("index.location", 2)
	j2.locationID = "loc-a"
	_, err = sched.Submit(context.Background(), j2)
	if err == nil {
		t.Fatal("expected AlreadyRunning error for duplicate (name, location)")
	}

	close(j1.runs)
	waitForStatus(t, st, id1, store.JobStatusCompleted)
}

func TestJobCompletion_UpdatesStoreAndFreesSlot(t *testing.T) {
	st := newFakeJobStore()
	sched := New(st, eventbus.New(), 4, nil)

	j := newFakeJob("index.location", 1)
	id, err := sched.Submit(context.Background(), j)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	<-j.started
	close(j.runs)

	waitForStatus(t, st, id, store.JobStatusCompleted)

	sched.mu.Lock()
	_, stillTracked := sched.byID[id]
	sched.mu.Unlock()
	if stillTracked {
		t.Error("expected job bookkeeping to be cleared after completion")
	}
}

func TestPause_MarksJobPausedAndPersistsState(t *testing.T) {
	st := newFakeJobStore()
	sched := New(st, eventbus.New(), 4, nil)

	j := newFakeJob("index.location", 1)
	id, err := sched.Submit(context.Background(), j)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	<-j.started

	j.failWith = ErrPaused
	if err := sched.Pause(id); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	close(j.runs)

	waitForStatus(t, st, id, store.JobStatusPaused)
}

func TestShutdown_PausesRunningJobs(t *testing.T) {
	st := newFakeJobStore()
	sched := New(st, eventbus.New(), 4, nil)

	j := newFakeJob("index.location", 1)
	j.failWith = ErrPaused
	_, err := sched.Submit(context.Background(), j)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	<-j.started

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(j.runs)
	}()
	sched.Shutdown(2 * time.Second)
}

func waitForStatus(t *testing.T, st *fakeJobStore, id string, want store.JobStatus) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for job %s to reach status %s (got %s)", id, want, st.status(id))
		default:
			if st.status(id) == want {
				return
			}
			time.Sleep(2 * time.Millisecond)
		}
	}
}
