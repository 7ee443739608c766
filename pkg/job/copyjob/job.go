package copyjob

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/spacecore/spacecore/internal/telemetry"
	"github.com/spacecore/spacecore/pkg/errors"
	"github.com/spacecore/spacecore/pkg/hash"
	"github.com/spacecore/spacecore/pkg/identity"
	"github.com/spacecore/spacecore/pkg/job"
)

// checkpointEveryNFiles matches the scheduler's general checkpoint
// cadence; copy progress is also reported per-file independently of this.
const checkpointEveryNFiles = 20

// Options controls copy/move behavior for a single job.
type Options struct {
	Overwrite          bool
	VerifyChecksum     bool
	PreserveTimestamps bool
	DeleteAfterCopy    bool // true turns this into a move
}

// Progress is the structured progress payload reported via ReportProgress.
type Progress struct {
	CurrentFile        string
	FilesCopied        int
	TotalFiles         int
	BytesCopied        int64
	TotalBytes         int64
	CurrentOperation   string
	EstimatedRemaining time.Duration
}

// CopyError records one source that failed, without aborting the batch.
type CopyError struct {
	Source      string
	Destination string
	Error       string
}

// Output summarizes a completed copy/move job.
type Output struct {
	CopiedCount  int
	FailedCount  int
	TotalBytes   int64
	Duration     time.Duration
	FailedCopies []CopyError
	IsMove       bool
}

// Resolver resolves an SdPath to a local filesystem path, used for
// sources/destination that live on the executing device.
type Resolver interface {
	ResolveLocal(ctx context.Context, p identity.SdPath) (string, error)
}

// Job is a resumable file copy/move job. It implements pkg/job.Job; it
// does not implement job.LocationScoped, so the scheduler dedups it by
// Hash only.
type Job struct {
	Sources     []identity.SdPath
	Destination identity.SdPath
	Options     Options

	resolver Resolver
	lookup   VolumeLookup

	completedIndices map[int]bool
	startedAt        time.Time
	output           Output
	progress         Progress
}

// Progress returns the most recently reported structured progress, for
// status commands/UIs that want more than the bare (done, total) fraction
// the scheduler's Checkpointer tracks.
func (j *Job) Progress() Progress { return j.progress }

// Output returns the job's result summary. Only meaningful after Run
// has returned nil.
func (j *Job) Output() Output { return j.output }

// New constructs a file copy job over the given sources/destination.
func New(resolver Resolver, lookup VolumeLookup, sources []identity.SdPath, destination identity.SdPath, opts Options) *Job {
	return &Job{
		Sources:          sources,
		Destination:      destination,
		Options:          opts,
		resolver:         resolver,
		lookup:           lookup,
		completedIndices: make(map[int]bool),
		startedAt:        time.Now(),
	}
}

func (j *Job) Name() string {
	if j.Options.DeleteAfterCopy {
		return "file.move"
	}
	return "file.copy"
}

// Hash dedups by the exact (sources, destination, options) tuple: two
// submissions are the same job only if they'd do the exact same work.
func (j *Job) Hash() uint64 {
	state, _ := j.Serialize()
	var h uint64 = 1469598103934665603 // FNV-1a offset basis
	for _, b := range state {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return h
}

func (j *Job) Resumable() bool { return true }

type jobState struct {
	Sources          []identity.SdPath
	Destination      identity.SdPath
	Options          Options
	CompletedIndices []int
}

func (j *Job) Serialize() ([]byte, error) {
	indices := make([]int, 0, len(j.completedIndices))
	for i := range j.completedIndices {
		indices = append(indices, i)
	}
	return json.Marshal(jobState{
		Sources:          j.Sources,
		Destination:      j.Destination,
		Options:          j.Options,
		CompletedIndices: indices,
	})
}

func (j *Job) Resume(state []byte) error {
	var s jobState
	if err := json.Unmarshal(state, &s); err != nil {
		return err
	}
	j.Sources = s.Sources
	j.Destination = s.Destination
	j.Options = s.Options
	j.completedIndices = make(map[int]bool, len(s.CompletedIndices))
	for _, i := range s.CompletedIndices {
		j.completedIndices[i] = true
	}
	return nil
}

// Run executes the copy/move, skipping indices already recorded as
// completed (the set is keyed by index, not path, so reordering sources
// between a pause and its resume invalidates resumption).
func (j *Job) Run(ctx context.Context, ckpt *job.Checkpointer) error {
	ctx, span := telemetry.StartSpan(ctx, j.Name())
	defer span.End()
	telemetry.SetAttributes(ctx, attribute.Int("copyjob.source_count", len(j.Sources)))

	if err := j.run(ctx, ckpt); err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}
	return nil
}

func (j *Job) run(ctx context.Context, ckpt *job.Checkpointer) error {
	totalBytes := j.estimateTotalBytes(ctx)
	var bytesCopied int64
	copiedCount := 0

	for i, src := range j.Sources {
		if j.completedIndices[i] {
			copiedCount++
			continue
		}
		if err := ckpt.CheckInterrupt(ctx); err != nil {
			return err
		}

		srcPath, err := j.resolver.ResolveLocal(ctx, src)
		if err != nil {
			j.recordFailure(src, j.Destination, err)
			continue
		}
		dstPath, err := j.destinationPath(ctx, src)
		if err != nil {
			j.recordFailure(src, j.Destination, err)
			continue
		}

		j.progress = Progress{
			CurrentFile:      srcPath,
			FilesCopied:      copiedCount,
			TotalFiles:       len(j.Sources),
			BytesCopied:      bytesCopied,
			TotalBytes:       totalBytes,
			CurrentOperation: string(route(j.lookup, srcPath, dstPath, j.Options.DeleteAfterCopy).kind),
		}
		ckpt.ReportProgress(float64(bytesCopied), float64(totalBytes))

		base := bytesCopied
		var inFlight int64
		n, err := j.copyOne(ctx, srcPath, dstPath, func(delta int64) {
			inFlight += delta
			j.progress.BytesCopied = base + inFlight
			ckpt.ReportProgress(float64(base+inFlight), float64(totalBytes))
		})
		if err != nil {
			j.recordFailure(src, j.Destination, err)
			continue
		}

		j.completedIndices[i] = true
		copiedCount++
		bytesCopied += n
		j.output.TotalBytes += n

		if copiedCount%checkpointEveryNFiles == 0 {
			if err := ckpt.Checkpoint(ctx, checkpointEveryNFiles); err != nil {
				return err
			}
		}
	}

	j.output.CopiedCount = copiedCount
	j.output.FailedCount = len(j.output.FailedCopies)
	j.output.Duration = time.Since(j.startedAt)
	j.output.IsMove = j.Options.DeleteAfterCopy
	return nil
}

func (j *Job) recordFailure(src, dst identity.SdPath, err error) {
	j.output.FailedCopies = append(j.output.FailedCopies, CopyError{
		Source:      src.Path,
		Destination: dst.Path,
		Error:       err.Error(),
	})
}

// destinationPath joins the destination directory with the source's base
// name when copying multiple sources into one target directory.
func (j *Job) destinationPath(ctx context.Context, src identity.SdPath) (string, error) {
	dstBase, err := j.resolver.ResolveLocal(ctx, j.Destination)
	if err != nil {
		return "", err
	}
	if len(j.Sources) <= 1 {
		return dstBase, nil
	}
	return filepath.Join(dstBase, filepath.Base(src.Path)), nil
}

func (j *Job) copyOne(ctx context.Context, srcPath, dstPath string, progress func(int64)) (int64, error) {
	if !j.Options.Overwrite {
		if _, err := os.Stat(dstPath); err == nil {
			return 0, errors.Conflict("destination exists and overwrite is false", dstPath)
		}
	}

	p := route(j.lookup, srcPath, dstPath, j.Options.DeleteAfterCopy)
	n, err := p.execute(ctx, srcPath, dstPath, progress)
	if err != nil {
		return 0, err
	}

	if j.Options.PreserveTimestamps && p.kind != strategyRename {
		if info, statErr := os.Stat(srcPath); statErr == nil {
			_ = os.Chtimes(dstPath, time.Now(), info.ModTime())
		}
	}

	if j.Options.VerifyChecksum && p.kind != strategyRename {
		if err := j.verify(srcPath, dstPath); err != nil {
			_ = os.Remove(dstPath)
			return 0, err
		}
	}

	if j.Options.DeleteAfterCopy && p.kind == strategyStream {
		if err := removeSource(srcPath); err != nil {
			return n, fmt.Errorf("copy succeeded but failed to delete source: %w", err)
		}
	}

	return n, nil
}

func (j *Job) verify(srcPath, dstPath string) error {
	srcID, err := hash.HashFile(srcPath, hash.SmallFileThreshold)
	if err != nil {
		return err
	}
	ok, err := hash.Verify(dstPath, srcID, hash.SmallFileThreshold)
	if err != nil {
		return err
	}
	if !ok {
		return errors.ChecksumMismatch(dstPath)
	}
	return nil
}

func removeSource(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return os.RemoveAll(path)
	}
	return os.Remove(path)
}

func (j *Job) estimateTotalBytes(ctx context.Context) int64 {
	var total int64
	for _, src := range j.Sources {
		localPath, err := j.resolver.ResolveLocal(ctx, src)
		if err != nil {
			continue
		}
		total += walkSize(localPath)
	}
	return total
}

// walkSize sums file sizes under path using an explicit stack, avoiding
// unbounded recursion on deep trees.
func walkSize(root string) int64 {
	var total int64
	stack := []string{root}
	for len(stack) > 0 {
		n := len(stack) - 1
		current := stack[n]
		stack = stack[:n]

		info, err := os.Stat(current)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		entries, err := os.ReadDir(current)
		if err != nil {
			continue
		}
		for _, e := range entries {
			stack = append(stack, filepath.Join(current, e.Name()))
		}
	}
	return total
}
