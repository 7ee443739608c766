package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spacecore/spacecore/pkg/errors"
	"github.com/spacecore/spacecore/pkg/identity"
	"github.com/spacecore/spacecore/pkg/indexer"
	"github.com/spacecore/spacecore/pkg/job/copyjob"
	"github.com/spacecore/spacecore/pkg/store"
)

// RegisterCoreMethods wires every Core-scoped method the CLI and daemon
// need (§6.1: location, index, file copy, job, device, volume) into r.
// Called once at daemon/CLI startup against a Registry built over a fully
// assembled RequestContext's collaborators.
func RegisterCoreMethods(r *Registry) {
	r.MustRegister("action:locations.add.input.v1", KindAction, ScopeCore, handleLocationAdd)
	r.MustRegister("query:locations.list.input.v1", KindQuery, ScopeCore, handleLocationList)
	r.MustRegister("action:locations.remove.input.v1", KindAction, ScopeCore, handleLocationRemove)

	r.MustRegister("query:volumes.list.input.v1", KindQuery, ScopeCore, handleVolumeList)

	r.MustRegister("action:jobs.cancel.input.v1", KindAction, ScopeCore, handleJobCancel)
	r.MustRegister("action:jobs.pause.input.v1", KindAction, ScopeCore, handleJobPause)
	r.MustRegister("query:jobs.list.input.v1", KindQuery, ScopeCore, handleJobList)
	r.MustRegister("query:jobs.status.input.v1", KindQuery, ScopeCore, handleJobStatus)

	r.MustRegister("action:files.copy.input.v1", KindAction, ScopeCore, handleFileCopy)

	r.MustRegister("action:index.location.input.v1", KindAction, ScopeCore, handleIndexLocation)
	r.MustRegister("action:index.quick_scan.input.v1", KindAction, ScopeCore, handleIndexQuickScan)

	r.MustRegister("query:devices.list.input.v1", KindQuery, ScopeCore, handleDeviceList)
	r.MustRegister("action:devices.pair.host.input.v1", KindAction, ScopeCore, handleDevicePairHost)
	r.MustRegister("action:devices.pair.join.input.v1", KindAction, ScopeCore, handleDevicePairJoin)
	r.MustRegister("action:devices.unpair.input.v1", KindAction, ScopeCore, handleDeviceUnpair)
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, errors.InvalidArgument("malformed request: " + err.Error())
	}
	return v, nil
}

// --- locations ---

type locationAddInput struct {
	Path string `json:"path"`
}

type locationOutput struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

func handleLocationAdd(ctx context.Context, rc *RequestContext, raw json.RawMessage) (any, error) {
	in, err := decode[locationAddInput](raw)
	if err != nil {
		return nil, err
	}
	if in.Path == "" {
		return nil, errors.InvalidArgument("path is required")
	}
	localDevice, err := rc.Core.Store.GetDevice(ctx, rc.Core.Device.UUID)
	if err != nil {
		return nil, err
	}
	loc := &store.Location{DeviceID: localDevice.ID, Name: in.Path, IndexMode: store.IndexModeShallow, ScanState: store.ScanStatePending}
	uuid, err := rc.Core.Store.CreateLocation(ctx, loc)
	if err != nil {
		return nil, err
	}
	return locationOutput{UUID: uuid, Name: in.Path}, nil
}

func handleLocationList(ctx context.Context, rc *RequestContext, _ json.RawMessage) (any, error) {
	locs, err := rc.Core.Store.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]locationOutput, 0, len(locs))
	for _, l := range locs {
		out = append(out, locationOutput{UUID: l.UUID, Name: l.Name})
	}
	return out, nil
}

type locationRemoveInput struct {
	UUID string `json:"uuid"`
}

func handleLocationRemove(ctx context.Context, rc *RequestContext, raw json.RawMessage) (any, error) {
	in, err := decode[locationRemoveInput](raw)
	if err != nil {
		return nil, err
	}
	if in.UUID == "" {
		return nil, errors.InvalidArgument("uuid is required")
	}
	return nil, rc.Core.Store.DeleteLocation(ctx, in.UUID)
}

// --- volumes ---

type volumeOutput struct {
	Fingerprint    string `json:"fingerprint"`
	Name           string `json:"name"`
	MountPoint     string `json:"mount_point"`
	TotalBytes     uint64 `json:"total_bytes"`
	AvailableBytes uint64 `json:"available_bytes"`
}

func handleVolumeList(ctx context.Context, rc *RequestContext, _ json.RawMessage) (any, error) {
	mounted := rc.Core.Volumes.Mounted()
	out := make([]volumeOutput, 0, len(mounted))
	for _, v := range mounted {
		out = append(out, volumeOutput{
			Fingerprint:    v.Fingerprint,
			Name:           v.Name,
			MountPoint:     v.MountPoint,
			TotalBytes:     v.TotalBytes,
			AvailableBytes: v.AvailableBytes,
		})
	}
	return out, nil
}

// --- jobs ---

type jobIDInput struct {
	JobID string `json:"job_id"`
}

func handleJobCancel(_ context.Context, rc *RequestContext, raw json.RawMessage) (any, error) {
	in, err := decode[jobIDInput](raw)
	if err != nil {
		return nil, err
	}
	return nil, rc.Jobs.Cancel(in.JobID)
}

func handleJobPause(_ context.Context, rc *RequestContext, raw json.RawMessage) (any, error) {
	in, err := decode[jobIDInput](raw)
	if err != nil {
		return nil, err
	}
	return nil, rc.Jobs.Pause(in.JobID)
}

type jobOutput struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Error    string  `json:"error,omitempty"`
}

func handleJobList(ctx context.Context, rc *RequestContext, _ json.RawMessage) (any, error) {
	records, err := rc.Core.Store.ListActiveJobs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]jobOutput, 0, len(records))
	for _, r := range records {
		out = append(out, jobOutput{ID: r.ID, Name: r.Name, Status: string(r.Status), Progress: r.Progress, Error: r.ErrorMessage})
	}
	return out, nil
}

func handleJobStatus(ctx context.Context, rc *RequestContext, raw json.RawMessage) (any, error) {
	in, err := decode[jobIDInput](raw)
	if err != nil {
		return nil, err
	}
	r, err := rc.Core.Store.GetJob(ctx, in.JobID)
	if err != nil {
		return nil, err
	}
	return jobOutput{ID: r.ID, Name: r.Name, Status: string(r.Status), Progress: r.Progress, Error: r.ErrorMessage}, nil
}

// --- files ---

type sdPathInput struct {
	DeviceID  string `json:"device_id,omitempty"`
	Path      string `json:"path,omitempty"`
	ContentID string `json:"content_id,omitempty"`
}

func (p sdPathInput) toSdPath() identity.SdPath {
	if p.ContentID != "" {
		return identity.Content(p.ContentID)
	}
	return identity.Physical(p.DeviceID, p.Path)
}

type fileCopyInput struct {
	Sources            []sdPathInput `json:"sources"`
	Destination        sdPathInput   `json:"destination"`
	Overwrite          bool          `json:"overwrite"`
	VerifyChecksum     bool          `json:"verify_checksum"`
	PreserveTimestamps bool          `json:"preserve_timestamps"`
	Move               bool          `json:"move"`
}

type jobSubmittedOutput struct {
	JobID string `json:"job_id"`
}

func handleFileCopy(ctx context.Context, rc *RequestContext, raw json.RawMessage) (any, error) {
	in, err := decode[fileCopyInput](raw)
	if err != nil {
		return nil, err
	}
	if len(in.Sources) == 0 {
		return nil, errors.InvalidArgument("at least one source is required")
	}
	sources := make([]identity.SdPath, 0, len(in.Sources))
	for _, s := range in.Sources {
		sources = append(sources, s.toSdPath())
	}
	j := copyjob.New(rc.Resolver, rc.Core.Volumes, sources, in.Destination.toSdPath(), copyjob.Options{
		Overwrite:          in.Overwrite,
		VerifyChecksum:     in.VerifyChecksum,
		PreserveTimestamps: in.PreserveTimestamps,
		DeleteAfterCopy:    in.Move,
	})
	id, err := rc.Jobs.Submit(ctx, j)
	if err != nil {
		return nil, err
	}
	return jobSubmittedOutput{JobID: id}, nil
}

// --- index ---

type indexLocationInput struct {
	LocationUUID string `json:"location_uuid"`
}

func submitIndexJob(ctx context.Context, rc *RequestContext, locationUUID string, opts indexer.Options) (any, error) {
	if locationUUID == "" {
		return nil, errors.InvalidArgument("location_uuid is required")
	}
	loc, err := rc.Core.Store.GetLocation(ctx, locationUUID)
	if err != nil {
		return nil, err
	}
	if cfg := rc.Core.Config; cfg != nil {
		if opts.SmallFileThreshold == 0 {
			opts.SmallFileThreshold = cfg.Indexer.SmallFileThreshold.Uint64()
		}
		if opts.MtimeTolerance == 0 {
			opts.MtimeTolerance = time.Duration(cfg.Indexer.MtimeToleranceMs) * time.Millisecond
		}
	}
	j := indexer.New(rc.Core.Store, loc.ID, loc.UUID, loc.Name, opts)
	id, err := rc.Jobs.Submit(ctx, j)
	if err != nil {
		return nil, err
	}
	return jobSubmittedOutput{JobID: id}, nil
}

func handleIndexLocation(ctx context.Context, rc *RequestContext, raw json.RawMessage) (any, error) {
	in, err := decode[indexLocationInput](raw)
	if err != nil {
		return nil, err
	}
	return submitIndexJob(ctx, rc, in.LocationUUID, indexer.Options{UseGitignore: true})
}

func handleIndexQuickScan(ctx context.Context, rc *RequestContext, raw json.RawMessage) (any, error) {
	in, err := decode[indexLocationInput](raw)
	if err != nil {
		return nil, err
	}
	return submitIndexJob(ctx, rc, in.LocationUUID, indexer.Options{SkipIdentify: true})
}

// --- devices ---

type deviceOutput struct {
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	IsLocal  bool   `json:"is_local"`
	Online   bool   `json:"online"`
	PairedAt string `json:"paired_at,omitempty"`
}

func handleDeviceList(ctx context.Context, rc *RequestContext, _ json.RawMessage) (any, error) {
	devices, err := rc.Core.Store.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]deviceOutput, 0, len(devices))
	for _, d := range devices {
		o := deviceOutput{UUID: d.UUID, Name: d.Name, IsLocal: d.IsLocal}
		if rc.Sync != nil {
			o.Online = rc.Sync.IsOnline(d.UUID)
		}
		if d.PairedAt != nil {
			o.PairedAt = d.PairedAt.Format(time.RFC3339)
		}
		out = append(out, o)
	}
	return out, nil
}

type devicePairHostInput struct {
	TimeoutSeconds int `json:"timeout_seconds"`
}

type devicePaired struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
}

func handleDevicePairHost(ctx context.Context, rc *RequestContext, raw json.RawMessage) (any, error) {
	in, err := decode[devicePairHostInput](raw)
	if err != nil {
		return nil, err
	}
	if in.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(in.TimeoutSeconds)*time.Second)
		defer cancel()
	}
	_, sess, err := rc.Pairing.Host(ctx)
	if err != nil {
		return nil, err
	}
	if err := rc.Pairing.Confirm(ctx, sess); err != nil {
		return nil, err
	}
	remote := sess.RemoteDevice()
	return devicePaired{DeviceID: remote.DeviceID, Name: remote.Name}, nil
}

type devicePairJoinInput struct {
	Address string   `json:"address"`
	Words   []string `json:"words"`
}

func handleDevicePairJoin(ctx context.Context, rc *RequestContext, raw json.RawMessage) (any, error) {
	in, err := decode[devicePairJoinInput](raw)
	if err != nil {
		return nil, err
	}
	sess, err := rc.Pairing.Join(ctx, in.Address, in.Words)
	if err != nil {
		return nil, err
	}
	if err := rc.Pairing.Confirm(ctx, sess); err != nil {
		return nil, err
	}
	remote := sess.RemoteDevice()
	return devicePaired{DeviceID: remote.DeviceID, Name: remote.Name}, nil
}

type deviceUnpairInput struct {
	DeviceID string `json:"device_id"`
}

func handleDeviceUnpair(ctx context.Context, rc *RequestContext, raw json.RawMessage) (any, error) {
	in, err := decode[deviceUnpairInput](raw)
	if err != nil {
		return nil, err
	}
	if in.DeviceID == "" {
		return nil, errors.InvalidArgument("device_id is required")
	}
	if rc.Sync != nil {
		if err := rc.Sync.Unpair(ctx, in.DeviceID); err != nil {
			return nil, err
		}
	}
	return nil, rc.Pairing.Unpair(ctx, in.DeviceID)
}
