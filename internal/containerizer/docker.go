package containerizer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"

	"strata/internal/usage"
	"strata/pkg/logging"
)

const dockerSubsystem = "Docker"

// dockerAPI is the subset of the Docker SDK client used here.
type dockerAPI interface {
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerStats(ctx context.Context, containerID string, stream bool) (container.StatsResponseReader, error)
	ContainerExecCreate(ctx context.Context, containerID string, options container.ExecOptions) (container.ExecCreateResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, options container.ExecAttachOptions) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error)
	Close() error
}

// DockerClient implements Runtime on top of the Docker Engine API.
type DockerClient struct {
	api dockerAPI
}

// NewDockerClient creates a client from the standard DOCKER_* environment.
// host overrides DOCKER_HOST when non-empty.
func NewDockerClient(host string) (*DockerClient, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &DockerClient{api: cli}, nil
}

// Close releases the underlying HTTP transport.
func (d *DockerClient) Close() error {
	return d.api.Close()
}

// translate maps SDK errors onto the package sentinels.
func translate(handle string, err error) error {
	switch {
	case err == nil:
		return nil
	case errdefs.IsNotFound(err):
		return fmt.Errorf("%s: %w", handle, ErrNotFound)
	case client.IsErrConnectionFailed(err):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return err
	}
}

// Inspect implements Runtime.
func (d *DockerClient) Inspect(ctx context.Context, handle string) (*StateRecord, error) {
	resp, err := d.api.ContainerInspect(ctx, handle)
	if err != nil {
		return nil, translate(handle, err)
	}
	if resp.ContainerJSONBase == nil || resp.State == nil {
		return nil, fmt.Errorf("%s: %w", handle, ErrNotFound)
	}
	return stateFromInspect(resp), nil
}

func stateFromInspect(resp container.InspectResponse) *StateRecord {
	st := resp.State
	rec := &StateRecord{
		ID:         resp.ID,
		Name:       resp.Name,
		Status:     string(st.Status),
		Running:    st.Running,
		Paused:     st.Paused,
		Restarting: st.Restarting,
	}
	// A container that never ran reports exit code 0 with status "created".
	if st.Status != "created" {
		code := st.ExitCode
		rec.ExitCode = &code
	}
	if t, err := time.Parse(time.RFC3339Nano, st.StartedAt); err == nil {
		rec.StartedAt = t
	}
	if st.Health != nil {
		probe := &HealthProbe{
			Status:        string(st.Health.Status),
			FailingStreak: st.Health.FailingStreak,
		}
		for _, r := range st.Health.Log {
			if r == nil {
				continue
			}
			probe.Log = append(probe.Log, ProbeResult{
				Start:    r.Start,
				End:      r.End,
				ExitCode: r.ExitCode,
				Output:   r.Output,
			})
		}
		rec.Health = probe
	}
	return rec
}

// Logs implements Runtime.
func (d *DockerClient) Logs(ctx context.Context, handle string, req LogsRequest) (io.ReadCloser, error) {
	opts := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     req.Follow,
		Timestamps: req.Timestamps,
		Tail:       "all",
	}
	if req.Tail > 0 {
		opts.Tail = strconv.Itoa(req.Tail)
	}
	if !req.Since.IsZero() {
		opts.Since = strconv.FormatInt(req.Since.Unix(), 10)
	}
	if !req.Until.IsZero() {
		opts.Until = strconv.FormatInt(req.Until.Unix(), 10)
	}

	logging.Debug(dockerSubsystem, "Opening logs for %s (follow=%t tail=%s)", handle, req.Follow, opts.Tail)
	rc, err := d.api.ContainerLogs(ctx, handle, opts)
	if err != nil {
		return nil, translate(handle, err)
	}
	return rc, nil
}

// Stats implements Runtime. It asks for a single non-streamed sample, for
// which the engine fills in the previous CPU reading as well.
func (d *DockerClient) Stats(ctx context.Context, handle string) (*StatsSnapshot, error) {
	resp, err := d.api.ContainerStats(ctx, handle, false)
	if err != nil {
		return nil, translate(handle, err)
	}
	defer resp.Body.Close()

	var raw container.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode stats for %s: %w", handle, err)
	}
	return snapshotFromStats(raw), nil
}

func snapshotFromStats(raw container.StatsResponse) *StatsSnapshot {
	snap := &StatsSnapshot{
		CPU: usage.CPUSample{
			TotalUsage:  raw.CPUStats.CPUUsage.TotalUsage,
			SystemUsage: raw.CPUStats.SystemUsage,
		},
		PreviousCPU: usage.CPUSample{
			TotalUsage:  raw.PreCPUStats.CPUUsage.TotalUsage,
			SystemUsage: raw.PreCPUStats.SystemUsage,
		},
		OnlineCPUs:  raw.CPUStats.OnlineCPUs,
		PerCPU:      len(raw.CPUStats.CPUUsage.PercpuUsage),
		MemoryUsage: raw.MemoryStats.Usage,
		MemoryLimit: raw.MemoryStats.Limit,
		Networks:    make(map[string]usage.InterfaceCounters, len(raw.Networks)),
	}
	// cgroup v2 reports inactive_file, v1 reports cache.
	if v, ok := raw.MemoryStats.Stats["inactive_file"]; ok {
		snap.MemoryCache = v
	} else if v, ok := raw.MemoryStats.Stats["cache"]; ok {
		snap.MemoryCache = v
	}
	for name, n := range raw.Networks {
		snap.Networks[name] = usage.InterfaceCounters{RxBytes: n.RxBytes, TxBytes: n.TxBytes}
	}
	for _, e := range raw.BlkioStats.IoServiceBytesRecursive {
		snap.BlockIO = append(snap.BlockIO, usage.BlockIOEntry{Op: e.Op, Value: e.Value})
	}
	return snap
}

// Exec implements Runtime.
func (d *DockerClient) Exec(ctx context.Context, handle string, cmd []string) (ExecResult, error) {
	created, err := d.api.ContainerExecCreate(ctx, handle, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return ExecResult{}, translate(handle, err)
	}

	attached, err := d.api.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return ExecResult{}, translate(handle, err)
	}
	defer attached.Close()

	output, err := io.ReadAll(attached.Reader)
	if err != nil {
		return ExecResult{}, fmt.Errorf("failed to read exec output from %s: %w", handle, err)
	}

	inspect, err := d.api.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return ExecResult{Output: output}, translate(handle, err)
	}
	return ExecResult{Output: output, ExitCode: inspect.ExitCode}, nil
}
