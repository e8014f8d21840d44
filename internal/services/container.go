package services

import (
	"context"
	"errors"
	"io"
	"strconv"

	"strata/internal/containerizer"
	"strata/internal/logstream"
	"strata/internal/usage"
	"strata/pkg/logging"
)

const containerSubsystem = "ContainerService"

// maxProbeLog bounds the probe history reported in health details.
const maxProbeLog = 5

// ContainerService manages one service of a compose project.
type ContainerService struct {
	desc      ServiceDescriptor
	project   string
	runtime   containerizer.Runtime
	lifecycle containerizer.Lifecycle
}

// NewContainerService creates an adapter for desc. Lifecycle commands are
// scoped to project; observation goes through runtime using the
// descriptor's RuntimeHandle.
func NewContainerService(desc ServiceDescriptor, project string, runtime containerizer.Runtime, lifecycle containerizer.Lifecycle) *ContainerService {
	desc.Kind = KindContainer
	return &ContainerService{
		desc:      desc,
		project:   project,
		runtime:   runtime,
		lifecycle: lifecycle,
	}
}

func (c *ContainerService) Name() string                  { return c.desc.Name }
func (c *ContainerService) Descriptor() ServiceDescriptor { return c.desc }

// Start brings the service up in the background.
func (c *ContainerService) Start(ctx context.Context) error {
	logging.Info(containerSubsystem, "Starting %s", c.desc.Name)
	return c.wrapErr("start", c.lifecycle.Up(ctx, c.project, c.desc.Name))
}

// Stop stops the service's container.
func (c *ContainerService) Stop(ctx context.Context) error {
	logging.Info(containerSubsystem, "Stopping %s", c.desc.Name)
	return c.wrapErr("stop", c.lifecycle.Stop(ctx, c.project, c.desc.Name))
}

// Restart restarts the service's container.
func (c *ContainerService) Restart(ctx context.Context) error {
	logging.Info(containerSubsystem, "Restarting %s", c.desc.Name)
	return c.wrapErr("restart", c.lifecycle.Restart(ctx, c.project, c.desc.Name))
}

// Status inspects the container and maps its state record.
func (c *ContainerService) Status(ctx context.Context) ServiceState {
	rec, err := c.runtime.Inspect(ctx, c.desc.RuntimeHandle)
	if err != nil {
		if errors.Is(err, containerizer.ErrNotFound) {
			return MapContainerState(nil)
		}
		logging.Warn(containerSubsystem, "Status lookup for %s failed: %v", c.desc.Name, err)
		return StateUnknown
	}
	return MapContainerState(rec)
}

// HealthCheck reports the container's health from a single inspection.
func (c *ContainerService) HealthCheck(ctx context.Context) HealthResult {
	rec, err := c.runtime.Inspect(ctx, c.desc.RuntimeHandle)
	if err != nil {
		if errors.Is(err, containerizer.ErrNotFound) {
			return HealthResult{Healthy: false, Message: "not found"}
		}
		return HealthResult{Healthy: false, Message: "unknown: " + err.Error()}
	}
	return containerHealth(rec)
}

func containerHealth(rec *containerizer.StateRecord) HealthResult {
	exitedOK := rec.Status == "exited" && rec.ExitCode != nil && *rec.ExitCode == 0
	switch {
	case exitedOK:
		return HealthResult{Healthy: true, Message: "completed successfully"}
	case !rec.Running:
		code := "unknown"
		if rec.ExitCode != nil {
			code = strconv.Itoa(*rec.ExitCode)
		}
		return HealthResult{Healthy: false, Message: "stopped (exit code: " + code + ")"}
	case rec.Health != nil:
		probes := rec.Health.Log
		if len(probes) > maxProbeLog {
			probes = probes[len(probes)-maxProbeLog:]
		}
		entries := make([]map[string]any, 0, len(probes))
		for _, p := range probes {
			entries = append(entries, map[string]any{
				"start":    p.Start,
				"end":      p.End,
				"exitCode": p.ExitCode,
				"output":   p.Output,
			})
		}
		return HealthResult{
			Healthy: rec.Health.Status == "healthy",
			Message: rec.Health.Status,
			Details: map[string]any{
				"failingStreak": rec.Health.FailingStreak,
				"log":           entries,
			},
		}
	default:
		return HealthResult{Healthy: true, Message: "running, no health check configured"}
	}
}

// Logs returns the container's output. Without Follow the selected lines
// are read and decoded up front; with Follow they are decoded as they
// arrive until ctx is cancelled or the container stops.
func (c *ContainerService) Logs(ctx context.Context, opts LogOptions) (*LogStream, error) {
	rc, err := c.runtime.Logs(ctx, c.desc.RuntimeHandle, containerizer.LogsRequest{
		Follow:     opts.Follow,
		Tail:       opts.tail(),
		Since:      opts.Since,
		Until:      opts.Until,
		Timestamps: opts.Timestamps,
	})
	if err != nil {
		return nil, c.wrapErr("logs", err)
	}

	if !opts.Follow {
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil && ctx.Err() == nil {
			return nil, c.wrapErr("logs", err)
		}
		lines := logstream.Lines(logstream.Decode(data))
		records := make([]LogRecord, 0, len(lines))
		for _, line := range lines {
			records = append(records, c.record(line, opts.Timestamps))
		}
		return StaticLogStream(ctx, records), nil
	}

	reader := logstream.NewReader(rc)
	next := func() (LogRecord, error) {
		line, err := reader.Next()
		if err != nil {
			return LogRecord{}, err
		}
		return c.record(line, opts.Timestamps), nil
	}
	return NewLogStream(ctx, next, rc), nil
}

func (c *ContainerService) record(line logstream.Line, timestamps bool) LogRecord {
	rec := LogRecord{Service: c.desc.Name, Stream: line.Stream, Line: line.Text}
	if timestamps {
		if ts, rest, ok := logstream.ParseTimestamp(line.Text); ok {
			rec.Timestamp = ts
			rec.Line = rest
		}
	}
	return rec
}

// Stats computes usage from one runtime stats sample. Any failure yields
// the zero Stats.
func (c *ContainerService) Stats(ctx context.Context) Stats {
	snap, err := c.runtime.Stats(ctx, c.desc.RuntimeHandle)
	if err != nil {
		logging.Debug(containerSubsystem, "Stats for %s unavailable: %v", c.desc.Name, err)
		return Stats{}
	}
	used := usage.MemoryUsed(snap.MemoryUsage, snap.MemoryCache)
	network := usage.SumNetwork(snap.Networks)
	disk := usage.SumBlockIO(snap.BlockIO)
	return Stats{
		CPUPercent:    usage.CPUPercent(snap.CPU, snap.PreviousCPU, snap.OnlineCPUs, snap.PerCPU),
		MemoryUsed:    used,
		MemoryLimit:   snap.MemoryLimit,
		MemoryPercent: usage.MemoryPercent(used, snap.MemoryLimit),
		Network:       NetworkIO{RxBytes: network.RxBytes, TxBytes: network.TxBytes},
		Disk:          DiskIO{ReadBytes: disk.ReadBytes, WriteBytes: disk.WriteBytes},
	}
}

// Exec runs cmd inside the container and returns its combined output once
// the output stream closes. A non-zero exit code is a
// BackendCommandFailedError carrying the output.
func (c *ContainerService) Exec(ctx context.Context, cmd []string) (string, error) {
	res, err := c.runtime.Exec(ctx, c.desc.RuntimeHandle, cmd)
	if err != nil {
		return "", c.wrapErr("exec", err)
	}
	out := logstream.Text(logstream.Decode(res.Output))
	if res.ExitCode != 0 {
		return out, &BackendCommandFailedError{
			Service:  c.desc.Name,
			Action:   "exec",
			ExitCode: res.ExitCode,
			Output:   out,
		}
	}
	return out, nil
}

func (c *ContainerService) wrapErr(action string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, containerizer.ErrUnavailable) {
		return &BackendUnavailableError{Service: c.desc.Name, Err: err}
	}
	var cmdErr *containerizer.CommandError
	if errors.As(err, &cmdErr) {
		return &BackendCommandFailedError{
			Service: c.desc.Name,
			Action:  action,
			Output:  cmdErr.Output,
			Err:     cmdErr.Err,
		}
	}
	return &BackendCommandFailedError{Service: c.desc.Name, Action: action, Err: err}
}
