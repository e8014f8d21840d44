package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"strata/internal/logstream"
	"strata/internal/procctl"
	"strata/internal/usage"
	"strata/pkg/logging"
)

const processSubsystem = "ProcessService"

const healthDialTimeout = 2 * time.Second

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// ProcessService manages a service running as a bare-metal process.
type ProcessService struct {
	desc    ServiceDescriptor
	ctrl    procctl.Controller
	sampler *procctl.ProcSampler
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewProcessService creates an adapter for desc supervised by ctrl. sampler
// may be nil, in which case Stats reports no data.
func NewProcessService(desc ServiceDescriptor, ctrl procctl.Controller, sampler *procctl.ProcSampler) *ProcessService {
	desc.Kind = KindProcess
	d := &net.Dialer{Timeout: healthDialTimeout}
	return &ProcessService{desc: desc, ctrl: ctrl, sampler: sampler, dial: d.DialContext}
}

func (p *ProcessService) Name() string                  { return p.desc.Name }
func (p *ProcessService) Descriptor() ServiceDescriptor { return p.desc }

func (p *ProcessService) Start(ctx context.Context) error {
	logging.Info(processSubsystem, "Starting %s", p.desc.Name)
	return p.wrapErr("start", p.ctrl.Start(ctx))
}

func (p *ProcessService) Stop(ctx context.Context) error {
	logging.Info(processSubsystem, "Stopping %s", p.desc.Name)
	return p.wrapErr("stop", p.ctrl.Stop(ctx))
}

func (p *ProcessService) Restart(ctx context.Context) error {
	logging.Info(processSubsystem, "Restarting %s", p.desc.Name)
	return p.wrapErr("restart", p.ctrl.Restart(ctx))
}

func (p *ProcessService) Status(ctx context.Context) ServiceState {
	st, err := p.ctrl.Status(ctx)
	if err != nil {
		logging.Warn(processSubsystem, "Status lookup for %s failed: %v", p.desc.Name, err)
		return StateUnknown
	}
	return MapUnitState(st)
}

// HealthCheck probes the configured health port with a TCP dial.
func (p *ProcessService) HealthCheck(ctx context.Context) HealthResult {
	st, err := p.ctrl.Status(ctx)
	if err != nil {
		return HealthResult{Healthy: false, Message: "unknown: " + err.Error()}
	}
	if MapUnitState(st) != StateRunning {
		return HealthResult{Healthy: false, Message: "stopped"}
	}
	if p.desc.HealthPort <= 0 {
		return HealthResult{Healthy: true, Message: "running, no health check configured"}
	}

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(p.desc.HealthPort))
	details := map[string]any{"address": addr}
	if st.PID > 0 {
		details["pid"] = st.PID
	}
	conn, err := p.dial(ctx, "tcp", addr)
	if err != nil {
		return HealthResult{
			Healthy: false,
			Message: fmt.Sprintf("port %d not accepting connections: %v", p.desc.HealthPort, err),
			Details: details,
		}
	}
	conn.Close()
	return HealthResult{
		Healthy: true,
		Message: fmt.Sprintf("accepting connections on port %d", p.desc.HealthPort),
		Details: details,
	}
}

// Logs reads the service's log file. Lines carrying an RFC3339 timestamp
// prefix are filtered by Since and Until; other lines always pass.
func (p *ProcessService) Logs(ctx context.Context, opts LogOptions) (*LogStream, error) {
	if p.desc.LogFile == "" {
		return nil, &BackendCommandFailedError{
			Service: p.desc.Name,
			Action:  "logs",
			Err:     errors.New("no log file configured"),
		}
	}
	tailer := &procctl.FileTailer{Path: p.desc.LogFile}

	if !opts.Follow {
		lines, err := tailer.Tail(opts.tail())
		if err != nil {
			return nil, p.wrapErr("logs", err)
		}
		records := make([]LogRecord, 0, len(lines))
		for _, line := range lines {
			if rec, ok := p.record(line, opts); ok {
				records = append(records, rec)
			}
		}
		return StaticLogStream(ctx, records), nil
	}

	rc, err := tailer.Follow(ctx, opts.tail())
	if err != nil {
		return nil, p.wrapErr("logs", err)
	}
	br := bufio.NewReader(rc)
	next := func() (LogRecord, error) {
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				if line == "" || !errors.Is(err, io.EOF) {
					return LogRecord{}, err
				}
			}
			if rec, ok := p.record(strings.TrimRight(line, "\r\n"), opts); ok {
				return rec, nil
			}
			if err != nil {
				return LogRecord{}, err
			}
		}
	}
	return NewLogStream(ctx, next, rc), nil
}

func (p *ProcessService) record(line string, opts LogOptions) (LogRecord, bool) {
	rec := LogRecord{Service: p.desc.Name, Stream: logstream.Unframed, Line: line}
	ts, rest, ok := logstream.ParseTimestamp(line)
	if !ok {
		return rec, true
	}
	if !opts.Since.IsZero() && ts.Before(opts.Since) {
		return rec, false
	}
	if !opts.Until.IsZero() && ts.After(opts.Until) {
		return rec, false
	}
	if opts.Timestamps {
		rec.Timestamp = ts
		rec.Line = rest
	}
	return rec, true
}

// Stats samples the process's procfs counters. Any failure yields the zero
// Stats.
func (p *ProcessService) Stats(ctx context.Context) Stats {
	if p.sampler == nil {
		return Stats{}
	}
	st, err := p.ctrl.Status(ctx)
	if err != nil || st.PID <= 0 {
		return Stats{}
	}
	snap, err := p.sampler.Sample(ctx, st.PID)
	if err != nil {
		logging.Debug(processSubsystem, "Stats for %s unavailable: %v", p.desc.Name, err)
		return Stats{}
	}
	network := usage.SumNetwork(snap.Networks)
	return Stats{
		CPUPercent:    usage.CPUPercent(snap.CPU, snap.PreviousCPU, snap.OnlineCPUs, 0),
		MemoryUsed:    snap.MemoryUsage,
		MemoryLimit:   snap.MemoryLimit,
		MemoryPercent: usage.MemoryPercent(snap.MemoryUsage, snap.MemoryLimit),
		Network:       NetworkIO{RxBytes: network.RxBytes, TxBytes: network.TxBytes},
		Disk:          DiskIO{ReadBytes: snap.Disk.ReadBytes, WriteBytes: snap.Disk.WriteBytes},
	}
}

// Exec runs cmd in the service's working directory and environment and
// returns its combined output.
func (p *ProcessService) Exec(ctx context.Context, cmd []string) (string, error) {
	if len(cmd) == 0 {
		return "", errors.New("no command given")
	}
	c := execCommandContext(ctx, cmd[0], cmd[1:]...)
	c.Dir = p.desc.WorkDir
	c.Env = os.Environ()
	for k, v := range p.desc.Env {
		c.Env = append(c.Env, k+"="+v)
	}

	out, err := c.CombinedOutput()
	if err != nil {
		failed := &BackendCommandFailedError{
			Service: p.desc.Name,
			Action:  "exec",
			Output:  string(out),
			Err:     err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			failed.ExitCode = exitErr.ExitCode()
		}
		return string(out), failed
	}
	return string(out), nil
}

func (p *ProcessService) wrapErr(action string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, procctl.ErrUnavailable) {
		return &BackendUnavailableError{Service: p.desc.Name, Err: err}
	}
	return &BackendCommandFailedError{Service: p.desc.Name, Action: action, Err: err}
}
