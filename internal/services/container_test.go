package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strata/internal/containerizer"
	"strata/internal/logstream"
	"strata/internal/usage"
)

type fakeRuntime struct {
	record     *containerizer.StateRecord
	inspectErr error
	logs       io.ReadCloser
	logsErr    error
	logReq     containerizer.LogsRequest
	stats      *containerizer.StatsSnapshot
	statsErr   error
	exec       containerizer.ExecResult
	execErr    error
}

func (f *fakeRuntime) Inspect(ctx context.Context, handle string) (*containerizer.StateRecord, error) {
	return f.record, f.inspectErr
}

func (f *fakeRuntime) Logs(ctx context.Context, handle string, req containerizer.LogsRequest) (io.ReadCloser, error) {
	f.logReq = req
	return f.logs, f.logsErr
}

func (f *fakeRuntime) Stats(ctx context.Context, handle string) (*containerizer.StatsSnapshot, error) {
	return f.stats, f.statsErr
}

func (f *fakeRuntime) Exec(ctx context.Context, handle string, cmd []string) (containerizer.ExecResult, error) {
	return f.exec, f.execErr
}

type fakeLifecycle struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeLifecycle) record(action, project, service string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("%s %s/%s", action, project, service))
	return f.err
}

func (f *fakeLifecycle) Up(ctx context.Context, project, service string) error {
	return f.record("up", project, service)
}

func (f *fakeLifecycle) Stop(ctx context.Context, project, service string) error {
	return f.record("stop", project, service)
}

func (f *fakeLifecycle) Restart(ctx context.Context, project, service string) error {
	return f.record("restart", project, service)
}

// countingCloser counts Close calls on a reader.
type countingCloser struct {
	io.Reader
	closes atomic.Int32
	onClose func()
}

func (c *countingCloser) Close() error {
	c.closes.Add(1)
	if c.onClose != nil {
		c.onClose()
	}
	return nil
}

func newDB(rt containerizer.Runtime, lc containerizer.Lifecycle) *ContainerService {
	return NewContainerService(ServiceDescriptor{Name: "db", RuntimeHandle: "strata-db-1"}, "strata", rt, lc)
}

func TestContainerService_Lifecycle(t *testing.T) {
	lc := &fakeLifecycle{}
	svc := newDB(&fakeRuntime{}, lc)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx))
	require.NoError(t, svc.Stop(ctx))
	require.NoError(t, svc.Restart(ctx))
	assert.Equal(t, []string{"up strata/db", "stop strata/db", "restart strata/db"}, lc.calls)
	assert.Equal(t, KindContainer, svc.Descriptor().Kind)
}

func TestContainerService_LifecycleErrors(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		svc := newDB(&fakeRuntime{}, &fakeLifecycle{err: fmt.Errorf("%w: daemon down", containerizer.ErrUnavailable)})
		err := svc.Start(context.Background())
		assert.True(t, IsBackendUnavailable(err))
		assert.False(t, IsBackendCommandFailed(err))
	})

	t.Run("command failed keeps output", func(t *testing.T) {
		svc := newDB(&fakeRuntime{}, &fakeLifecycle{err: &containerizer.CommandError{
			Args:   []string{"docker", "compose", "up"},
			Output: "no such service: db",
			Err:    errors.New("docker up failed: exit status 1"),
		}})
		err := svc.Start(context.Background())
		require.True(t, IsBackendCommandFailed(err))
		var failed *BackendCommandFailedError
		require.True(t, errors.As(err, &failed))
		assert.Equal(t, "no such service: db", failed.Output)
		assert.Equal(t, "start", failed.Action)
	})
}

func TestContainerService_Status(t *testing.T) {
	tests := []struct {
		name     string
		rt       *fakeRuntime
		expected ServiceState
	}{
		{name: "running", rt: &fakeRuntime{record: &containerizer.StateRecord{Running: true, Status: "running"}}, expected: StateRunning},
		{name: "not found", rt: &fakeRuntime{inspectErr: fmt.Errorf("%w: strata-db-1", containerizer.ErrNotFound)}, expected: StateStopped},
		{name: "lookup failure", rt: &fakeRuntime{inspectErr: errors.New("boom")}, expected: StateUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, newDB(tt.rt, &fakeLifecycle{}).Status(context.Background()))
		})
	}
}

func TestContainerService_HealthCheck(t *testing.T) {
	now := time.Now()
	probes := make([]containerizer.ProbeResult, 7)
	for i := range probes {
		probes[i] = containerizer.ProbeResult{Start: now, End: now, ExitCode: 1, Output: fmt.Sprintf("probe %d", i)}
	}

	tests := []struct {
		name    string
		rt      *fakeRuntime
		healthy bool
		message string
	}{
		{
			name:    "not found",
			rt:      &fakeRuntime{inspectErr: containerizer.ErrNotFound},
			message: "not found",
		},
		{
			name:    "lookup error",
			rt:      &fakeRuntime{inspectErr: errors.New("connection reset")},
			message: "unknown: connection reset",
		},
		{
			name:    "completed one-shot",
			rt:      &fakeRuntime{record: &containerizer.StateRecord{Status: "exited", ExitCode: intPtr(0)}},
			healthy: true,
			message: "completed successfully",
		},
		{
			name:    "stopped with code",
			rt:      &fakeRuntime{record: &containerizer.StateRecord{Status: "exited", ExitCode: intPtr(2)}},
			message: "stopped (exit code: 2)",
		},
		{
			name:    "stopped without code",
			rt:      &fakeRuntime{record: &containerizer.StateRecord{Status: "created"}},
			message: "stopped (exit code: unknown)",
		},
		{
			name: "probe healthy",
			rt: &fakeRuntime{record: &containerizer.StateRecord{Running: true, Status: "running",
				Health: &containerizer.HealthProbe{Status: "healthy"}}},
			healthy: true,
			message: "healthy",
		},
		{
			name: "probe starting",
			rt: &fakeRuntime{record: &containerizer.StateRecord{Running: true, Status: "running",
				Health: &containerizer.HealthProbe{Status: "starting"}}},
			message: "starting",
		},
		{
			name:    "no probe",
			rt:      &fakeRuntime{record: &containerizer.StateRecord{Running: true, Status: "running"}},
			healthy: true,
			message: "running, no health check configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newDB(tt.rt, &fakeLifecycle{}).HealthCheck(context.Background())
			assert.Equal(t, tt.healthy, res.Healthy)
			assert.Equal(t, tt.message, res.Message)
		})
	}

	t.Run("unhealthy probe details", func(t *testing.T) {
		rt := &fakeRuntime{record: &containerizer.StateRecord{Running: true, Status: "running",
			Health: &containerizer.HealthProbe{Status: "unhealthy", FailingStreak: 4, Log: probes}}}
		res := newDB(rt, &fakeLifecycle{}).HealthCheck(context.Background())
		assert.False(t, res.Healthy)
		assert.Equal(t, "unhealthy", res.Message)
		assert.Equal(t, 4, res.Details["failingStreak"])
		entries, ok := res.Details["log"].([]map[string]any)
		require.True(t, ok)
		require.Len(t, entries, maxProbeLog)
		assert.Equal(t, "probe 6", entries[len(entries)-1]["output"])
	})
}

func TestContainerService_LogsBuffered(t *testing.T) {
	var buf []byte
	buf = append(buf, logstream.Encode(logstream.Stdout, []byte("2024-03-01T12:00:00.000000001Z ready\n"))...)
	buf = append(buf, logstream.Encode(logstream.Stderr, []byte("2024-03-01T12:00:01Z warn: slow\n"))...)
	body := &countingCloser{Reader: strings.NewReader(string(buf))}
	rt := &fakeRuntime{logs: body}
	svc := newDB(rt, &fakeLifecycle{})

	stream, err := svc.Logs(context.Background(), LogOptions{Timestamps: true})
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, DefaultTail, rt.logReq.Tail)
	assert.True(t, rt.logReq.Timestamps)

	var got []LogRecord
	for stream.Next() {
		got = append(got, stream.Record())
	}
	require.NoError(t, stream.Err())
	require.Len(t, got, 2)
	assert.Equal(t, "ready", got[0].Line)
	assert.Equal(t, logstream.Stdout, got[0].Stream)
	assert.Equal(t, "db", got[0].Service)
	assert.Equal(t, 2024, got[0].Timestamp.Year())
	assert.Equal(t, "warn: slow", got[1].Line)
	assert.Equal(t, logstream.Stderr, got[1].Stream)
	assert.Equal(t, int32(1), body.closes.Load())
}

func TestContainerService_LogsAllLines(t *testing.T) {
	rt := &fakeRuntime{logs: io.NopCloser(strings.NewReader(""))}
	_, err := newDB(rt, &fakeLifecycle{}).Logs(context.Background(), LogOptions{Tail: -1})
	require.NoError(t, err)
	assert.Equal(t, 0, rt.logReq.Tail)
}

func TestContainerService_LogsFollowCancel(t *testing.T) {
	pr, pw := io.Pipe()
	body := &countingCloser{Reader: pr, onClose: func() { pr.Close() }}
	svc := newDB(&fakeRuntime{logs: body}, &fakeLifecycle{})

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := svc.Logs(ctx, LogOptions{Follow: true})
	require.NoError(t, err)

	go func() {
		_, _ = pw.Write(logstream.Encode(logstream.Stdout, []byte("first\n")))
	}()
	require.True(t, stream.Next())
	assert.Equal(t, "first", stream.Record().Line)

	done := make(chan bool)
	go func() { done <- stream.Next() }()
	cancel()

	select {
	case more := <-done:
		assert.False(t, more)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end after cancellation")
	}
	assert.NoError(t, stream.Err())
	require.NoError(t, stream.Close())
	assert.Equal(t, int32(1), body.closes.Load())
}

func TestContainerService_LogsError(t *testing.T) {
	svc := newDB(&fakeRuntime{logsErr: containerizer.ErrUnavailable}, &fakeLifecycle{})
	_, err := svc.Logs(context.Background(), LogOptions{})
	assert.True(t, IsBackendUnavailable(err))
}

func TestContainerService_Stats(t *testing.T) {
	t.Run("computed", func(t *testing.T) {
		rt := &fakeRuntime{stats: &containerizer.StatsSnapshot{
			CPU:         usage.CPUSample{TotalUsage: 400, SystemUsage: 2000},
			PreviousCPU: usage.CPUSample{TotalUsage: 200, SystemUsage: 1000},
			OnlineCPUs:  2,
			MemoryUsage: 1200,
			MemoryCache: 200,
			MemoryLimit: 4000,
			Networks: map[string]usage.InterfaceCounters{
				"eth0": {RxBytes: 10, TxBytes: 20},
				"eth1": {RxBytes: 1, TxBytes: 2},
			},
			BlockIO: []usage.BlockIOEntry{{Op: "Read", Value: 5}, {Op: "Write", Value: 6}},
		}}
		st := newDB(rt, &fakeLifecycle{}).Stats(context.Background())
		assert.InDelta(t, 40.0, st.CPUPercent, 0.0001)
		assert.Equal(t, uint64(1000), st.MemoryUsed)
		assert.InDelta(t, 25.0, st.MemoryPercent, 0.0001)
		assert.Equal(t, NetworkIO{RxBytes: 11, TxBytes: 22}, st.Network)
		assert.Equal(t, DiskIO{ReadBytes: 5, WriteBytes: 6}, st.Disk)
	})

	t.Run("error yields zero", func(t *testing.T) {
		st := newDB(&fakeRuntime{statsErr: errors.New("no stats")}, &fakeLifecycle{}).Stats(context.Background())
		assert.Equal(t, Stats{}, st)
	})
}

func TestContainerService_Exec(t *testing.T) {
	t.Run("success decodes frames", func(t *testing.T) {
		var out []byte
		out = append(out, logstream.Encode(logstream.Stdout, []byte("1 row\n"))...)
		out = append(out, logstream.Encode(logstream.Stderr, []byte("notice\n"))...)
		svc := newDB(&fakeRuntime{exec: containerizer.ExecResult{Output: out}}, &fakeLifecycle{})

		got, err := svc.Exec(context.Background(), []string{"psql", "-c", "select 1"})
		require.NoError(t, err)
		assert.Equal(t, "1 row\nnotice\n", got)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		svc := newDB(&fakeRuntime{exec: containerizer.ExecResult{Output: []byte("oops\n"), ExitCode: 2}}, &fakeLifecycle{})

		got, err := svc.Exec(context.Background(), []string{"false"})
		require.Error(t, err)
		var failed *BackendCommandFailedError
		require.True(t, errors.As(err, &failed))
		assert.Equal(t, 2, failed.ExitCode)
		assert.Equal(t, "oops\n", failed.Output)
		assert.Equal(t, "oops\n", got)
	})

	t.Run("runtime down", func(t *testing.T) {
		svc := newDB(&fakeRuntime{execErr: containerizer.ErrUnavailable}, &fakeLifecycle{})
		_, err := svc.Exec(context.Background(), []string{"true"})
		assert.True(t, IsBackendUnavailable(err))
	})
}
