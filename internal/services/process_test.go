package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strata/internal/procctl"
)

type fakeController struct {
	status    procctl.Status
	statusErr error
	err       error
	calls     []string
}

func (f *fakeController) Start(ctx context.Context) error {
	f.calls = append(f.calls, "start")
	return f.err
}

func (f *fakeController) Stop(ctx context.Context) error {
	f.calls = append(f.calls, "stop")
	return f.err
}

func (f *fakeController) Restart(ctx context.Context) error {
	f.calls = append(f.calls, "restart")
	return f.err
}

func (f *fakeController) Status(ctx context.Context) (procctl.Status, error) {
	return f.status, f.statusErr
}

func TestProcessService_Lifecycle(t *testing.T) {
	ctrl := &fakeController{}
	svc := NewProcessService(ServiceDescriptor{Name: "postgres"}, ctrl, nil)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx))
	require.NoError(t, svc.Stop(ctx))
	require.NoError(t, svc.Restart(ctx))
	assert.Equal(t, []string{"start", "stop", "restart"}, ctrl.calls)
	assert.Equal(t, KindProcess, svc.Descriptor().Kind)

	ctrl.err = fmt.Errorf("%w: no bus", procctl.ErrUnavailable)
	assert.True(t, IsBackendUnavailable(svc.Start(ctx)))

	ctrl.err = &procctl.JobError{Unit: "postgres.service", Action: "start", Result: "failed"}
	assert.True(t, IsBackendCommandFailed(svc.Start(ctx)))
}

func TestProcessService_Status(t *testing.T) {
	ctrl := &fakeController{status: procctl.Status{State: procctl.StateActivating}}
	svc := NewProcessService(ServiceDescriptor{Name: "postgres"}, ctrl, nil)
	assert.Equal(t, StateStarting, svc.Status(context.Background()))

	ctrl.statusErr = errors.New("bus closed")
	assert.Equal(t, StateUnknown, svc.Status(context.Background()))
}

func TestProcessService_HealthCheck(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	openPort := ln.Addr().(*net.TCPAddr).Port

	closed, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	closedPort := closed.Addr().(*net.TCPAddr).Port
	closed.Close()

	running := procctl.Status{State: procctl.StateActive, PID: 42}

	tests := []struct {
		name    string
		ctrl    *fakeController
		port    int
		healthy bool
		message string
	}{
		{name: "status error", ctrl: &fakeController{statusErr: errors.New("bus closed")}, message: "unknown: bus closed"},
		{name: "stopped", ctrl: &fakeController{status: procctl.Status{State: procctl.StateInactive}}, message: "stopped"},
		{name: "failed", ctrl: &fakeController{status: procctl.Status{State: procctl.StateFailed}}, message: "stopped"},
		{name: "no port", ctrl: &fakeController{status: running}, healthy: true, message: "running, no health check configured"},
		{name: "port open", ctrl: &fakeController{status: running}, port: openPort, healthy: true, message: fmt.Sprintf("accepting connections on port %d", openPort)},
		{name: "port closed", ctrl: &fakeController{status: running}, port: closedPort, message: fmt.Sprintf("port %d not accepting connections", closedPort)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewProcessService(ServiceDescriptor{Name: "postgres", HealthPort: tt.port}, tt.ctrl, nil)
			res := svc.HealthCheck(context.Background())
			assert.Equal(t, tt.healthy, res.Healthy)
			assert.True(t, strings.HasPrefix(res.Message, tt.message), "message %q", res.Message)
		})
	}
}

func TestProcessService_LogsBuffered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postgres.log")
	content := strings.Join([]string{
		"2024-03-01T11:00:00Z early",
		"2024-03-01T12:00:00Z in window",
		"continuation without timestamp",
		"2024-03-01T14:00:00Z late",
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	svc := NewProcessService(ServiceDescriptor{Name: "postgres", LogFile: path}, &fakeController{}, nil)
	stream, err := svc.Logs(context.Background(), LogOptions{
		Since:      time.Date(2024, 3, 1, 11, 30, 0, 0, time.UTC),
		Until:      time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC),
		Timestamps: true,
	})
	require.NoError(t, err)
	defer stream.Close()

	var lines []string
	for stream.Next() {
		lines = append(lines, stream.Record().Line)
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, []string{"in window", "continuation without timestamp"}, lines)
}

func TestProcessService_LogsFollow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postgres.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	svc := NewProcessService(ServiceDescriptor{Name: "postgres", LogFile: path}, &fakeController{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := svc.Logs(ctx, LogOptions{Follow: true, Tail: 1})
	require.NoError(t, err)

	require.True(t, stream.Next())
	assert.Equal(t, "old", stream.Record().Line)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("new\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.True(t, stream.Next())
	assert.Equal(t, "new", stream.Record().Line)

	cancel()
	assert.False(t, stream.Next())
	assert.NoError(t, stream.Err())
}

func TestProcessService_LogsWithoutFile(t *testing.T) {
	svc := NewProcessService(ServiceDescriptor{Name: "postgres"}, &fakeController{}, nil)
	_, err := svc.Logs(context.Background(), LogOptions{})
	assert.True(t, IsBackendCommandFailed(err))
}

func TestProcessService_StatsWithoutData(t *testing.T) {
	svc := NewProcessService(ServiceDescriptor{Name: "postgres"}, &fakeController{status: procctl.Status{State: procctl.StateActive}}, nil)
	assert.Equal(t, Stats{}, svc.Stats(context.Background()))
}

func TestProcessService_Exec(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	svc := NewProcessService(ServiceDescriptor{
		Name:    "postgres",
		WorkDir: dir,
		Env:     map[string]string{"STRATA_TEST_VALUE": "from-env"},
	}, &fakeController{}, nil)

	out, err := svc.Exec(context.Background(), []string{"sh", "-c", "echo $STRATA_TEST_VALUE; pwd"})
	require.NoError(t, err)
	resolved, _ := filepath.EvalSymlinks(dir)
	assert.Contains(t, out, "from-env")
	assert.True(t, strings.Contains(out, dir) || strings.Contains(out, resolved))

	out, err = svc.Exec(context.Background(), []string{"sh", "-c", "echo failing; exit 3"})
	var failed *BackendCommandFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, 3, failed.ExitCode)
	assert.Equal(t, "failing\n", failed.Output)
	assert.Equal(t, "failing\n", out)

	_, err = svc.Exec(context.Background(), nil)
	assert.Error(t, err)
}
