package cmd

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"strata/internal/services"
)

// callLog records adapter calls across fake services.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeService struct {
	name      string
	dependsOn []string
	log       *callLog

	state   services.ServiceState
	health  services.HealthResult
	stats   services.Stats
	records []services.LogRecord

	startErr error
	stopErr  error
	execOut  string
	execErr  error
}

func (f *fakeService) Name() string { return f.name }

func (f *fakeService) Descriptor() services.ServiceDescriptor {
	return services.ServiceDescriptor{Name: f.name, Kind: services.KindContainer, DependsOn: f.dependsOn}
}

func (f *fakeService) Start(ctx context.Context) error {
	f.record("start")
	return f.startErr
}

func (f *fakeService) Stop(ctx context.Context) error {
	f.record("stop")
	return f.stopErr
}

func (f *fakeService) Restart(ctx context.Context) error {
	f.record("restart")
	return f.startErr
}

func (f *fakeService) Status(ctx context.Context) services.ServiceState {
	if f.state == "" {
		return services.StateRunning
	}
	return f.state
}

func (f *fakeService) HealthCheck(ctx context.Context) services.HealthResult {
	return f.health
}

func (f *fakeService) Logs(ctx context.Context, opts services.LogOptions) (*services.LogStream, error) {
	return services.StaticLogStream(ctx, f.records), nil
}

func (f *fakeService) Stats(ctx context.Context) services.Stats {
	return f.stats
}

func (f *fakeService) Exec(ctx context.Context, cmd []string) (string, error) {
	f.record("exec")
	return f.execOut, f.execErr
}

func (f *fakeService) record(action string) {
	if f.log != nil {
		f.log.add(action + " " + f.name)
	}
}

func newFakeRegistry(t *testing.T, svcs ...*fakeService) *services.Registry {
	t.Helper()
	adapters := make([]services.Service, len(svcs))
	for i, s := range svcs {
		adapters[i] = s
	}
	r, err := services.NewRegistry(adapters...)
	require.NoError(t, err)
	return r
}

// withFakeStack makes every command run against the given services.
func withFakeStack(t *testing.T, svcs ...*fakeService) *services.Registry {
	t.Helper()
	r := newFakeRegistry(t, svcs...)
	orig := newStack
	newStack = func(ctx context.Context, s Settings) (*stack, error) {
		return &stack{registry: r}, nil
	}
	t.Cleanup(func() { newStack = orig })
	return r
}
