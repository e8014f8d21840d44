package containerizer

import (
	"context"
	"errors"
	"io"
	"time"

	"strata/internal/usage"
)

var (
	// ErrNotFound is returned when the runtime has no record for a handle.
	ErrNotFound = errors.New("container not found")
	// ErrUnavailable is returned when the runtime itself cannot be reached.
	ErrUnavailable = errors.New("container runtime unavailable")
)

// Runtime is the read/exec side of a container runtime: everything a service
// adapter needs to observe a container identified by its handle (name or ID).
type Runtime interface {
	// Inspect returns the container's current state record. It returns an
	// error wrapping ErrNotFound when no such container exists.
	Inspect(ctx context.Context, handle string) (*StateRecord, error)

	// Logs opens the container's log stream. The returned reader carries the
	// runtime's raw (possibly multiplexed) bytes and must be closed.
	Logs(ctx context.Context, handle string, req LogsRequest) (io.ReadCloser, error)

	// Stats returns one sample of the container's resource counters together
	// with the previous sample the runtime kept.
	Stats(ctx context.Context, handle string) (*StatsSnapshot, error)

	// Exec runs cmd inside the container and returns its raw output once the
	// output stream closes.
	Exec(ctx context.Context, handle string, cmd []string) (ExecResult, error)
}

// Lifecycle issues start/stop/restart for one service of a compose project.
type Lifecycle interface {
	Up(ctx context.Context, project, service string) error
	Stop(ctx context.Context, project, service string) error
	Restart(ctx context.Context, project, service string) error
}

// StateRecord is the typed subset of a container inspect payload that the
// service layer interprets.
type StateRecord struct {
	ID         string
	Name       string
	Status     string // created, running, paused, restarting, removing, exited, dead
	Running    bool
	Paused     bool
	Restarting bool
	// ExitCode is nil when the runtime did not report one.
	ExitCode  *int
	StartedAt time.Time
	// Health is nil when the container has no health probe configured.
	Health *HealthProbe
}

// HealthProbe is the runtime's view of a container health check.
type HealthProbe struct {
	Status        string // starting, healthy, unhealthy
	FailingStreak int
	Log           []ProbeResult
}

// ProbeResult is one execution of a health probe.
type ProbeResult struct {
	Start    time.Time
	End      time.Time
	ExitCode int
	Output   string
}

// LogsRequest selects which log lines to return.
type LogsRequest struct {
	Follow     bool
	Tail       int // <= 0 means all
	Since      time.Time
	Until      time.Time
	Timestamps bool
}

// StatsSnapshot carries raw counters for usage calculations.
type StatsSnapshot struct {
	CPU         usage.CPUSample
	PreviousCPU usage.CPUSample
	OnlineCPUs  uint32
	PerCPU      int
	MemoryUsage uint64
	MemoryCache uint64
	MemoryLimit uint64
	Networks    map[string]usage.InterfaceCounters
	BlockIO     []usage.BlockIOEntry
}

// ExecResult is the outcome of Runtime.Exec.
type ExecResult struct {
	// Output holds the raw attach stream, multiplexed when no TTY is used.
	Output   []byte
	ExitCode int
}

// CommandError reports a runtime command that ran but failed.
type CommandError struct {
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Output != "" {
		return e.Err.Error() + ": " + e.Output
	}
	return e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
