package procctl

import (
	"context"
	"errors"
	"fmt"
)

const subsystem = "ProcCtl"

// Unit states, named after systemd's ActiveState values. The PID-file
// controller reports the same vocabulary.
const (
	StateActive       = "active"
	StateActivating   = "activating"
	StateDeactivating = "deactivating"
	StateReloading    = "reloading"
	StateFailed       = "failed"
	StateInactive     = "inactive"
)

var (
	// ErrUnavailable is returned when the supervisor itself cannot be reached.
	ErrUnavailable = errors.New("process supervisor unavailable")
	// ErrNotRunning is returned when an operation needs a live process.
	ErrNotRunning = errors.New("process not running")
)

// Status is a snapshot of a supervised process.
type Status struct {
	State    string
	SubState string
	PID      int
	// ExitCode is set when the supervisor recorded how the last run ended.
	ExitCode *int
	// DetectedBy names the controller that produced the snapshot.
	DetectedBy string
}

// Running reports whether the process is up.
func (s Status) Running() bool {
	return s.State == StateActive || s.State == StateReloading
}

// Controller starts, stops and inspects one supervised process.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	Status(ctx context.Context) (Status, error)
}

// JobError reports a supervisor job that ran but did not complete.
type JobError struct {
	Unit   string
	Action string
	Result string
}

func (e *JobError) Error() string {
	return fmt.Sprintf("%s %s: job finished with result %q", e.Action, e.Unit, e.Result)
}

// IsJobError checks if an error is a JobError.
func IsJobError(err error) bool {
	var jobErr *JobError
	return errors.As(err, &jobErr)
}
