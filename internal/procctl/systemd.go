package procctl

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"

	"strata/pkg/logging"
)

// unitConn is the subset of *dbus.Conn used here.
type unitConn interface {
	StartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	StopUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	RestartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	GetUnitPropertiesContext(ctx context.Context, unit string) (map[string]interface{}, error)
	GetUnitTypePropertiesContext(ctx context.Context, unit string, unitType string) (map[string]interface{}, error)
	Close()
}

// SystemdController drives a single unit over the system bus.
type SystemdController struct {
	conn unitConn
	unit string
}

// DialSystemd connects to the system bus. The returned connection may be
// shared between controllers and must be closed by the caller.
func DialSystemd(ctx context.Context) (*dbus.Conn, error) {
	conn, err := dbus.NewWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: systemd bus: %v", ErrUnavailable, err)
	}
	return conn, nil
}

// NewSystemdController returns a controller for unit. A ".service" suffix is
// added when the name has no unit type.
func NewSystemdController(conn *dbus.Conn, unit string) *SystemdController {
	return newSystemdController(conn, unit)
}

func newSystemdController(conn unitConn, unit string) *SystemdController {
	if !strings.Contains(unit, ".") {
		unit += ".service"
	}
	return &SystemdController{conn: conn, unit: unit}
}

// Unit returns the full unit name.
func (s *SystemdController) Unit() string {
	return s.unit
}

type jobFunc func(ctx context.Context, name string, mode string, ch chan<- string) (int, error)

func (s *SystemdController) runJob(ctx context.Context, action string, fn jobFunc) error {
	ch := make(chan string, 1)
	if _, err := fn(ctx, s.unit, "replace", ch); err != nil {
		return fmt.Errorf("%s %s: %w", action, s.unit, err)
	}
	logging.Debug(subsystem, "Queued %s job for %s", action, s.unit)

	select {
	case result := <-ch:
		if result != "done" {
			return &JobError{Unit: s.unit, Action: action, Result: result}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start starts the unit and waits for the job to finish.
func (s *SystemdController) Start(ctx context.Context) error {
	return s.runJob(ctx, "start", s.conn.StartUnitContext)
}

// Stop stops the unit and waits for the job to finish.
func (s *SystemdController) Stop(ctx context.Context) error {
	return s.runJob(ctx, "stop", s.conn.StopUnitContext)
}

// Restart restarts the unit and waits for the job to finish.
func (s *SystemdController) Restart(ctx context.Context) error {
	return s.runJob(ctx, "restart", s.conn.RestartUnitContext)
}

// Status reads ActiveState, SubState, MainPID and the last exit status.
func (s *SystemdController) Status(ctx context.Context) (Status, error) {
	props, err := s.conn.GetUnitPropertiesContext(ctx, s.unit)
	if err != nil {
		return Status{}, fmt.Errorf("%w: reading %s: %v", ErrUnavailable, s.unit, err)
	}

	st := Status{DetectedBy: "systemd", State: StateInactive}
	if v, ok := props["ActiveState"].(string); ok && v != "" {
		st.State = v
	}
	if v, ok := props["SubState"].(string); ok {
		st.SubState = v
	}

	svc, err := s.conn.GetUnitTypePropertiesContext(ctx, s.unit, "Service")
	if err != nil {
		// Non-service units have no Service interface.
		logging.Debug(subsystem, "No service properties for %s: %v", s.unit, err)
		return st, nil
	}
	if pid, ok := svc["MainPID"].(uint32); ok {
		st.PID = int(pid)
	}
	if code, ok := svc["ExecMainStatus"].(int32); ok && st.State != StateActive {
		c := int(code)
		st.ExitCode = &c
	}
	return st, nil
}
