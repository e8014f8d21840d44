package procctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/procfs"

	"strata/pkg/logging"
)

// execCommand is a variable to allow mocking in tests
var execCommand = exec.Command

const (
	defaultStopTimeout = 10 * time.Second
	pollInterval       = 100 * time.Millisecond
)

// PidFileController supervises a process it spawned itself, tracking it by
// the PID written to PidFile. The process start time is recorded next to the
// PID so that a reused PID is not mistaken for the service.
type PidFileController struct {
	PidFile string
	Command []string
	WorkDir string
	Env     map[string]string
	// LogFile receives stdout and stderr of the process.
	LogFile     string
	StopTimeout time.Duration
}

// Start spawns the process in its own process group unless it is already
// running.
func (p *PidFileController) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if pid, ok := p.livePID(); ok {
		logging.Debug(subsystem, "Process %d from %s already running", pid, p.PidFile)
		return nil
	}
	if len(p.Command) == 0 {
		return fmt.Errorf("no command configured for %s", p.PidFile)
	}

	cmd := execCommand(p.Command[0], p.Command[1:]...)
	cmd.Dir = p.WorkDir
	cmd.Env = os.Environ()
	for k, v := range p.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	configureProcAttr(cmd)

	if p.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(p.LogFile), 0o755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(p.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		cmd.Stdout = f
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", p.Command[0], err)
	}
	pid := cmd.Process.Pid
	rec := pidRecord{PID: pid}
	if id, err := lookupIdentity(pid); err == nil {
		rec.StartTime = id.StartTime
	}
	if err := p.writePID(rec); err != nil {
		_ = signalGroup(pid, sigKill)
		return err
	}
	// Reap the child if it exits while we are still around.
	go func() { _ = cmd.Wait() }()

	logging.Info(subsystem, "Started %s with PID %d", p.Command[0], pid)
	return nil
}

// Stop sends SIGTERM to the process group, escalating to SIGKILL after
// StopTimeout. The PID file is removed once the process is gone.
func (p *PidFileController) Stop(ctx context.Context) error {
	pid, ok := p.livePID()
	if !ok {
		p.removePID()
		return nil
	}

	if err := signalGroup(pid, sigTerm); err != nil {
		return fmt.Errorf("signalling %d: %w", pid, err)
	}

	timeout := p.StopTimeout
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			logging.Warn(subsystem, "Process %d did not exit within %s, killing", pid, timeout)
			if err := signalGroup(pid, sigKill); err != nil {
				return fmt.Errorf("killing %d: %w", pid, err)
			}
			p.removePID()
			return nil
		case <-ticker.C:
			if !alive(pid) {
				p.removePID()
				logging.Info(subsystem, "Stopped process %d", pid)
				return nil
			}
		}
	}
}

// Restart stops then starts the process.
func (p *PidFileController) Restart(ctx context.Context) error {
	if err := p.Stop(ctx); err != nil {
		return err
	}
	return p.Start(ctx)
}

// Status reports active when the recorded process is alive, failed when the
// PID file is stale and inactive when there is no PID file. A PID now used
// by another process counts as stale.
func (p *PidFileController) Status(ctx context.Context) (Status, error) {
	st := Status{DetectedBy: "pidfile", State: StateInactive}
	rec, err := p.readPID()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return st, nil
		}
		return st, err
	}
	st.PID = rec.PID
	if p.owns(rec) {
		st.State = StateActive
	} else {
		st.State = StateFailed
	}
	return st, nil
}

// pidRecord is the content of a PID file: the PID and, when procfs is
// available, the process start time in clock ticks since boot.
type pidRecord struct {
	PID       int
	StartTime uint64
}

func (p *PidFileController) readPID() (pidRecord, error) {
	data, err := os.ReadFile(p.PidFile)
	if err != nil {
		return pidRecord{}, err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return pidRecord{}, fmt.Errorf("invalid pid file %s", p.PidFile)
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil || pid <= 0 {
		return pidRecord{}, fmt.Errorf("invalid pid file %s", p.PidFile)
	}
	rec := pidRecord{PID: pid}
	if len(fields) > 1 {
		if rec.StartTime, err = strconv.ParseUint(fields[1], 10, 64); err != nil {
			return pidRecord{}, fmt.Errorf("invalid start time in pid file %s", p.PidFile)
		}
	}
	return rec, nil
}

// livePID returns the recorded PID when it still belongs to the process
// this controller started.
func (p *PidFileController) livePID() (int, bool) {
	rec, err := p.readPID()
	if err != nil {
		return 0, false
	}
	if !p.owns(rec) {
		if alive(rec.PID) {
			logging.Warn(subsystem, "PID %d from %s belongs to another process, ignoring stale pid file", rec.PID, p.PidFile)
		}
		return 0, false
	}
	return rec.PID, true
}

// owns reports whether rec still names the process this controller started.
// The recorded start time must match; records without one fall back to
// comparing the executable name. Without procfs only liveness is checked.
func (p *PidFileController) owns(rec pidRecord) bool {
	if !alive(rec.PID) {
		return false
	}
	id, err := lookupIdentity(rec.PID)
	switch {
	case errors.Is(err, errIdentityUnavailable):
		return true
	case err != nil:
		return false
	case rec.StartTime != 0:
		return id.StartTime == rec.StartTime
	case len(p.Command) > 0 && id.Argv0 != "":
		return filepath.Base(id.Argv0) == filepath.Base(p.Command[0])
	default:
		return true
	}
}

func (p *PidFileController) writePID(rec pidRecord) error {
	if err := os.MkdirAll(filepath.Dir(p.PidFile), 0o755); err != nil {
		return fmt.Errorf("creating pid directory: %w", err)
	}
	content := strconv.Itoa(rec.PID) + "\n"
	if rec.StartTime != 0 {
		content += strconv.FormatUint(rec.StartTime, 10) + "\n"
	}
	if err := os.WriteFile(p.PidFile, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}
	return nil
}

// procIdentity tells a process apart from a later one reusing its PID.
type procIdentity struct {
	StartTime uint64
	Argv0     string
}

var errIdentityUnavailable = errors.New("process identity unavailable")

// lookupIdentity is a variable to allow replacing procfs in tests
var lookupIdentity = procfsIdentity

func procfsIdentity(pid int) (procIdentity, error) {
	fs, err := procfs.NewFS(procfs.DefaultMountPoint)
	if err != nil {
		return procIdentity{}, fmt.Errorf("%w: %v", errIdentityUnavailable, err)
	}
	proc, err := fs.Proc(pid)
	if err != nil {
		return procIdentity{}, err
	}
	stat, err := proc.Stat()
	if err != nil {
		return procIdentity{}, err
	}
	id := procIdentity{StartTime: stat.Starttime}
	if argv, err := proc.CmdLine(); err == nil && len(argv) > 0 {
		id.Argv0 = argv[0]
	}
	return id, nil
}

func (p *PidFileController) removePID() {
	if err := os.Remove(p.PidFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn(subsystem, "Failed to remove %s: %v", p.PidFile, err)
	}
}
