package procctl

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/procfs"

	"strata/internal/usage"
)

const defaultSampleInterval = 250 * time.Millisecond

// ProcSnapshot carries raw counters of one process read from procfs.
type ProcSnapshot struct {
	CPU         usage.CPUSample
	PreviousCPU usage.CPUSample
	OnlineCPUs  uint32
	MemoryUsage uint64
	MemoryLimit uint64
	Networks    map[string]usage.InterfaceCounters
	Disk        usage.DiskCounters
}

// ProcSampler reads process counters from a procfs mount.
type ProcSampler struct {
	fs       procfs.FS
	Interval time.Duration
}

// NewProcSampler opens the procfs mounted at root ("/proc" when empty).
func NewProcSampler(root string) (*ProcSampler, error) {
	if root == "" {
		root = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("opening procfs at %s: %w", root, err)
	}
	return &ProcSampler{fs: fs, Interval: defaultSampleInterval}, nil
}

// Sample reads two CPU samples Interval apart plus memory, network and
// disk counters of pid.
func (s *ProcSampler) Sample(ctx context.Context, pid int) (*ProcSnapshot, error) {
	proc, err := s.fs.Proc(pid)
	if err != nil {
		return nil, fmt.Errorf("%w: pid %d: %v", ErrNotRunning, pid, err)
	}

	first, err := s.cpuSample(proc)
	if err != nil {
		return nil, err
	}

	interval := s.Interval
	if interval <= 0 {
		interval = defaultSampleInterval
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	second, err := s.cpuSample(proc)
	if err != nil {
		return nil, err
	}

	snap := &ProcSnapshot{CPU: second, PreviousCPU: first}

	stat, err := s.fs.Stat()
	if err != nil {
		return nil, fmt.Errorf("reading system stat: %w", err)
	}
	snap.OnlineCPUs = uint32(len(stat.CPU))

	pstat, err := proc.Stat()
	if err != nil {
		return nil, fmt.Errorf("reading stat of %d: %w", pid, err)
	}
	snap.MemoryUsage = uint64(pstat.ResidentMemory())

	if mem, err := s.fs.Meminfo(); err == nil && mem.MemTotal != nil {
		snap.MemoryLimit = *mem.MemTotal * 1024
	}

	if dev, err := proc.NetDev(); err == nil {
		snap.Networks = make(map[string]usage.InterfaceCounters, len(dev))
		for name, line := range dev {
			if name == "lo" {
				continue
			}
			snap.Networks[name] = usage.InterfaceCounters{RxBytes: line.RxBytes, TxBytes: line.TxBytes}
		}
	}

	// /proc/<pid>/io needs ptrace access; leave disk counters at zero without it.
	if pio, err := proc.IO(); err == nil {
		snap.Disk = usage.DiskCounters{ReadBytes: pio.ReadBytes, WriteBytes: pio.WriteBytes}
	}

	return snap, nil
}

func (s *ProcSampler) cpuSample(proc procfs.Proc) (usage.CPUSample, error) {
	pstat, err := proc.Stat()
	if err != nil {
		return usage.CPUSample{}, fmt.Errorf("reading stat of %d: %w", proc.PID, err)
	}
	stat, err := s.fs.Stat()
	if err != nil {
		return usage.CPUSample{}, fmt.Errorf("reading system stat: %w", err)
	}
	t := stat.CPUTotal
	system := t.User + t.Nice + t.System + t.Idle + t.Iowait + t.IRQ + t.SoftIRQ + t.Steal
	return usage.CPUSample{
		TotalUsage:  uint64(pstat.CPUTime() * float64(time.Second)),
		SystemUsage: uint64(system * float64(time.Second)),
	}, nil
}
