// Package usage derives resource percentages from the cumulative counters
// reported by a runtime. All functions are pure point-in-time calculations;
// nothing is smoothed or remembered between calls.
package usage

// CPUSample is one reading of the cumulative CPU counters.
type CPUSample struct {
	// TotalUsage is the CPU time consumed by the workload.
	TotalUsage uint64
	// SystemUsage is the CPU time consumed by the whole host.
	SystemUsage uint64
}

// CPUPercent returns (cpuDelta / systemDelta) * numCPUs * 100 for two
// consecutive samples. It returns exactly 0 when either delta is not
// positive, which covers counter resets, and when prev is the zero sample
// (only one reading available).
//
// numCPUs is onlineCPUs when known, else perCPU (the number of per-core
// usage entries), else 1.
func CPUPercent(cur, prev CPUSample, onlineCPUs uint32, perCPU int) float64 {
	if prev == (CPUSample{}) {
		return 0
	}
	if cur.TotalUsage <= prev.TotalUsage || cur.SystemUsage <= prev.SystemUsage {
		return 0
	}
	cpuDelta := float64(cur.TotalUsage - prev.TotalUsage)
	systemDelta := float64(cur.SystemUsage - prev.SystemUsage)

	cpus := float64(onlineCPUs)
	if cpus == 0 {
		cpus = float64(perCPU)
	}
	if cpus <= 0 {
		cpus = 1
	}
	return (cpuDelta / systemDelta) * cpus * 100
}

// MemoryPercent returns used/limit*100, or 0 when no limit is known.
func MemoryPercent(used, limit uint64) float64 {
	if limit == 0 {
		return 0
	}
	return float64(used) / float64(limit) * 100
}

// MemoryUsed subtracts reclaimable page cache from the raw usage counter,
// clamping at zero.
func MemoryUsed(usage, cache uint64) uint64 {
	if cache > usage {
		return 0
	}
	return usage - cache
}

// NetworkCounters are byte totals summed over all interfaces.
type NetworkCounters struct {
	RxBytes uint64
	TxBytes uint64
}

// DiskCounters are byte totals summed over all block devices.
type DiskCounters struct {
	ReadBytes  uint64
	WriteBytes uint64
}

// InterfaceCounters is the per-interface input to SumNetwork.
type InterfaceCounters struct {
	RxBytes uint64
	TxBytes uint64
}

// SumNetwork adds up per-interface counters.
func SumNetwork(ifaces map[string]InterfaceCounters) NetworkCounters {
	var out NetworkCounters
	for _, c := range ifaces {
		out.RxBytes += c.RxBytes
		out.TxBytes += c.TxBytes
	}
	return out
}

// BlockIOEntry is one blkio record as reported by the runtime.
type BlockIOEntry struct {
	Op    string
	Value uint64
}

// SumBlockIO adds up read and write entries. Op names are matched
// case-insensitively for the two ops that matter.
func SumBlockIO(entries []BlockIOEntry) DiskCounters {
	var out DiskCounters
	for _, e := range entries {
		switch e.Op {
		case "Read", "read":
			out.ReadBytes += e.Value
		case "Write", "write":
			out.WriteBytes += e.Value
		}
	}
	return out
}
