package usage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCPUPercent(t *testing.T) {
	tests := []struct {
		name   string
		cur    CPUSample
		prev   CPUSample
		online uint32
		perCPU int
		want   float64
	}{
		{
			name:   "online cpus",
			cur:    CPUSample{TotalUsage: 300, SystemUsage: 2000},
			prev:   CPUSample{TotalUsage: 100, SystemUsage: 1000},
			online: 4,
			want:   80,
		},
		{
			name:   "falls back to per-cpu entries",
			cur:    CPUSample{TotalUsage: 150, SystemUsage: 1100},
			prev:   CPUSample{TotalUsage: 100, SystemUsage: 1000},
			perCPU: 2,
			want:   100,
		},
		{
			name: "defaults to one cpu",
			cur:  CPUSample{TotalUsage: 110, SystemUsage: 1100},
			prev: CPUSample{TotalUsage: 100, SystemUsage: 1000},
			want: 10,
		},
		{
			name:   "zero system delta",
			cur:    CPUSample{TotalUsage: 200, SystemUsage: 1000},
			prev:   CPUSample{TotalUsage: 100, SystemUsage: 1000},
			online: 2,
			want:   0,
		},
		{
			name:   "counter reset gives negative cpu delta",
			cur:    CPUSample{TotalUsage: 50, SystemUsage: 2000},
			prev:   CPUSample{TotalUsage: 100, SystemUsage: 1000},
			online: 2,
			want:   0,
		},
		{
			name:   "only one sample",
			cur:    CPUSample{TotalUsage: 50, SystemUsage: 2000},
			online: 2,
			want:   0,
		},
		{
			name: "no samples at all",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CPUPercent(tt.cur, tt.prev, tt.online, tt.perCPU)
			assert.False(t, math.IsNaN(got) || math.IsInf(got, 0) || got < 0)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestMemoryPercent(t *testing.T) {
	assert.Equal(t, 0.0, MemoryPercent(100, 0))
	assert.InDelta(t, 25.0, MemoryPercent(256, 1024), 1e-9)
	assert.Equal(t, 0.0, MemoryPercent(0, 1024))
}

func TestMemoryUsed(t *testing.T) {
	assert.Equal(t, uint64(700), MemoryUsed(1000, 300))
	assert.Equal(t, uint64(0), MemoryUsed(100, 300))
}

func TestSums(t *testing.T) {
	net := SumNetwork(map[string]InterfaceCounters{
		"eth0": {RxBytes: 10, TxBytes: 20},
		"eth1": {RxBytes: 1, TxBytes: 2},
	})
	assert.Equal(t, NetworkCounters{RxBytes: 11, TxBytes: 22}, net)

	disk := SumBlockIO([]BlockIOEntry{
		{Op: "Read", Value: 5},
		{Op: "write", Value: 7},
		{Op: "Sync", Value: 100},
		{Op: "read", Value: 1},
	})
	assert.Equal(t, DiskCounters{ReadBytes: 6, WriteBytes: 7}, disk)
}
