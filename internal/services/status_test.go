package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"strata/internal/containerizer"
	"strata/internal/procctl"
)

func intPtr(i int) *int { return &i }

func TestMapContainerState(t *testing.T) {
	tests := []struct {
		name     string
		record   *containerizer.StateRecord
		expected ServiceState
	}{
		{name: "absent", record: nil, expected: StateStopped},
		{name: "running", record: &containerizer.StateRecord{Status: "running", Running: true}, expected: StateRunning},
		{name: "running wins over paused", record: &containerizer.StateRecord{Status: "paused", Running: true, Paused: true}, expected: StateRunning},
		{name: "paused", record: &containerizer.StateRecord{Status: "paused", Paused: true}, expected: StateStopped},
		{name: "restarting flag", record: &containerizer.StateRecord{Status: "exited", Restarting: true, ExitCode: intPtr(1)}, expected: StateRestarting},
		{name: "restarting status", record: &containerizer.StateRecord{Status: "restarting"}, expected: StateRestarting},
		{name: "exited cleanly", record: &containerizer.StateRecord{Status: "exited", ExitCode: intPtr(0)}, expected: StateRunning},
		{name: "exited with failure", record: &containerizer.StateRecord{Status: "exited", ExitCode: intPtr(137)}, expected: StateStopped},
		{name: "exited without code", record: &containerizer.StateRecord{Status: "exited"}, expected: StateStopped},
		{name: "created", record: &containerizer.StateRecord{Status: "created"}, expected: StateStopped},
		{name: "dead", record: &containerizer.StateRecord{Status: "dead", ExitCode: intPtr(0)}, expected: StateStopped},
		{name: "unknown status", record: &containerizer.StateRecord{Status: "weird"}, expected: StateStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapContainerState(tt.record))
		})
	}
}

func TestMapContainerState_Total(t *testing.T) {
	valid := map[ServiceState]bool{
		StateRunning: true, StateStopped: true, StateRestarting: true,
	}
	statuses := []string{"", "created", "running", "paused", "restarting", "removing", "exited", "dead", "bogus"}
	codes := []*int{nil, intPtr(0), intPtr(1)}
	bools := []bool{false, true}

	for _, status := range statuses {
		for _, code := range codes {
			for _, running := range bools {
				for _, paused := range bools {
					for _, restarting := range bools {
						rec := &containerizer.StateRecord{
							Status:     status,
							Running:    running,
							Paused:     paused,
							Restarting: restarting,
							ExitCode:   code,
						}
						got := MapContainerState(rec)
						assert.True(t, valid[got], "unexpected state %q for %+v", got, rec)
					}
				}
			}
		}
	}
}

func TestMapUnitState(t *testing.T) {
	tests := []struct {
		status   procctl.Status
		expected ServiceState
	}{
		{procctl.Status{State: procctl.StateActive}, StateRunning},
		{procctl.Status{State: procctl.StateActivating}, StateStarting},
		{procctl.Status{State: procctl.StateDeactivating}, StateStopping},
		{procctl.Status{State: procctl.StateReloading}, StateRestarting},
		{procctl.Status{State: procctl.StateFailed}, StateError},
		{procctl.Status{State: procctl.StateInactive}, StateStopped},
		{procctl.Status{}, StateStopped},
		{procctl.Status{State: procctl.StateInactive, SubState: "exited", ExitCode: intPtr(0)}, StateRunning},
		{procctl.Status{State: procctl.StateInactive, SubState: "exited", ExitCode: intPtr(2)}, StateStopped},
		{procctl.Status{State: "maintenance"}, StateUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.status.State+"/"+tt.status.SubState, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapUnitState(tt.status))
		})
	}
}
