package services

import (
	"strata/internal/containerizer"
	"strata/internal/procctl"
)

// MapContainerState translates a container state record into a
// ServiceState. The rules are checked in order:
//
//  1. no record                                   -> stopped
//  2. running                                     -> running
//  3. paused                                      -> stopped
//  4. restarting flag or status "restarting"      -> restarting
//  5. status "exited" with exit code 0            -> running
//  6. anything else                               -> stopped
//
// A container that exited with code 0 is a completed one-shot job and
// counts as running.
func MapContainerState(rec *containerizer.StateRecord) ServiceState {
	switch {
	case rec == nil:
		return StateStopped
	case rec.Running:
		return StateRunning
	case rec.Paused:
		return StateStopped
	case rec.Restarting || rec.Status == "restarting":
		return StateRestarting
	case rec.Status == "exited" && rec.ExitCode != nil && *rec.ExitCode == 0:
		return StateRunning
	default:
		return StateStopped
	}
}

// MapUnitState translates a supervisor status into a ServiceState.
func MapUnitState(st procctl.Status) ServiceState {
	switch st.State {
	case procctl.StateActive:
		return StateRunning
	case procctl.StateActivating:
		return StateStarting
	case procctl.StateDeactivating:
		return StateStopping
	case procctl.StateReloading:
		return StateRestarting
	case procctl.StateFailed:
		return StateError
	case procctl.StateInactive, "":
		// A oneshot unit that finished cleanly.
		if st.SubState == "exited" && st.ExitCode != nil && *st.ExitCode == 0 {
			return StateRunning
		}
		return StateStopped
	default:
		return StateUnknown
	}
}
