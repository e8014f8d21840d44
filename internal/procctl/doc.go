// Package procctl supervises bare-metal service processes.
//
// A Controller starts, stops and inspects one process. SystemdController
// drives a unit over the system bus; PidFileController spawns the process in
// its own process group and tracks it through a PID file. Both report
// systemd's ActiveState vocabulary (active, activating, deactivating,
// reloading, failed, inactive).
//
// FileTailer reads a service log file, following appended data through
// fsnotify with a polling fallback. ProcSampler reads CPU, memory, network
// and disk counters from procfs.
package procctl
