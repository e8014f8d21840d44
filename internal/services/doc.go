// Package services is the uniform adapter layer over the services of a
// storage stack.
//
// Every service, whether it runs as a container of a compose project or as
// a bare-metal process, is exposed through the Service interface: lifecycle
// (Start, Stop, Restart), observation (Status, HealthCheck, Stats), log
// access (Logs) and command execution (Exec).
//
// # Adapters
//
// ContainerService drives a compose service through a containerizer.Lifecycle
// and observes its container through a containerizer.Runtime.
// MapContainerState holds the state mapping rules and is total: every state
// record, including a missing one, maps to exactly one ServiceState.
//
// ProcessService drives a process through a procctl.Controller (systemd or
// PID file), probes health with a TCP dial and reads logs from the process
// log file.
//
// # Errors
//
// Observation never fails: Status returns StateUnknown, HealthCheck an
// unhealthy result and Stats the zero value when the backend cannot answer.
// Lifecycle, Logs and Exec return a BackendUnavailableError when the backend
// is unreachable and a BackendCommandFailedError, carrying the raw backend
// output, when it rejected the command.
//
// # Logs
//
// Logs returns a LogStream, a pull iterator bound to the caller's context.
// The backend handle is released exactly once, whether the stream ends
// naturally, the context is cancelled or reading fails. Cancellation is not
// reported as an error.
//
// # Registry
//
// Registry holds the adapters of a stack in registration order. AllStatuses
// and AllHealth poll every adapter concurrently and return results in
// registration order; one failing adapter never affects the others.
// StartOrder sorts adapters by their DependsOn edges.
package services
