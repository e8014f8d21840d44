// Package containerizer provides container runtime access for strata's
// development mode.
//
// Two concerns are kept apart:
//
//   - Runtime observes a single container by handle: Inspect, Logs, Stats
//     and Exec. DockerClient implements it with the Docker Engine SDK and also
//     serves Podman through its Docker-compatible socket.
//   - Lifecycle starts, stops and restarts a service of a compose project.
//     ComposeCLI implements it by running `docker compose` (or
//     `podman compose`) scoped by --project-name.
//
// # Data shapes
//
// Runtime payloads are converted at this boundary into small typed records
// (StateRecord, StatsSnapshot, ExecResult). Log streams are returned as raw
// bytes; decoding the multiplexed format is the job of package logstream.
//
// # Error Handling
//
//   - ErrNotFound: the runtime has no container for the handle
//   - ErrUnavailable: the engine socket or the CLI cannot be reached
//   - *CommandError: a compose command ran and failed; carries its output
//
// # Thread Safety
//
// DockerClient and ComposeCLI are safe for concurrent use.
package containerizer
