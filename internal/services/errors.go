package services

import (
	"errors"
	"fmt"
)

// BackendUnavailableError indicates that the runtime or supervisor behind a
// service could not be reached at all.
type BackendUnavailableError struct {
	Service string
	Err     error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("backend for %s unavailable: %v", e.Service, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error {
	return e.Err
}

// IsBackendUnavailable checks if an error is a BackendUnavailableError.
func IsBackendUnavailable(err error) bool {
	var unavailable *BackendUnavailableError
	return errors.As(err, &unavailable)
}

// BackendCommandFailedError indicates that the backend was reached but the
// command it ran failed. Output holds the raw backend output.
type BackendCommandFailedError struct {
	Service  string
	Action   string
	ExitCode int
	Output   string
	Err      error
}

func (e *BackendCommandFailedError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Action, e.Service)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	return msg
}

func (e *BackendCommandFailedError) Unwrap() error {
	return e.Err
}

// IsBackendCommandFailed checks if an error is a BackendCommandFailedError.
func IsBackendCommandFailed(err error) bool {
	var failed *BackendCommandFailedError
	return errors.As(err, &failed)
}

// NotFoundError is returned when a service name is not registered.
//
// Example:
//
//	svc, err := registry.ByName("cache")
//	if services.IsNotFound(err) {
//	    // Handle unknown service
//	}
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("service %s not found", e.Name)
}

// IsNotFound checks if an error is a NotFoundError.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}
