package config

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError represents a structured error that occurs during configuration loading
type ConfigurationError struct {
	FilePath    string   `json:"filePath"`    // Full path to the file that caused the error
	ErrorType   string   `json:"errorType"`   // Type of error (parse, validation, io, etc.)
	Message     string   `json:"message"`     // Human-readable error message
	Details     string   `json:"details"`     // Additional details about the error
	Suggestions []string `json:"suggestions"` // Actionable suggestions to fix the error
	Err         error    `json:"-"`
}

// Error implements the error interface
func (ce *ConfigurationError) Error() string {
	if ce.FilePath == "" {
		return fmt.Sprintf("[%s] %s", ce.ErrorType, ce.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", ce.ErrorType, ce.FilePath, ce.Message)
}

func (ce *ConfigurationError) Unwrap() error {
	return ce.Err
}

// DetailedError returns a detailed error message with all context
func (ce *ConfigurationError) DetailedError() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Configuration Error: %s", ce.Message))
	if ce.FilePath != "" {
		parts = append(parts, fmt.Sprintf("  File: %s", ce.FilePath))
	}
	parts = append(parts, fmt.Sprintf("  Type: %s", ce.ErrorType))

	if ce.Details != "" {
		parts = append(parts, fmt.Sprintf("  Details: %s", ce.Details))
	}

	if len(ce.Suggestions) > 0 {
		parts = append(parts, "  Suggestions:")
		for _, suggestion := range ce.Suggestions {
			parts = append(parts, fmt.Sprintf("    - %s", suggestion))
		}
	}

	return strings.Join(parts, "\n")
}

// CycleError reports an extends chain that loops back on itself. Chain
// starts and ends with the environment that closes the loop.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("environment inheritance cycle: %s", strings.Join(e.Chain, " -> "))
}

// IsCycle checks if an error is a CycleError.
func IsCycle(err error) bool {
	var cycleErr *CycleError
	return errors.As(err, &cycleErr)
}

// MissingParentError reports an extends reference to an undeclared
// environment.
type MissingParentError struct {
	Environment string
	Parent      string
}

func (e *MissingParentError) Error() string {
	return fmt.Sprintf("environment %s extends unknown environment %s", e.Environment, e.Parent)
}

// IsMissingParent checks if an error is a MissingParentError.
func IsMissingParent(err error) bool {
	var missingErr *MissingParentError
	return errors.As(err, &missingErr)
}

// UnknownEnvironmentError reports a request for an environment the
// document does not declare.
type UnknownEnvironmentError struct {
	Name      string
	Available []string
}

func (e *UnknownEnvironmentError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown environment %q", e.Name)
	}
	return fmt.Sprintf("unknown environment %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// IsConfigError reports whether err stems from the configuration rather
// than from the system it describes.
func IsConfigError(err error) bool {
	var (
		confErr    *ConfigurationError
		unknownErr *UnknownEnvironmentError
		validErr   ValidationErrors
	)
	return errors.As(err, &confErr) ||
		errors.As(err, &unknownErr) ||
		errors.As(err, &validErr) ||
		IsCycle(err) ||
		IsMissingParent(err)
}
