// Package logging provides the subsystem-keyed logging facade used across
// strata.
//
// It is a thin layer over Go's standard slog package. Callers log with a
// subsystem name and a printf-style message:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Registry", "Built %d service adapters", n)
//	logging.Debug("Config", "Loaded configuration from %s", path)
//	logging.Warn("ContainerService", "Inspect of %s failed, reporting unknown", name)
//	logging.Error("ProcessService", err, "Failed to stop %s", name)
//
// Every entry carries a "subsystem" attribute; Error additionally carries an
// "error" attribute. InitForCLIWithFormat selects a JSON handler instead of
// the default text handler.
//
// Before initialisation only warnings and errors are written (to stderr), so
// library code can log unconditionally.
//
// All functions are safe for concurrent use.
package logging
