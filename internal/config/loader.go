package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/compose-spec/compose-go/v2/dotenv"

	"strata/pkg/logging"
)

const (
	// DefaultConfigFile is looked up in the working directory.
	DefaultConfigFile = "strata.yaml"
	// DefaultEnvFile is read next to the configuration file when present.
	DefaultEnvFile = ".env"
)

// osEnviron is a variable to allow overriding the process environment in tests
var osEnviron = os.Environ

// LoadEnvFile parses a dotenv file.
func LoadEnvFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	vars, err := dotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &ConfigurationError{
			FilePath:  path,
			ErrorType: "parse",
			Message:   "invalid env file",
			Details:   err.Error(),
			Err:       err,
		}
	}
	return vars, nil
}

// LoadVariables builds the interpolation view for a configuration at
// configPath. When envFile is empty, a .env next to the configuration is
// used if it exists; an explicit envFile must exist.
func LoadVariables(configPath, envFile string) (map[string]string, error) {
	explicit := envFile != ""
	if !explicit {
		envFile = filepath.Join(filepath.Dir(configPath), DefaultEnvFile)
	}

	fileVars, err := LoadEnvFile(envFile)
	switch {
	case err == nil:
		logging.Debug("ConfigLoader", "Loaded %d variables from %s", len(fileVars), envFile)
	case errors.Is(err, os.ErrNotExist) && !explicit:
		fileVars = nil
	case errors.Is(err, os.ErrNotExist):
		return nil, &ConfigurationError{
			FilePath:  envFile,
			ErrorType: "io",
			Message:   "env file not found",
			Err:       err,
		}
	default:
		return nil, err
	}
	return MergeVariables(fileVars, osEnviron()), nil
}

// LoadDocument reads and parses the configuration file without resolving
// an environment.
func LoadDocument(path, envFile string) (*Document, map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &ConfigurationError{
			FilePath:    path,
			ErrorType:   "io",
			Message:     "cannot read configuration",
			Details:     err.Error(),
			Suggestions: []string{"Pass --config or set STRATA_CONFIG to the stack configuration file"},
			Err:         err,
		}
	}
	vars, err := LoadVariables(path, envFile)
	if err != nil {
		return nil, nil, err
	}

	doc, err := ParseDocument(data, vars)
	if err != nil {
		var confErr *ConfigurationError
		if errors.As(err, &confErr) && confErr.FilePath == "" {
			confErr.FilePath = path
		}
		return nil, nil, err
	}
	if doc.Project == "" {
		doc.Project = defaultProjectName(path)
	}
	return doc, vars, nil
}

// LoadFile reads the configuration at path, resolves envName and validates
// the result.
func LoadFile(path, envFile, envName string) (*ResolvedConfig, error) {
	doc, vars, err := LoadDocument(path, envFile)
	if err != nil {
		return nil, err
	}
	cfg, err := doc.Resolve(envName, vars)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.Info("ConfigLoader", "Loaded environment %s of project %s from %s", cfg.Environment, cfg.Project, path)
	return cfg, nil
}

// defaultProjectName derives a compose-style project name from the
// directory holding the configuration.
func defaultProjectName(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	name := strings.ToLower(filepath.Base(filepath.Dir(abs)))
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "strata"
	}
	return b.String()
}
