package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseDocument decodes data, interpolates every string with vars and
// decodes the result into a Document.
func ParseDocument(data []byte, vars map[string]string) (*Document, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, &ConfigurationError{
			ErrorType:   "parse",
			Message:     "invalid YAML",
			Details:     err.Error(),
			Suggestions: []string{"Check indentation and quoting of the stack configuration"},
			Err:         err,
		}
	}
	if tree == nil {
		return &Document{}, nil
	}
	if _, ok := tree.(map[string]any); !ok {
		return nil, &ConfigurationError{
			ErrorType: "parse",
			Message:   "top level must be a mapping",
		}
	}

	expanded, err := yaml.Marshal(Interpolate(tree, vars))
	if err != nil {
		return nil, fmt.Errorf("re-encoding interpolated configuration: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(expanded, &doc); err != nil {
		return nil, &ConfigurationError{
			ErrorType: "parse",
			Message:   "unexpected configuration structure",
			Details:   err.Error(),
			Err:       err,
		}
	}
	if doc.Environments != nil && doc.Services != nil {
		return nil, &ConfigurationError{
			ErrorType:   "parse",
			Message:     "services and environments cannot both be declared at the top level",
			Suggestions: []string{"Move the top-level services into a base environment and extend it"},
		}
	}
	return &doc, nil
}

// Parse turns a stack configuration document into the resolved
// configuration of envName. An empty envName selects default_environment.
// Parse performs no I/O.
func Parse(data []byte, vars map[string]string, envName string) (*ResolvedConfig, error) {
	doc, err := ParseDocument(data, vars)
	if err != nil {
		return nil, err
	}
	return doc.Resolve(envName, vars)
}

// Resolve applies inheritance for envName.
func (d *Document) Resolve(envName string, vars map[string]string) (*ResolvedConfig, error) {
	cfg := &ResolvedConfig{
		Project:    d.Project,
		Production: d.Production,
		lookup:     vars,
	}

	if !d.MultiEnvironment() {
		if envName != "" && envName != DefaultEnvironment {
			return nil, &UnknownEnvironmentError{Name: envName, Available: []string{DefaultEnvironment}}
		}
		cfg.Environment = DefaultEnvironment
		cfg.Services = make(map[string]ServiceConfig, len(d.Services))
		for name, svc := range d.Services {
			cfg.Services[name] = cloneService(svc)
		}
		cfg.Variables = make(map[string]string, len(d.Variables))
		for k, v := range d.Variables {
			cfg.Variables[k] = v
		}
		return cfg, nil
	}

	if envName == "" {
		envName = d.DefaultEnvironment
	}
	if envName == "" {
		if len(d.Environments) != 1 {
			return nil, &UnknownEnvironmentError{Name: "", Available: d.EnvironmentNames()}
		}
		envName = d.EnvironmentNames()[0]
	}

	env, err := ResolveEnvironment(d.Environments, envName)
	if err != nil {
		return nil, err
	}
	cfg.Environment = env.Name
	cfg.Services = env.Services
	cfg.Variables = env.Variables
	return cfg, nil
}
