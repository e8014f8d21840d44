package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultEnvironment names the single environment of a document without an
// environments block.
const DefaultEnvironment = "default"

// StringList accepts either a YAML sequence or a single scalar, which is
// split on whitespace.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = strings.Fields(value.Value)
		if *l == nil {
			*l = StringList{}
		}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		if items == nil {
			items = []string{}
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", value.Line)
	}
}

// FlexInt is an integer that may be written as a quoted string, which is
// what interpolated values become.
type FlexInt int

// UnmarshalYAML implements yaml.Unmarshaler.
func (i *FlexInt) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected an integer", value.Line)
	}
	n, err := strconv.Atoi(strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("line %d: %q is not an integer", value.Line, value.Value)
	}
	*i = FlexInt(n)
	return nil
}

// HealthCheckConfig describes a container health probe.
type HealthCheckConfig struct {
	Test        StringList `yaml:"test,omitempty" json:"test,omitempty"`
	Interval    string     `yaml:"interval,omitempty" json:"interval,omitempty"`
	Timeout     string     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	StartPeriod string     `yaml:"start_period,omitempty" json:"startPeriod,omitempty"`
	Retries     FlexInt    `yaml:"retries,omitempty" json:"retries,omitempty"`
}

// ServiceConfig is the declaration of one service. A nil or empty field
// means "not declared", which matters when environments are merged.
type ServiceConfig struct {
	Image         string             `yaml:"image,omitempty" json:"image,omitempty"`
	ContainerName string             `yaml:"container_name,omitempty" json:"containerName,omitempty"`
	Command       StringList         `yaml:"command,omitempty" json:"command,omitempty"`
	Environment   map[string]string  `yaml:"environment,omitempty" json:"environment,omitempty"`
	Ports         []string           `yaml:"ports,omitempty" json:"ports,omitempty"`
	Volumes       []string           `yaml:"volumes,omitempty" json:"volumes,omitempty"`
	DependsOn     []string           `yaml:"depends_on,omitempty" json:"dependsOn,omitempty"`
	HealthCheck   *HealthCheckConfig `yaml:"healthcheck,omitempty" json:"healthcheck,omitempty"`
}

// Systemd modes of ProductionConfig.
const (
	SystemdAuto   = "auto"
	SystemdAlways = "always"
	SystemdNever  = "never"
)

// ProductionConfig overrides the conventions used for bare-metal services.
// Template fields are rendered per service with text/template and sprig.
type ProductionConfig struct {
	BaseDir     string `yaml:"base_dir,omitempty" json:"baseDir,omitempty"`
	PidFile     string `yaml:"pid_file,omitempty" json:"pidFile,omitempty"`
	LogFile     string `yaml:"log_file,omitempty" json:"logFile,omitempty"`
	Unit        string `yaml:"unit,omitempty" json:"unit,omitempty"`
	Artifact    string `yaml:"artifact,omitempty" json:"artifact,omitempty"`
	Systemd     string `yaml:"systemd,omitempty" json:"systemd,omitempty"`
	EnableCache string `yaml:"enable_cache,omitempty" json:"enableCache,omitempty"`
}

// EnvironmentNode is one entry of the environments block before
// inheritance is resolved.
type EnvironmentNode struct {
	Extends   string                   `yaml:"extends,omitempty" json:"extends,omitempty"`
	Services  map[string]ServiceConfig `yaml:"services,omitempty" json:"services,omitempty"`
	Variables map[string]string        `yaml:"variables,omitempty" json:"variables,omitempty"`
}

// Document is a parsed and interpolated stack configuration file.
type Document struct {
	Project            string                     `yaml:"project,omitempty"`
	Services           map[string]ServiceConfig   `yaml:"services,omitempty"`
	Variables          map[string]string          `yaml:"variables,omitempty"`
	Environments       map[string]EnvironmentNode `yaml:"environments,omitempty"`
	DefaultEnvironment string                     `yaml:"default_environment,omitempty"`
	Production         ProductionConfig           `yaml:"production,omitempty"`
}

// MultiEnvironment reports whether the document uses the environments schema.
func (d *Document) MultiEnvironment() bool {
	return d.Environments != nil
}

// EnvironmentNames returns the declared environment names, sorted.
func (d *Document) EnvironmentNames() []string {
	if !d.MultiEnvironment() {
		return []string{DefaultEnvironment}
	}
	names := make([]string, 0, len(d.Environments))
	for name := range d.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolvedConfig is the effective configuration of one environment.
type ResolvedConfig struct {
	Project     string                   `yaml:"project" json:"project"`
	Environment string                   `yaml:"environment" json:"environment"`
	Services    map[string]ServiceConfig `yaml:"services" json:"services"`
	Variables   map[string]string        `yaml:"variables,omitempty" json:"variables,omitempty"`
	Production  ProductionConfig         `yaml:"production,omitempty" json:"production,omitempty"`

	lookup map[string]string
}

// ServiceNames returns the service names, sorted.
func (c *ResolvedConfig) ServiceNames() []string {
	names := make([]string, 0, len(c.Services))
	for name := range c.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Service returns the named service.
func (c *ResolvedConfig) Service(name string) (ServiceConfig, bool) {
	svc, ok := c.Services[name]
	return svc, ok
}

// Expand interpolates s with the environment's variables, overridden by
// the variables the configuration was parsed with.
func (c *ResolvedConfig) Expand(s string) string {
	view := make(map[string]string, len(c.Variables)+len(c.lookup))
	for k, v := range c.Variables {
		view[k] = v
	}
	for k, v := range c.lookup {
		view[k] = v
	}
	return InterpolateString(s, view)
}

// ExpandedService returns the named service with Expand applied to every
// string it declares.
func (c *ResolvedConfig) ExpandedService(name string) (ServiceConfig, bool) {
	svc, ok := c.Services[name]
	if !ok {
		return ServiceConfig{}, false
	}
	out := cloneService(svc)
	out.Image = c.Expand(out.Image)
	out.ContainerName = c.Expand(out.ContainerName)
	for i := range out.Command {
		out.Command[i] = c.Expand(out.Command[i])
	}
	for k, v := range out.Environment {
		out.Environment[k] = c.Expand(v)
	}
	for i := range out.Ports {
		out.Ports[i] = c.Expand(out.Ports[i])
	}
	for i := range out.Volumes {
		out.Volumes[i] = c.Expand(out.Volumes[i])
	}
	if out.HealthCheck != nil {
		out.HealthCheck.Test = append(StringList{}, out.HealthCheck.Test...)
		for i := range out.HealthCheck.Test {
			out.HealthCheck.Test[i] = c.Expand(out.HealthCheck.Test[i])
		}
	}
	return out, true
}
