package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

var (
	serviceNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)
	// [ip:]host:container[/proto], or a bare container port.
	portRe = regexp.MustCompile(`^(?:(?:(\[[0-9a-fA-F:]+\]|[0-9.]+):)?(\d+):)?(\d+)(?:/(tcp|udp|sctp))?$`)
)

// ParsePort splits a port declaration. hostIP and hostPort are empty/zero
// for a bare container port.
func ParsePort(spec string) (hostIP string, hostPort, containerPort int, proto string, err error) {
	m := portRe.FindStringSubmatch(strings.TrimSpace(spec))
	if m == nil {
		return "", 0, 0, "", fmt.Errorf("invalid port %q, expected [ip:]host:container[/proto]", spec)
	}
	hostIP = strings.Trim(m[1], "[]")
	if m[2] != "" {
		hostPort, _ = strconv.Atoi(m[2])
	}
	containerPort, _ = strconv.Atoi(m[3])
	proto = m[4]
	if proto == "" {
		proto = "tcp"
	}
	if hostPort > 65535 || containerPort == 0 || containerPort > 65535 {
		return "", 0, 0, "", fmt.Errorf("port %q out of range", spec)
	}
	return hostIP, hostPort, containerPort, proto, nil
}

// Validate checks service names, port syntax and depends_on targets.
func (c *ResolvedConfig) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(c.Project) == "" {
		errs.Add("project", "is required")
	}
	if len(c.Services) == 0 {
		errs.Add("services", "must declare at least one service")
	}

	for _, name := range c.ServiceNames() {
		svc := c.Services[name]
		if !serviceNameRe.MatchString(name) {
			errs.Add("services."+name, "invalid service name", name)
		}
		for i, p := range svc.Ports {
			if _, _, _, _, err := ParsePort(c.Expand(p)); err != nil {
				errs.Add(fmt.Sprintf("services.%s.ports[%d]", name, i), err.Error(), p)
			}
		}
		for _, dep := range svc.DependsOn {
			if dep == name {
				errs.Add("services."+name+".depends_on", "service cannot depend on itself", dep)
				continue
			}
			if _, ok := c.Services[dep]; !ok {
				errs.Add("services."+name+".depends_on", fmt.Sprintf("unknown service %q", dep), dep)
			}
		}
	}

	switch c.Production.Systemd {
	case "", SystemdAuto, SystemdAlways, SystemdNever:
	default:
		errs.Add("production.systemd", fmt.Sprintf("must be one of: %s, %s, %s", SystemdAuto, SystemdAlways, SystemdNever), c.Production.Systemd)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
