package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"strata/internal/config"
	"strata/internal/template"
)

// Default production layout. The templates see .Name, .BaseDir, .Port and
// .Artifact (the artifact path relative to BaseDir).
const (
	DefaultBaseDir  = "/opt/strata"
	DefaultPidFile  = "{{ .BaseDir }}/run/{{ .Name }}.pid"
	DefaultLogFile  = "{{ .BaseDir }}/logs/{{ .Name }}.log"
	DefaultUnit     = "strata-{{ .Name }}.service"
	DefaultArtifact = "{{ .BaseDir }}/{{ .Artifact }}"
)

// Conventions are the naming rules for bare-metal services.
type Conventions struct {
	BaseDir     string
	PidFile     string
	LogFile     string
	Unit        string
	Artifact    string
	EnableCache bool
}

// DefaultConventions returns the stock layout under DefaultBaseDir.
func DefaultConventions() Conventions {
	return Conventions{
		BaseDir:  DefaultBaseDir,
		PidFile:  DefaultPidFile,
		LogFile:  DefaultLogFile,
		Unit:     DefaultUnit,
		Artifact: DefaultArtifact,
	}
}

// ConventionsFromConfig applies the production block of a stack
// configuration on top of DefaultConventions.
func ConventionsFromConfig(cfg *config.ResolvedConfig) (Conventions, error) {
	conv := DefaultConventions()
	p := cfg.Production
	override := func(dst *string, v string) {
		if v = strings.TrimSpace(cfg.Expand(v)); v != "" {
			*dst = v
		}
	}
	override(&conv.BaseDir, p.BaseDir)
	override(&conv.PidFile, p.PidFile)
	override(&conv.LogFile, p.LogFile)
	override(&conv.Unit, p.Unit)
	override(&conv.Artifact, p.Artifact)

	if v := strings.TrimSpace(cfg.Expand(p.EnableCache)); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Conventions{}, fmt.Errorf("production.enable_cache: %q is not a boolean", v)
		}
		conv.EnableCache = enabled
	}
	return conv, nil
}

// ServicePaths are the rendered locations of one production service.
type ServicePaths struct {
	PidFile  string
	LogFile  string
	Unit     string
	Artifact string
}

// Resolve renders every convention for one service.
func (c Conventions) Resolve(engine *template.Engine, name string, port int, artifact string) (ServicePaths, error) {
	data := c.data(name, port, artifact)
	var out ServicePaths
	for _, f := range []struct {
		field string
		tmpl  string
		dst   *string
	}{
		{"pid_file", c.PidFile, &out.PidFile},
		{"log_file", c.LogFile, &out.LogFile},
		{"unit", c.Unit, &out.Unit},
		{"artifact", c.Artifact, &out.Artifact},
	} {
		v, err := engine.Render(f.field, f.tmpl, data)
		if err != nil {
			return ServicePaths{}, fmt.Errorf("service %s: %w", name, err)
		}
		*f.dst = v
	}
	return out, nil
}

func (c Conventions) data(name string, port int, artifact string) map[string]interface{} {
	return map[string]interface{}{
		"Name":     name,
		"BaseDir":  c.BaseDir,
		"Port":     port,
		"Artifact": artifact,
	}
}
