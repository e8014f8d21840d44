// Package formatting renders command output as tables, JSON or YAML.
package formatting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"strata/internal/services"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// ParseFormat validates an --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (expected table, json or yaml)", s)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Color  bool // Enable colored output
	Output io.Writer
}

// StatusRow is one line of `strata status`.
type StatusRow struct {
	Name    string                `json:"name" yaml:"name"`
	Kind    services.BackendKind  `json:"kind" yaml:"kind"`
	State   services.ServiceState `json:"state" yaml:"state"`
	Healthy *bool                 `json:"healthy,omitempty" yaml:"healthy,omitempty"`
	Message string                `json:"message,omitempty" yaml:"message,omitempty"`
}

// Formatter renders the results of the batch commands.
type Formatter interface {
	FormatStatus(rows []StatusRow) error
	FormatHealth(reports []services.HealthReport) error
	FormatStats(rows []services.StatsReport) error

	// Generic data formatting
	FormatData(data interface{}) error
}

// Factory creates formatters for different output formats
type Factory interface {
	CreateFormatter(options Options) Formatter
}

// NewFactory creates a new formatter factory
func NewFactory() Factory {
	return &factory{}
}

// factory implements the Factory interface
type factory struct{}

// CreateFormatter creates the appropriate formatter based on options
func (f *factory) CreateFormatter(options Options) Formatter {
	if options.Output == nil {
		options.Output = os.Stdout
	}
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	default:
		return NewTableFormatter(options)
	}
}

// ColorEnabled reports whether w is a terminal and NO_COLOR is unset.
func ColorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// StatusRows joins statuses with the health report of the same service.
// Services without a report have a nil Healthy.
func StatusRows(statuses []services.ServiceStatus, reports []services.HealthReport) []StatusRow {
	byName := make(map[string]services.HealthResult, len(reports))
	for _, r := range reports {
		byName[r.Name] = r.Result
	}
	rows := make([]StatusRow, len(statuses))
	for i, st := range statuses {
		rows[i] = StatusRow{Name: st.Name, Kind: st.Kind, State: st.State}
		if res, ok := byName[st.Name]; ok {
			healthy := res.Healthy
			rows[i].Healthy = &healthy
			rows[i].Message = res.Message
		}
	}
	return rows
}
