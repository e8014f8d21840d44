package formatting

import (
	"fmt"

	"strata/internal/services"
)

// JSONFormatter provides structured JSON output formatting
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{
		options: options,
	}
}

func (f *JSONFormatter) FormatStatus(rows []StatusRow) error {
	return f.FormatData(nonNil(rows))
}

func (f *JSONFormatter) FormatHealth(reports []services.HealthReport) error {
	return f.FormatData(nonNil(reports))
}

func (f *JSONFormatter) FormatStats(rows []services.StatsReport) error {
	return f.FormatData(nonNil(rows))
}

// FormatData formats generic data as JSON
func (f *JSONFormatter) FormatData(data interface{}) error {
	_, err := fmt.Fprintln(f.options.Output, PrettyJSON(data))
	return err
}

// nonNil keeps empty results rendering as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
