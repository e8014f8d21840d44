package formatting

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"strata/internal/services"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{
		options: options,
	}
}

func (f *YAMLFormatter) FormatStatus(rows []StatusRow) error {
	return f.FormatData(nonNil(rows))
}

func (f *YAMLFormatter) FormatHealth(reports []services.HealthReport) error {
	return f.FormatData(nonNil(reports))
}

func (f *YAMLFormatter) FormatStats(rows []services.StatsReport) error {
	return f.FormatData(nonNil(rows))
}

// FormatData formats generic data as YAML
func (f *YAMLFormatter) FormatData(data interface{}) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	_, err = f.options.Output.Write(out)
	return err
}
