package formatting

import (
	"fmt"
	"sort"

	"github.com/docker/go-units"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"strata/internal/services"
)

const maxCellWidth = 100

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{
		options: options,
	}
}

// FormatStatus renders one row per service.
func (f *TableFormatter) FormatStatus(rows []StatusRow) error {
	if len(rows) == 0 {
		return f.formatEmptyMessage("No services configured")
	}
	t := f.createTable()
	t.AppendHeader(table.Row{"Service", "Kind", "State", "Health", "Message"})
	for _, r := range rows {
		health := "-"
		if r.Healthy != nil {
			health = f.health(*r.Healthy)
		}
		t.AppendRow(table.Row{r.Name, r.Kind, f.state(r.State), health, truncate(r.Message)})
	}
	t.Render()
	return nil
}

// FormatHealth renders one row per health report.
func (f *TableFormatter) FormatHealth(reports []services.HealthReport) error {
	if len(reports) == 0 {
		return f.formatEmptyMessage("No services configured")
	}
	t := f.createTable()
	t.AppendHeader(table.Row{"Service", "Health", "Message"})
	for _, r := range reports {
		t.AppendRow(table.Row{r.Name, f.health(r.Result.Healthy), truncate(r.Result.Message)})
	}
	t.Render()
	return nil
}

// FormatStats renders resource usage with human-readable sizes.
func (f *TableFormatter) FormatStats(rows []services.StatsReport) error {
	if len(rows) == 0 {
		return f.formatEmptyMessage("No services configured")
	}
	t := f.createTable()
	t.AppendHeader(table.Row{"Service", "CPU %", "Memory", "Mem %", "Net rx / tx", "Disk r / w"})
	for _, r := range rows {
		s := r.Stats
		if s == (services.Stats{}) {
			t.AppendRow(table.Row{r.Name, "-", "-", "-", "-", "-"})
			continue
		}
		t.AppendRow(table.Row{
			r.Name,
			fmt.Sprintf("%.2f", s.CPUPercent),
			fmt.Sprintf("%s / %s", size(s.MemoryUsed), size(s.MemoryLimit)),
			fmt.Sprintf("%.2f", s.MemoryPercent),
			fmt.Sprintf("%s / %s", size(s.Network.RxBytes), size(s.Network.TxBytes)),
			fmt.Sprintf("%s / %s", size(s.Disk.ReadBytes), size(s.Disk.WriteBytes)),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()
	return nil
}

// FormatData formats generic data as key-value pairs
func (f *TableFormatter) FormatData(data interface{}) error {
	switch d := data.(type) {
	case map[string]interface{}:
		return f.formatObjectData(d)
	case map[string]string:
		obj := make(map[string]interface{}, len(d))
		for k, v := range d {
			obj[k] = v
		}
		return f.formatObjectData(obj)
	case string:
		_, err := fmt.Fprintln(f.options.Output, d)
		return err
	default:
		_, err := fmt.Fprintln(f.options.Output, PrettyJSON(d))
		return err
	}
}

// Helper methods

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.options.Output)
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) colorize(colors text.Colors, s string) string {
	if !f.options.Color {
		return s
	}
	return colors.Sprint(s)
}

func (f *TableFormatter) state(s services.ServiceState) string {
	switch s {
	case services.StateRunning:
		return f.colorize(text.Colors{text.FgGreen}, string(s))
	case services.StateError:
		return f.colorize(text.Colors{text.FgRed, text.Bold}, string(s))
	case services.StateStopped:
		return f.colorize(text.Colors{text.FgHiBlack}, string(s))
	default:
		return f.colorize(text.Colors{text.FgYellow}, string(s))
	}
}

func (f *TableFormatter) health(healthy bool) string {
	if healthy {
		return f.colorize(text.Colors{text.FgGreen}, "healthy")
	}
	return f.colorize(text.Colors{text.FgRed}, "unhealthy")
}

// formatEmptyMessage formats empty result messages
func (f *TableFormatter) formatEmptyMessage(message string) error {
	_, err := fmt.Fprintln(f.options.Output, f.colorize(text.Colors{text.FgYellow}, message))
	return err
}

// formatObjectData formats object data as key-value pairs
func (f *TableFormatter) formatObjectData(data map[string]interface{}) error {
	t := f.createTable()
	t.AppendHeader(table.Row{"Key", "Value"})

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		t.AppendRow(table.Row{f.colorize(text.Colors{text.FgHiCyan}, key), truncate(fmt.Sprintf("%v", data[key]))})
	}

	t.Render()
	return nil
}

func truncate(s string) string {
	if len(s) > maxCellWidth {
		return s[:maxCellWidth-3] + "..."
	}
	return s
}

func size(b uint64) string {
	return units.BytesSize(float64(b))
}
