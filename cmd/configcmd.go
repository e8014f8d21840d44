package cmd

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"strata/internal/config"
	"strata/internal/formatting"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the stack configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigEnvironmentsCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration of an environment",
		Long: `Loads the stack configuration, applies interpolation and environment
inheritance, validates the result and prints it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := currentSettings()
			cfg, err := config.LoadFile(s.ConfigFile, s.EnvFile, s.Environment)
			if err != nil {
				return err
			}
			return printConfig(cmd.OutOrStdout(), cfg, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format (yaml, json)")
	return cmd
}

func printConfig(out io.Writer, cfg *config.ResolvedConfig, output string) error {
	switch output {
	case "yaml", "":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		_, err = out.Write(data)
		return err
	case "json":
		_, err := fmt.Fprintln(out, formatting.PrettyJSON(cfg))
		return err
	default:
		return fmt.Errorf("unsupported output format %q (expected yaml or json)", output)
	}
}

func newConfigEnvironmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "environments",
		Aliases: []string{"envs"},
		Short:   "List the environments of the configuration",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := currentSettings()
			doc, _, err := config.LoadDocument(s.ConfigFile, s.EnvFile)
			if err != nil {
				return err
			}
			return printEnvironments(cmd.OutOrStdout(), doc)
		},
	}
}

func printEnvironments(out io.Writer, doc *config.Document) error {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Environment", "Extends", "Services", "Default"})

	names := doc.EnvironmentNames()
	defaultName := doc.DefaultEnvironment
	if defaultName == "" && len(names) == 1 {
		defaultName = names[0]
	}

	for _, name := range names {
		extends, services := "-", len(doc.Services)
		if doc.MultiEnvironment() {
			node := doc.Environments[name]
			if node.Extends != "" {
				extends = node.Extends
			}
			services = len(node.Services)
		}
		def := ""
		if name == defaultName {
			def = "*"
		}
		t.AppendRow(table.Row{name, extends, services, def})
	}
	t.Render()
	return nil
}
