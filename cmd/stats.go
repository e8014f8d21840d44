package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"strata/internal/services"
)

func newStatsCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:               "stats [service...]",
		Short:             "Show resource usage of services",
		Long:              `Samples CPU, memory, network and disk usage of the named services, or of every service. Services without data are shown with dashes.`,
		ValidArgsFunction: completeServiceNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newFormatter(cmd, output)
			if err != nil {
				return err
			}
			return withStack(cmd, func(ctx context.Context, st *stack) error {
				reports, err := statsOf(ctx, st.registry, args)
				if err != nil {
					return err
				}
				return f.FormatStats(reports)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	return cmd
}

// statsOf samples every service and keeps the named ones in start order.
func statsOf(ctx context.Context, r *services.Registry, names []string) ([]services.StatsReport, error) {
	selected, err := r.Select(names, false)
	if err != nil {
		return nil, err
	}
	all := r.AllStats(ctx)
	byName := make(map[string]services.StatsReport, len(all))
	for _, rep := range all {
		byName[rep.Name] = rep
	}
	out := make([]services.StatsReport, 0, len(selected))
	for _, svc := range selected {
		out = append(out, byName[svc.Name()])
	}
	return out, nil
}
