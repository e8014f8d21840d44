package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"strata/internal/formatting"
	"strata/internal/services"
)

const (
	defaultWatchInterval = 2 * time.Second
	defaultWatchCount    = 150
)

func newStatusCmd() *cobra.Command {
	var (
		output   string
		watch    bool
		interval time.Duration
		count    int
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state and health of every service",
		Long: `Polls every service of the stack concurrently and prints its state and
health. With --watch the table is refreshed every --interval until
--count polls were made or the command is interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newFormatter(cmd, output)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)
			return withStack(cmd, func(ctx context.Context, st *stack) error {
				polls := 1
				if watch {
					polls = count
				}
				return runStatus(ctx, st.registry, f, polls, interval)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Refresh until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", defaultWatchInterval, "Refresh interval with --watch")
	cmd.Flags().IntVar(&count, "count", defaultWatchCount, "Maximum number of polls with --watch (0 for no limit)")
	return cmd
}

type statusSource interface {
	AllStatuses(ctx context.Context) []services.ServiceStatus
	AllHealth(ctx context.Context) []services.HealthReport
}

// runStatus prints polls tables, interval apart. polls <= 0 means until ctx
// is cancelled.
func runStatus(ctx context.Context, src statusSource, f formatting.Formatter, polls int, interval time.Duration) error {
	for n := 1; ; n++ {
		rows := formatting.StatusRows(src.AllStatuses(ctx), src.AllHealth(ctx))
		if err := f.FormatStatus(rows); err != nil {
			return err
		}
		if polls > 0 && n >= polls {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func newHealthCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:               "health [service...]",
		Short:             "Run the health check of services",
		Long:              `Runs the health check of the named services, or of every service, and exits non-zero when any of them is unhealthy.`,
		ValidArgsFunction: completeServiceNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newFormatter(cmd, output)
			if err != nil {
				return err
			}
			return withStack(cmd, func(ctx context.Context, st *stack) error {
				reports, err := healthOf(ctx, st.registry, args)
				if err != nil {
					return err
				}
				if err := f.FormatHealth(reports); err != nil {
					return err
				}
				return unhealthyError(reports)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	return cmd
}

// healthOf runs AllHealth and keeps the named services, in the order given.
func healthOf(ctx context.Context, r *services.Registry, names []string) ([]services.HealthReport, error) {
	for _, n := range names {
		if _, err := r.ByName(n); err != nil {
			return nil, err
		}
	}
	all := r.AllHealth(ctx)
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]services.HealthReport, len(all))
	for _, rep := range all {
		byName[rep.Name] = rep
	}
	out := make([]services.HealthReport, 0, len(names))
	for _, n := range names {
		out = append(out, byName[n])
	}
	return out, nil
}

func unhealthyError(reports []services.HealthReport) error {
	unhealthy := 0
	for _, r := range reports {
		if !r.Result.Healthy {
			unhealthy++
		}
	}
	if unhealthy == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d services unhealthy", unhealthy, len(reports))
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
