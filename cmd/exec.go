package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"strata/internal/services"
)

func newExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <service> -- <command> [args...]",
		Short: "Run a command inside a service",
		Long: `Runs a one-off command in the context of a service: inside its container
in dev mode, or next to the process in prod mode. The combined output is
printed; a non-zero exit status fails the command.`,
		Args:              cobra.MinimumNArgs(2),
		ValidArgsFunction: completeServiceNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, command, err := splitExecArgs(args, cmd.ArgsLenAtDash())
			if err != nil {
				return err
			}
			return withStack(cmd, func(ctx context.Context, st *stack) error {
				svc, err := st.registry.ByName(name)
				if err != nil {
					return err
				}
				return runExec(ctx, svc, command, cmd.OutOrStdout())
			})
		},
	}
}

// splitExecArgs separates the service name from the command. dash is the
// position of "--" as reported by cobra, or -1.
func splitExecArgs(args []string, dash int) (string, []string, error) {
	switch {
	case dash == 1 && len(args) > 1:
		return args[0], args[1:], nil
	case dash < 0 && len(args) > 1:
		return args[0], args[1:], nil
	default:
		return "", nil, fmt.Errorf("%w: expected exec <service> -- <command>", errUsage)
	}
}

func runExec(ctx context.Context, svc services.Service, command []string, out io.Writer) error {
	output, err := svc.Exec(ctx, command)
	if output != "" {
		_, _ = io.WriteString(out, output)
	}
	return err
}
