package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"strata/internal/services"
)

type lifecycleAction string

const (
	actionStart   lifecycleAction = "start"
	actionStop    lifecycleAction = "stop"
	actionRestart lifecycleAction = "restart"
)

var lifecycleShort = map[lifecycleAction]string{
	actionStart:   "Start services",
	actionStop:    "Stop services",
	actionRestart: "Restart services",
}

var lifecycleLong = map[lifecycleAction]string{
	actionStart: `Starts the named services, or every service, in dependency order. The
first failure aborts the remaining starts.`,
	actionStop: `Stops the named services, or every service, in reverse dependency order.
A failure does not prevent the remaining services from being stopped.`,
	actionRestart: `Restarts the named services, or every service, in dependency order. The
first failure aborts the remaining restarts.`,
}

func newLifecycleCmd(action lifecycleAction) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:               string(action) + " [service...]",
		Short:             lifecycleShort[action],
		Long:              lifecycleLong[action],
		ValidArgsFunction: completeServiceNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStack(cmd, func(ctx context.Context, st *stack) error {
				targets, err := st.registry.Select(args, action == actionStop)
				if err != nil {
					return err
				}
				return runLifecycle(ctx, action, targets, newProgress(cmd.ErrOrStderr(), quiet))
			})
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")
	return cmd
}

// runLifecycle applies action to targets in order. Stop keeps going after
// a failure and joins the errors; start and restart return the first one.
func runLifecycle(ctx context.Context, action lifecycleAction, targets []services.Service, p *progress) error {
	var errs []error
	for _, svc := range targets {
		p.start(fmt.Sprintf("%s %s...", progressVerb(action), svc.Name()))
		var err error
		switch action {
		case actionStart:
			err = svc.Start(ctx)
		case actionStop:
			err = svc.Stop(ctx)
		case actionRestart:
			err = svc.Restart(ctx)
		}
		p.done(fmt.Sprintf("%s %s", pastTense(action), svc.Name()), err)
		if err == nil {
			continue
		}
		if action != actionStop {
			return err
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func progressVerb(a lifecycleAction) string {
	switch a {
	case actionStop:
		return "Stopping"
	case actionRestart:
		return "Restarting"
	default:
		return "Starting"
	}
}

func pastTense(a lifecycleAction) string {
	switch a {
	case actionStop:
		return "Stopped"
	case actionRestart:
		return "Restarted"
	default:
		return "Started"
	}
}
