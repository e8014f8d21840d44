package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"strata/internal/config"
	"strata/internal/services"
	"strata/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfig indicates the stack configuration could not be loaded.
	ExitCodeConfig = 2
	// ExitCodeBackendUnavailable indicates the container runtime, systemd or
	// procfs could not be reached.
	ExitCodeBackendUnavailable = 3
)

// rootCmd represents the base command for the strata application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Provision and supervise the strata storage stack",
	Long: `strata runs the storage stack (database, connection pooler, storage API,
metadata API and optional image cache) either as containers of a compose
project (--mode dev) or as bare-metal processes supervised by systemd or
PID files (--mode prod), and gives the same start/stop/status/health/logs
commands for both.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "strata version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case config.IsConfigError(err):
		return ExitCodeConfig
	case services.IsBackendUnavailable(err):
		return ExitCodeBackendUnavailable
	default:
		return ExitCodeError
	}
}

func initLogging(cmd *cobra.Command, args []string) error {
	s := currentSettings()
	level, err := logging.ParseLevel(s.LogLevel)
	if err != nil {
		return err
	}
	var format logging.Format
	switch s.LogFormat {
	case "", string(logging.FormatText):
		format = logging.FormatText
	case string(logging.FormatJSON):
		format = logging.FormatJSON
	default:
		return fmt.Errorf("unknown log format %q (expected text or json)", s.LogFormat)
	}
	logging.InitForCLIWithFormat(level, cmd.ErrOrStderr(), format)
	return nil
}

// errUsage marks argument errors detected after cobra's own validation.
var errUsage = errors.New("invalid arguments")

func init() {
	cobra.OnInitialize(initSettings)
	bindPersistentFlags(settings, rootCmd.PersistentFlags())

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newLogsCmd())
	rootCmd.AddCommand(newLifecycleCmd(actionStart))
	rootCmd.AddCommand(newLifecycleCmd(actionStop))
	rootCmd.AddCommand(newLifecycleCmd(actionRestart))
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newExecCmd())
	rootCmd.AddCommand(newConfigCmd())
}
