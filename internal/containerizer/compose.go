package containerizer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"strata/pkg/logging"
)

const composeSubsystem = "Compose"

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// daemonDownMarkers are fragments of CLI output meaning the engine is not
// reachable, as opposed to a request it rejected.
var daemonDownMarkers = []string{
	"Cannot connect to the Docker daemon",
	"Is the docker daemon running",
	"error during connect",
}

// ComposeCLI implements Lifecycle by shelling out to `docker compose`.
type ComposeCLI struct {
	// Command is the compose entrypoint, "docker compose" by default.
	Command []string
	// Files are passed as -f flags when set.
	Files []string
	// EnvFile is passed as --env-file when set.
	EnvFile string
	// ProjectDir is passed as --project-directory when set.
	ProjectDir string
}

// NewComposeCLI returns a ComposeCLI using the docker CLI plugin.
func NewComposeCLI(files []string, envFile string) *ComposeCLI {
	return &ComposeCLI{
		Command: []string{"docker", "compose"},
		Files:   files,
		EnvFile: envFile,
	}
}

// Up starts a single service of the project in the background.
func (c *ComposeCLI) Up(ctx context.Context, project, service string) error {
	return c.run(ctx, project, "up", "-d", service)
}

// Stop stops a single service of the project.
func (c *ComposeCLI) Stop(ctx context.Context, project, service string) error {
	return c.run(ctx, project, "stop", service)
}

// Restart restarts a single service of the project.
func (c *ComposeCLI) Restart(ctx context.Context, project, service string) error {
	return c.run(ctx, project, "restart", service)
}

func (c *ComposeCLI) args(project string, sub ...string) []string {
	command := c.Command
	if len(command) == 0 {
		command = []string{"docker", "compose"}
	}
	args := append([]string{}, command[1:]...)
	if project != "" {
		args = append(args, "--project-name", project)
	}
	for _, f := range c.Files {
		args = append(args, "-f", f)
	}
	if c.EnvFile != "" {
		args = append(args, "--env-file", c.EnvFile)
	}
	if c.ProjectDir != "" {
		args = append(args, "--project-directory", c.ProjectDir)
	}
	return append(args, sub...)
}

func (c *ComposeCLI) run(ctx context.Context, project string, sub ...string) error {
	bin := "docker"
	if len(c.Command) > 0 {
		bin = c.Command[0]
	}
	args := c.args(project, sub...)
	logging.Debug(composeSubsystem, "Running %s %s", bin, strings.Join(args, " "))

	output, err := execCommandContext(ctx, bin, args...).CombinedOutput()
	if err == nil {
		return nil
	}

	out := strings.TrimSpace(string(output))
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s not found in PATH", ErrUnavailable, bin)
	}
	for _, marker := range daemonDownMarkers {
		if strings.Contains(out, marker) {
			return fmt.Errorf("%w: %s", ErrUnavailable, out)
		}
	}
	return &CommandError{
		Args:   append([]string{bin}, args...),
		Output: out,
		Err:    fmt.Errorf("%s %s failed: %w", bin, sub[0], err),
	}
}
