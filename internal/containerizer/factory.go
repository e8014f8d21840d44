package containerizer

import (
	"fmt"
	"os"
	"strings"
)

// RuntimeType defines the type of container runtime
type RuntimeType string

const (
	RuntimeTypeDocker RuntimeType = "docker"
	RuntimeTypePodman RuntimeType = "podman"
)

// podmanSocket returns the rootless podman API socket of the current user.
func podmanSocket() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return "unix://" + dir + "/podman/podman.sock"
	}
	return fmt.Sprintf("unix:///run/user/%d/podman/podman.sock", os.Getuid())
}

// NewRuntime creates a Runtime for the given runtime type. Podman is driven
// through its Docker-compatible API socket.
func NewRuntime(runtimeType, host string) (*DockerClient, error) {
	switch RuntimeType(strings.ToLower(runtimeType)) {
	case RuntimeTypeDocker, "":
		// Default to Docker if not specified
		return NewDockerClient(host)
	case RuntimeTypePodman:
		if host == "" {
			host = podmanSocket()
		}
		return NewDockerClient(host)
	default:
		return nil, fmt.Errorf("unsupported container runtime: %s", runtimeType)
	}
}

// NewLifecycle creates the compose front-end matching runtimeType.
func NewLifecycle(runtimeType string, files []string, envFile string) (*ComposeCLI, error) {
	switch RuntimeType(strings.ToLower(runtimeType)) {
	case RuntimeTypeDocker, "":
		return NewComposeCLI(files, envFile), nil
	case RuntimeTypePodman:
		c := NewComposeCLI(files, envFile)
		c.Command = []string{"podman", "compose"}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported container runtime: %s", runtimeType)
	}
}
