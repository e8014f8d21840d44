package manifest

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/compose-spec/compose-go/v2/cli"
	composetypes "github.com/compose-spec/compose-go/v2/types"

	"strata/internal/services"
	"strata/pkg/logging"
)

const subsystem = "Manifest"

// LoadCompose parses the compose file at path into container descriptors.
// project overrides the compose project name when set; envFile, when set,
// replaces the .env next to the file.
func LoadCompose(ctx context.Context, path, project, envFile string) ([]services.ServiceDescriptor, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fns := []cli.ProjectOptionsFn{
		cli.WithWorkingDirectory(filepath.Dir(abs)),
		cli.WithOsEnv,
	}
	if envFile != "" {
		fns = append(fns, cli.WithEnvFiles(envFile))
	}
	fns = append(fns, cli.WithDotEnv)
	if project != "" {
		fns = append(fns, cli.WithName(project))
	}

	opts, err := cli.NewProjectOptions([]string{abs}, fns...)
	if err != nil {
		return nil, fmt.Errorf("project options: %w", err)
	}
	proj, err := cli.ProjectFromOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("loading compose file %s: %w", path, err)
	}

	descs, err := descriptorsFromProject(proj)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.Debug(subsystem, "Loaded %d services of compose project %s from %s", len(descs), proj.Name, path)
	return descs, nil
}

func descriptorsFromProject(proj *composetypes.Project) ([]services.ServiceDescriptor, error) {
	names := make([]string, 0, len(proj.Services))
	for name := range proj.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	descs := make([]services.ServiceDescriptor, 0, len(names))
	for _, name := range names {
		svc := proj.Services[name]
		desc := services.ServiceDescriptor{
			Name:          name,
			Kind:          services.KindContainer,
			RuntimeHandle: ContainerHandle(proj.Name, name, svc.ContainerName),
		}
		for _, p := range svc.Ports {
			hostPort, err := publishedPort(p.Published)
			if err != nil {
				return nil, fmt.Errorf("service %s: %w", name, err)
			}
			desc.Ports = append(desc.Ports, services.PortMapping{
				HostIP:        p.HostIP,
				HostPort:      hostPort,
				ContainerPort: int(p.Target),
				Protocol:      p.Protocol,
			})
		}
		for dep := range svc.DependsOn {
			desc.DependsOn = append(desc.DependsOn, dep)
		}
		sort.Strings(desc.DependsOn)
		descs = append(descs, desc)
	}
	return descs, nil
}

// ContainerHandle is the name compose gives the first replica of service.
func ContainerHandle(project, service, containerName string) string {
	if containerName != "" {
		return containerName
	}
	return fmt.Sprintf("%s-%s-1", project, service)
}

// publishedPort reads a published port, using the lower bound of a range.
func publishedPort(published string) (int, error) {
	if published == "" {
		return 0, nil
	}
	lower, _, _ := strings.Cut(published, "-")
	port, err := strconv.Atoi(lower)
	if err != nil {
		return 0, fmt.Errorf("invalid published port %q", published)
	}
	return port, nil
}
