package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"strata/internal/config"
	"strata/internal/services"
)

// FromConfig builds container descriptors from a resolved stack
// configuration, in service name order.
func FromConfig(cfg *config.ResolvedConfig) ([]services.ServiceDescriptor, error) {
	descs := make([]services.ServiceDescriptor, 0, len(cfg.Services))
	for _, name := range cfg.ServiceNames() {
		svc, _ := cfg.ExpandedService(name)
		desc := services.ServiceDescriptor{
			Name:          name,
			Kind:          services.KindContainer,
			RuntimeHandle: ContainerHandle(cfg.Project, name, svc.ContainerName),
			DependsOn:     append([]string(nil), svc.DependsOn...),
		}
		for _, spec := range svc.Ports {
			hostIP, hostPort, containerPort, proto, err := config.ParsePort(spec)
			if err != nil {
				return nil, fmt.Errorf("service %s: %w", name, err)
			}
			desc.Ports = append(desc.Ports, services.PortMapping{
				HostIP:        hostIP,
				HostPort:      hostPort,
				ContainerPort: containerPort,
				Protocol:      proto,
			})
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

type composeFile struct {
	Name     string                          `yaml:"name"`
	Services map[string]config.ServiceConfig `yaml:"services"`
}

// RenderCompose writes the services of cfg as a compose file at path so
// that the compose CLI can act on them.
func RenderCompose(cfg *config.ResolvedConfig, path string) error {
	doc := composeFile{
		Name:     cfg.Project,
		Services: make(map[string]config.ServiceConfig, len(cfg.Services)),
	}
	for _, name := range cfg.ServiceNames() {
		doc.Services[name], _ = cfg.ExpandedService(name)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding compose file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// RenderedComposePath is where RenderCompose output for environment env of
// the configuration at configPath is kept.
func RenderedComposePath(configPath, env string) string {
	return filepath.Join(filepath.Dir(configPath), ".strata", "compose."+env+".yaml")
}
