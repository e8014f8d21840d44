package manifest

import (
	"fmt"

	"strata/internal/services"
	"strata/internal/template"
)

// productionService is one row of the production table. Args and Env are
// templates rendered with the same data as Conventions.
type productionService struct {
	Name      string
	Artifact  string
	Port      int
	Args      []string
	Env       map[string]string
	DependsOn []string
	// Cache marks the optional image proxy, deployed only when enabled.
	Cache bool
}

var productionServices = []productionService{
	{
		Name:     "postgres",
		Artifact: "pgsql/bin/postgres",
		Port:     5432,
		Args:     []string{"-D", "{{ .BaseDir }}/data/postgres", "-p", "{{ .Port }}"},
	},
	{
		Name:      "pgbouncer",
		Artifact:  "pgbouncer/bin/pgbouncer",
		Port:      6432,
		Args:      []string{"{{ .BaseDir }}/etc/pgbouncer.ini"},
		DependsOn: []string{"postgres"},
	},
	{
		Name:      "storage-api",
		Artifact:  "storage-api/bin/storage-api",
		Port:      5000,
		Env:       map[string]string{"PORT": "{{ .Port }}", "STORAGE_ROOT": "{{ .BaseDir }}/data/objects"},
		DependsOn: []string{"pgbouncer"},
	},
	{
		Name:      "metadata-api",
		Artifact:  "metadata-api/bin/metadata-api",
		Port:      8080,
		Env:       map[string]string{"PORT": "{{ .Port }}"},
		DependsOn: []string{"pgbouncer"},
	},
	{
		Name:      "imgproxy",
		Artifact:  "imgproxy/bin/imgproxy",
		Port:      8081,
		Env:       map[string]string{"IMGPROXY_BIND": ":{{ .Port }}", "IMGPROXY_LOCAL_FILESYSTEM_ROOT": "{{ .BaseDir }}/data/objects"},
		DependsOn: []string{"storage-api"},
		Cache:     true,
	},
}

// ProductionServiceNames lists every service the production table knows,
// including the optional cache.
func ProductionServiceNames() []string {
	names := make([]string, len(productionServices))
	for i, s := range productionServices {
		names[i] = s.Name
	}
	return names
}

// ProductionTable builds process descriptors for the production stack.
func ProductionTable(conv Conventions) ([]services.ServiceDescriptor, error) {
	engine := template.New()
	descs := make([]services.ServiceDescriptor, 0, len(productionServices))
	for _, s := range productionServices {
		if s.Cache && !conv.EnableCache {
			continue
		}
		paths, err := conv.Resolve(engine, s.Name, s.Port, s.Artifact)
		if err != nil {
			return nil, err
		}

		data := conv.data(s.Name, s.Port, s.Artifact)
		args, err := engine.Replace(s.Args, data)
		if err != nil {
			return nil, fmt.Errorf("service %s: args: %w", s.Name, err)
		}
		env, err := engine.Replace(s.Env, data)
		if err != nil {
			return nil, fmt.Errorf("service %s: env: %w", s.Name, err)
		}

		desc := services.ServiceDescriptor{
			Name:          s.Name,
			Kind:          services.KindProcess,
			RuntimeHandle: paths.PidFile,
			Ports:         []services.PortMapping{{HostPort: s.Port, ContainerPort: s.Port, Protocol: "tcp"}},
			Unit:          paths.Unit,
			PidFile:       paths.PidFile,
			LogFile:       paths.LogFile,
			Artifact:      paths.Artifact,
			WorkDir:       conv.BaseDir,
			HealthPort:    s.Port,
		}
		if a := args.([]string); len(a) > 0 {
			desc.Args = a
		}
		if e := env.(map[string]string); len(e) > 0 {
			desc.Env = e
		}
		desc.DependsOn = append(desc.DependsOn, s.DependsOn...)
		descs = append(descs, desc)
	}
	return descs, nil
}
