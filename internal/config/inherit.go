package config

import (
	"sort"
)

// Environment is an environment with its inheritance chain applied.
type Environment struct {
	Name      string
	Services  map[string]ServiceConfig
	Variables map[string]string
}

// ResolveEnvironment resolves name against nodes, applying every ancestor
// first and the child last.
func ResolveEnvironment(nodes map[string]EnvironmentNode, name string) (*Environment, error) {
	if _, ok := nodes[name]; !ok {
		return nil, &UnknownEnvironmentError{Name: name, Available: sortedKeys(nodes)}
	}
	return resolve(nodes, name, map[string]bool{}, nil)
}

// ResolveAll resolves every environment in nodes.
func ResolveAll(nodes map[string]EnvironmentNode) (map[string]*Environment, error) {
	out := make(map[string]*Environment, len(nodes))
	for _, name := range sortedKeys(nodes) {
		env, err := resolve(nodes, name, map[string]bool{}, nil)
		if err != nil {
			return nil, err
		}
		out[name] = env
	}
	return out, nil
}

// resolve walks the extends chain depth first. resolving holds the
// environments on the current path; chain records the same path in order
// so that a cycle can be reported in full.
func resolve(nodes map[string]EnvironmentNode, name string, resolving map[string]bool, chain []string) (*Environment, error) {
	chain = append(chain, name)
	if resolving[name] {
		return nil, &CycleError{Chain: chain}
	}
	resolving[name] = true
	defer delete(resolving, name)

	node := nodes[name]
	env := &Environment{
		Name:      name,
		Services:  map[string]ServiceConfig{},
		Variables: map[string]string{},
	}

	if node.Extends != "" {
		if _, ok := nodes[node.Extends]; !ok {
			return nil, &MissingParentError{Environment: name, Parent: node.Extends}
		}
		parent, err := resolve(nodes, node.Extends, resolving, chain)
		if err != nil {
			return nil, err
		}
		env.Services = parent.Services
		env.Variables = parent.Variables
	}

	for svcName, child := range node.Services {
		if base, ok := env.Services[svcName]; ok {
			env.Services[svcName] = MergeService(base, child)
		} else {
			env.Services[svcName] = cloneService(child)
		}
	}
	for k, v := range node.Variables {
		env.Variables[k] = v
	}
	env.Name = name
	return env, nil
}

// MergeService overlays child on base. Environment entries merge key by
// key with the child winning; every other field is replaced only when the
// child declares it.
func MergeService(base, child ServiceConfig) ServiceConfig {
	out := cloneService(base)
	if child.Image != "" {
		out.Image = child.Image
	}
	if child.ContainerName != "" {
		out.ContainerName = child.ContainerName
	}
	if child.Command != nil {
		out.Command = append(StringList{}, child.Command...)
	}
	if child.Ports != nil {
		out.Ports = append([]string{}, child.Ports...)
	}
	if child.Volumes != nil {
		out.Volumes = append([]string{}, child.Volumes...)
	}
	if child.DependsOn != nil {
		out.DependsOn = append([]string{}, child.DependsOn...)
	}
	if child.HealthCheck != nil {
		hc := *child.HealthCheck
		out.HealthCheck = &hc
	}
	if child.Environment != nil {
		if out.Environment == nil {
			out.Environment = make(map[string]string, len(child.Environment))
		}
		for k, v := range child.Environment {
			out.Environment[k] = v
		}
	}
	return out
}

func cloneService(s ServiceConfig) ServiceConfig {
	out := s
	if s.Command != nil {
		out.Command = append(StringList{}, s.Command...)
	}
	if s.Ports != nil {
		out.Ports = append([]string{}, s.Ports...)
	}
	if s.Volumes != nil {
		out.Volumes = append([]string{}, s.Volumes...)
	}
	if s.DependsOn != nil {
		out.DependsOn = append([]string{}, s.DependsOn...)
	}
	if s.HealthCheck != nil {
		hc := *s.HealthCheck
		out.HealthCheck = &hc
	}
	if s.Environment != nil {
		out.Environment = make(map[string]string, len(s.Environment))
		for k, v := range s.Environment {
			out.Environment[k] = v
		}
	}
	return out
}

func sortedKeys(nodes map[string]EnvironmentNode) []string {
	keys := make([]string, 0, len(nodes))
	for k := range nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
