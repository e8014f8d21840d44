package cmd

import (
	"context"
	"fmt"

	"strata/internal/config"
	"strata/internal/containerizer"
	"strata/internal/manifest"
	"strata/internal/procctl"
	"strata/internal/services"
	"strata/pkg/logging"
)

// stack is the loaded configuration together with one adapter per service.
type stack struct {
	cfg      *config.ResolvedConfig
	registry *services.Registry
	closers  []func()
}

// Close releases backend connections.
func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// newStack is a variable to allow replacing the backends in tests
var newStack = buildStack

func buildStack(ctx context.Context, s Settings) (*stack, error) {
	cfg, err := config.LoadFile(s.ConfigFile, s.EnvFile, s.Environment)
	if err != nil {
		return nil, err
	}

	switch s.Mode {
	case modeDev, "":
		return buildDevStack(ctx, s, cfg)
	case modeProd:
		return buildProdStack(ctx, s, cfg)
	default:
		return nil, fmt.Errorf("unknown mode %q (expected %s or %s)", s.Mode, modeDev, modeProd)
	}
}

func buildDevStack(ctx context.Context, s Settings, cfg *config.ResolvedConfig) (*stack, error) {
	if s.Project != "" {
		cfg.Project = s.Project
	}

	var (
		descs   []services.ServiceDescriptor
		files   []string
		envFile string
		err     error
	)
	if s.ComposeFile != "" {
		descs, err = manifest.LoadCompose(ctx, s.ComposeFile, cfg.Project, s.EnvFile)
		files = []string{s.ComposeFile}
		envFile = s.EnvFile
	} else {
		path := manifest.RenderedComposePath(s.ConfigFile, cfg.Environment)
		if err = manifest.RenderCompose(cfg, path); err == nil {
			descs, err = manifest.FromConfig(cfg)
		}
		files = []string{path}
	}
	if err != nil {
		return nil, err
	}

	runtime, err := containerizer.NewRuntime(s.Runtime, s.DockerHost)
	if err != nil {
		return nil, &services.BackendUnavailableError{Service: s.Runtime, Err: err}
	}
	lifecycle, err := containerizer.NewLifecycle(s.Runtime, files, envFile)
	if err != nil {
		_ = runtime.Close()
		return nil, err
	}

	adapters := make([]services.Service, 0, len(descs))
	for _, d := range descs {
		adapters = append(adapters, services.NewContainerService(d, cfg.Project, runtime, lifecycle))
	}
	registry, err := services.NewRegistry(adapters...)
	if err != nil {
		_ = runtime.Close()
		return nil, err
	}

	logging.Debug("Stack", "Dev stack %s with %d services from %v", cfg.Project, len(descs), files)
	return &stack{
		cfg:      cfg,
		registry: registry,
		closers:  []func(){func() { _ = runtime.Close() }},
	}, nil
}

func buildProdStack(ctx context.Context, s Settings, cfg *config.ResolvedConfig) (*stack, error) {
	conv, err := manifest.ConventionsFromConfig(cfg)
	if err != nil {
		return nil, &config.ConfigurationError{ErrorType: "validation", Message: err.Error(), Err: err}
	}
	descs, err := manifest.ProductionTable(conv)
	if err != nil {
		return nil, &config.ConfigurationError{ErrorType: "validation", Message: err.Error(), Err: err}
	}

	st := &stack{cfg: cfg}

	mode := s.Systemd
	if mode == "" {
		mode = cfg.Production.Systemd
	}
	if mode == "" {
		mode = config.SystemdAuto
	}

	var newController func(d services.ServiceDescriptor) procctl.Controller
	switch mode {
	case config.SystemdAuto, config.SystemdAlways:
		conn, err := procctl.DialSystemd(ctx)
		if err == nil {
			st.closers = append(st.closers, conn.Close)
			newController = func(d services.ServiceDescriptor) procctl.Controller {
				return procctl.NewSystemdController(conn, d.Unit)
			}
			break
		}
		if mode == config.SystemdAlways {
			return nil, &services.BackendUnavailableError{Service: "systemd", Err: err}
		}
		logging.Warn("Stack", "systemd unavailable, supervising with PID files: %v", err)
	case config.SystemdNever:
	default:
		return nil, fmt.Errorf("unknown systemd mode %q (expected auto, always or never)", mode)
	}
	if newController == nil {
		newController = pidFileController
	}

	sampler, err := procctl.NewProcSampler("")
	if err != nil {
		logging.Warn("Stack", "Resource usage unavailable: %v", err)
		sampler = nil
	}

	adapters := make([]services.Service, 0, len(descs))
	for _, d := range descs {
		adapters = append(adapters, services.NewProcessService(d, newController(d), sampler))
	}
	st.registry, err = services.NewRegistry(adapters...)
	if err != nil {
		st.Close()
		return nil, err
	}
	logging.Debug("Stack", "Prod stack with %d services under %s", len(descs), conv.BaseDir)
	return st, nil
}

func pidFileController(d services.ServiceDescriptor) procctl.Controller {
	return &procctl.PidFileController{
		PidFile: d.PidFile,
		Command: append([]string{d.Artifact}, d.Args...),
		WorkDir: d.WorkDir,
		Env:     d.Env,
		LogFile: d.LogFile,
	}
}
