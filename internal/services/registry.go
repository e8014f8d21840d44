package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"strata/internal/dependency"
	"strata/pkg/logging"
)

const registrySubsystem = "Registry"

const (
	defaultPollTimeout    = 10 * time.Second
	defaultMaxConcurrency = 8
)

// ServiceStatus is one row of AllStatuses.
type ServiceStatus struct {
	Name  string       `json:"name"`
	Kind  BackendKind  `json:"kind"`
	State ServiceState `json:"state"`
}

// HealthReport is one row of AllHealth.
type HealthReport struct {
	Name   string       `json:"name"`
	Result HealthResult `json:"result"`
}

// StatsReport is one row of AllStats.
type StatsReport struct {
	Name  string `json:"name"`
	Stats Stats  `json:"stats"`
}

// Registry holds the adapters of one stack in registration order.
type Registry struct {
	services []Service
	byName   map[string]Service

	// PollTimeout bounds each adapter call of a batch poll.
	PollTimeout time.Duration
	// MaxConcurrency bounds the adapters polled at once.
	MaxConcurrency int
}

// NewRegistry creates a registry over adapters. Names must be unique and
// non-empty.
func NewRegistry(adapters ...Service) (*Registry, error) {
	r := &Registry{
		byName:         make(map[string]Service, len(adapters)),
		PollTimeout:    defaultPollTimeout,
		MaxConcurrency: defaultMaxConcurrency,
	}
	for _, svc := range adapters {
		if svc == nil {
			return nil, fmt.Errorf("cannot register nil service")
		}
		name := svc.Name()
		if name == "" {
			return nil, fmt.Errorf("service has empty name")
		}
		if _, exists := r.byName[name]; exists {
			return nil, fmt.Errorf("service %s already registered", name)
		}
		r.byName[name] = svc
		r.services = append(r.services, svc)
	}
	return r, nil
}

// All returns every adapter in registration order.
func (r *Registry) All() []Service {
	out := make([]Service, len(r.services))
	copy(out, r.services)
	return out
}

// ByName returns the adapter registered under name.
func (r *Registry) ByName(name string) (Service, error) {
	svc, ok := r.byName[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return svc, nil
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.services))
	for i, svc := range r.services {
		names[i] = svc.Name()
	}
	return names
}

// AllStatuses polls every adapter concurrently. Results are positional: row
// i belongs to the i-th registered adapter. An adapter that fails reports
// StateUnknown without affecting the others.
func (r *Registry) AllStatuses(ctx context.Context) []ServiceStatus {
	results := make([]ServiceStatus, len(r.services))
	r.forEach(ctx, "status", func(ctx context.Context, i int, svc Service) {
		results[i] = ServiceStatus{Name: svc.Name(), Kind: svc.Descriptor().Kind, State: StateUnknown}
		results[i].State = svc.Status(ctx)
	})
	return results
}

// AllHealth checks every adapter concurrently. Results are positional. An
// adapter that fails reports an unhealthy result.
func (r *Registry) AllHealth(ctx context.Context) []HealthReport {
	results := make([]HealthReport, len(r.services))
	r.forEach(ctx, "health", func(ctx context.Context, i int, svc Service) {
		results[i] = HealthReport{Name: svc.Name(), Result: HealthResult{Message: "unknown: health check did not complete"}}
		results[i].Result = svc.HealthCheck(ctx)
	})
	return results
}

// AllStats samples every adapter concurrently. Results are positional; an
// adapter without data reports zero Stats.
func (r *Registry) AllStats(ctx context.Context) []StatsReport {
	results := make([]StatsReport, len(r.services))
	r.forEach(ctx, "stats", func(ctx context.Context, i int, svc Service) {
		results[i] = StatsReport{Name: svc.Name()}
		results[i].Stats = svc.Stats(ctx)
	})
	return results
}

// forEach runs fn for every adapter with bounded concurrency. Panics in fn
// are logged and absorbed so that one adapter cannot fail the batch.
func (r *Registry) forEach(ctx context.Context, op string, fn func(ctx context.Context, i int, svc Service)) {
	batch := uuid.NewString()
	logging.Debug(registrySubsystem, "Polling %s of %d services (batch %s)", op, len(r.services), batch)
	start := time.Now()

	var g errgroup.Group
	if r.MaxConcurrency > 0 {
		g.SetLimit(r.MaxConcurrency)
	}
	for i, svc := range r.services {
		g.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					logging.Error(registrySubsystem, fmt.Errorf("%v", rec), "%s of %s panicked (batch %s)", op, svc.Name(), batch)
				}
			}()
			callCtx := ctx
			if r.PollTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, r.PollTimeout)
				defer cancel()
			}
			fn(callCtx, i, svc)
			return nil
		})
	}
	_ = g.Wait()
	logging.Debug(registrySubsystem, "Batch %s finished in %s", batch, time.Since(start))
}

// StartOrder returns the adapters ordered so that every service comes after
// the services it depends on.
func (r *Registry) StartOrder() ([]Service, error) {
	g := dependency.New()
	for _, svc := range r.services {
		desc := svc.Descriptor()
		deps := make([]dependency.NodeID, 0, len(desc.DependsOn))
		for _, d := range desc.DependsOn {
			deps = append(deps, dependency.NodeID(d))
		}
		kind := dependency.KindContainer
		if desc.Kind == KindProcess {
			kind = dependency.KindProcess
		}
		g.AddNode(dependency.Node{ID: dependency.NodeID(desc.Name), FriendlyName: desc.Name, Kind: kind, DependsOn: deps})
	}

	ids, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	ordered := make([]Service, 0, len(ids))
	for _, id := range ids {
		ordered = append(ordered, r.byName[string(id)])
	}
	return ordered, nil
}

// Select returns the named adapters in start order, or in stop order when
// reverse is set. An empty names selects every adapter.
func (r *Registry) Select(names []string, reverse bool) ([]Service, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := r.byName[n]; !ok {
			return nil, &NotFoundError{Name: n}
		}
		want[n] = true
	}

	ordered, err := r.StartOrder()
	if err != nil {
		return nil, err
	}
	selected := make([]Service, 0, len(ordered))
	for _, svc := range ordered {
		if len(want) == 0 || want[svc.Name()] {
			selected = append(selected, svc)
		}
	}
	if reverse {
		for i, j := 0, len(selected)-1; i < j; i, j = i+1, j-1 {
			selected[i], selected[j] = selected[j], selected[i]
		}
	}
	return selected, nil
}

// StartAll starts every service in dependency order and stops at the first
// failure.
func (r *Registry) StartAll(ctx context.Context) error {
	ordered, err := r.Select(nil, false)
	if err != nil {
		return err
	}
	for _, svc := range ordered {
		if err := svc.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// StopAll stops every service in reverse dependency order. Failures do not
// prevent the remaining services from being stopped; they are joined into
// the returned error.
func (r *Registry) StopAll(ctx context.Context) error {
	ordered, err := r.Select(nil, true)
	if err != nil {
		return err
	}
	var errs []error
	for _, svc := range ordered {
		if err := svc.Stop(ctx); err != nil {
			logging.Error(registrySubsystem, err, "Failed to stop %s", svc.Name())
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FollowLogs streams the logs of the named services (all when names is
// empty) into sink until every stream ends or ctx is cancelled. Records of
// one service reach sink in order; sink is never called concurrently.
func (r *Registry) FollowLogs(ctx context.Context, names []string, opts LogOptions, sink func(LogRecord)) error {
	targets := r.services
	if len(names) > 0 {
		targets = make([]Service, 0, len(names))
		for _, n := range names {
			svc, err := r.ByName(n)
			if err != nil {
				return err
			}
			targets = append(targets, svc)
		}
	}

	streams := make([]*LogStream, 0, len(targets))
	closeAll := func() {
		for _, s := range streams {
			_ = s.Close()
		}
	}
	for _, svc := range targets {
		s, err := svc.Logs(ctx, opts)
		if err != nil {
			closeAll()
			return err
		}
		streams = append(streams, s)
	}
	defer closeAll()

	var mu sync.Mutex
	var g errgroup.Group
	for _, s := range streams {
		g.Go(func() error {
			for s.Next() {
				rec := s.Record()
				mu.Lock()
				sink(rec)
				mu.Unlock()
			}
			return s.Err()
		})
	}
	return g.Wait()
}
