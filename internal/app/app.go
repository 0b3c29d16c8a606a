// Package app wires configuration, sources and the federation service.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/custodia-labs/federa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/federa/internal/adapters/driven/metrics"
	"github.com/custodia-labs/federa/internal/adapters/driven/sources"
	"github.com/custodia-labs/federa/internal/core/services"
	"github.com/custodia-labs/federa/internal/logger"
)

// DefaultRetireDelay is how long a replaced source set stays open so
// queries already running against it can finish.
const DefaultRetireDelay = 30 * time.Second

// App owns the federation service and the sources configured into it.
type App struct {
	Federation *services.FederationService
	Registry   *prometheus.Registry
	Metrics    *metrics.Metrics

	builder     *sources.Builder
	retireDelay time.Duration

	mu      sync.Mutex
	set     *sources.Set
	retired []*time.Timer
	closed  bool
}

// Option configures an App.
type Option func(*App)

// WithBuilder replaces the default source builder.
func WithBuilder(b *sources.Builder) Option {
	return func(a *App) {
		a.builder = b
	}
}

// WithRetireDelay sets how long a replaced source set stays open.
// Zero closes it immediately.
func WithRetireDelay(d time.Duration) Option {
	return func(a *App) {
		a.retireDelay = d
	}
}

// New creates an App with no sources. Call Apply to configure it.
func New(opts ...Option) *App {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	a := &App{
		Registry:    reg,
		Metrics:     m,
		Federation:  services.NewFederationService(services.WithObserver(m)),
		builder:     &sources.Builder{},
		retireDelay: DefaultRetireDelay,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Load reads the configuration at path and returns an App configured from it.
// Relative source paths resolve against the directory of path.
func Load(ctx context.Context, path string, opts ...Option) (*App, error) {
	cfg, err := file.Load(path)
	if err != nil {
		return nil, err
	}
	base := WithBuilder(&sources.Builder{BaseDir: filepath.Dir(path)})
	a := New(append([]Option{base}, opts...)...)
	if err := a.Apply(ctx, cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// Apply builds the sources of cfg and swaps them in. On error the current
// sources stay active. The replaced set is closed after the retire delay.
func (a *App) Apply(ctx context.Context, cfg *file.Config) error {
	policy, err := services.ParseFailurePolicy(cfg.Federation.FailurePolicy)
	if err != nil {
		return err
	}

	set, err := a.builder.Build(ctx, cfg.Sources)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		_ = set.Close()
		return fmt.Errorf("app is closed")
	}

	if err := a.Federation.Configure(set.Sources); err != nil {
		_ = set.Close()
		return err
	}
	a.Federation.SetFailurePolicy(policy)

	old := a.set
	a.set = set
	if old != nil {
		a.retire(old)
	}
	return nil
}

// ApplyFunc adapts Apply for a config watcher.
func (a *App) ApplyFunc(ctx context.Context) file.ApplyFunc {
	return func(cfg *file.Config) error {
		return a.Apply(ctx, cfg)
	}
}

func (a *App) retire(old *sources.Set) {
	if a.retireDelay <= 0 {
		if err := old.Close(); err != nil {
			logger.Warn("Closing replaced sources: %v", err)
		}
		return
	}
	logger.Debug("Retiring %d replaced sources in %s", len(old.Sources), a.retireDelay)
	a.retired = append(a.retired, time.AfterFunc(a.retireDelay, func() {
		if err := old.Close(); err != nil {
			logger.Warn("Closing replaced sources: %v", err)
		}
	}))
}

// Close releases the active and every retired source set.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	for _, t := range a.retired {
		t.Reset(0)
	}
	a.retired = nil
	if a.set == nil {
		return nil
	}
	return a.set.Close()
}
