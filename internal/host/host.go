// Package host assembles a pooling runtime from configuration: the shared
// registry, the resolver, the scene manager and their metrics and tracing.
// It also provides a frame simulator that drives spawn/despawn workloads
// through the resolver.
//
// # Basic Usage
//
//	h, err := host.New(cfg, pool.Hooks[*Entity]{New: spawnEntity, Reset: (*Entity).Reset})
//	if err != nil {
//	    return err
//	}
//	if err := h.Start(ctx); err != nil {
//	    return err
//	}
//	defer h.Close(ctx)
//
//	inst, err := h.Resolver().Acquire("Bullet")
package host

import (
	"context"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/spawnpool/pkg/config"
	"github.com/ajitpratap0/spawnpool/pkg/errors"
	"github.com/ajitpratap0/spawnpool/pkg/metrics"
	"github.com/ajitpratap0/spawnpool/pkg/observability"
	"github.com/ajitpratap0/spawnpool/pkg/pool"
	"github.com/ajitpratap0/spawnpool/pkg/scene"
)

// Option configures a Host
type Option func(*options)

type options struct {
	logger      *zap.Logger
	registerer  prometheus.Registerer
	tracer      *observability.Tracer
	traceWriter io.Writer
}

// WithLogger sets the host's parent logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegisterer sets where metrics are registered. Defaults to
// prometheus.DefaultRegisterer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithTracer overrides the tracer built from configuration
func WithTracer(t *observability.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithTraceWriter sets the stdout exporter's destination
func WithTraceWriter(w io.Writer) Option {
	return func(o *options) { o.traceWriter = w }
}

// Host owns the pools of one process: a shared registry that lives until
// Close and the scoped registries of loaded scenes.
type Host[T any] struct {
	cfg       *config.Config
	shared    *pool.Registry[T]
	resolver  *pool.Resolver[T]
	scenes    *scene.Manager[T]
	collector *metrics.Collector
	tracer    *observability.Tracer
	logger    *zap.Logger

	mu      sync.Mutex
	started bool
	closed  bool
}

// New builds a host from cfg. Nothing is created until Start.
func New[T any](cfg *config.Config, hooks pool.Hooks[T], opts ...Option) (*Host[T], error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	log := o.logger.With(zap.String("host", cfg.Name))

	tracer := o.tracer
	if tracer == nil {
		var err error
		tracer, err = observability.NewTracer(cfg.Tracing, o.traceWriter)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create tracer")
		}
	}

	poolOpts := []pool.Option{pool.WithLogger(log)}
	sceneOpts := []scene.Option{
		scene.WithLogger(log),
		scene.WithTracer(tracer),
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		registerer := o.registerer
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}
		namespace := cfg.Metrics.Namespace
		if namespace == "" {
			namespace = "spawnpool"
		}
		collector = metrics.NewCollector(namespace, registerer)
		poolOpts = append(poolOpts, pool.WithRecorder(collector))
		sceneOpts = append(sceneOpts, scene.WithRecorder(collector))
	}
	sceneOpts = append(sceneOpts, scene.WithPoolOptions(poolOpts...))

	shared, err := pool.NewRegistry(pool.ScopeShared, hooks, poolOpts...)
	if err != nil {
		return nil, err
	}
	resolver, err := pool.NewResolver(shared, cfg.Resolver, poolOpts...)
	if err != nil {
		return nil, err
	}
	scenes, err := scene.NewManager(resolver, hooks, cfg.Scenes, sceneOpts...)
	if err != nil {
		return nil, err
	}

	return &Host[T]{
		cfg:       cfg,
		shared:    shared,
		resolver:  resolver,
		scenes:    scenes,
		collector: collector,
		tracer:    tracer,
		logger:    log.With(zap.String("component", "host")),
	}, nil
}

// Start prewarms the shared registry from the configuration's shared
// entries. Duplicate entries are logged and the first one wins.
func (h *Host[T]) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return errors.New(errors.ErrorTypeConflict, "host is already started")
	}
	if h.closed {
		return errors.New(errors.ErrorTypeConflict, "host is closed")
	}

	timer := metrics.NewTimer("host_start")
	err := h.tracer.Trace(ctx, "host.start", func(ctx context.Context) error {
		duplicates, err := h.shared.Configure(h.cfg.Shared)
		if err != nil {
			return err
		}
		observability.AddEvent(ctx, "shared.configured",
			attribute.Int("pools", h.shared.Len()),
			attribute.Int("duplicates", len(duplicates)))
		return nil
	}, attribute.String("host", h.cfg.Name))
	if err != nil {
		h.shared.Clear()
		h.logger.Error("host start failed", zap.Error(err))
		return err
	}

	h.started = true
	h.logger.Info("host started",
		zap.Int("shared_pools", h.shared.Len()),
		zap.Strings("scenes", h.cfg.SceneNames()),
		zap.Duration("duration", timer.Stop()))
	return nil
}

// Close unloads every scene, clears the shared registry and flushes
// tracing. Instances still checked out become stale. Close is idempotent.
func (h *Host[T]) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	err := h.tracer.Trace(ctx, "host.stop", func(ctx context.Context) error {
		if err := h.scenes.UnloadAll(ctx); err != nil {
			return err
		}
		observability.AddEvent(ctx, "shared.cleared", attribute.Int("pools", h.shared.Clear()))
		return nil
	}, attribute.String("host", h.cfg.Name))

	if shutdownErr := h.tracer.Shutdown(ctx); shutdownErr != nil && err == nil {
		err = errors.Wrap(shutdownErr, errors.ErrorTypeInternal, "failed to shut down tracer")
	}
	if err != nil {
		h.logger.Error("host close failed", zap.Error(err))
		return err
	}
	h.logger.Info("host closed")
	return nil
}

// ApplyConfig takes the scene entries of a reloaded configuration. Pools
// that already exist are untouched; new entries apply from the next scene
// load.
func (h *Host[T]) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	h.scenes.UpdateScenes(cfg.Scenes)
	if dups := cfg.Duplicates(); len(dups) > 0 {
		h.logger.Warn("reloaded configuration has duplicate entries", zap.Any("duplicates", dups))
	}
}

// Watch reloads the configuration file at path whenever it changes and
// applies it with ApplyConfig. It blocks until ctx is done.
func (h *Host[T]) Watch(ctx context.Context, path string) error {
	w, err := config.NewWatcher(path, h.ApplyConfig, h.logger)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// Config returns the configuration the host was built from
func (h *Host[T]) Config() *config.Config { return h.cfg }

// Resolver returns the resolver used to acquire and release instances
func (h *Host[T]) Resolver() *pool.Resolver[T] { return h.resolver }

// Shared returns the shared registry
func (h *Host[T]) Shared() *pool.Registry[T] { return h.shared }

// Scenes returns the scene manager
func (h *Host[T]) Scenes() *scene.Manager[T] { return h.scenes }

// Stats returns a snapshot of every pool: shared pools first, then each
// loaded scene's pools in scene order.
func (h *Host[T]) Stats() []pool.Stats {
	out := h.shared.Stats()
	for _, name := range h.scenes.Loaded() {
		if reg, ok := h.scenes.Registry(name); ok {
			out = append(out, reg.Stats()...)
		}
	}
	return out
}
