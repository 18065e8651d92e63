// Package scene implements the scene lifecycle hook for scoped pools: a
// scene load builds a scoped registry from configuration and makes it the
// resolver's active scope; a scene unload clears it, discarding every
// instance it created.
package scene

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/spawnpool/pkg/config"
	"github.com/ajitpratap0/spawnpool/pkg/errors"
	"github.com/ajitpratap0/spawnpool/pkg/logger"
	"github.com/ajitpratap0/spawnpool/pkg/metrics"
	"github.com/ajitpratap0/spawnpool/pkg/observability"
	"github.com/ajitpratap0/spawnpool/pkg/pool"
)

// Recorder receives scene lifecycle outcomes. metrics.Collector implements it.
type Recorder interface {
	SceneOperation(operation, status string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) SceneOperation(string, string, time.Duration) {}

// Option configures a Manager
type Option func(*options)

type options struct {
	tracer   *observability.Tracer
	recorder Recorder
	logger   *zap.Logger
	poolOpts []pool.Option
}

// WithTracer sets the tracer used for load and unload spans
func WithTracer(t *observability.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithRecorder sets the scene metrics recorder
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithLogger sets the parent logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPoolOptions sets the options every scoped registry is built with
func WithPoolOptions(opts ...pool.Option) Option {
	return func(o *options) { o.poolOpts = append(o.poolOpts, opts...) }
}

// Manager owns the scoped registries of loaded scenes. Several scenes may be
// loaded at once; exactly one (or none) is active on the resolver.
type Manager[T any] struct {
	resolver *pool.Resolver[T]
	hooks    pool.Hooks[T]
	tracer   *observability.Tracer
	recorder Recorder
	logger   *zap.Logger
	poolOpts []pool.Option

	mu     sync.Mutex
	scenes map[string][]config.PoolEntry
	loaded map[string]*pool.Registry[T]
	active string
}

// NewManager creates a manager for the given scene configuration.
func NewManager[T any](resolver *pool.Resolver[T], hooks pool.Hooks[T], scenes map[string][]config.PoolEntry, opts ...Option) (*Manager[T], error) {
	if resolver == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "resolver is required")
	}
	if hooks.New == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "hooks.New is required")
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracer == nil {
		o.tracer = observability.NoopTracer()
	}
	if o.recorder == nil {
		o.recorder = nopRecorder{}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	return &Manager[T]{
		resolver: resolver,
		hooks:    hooks,
		tracer:   o.tracer,
		recorder: o.recorder,
		logger:   o.logger.With(zap.String("component", "scene_manager")),
		poolOpts: o.poolOpts,
		scenes:   copyScenes(scenes),
		loaded:   make(map[string]*pool.Registry[T]),
	}, nil
}

func copyScenes(scenes map[string][]config.PoolEntry) map[string][]config.PoolEntry {
	out := make(map[string][]config.PoolEntry, len(scenes))
	for name, entries := range scenes {
		out[name] = append([]config.PoolEntry(nil), entries...)
	}
	return out
}

// UpdateScenes replaces the scene configuration. Loaded scenes keep their
// pools; the new entries apply from the next load.
func (m *Manager[T]) UpdateScenes(scenes map[string][]config.PoolEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenes = copyScenes(scenes)
	m.logger.Info("scene configuration updated", zap.Int("scenes", len(scenes)))
}

// Load builds the scene's scoped registry, prewarms its pools and makes it
// the active scope. Duplicate entries are logged and skipped. Loading a scene
// that is already loaded is a conflict.
func (m *Manager[T]) Load(ctx context.Context, name string) (*pool.Registry[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timer := metrics.NewTimer("scene_load")
	ctx = context.WithValue(ctx, logger.SceneKey, name)
	log := logger.WithContext(ctx, m.logger)

	var reg *pool.Registry[T]
	err := m.tracer.Trace(ctx, "scene.load", func(ctx context.Context) error {
		var err error
		reg, err = m.load(ctx, name)
		return err
	}, attribute.String("scene", name))

	duration := timer.Stop()
	if err != nil {
		m.recorder.SceneOperation("load", "error", duration)
		log.Error("scene load failed", zap.Error(err))
		return nil, err
	}
	m.recorder.SceneOperation("load", "success", duration)
	log.Info("scene loaded",
		zap.Int("pools", reg.Len()),
		zap.Duration("duration", duration))
	return reg, nil
}

func (m *Manager[T]) load(ctx context.Context, name string) (*pool.Registry[T], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.loaded[name]; ok {
		return nil, errors.New(errors.ErrorTypeConflict, "scene is already loaded").
			WithDetail("scene", name)
	}
	entries, ok := m.scenes[name]
	if !ok {
		return nil, errors.New(errors.ErrorTypeNotFound, "scene is not configured").
			WithDetail("scene", name)
	}

	opts := append([]pool.Option{pool.WithLogger(m.logger)}, m.poolOpts...)
	reg, err := pool.NewRegistry(pool.SceneScope(name), m.hooks, opts...)
	if err != nil {
		return nil, err
	}

	duplicates, err := reg.Configure(entries)
	if err != nil {
		reg.Clear()
		return nil, err
	}
	observability.AddEvent(ctx, "pools.configured",
		attribute.Int("pools", reg.Len()),
		attribute.Int("duplicates", len(duplicates)))

	m.loaded[name] = reg
	m.active = name
	m.resolver.SetScope(reg)
	return reg, nil
}

// Unload clears the scene's scoped registry. Instances it issued become
// stale. If the scene was active the resolver is left with no scope.
func (m *Manager[T]) Unload(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timer := metrics.NewTimer("scene_unload")
	ctx = context.WithValue(ctx, logger.SceneKey, name)
	log := logger.WithContext(ctx, m.logger)

	err := m.tracer.Trace(ctx, "scene.unload", func(ctx context.Context) error {
		return m.unload(ctx, name)
	}, attribute.String("scene", name))

	duration := timer.Stop()
	if err != nil {
		m.recorder.SceneOperation("unload", "error", duration)
		log.Warn("scene unload failed", zap.Error(err))
		return err
	}
	m.recorder.SceneOperation("unload", "success", duration)
	log.Info("scene unloaded", zap.Duration("duration", duration))
	return nil
}

func (m *Manager[T]) unload(ctx context.Context, name string) error {
	m.mu.Lock()
	reg, ok := m.loaded[name]
	if !ok {
		m.mu.Unlock()
		return errors.New(errors.ErrorTypeNotFound, "scene is not loaded").
			WithDetail("scene", name)
	}
	delete(m.loaded, name)
	if m.active == name {
		m.active = ""
		m.resolver.ClearScopeIf(reg)
	}
	m.mu.Unlock()

	pools := reg.Clear()
	observability.AddEvent(ctx, "pools.cleared", attribute.Int("pools", pools))
	return nil
}

// UnloadAll unloads every loaded scene, returning the first error.
func (m *Manager[T]) UnloadAll(ctx context.Context) error {
	var first error
	for _, name := range m.Loaded() {
		if err := m.Unload(ctx, name); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Activate makes a loaded scene the resolver's active scope
func (m *Manager[T]) Activate(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	reg, ok := m.loaded[name]
	if !ok {
		return errors.New(errors.ErrorTypeNotFound, "scene is not loaded").
			WithDetail("scene", name)
	}
	m.active = name
	m.resolver.SetScope(reg)
	return nil
}

// Active returns the active scene name, or "" when none is active
func (m *Manager[T]) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Loaded returns the names of loaded scenes, sorted
func (m *Manager[T]) Loaded() []string {
	m.mu.Lock()
	names := make([]string, 0, len(m.loaded))
	for name := range m.loaded {
		names = append(names, name)
	}
	m.mu.Unlock()
	sort.Strings(names)
	return names
}

// Registry returns a loaded scene's scoped registry
func (m *Manager[T]) Registry(name string) (*pool.Registry[T], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.loaded[name]
	return reg, ok
}
