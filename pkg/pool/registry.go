package pool

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/spawnpool/pkg/config"
	"github.com/ajitpratap0/spawnpool/pkg/errors"
)

// ScopeShared is the scope name of the process-lifetime registry.
const ScopeShared = "shared"

// SceneScope returns the scope name of a scene's registry
func SceneScope(scene string) string {
	return "scene:" + scene
}

// Option configures a Registry or Resolver
type Option func(*options)

type options struct {
	recorder Recorder
	logger   *zap.Logger
	defaults Options
}

// WithRecorder sets the recorder pools and resolvers report to
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithLogger sets the parent logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDefaults sets the growth policy for pools created by GetOrCreatePool.
// Configured entries start from DefaultOptions instead.
func WithDefaults(opts Options) Option {
	return func(o *options) {
		o.defaults = opts
	}
}

func buildOptions(opts []Option) options {
	o := options{
		recorder: NopRecorder{},
		logger:   zap.NewNop(),
		defaults: DefaultOptions(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.recorder == nil {
		o.recorder = NopRecorder{}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// Registry maps prototypes to pools, creating pools lazily. One type serves
// both the shared registry and per-scene registries; they differ only in
// scope name and lifetime. Two registries never share a pool, so a prototype
// configured in both produces two independent pools.
type Registry[T any] struct {
	scope    string
	hooks    Hooks[T]
	defaults Options
	recorder Recorder
	logger   *zap.Logger

	mu    sync.RWMutex
	pools map[Prototype]*Pool[T]
}

// NewRegistry creates an empty registry.
//
// Parameters:
//   - scope: ScopeShared or SceneScope(name)
//   - hooks: Lifecycle hooks shared by every pool in the registry
//   - opts: WithRecorder, WithLogger, WithDefaults
//
// Example:
//
//	shared, err := pool.NewRegistry(pool.ScopeShared, pool.Hooks[*Projectile]{
//	    New:   spawnProjectile,
//	    Reset: (*Projectile).Reset,
//	})
func NewRegistry[T any](scope string, hooks Hooks[T], opts ...Option) (*Registry[T], error) {
	if scope == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "registry scope cannot be empty")
	}
	if hooks.New == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "hooks.New is required").
			WithDetail("scope", scope)
	}
	o := buildOptions(opts)
	return &Registry[T]{
		scope:    scope,
		hooks:    hooks,
		defaults: o.defaults,
		recorder: o.recorder,
		logger:   o.logger.With(zap.String("component", "pool_registry"), zap.String("scope", scope)),
		pools:    make(map[Prototype]*Pool[T]),
	}, nil
}

// Scope returns the registry's scope name
func (r *Registry[T]) Scope() string {
	return r.scope
}

// GetOrCreatePool returns the pool for prototype, creating and prewarming it
// with initialSize instances if the registry has none. initialSize is
// ignored when the pool already exists.
func (r *Registry[T]) GetOrCreatePool(prototype Prototype, initialSize int) (*Pool[T], error) {
	return r.GetOrCreatePoolWithOptions(prototype, initialSize, r.defaults)
}

// GetOrCreatePoolWithOptions is GetOrCreatePool with an explicit growth
// policy for the new pool. opts is ignored when the pool already exists.
func (r *Registry[T]) GetOrCreatePoolWithOptions(prototype Prototype, initialSize int, opts Options) (*Pool[T], error) {
	if p, ok := r.Lookup(prototype); ok {
		return p, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pools[prototype]; ok {
		return p, nil
	}
	return r.createLocked(prototype, initialSize, opts)
}

func (r *Registry[T]) createLocked(prototype Prototype, initialSize int, opts Options) (*Pool[T], error) {
	if err := validate(prototype, r.hooks); err != nil {
		return nil, err
	}
	p := newPool(prototype, r.scope, r.hooks, opts, r.recorder, r.logger)
	if err := p.Prewarm(initialSize); err != nil {
		p.detach()
		return nil, errors.Wrap(err, errors.TypeOf(err), "failed to prewarm pool").
			WithDetail("prototype", string(prototype)).
			WithDetail("scope", r.scope)
	}
	r.pools[prototype] = p
	r.logger.Debug("pool created",
		zap.String("prototype", string(prototype)),
		zap.Int("initial_size", initialSize),
		zap.Bool("allow_growth", opts.AllowGrowth),
		zap.Int("max_size", opts.MaxSize))
	return p, nil
}

// Lookup returns the pool for prototype without creating one
func (r *Registry[T]) Lookup(prototype Prototype) (*Pool[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pools[prototype]
	return p, ok
}

// Configure creates a pool for each entry. An entry whose prototype already
// has a pool, whether from an earlier entry or an earlier call, is skipped
// and logged: the first entry wins. The skipped prototypes are returned.
// Configuration stops at the first entry that fails to create.
func (r *Registry[T]) Configure(entries []config.PoolEntry) ([]Prototype, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var duplicates []Prototype
	for _, entry := range entries {
		prototype := Prototype(entry.Prototype)
		if _, exists := r.pools[prototype]; exists {
			duplicates = append(duplicates, prototype)
			r.logger.Warn("duplicate pool entry ignored",
				zap.String("prototype", entry.Prototype),
				zap.Int("initial_count", entry.InitialCount))
			continue
		}
		if entry.InitialCount < 0 {
			return duplicates, errors.New(errors.ErrorTypeConfig, "initial_count cannot be negative").
				WithDetail("prototype", entry.Prototype).
				WithDetail("scope", r.scope)
		}
		if _, err := r.createLocked(prototype, entry.InitialCount, entryOptions(entry)); err != nil {
			return duplicates, errors.Wrap(err, errors.ErrorTypeConfig, "failed to configure pool").
				WithDetail("prototype", entry.Prototype).
				WithDetail("scope", r.scope)
		}
	}
	return duplicates, nil
}

// entryOptions derives a configured pool's policy from its own entry only
func entryOptions(entry config.PoolEntry) Options {
	opts := DefaultOptions()
	if entry.Fixed {
		opts.AllowGrowth = false
	}
	if entry.MaxSize > 0 {
		opts.MaxSize = entry.MaxSize
	}
	return opts
}

// Remove detaches and clears the pool for prototype. Later lookups find
// nothing and GetOrCreatePool builds a fresh pool. Handles issued by the
// removed pool are stale. Returns false if there was no such pool.
func (r *Registry[T]) Remove(prototype Prototype) bool {
	r.mu.Lock()
	p, ok := r.pools[prototype]
	delete(r.pools, prototype)
	r.mu.Unlock()

	if !ok {
		return false
	}
	p.detach()
	r.logger.Debug("pool removed", zap.String("prototype", string(prototype)))
	return true
}

// Clear removes every pool, discarding all their instances. It is the scene
// unload operation for scoped registries. Returns the number of pools removed.
func (r *Registry[T]) Clear() int {
	r.mu.Lock()
	pools := r.pools
	r.pools = make(map[Prototype]*Pool[T])
	r.mu.Unlock()

	for _, p := range pools {
		p.detach()
	}
	if len(pools) > 0 {
		r.logger.Debug("registry cleared", zap.Int("pools", len(pools)))
	}
	return len(pools)
}

// Len returns the number of pools
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}

// Prototypes returns the prototypes with pools, sorted
func (r *Registry[T]) Prototypes() []Prototype {
	r.mu.RLock()
	out := make([]Prototype, 0, len(r.pools))
	for prototype := range r.pools {
		out = append(out, prototype)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Stats returns a snapshot of every pool, sorted by prototype
func (r *Registry[T]) Stats() []Stats {
	r.mu.RLock()
	pools := make([]*Pool[T], 0, len(r.pools))
	for _, p := range r.pools {
		pools = append(pools, p)
	}
	r.mu.RUnlock()

	out := make([]Stats, 0, len(pools))
	for _, p := range pools {
		out = append(out, p.Stats())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prototype < out[j].Prototype })
	return out
}
