package pool

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/spawnpool/pkg/config"
	"github.com/ajitpratap0/spawnpool/pkg/errors"
)

// Resolution identifies the stage that satisfied an acquisition
type Resolution int

const (
	// Unresolved means no stage could satisfy the request
	Unresolved Resolution = iota
	// ResolvedScoped means the active scoped registry had a pool
	ResolvedScoped
	// ResolvedShared means the shared registry had a pool
	ResolvedShared
	// ResolvedOnDemand means a pool was created in the shared registry
	ResolvedOnDemand
)

// String returns the stage name used in logs and metrics
func (r Resolution) String() string {
	switch r {
	case ResolvedScoped:
		return "scoped"
	case ResolvedShared:
		return "shared"
	case ResolvedOnDemand:
		return "on_demand"
	default:
		return "unpooled"
	}
}

// Resolver decides which scope satisfies an acquisition. For prototype P it
// tries, in order:
//
//  1. the active scoped registry's pool for P
//  2. the shared registry's pool for P
//  3. a new shared pool for P sized to the default size, when on-demand
//     creation is enabled and the default size is positive
//
// and otherwise fails with ErrorTypeNoPoolConfigured. Callers that want an
// unpooled instance in that case create it themselves.
//
// Releases never consult the resolver's scopes: an instance always goes back
// to the pool recorded on it at acquisition.
type Resolver[T any] struct {
	shared      *Registry[T]
	onDemand    bool
	defaultSize int
	onDemandOps Options
	recorder    Recorder
	logger      *zap.Logger

	mu     sync.RWMutex
	scoped *Registry[T]
}

// NewResolver creates a resolver over the shared registry with no active scope.
//
// Parameters:
//   - shared: The process-lifetime registry; required
//   - cfg: On-demand policy (OnDemand, DefaultSize, MaxSize, AllowGrowth)
//   - opts: WithRecorder, WithLogger
func NewResolver[T any](shared *Registry[T], cfg config.ResolverConfig, opts ...Option) (*Resolver[T], error) {
	if shared == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "shared registry is required")
	}
	o := buildOptions(opts)
	return &Resolver[T]{
		shared:      shared,
		onDemand:    cfg.OnDemand,
		defaultSize: cfg.DefaultSize,
		onDemandOps: Options{AllowGrowth: cfg.AllowGrowth, MaxSize: cfg.MaxSize},
		recorder:    o.recorder,
		logger:      o.logger.With(zap.String("component", "pool_resolver")),
	}, nil
}

// Shared returns the shared registry
func (r *Resolver[T]) Shared() *Registry[T] {
	return r.shared
}

// Scope returns the active scoped registry, or nil
func (r *Resolver[T]) Scope() *Registry[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scoped
}

// SetScope makes scoped the active scoped registry and returns the previous
// one. Passing nil deactivates scoped lookups.
func (r *Resolver[T]) SetScope(scoped *Registry[T]) *Registry[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.scoped
	r.scoped = scoped
	return prev
}

// ClearScopeIf deactivates the active scope only if it is scoped. It
// reports whether the scope was cleared.
func (r *Resolver[T]) ClearScopeIf(scoped *Registry[T]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scoped != scoped || scoped == nil {
		return false
	}
	r.scoped = nil
	return true
}

// Resolve returns the pool that would satisfy an acquisition for prototype
// and the stage that found it. Stage 3 creates the pool as a side effect.
func (r *Resolver[T]) Resolve(prototype Prototype) (*Pool[T], Resolution, error) {
	if scoped := r.Scope(); scoped != nil {
		if p, ok := scoped.Lookup(prototype); ok {
			return p, ResolvedScoped, nil
		}
	}

	if p, ok := r.shared.Lookup(prototype); ok {
		return p, ResolvedShared, nil
	}

	if r.onDemand && r.defaultSize > 0 {
		p, err := r.shared.GetOrCreatePoolWithOptions(prototype, r.defaultSize, r.onDemandOps)
		if err != nil {
			return nil, Unresolved, err
		}
		r.logger.Info("pool created on demand",
			zap.String("prototype", string(prototype)),
			zap.Int("size", r.defaultSize),
			zap.Bool("allow_growth", r.onDemandOps.AllowGrowth),
			zap.Int("max_size", r.onDemandOps.MaxSize))
		return p, ResolvedOnDemand, nil
	}

	return nil, Unresolved, errors.New(errors.ErrorTypeNoPoolConfigured, "no pool configured for prototype").
		WithDetail("prototype", string(prototype)).
		WithDetail("on_demand", r.onDemand)
}

// Acquire checks out an instance of prototype from whichever scope resolves it.
func (r *Resolver[T]) Acquire(prototype Prototype) (*Instance[T], error) {
	p, resolution, err := r.Resolve(prototype)
	r.recorder.Resolved(resolution.String())
	if err != nil {
		return nil, err
	}
	return p.Acquire()
}

// Release returns inst to the pool that issued it.
func (r *Resolver[T]) Release(inst *Instance[T]) error {
	return inst.Release()
}
