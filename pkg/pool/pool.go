package pool

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/spawnpool/pkg/errors"
	"github.com/ajitpratap0/spawnpool/pkg/metrics"
)

// Prototype names the template a pool's interchangeable instances are
// created from. Distinct prototypes never share a pool.
type Prototype string

// Hooks are the lifecycle operations a pool invokes on the values it manages.
// The pool never knows what it is creating; everything engine-specific lives
// behind these functions.
type Hooks[T any] struct {
	// New creates a fresh value for the prototype. Required.
	New func(prototype Prototype) (T, error)
	// Reset returns a released value to its pooled default state. Optional.
	Reset func(value T)
	// Discard destroys a value when its pool is cleared. Optional.
	Discard func(value T)
}

// Options control how a single pool grows.
type Options struct {
	// AllowGrowth permits creating instances when none are available
	AllowGrowth bool
	// MaxSize caps live instances (0 = unbounded)
	MaxSize int
}

// DefaultOptions returns the default growth policy: unbounded growth.
func DefaultOptions() Options {
	return Options{AllowGrowth: true}
}

// Instance is a handle to a pooled value. It records the pool that issued it
// so a release is always routed back there, never to another scope.
type Instance[T any] struct {
	// Value is the pooled object
	Value T

	id         uuid.UUID
	pool       *Pool[T]
	generation uint64
	pooled     bool // guarded by pool.mu
}

// ID returns the instance's unique identifier
func (i *Instance[T]) ID() uuid.UUID {
	return i.id
}

// Prototype returns the prototype the instance was created from, or "" for
// an instance no pool issued
func (i *Instance[T]) Prototype() Prototype {
	if i == nil || i.pool == nil {
		return ""
	}
	return i.pool.prototype
}

// Pool returns the pool that issued the instance
func (i *Instance[T]) Pool() *Pool[T] {
	return i.pool
}

// Release returns the instance to the pool that issued it.
//
// Example:
//
//	inst, err := resolver.Acquire("Bullet")
//	if err != nil {
//	    return err
//	}
//	defer inst.Release()
func (i *Instance[T]) Release() error {
	if i == nil || i.pool == nil {
		return errors.New(errors.ErrorTypeForeignInstance, "instance has no owning pool")
	}
	return i.pool.Release(i)
}

// Stats is a point-in-time snapshot of a pool.
type Stats struct {
	Prototype  Prototype `json:"prototype"`
	Scope      string    `json:"scope"`
	Live       int       `json:"live"`
	Available  int       `json:"available"`
	CheckedOut int       `json:"checked_out"`
	Generation uint64    `json:"generation"`
	// Cumulative counters survive Clear
	Created        int64 `json:"created"`
	Hits           int64 `json:"hits"`
	Misses         int64 `json:"misses"`
	Exhausted      int64 `json:"exhausted"`
	Foreign        int64 `json:"foreign"`
	DoubleReleases int64 `json:"double_releases"`
	Discarded      int64 `json:"discarded"`
}

// Pool manages acquire and release for a single prototype.
//
// Available instances are kept on a stack: the most recently released
// instance is the first one reused. Every instance a pool creates is owned by
// it until Clear, so Live == Available + CheckedOut after every call and
// Live only grows between clears. A Pool is safe for concurrent use; each
// call holds the pool's mutex for its whole duration, including any hook.
type Pool[T any] struct {
	mu         sync.Mutex
	prototype  Prototype
	scope      string
	hooks      Hooks[T]
	opts       Options
	available  []*Instance[T]
	inUse      map[*Instance[T]]struct{}
	live       int
	generation uint64
	detached   bool
	stats      struct {
		created, hits, misses, exhausted, foreign, doubles, discarded int64
	}
	recorder Recorder
	logger   *zap.Logger
}

// newPool creates an empty pool without validating its arguments.
func newPool[T any](prototype Prototype, scope string, hooks Hooks[T], opts Options, recorder Recorder, logger *zap.Logger) *Pool[T] {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool[T]{
		prototype: prototype,
		scope:     scope,
		hooks:     hooks,
		opts:      opts,
		inUse:     make(map[*Instance[T]]struct{}),
		recorder:  recorder,
		logger:    logger.With(zap.String("prototype", string(prototype))),
	}
}

// New creates a standalone pool for a prototype, outside any registry.
//
// Parameters:
//   - prototype: The template identity
//   - hooks: Lifecycle hooks; hooks.New is required
//   - opts: Growth policy
func New[T any](prototype Prototype, hooks Hooks[T], opts Options) (*Pool[T], error) {
	if err := validate(prototype, hooks); err != nil {
		return nil, err
	}
	return newPool(prototype, "standalone", hooks, opts, nil, nil), nil
}

func validate[T any](prototype Prototype, hooks Hooks[T]) error {
	if prototype == "" {
		return errors.New(errors.ErrorTypeValidation, "prototype cannot be empty")
	}
	if hooks.New == nil {
		return errors.New(errors.ErrorTypeValidation, "hooks.New is required").
			WithDetail("prototype", string(prototype))
	}
	return nil
}

// Prototype returns the pool's prototype
func (p *Pool[T]) Prototype() Prototype {
	return p.prototype
}

// Scope returns the name of the registry scope that owns the pool
func (p *Pool[T]) Scope() string {
	return p.scope
}

// Acquire checks out an instance. The most recently released instance is
// reused first; when none is available a new one is created if growth is
// permitted. Fixed-capacity pools with nothing available fail with
// ErrorTypePoolExhausted.
func (p *Pool[T]) Acquire() (*Instance[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.detached {
		return nil, errors.New(errors.ErrorTypeNotFound, "pool has been removed from its registry").
			WithDetail("prototype", string(p.prototype)).
			WithDetail("scope", p.scope)
	}

	if n := len(p.available); n > 0 {
		inst := p.available[n-1]
		p.available[n-1] = nil
		p.available = p.available[:n-1]
		inst.pooled = false
		p.inUse[inst] = struct{}{}
		p.stats.hits++
		p.recorder.Acquired(p.scope, string(p.prototype), true)
		p.reportSizeLocked()
		return inst, nil
	}

	if !p.canGrowLocked() {
		p.stats.exhausted++
		p.recorder.AcquireFailed(p.scope, string(p.prototype), metrics.ResultExhausted)
		return nil, errors.New(errors.ErrorTypePoolExhausted, "pool has no available instances").
			WithDetail("prototype", string(p.prototype)).
			WithDetail("scope", p.scope).
			WithDetail("live", p.live)
	}

	inst, err := p.createLocked()
	if err != nil {
		p.recorder.AcquireFailed(p.scope, string(p.prototype), metrics.ResultError)
		return nil, err
	}
	p.inUse[inst] = struct{}{}
	p.stats.misses++
	p.logger.Debug("pool grew", zap.Int("live", p.live))
	p.recorder.Acquired(p.scope, string(p.prototype), false)
	p.reportSizeLocked()
	return inst, nil
}

// Release returns a checked-out instance to the pool. The instance must have
// been issued by this pool since its last Clear; anything else is rejected
// with ErrorTypeForeignInstance and leaves the pool untouched. Releasing an
// instance that is already available fails with ErrorTypeDoubleRelease.
func (p *Pool[T]) Release(inst *Instance[T]) error {
	if inst == nil || inst.pool != p {
		p.mu.Lock()
		p.stats.foreign++
		p.mu.Unlock()
		p.recorder.Released(p.scope, string(p.prototype), metrics.ResultForeign)
		p.logger.Warn("foreign instance released")
		return errors.New(errors.ErrorTypeForeignInstance, "instance was not issued by this pool").
			WithDetail("prototype", string(p.prototype)).
			WithDetail("scope", p.scope)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if inst.generation != p.generation {
		p.stats.foreign++
		p.recorder.Released(p.scope, string(p.prototype), metrics.ResultForeign)
		p.logger.Warn("stale instance released after clear",
			zap.String("instance", inst.id.String()),
			zap.Uint64("instance_generation", inst.generation),
			zap.Uint64("pool_generation", p.generation))
		return errors.New(errors.ErrorTypeForeignInstance, "instance was issued before the pool was cleared").
			WithDetail("prototype", string(p.prototype)).
			WithDetail("scope", p.scope).
			WithDetail("instance", inst.id.String())
	}

	if _, ok := p.inUse[inst]; !ok || inst.pooled {
		p.stats.doubles++
		p.recorder.Released(p.scope, string(p.prototype), metrics.ResultDouble)
		return errors.New(errors.ErrorTypeDoubleRelease, "instance is already in the pool").
			WithDetail("prototype", string(p.prototype)).
			WithDetail("instance", inst.id.String())
	}

	if p.hooks.Reset != nil {
		p.hooks.Reset(inst.Value)
	}
	delete(p.inUse, inst)
	inst.pooled = true
	p.available = append(p.available, inst)
	p.recorder.Released(p.scope, string(p.prototype), metrics.ResultOK)
	p.reportSizeLocked()
	return nil
}

// Prewarm eagerly creates count instances and makes them available, so later
// acquisitions never pay creation cost. Prewarm ignores AllowGrowth but
// respects MaxSize.
func (p *Pool[T]) Prewarm(count int) error {
	if count < 0 {
		return errors.New(errors.ErrorTypeValidation, "prewarm count cannot be negative").
			WithDetail("count", count)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	created := 0
	defer func() {
		if created > 0 {
			p.logger.Debug("pool prewarmed", zap.Int("created", created), zap.Int("live", p.live))
			p.reportSizeLocked()
		}
	}()

	for i := 0; i < count; i++ {
		if p.opts.MaxSize > 0 && p.live >= p.opts.MaxSize {
			return errors.New(errors.ErrorTypePoolExhausted, "prewarm exceeds pool max size").
				WithDetail("prototype", string(p.prototype)).
				WithDetail("max_size", p.opts.MaxSize).
				WithDetail("requested", count)
		}
		inst, err := p.createLocked()
		if err != nil {
			return err
		}
		inst.pooled = true
		p.available = append(p.available, inst)
		created++
	}
	return nil
}

// Clear discards every instance, available and checked out, and starts a new
// generation. Handles issued before the clear become stale: releasing one
// returns ErrorTypeForeignInstance. The pool remains usable afterwards.
func (p *Pool[T]) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLocked()
}

func (p *Pool[T]) clearLocked() {
	discarded := len(p.available) + len(p.inUse)
	if p.hooks.Discard != nil {
		for _, inst := range p.available {
			p.hooks.Discard(inst.Value)
		}
		for inst := range p.inUse {
			p.hooks.Discard(inst.Value)
		}
	}
	for i := range p.available {
		p.available[i] = nil
	}
	p.available = p.available[:0]
	p.inUse = make(map[*Instance[T]]struct{})
	p.live = 0
	p.generation++
	p.stats.discarded += int64(discarded)

	if discarded > 0 {
		p.recorder.Discarded(p.scope, string(p.prototype), discarded)
		p.logger.Debug("pool cleared", zap.Int("discarded", discarded), zap.Uint64("generation", p.generation))
	}
	p.reportSizeLocked()
}

// detach clears the pool and refuses further acquisitions. Used when a
// registry drops the pool.
func (p *Pool[T]) detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLocked()
	p.detached = true
}

// Stats returns a snapshot of the pool's counts and counters
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Prototype:      p.prototype,
		Scope:          p.scope,
		Live:           p.live,
		Available:      len(p.available),
		CheckedOut:     len(p.inUse),
		Generation:     p.generation,
		Created:        p.stats.created,
		Hits:           p.stats.hits,
		Misses:         p.stats.misses,
		Exhausted:      p.stats.exhausted,
		Foreign:        p.stats.foreign,
		DoubleReleases: p.stats.doubles,
		Discarded:      p.stats.discarded,
	}
}

func (p *Pool[T]) canGrowLocked() bool {
	if !p.opts.AllowGrowth {
		return false
	}
	return p.opts.MaxSize == 0 || p.live < p.opts.MaxSize
}

func (p *Pool[T]) createLocked() (*Instance[T], error) {
	value, err := p.hooks.New(p.prototype)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create instance").
			WithDetail("prototype", string(p.prototype)).
			WithDetail("scope", p.scope)
	}
	p.live++
	p.stats.created++
	p.recorder.Created(p.scope, string(p.prototype), 1)
	return &Instance[T]{
		Value:      value,
		id:         uuid.New(),
		pool:       p,
		generation: p.generation,
	}, nil
}

func (p *Pool[T]) reportSizeLocked() {
	p.recorder.PoolSize(p.scope, string(p.prototype), len(p.available), len(p.inUse))
}
