// Package pool provides example usage of scoped prototype pooling.
package pool_test

import (
	"fmt"

	"github.com/ajitpratap0/spawnpool/pkg/config"
	"github.com/ajitpratap0/spawnpool/pkg/errors"
	"github.com/ajitpratap0/spawnpool/pkg/pool"
)

type effect struct {
	name   string
	frames int
}

var effectHooks = pool.Hooks[*effect]{
	New: func(p pool.Prototype) (*effect, error) {
		return &effect{name: string(p)}, nil
	},
	Reset: func(e *effect) {
		e.frames = 0
	},
}

// Example demonstrates a shared pool serving acquisitions while a scene scope
// is active.
func Example() {
	shared, _ := pool.NewRegistry(pool.ScopeShared, effectHooks)
	_, _ = shared.Configure([]config.PoolEntry{{Prototype: "Casing", InitialCount: 4}})

	resolver, _ := pool.NewResolver(shared, config.ResolverConfig{OnDemand: false})

	arena, _ := pool.NewRegistry(pool.SceneScope("Arena"), effectHooks)
	_, _ = arena.Configure([]config.PoolEntry{{Prototype: "Bullet", InitialCount: 8}})
	resolver.SetScope(arena)

	bullet, _ := resolver.Acquire("Bullet")
	casing, _ := resolver.Acquire("Casing")
	fmt.Println(bullet.Pool().Scope(), casing.Pool().Scope())

	_ = bullet.Release()
	_ = casing.Release()

	_, err := resolver.Acquire("Rocket")
	fmt.Println(errors.IsType(err, errors.ErrorTypeNoPoolConfigured))

	// Output:
	// scene:Arena shared
	// true
}

// ExamplePool_Acquire shows last-in-first-out reuse.
func ExamplePool_Acquire() {
	p, _ := pool.New("Spark", effectHooks, pool.DefaultOptions())
	_ = p.Prewarm(2)

	a, _ := p.Acquire()
	a.Value.frames = 12
	_ = a.Release()

	again, _ := p.Acquire()
	fmt.Println(again == a, again.Value.frames)

	// Output:
	// true 0
}

// ExamplePool_Clear shows that handles issued before a clear are rejected.
func ExamplePool_Clear() {
	p, _ := pool.New("Spark", effectHooks, pool.DefaultOptions())

	inst, _ := p.Acquire()
	p.Clear()

	err := inst.Release()
	fmt.Println(errors.TypeOf(err))

	// Output:
	// foreign_instance
}
