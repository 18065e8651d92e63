// Package pool implements prototype object pooling with scoped and shared
// registries. It recycles frequently spawned objects (projectiles, casings,
// impact effects) so that steady-state play does not pay creation cost.
//
// # Architecture
//
// The package uses Go generics so pools hold any value type T. Three types
// make up the core:
//
//   - Pool[T]: the reusable instances of one prototype. Available instances
//     form a stack so the most recently released, still warm, instance is
//     reused first.
//   - Registry[T]: prototype to pool mapping. The shared registry lives for
//     the whole process; a scoped registry lives for one scene and is cleared
//     when the scene unloads.
//   - Resolver[T]: chooses where an acquisition is satisfied, scoped first,
//     then shared, then an on-demand shared pool.
//
// # Usage Patterns
//
// Building a shared registry and resolver:
//
//	hooks := pool.Hooks[*Projectile]{
//		New:     func(p pool.Prototype) (*Projectile, error) { return spawn(p) },
//		Reset:   func(v *Projectile) { v.Reset() },
//		Discard: func(v *Projectile) { v.Destroy() },
//	}
//	shared, err := pool.NewRegistry(pool.ScopeShared, hooks)
//	if err != nil {
//		return err
//	}
//	if _, err := shared.Configure(cfg.Shared); err != nil {
//		return err
//	}
//	resolver, err := pool.NewResolver(shared, cfg.Resolver)
//
// Spawning and despawning:
//
//	inst, err := resolver.Acquire("Bullet")
//	if err != nil {
//		return err
//	}
//	// ... later
//	if err := inst.Release(); err != nil {
//		log.Warn("despawn failed", zap.Error(err))
//	}
//
// # Handles and Clearing
//
// An Instance records the pool and pool generation it was issued in. Clear
// and Registry.Remove start a new generation, so releasing a handle issued
// before the clear fails with ErrorTypeForeignInstance instead of putting a
// destroyed object into a fresh pool.
//
// # Errors
//
//   - ErrorTypePoolExhausted: a fixed or capped pool has nothing available
//   - ErrorTypeForeignInstance: release of an instance this pool did not issue
//   - ErrorTypeDoubleRelease: release of an instance already in the pool
//   - ErrorTypeNoPoolConfigured: no scope has a pool and on-demand is off
//
// None of them are retryable; they are fixed by configuration or caller logic.
//
// # Metrics
//
// Pools report through a Recorder. metrics.Collector exports hits (reuse),
// misses (creation on acquire), exhaustion, foreign releases and per-pool
// available/checked-out gauges to Prometheus.
package pool
