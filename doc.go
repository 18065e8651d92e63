// Package spawnpool provides scoped prototype object pooling for frame-driven
// hosts such as games and simulations. Instances of a prototype are created
// ahead of time, handed out on spawn and returned on despawn, so steady-state
// spawning allocates nothing.
//
// # Architecture
//
// Pools are organized in two kinds of registries:
//
// 1. The shared registry lives for the whole process. It is prewarmed from
// configuration when the host starts and also receives on-demand pools.
//
// 2. A scoped registry belongs to one scene. It is built when the scene
// loads and cleared, with every instance it created, when the scene unloads.
//
// A resolver answers each spawn request by looking in the active scene's
// registry, then the shared registry, then (if enabled) creating an
// on-demand shared pool. A prototype with no pool anywhere yields
// ErrorTypeNoPoolConfigured. Releases always go back to the pool that issued
// the instance, whatever scope is active at the time.
//
// # Quick Start
//
//	import (
//	    "github.com/ajitpratap0/spawnpool/internal/host"
//	    "github.com/ajitpratap0/spawnpool/pkg/config"
//	    "github.com/ajitpratap0/spawnpool/pkg/pool"
//	)
//
//	cfg, err := config.Load("spawnpool.yaml")
//	if err != nil {
//	    return err
//	}
//
//	h, err := host.New(cfg, pool.Hooks[*Entity]{
//	    New:   newEntity,
//	    Reset: (*Entity).Reset,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := h.Start(ctx); err != nil {
//	    return err
//	}
//	defer h.Close(ctx)
//
//	if _, err := h.Scenes().Load(ctx, "Arena"); err != nil {
//	    return err
//	}
//	bullet, err := h.Resolver().Acquire("Bullet")
//	...
//	err = bullet.Release()
//
// # Key Packages
//
//	pkg/pool          - Pool, Registry and the scope Resolver
//	pkg/scene         - Scene load/unload driving scoped registries
//	pkg/config        - YAML configuration with env substitution and reload
//	pkg/errors        - Structured error handling
//	pkg/logger        - Structured logging
//	pkg/metrics       - Prometheus collectors for pools and scenes
//	pkg/observability - OpenTelemetry spans for lifecycle operations
//	internal/host     - Host assembly and the frame simulator
//	cmd/spawnpool     - CLI: validate, simulate, serve
//
// # Configuration
//
//	name: arena
//	resolver:
//	  on_demand: true
//	  default_size: 4
//	  allow_growth: true
//	shared:
//	  - prototype: Casing
//	    initial_count: 32
//	scenes:
//	  Arena:
//	    - prototype: Bullet
//	      initial_count: 64
//	      max_size: 256
//
// Environment variables are supported with ${VAR_NAME} syntax. Duplicate
// entries for one prototype are logged and the first entry wins.
//
// # Development
//
//	go test ./...
//	go run ./cmd/spawnpool validate --config spawnpool.yaml
//	go run ./cmd/spawnpool simulate --config spawnpool.yaml --frames 600
package spawnpool
