// Package config provides configuration management for spawnpool hosts.
//
// # Key Features
//
// - Config: one structure covering shared pools, scene pools, resolver policy,
// simulation workloads, logging, metrics and tracing
// - Environment variable substitution with ${VAR_NAME} syntax
// - Automatic defaults and validation
// - Duplicate prototype detection (first entry wins when pools are built)
// - File watching so scene pool entries can be edited while a host runs
//
// # Usage
//
// ## Loading a Configuration
//
//	cfg, err := config.Load("pools.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// ## File Format
//
//	name: arena
//	resolver:
//	  on_demand: true
//	  default_size: 4
//	  allow_growth: true
//	shared:
//	  - prototype: Casing
//	    initial_count: 64
//	scenes:
//	  Arena:
//	    - prototype: Bullet
//	      initial_count: 32
//	    - prototype: Grenade
//	      initial_count: 4
//	      max_size: 8
//	      fixed: true
//
// ## Watching for Changes
//
//	w, err := config.NewWatcher("pools.yaml", func(cfg *config.Config) {
//		host.UpdateScenes(cfg.Scenes)
//	}, logger)
//	go w.Run(ctx)
//
// Shared entries are consumed once at host start; reloads only affect scenes
// loaded afterwards.
package config
