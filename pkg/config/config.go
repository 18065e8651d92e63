// Package config provides the configuration system for spawnpool.
// A single Config structure describes the shared pools prewarmed at host
// start, the per-scene pools created on scene load, the resolver's fallback
// policy and the ambient logging, metrics and tracing settings.
//
// Example usage:
//
//	cfg := config.NewConfig("arena")
//	cfg.Shared = append(cfg.Shared, config.PoolEntry{Prototype: "Bullet", InitialCount: 32})
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"sort"
	"time"

	"github.com/ajitpratap0/spawnpool/pkg/errors"
)

// Config is the root configuration for a pooling host.
type Config struct {
	// Name identifies the host in logs and traces
	Name string `yaml:"name" json:"name"`

	// Logging configures the structured logger
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Resolver controls fallback and growth policy
	Resolver ResolverConfig `yaml:"resolver" json:"resolver"`

	// Shared pools live for the whole process and are prewarmed at start
	Shared []PoolEntry `yaml:"shared" json:"shared"`

	// Scenes maps a scene name to the pools created when it loads
	Scenes map[string][]PoolEntry `yaml:"scenes" json:"scenes"`

	// Simulation drives the frame simulator
	Simulation SimulationConfig `yaml:"simulation" json:"simulation"`

	// Metrics configures Prometheus exposition
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Tracing configures OpenTelemetry spans
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
}

// PoolEntry configures a single prototype's pool. It is consumed once, when
// the pool is created.
type PoolEntry struct {
	// Prototype names the template instances are created from
	Prototype string `yaml:"prototype" json:"prototype"`
	// InitialCount is the number of instances prewarmed at creation
	InitialCount int `yaml:"initial_count" json:"initial_count"`
	// MaxSize caps live instances (0 = unbounded)
	MaxSize int `yaml:"max_size,omitempty" json:"max_size,omitempty"`
	// Fixed disables growth past the prewarmed instances
	Fixed bool `yaml:"fixed,omitempty" json:"fixed,omitempty"`
}

// LoggingConfig mirrors logger.Config in file form.
type LoggingConfig struct {
	Level       string   `yaml:"level" json:"level"`
	Development bool     `yaml:"development" json:"development"`
	Encoding    string   `yaml:"encoding" json:"encoding"`
	OutputPaths []string `yaml:"output_paths" json:"output_paths"`
}

// ResolverConfig controls how acquisitions with no configured pool are handled.
type ResolverConfig struct {
	// OnDemand creates a shared pool for unknown prototypes
	OnDemand bool `yaml:"on_demand" json:"on_demand"`
	// DefaultSize is the prewarm count of on-demand pools; on-demand creation
	// is skipped when it is not positive
	DefaultSize int `yaml:"default_size" json:"default_size"`
	// MaxSize caps on-demand pools (0 = unbounded); configured entries use
	// their own MaxSize
	MaxSize int `yaml:"max_size" json:"max_size"`
	// AllowGrowth lets on-demand pools create past their prewarmed instances.
	// Configured entries use their own Fixed flag instead.
	AllowGrowth bool `yaml:"allow_growth" json:"allow_growth"`
}

// SimulationConfig describes a synthetic spawn/despawn workload.
type SimulationConfig struct {
	// Scene is loaded before the first frame (optional)
	Scene string `yaml:"scene" json:"scene"`
	// Frames is the number of frames to step
	Frames int `yaml:"frames" json:"frames"`
	// FrameInterval paces the loop; zero runs frames back to back
	FrameInterval time.Duration `yaml:"frame_interval" json:"frame_interval"`
	// Workloads are stepped once per frame in order
	Workloads []WorkloadConfig `yaml:"workloads" json:"workloads"`
}

// WorkloadConfig spawns PerFrame instances of Prototype every frame and
// despawns each after Lifetime frames.
type WorkloadConfig struct {
	Prototype string `yaml:"prototype" json:"prototype"`
	PerFrame  int    `yaml:"per_frame" json:"per_frame"`
	Lifetime  int    `yaml:"lifetime" json:"lifetime"`
}

// MetricsConfig configures Prometheus exposition.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace"`
	Addr      string `yaml:"addr" json:"addr"`
}

// TracingConfig configures OpenTelemetry.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	ServiceName string `yaml:"service_name" json:"service_name"`
	// Exporter is "stdout" or "none"
	Exporter string `yaml:"exporter" json:"exporter"`
}

// NewConfig creates a Config with sensible defaults.
//
// Parameters:
//   - name: The host name used in logs and traces
//
// Example:
//
//	cfg := config.NewConfig("arena")
//	cfg.Resolver.DefaultSize = 8  // Override default
func NewConfig(name string) *Config {
	return &Config{
		Name: name,
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Resolver: ResolverConfig{
			OnDemand:    true,
			DefaultSize: 4,
			MaxSize:     0,
			AllowGrowth: true,
		},
		Shared: []PoolEntry{},
		Scenes: make(map[string][]PoolEntry),
		Simulation: SimulationConfig{
			Frames:        600,
			FrameInterval: 0,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "spawnpool",
			Addr:      ":9464",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "spawnpool",
			Exporter:    "stdout",
		},
	}
}

// Validate validates the configuration for correctness.
// Duplicate entries are not validation failures: they are reported by
// Duplicates and resolved first-entry-wins when pools are configured.
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New(errors.ErrorTypeValidation, "name is required")
	}
	if c.Resolver.DefaultSize < 0 {
		return errors.New(errors.ErrorTypeValidation, "resolver.default_size cannot be negative")
	}
	if c.Resolver.MaxSize < 0 {
		return errors.New(errors.ErrorTypeValidation, "resolver.max_size cannot be negative")
	}
	if c.Resolver.MaxSize > 0 && c.Resolver.DefaultSize > c.Resolver.MaxSize {
		return errors.Newf(errors.ErrorTypeValidation, "resolver.default_size %d exceeds resolver.max_size %d",
			c.Resolver.DefaultSize, c.Resolver.MaxSize)
	}
	if err := validateEntries("shared", c.Shared); err != nil {
		return err
	}
	for _, name := range c.SceneNames() {
		if name == "" {
			return errors.New(errors.ErrorTypeValidation, "scene name cannot be empty")
		}
		if err := validateEntries("scenes."+name, c.Scenes[name]); err != nil {
			return err
		}
	}
	if c.Simulation.Frames < 0 {
		return errors.New(errors.ErrorTypeValidation, "simulation.frames cannot be negative")
	}
	if c.Simulation.Scene != "" {
		if _, ok := c.Scenes[c.Simulation.Scene]; !ok {
			return errors.Newf(errors.ErrorTypeValidation, "simulation.scene %q is not configured", c.Simulation.Scene)
		}
	}
	for i, w := range c.Simulation.Workloads {
		if w.Prototype == "" {
			return errors.Newf(errors.ErrorTypeValidation, "simulation.workloads[%d]: prototype is required", i)
		}
		if w.PerFrame < 0 {
			return errors.Newf(errors.ErrorTypeValidation, "simulation.workloads[%d]: per_frame cannot be negative", i)
		}
		if w.Lifetime < 1 {
			return errors.Newf(errors.ErrorTypeValidation, "simulation.workloads[%d]: lifetime must be at least 1", i)
		}
	}
	return nil
}

func validateEntries(section string, entries []PoolEntry) error {
	for i, e := range entries {
		if e.Prototype == "" {
			return errors.Newf(errors.ErrorTypeValidation, "%s[%d]: prototype is required", section, i)
		}
		if e.InitialCount < 0 {
			return errors.Newf(errors.ErrorTypeValidation, "%s[%d]: initial_count cannot be negative", section, i).
				WithDetail("prototype", e.Prototype)
		}
		if e.MaxSize < 0 {
			return errors.Newf(errors.ErrorTypeValidation, "%s[%d]: max_size cannot be negative", section, i).
				WithDetail("prototype", e.Prototype)
		}
		if e.MaxSize > 0 && e.MaxSize < e.InitialCount {
			return errors.Newf(errors.ErrorTypeValidation, "%s[%d]: max_size %d is below initial_count %d",
				section, i, e.MaxSize, e.InitialCount).
				WithDetail("prototype", e.Prototype)
		}
	}
	return nil
}

// Duplicates returns, per section, the prototypes configured more than once.
// Sections are "shared" and "scenes.<name>".
func (c *Config) Duplicates() map[string][]string {
	out := make(map[string][]string)
	if d := duplicateEntries(c.Shared); len(d) > 0 {
		out["shared"] = d
	}
	for name, entries := range c.Scenes {
		if d := duplicateEntries(entries); len(d) > 0 {
			out["scenes."+name] = d
		}
	}
	return out
}

func duplicateEntries(entries []PoolEntry) []string {
	seen := make(map[string]int, len(entries))
	var dups []string
	for _, e := range entries {
		seen[e.Prototype]++
		if seen[e.Prototype] == 2 {
			dups = append(dups, e.Prototype)
		}
	}
	return dups
}

// SceneNames returns the configured scene names in sorted order
func (c *Config) SceneNames() []string {
	names := make([]string, 0, len(c.Scenes))
	for name := range c.Scenes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SceneEntries returns a scene's pool entries and whether the scene exists
func (c *Config) SceneEntries(name string) ([]PoolEntry, bool) {
	entries, ok := c.Scenes[name]
	return entries, ok
}
