// Package metrics provides Prometheus instrumentation for spawnpool pools,
// the scope resolver and the scene lifecycle.
//
// # Overview
//
// The metrics package provides:
//   - A Collector that satisfies pool.Recorder and scene.Recorder
//   - Counters for acquisitions, releases, creations and resolutions
//   - Gauges for available and checked-out instances per pool
//   - A histogram of scene load and unload durations
//
// # Basic Usage
//
//	reg := prometheus.NewRegistry()
//	collector := metrics.NewCollector("spawnpool", reg)
//
//	shared, err := pool.NewRegistry(pool.ScopeShared, hooks,
//	    pool.WithRecorder(collector))
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// Each Collector registers its own metric vectors, so tests can create one
// per prometheus.Registry without duplicate registration panics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Acquisition and release outcomes used as the "result" label.
const (
	ResultHit       = "hit"
	ResultMiss      = "miss"
	ResultExhausted = "exhausted"
	ResultOK        = "ok"
	ResultForeign   = "foreign"
	ResultDouble    = "double"
	ResultError     = "error"
)

// Collector records pool activity into Prometheus metric vectors.
// It is safe for concurrent use.
type Collector struct {
	acquires    *prometheus.CounterVec   // Acquisitions by outcome
	releases    *prometheus.CounterVec   // Releases by outcome
	created     *prometheus.CounterVec   // Instances created
	discarded   *prometheus.CounterVec   // Instances discarded on clear
	instances   *prometheus.GaugeVec     // Instances by state
	resolutions *prometheus.CounterVec   // Resolver stage outcomes
	sceneOps    *prometheus.CounterVec   // Scene load/unload outcomes
	sceneTime   *prometheus.HistogramVec // Scene operation durations
}

// NewCollector creates and registers a collector.
//
// Parameters:
//   - namespace: Metric name prefix, e.g. "spawnpool"
//   - reg: Registerer to register with; nil uses prometheus.DefaultRegisterer
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		acquires: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "acquire_total",
				Help:      "Total number of pool acquisitions by outcome",
			},
			[]string{"scope", "prototype", "result"},
		),
		releases: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "release_total",
				Help:      "Total number of pool releases by outcome",
			},
			[]string{"scope", "prototype", "result"},
		),
		created: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "instances_created_total",
				Help:      "Total number of instances created by pools",
			},
			[]string{"scope", "prototype"},
		),
		discarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "instances_discarded_total",
				Help:      "Total number of instances discarded when pools were cleared",
			},
			[]string{"scope", "prototype"},
		),
		instances: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "instances",
				Help:      "Current number of pooled instances by state",
			},
			[]string{"scope", "prototype", "state"},
		),
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "resolver",
				Name:      "resolution_total",
				Help:      "Total number of acquisition requests by the stage that satisfied them",
			},
			[]string{"stage"},
		),
		sceneOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scene",
				Name:      "operations_total",
				Help:      "Total number of scene load and unload operations",
			},
			[]string{"operation", "status"},
		),
		sceneTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "scene",
				Name:      "operation_duration_seconds",
				Help:      "Duration of scene load and unload operations in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"operation"},
		),
	}
}

// Acquired records a successful acquisition; reused reports whether the
// instance came from the available stack.
func (c *Collector) Acquired(scope, prototype string, reused bool) {
	result := ResultMiss
	if reused {
		result = ResultHit
	}
	c.acquires.WithLabelValues(scope, prototype, result).Inc()
}

// AcquireFailed records a failed acquisition.
func (c *Collector) AcquireFailed(scope, prototype, result string) {
	c.acquires.WithLabelValues(scope, prototype, result).Inc()
}

// Released records a release outcome.
func (c *Collector) Released(scope, prototype, result string) {
	c.releases.WithLabelValues(scope, prototype, result).Inc()
}

// Created records n newly created instances.
func (c *Collector) Created(scope, prototype string, n int) {
	c.created.WithLabelValues(scope, prototype).Add(float64(n))
}

// Discarded records n instances discarded by a clear.
func (c *Collector) Discarded(scope, prototype string, n int) {
	c.discarded.WithLabelValues(scope, prototype).Add(float64(n))
}

// PoolSize sets the available and checked-out gauges for a pool.
func (c *Collector) PoolSize(scope, prototype string, available, checkedOut int) {
	c.instances.WithLabelValues(scope, prototype, "available").Set(float64(available))
	c.instances.WithLabelValues(scope, prototype, "checked_out").Set(float64(checkedOut))
}

// Resolved records which resolver stage handled a request.
func (c *Collector) Resolved(stage string) {
	c.resolutions.WithLabelValues(stage).Inc()
}

// SceneOperation records a scene lifecycle operation and its duration.
func (c *Collector) SceneOperation(operation, status string, duration time.Duration) {
	c.sceneOps.WithLabelValues(operation, status).Inc()
	c.sceneTime.WithLabelValues(operation).Observe(duration.Seconds())
}

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs or metrics.
//
// Example:
//
//	timer := metrics.NewTimer("scene_load")
//	loadScene()
//	collector.SceneOperation("load", "success", timer.Stop())
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer's name
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation.
// The timer can be stopped multiple times, each returning the total
// elapsed time since creation.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
