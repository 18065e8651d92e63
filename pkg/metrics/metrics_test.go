package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("test", reg)

	c.Acquired("shared", "Bullet", true)
	c.Acquired("shared", "Bullet", true)
	c.Acquired("shared", "Bullet", false)
	c.AcquireFailed("scene:Arena", "Grenade", ResultExhausted)
	c.Released("shared", "Bullet", ResultForeign)
	c.Created("shared", "Bullet", 5)
	c.Discarded("shared", "Bullet", 2)
	c.Resolved("shared")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.acquires.WithLabelValues("shared", "Bullet", ResultHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.acquires.WithLabelValues("shared", "Bullet", ResultMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.acquires.WithLabelValues("scene:Arena", "Grenade", ResultExhausted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.releases.WithLabelValues("shared", "Bullet", ResultForeign)))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.created.WithLabelValues("shared", "Bullet")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.discarded.WithLabelValues("shared", "Bullet")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.resolutions.WithLabelValues("shared")))
}

func TestCollectorGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("test", reg)

	c.PoolSize("shared", "Casing", 3, 4)
	c.PoolSize("shared", "Casing", 5, 2)

	assert.Equal(t, 5.0, testutil.ToFloat64(c.instances.WithLabelValues("shared", "Casing", "available")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.instances.WithLabelValues("shared", "Casing", "checked_out")))
}

func TestSceneOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("test", reg)

	c.SceneOperation("load", "success", 3*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.sceneOps.WithLabelValues("load", "success")))
	count, err := testutil.GatherAndCount(reg, "test_scene_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCollectorsUseSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector("test", prometheus.NewRegistry())
		NewCollector("test", prometheus.NewRegistry())
	})
}

func TestTimer(t *testing.T) {
	timer := NewTimer("scene_load")
	time.Sleep(time.Millisecond)
	assert.Equal(t, "scene_load", timer.Name())
	assert.GreaterOrEqual(t, timer.Stop(), time.Millisecond)
}
