package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/spawnpool/pkg/config"
	"github.com/ajitpratap0/spawnpool/pkg/errors"
)

func newTestRegistry(t *testing.T, scope string, f *factory, opts ...Option) *Registry[*projectile] {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	r, err := NewRegistry(scope, f.hooks(), opts...)
	require.NoError(t, err)
	return r
}

func TestNewRegistryValidates(t *testing.T) {
	_, err := NewRegistry("", (&factory{}).hooks())
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = NewRegistry(ScopeShared, Hooks[*projectile]{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestGetOrCreatePool(t *testing.T) {
	f := &factory{}
	r := newTestRegistry(t, ScopeShared, f)

	p, err := r.GetOrCreatePool("Bullet", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stats().Available)
	assert.Equal(t, ScopeShared, p.Scope())

	again, err := r.GetOrCreatePool("Bullet", 50)
	require.NoError(t, err)
	assert.Same(t, p, again)
	assert.Equal(t, 5, f.createdCount(), "existing pool is not prewarmed again")

	_, err = r.GetOrCreatePool("", 1)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Equal(t, 1, r.Len())
}

func TestGetOrCreatePoolPrewarmFailure(t *testing.T) {
	f := &factory{fail: true}
	r := newTestRegistry(t, ScopeShared, f)

	_, err := r.GetOrCreatePool("Bullet", 2)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))
	_, ok := r.Lookup("Bullet")
	assert.False(t, ok, "failed pools are not registered")
}

func TestConfigureFirstEntryWins(t *testing.T) {
	f := &factory{}
	r := newTestRegistry(t, SceneScope("Arena"), f)

	dups, err := r.Configure([]config.PoolEntry{
		{Prototype: "Bullet", InitialCount: 5},
		{Prototype: "Grenade", InitialCount: 2, MaxSize: 2, Fixed: true},
		{Prototype: "Bullet", InitialCount: 40},
	})
	require.NoError(t, err)
	assert.Equal(t, []Prototype{"Bullet"}, dups)

	bullets, ok := r.Lookup("Bullet")
	require.True(t, ok)
	assert.Equal(t, 5, bullets.Stats().Available)
	assert.Equal(t, 7, f.createdCount())

	grenades, ok := r.Lookup("Grenade")
	require.True(t, ok)
	for i := 0; i < 2; i++ {
		_, err := grenades.Acquire()
		require.NoError(t, err)
	}
	_, err = grenades.Acquire()
	assert.True(t, errors.IsType(err, errors.ErrorTypePoolExhausted), "fixed entries do not grow")

	dups, err = r.Configure([]config.PoolEntry{{Prototype: "Grenade", InitialCount: 9}})
	require.NoError(t, err)
	assert.Equal(t, []Prototype{"Grenade"}, dups, "existing pools win over later calls")
}

func TestConfigureRejectsBadEntries(t *testing.T) {
	r := newTestRegistry(t, ScopeShared, &factory{})

	_, err := r.Configure([]config.PoolEntry{{Prototype: "Bullet", InitialCount: -1}})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = r.Configure([]config.PoolEntry{{Prototype: "Bullet", InitialCount: 4, MaxSize: 2}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Equal(t, 0, r.Len())
}

func TestRemoveRecreatesFresh(t *testing.T) {
	f := &factory{}
	r := newTestRegistry(t, ScopeShared, f)

	p, err := r.GetOrCreatePool("Bullet", 1)
	require.NoError(t, err)
	inst, err := p.Acquire()
	require.NoError(t, err)

	assert.True(t, r.Remove("Bullet"))
	assert.False(t, r.Remove("Bullet"))
	assert.Equal(t, 1, f.discarded)

	fresh, err := r.GetOrCreatePool("Bullet", 1)
	require.NoError(t, err)
	assert.NotSame(t, p, fresh)

	err = inst.Release()
	assert.True(t, errors.IsType(err, errors.ErrorTypeForeignInstance))
	assert.Equal(t, 1, fresh.Stats().Available, "stale release does not touch the new pool")
}

func TestClearDiscardsEverything(t *testing.T) {
	f := &factory{}
	r := newTestRegistry(t, SceneScope("Arena"), f)
	_, err := r.Configure([]config.PoolEntry{
		{Prototype: "Bullet", InitialCount: 3},
		{Prototype: "Casing", InitialCount: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, r.Clear())
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 5, f.discarded)
	assert.Equal(t, 0, r.Clear())
}

func TestPrototypesAndStatsSorted(t *testing.T) {
	r := newTestRegistry(t, ScopeShared, &factory{})
	for _, p := range []Prototype{"Shell", "Bullet", "Casing"} {
		_, err := r.GetOrCreatePool(p, 1)
		require.NoError(t, err)
	}

	assert.Equal(t, []Prototype{"Bullet", "Casing", "Shell"}, r.Prototypes())

	stats := r.Stats()
	require.Len(t, stats, 3)
	assert.Equal(t, Prototype("Bullet"), stats[0].Prototype)
	assert.Equal(t, 1, stats[2].Available)
}

func TestRegistriesNeverSharePools(t *testing.T) {
	f := &factory{}
	shared := newTestRegistry(t, ScopeShared, f)
	scoped := newTestRegistry(t, SceneScope("Arena"), f)

	a, err := shared.GetOrCreatePool("Casing", 1)
	require.NoError(t, err)
	b, err := scoped.GetOrCreatePool("Casing", 1)
	require.NoError(t, err)
	assert.NotSame(t, a, b)

	inst, err := b.Acquire()
	require.NoError(t, err)
	assert.True(t, errors.IsType(a.Release(inst), errors.ErrorTypeForeignInstance))
}

func TestWithDefaults(t *testing.T) {
	r := newTestRegistry(t, ScopeShared, &factory{}, WithDefaults(Options{AllowGrowth: false}))

	p, err := r.GetOrCreatePool("Bullet", 1)
	require.NoError(t, err)
	_, err = p.Acquire()
	require.NoError(t, err)
	_, err = p.Acquire()
	assert.True(t, errors.IsType(err, errors.ErrorTypePoolExhausted))
}

func TestConfiguredEntriesIgnoreDefaults(t *testing.T) {
	r := newTestRegistry(t, ScopeShared, &factory{}, WithDefaults(Options{AllowGrowth: false, MaxSize: 2}))

	_, err := r.Configure([]config.PoolEntry{
		{Prototype: "Bullet", InitialCount: 4},
		{Prototype: "Shell", InitialCount: 1, Fixed: true},
	})
	require.NoError(t, err)

	bullet, _ := r.Lookup("Bullet")
	for i := 0; i < 5; i++ {
		_, err := bullet.Acquire()
		require.NoError(t, err)
	}

	shell, _ := r.Lookup("Shell")
	_, err = shell.Acquire()
	require.NoError(t, err)
	_, err = shell.Acquire()
	assert.True(t, errors.IsType(err, errors.ErrorTypePoolExhausted))
}

func TestGetOrCreatePoolWithOptions(t *testing.T) {
	r := newTestRegistry(t, ScopeShared, &factory{})

	p, err := r.GetOrCreatePoolWithOptions("Bullet", 1, Options{AllowGrowth: true, MaxSize: 2})
	require.NoError(t, err)
	_, err = p.Acquire()
	require.NoError(t, err)
	_, err = p.Acquire()
	require.NoError(t, err)
	_, err = p.Acquire()
	assert.True(t, errors.IsType(err, errors.ErrorTypePoolExhausted))

	again, err := r.GetOrCreatePoolWithOptions("Bullet", 9, Options{})
	require.NoError(t, err)
	assert.Same(t, p, again, "existing pools keep their policy")
}
