package host_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/spawnpool/internal/host"
	"github.com/ajitpratap0/spawnpool/pkg/config"
	"github.com/ajitpratap0/spawnpool/pkg/errors"
	"github.com/ajitpratap0/spawnpool/pkg/pool"
	"github.com/ajitpratap0/spawnpool/pkg/testutil"
)

// LifecycleSuite drives a host loaded from a configuration file through
// scene changes.
type LifecycleSuite struct {
	suite.Suite
	ctx     context.Context
	cancel  context.CancelFunc
	spawner *testutil.Spawner
	host    *host.Host[*testutil.Entity]
}

func TestLifecycleSuite(t *testing.T) {
	testutil.IntegrationTest(t)
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	s.ctx, s.cancel = testutil.TestContext(s.T())

	cfg := config.NewConfig("lifecycle")
	cfg.Resolver.OnDemand = false
	cfg.Shared = []config.PoolEntry{{Prototype: "Casing", InitialCount: 3}}
	cfg.Scenes = map[string][]config.PoolEntry{
		"Arena":  {{Prototype: "Bullet", InitialCount: 5}},
		"Bridge": {{Prototype: "Bullet", InitialCount: 2, Fixed: true}},
	}
	path := testutil.WriteConfig(s.T(), cfg)

	loaded, err := config.Load(path)
	s.Require().NoError(err)

	s.spawner = &testutil.Spawner{}
	s.host, err = host.New(loaded, s.spawner.Hooks(),
		host.WithLogger(testutil.TestLogger(s.T())),
		host.WithRegisterer(prometheus.NewRegistry()))
	s.Require().NoError(err)
	s.Require().NoError(s.host.Start(s.ctx))
}

func (s *LifecycleSuite) TearDownTest() {
	s.Require().NoError(s.host.Close(s.ctx))
	created, _, discarded := s.spawner.Counts()
	s.Equal(created, discarded, "closing the host discards every instance")
	s.cancel()
}

func (s *LifecycleSuite) TestSceneSwitchKeepsSharedInstances() {
	resolver := s.host.Resolver()
	scenes := s.host.Scenes()

	_, err := scenes.Load(s.ctx, "Arena")
	s.Require().NoError(err)
	casing, err := resolver.Acquire("Casing")
	s.Require().NoError(err)
	bullet, err := resolver.Acquire("Bullet")
	s.Require().NoError(err)

	s.Require().NoError(scenes.Unload(s.ctx, "Arena"))
	_, err = scenes.Load(s.ctx, "Bridge")
	s.Require().NoError(err)

	s.NoError(resolver.Release(casing))
	s.True(errors.IsType(resolver.Release(bullet), errors.ErrorTypeForeignInstance))

	next, err := resolver.Acquire("Bullet")
	s.Require().NoError(err)
	s.Equal(pool.SceneScope("Bridge"), next.Pool().Scope())
	s.Equal(pool.Prototype("Bullet"), next.Value.Prototype)
}

func (s *LifecycleSuite) TestFixedScenePoolExhausts() {
	_, err := s.host.Scenes().Load(s.ctx, "Bridge")
	s.Require().NoError(err)

	resolver := s.host.Resolver()
	for i := 0; i < 2; i++ {
		_, err := resolver.Acquire("Bullet")
		s.Require().NoError(err)
	}
	_, err = resolver.Acquire("Bullet")
	s.True(errors.IsType(err, errors.ErrorTypePoolExhausted))
}

func (s *LifecycleSuite) TestUnknownPrototypeWithoutOnDemand() {
	_, err := s.host.Resolver().Acquire("Rocket")
	s.True(errors.IsType(err, errors.ErrorTypeNoPoolConfigured))
	s.Equal(1, s.host.Shared().Len())
}

func (s *LifecycleSuite) TestSimulationBalancesSpawns() {
	sim := host.NewSimulator(s.host, config.SimulationConfig{
		Scene: "Arena",
		Workloads: []config.WorkloadConfig{
			{Prototype: "Bullet", PerFrame: 1, Lifetime: 4},
			{Prototype: "Casing", PerFrame: 1, Lifetime: 3},
		},
	})
	report, err := sim.Run(s.ctx, 30)
	s.Require().NoError(err)
	s.Equal(int64(60), report.Spawned)
	s.Equal(report.Spawned, report.Despawned)

	created, resets, _ := s.spawner.Counts()
	s.Equal(8, created, "three shared and five scene instances cover the workload")
	s.Equal(60, resets)
}
