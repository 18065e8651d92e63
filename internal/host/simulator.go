package host

import (
	"context"
	"time"

	"github.com/eapache/queue"
	"go.uber.org/zap"

	"github.com/ajitpratap0/spawnpool/pkg/config"
	"github.com/ajitpratap0/spawnpool/pkg/errors"
	"github.com/ajitpratap0/spawnpool/pkg/logger"
	"github.com/ajitpratap0/spawnpool/pkg/metrics"
	"github.com/ajitpratap0/spawnpool/pkg/pool"
)

// Report summarizes a simulation run.
type Report struct {
	Frames    int              `json:"frames"`
	Spawned   int64            `json:"spawned"`
	Despawned int64            `json:"despawned"`
	Failures  map[string]int64 `json:"failures,omitempty"`
	Pools     []pool.Stats     `json:"pools"`
	Duration  time.Duration    `json:"duration"`
	RSSBytes  uint64           `json:"rss_bytes"`
}

// spawned is an instance waiting for its despawn frame
type spawned[T any] struct {
	inst      *pool.Instance[T]
	despawnAt int
}

// workload is a configured spawner with its despawn FIFO. Every entry in a
// workload shares one lifetime, so its queue is ordered by despawn frame.
type workload[T any] struct {
	cfg   config.WorkloadConfig
	queue *queue.Queue
}

// SimulatorOption configures a Simulator
type SimulatorOption[T any] func(*Simulator[T])

// WithUpdate sets a function called once per frame on every live instance,
// after despawns and before spawns.
func WithUpdate[T any](update func(value T)) SimulatorOption[T] {
	return func(s *Simulator[T]) { s.update = update }
}

// Simulator steps fixed frames against a host's resolver. Each frame first
// despawns instances whose lifetime has elapsed, updates the ones still
// alive, then spawns every workload's per-frame instances.
type Simulator[T any] struct {
	host      *Host[T]
	scene     string
	interval  time.Duration
	workloads []*workload[T]
	update    func(T)
	logger    *zap.Logger

	frame  int
	report Report
}

// NewSimulator creates a simulator for cfg's workloads
func NewSimulator[T any](h *Host[T], cfg config.SimulationConfig, opts ...SimulatorOption[T]) *Simulator[T] {
	workloads := make([]*workload[T], 0, len(cfg.Workloads))
	for _, w := range cfg.Workloads {
		workloads = append(workloads, &workload[T]{cfg: w, queue: queue.New()})
	}
	s := &Simulator[T]{
		host:      h,
		scene:     cfg.Scene,
		interval:  cfg.FrameInterval,
		workloads: workloads,
		logger:    h.logger.With(zap.String("component", "simulator")),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reset()
	return s
}

func (s *Simulator[T]) reset() {
	s.frame = 0
	s.report = Report{Failures: make(map[string]int64)}
}

// Run steps frames frames, then despawns everything still alive and
// returns the report. Each run starts from frame zero with an empty report.
// If a scene is configured it is loaded, or activated if already loaded,
// before the first frame. Cancelling ctx stops the run early; the partial
// report is returned with ctx's error.
func (s *Simulator[T]) Run(ctx context.Context, frames int) (*Report, error) {
	if frames < 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "frames cannot be negative")
	}
	if err := s.enterScene(ctx); err != nil {
		return nil, err
	}
	s.reset()
	if s.scene != "" {
		ctx = context.WithValue(ctx, logger.SceneKey, s.scene)
	}

	timer := metrics.NewTimer("simulation")
	s.logger.Info("simulation starting",
		zap.Int("frames", frames),
		zap.Int("workloads", len(s.workloads)),
		zap.String("scene", s.scene))

	var ticker *time.Ticker
	if s.interval > 0 {
		ticker = time.NewTicker(s.interval)
		defer ticker.Stop()
	}

	var runErr error
	for i := 0; i < frames; i++ {
		if ticker != nil {
			select {
			case <-ctx.Done():
			case <-ticker.C:
			}
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		s.Step(ctx)
	}

	s.drain(ctx)
	s.report.Duration = timer.Stop()
	s.report.Pools = s.host.Stats()
	s.report.RSSBytes = processRSS()

	s.logger.Info("simulation finished",
		zap.Int("frames", s.report.Frames),
		zap.Int64("spawned", s.report.Spawned),
		zap.Int64("despawned", s.report.Despawned),
		zap.Any("failures", s.report.Failures),
		zap.Duration("duration", s.report.Duration))

	report := s.report
	return &report, runErr
}

func (s *Simulator[T]) enterScene(ctx context.Context) error {
	if s.scene == "" {
		return nil
	}
	scenes := s.host.Scenes()
	if _, ok := scenes.Registry(s.scene); ok {
		return scenes.Activate(s.scene)
	}
	_, err := scenes.Load(ctx, s.scene)
	return err
}

// Step advances one frame. Failures are logged with ctx's scene and the
// frame number.
func (s *Simulator[T]) Step(ctx context.Context) {
	s.frame++
	s.report.Frames++
	ctx = context.WithValue(ctx, logger.FrameKey, s.frame)

	for _, w := range s.workloads {
		for w.queue.Length() > 0 {
			next := w.queue.Peek().(spawned[T])
			if next.despawnAt > s.frame {
				break
			}
			w.queue.Remove()
			s.despawn(ctx, next.inst)
		}
	}

	if s.update != nil {
		for _, w := range s.workloads {
			for i := 0; i < w.queue.Length(); i++ {
				s.update(w.queue.Get(i).(spawned[T]).inst.Value)
			}
		}
	}

	resolver := s.host.Resolver()
	for _, w := range s.workloads {
		for n := 0; n < w.cfg.PerFrame; n++ {
			inst, err := resolver.Acquire(pool.Prototype(w.cfg.Prototype))
			if err != nil {
				s.fail(ctx, "spawn", err)
				continue
			}
			s.report.Spawned++
			w.queue.Add(spawned[T]{inst: inst, despawnAt: s.frame + w.cfg.Lifetime})
		}
	}
}

// Alive returns the number of spawned instances not yet despawned
func (s *Simulator[T]) Alive() int {
	alive := 0
	for _, w := range s.workloads {
		alive += w.queue.Length()
	}
	return alive
}

func (s *Simulator[T]) drain(ctx context.Context) {
	for _, w := range s.workloads {
		for w.queue.Length() > 0 {
			s.despawn(ctx, w.queue.Remove().(spawned[T]).inst)
		}
	}
}

func (s *Simulator[T]) despawn(ctx context.Context, inst *pool.Instance[T]) {
	if err := s.host.Resolver().Release(inst); err != nil {
		s.fail(ctx, "despawn", err)
		return
	}
	s.report.Despawned++
}

func (s *Simulator[T]) fail(ctx context.Context, op string, err error) {
	s.report.Failures[string(errors.TypeOf(err))]++
	logger.WithContext(ctx, s.logger).Debug("simulated "+op+" failed", zap.Error(err))
}
