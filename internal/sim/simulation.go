package sim

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ballsim/arena/internal/core/event"
	"github.com/ballsim/arena/internal/core/geom"
	"github.com/ballsim/arena/internal/diag"
	"github.com/ballsim/arena/internal/physics"
	"github.com/ballsim/arena/internal/system"
	"github.com/ballsim/arena/internal/world"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrDisposed      = errors.New("sim: simulation disposed")
	ErrNilHandler    = errors.New("sim: nil creation handler")
	ErrNegativeCount = errors.New("sim: negative ball count")
)

// Scheduler selects how balls are ticked.
type Scheduler string

const (
	// PerEntity runs one goroutine per ball, each ticking on its own schedule.
	PerEntity Scheduler = "per_entity"
	// Global runs one goroutine that ticks every ball under a single lock
	// acquisition and resolves each overlapping pair once.
	Global Scheduler = "global"
)

type Config struct {
	Scheduler    Scheduler
	TickInterval time.Duration
	Diameter     float64
	Mass         float64 // 0 = diameter squared
	MaxSpeed     float64 // velocity components drawn from [-MaxSpeed, MaxSpeed]
	Width        float64
	Height       float64
	Seed         int64 // 0 = time based
	ReportEvery  int   // global scheduler ticks between counter logs
}

func (c Config) withDefaults() Config {
	if c.Scheduler == "" {
		c.Scheduler = PerEntity
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 16 * time.Millisecond
	}
	if c.Diameter <= 0 {
		c.Diameter = 20
	}
	if c.Mass <= 0 {
		c.Mass = physics.MassOf(c.Diameter)
	}
	if c.MaxSpeed <= 0 {
		c.MaxSpeed = 5
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	if c.ReportEvery <= 0 {
		c.ReportEvery = 300
	}
	return c
}

// CreatedFunc is called once per ball, synchronously inside Start, before the
// ball's worker begins. Subscribe to position changes here.
type CreatedFunc func(pos geom.Vector, ball *world.Ball)

// Simulation owns the world registry, the tick goroutines and the diagnostics
// sink. Start may be called repeatedly; Dispose exactly once.
type Simulation struct {
	cfg     Config
	runID   uuid.UUID
	world   *world.Registry
	stats   *system.Stats
	physics *system.Physics
	diag    system.Recorder
	sink    *diag.Sink
	log     *zap.Logger

	mu      sync.Mutex // serializes Start and Dispose; guards rng, nextID, workers, sched
	rng     *rand.Rand
	nextID  int64
	workers []*worker
	sched   *scheduler

	disposed      atomic.Bool
	created       atomic.Int64
	notifications atomic.Uint64
	started       time.Time
	finished      atomic.Int64 // unix nanos, 0 while running
}

// New builds a simulation. sink may be nil, in which case diagnostics are discarded.
func New(cfg Config, sink *diag.Sink, log *zap.Logger) *Simulation {
	cfg = cfg.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	s := &Simulation{
		cfg:     cfg,
		runID:   uuid.New(),
		world:   world.NewRegistry(world.Bounds{Width: cfg.Width, Height: cfg.Height}, cfg.Diameter, cfg.Mass),
		stats:   &system.Stats{},
		sink:    sink,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		started: time.Now(),
	}
	s.log = log.With(zap.String("run", s.runID.String()))
	if sink != nil {
		s.diag = sink
	} else {
		s.diag = discard{}
	}
	s.physics = system.NewPhysics(s.world, s.diag, s.stats)

	s.diag.Logf("simulation %s started: scheduler=%s tick=%s diameter=%.1f mass=%.1f",
		s.runID, cfg.Scheduler, cfg.TickInterval, cfg.Diameter, cfg.Mass)
	return s
}

type discard struct{}

func (discard) Logf(string, ...any) {}

func (s *Simulation) RunID() string { return s.runID.String() }

// World exposes the registry for read-only inspection (States, Len).
func (s *Simulation) World() *world.Registry { return s.world }

// SetBounds configures the arena. Call it before Start.
func (s *Simulation) SetBounds(width, height float64) {
	s.world.SetBounds(world.Bounds{Width: width, Height: height})
	s.diag.Logf("arena bounds set to %.0fx%.0f", width, height)
}

// Start creates n balls at random positions inside the middle 80% of the
// arena, registers each one, hands it to onCreated and starts ticking it.
// Nothing is created when an error is returned.
func (s *Simulation) Start(n int, onCreated CreatedFunc) error {
	if s.disposed.Load() {
		return ErrDisposed
	}
	if onCreated == nil {
		return ErrNilHandler
	}
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeCount, n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed.Load() {
		return ErrDisposed
	}

	s.world.Lock()
	bounds := s.world.Bounds()
	s.world.Unlock()

	if s.cfg.Scheduler == Global && s.sched == nil {
		s.sched = s.newScheduler()
		go s.runScheduler(s.sched)
	}

	for i := 0; i < n; i++ {
		s.nextID++
		pos := geom.V(
			s.uniform(bounds.Width*0.1, bounds.Width*0.9),
			s.uniform(bounds.Height*0.1, bounds.Height*0.9),
		)
		vel := geom.V(
			s.uniform(-s.cfg.MaxSpeed, s.cfg.MaxSpeed),
			s.uniform(-s.cfg.MaxSpeed, s.cfg.MaxSpeed),
		)
		b := world.NewBall(s.nextID, pos, vel)
		b.OnPositionChange(func(event.PositionChanged) { s.notifications.Add(1) })

		s.world.Add(b)
		s.created.Add(1)
		s.diag.Logf("ball %d created at %v velocity %v", b.ID(), pos, vel)

		onCreated(pos, b)

		if s.cfg.Scheduler == PerEntity {
			w := s.newWorker(b)
			s.workers = append(s.workers, w)
			go s.runWorker(w)
		}
	}

	s.log.Info("balls started", zap.Int("count", n), zap.Int64("total", s.created.Load()))
	return nil
}

func (s *Simulation) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// Dispose stops every tick goroutine, drains and closes the diagnostics sink
// and clears the registry. A second call returns ErrDisposed.
func (s *Simulation) Dispose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.disposed.CompareAndSwap(false, true) {
		return ErrDisposed
	}

	// Joined one after another: worst case is len(workers) tick intervals.
	joinStart := time.Now()
	for _, w := range s.workers {
		<-w.done
	}
	if s.sched != nil {
		<-s.sched.done
	}
	s.log.Info("tick goroutines joined",
		zap.Int("workers", len(s.workers)),
		zap.Duration("took", time.Since(joinStart)),
	)

	snap := s.stats.Snapshot()
	s.diag.Logf("simulation %s disposed: balls=%d ticks=%d bounces=%d collisions=%d notifications=%d",
		s.runID, s.created.Load(), snap.Ticks, snap.Bounces, snap.Collisions, s.notifications.Load())

	var err error
	if s.sink != nil {
		if cerr := s.sink.Close(); cerr != nil {
			err = fmt.Errorf("close diagnostics: %w", cerr)
		}
	}
	s.world.Clear()
	s.finished.Store(time.Now().UnixNano())
	return err
}

// Disposed reports whether Dispose has been called.
func (s *Simulation) Disposed() bool { return s.disposed.Load() }

// States returns a consistent copy of every ball's state.
func (s *Simulation) States() []world.State { return s.world.States() }

// Stats is a summary of one run.
type Stats struct {
	RunID         string
	Scheduler     Scheduler
	Width         float64
	Height        float64
	Balls         int64
	Physics       system.StatsSnapshot
	Notifications uint64
	Diagnostics   diag.Stats
	Started       time.Time
	Finished      time.Time // zero while running
}

func (s *Simulation) Stats() Stats {
	s.world.Lock()
	bounds := s.world.Bounds()
	s.world.Unlock()

	st := Stats{
		RunID:         s.runID.String(),
		Scheduler:     s.cfg.Scheduler,
		Width:         bounds.Width,
		Height:        bounds.Height,
		Balls:         s.created.Load(),
		Physics:       s.stats.Snapshot(),
		Notifications: s.notifications.Load(),
		Started:       s.started,
	}
	if s.sink != nil {
		st.Diagnostics = s.sink.Stats()
	}
	if ns := s.finished.Load(); ns != 0 {
		st.Finished = time.Unix(0, ns)
	}
	return st
}
