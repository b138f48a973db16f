package sim

import (
	"time"

	coresys "github.com/ballsim/arena/internal/core/system"
	"github.com/ballsim/arena/internal/system"
	"go.uber.org/zap"
)

// scheduler is the single-goroutine alternative to per-ball workers. One
// lock acquisition per tick covers motion for every ball and one pass over
// unordered pairs.
type scheduler struct {
	runner *coresys.Runner
	done   chan struct{}
}

func (s *Simulation) newScheduler() *scheduler {
	runner := coresys.NewRunner()
	runner.Register(system.NewMotionSystem(s.world, s.physics))
	runner.Register(system.NewCollisionSystem(s.world, s.physics))
	runner.Register(system.NewReportSystem(s.stats, s.log, s.cfg.ReportEvery))
	return &scheduler{runner: runner, done: make(chan struct{})}
}

func (s *Simulation) runScheduler(sc *scheduler) {
	defer close(sc.done)
	s.log.Debug("scheduler started", zap.Int("systems", sc.runner.Len()))

	for !s.disposed.Load() {
		s.world.Lock()
		sc.runner.Tick(s.cfg.TickInterval)
		s.world.Unlock()
		time.Sleep(s.cfg.TickInterval)
	}

	s.diag.Logf("scheduler stopped")
	s.log.Debug("scheduler stopped")
}
