package sim

import (
	"time"

	"github.com/ballsim/arena/internal/world"
	"go.uber.org/zap"
)

// worker ticks a single ball on its own goroutine.
//
// Each tick holds the registry lock for the whole advance-and-scan, so a
// collision resolved here (including the positional correction) is visible
// before the partner's own worker scans: the partner then sees the pair at
// distance >= diameter and skips it. A separating pair only skips that pair;
// the scan continues with the remaining balls.
type worker struct {
	ball *world.Ball
	done chan struct{}
	log  *zap.Logger
}

func (s *Simulation) newWorker(b *world.Ball) *worker {
	return &worker{
		ball: b,
		done: make(chan struct{}),
		log:  s.log.With(zap.Int64("ball", b.ID())),
	}
}

// runWorker loops until the disposed flag is observed. A sleep in progress is
// never interrupted, so a worker exits at most one tick after Dispose.
func (s *Simulation) runWorker(w *worker) {
	defer close(w.done)
	w.log.Debug("worker started")

	for !s.disposed.Load() {
		s.tickBall(w.ball)
		time.Sleep(s.cfg.TickInterval)
	}

	s.diag.Logf("ball %d worker stopped", w.ball.ID())
	w.log.Debug("worker stopped")
}

func (s *Simulation) tickBall(b *world.Ball) {
	s.world.Lock()
	defer s.world.Unlock()

	s.physics.Advance(b)
	for _, other := range s.world.Balls() {
		if other == b {
			continue
		}
		s.physics.Collide(b, other)
	}
}
