package system

import (
	"time"

	coresys "github.com/ballsim/arena/internal/core/system"
	"github.com/ballsim/arena/internal/world"
)

// MotionSystem advances every ball once per tick. Phase 0 (Motion).
// The scheduler holds the registry lock around the whole Runner tick.
type MotionSystem struct {
	world   *world.Registry
	physics *Physics
}

func NewMotionSystem(w *world.Registry, p *Physics) *MotionSystem {
	return &MotionSystem{world: w, physics: p}
}

func (s *MotionSystem) Phase() coresys.Phase { return coresys.PhaseMotion }

func (s *MotionSystem) Update(_ time.Duration) {
	for _, b := range s.world.Balls() {
		s.physics.Advance(b)
	}
}
