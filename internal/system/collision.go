package system

import (
	"time"

	coresys "github.com/ballsim/arena/internal/core/system"
	"github.com/ballsim/arena/internal/world"
)

// CollisionSystem resolves every unordered overlapping pair at most once per
// tick. Phase 1 (Collision). Candidates come from a uniform grid sized to the
// ball diameter; the exact test is done by the resolver.
type CollisionSystem struct {
	world   *world.Registry
	physics *Physics
	grid    *world.Grid
}

func NewCollisionSystem(w *world.Registry, p *Physics) *CollisionSystem {
	return &CollisionSystem{
		world:   w,
		physics: p,
		grid:    world.NewGrid(w.Diameter()),
	}
}

func (s *CollisionSystem) Phase() coresys.Phase { return coresys.PhaseCollision }

func (s *CollisionSystem) Update(_ time.Duration) {
	balls := s.world.Balls()
	if len(balls) < 2 {
		return
	}
	s.grid.Reset()
	for i, b := range balls {
		s.grid.Insert(i, b.Position())
	}
	s.grid.EachPair(func(i, j int) {
		s.physics.Collide(balls[i], balls[j])
	})
}
