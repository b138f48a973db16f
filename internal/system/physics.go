package system

import (
	"strings"

	"github.com/ballsim/arena/internal/core/geom"
	"github.com/ballsim/arena/internal/physics"
	"github.com/ballsim/arena/internal/world"
)

// Recorder receives diagnostic lines. Implemented by diag.Sink.
type Recorder interface {
	Logf(format string, args ...any)
}

type nopRecorder struct{}

func (nopRecorder) Logf(string, ...any) {}

// Physics applies resolver results to registry balls and reports what
// happened. Every method must be called with the registry lock held.
type Physics struct {
	world *world.Registry
	diag  Recorder
	stats *Stats
}

func NewPhysics(w *world.Registry, diag Recorder, stats *Stats) *Physics {
	if diag == nil {
		diag = nopRecorder{}
	}
	if stats == nil {
		stats = &Stats{}
	}
	return &Physics{world: w, diag: diag, stats: stats}
}

func (p *Physics) Stats() *Stats { return p.stats }

// Advance moves b by one tick of its velocity, reflecting off walls.
func (p *Physics) Advance(b *world.Ball) {
	bounds := p.world.Bounds()
	candidate := b.Position().Add(b.Velocity())
	pos, vel, bounce := physics.ReflectWalls(candidate, b.Velocity(), bounds.Width, bounds.Height, p.world.Diameter())
	if bounce.Any() {
		p.countBounce(bounce)
		p.diag.Logf("ball %d bounced off %s wall at %v, velocity %v", b.ID(), wallNames(bounce), pos, vel)
	}
	b.SetVelocity(vel)
	b.MoveTo(pos)
	p.stats.ticks.Add(1)
	p.diag.Logf("ball %d moved to %v velocity %v", b.ID(), pos, vel)
}

// Collide resolves the pair (a, b). Positions pushed outside the arena by the
// separation are clamped back in the same call.
func (p *Physics) Collide(a, b *world.Ball) physics.Outcome {
	mass := p.world.Mass()
	c, out := physics.ResolvePair(
		physics.Body{Pos: a.Position(), Vel: a.Velocity()},
		physics.Body{Pos: b.Position(), Vel: b.Velocity()},
		p.world.Diameter(), mass, mass,
	)
	switch out {
	case physics.Separating:
		p.stats.separating.Add(1)
		return out
	case physics.Apart:
		return out
	}

	a.SetVelocity(c.A.Vel)
	b.SetVelocity(c.B.Vel)
	a.MoveTo(p.confine(c.A.Pos))
	b.MoveTo(p.confine(c.B.Pos))
	p.stats.collisions.Add(1)
	p.diag.Logf("collision ball %d <-> ball %d: velocities %v / %v", a.ID(), b.ID(), c.A.Vel, c.B.Vel)
	return out
}

func (p *Physics) confine(pos geom.Vector) geom.Vector {
	bounds := p.world.Bounds()
	clamped, moved := physics.Clamp(pos, bounds.Width, bounds.Height, p.world.Diameter())
	if moved {
		p.stats.clamps.Add(1)
	}
	return clamped
}

func (p *Physics) countBounce(b physics.Bounce) {
	for _, hit := range []bool{b.Left, b.Right, b.Top, b.Bottom} {
		if hit {
			p.stats.bounces.Add(1)
		}
	}
}

func wallNames(b physics.Bounce) string {
	names := make([]string, 0, 2)
	if b.Left {
		names = append(names, "left")
	}
	if b.Right {
		names = append(names, "right")
	}
	if b.Top {
		names = append(names, "top")
	}
	if b.Bottom {
		names = append(names, "bottom")
	}
	return strings.Join(names, "+")
}
