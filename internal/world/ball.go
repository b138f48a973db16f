package world

import (
	"github.com/ballsim/arena/internal/core/event"
	"github.com/ballsim/arena/internal/core/geom"
)

// Ball is one simulated entity. Its position and velocity are guarded by the
// owning Registry's lock: only the ball's own motion worker writes them, but
// other workers read them during collision scans, so every access below
// (except ID and OnPositionChange) requires the registry lock to be held.
type Ball struct {
	id  int64
	pos geom.Vector
	vel geom.Vector

	moved event.Feed[event.PositionChanged]
}

func NewBall(id int64, pos, vel geom.Vector) *Ball {
	return &Ball{id: id, pos: pos, vel: vel}
}

func (b *Ball) ID() int64 { return b.id }

func (b *Ball) Position() geom.Vector { return b.pos }
func (b *Ball) Velocity() geom.Vector { return b.vel }

func (b *Ball) SetVelocity(v geom.Vector) { b.vel = v }

// Move shifts the ball by delta and notifies subscribers, even for a zero delta.
func (b *Ball) Move(delta geom.Vector) {
	b.MoveTo(b.pos.Add(delta))
}

// MoveTo places the ball at p and notifies subscribers.
func (b *Ball) MoveTo(p geom.Vector) {
	b.pos = p
	b.moved.Emit(event.PositionChanged{BallID: b.id, Position: p})
}

// OnPositionChange subscribes fn to position writes. fn runs synchronously on
// the physics goroutine with the registry lock held: it must not block and
// must not call back into the registry.
func (b *Ball) OnPositionChange(fn func(event.PositionChanged)) (unsubscribe func()) {
	return b.moved.Subscribe(fn)
}

// State is a detached copy of a ball's physical state.
type State struct {
	ID       int64
	Position geom.Vector
	Velocity geom.Vector
}

func (b *Ball) state() State {
	return State{ID: b.id, Position: b.pos, Velocity: b.vel}
}
