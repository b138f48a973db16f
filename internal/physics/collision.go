// Package physics holds the pure collision math. Nothing here touches shared
// state; callers apply the results while holding the world registry lock.
package physics

import (
	"math"

	"github.com/ballsim/arena/internal/core/geom"
)

// Body is the physical state of one ball as seen by the resolver.
type Body struct {
	Pos geom.Vector
	Vel geom.Vector
}

// Bounce reports which walls were hit during a reflection.
type Bounce struct {
	Left, Right, Top, Bottom bool
}

func (b Bounce) Any() bool { return b.Left || b.Right || b.Top || b.Bottom }

// ReflectWalls clamps a candidate position into [0, width-diameter] x
// [0, height-diameter] and negates the velocity component of every axis
// that was out of range. Axes are handled independently so a corner hit
// bounces on both.
func ReflectWalls(pos, vel geom.Vector, width, height, diameter float64) (geom.Vector, geom.Vector, Bounce) {
	var b Bounce
	maxX := math.Max(width-diameter, 0)
	maxY := math.Max(height-diameter, 0)

	switch {
	case pos.X < 0:
		pos.X = 0
		vel.X = -vel.X
		b.Left = true
	case pos.X > maxX:
		pos.X = maxX
		vel.X = -vel.X
		b.Right = true
	}
	switch {
	case pos.Y < 0:
		pos.Y = 0
		vel.Y = -vel.Y
		b.Top = true
	case pos.Y > maxY:
		pos.Y = maxY
		vel.Y = -vel.Y
		b.Bottom = true
	}
	return pos, vel, b
}

// Clamp pulls pos back into the arena without touching velocity. Used after
// positional correction, which may push a ball against a wall.
func Clamp(pos geom.Vector, width, height, diameter float64) (geom.Vector, bool) {
	maxX := math.Max(width-diameter, 0)
	maxY := math.Max(height-diameter, 0)
	clamped := geom.V(math.Min(math.Max(pos.X, 0), maxX), math.Min(math.Max(pos.Y, 0), maxY))
	return clamped, !clamped.Equal(pos)
}

// Contact is the outcome of one resolved pair.
type Contact struct {
	A, B     Body
	Normal   geom.Vector
	Distance float64 // center distance before correction
	Overlap  float64
}

// Outcome classifies a pair test.
type Outcome int

const (
	Apart      Outcome = iota // distance >= diameter
	Separating                // overlapping but already moving apart
	Resolved                  // impulse and correction applied
)

func (o Outcome) String() string {
	switch o {
	case Apart:
		return "apart"
	case Separating:
		return "separating"
	case Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// degenerateNormal is used when two centers coincide and the real normal
// is undefined.
var degenerateNormal = geom.V(1, 0)

// ResolvePair applies an elastic impulse between a and b when they overlap
// and are approaching, then pushes both apart by half the overlap each.
// massA and massB must be positive.
func ResolvePair(a, b Body, diameter, massA, massB float64) (Contact, Outcome) {
	dx := b.Pos.X - a.Pos.X
	dy := b.Pos.Y - a.Pos.Y
	distance := math.Sqrt(dx*dx + dy*dy)
	if distance >= diameter {
		return Contact{A: a, B: b, Distance: distance}, Apart
	}

	n := degenerateNormal
	if distance > 0 {
		n = geom.V(dx/distance, dy/distance)
	}

	dot := b.Vel.Sub(a.Vel).Dot(n)
	if dot > 0 {
		return Contact{A: a, B: b, Normal: n, Distance: distance}, Separating
	}

	j := 2 * dot / (massA + massB)
	a.Vel = a.Vel.Add(n.Scale(j * massB))
	b.Vel = b.Vel.Sub(n.Scale(j * massA))

	overlap := diameter - distance
	push := n.Scale(overlap / 2)
	a.Pos = a.Pos.Sub(push)
	b.Pos = b.Pos.Add(push)

	return Contact{A: a, B: b, Normal: n, Distance: distance, Overlap: overlap}, Resolved
}

// MassOf is the default toy mass model.
func MassOf(diameter float64) float64 { return diameter * diameter }
