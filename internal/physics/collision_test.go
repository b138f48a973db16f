package physics

import (
	"math"
	"testing"

	"github.com/ballsim/arena/internal/core/geom"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) <= eps }

func nearVec(a, b geom.Vector) bool { return near(a.X, b.X) && near(a.Y, b.Y) }

func TestReflectWallsLeft(t *testing.T) {
	pos, vel, b := ReflectWalls(geom.V(-3, 50), geom.V(-4, 1), 200, 100, 20)
	if pos.X != 0 {
		t.Fatalf("x = %v, want exactly 0", pos.X)
	}
	if vel.X != 4 || vel.Y != 1 {
		t.Fatalf("vel = %v, want (4, 1)", vel)
	}
	if !b.Left || b.Right || b.Top || b.Bottom {
		t.Fatalf("bounce = %+v, want left only", b)
	}
}

func TestReflectWallsFarSideUsesDiameter(t *testing.T) {
	pos, vel, b := ReflectWalls(geom.V(50, 85), geom.V(0, 3), 200, 100, 20)
	if pos.Y != 80 {
		t.Fatalf("y = %v, want 80 (height - diameter)", pos.Y)
	}
	if vel.Y != -3 {
		t.Fatalf("vy = %v, want -3", vel.Y)
	}
	if !b.Bottom {
		t.Fatalf("expected bottom bounce")
	}
}

func TestReflectWallsCorner(t *testing.T) {
	pos, vel, b := ReflectWalls(geom.V(190, -1), geom.V(5, -5), 200, 100, 20)
	if !pos.Equal(geom.V(180, 0)) {
		t.Fatalf("pos = %v, want (180, 0)", pos)
	}
	if !vel.Equal(geom.V(-5, 5)) {
		t.Fatalf("vel = %v, want (-5, 5)", vel)
	}
	if !b.Right || !b.Top {
		t.Fatalf("bounce = %+v, want right and top", b)
	}
}

func TestReflectWallsInside(t *testing.T) {
	pos, vel, b := ReflectWalls(geom.V(10, 10), geom.V(1, 1), 200, 100, 20)
	if b.Any() {
		t.Fatalf("unexpected bounce %+v", b)
	}
	if !pos.Equal(geom.V(10, 10)) || !vel.Equal(geom.V(1, 1)) {
		t.Fatalf("state changed: pos=%v vel=%v", pos, vel)
	}
}

func TestResolvePairHeadOnSwap(t *testing.T) {
	const d = 20.0
	m := MassOf(d)
	a := Body{Pos: geom.V(0, 0), Vel: geom.V(1, 0)}
	b := Body{Pos: geom.V(d/2, 0), Vel: geom.V(-1, 0)}

	c, out := ResolvePair(a, b, d, m, m)
	if out != Resolved {
		t.Fatalf("outcome = %v, want resolved", out)
	}
	if !nearVec(c.A.Vel, geom.V(-1, 0)) {
		t.Fatalf("a.vel = %v, want (-1, 0)", c.A.Vel)
	}
	if !nearVec(c.B.Vel, geom.V(1, 0)) {
		t.Fatalf("b.vel = %v, want (1, 0)", c.B.Vel)
	}
	if dist := c.A.Pos.Distance(c.B.Pos); dist < d-eps {
		t.Fatalf("post-resolution distance = %v, want >= %v", dist, d)
	}
	if !near(c.Overlap, d/2) {
		t.Fatalf("overlap = %v, want %v", c.Overlap, d/2)
	}
}

func TestResolvePairSwapsNormalComponentOnly(t *testing.T) {
	const d = 20.0
	m := MassOf(d)
	// contact along the diagonal, each ball also carries tangential motion
	a := Body{Pos: geom.V(0, 0), Vel: geom.V(2, 0)}
	b := Body{Pos: geom.V(10, 10), Vel: geom.V(0, -1)}

	c, out := ResolvePair(a, b, d, m, m)
	if out != Resolved {
		t.Fatalf("outcome = %v, want resolved", out)
	}
	n := geom.V(1, 1).Unit()
	tang := geom.V(-n.Y, n.X)

	if !near(c.A.Vel.Dot(n), b.Vel.Dot(n)) || !near(c.B.Vel.Dot(n), a.Vel.Dot(n)) {
		t.Fatalf("normal components not swapped: a=%v b=%v", c.A.Vel, c.B.Vel)
	}
	if !near(c.A.Vel.Dot(tang), a.Vel.Dot(tang)) || !near(c.B.Vel.Dot(tang), b.Vel.Dot(tang)) {
		t.Fatalf("tangential components changed: a=%v b=%v", c.A.Vel, c.B.Vel)
	}
	// momentum is conserved with equal masses
	before := a.Vel.Add(b.Vel)
	after := c.A.Vel.Add(c.B.Vel)
	if !nearVec(before, after) {
		t.Fatalf("momentum %v -> %v", before, after)
	}
	if dist := c.A.Pos.Distance(c.B.Pos); dist < d-eps {
		t.Fatalf("distance after correction = %v", dist)
	}
}

func TestResolvePairApart(t *testing.T) {
	a := Body{Pos: geom.V(0, 0), Vel: geom.V(1, 0)}
	b := Body{Pos: geom.V(20, 0), Vel: geom.V(-1, 0)}
	c, out := ResolvePair(a, b, 20, 400, 400)
	if out != Apart {
		t.Fatalf("outcome = %v, want apart (touching is not a collision)", out)
	}
	if c.A != a || c.B != b {
		t.Fatalf("bodies modified on apart")
	}
}

func TestResolvePairSeparating(t *testing.T) {
	a := Body{Pos: geom.V(0, 0), Vel: geom.V(-1, 0)}
	b := Body{Pos: geom.V(5, 0), Vel: geom.V(1, 0)}
	c, out := ResolvePair(a, b, 20, 400, 400)
	if out != Separating {
		t.Fatalf("outcome = %v, want separating", out)
	}
	if c.A != a || c.B != b {
		t.Fatalf("bodies modified on separating pair")
	}
}

func TestResolvePairCoincidentCenters(t *testing.T) {
	a := Body{Pos: geom.V(50, 50), Vel: geom.V(1, 1)}
	b := Body{Pos: geom.V(50, 50), Vel: geom.V(1, 1)}
	c, out := ResolvePair(a, b, 20, 400, 400)
	if out != Resolved {
		t.Fatalf("outcome = %v, want resolved", out)
	}
	for _, v := range []geom.Vector{c.A.Pos, c.B.Pos, c.A.Vel, c.B.Vel} {
		if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) {
			t.Fatalf("non-finite result: %+v", c)
		}
	}
	if dist := c.A.Pos.Distance(c.B.Pos); dist < 20-eps {
		t.Fatalf("coincident balls not separated: distance %v", dist)
	}
}

func TestClamp(t *testing.T) {
	p, moved := Clamp(geom.V(-5, 90), 200, 100, 20)
	if !moved || !p.Equal(geom.V(0, 80)) {
		t.Fatalf("Clamp = %v moved=%v, want (0, 80) true", p, moved)
	}
	p, moved = Clamp(geom.V(5, 5), 200, 100, 20)
	if moved || !p.Equal(geom.V(5, 5)) {
		t.Fatalf("Clamp moved an in-bounds point: %v", p)
	}
}
