package system

import "sync/atomic"

// Stats counts physics work across every goroutine that ticks balls.
type Stats struct {
	ticks      atomic.Uint64
	bounces    atomic.Uint64
	collisions atomic.Uint64
	separating atomic.Uint64
	clamps     atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Ticks      uint64 // ball advances
	Bounces    uint64 // wall reflections, one per axis hit
	Collisions uint64 // resolved pairs
	Separating uint64 // overlapping pairs skipped because they were moving apart
	Clamps     uint64 // separations pulled back inside the arena
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Ticks:      s.ticks.Load(),
		Bounces:    s.bounces.Load(),
		Collisions: s.collisions.Load(),
		Separating: s.separating.Load(),
		Clamps:     s.clamps.Load(),
	}
}
