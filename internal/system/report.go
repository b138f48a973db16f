package system

import (
	"time"

	coresys "github.com/ballsim/arena/internal/core/system"
	"go.uber.org/zap"
)

// ReportSystem logs physics counters every interval ticks. Phase 2 (Report).
type ReportSystem struct {
	stats     *Stats
	log       *zap.Logger
	interval  int
	tickCount int
}

func NewReportSystem(stats *Stats, log *zap.Logger, intervalTicks int) *ReportSystem {
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	return &ReportSystem{stats: stats, log: log, interval: intervalTicks}
}

func (s *ReportSystem) Phase() coresys.Phase { return coresys.PhaseReport }

func (s *ReportSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	snap := s.stats.Snapshot()
	s.log.Debug("physics counters",
		zap.Uint64("ticks", snap.Ticks),
		zap.Uint64("bounces", snap.Bounces),
		zap.Uint64("collisions", snap.Collisions),
		zap.Uint64("separating", snap.Separating),
	)
}
