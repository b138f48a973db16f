package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseMotion    Phase = iota // 0: advance every ball, reflect off walls
	PhaseCollision              // 1: resolve overlapping pairs
	PhaseReport                 // 2: counters, periodic status
)

func (p Phase) String() string {
	switch p {
	case PhaseMotion:
		return "motion"
	case PhaseCollision:
		return "collision"
	case PhaseReport:
		return "report"
	default:
		return "unknown"
	}
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
