package event

import "github.com/ballsim/arena/internal/core/geom"

// PositionChanged is fired by a ball every time its position is written:
// normal advance, wall clamp, or collision separation.
type PositionChanged struct {
	BallID   int64
	Position geom.Vector
}
