package geom

import (
	"fmt"
	"math"
)

// Vector is an immutable 2D value. Every operation returns a new Vector.
type Vector struct {
	X float64
	Y float64
}

func V(x, y float64) Vector { return Vector{X: x, Y: y} }

func (v Vector) Add(o Vector) Vector       { return Vector{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vector) Sub(o Vector) Vector       { return Vector{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vector) Scale(k float64) Vector    { return Vector{X: v.X * k, Y: v.Y * k} }
func (v Vector) Dot(o Vector) float64      { return v.X*o.X + v.Y*o.Y }
func (v Vector) Len() float64              { return math.Hypot(v.X, v.Y) }
func (v Vector) IsZero() bool              { return v.X == 0 && v.Y == 0 }
func (v Vector) Equal(o Vector) bool       { return v.X == o.X && v.Y == o.Y }
func (v Vector) Distance(o Vector) float64 { return o.Sub(v).Len() }

// Unit returns v scaled to length 1, or the zero vector when v has no length.
func (v Vector) Unit() Vector {
	l := v.Len()
	if l == 0 {
		return Vector{}
	}
	return Vector{X: v.X / l, Y: v.Y / l}
}

func (v Vector) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", v.X, v.Y)
}
