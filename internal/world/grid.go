package world

import (
	"math"

	"github.com/ballsim/arena/internal/core/geom"
)

// Grid is a uniform-cell broad phase for pair collision. With the cell size
// set to the ball diameter, two balls closer than one diameter always sit in
// the same or adjacent cells, so a 3x3 neighbourhood scan finds every
// candidate pair. Rebuilt each tick by the caller; not safe for concurrent use.
type Grid struct {
	cellSize float64
	cells    map[cellKey][]int
	keys     []cellKey // keys[i] is the cell of item i
}

type cellKey struct {
	cx int32
	cy int32
}

func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]int, 64),
	}
}

func (g *Grid) key(p geom.Vector) cellKey {
	return cellKey{
		cx: int32(math.Floor(p.X / g.cellSize)),
		cy: int32(math.Floor(p.Y / g.cellSize)),
	}
}

// Reset empties the grid, keeping allocated cell slices.
func (g *Grid) Reset() {
	for k, v := range g.cells {
		g.cells[k] = v[:0]
	}
	g.keys = g.keys[:0]
}

// Insert places item idx at p. Items must be inserted as 0, 1, 2, ...
func (g *Grid) Insert(idx int, p geom.Vector) {
	k := g.key(p)
	g.cells[k] = append(g.cells[k], idx)
	g.keys = append(g.keys, k)
}

// Nearby returns every item in the 3x3 cell neighbourhood of p.
// Caller does the exact distance check.
func (g *Grid) Nearby(p geom.Vector) []int {
	c := g.key(p)
	var result []int
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			result = append(result, g.cells[cellKey{cx: c.cx + dx, cy: c.cy + dy}]...)
		}
	}
	return result
}

// EachPair calls fn once for every unordered candidate pair (i < j).
func (g *Grid) EachPair(fn func(i, j int)) {
	for i, c := range g.keys {
		for dx := int32(-1); dx <= 1; dx++ {
			for dy := int32(-1); dy <= 1; dy++ {
				for _, j := range g.cells[cellKey{cx: c.cx + dx, cy: c.cy + dy}] {
					if j > i {
						fn(i, j)
					}
				}
			}
		}
	}
}
