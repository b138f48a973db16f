package world

import "sync"

// Bounds is the arena size. Ball positions are top-left anchored, so a ball
// stays inside while 0 <= x <= Width-diameter and 0 <= y <= Height-diameter.
type Bounds struct {
	Width  float64
	Height float64
}

// Registry is the shared world: the ball list, arena bounds and the ball
// constants. One mutex guards the list and every Ball inside it. Motion code
// takes the lock through Lock/Unlock and holds it for a full tick; the
// accessors without their own locking document that requirement.
type Registry struct {
	mu       sync.Mutex
	bounds   Bounds
	diameter float64
	mass     float64
	balls    []*Ball
}

func NewRegistry(bounds Bounds, diameter, mass float64) *Registry {
	return &Registry{
		bounds:   bounds,
		diameter: diameter,
		mass:     mass,
		balls:    make([]*Ball, 0, 64),
	}
}

func (r *Registry) Lock()   { r.mu.Lock() }
func (r *Registry) Unlock() { r.mu.Unlock() }

// SetBounds stores the arena size. Meant to be called before balls start moving.
func (r *Registry) SetBounds(b Bounds) {
	r.mu.Lock()
	r.bounds = b
	r.mu.Unlock()
}

// Bounds returns the arena size. Caller must hold the lock.
func (r *Registry) Bounds() Bounds { return r.bounds }

// Diameter and Mass are fixed for the registry's lifetime.
func (r *Registry) Diameter() float64 { return r.diameter }
func (r *Registry) Mass() float64     { return r.mass }

// Add appends a ball. Insertion order is preserved.
func (r *Registry) Add(b *Ball) {
	r.mu.Lock()
	r.balls = append(r.balls, b)
	r.mu.Unlock()
}

// Balls returns the live ball list. Caller must hold the lock for as long as
// it uses the slice or any ball in it.
func (r *Registry) Balls() []*Ball { return r.balls }

// Len returns the number of registered balls.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.balls)
}

// States copies every ball's state under the lock.
func (r *Registry) States() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.balls))
	for i, b := range r.balls {
		out[i] = b.state()
	}
	return out
}

// Clear drops every ball. Called once during shutdown.
func (r *Registry) Clear() {
	r.mu.Lock()
	clear(r.balls)
	r.balls = r.balls[:0]
	r.mu.Unlock()
}
