package position

import (
	"sync"
	"time"
)

// Source reports the node's current position.
type Source interface {
	Position() (x, y float64)
}

// Static is a position that never changes.
type Static struct {
	X, Y float64
}

// Position implements Source.
func (s Static) Position() (float64, float64) {
	return s.X, s.Y
}

// Linear moves at constant velocity from a start point. It is safe for
// concurrent use.
type Linear struct {
	x0, y0 float64
	vx, vy float64 // units per second

	mu    sync.Mutex
	start time.Time
	now   func() time.Time
}

// NewLinear creates a constant-velocity source starting at (x, y) now.
func NewLinear(x, y, vx, vy float64) *Linear {
	return newLinear(x, y, vx, vy, time.Now)
}

func newLinear(x, y, vx, vy float64, now func() time.Time) *Linear {
	return &Linear{x0: x, y0: y, vx: vx, vy: vy, start: now(), now: now}
}

// Position implements Source.
func (l *Linear) Position() (float64, float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	dt := l.now().Sub(l.start).Seconds()
	return l.x0 + l.vx*dt, l.y0 + l.vy*dt
}

// Reset restarts the trajectory from its start point.
func (l *Linear) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.start = l.now()
}
