package proximity

import (
	"slices"

	"localgroup/internal/element"
)

// Tracker holds the nearby element set.
type Tracker struct {
	radiusSq float64
	nearby   map[uint8]struct{}
}

// NewTracker creates a tracker for the given proximity radius.
func NewTracker(radius float64) *Tracker {
	return &Tracker{
		radiusSq: radius * radius,
		nearby:   make(map[uint8]struct{}),
	}
}

// Tick recomputes the nearby set for position pos over count elements,
// using locate to find each element. onEnter is called once for every
// element that was not nearby before this tick and is now.
func (t *Tracker) Tick(pos element.Point, count int, locate func(uint8) element.Point, onEnter func(uint8)) {
	for i := 0; i < count; i++ {
		e := uint8(i)
		d := pos.DistSq(locate(e))
		_, was := t.nearby[e]
		switch {
		case d < t.radiusSq && !was:
			t.nearby[e] = struct{}{}
			if onEnter != nil {
				onEnter(e)
			}
		case d >= t.radiusSq && was:
			delete(t.nearby, e)
		}
	}
}

// Contains reports whether e is nearby.
func (t *Tracker) Contains(e uint8) bool {
	_, ok := t.nearby[e]
	return ok
}

// Nearby returns the nearby element IDs in ascending order.
func (t *Tracker) Nearby() []uint8 {
	ids := make([]uint8, 0, len(t.nearby))
	for e := range t.nearby {
		ids = append(ids, e)
	}
	slices.Sort(ids)
	return ids
}
