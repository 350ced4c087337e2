package proximity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"localgroup/internal/element"
)

func TestTracker_EdgeTriggered(t *testing.T) {
	locs := []element.Point{{X: 0, Y: 0}, {X: 100, Y: 0}}
	locate := func(e uint8) element.Point { return locs[e] }

	tr := NewTracker(8)
	var entered []uint8
	onEnter := func(e uint8) { entered = append(entered, e) }

	// enter element 0
	tr.Tick(element.Point{X: 1, Y: 1}, len(locs), locate, onEnter)
	assert.Equal(t, []uint8{0}, entered)
	assert.True(t, tr.Contains(0))

	// staying in range fires nothing
	tr.Tick(element.Point{X: 2, Y: 2}, len(locs), locate, onEnter)
	assert.Equal(t, []uint8{0}, entered)

	// leave, then move next to element 1
	tr.Tick(element.Point{X: 50, Y: 0}, len(locs), locate, onEnter)
	assert.Empty(t, tr.Nearby())
	tr.Tick(element.Point{X: 99, Y: 0}, len(locs), locate, onEnter)
	assert.Equal(t, []uint8{0, 1}, entered)

	// re-entry fires again
	tr.Tick(element.Point{X: 0, Y: 0}, len(locs), locate, onEnter)
	assert.Equal(t, []uint8{0, 1, 0}, entered)
	assert.Equal(t, []uint8{0}, tr.Nearby())
}

func TestTracker_RadiusIsExclusive(t *testing.T) {
	locs := []element.Point{{X: 0, Y: 0}}
	locate := func(e uint8) element.Point { return locs[e] }

	tests := []struct {
		name   string
		pos    element.Point
		nearby bool
	}{
		{"inside", element.Point{X: 7.99, Y: 0}, true},
		{"on boundary", element.Point{X: 8, Y: 0}, false},
		{"diagonal outside", element.Point{X: 6, Y: 6}, false},
		{"diagonal inside", element.Point{X: 5, Y: 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(8)
			tr.Tick(tt.pos, 1, locate, nil)
			assert.Equal(t, tt.nearby, tr.Contains(0))
		})
	}
}

func TestTracker_NearbySorted(t *testing.T) {
	locs := []element.Point{{X: 3}, {X: 1}, {X: 2}, {X: 500}}
	tr := NewTracker(10)
	tr.Tick(element.Point{}, len(locs), func(e uint8) element.Point { return locs[e] }, nil)

	assert.Equal(t, []uint8{0, 1, 2}, tr.Nearby())
}
