package gossip

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestScheduler_FiresAllTasks(t *testing.T) {
	defer goleak.VerifyNone(t)

	var adverts, prunes, extra atomic.Int32
	s := NewScheduler(5*time.Millisecond, 10*time.Millisecond)
	s.AddTask(5*time.Millisecond, func() { extra.Add(1) })

	direct := func(fn func()) { fn() }
	s.Start(direct, func() { adverts.Add(1) }, func() { prunes.Add(1) })

	require.Eventually(t, func() bool {
		return adverts.Load() >= 2 && prunes.Load() >= 1 && extra.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()

	after := adverts.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, adverts.Load(), "no ticks after Stop")
}

func TestScheduler_DefaultIntervals(t *testing.T) {
	s := NewScheduler(0, -1)
	defer s.Stop()

	assert.Equal(t, time.Second, s.advertInterval)
	assert.Equal(t, 3*time.Second, s.pruneInterval)
}
