package relay

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"localgroup/internal/transport"
	"localgroup/internal/wire"
)

func TestRelay_ForwardsToOthers(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := transport.NewHub()
	a, b, c := hub.Join(), hub.Join(), hub.Join()
	relayEP := hub.Join()

	// a, b and c only hear the relay
	hub.SetReachable(func(from, to wire.Addr) bool {
		return from == relayEP.LocalAddr() || to == relayEP.LocalAddr()
	})

	var gotA, gotB, gotC atomic.Int32
	a.Listen(func(wire.Addr, []byte) { gotA.Add(1) })
	b.Listen(func(from wire.Addr, _ []byte) {
		if from == relayEP.LocalAddr() {
			gotB.Add(1)
		}
	})
	c.Listen(func(wire.Addr, []byte) { gotC.Add(1) })
	defer a.Close()
	defer b.Close()
	defer c.Close()

	r := New(relayEP, []wire.Addr{a.LocalAddr(), b.LocalAddr(), c.LocalAddr(), relayEP.LocalAddr()}, nil)
	r.Start()
	defer r.Close()

	require.NoError(t, a.Send(relayEP.LocalAddr(), []byte("hello")))

	require.Eventually(t, func() bool { return gotB.Load() == 1 && gotC.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, gotA.Load(), "sender does not get its own datagram back")

	fwd, failed := r.Stats()
	assert.Equal(t, uint64(2), fwd)
	assert.Zero(t, failed)
}
