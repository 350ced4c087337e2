package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"localgroup/internal/wire"
)

type inbox struct {
	mu   sync.Mutex
	pkts []packet
}

func (in *inbox) handle(from wire.Addr, payload []byte) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.pkts = append(in.pkts, packet{from: from, payload: payload})
}

func (in *inbox) len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.pkts)
}

func (in *inbox) first() packet {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.pkts[0]
}

func TestHub_SendAndBroadcast(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	a, b, c := hub.Join(), hub.Join(), hub.Join()
	var inA, inB, inC inbox
	a.Listen(inA.handle)
	b.Listen(inB.handle)
	c.Listen(inC.handle)
	defer a.Close()
	defer b.Close()
	defer c.Close()

	assert.Equal(t, "10.0.0.1", a.LocalAddr().String())

	require.NoError(t, a.Send(b.LocalAddr(), []byte("hi")))
	require.Eventually(t, func() bool { return inB.len() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, a.LocalAddr(), inB.first().from)
	assert.Equal(t, []byte("hi"), inB.first().payload)

	require.NoError(t, c.Broadcast([]byte("all")))
	require.Eventually(t, func() bool { return inA.len() == 1 && inB.len() == 2 }, time.Second, time.Millisecond)
	assert.Zero(t, inC.len(), "broadcast does not loop back")
}

func TestHub_Reachability(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	a, b := hub.Join(), hub.Join()
	var inB inbox
	b.Listen(inB.handle)
	defer a.Close()
	defer b.Close()

	hub.SetReachable(func(from, to wire.Addr) bool { return false })
	require.NoError(t, a.Send(b.LocalAddr(), []byte("lost")))
	require.NoError(t, a.Send(wire.Addr(12345), []byte("nobody")))

	_, lost := hub.Stats()
	assert.Equal(t, uint64(2), lost)

	hub.SetReachable(nil)
	require.NoError(t, a.Send(b.LocalAddr(), []byte("found")))
	require.Eventually(t, func() bool { return inB.len() == 1 }, time.Second, time.Millisecond)
}

func TestHub_Close(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	a, b := hub.Join(), hub.Join()
	a.Listen(func(wire.Addr, []byte) {})

	require.NoError(t, a.Close())
	require.NoError(t, a.Close(), "close is idempotent")
	assert.ErrorIs(t, a.Send(b.LocalAddr(), nil), ErrClosed)
	assert.ErrorIs(t, a.Broadcast(nil), ErrClosed)

	require.NoError(t, b.Send(a.LocalAddr(), []byte("x")))
	_, lost := hub.Stats()
	assert.Equal(t, uint64(1), lost)
	require.NoError(t, b.Close())
}
