package transport

import (
	"sync"
	"sync/atomic"

	"localgroup/internal/wire"
)

const inboxSize = 256

// Reachable reports whether a datagram from one address can reach another.
type Reachable func(from, to wire.Addr) bool

type packet struct {
	from    wire.Addr
	payload []byte
}

// Hub is an in-memory datagram exchange. Endpoint addresses are opaque
// handles that print as 10.0.0.0/8 addresses.
type Hub struct {
	mu        sync.RWMutex
	endpoints map[wire.Addr]*Endpoint
	next      uint32
	reachable Reachable

	delivered atomic.Uint64
	lost      atomic.Uint64
}

// NewHub creates an empty hub where every endpoint reaches every other.
func NewHub() *Hub {
	return &Hub{
		endpoints: make(map[wire.Addr]*Endpoint),
		next:      0x0a000001,
	}
}

// SetReachable installs a reachability predicate. nil means fully connected.
func (h *Hub) SetReachable(fn Reachable) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reachable = fn
}

// Join attaches a new endpoint.
func (h *Hub) Join() *Endpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	ep := &Endpoint{
		hub:   h,
		addr:  wire.Addr(h.next),
		inbox: make(chan packet, inboxSize),
		done:  make(chan struct{}),
	}
	h.next++
	h.endpoints[ep.addr] = ep
	return ep
}

// Stats returns the number of delivered and lost datagrams.
func (h *Hub) Stats() (delivered, lost uint64) {
	return h.delivered.Load(), h.lost.Load()
}

func (h *Hub) deliver(from, to wire.Addr, payload []byte) {
	h.mu.RLock()
	ep, ok := h.endpoints[to]
	reach := h.reachable
	h.mu.RUnlock()

	if !ok || (reach != nil && !reach(from, to)) {
		h.lost.Add(1)
		return
	}
	ep.enqueue(packet{from: from, payload: append([]byte(nil), payload...)})
}

func (h *Hub) broadcast(from wire.Addr, payload []byte) {
	h.mu.RLock()
	targets := make([]wire.Addr, 0, len(h.endpoints))
	for addr := range h.endpoints {
		if addr != from {
			targets = append(targets, addr)
		}
	}
	h.mu.RUnlock()

	for _, to := range targets {
		h.deliver(from, to, payload)
	}
}

func (h *Hub) leave(addr wire.Addr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.endpoints, addr)
}

// Endpoint is one node's attachment to a Hub. It implements Transport.
type Endpoint struct {
	hub   *Hub
	addr  wire.Addr
	inbox chan packet
	done  chan struct{}

	closeOnce sync.Once
	closed    atomic.Bool
	wg        sync.WaitGroup
}

func (e *Endpoint) enqueue(p packet) {
	select {
	case <-e.done:
		e.hub.lost.Add(1)
	case e.inbox <- p:
		e.hub.delivered.Add(1)
	default:
		e.hub.lost.Add(1)
	}
}

// LocalAddr implements Transport.
func (e *Endpoint) LocalAddr() wire.Addr { return e.addr }

// Send implements Transport.
func (e *Endpoint) Send(to wire.Addr, payload []byte) error {
	if e.closed.Load() {
		return ErrClosed
	}
	e.hub.deliver(e.addr, to, payload)
	return nil
}

// Broadcast implements Transport.
func (e *Endpoint) Broadcast(payload []byte) error {
	if e.closed.Load() {
		return ErrClosed
	}
	e.hub.broadcast(e.addr, payload)
	return nil
}

// Listen implements Transport.
func (e *Endpoint) Listen(h Handler) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			select {
			case <-e.done:
				return
			case p := <-e.inbox:
				h(p.from, p.payload)
			}
		}
	}()
}

// Close implements Transport.
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.hub.leave(e.addr)
		close(e.done)
	})
	e.wg.Wait()
	return nil
}
