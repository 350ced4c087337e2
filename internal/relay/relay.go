// Package relay re-sends every datagram it receives to a fixed set of
// targets, skipping the target it came from. It bridges nodes that cannot
// hear each other directly.
package relay

import (
	"sync/atomic"

	"go.uber.org/zap"

	"localgroup/internal/transport"
	"localgroup/internal/wire"
)

// Relay forwards datagrams over one transport.
type Relay struct {
	tr      transport.Transport
	targets []wire.Addr
	log     *zap.Logger

	forwarded atomic.Uint64
	failed    atomic.Uint64
}

// New creates a relay. Call Start to begin forwarding.
func New(tr transport.Transport, targets []wire.Addr, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{tr: tr, targets: targets, log: logger.Named("relay")}
}

// Start listens on the transport.
func (r *Relay) Start() {
	r.tr.Listen(r.Forward)
}

// Forward sends payload to every target except from.
func (r *Relay) Forward(from wire.Addr, payload []byte) {
	for _, to := range r.targets {
		if to == from || to == r.tr.LocalAddr() {
			continue
		}
		if err := r.tr.Send(to, payload); err != nil {
			r.failed.Add(1)
			r.log.Warn("forward failed", zap.Stringer("to", to), zap.Error(err))
			continue
		}
		r.forwarded.Add(1)
	}
}

// Stats returns the number of forwarded and failed sends.
func (r *Relay) Stats() (forwarded, failed uint64) {
	return r.forwarded.Load(), r.failed.Load()
}

// Close closes the transport.
func (r *Relay) Close() error {
	return r.tr.Close()
}
