package transport

import (
	"errors"

	"localgroup/internal/wire"
)

// ErrClosed is returned by sends on a closed transport.
var ErrClosed = errors.New("transport: closed")

// Handler receives one inbound datagram. The payload is owned by the
// handler.
type Handler func(from wire.Addr, payload []byte)

// Transport is a datagram endpoint.
type Transport interface {
	Send(to wire.Addr, payload []byte) error
	Broadcast(payload []byte) error
	LocalAddr() wire.Addr
	// Listen starts delivering inbound datagrams to h. It must be called
	// at most once.
	Listen(h Handler)
	Close() error
}
