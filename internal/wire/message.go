package wire

import (
	"encoding/binary"
	"net/netip"

	"localgroup/internal/clock"
)

// Kind is the leading tag byte of every datagram.
type Kind uint8

const (
	KindAdvert      Kind = 1
	KindRequestData Kind = 2
	KindSendData    Kind = 3
	KindAck         Kind = 4
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindAdvert:
		return "ADVERT"
	case KindRequestData:
		return "REQUEST_DATA"
	case KindSendData:
		return "SEND_DATA"
	case KindAck:
		return "ACK"
	default:
		return "UNKNOWN"
	}
}

// Addr is a 4-byte node address as carried in advertisements.
// For IP transports it holds an IPv4 address in network byte order.
type Addr uint32

// AddrFrom4 builds an Addr from an IPv4 address.
func AddrFrom4(ip netip.Addr) (Addr, bool) {
	if !ip.Is4() && !ip.Is4In6() {
		return 0, false
	}
	b := ip.Unmap().As4()
	return Addr(binary.BigEndian.Uint32(b[:])), true
}

// IP returns the address as an IPv4 netip.Addr.
func (a Addr) IP() netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(a))
	return netip.AddrFrom4(b)
}

// String returns the dotted-quad form of the address.
func (a Addr) String() string {
	return a.IP().String()
}

// Entry is one (element, version, round) tuple of an advertisement.
type Entry struct {
	Element uint8
	Stamp   clock.Stamp
}

// Message is one of Advert, RequestData, SendData or Ack.
type Message interface {
	Kind() Kind
	// SenderID returns the node ID of the originator.
	SenderID() uint32

	appendTo(b []byte) []byte
	size() int
	accept(from Addr, h Handler)
}

// Handler receives decoded messages. Implementations must handle every kind.
type Handler interface {
	HandleAdvert(from Addr, m *Advert)
	HandleRequestData(from Addr, m *RequestData)
	HandleSendData(from Addr, m *SendData)
	HandleAck(from Addr, m *Ack)
}

// Dispatch routes m to the Handler method for its kind.
func Dispatch(from Addr, m Message, h Handler) {
	m.accept(from, h)
}

// Advert is the periodic broadcast of a node's nearby elements.
type Advert struct {
	Sender  uint32
	Address Addr
	Entries []Entry
}

// RequestData asks a peer for its record of one element.
type RequestData struct {
	Sender  uint32
	Element uint8
}

// SendData carries a full element record in answer to RequestData.
type SendData struct {
	Sender  uint32
	Element uint8
	X, Y    float32
	Stamp   clock.Stamp
	Group   []uint32
}

// Ack confirms that the sender adopted the element record it was sent.
type Ack struct {
	Sender  uint32
	Element uint8
}

func (*Advert) Kind() Kind      { return KindAdvert }
func (*RequestData) Kind() Kind { return KindRequestData }
func (*SendData) Kind() Kind    { return KindSendData }
func (*Ack) Kind() Kind         { return KindAck }

func (m *Advert) SenderID() uint32      { return m.Sender }
func (m *RequestData) SenderID() uint32 { return m.Sender }
func (m *SendData) SenderID() uint32    { return m.Sender }
func (m *Ack) SenderID() uint32         { return m.Sender }

func (m *Advert) accept(from Addr, h Handler)      { h.HandleAdvert(from, m) }
func (m *RequestData) accept(from Addr, h Handler) { h.HandleRequestData(from, m) }
func (m *SendData) accept(from Addr, h Handler)    { h.HandleSendData(from, m) }
func (m *Ack) accept(from Addr, h Handler)         { h.HandleAck(from, m) }

// Elements returns every element ID referenced by m.
func Elements(m Message) []uint8 {
	switch m := m.(type) {
	case *Advert:
		ids := make([]uint8, len(m.Entries))
		for i, e := range m.Entries {
			ids[i] = e.Element
		}
		return ids
	case *RequestData:
		return []uint8{m.Element}
	case *SendData:
		return []uint8{m.Element}
	case *Ack:
		return []uint8{m.Element}
	default:
		return nil
	}
}
