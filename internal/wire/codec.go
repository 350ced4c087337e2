package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"localgroup/internal/clock"
)

var (
	// ErrTruncated is returned when a payload is shorter than its kind's fixed prefix.
	ErrTruncated = errors.New("wire: payload truncated")
	// ErrMisaligned is returned when the repeated region is not a whole number of tuples.
	ErrMisaligned = errors.New("wire: repeated region misaligned")
	// ErrUnknownKind is returned for an unrecognized tag byte.
	ErrUnknownKind = errors.New("wire: unknown message kind")
)

const (
	advertPrefix   = 1 + 4 + 4
	entrySize      = 3
	requestSize    = 1 + 4 + 1
	sendDataPrefix = 1 + 4 + 1 + 4 + 4 + 1 + 1
	groupEntrySize = 4
	ackSize        = 1 + 4 + 1
)

var le = binary.LittleEndian

// Encode serializes m. Decode(Encode(m)) reproduces m.
func Encode(m Message) []byte {
	return m.appendTo(make([]byte, 0, m.size()))
}

// Decode parses a datagram payload into one of the four message kinds.
func Decode(b []byte) (Message, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrTruncated)
	}

	switch Kind(b[0]) {
	case KindAdvert:
		return decodeAdvert(b)
	case KindRequestData:
		return decodeRequestData(b)
	case KindSendData:
		return decodeSendData(b)
	case KindAck:
		return decodeAck(b)
	default:
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownKind, b[0])
	}
}

func (m *Advert) size() int { return advertPrefix + entrySize*len(m.Entries) }

func (m *Advert) appendTo(b []byte) []byte {
	b = append(b, byte(KindAdvert))
	b = le.AppendUint32(b, m.Sender)
	b = le.AppendUint32(b, uint32(m.Address))
	for _, e := range m.Entries {
		b = append(b, e.Element, e.Stamp.Version, e.Stamp.Round)
	}
	return b
}

func decodeAdvert(b []byte) (*Advert, error) {
	if err := checkRepeated(KindAdvert, b, advertPrefix, entrySize); err != nil {
		return nil, err
	}

	m := &Advert{
		Sender:  le.Uint32(b[1:5]),
		Address: Addr(le.Uint32(b[5:9])),
	}
	rest := b[advertPrefix:]
	if n := len(rest) / entrySize; n > 0 {
		m.Entries = make([]Entry, n)
		for i := range m.Entries {
			t := rest[i*entrySize:]
			m.Entries[i] = Entry{
				Element: t[0],
				Stamp:   clock.Stamp{Version: t[1], Round: t[2]},
			}
		}
	}
	return m, nil
}

func (m *RequestData) size() int { return requestSize }

func (m *RequestData) appendTo(b []byte) []byte {
	b = append(b, byte(KindRequestData))
	b = le.AppendUint32(b, m.Sender)
	return append(b, m.Element)
}

func decodeRequestData(b []byte) (*RequestData, error) {
	if err := checkFixed(KindRequestData, b, requestSize); err != nil {
		return nil, err
	}
	return &RequestData{Sender: le.Uint32(b[1:5]), Element: b[5]}, nil
}

func (m *SendData) size() int { return sendDataPrefix + groupEntrySize*len(m.Group) }

func (m *SendData) appendTo(b []byte) []byte {
	b = append(b, byte(KindSendData))
	b = le.AppendUint32(b, m.Sender)
	b = append(b, m.Element)
	b = le.AppendUint32(b, math.Float32bits(m.X))
	b = le.AppendUint32(b, math.Float32bits(m.Y))
	b = append(b, m.Stamp.Version, m.Stamp.Round)
	for _, id := range m.Group {
		b = le.AppendUint32(b, id)
	}
	return b
}

func decodeSendData(b []byte) (*SendData, error) {
	if err := checkRepeated(KindSendData, b, sendDataPrefix, groupEntrySize); err != nil {
		return nil, err
	}

	m := &SendData{
		Sender:  le.Uint32(b[1:5]),
		Element: b[5],
		X:       math.Float32frombits(le.Uint32(b[6:10])),
		Y:       math.Float32frombits(le.Uint32(b[10:14])),
		Stamp:   clock.Stamp{Version: b[14], Round: b[15]},
	}
	rest := b[sendDataPrefix:]
	if n := len(rest) / groupEntrySize; n > 0 {
		m.Group = make([]uint32, n)
		for i := range m.Group {
			m.Group[i] = le.Uint32(rest[i*groupEntrySize:])
		}
	}
	return m, nil
}

func (m *Ack) size() int { return ackSize }

func (m *Ack) appendTo(b []byte) []byte {
	b = append(b, byte(KindAck))
	b = le.AppendUint32(b, m.Sender)
	return append(b, m.Element)
}

func decodeAck(b []byte) (*Ack, error) {
	if err := checkFixed(KindAck, b, ackSize); err != nil {
		return nil, err
	}
	return &Ack{Sender: le.Uint32(b[1:5]), Element: b[5]}, nil
}

func checkFixed(k Kind, b []byte, size int) error {
	if len(b) < size {
		return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrTruncated, k, size, len(b))
	}
	if len(b) > size {
		return fmt.Errorf("%w: %s has %d trailing bytes", ErrMisaligned, k, len(b)-size)
	}
	return nil
}

func checkRepeated(k Kind, b []byte, prefix, tuple int) error {
	if len(b) < prefix {
		return fmt.Errorf("%w: %s needs at least %d bytes, got %d", ErrTruncated, k, prefix, len(b))
	}
	if rem := (len(b) - prefix) % tuple; rem != 0 {
		return fmt.Errorf("%w: %s tuple region of %d bytes is not a multiple of %d",
			ErrMisaligned, k, len(b)-prefix, tuple)
	}
	return nil
}
