package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"

	"go.uber.org/zap"

	"localgroup/internal/wire"
)

// DefaultPort is the network-wide datagram port.
const DefaultPort = 61021

const maxDatagram = 64 * 1024

// UDPConfig configures a UDP transport.
type UDPConfig struct {
	// Bind is the local IP to listen on. The zero value listens on all
	// interfaces.
	Bind netip.Addr
	Port int
	// Advertise is the IPv4 address peers should reply to.
	Advertise netip.Addr
	// Broadcast is the destination for Broadcast when no peers are set.
	Broadcast netip.Addr
	// Peers, when set, turns Broadcast into a unicast fan-out.
	Peers  []netip.Addr
	Logger *zap.Logger
}

// UDP is a Transport over a single UDP socket.
type UDP struct {
	conn  *net.UDPConn
	port  uint16
	local wire.Addr
	bcast netip.Addr
	log   *zap.Logger

	mu     sync.RWMutex
	peers  []netip.Addr
	closed bool

	wg sync.WaitGroup
}

// NewUDP binds the socket with SO_REUSEADDR and SO_BROADCAST set.
func NewUDP(ctx context.Context, cfg UDPConfig) (*UDP, error) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if !cfg.Broadcast.IsValid() {
		cfg.Broadcast = netip.AddrFrom4([4]byte{255, 255, 255, 255})
	}
	local, ok := wire.AddrFrom4(cfg.Advertise)
	if !ok {
		return nil, fmt.Errorf("advertise address %v is not IPv4", cfg.Advertise)
	}

	bind := ""
	if cfg.Bind.IsValid() {
		bind = cfg.Bind.String()
	}
	lc := net.ListenConfig{Control: controlSocket}
	pc, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort(bind, fmt.Sprint(cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("listen udp :%d: %w", cfg.Port, err)
	}

	return &UDP{
		conn:  pc.(*net.UDPConn),
		port:  uint16(cfg.Port),
		local: local,
		bcast: cfg.Broadcast,
		log:   cfg.Logger.Named("udp"),
		peers: cfg.Peers,
	}, nil
}

// LocalAddr implements Transport.
func (u *UDP) LocalAddr() wire.Addr { return u.local }

// SetPeers replaces the fan-out list. An empty list restores broadcast.
func (u *UDP) SetPeers(peers []netip.Addr) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.peers = append([]netip.Addr(nil), peers...)
}

// Send implements Transport.
func (u *UDP) Send(to wire.Addr, payload []byte) error {
	return u.write(to.IP(), payload)
}

// Broadcast implements Transport. With a peer list it sends one copy to
// every peer and returns the first error.
func (u *UDP) Broadcast(payload []byte) error {
	u.mu.RLock()
	peers := u.peers
	u.mu.RUnlock()

	if len(peers) == 0 {
		return u.write(u.bcast, payload)
	}
	var first error
	for _, p := range peers {
		if err := u.write(p, payload); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (u *UDP) write(ip netip.Addr, payload []byte) error {
	u.mu.RLock()
	closed := u.closed
	u.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	_, err := u.conn.WriteToUDPAddrPort(payload, netip.AddrPortFrom(ip, u.port))
	if err != nil {
		return fmt.Errorf("write to %v: %w", ip, err)
	}
	return nil
}

// Listen implements Transport.
func (u *UDP) Listen(h Handler) {
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		buf := make([]byte, maxDatagram)
		for {
			n, src, err := u.conn.ReadFromUDPAddrPort(buf)
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				u.log.Warn("read failed", zap.Error(err))
				continue
			}
			from, ok := wire.AddrFrom4(src.Addr())
			if !ok {
				u.log.Debug("ignoring non-IPv4 datagram", zap.Stringer("src", src))
				continue
			}
			payload := make([]byte, n)
			copy(payload, buf[:n])
			h(from, payload)
		}
	}()
}

// Close implements Transport.
func (u *UDP) Close() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return nil
	}
	u.closed = true
	u.mu.Unlock()

	err := u.conn.Close()
	u.wg.Wait()
	return err
}
