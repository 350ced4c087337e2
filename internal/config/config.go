package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"localgroup/internal/element"
	"localgroup/internal/engine"
)

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("invalid config")

// MaxElements is the largest element set an 8-bit element ID can address.
const MaxElements = 256

// Peer is a statically configured peer.
type Peer struct {
	ID   uint32
	Addr netip.Addr
}

// Transport configures the UDP binding.
type Transport struct {
	Bind      string
	Advertise string
	Broadcast string
	Port      int
	Peers     []Peer
}

// Mobility is the node's starting position and constant velocity.
type Mobility struct {
	X, Y   float64
	VX, VY float64
}

// Discovery configures etcd registration. Empty endpoints disable it.
type Discovery struct {
	Endpoints []string
	Prefix    string
	TTL       time.Duration
}

// Config holds the node configuration.
type Config struct {
	NodeID   uint32
	Elements []element.Point
	Radius   float64
	Jitter   float64
	Seed     string

	AdvertInterval    time.Duration
	PruneInterval     time.Duration
	HeartbeatTimeout  time.Duration
	ProximityInterval time.Duration

	Transport Transport
	Mobility  Mobility
	Discovery Discovery

	AdminAddr   string
	MetricsAddr string
	JournalPath string
}

// Default returns the reference configuration. Elements must still be set.
func Default() Config {
	return Config{
		Radius:            8.0,
		Jitter:            0.5,
		Seed:              engine.SeedNodeID.String(),
		AdvertInterval:    1 * time.Second,
		PruneInterval:     3 * time.Second,
		HeartbeatTimeout:  10 * time.Second,
		ProximityInterval: 1 * time.Second,
		Transport: Transport{
			Advertise: "127.0.0.1",
			Broadcast: "255.255.255.255",
			Port:      61021,
		},
		Discovery: Discovery{
			Prefix: "/localgroup/nodes/",
			TTL:    10 * time.Second,
		},
	}
}

// Validate checks c and returns an error wrapping ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(len(c.Elements) >= 1 && len(c.Elements) <= MaxElements,
		"element count %d out of range [1,%d]", len(c.Elements), MaxElements)
	check(c.Radius > 0, "radius must be positive, got %v", c.Radius)
	check(c.Jitter >= 0, "jitter must not be negative, got %v", c.Jitter)
	check(c.AdvertInterval > 0, "advert interval must be positive")
	check(c.PruneInterval > 0, "prune interval must be positive")
	check(c.HeartbeatTimeout > 0, "heartbeat timeout must be positive")
	check(c.ProximityInterval > 0, "proximity interval must be positive")
	check(c.Transport.Port > 0 && c.Transport.Port <= 65535, "port %d out of range", c.Transport.Port)
	if _, err := engine.ParseSeedStrategy(c.Seed); err != nil {
		errs = append(errs, err)
	}
	if len(c.Discovery.Endpoints) > 0 {
		check(c.Discovery.Prefix != "", "discovery prefix must not be empty")
		check(c.Discovery.TTL >= time.Second, "discovery ttl must be at least 1s")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// SeedStrategy returns the parsed round seed strategy.
func (c *Config) SeedStrategy() engine.SeedStrategy {
	s, _ := engine.ParseSeedStrategy(c.Seed)
	return s
}

// ParsePeers parses a comma-separated list of peers in the format:
// "1=10.0.0.1,2=10.0.0.2"
func ParsePeers(peersStr string) ([]Peer, error) {
	if peersStr == "" {
		return []Peer{}, nil
	}

	parts := strings.Split(peersStr, ",")
	peers := make([]Peer, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid peer format: %s (expected id=ip)", part)
		}

		idStr := strings.TrimSpace(kv[0])
		addrStr := strings.TrimSpace(kv[1])
		if idStr == "" || addrStr == "" {
			return nil, fmt.Errorf("peer ID and address cannot be empty: %s", part)
		}

		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid peer ID %q: %w", idStr, err)
		}
		addr, err := netip.ParseAddr(addrStr)
		if err != nil {
			return nil, fmt.Errorf("invalid peer address %q: %w", addrStr, err)
		}
		if !addr.Is4() {
			return nil, fmt.Errorf("peer address %s is not IPv4", addr)
		}

		peers = append(peers, Peer{ID: uint32(id), Addr: addr})
	}

	return peers, nil
}

// ParseElements parses element base locations in the format:
// "0:0,10.5:3,-4:2"
func ParseElements(s string) ([]element.Point, error) {
	var points []element.Point
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		xy := strings.SplitN(part, ":", 2)
		if len(xy) != 2 {
			return nil, fmt.Errorf("invalid element format: %s (expected x:y)", part)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xy[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid element x in %q: %w", part, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(xy[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid element y in %q: %w", part, err)
		}
		points = append(points, element.Point{X: x, Y: y})
	}
	return points, nil
}

// PeerAddrs returns the addresses of all peers other than self.
func (c *Config) PeerAddrs() []netip.Addr {
	addrs := make([]netip.Addr, 0, len(c.Transport.Peers))
	for _, p := range c.Transport.Peers {
		if p.ID != c.NodeID {
			addrs = append(addrs, p.Addr)
		}
	}
	return addrs
}
