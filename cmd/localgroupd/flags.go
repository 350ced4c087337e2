package main

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"localgroup/internal/config"
)

const (
	idKey                = "id"
	elementsKey          = "elements"
	layoutKey            = "layout"
	radiusKey            = "radius"
	jitterKey            = "jitter"
	seedKey              = "seed"
	advertIntervalKey    = "advert-interval"
	pruneIntervalKey     = "prune-interval"
	heartbeatTimeoutKey  = "heartbeat-timeout"
	proximityIntervalKey = "proximity-interval"
	bindKey              = "bind"
	advertiseKey         = "advertise"
	broadcastKey         = "broadcast"
	portKey              = "port"
	peersKey             = "peers"
	xKey                 = "x"
	yKey                 = "y"
	vxKey                = "vx"
	vyKey                = "vy"
	adminAddrKey         = "admin-addr"
	metricsAddrKey       = "metrics-addr"
	journalKey           = "journal"
	etcdEndpointsKey     = "etcd-endpoints"
	etcdPrefixKey        = "etcd-prefix"
	etcdTTLKey           = "etcd-ttl"
)

func addRunFlags(flags *pflag.FlagSet) {
	d := config.Default()

	flags.Uint32(idKey, 0, "Node ID (unique per network)")
	flags.String(elementsKey, "", "Element base locations as x:y,x:y,...")
	flags.String(layoutKey, "", "YAML element layout file (overrides --elements)")
	flags.Float64(radiusKey, d.Radius, "Proximity radius")
	flags.Float64(jitterKey, d.Jitter, "Per-axis perturbation applied to element locations")
	flags.String(seedKey, d.Seed, "Round seed strategy (node-id or random)")
	flags.Duration(advertIntervalKey, d.AdvertInterval, "Advertisement interval")
	flags.Duration(pruneIntervalKey, d.PruneInterval, "Membership pruning interval")
	flags.Duration(heartbeatTimeoutKey, d.HeartbeatTimeout, "Forget peers not heard from for this long")
	flags.Duration(proximityIntervalKey, d.ProximityInterval, "Proximity check interval")
	flags.String(bindKey, "", "Local IP to listen on (default all interfaces)")
	flags.String(advertiseKey, d.Transport.Advertise, "IPv4 address peers reply to")
	flags.String(broadcastKey, d.Transport.Broadcast, "Broadcast address for advertisements")
	flags.Int(portKey, d.Transport.Port, "Network-wide datagram port")
	flags.String(peersKey, "", "Static fan-out peers as id=ip,id=ip (disables broadcast)")
	flags.Float64(xKey, 0, "Starting x position")
	flags.Float64(yKey, 0, "Starting y position")
	flags.Float64(vxKey, 0, "Velocity along x, units per second")
	flags.Float64(vyKey, 0, "Velocity along y, units per second")
	flags.String(adminAddrKey, "", "gRPC inspector listen address (empty disables)")
	flags.String(metricsAddrKey, "", "Prometheus /metrics listen address (empty disables)")
	flags.String(journalKey, "", "Append element transitions to this JSON-lines file")
	flags.StringSlice(etcdEndpointsKey, nil, "etcd endpoints for peer discovery")
	flags.String(etcdPrefixKey, d.Discovery.Prefix, "etcd key prefix for node registrations")
	flags.Duration(etcdTTLKey, d.Discovery.TTL, "etcd registration lease TTL")
}

func parseRunFlags(flags *pflag.FlagSet) (config.Config, error) {
	c := config.Default()
	var err error

	get := func(key string, fn func() error) {
		if err == nil {
			if e := fn(); e != nil {
				err = fmt.Errorf("--%s: %w", key, e)
			}
		}
	}
	getDuration := func(key string, dst *time.Duration) {
		get(key, func() (e error) { *dst, e = flags.GetDuration(key); return })
	}
	getFloat := func(key string, dst *float64) {
		get(key, func() (e error) { *dst, e = flags.GetFloat64(key); return })
	}
	getString := func(key string, dst *string) {
		get(key, func() (e error) { *dst, e = flags.GetString(key); return })
	}

	get(idKey, func() (e error) { c.NodeID, e = flags.GetUint32(idKey); return })
	getFloat(radiusKey, &c.Radius)
	getFloat(jitterKey, &c.Jitter)
	getString(seedKey, &c.Seed)
	getDuration(advertIntervalKey, &c.AdvertInterval)
	getDuration(pruneIntervalKey, &c.PruneInterval)
	getDuration(heartbeatTimeoutKey, &c.HeartbeatTimeout)
	getDuration(proximityIntervalKey, &c.ProximityInterval)
	getString(bindKey, &c.Transport.Bind)
	getString(advertiseKey, &c.Transport.Advertise)
	getString(broadcastKey, &c.Transport.Broadcast)
	get(portKey, func() (e error) { c.Transport.Port, e = flags.GetInt(portKey); return })
	getFloat(xKey, &c.Mobility.X)
	getFloat(yKey, &c.Mobility.Y)
	getFloat(vxKey, &c.Mobility.VX)
	getFloat(vyKey, &c.Mobility.VY)
	getString(adminAddrKey, &c.AdminAddr)
	getString(metricsAddrKey, &c.MetricsAddr)
	getString(journalKey, &c.JournalPath)
	get(etcdEndpointsKey, func() (e error) { c.Discovery.Endpoints, e = flags.GetStringSlice(etcdEndpointsKey); return })
	getString(etcdPrefixKey, &c.Discovery.Prefix)
	getDuration(etcdTTLKey, &c.Discovery.TTL)

	var elements, layout, peers string
	getString(elementsKey, &elements)
	getString(layoutKey, &layout)
	getString(peersKey, &peers)
	if err != nil {
		return c, err
	}

	if c.Elements, err = config.ParseElements(elements); err != nil {
		return c, fmt.Errorf("--%s: %w", elementsKey, err)
	}
	if layout != "" {
		l, err := config.LoadLayout(layout)
		if err != nil {
			return c, err
		}
		l.Apply(&c)
		// explicit flags still win over the layout file
		if flags.Changed(radiusKey) {
			c.Radius, _ = flags.GetFloat64(radiusKey)
		}
		if flags.Changed(jitterKey) {
			c.Jitter, _ = flags.GetFloat64(jitterKey)
		}
	}
	if c.Transport.Peers, err = config.ParsePeers(peers); err != nil {
		return c, fmt.Errorf("--%s: %w", peersKey, err)
	}

	return c, c.Validate()
}
