package discovery

import (
	"context"
	"fmt"
	"net/netip"
	"slices"
	"strconv"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"localgroup/internal/config"
)

// NewClient connects to etcd.
func NewClient(endpoints []string) (*clientv3.Client, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("etcd connect: %w", err)
	}
	return cli, nil
}

// Key returns the registration key of node id under prefix.
func Key(prefix string, id uint32) string {
	return prefix + strconv.FormatUint(uint64(id), 10)
}

// RegisterNode stores addr under the node's key with a lease of ttl and
// keeps the lease alive until ctx is done.
func RegisterNode(ctx context.Context, cli *clientv3.Client, prefix string, id uint32, addr netip.Addr, ttl time.Duration) (clientv3.LeaseID, error) {
	lease, err := cli.Grant(ctx, int64(ttl/time.Second))
	if err != nil {
		return 0, fmt.Errorf("grant lease: %w", err)
	}
	if _, err := cli.Put(ctx, Key(prefix, id), addr.String(), clientv3.WithLease(lease.ID)); err != nil {
		return 0, fmt.Errorf("register node %d: %w", id, err)
	}

	ch, err := cli.KeepAlive(ctx, lease.ID)
	if err != nil {
		return 0, fmt.Errorf("keepalive: %w", err)
	}
	go func() {
		for range ch {
		}
	}()
	return lease.ID, nil
}

// Deregister revokes the lease, removing the node's key at once.
func Deregister(ctx context.Context, cli *clientv3.Client, lease clientv3.LeaseID) error {
	if _, err := cli.Revoke(ctx, lease); err != nil {
		return fmt.Errorf("revoke lease: %w", err)
	}
	return nil
}

// WatchPeers calls fn with the full peer list once at start and again
// after every change under prefix, until ctx is done.
func WatchPeers(ctx context.Context, cli *clientv3.Client, prefix string, log *zap.Logger, fn func([]config.Peer)) error {
	resp, err := cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return fmt.Errorf("list peers: %w", err)
	}
	set := make(peerSet)
	for _, kv := range resp.Kvs {
		if err := set.put(prefix, string(kv.Key), string(kv.Value)); err != nil {
			log.Warn("ignoring registration", zap.Error(err))
		}
	}
	fn(set.list())

	wch := cli.Watch(ctx, prefix, clientv3.WithPrefix(), clientv3.WithRev(resp.Header.Revision+1))
	for wr := range wch {
		if err := wr.Err(); err != nil {
			return fmt.Errorf("watch peers: %w", err)
		}
		for _, ev := range wr.Events {
			key := string(ev.Kv.Key)
			switch ev.Type {
			case clientv3.EventTypePut:
				if err := set.put(prefix, key, string(ev.Kv.Value)); err != nil {
					log.Warn("ignoring registration", zap.Error(err))
				}
			case clientv3.EventTypeDelete:
				set.remove(prefix, key)
			}
		}
		fn(set.list())
	}
	return ctx.Err()
}

type peerSet map[uint32]netip.Addr

func (s peerSet) put(prefix, key, value string) error {
	p, err := parseEntry(prefix, key, value)
	if err != nil {
		return err
	}
	s[p.ID] = p.Addr
	return nil
}

func (s peerSet) remove(prefix, key string) {
	if id, err := parseKey(prefix, key); err == nil {
		delete(s, id)
	}
}

func (s peerSet) list() []config.Peer {
	peers := make([]config.Peer, 0, len(s))
	for id, addr := range s {
		peers = append(peers, config.Peer{ID: id, Addr: addr})
	}
	slices.SortFunc(peers, func(a, b config.Peer) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return peers
}

func parseKey(prefix, key string) (uint32, error) {
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return 0, fmt.Errorf("key %q outside prefix %q", key, prefix)
	}
	id, err := strconv.ParseUint(rest, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("key %q: bad node id: %w", key, err)
	}
	return uint32(id), nil
}

func parseEntry(prefix, key, value string) (config.Peer, error) {
	id, err := parseKey(prefix, key)
	if err != nil {
		return config.Peer{}, err
	}
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return config.Peer{}, fmt.Errorf("key %q: bad address: %w", key, err)
	}
	if !addr.Is4() {
		return config.Peer{}, fmt.Errorf("key %q: address %s is not IPv4", key, addr)
	}
	return config.Peer{ID: id, Addr: addr}, nil
}
