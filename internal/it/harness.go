package it

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"localgroup/internal/config"
	"localgroup/internal/engine"
	"localgroup/internal/journal"
	"localgroup/internal/node"
	"localgroup/internal/telemetry"
	"localgroup/internal/transport"
	"localgroup/internal/wire"
)

// Position is a settable position source.
type Position struct {
	mu   sync.Mutex
	x, y float64
}

// Position implements position.Source.
func (p *Position) Position() (float64, float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.x, p.y
}

// Set moves the node.
func (p *Position) Set(x, y float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.x, p.y = x, y
}

// Member is one node of the cluster.
type Member struct {
	*node.Node
	Pos *Position
}

// Cluster represents a test cluster of nodes
type Cluster struct {
	cfg      config.Config
	hub      *transport.Hub
	log      *zap.Logger
	Registry *prometheus.Registry
	sink     journal.Sink

	mu     sync.Mutex
	nodes  []*Member
	byAddr map[wire.Addr]*Member
	groups map[uint32]int
}

// NewCluster creates a cluster sharing cfg for every node. sink may be nil.
func NewCluster(cfg config.Config, logger *zap.Logger, sink journal.Sink) *Cluster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cluster{
		cfg:      cfg,
		hub:      transport.NewHub(),
		log:      logger,
		Registry: prometheus.NewRegistry(),
		sink:     sink,
		byAddr:   make(map[wire.Addr]*Member),
		groups:   make(map[uint32]int),
	}
}

// AddNode creates node id standing at (x, y). It is not started.
func (c *Cluster) AddNode(id uint32, x, y float64) *Member {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg := c.cfg
	cfg.NodeID = id
	pos := &Position{x: x, y: y}
	ep := c.hub.Join()

	opts := []engine.Option{engine.WithMetrics(telemetry.New(telemetry.ForNode(c.Registry, id)))}
	if c.sink != nil {
		opts = append(opts, engine.WithJournal(c.sink))
	}
	m := &Member{Node: node.New(cfg, ep, pos, c.log, opts...), Pos: pos}
	c.nodes = append(c.nodes, m)
	c.byAddr[ep.LocalAddr()] = m
	return m
}

// Start starts every node.
func (c *Cluster) Start() {
	for _, m := range c.Members() {
		m.Start()
	}
}

// Stop stops every node.
func (c *Cluster) Stop() {
	for _, m := range c.Members() {
		if err := m.Stop(); err != nil {
			c.log.Warn("stop failed", zap.Uint32("node", m.ID()), zap.Error(err))
		}
	}
}

// Members returns the nodes in creation order.
func (c *Cluster) Members() []*Member {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.nodes)
}

// Partition splits the cluster: nodes only reach nodes assigned the same
// group. Unassigned nodes are in group 0.
func (c *Cluster) Partition(groups map[uint32]int) {
	c.mu.Lock()
	c.groups = groups
	c.mu.Unlock()

	c.hub.SetReachable(func(from, to wire.Addr) bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		a, b := c.byAddr[from], c.byAddr[to]
		if a == nil || b == nil {
			return false
		}
		return c.groups[a.ID()] == c.groups[b.ID()]
	})
}

// Heal removes any partition.
func (c *Cluster) Heal() {
	c.hub.SetReachable(nil)
}

// Snapshots collects every node's state keyed by node ID.
func (c *Cluster) Snapshots(ctx context.Context) (map[uint32]engine.State, error) {
	out := make(map[uint32]engine.State)
	for _, m := range c.Members() {
		s, err := m.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", m.ID(), err)
		}
		out[m.ID()] = s
	}
	return out, nil
}

// Converged reports whether every node holds the same initialized stamp
// for element e and an agreeing set naming exactly the cluster's nodes.
func (c *Cluster) Converged(ctx context.Context, e uint8) (bool, error) {
	states, err := c.Snapshots(ctx)
	if err != nil {
		return false, err
	}

	want := make([]uint32, 0, len(states))
	for id := range states {
		want = append(want, id)
	}
	slices.Sort(want)

	var first *engine.State
	for id := range states {
		s := states[id]
		rec := s.Elements[e]
		if !rec.Stamp.Initialized() || !slices.Equal(rec.Agreeing, want) {
			return false, nil
		}
		if first == nil {
			first = &s
			continue
		}
		if first.Elements[e].Stamp != rec.Stamp {
			return false, nil
		}
	}
	return true, nil
}
