package engine

import (
	"localgroup/internal/element"
	"localgroup/internal/gossip"
)

// State is a point-in-time copy of everything the engine holds.
type State struct {
	Node     uint32
	Nearby   []uint8
	Elements []element.Record
	Peers    []gossip.PeerRecord
}

// Snapshot copies the engine state.
func (e *Engine) Snapshot() State {
	s := State{
		Node:     e.cfg.NodeID,
		Nearby:   e.nearby.Nearby(),
		Elements: make([]element.Record, e.store.Count()),
		Peers:    e.members.Snapshot(),
	}
	for i := range s.Elements {
		s.Elements[i] = e.store.Get(uint8(i))
	}
	return s
}
