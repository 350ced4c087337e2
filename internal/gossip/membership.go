package gossip

import (
	"slices"
	"time"

	"localgroup/internal/clock"
	"localgroup/internal/wire"
)

// PeerRecord is what the local node knows about one peer.
type PeerRecord struct {
	ID       uint32
	Address  wire.Addr
	LastSeen time.Time
	Stamps   []clock.Stamp // indexed by element ID
}

func (p *PeerRecord) clone() PeerRecord {
	return PeerRecord{
		ID:       p.ID,
		Address:  p.Address,
		LastSeen: p.LastSeen,
		Stamps:   slices.Clone(p.Stamps),
	}
}

// Membership is the local group table: peers heard within the heartbeat
// window and their last advertised stamps.
type Membership struct {
	elements int
	members  map[uint32]*PeerRecord
}

// NewMembership creates an empty table for the given element count.
func NewMembership(elements int) *Membership {
	return &Membership{
		elements: elements,
		members:  make(map[uint32]*PeerRecord),
	}
}

// Upsert records an advertisement from peer id heard at now. The address
// always takes the advertised value. Elements missing from stamps keep
// their previous value; IDs outside the element range are ignored.
func (m *Membership) Upsert(id uint32, addr wire.Addr, stamps map[uint8]clock.Stamp, now time.Time) {
	member, exists := m.members[id]
	if !exists {
		member = &PeerRecord{
			ID:     id,
			Stamps: make([]clock.Stamp, m.elements),
		}
		m.members[id] = member
	}
	member.Address = addr
	member.LastSeen = now
	for e, st := range stamps {
		if int(e) < m.elements {
			member.Stamps[e] = st
		}
	}
}

// Get returns a copy of the record for id.
func (m *Membership) Get(id uint32) (PeerRecord, bool) {
	member, ok := m.members[id]
	if !ok {
		return PeerRecord{}, false
	}
	return member.clone(), true
}

// Prune removes every peer with now - LastSeen >= timeout and returns the
// removed IDs in ascending order.
func (m *Membership) Prune(now time.Time, timeout time.Duration) []uint32 {
	var removed []uint32
	for id, member := range m.members {
		if now.Sub(member.LastSeen) >= timeout {
			delete(m.members, id)
			removed = append(removed, id)
		}
	}
	slices.Sort(removed)
	return removed
}

// Freshest finds the peer holding the highest stamp for element e. Ties go
// to the lowest peer ID. ok is false when the table is empty or e is out
// of range.
func (m *Membership) Freshest(e uint8) (id uint32, rec PeerRecord, st clock.Stamp, ok bool) {
	if int(e) >= m.elements {
		return 0, PeerRecord{}, clock.Stamp{}, false
	}

	var best *PeerRecord
	for _, member := range m.members {
		if best == nil {
			best = member
			continue
		}
		switch member.Stamps[e].Compare(best.Stamps[e]) {
		case clock.After:
			best = member
		case clock.Equal:
			if member.ID < best.ID {
				best = member
			}
		}
	}
	if best == nil {
		return 0, PeerRecord{}, clock.Stamp{}, false
	}
	return best.ID, best.clone(), best.Stamps[e], true
}

// Len returns the number of peers in the table.
func (m *Membership) Len() int {
	return len(m.members)
}

// Snapshot returns copies of all records ordered by peer ID.
func (m *Membership) Snapshot() []PeerRecord {
	snapshot := make([]PeerRecord, 0, len(m.members))
	for _, member := range m.members {
		snapshot = append(snapshot, member.clone())
	}
	slices.SortFunc(snapshot, func(a, b PeerRecord) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return snapshot
}
