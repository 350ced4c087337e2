package inspect

import (
	"fmt"
	"net/netip"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"localgroup/internal/clock"
	"localgroup/internal/element"
	"localgroup/internal/engine"
	"localgroup/internal/gossip"
	"localgroup/internal/wire"
)

// stateToStruct converts engine state to a protobuf Struct.
func stateToStruct(s engine.State) (*structpb.Struct, error) {
	nearby := make([]any, len(s.Nearby))
	for i, e := range s.Nearby {
		nearby[i] = uint32(e)
	}

	elements := make([]any, len(s.Elements))
	for i, rec := range s.Elements {
		elements[i] = map[string]any{
			"id":       uint32(i),
			"version":  uint32(rec.Stamp.Version),
			"round":    uint32(rec.Stamp.Round),
			"x":        rec.Location.X,
			"y":        rec.Location.Y,
			"agreeing": idsToList(rec.Agreeing),
		}
	}

	peers := make([]any, len(s.Peers))
	for i, p := range s.Peers {
		stamps := make([]any, len(p.Stamps))
		for j, st := range p.Stamps {
			stamps[j] = []any{uint32(st.Version), uint32(st.Round)}
		}
		peers[i] = map[string]any{
			"id":        p.ID,
			"address":   p.Address.String(),
			"last_seen": p.LastSeen.UTC().Format(time.RFC3339Nano),
			"stamps":    stamps,
		}
	}

	return structpb.NewStruct(map[string]any{
		"node":     s.Node,
		"nearby":   nearby,
		"elements": elements,
		"peers":    peers,
	})
}

func idsToList(ids []uint32) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// structToState converts a protobuf Struct produced by stateToStruct back
// to engine state.
func structToState(pb *structpb.Struct) (engine.State, error) {
	if pb == nil {
		return engine.State{}, fmt.Errorf("empty snapshot")
	}
	m := pb.AsMap()

	var s engine.State
	s.Node = uint32(num(m["node"]))
	for _, v := range list(m["nearby"]) {
		s.Nearby = append(s.Nearby, uint8(num(v)))
	}

	for _, v := range list(m["elements"]) {
		em, ok := v.(map[string]any)
		if !ok {
			return engine.State{}, fmt.Errorf("element entry is %T", v)
		}
		rec := element.Record{
			Stamp:    clock.Stamp{Version: uint8(num(em["version"])), Round: uint8(num(em["round"]))},
			Location: element.Point{X: num(em["x"]), Y: num(em["y"])},
			Agreeing: []uint32{},
		}
		for _, id := range list(em["agreeing"]) {
			rec.Agreeing = append(rec.Agreeing, uint32(num(id)))
		}
		s.Elements = append(s.Elements, rec)
	}

	for _, v := range list(m["peers"]) {
		pm, ok := v.(map[string]any)
		if !ok {
			return engine.State{}, fmt.Errorf("peer entry is %T", v)
		}
		p := gossip.PeerRecord{ID: uint32(num(pm["id"]))}
		if a, ok := pm["address"].(string); ok {
			ip, err := netip.ParseAddr(a)
			if err != nil {
				return engine.State{}, fmt.Errorf("peer %d address: %w", p.ID, err)
			}
			p.Address, _ = wire.AddrFrom4(ip)
		}
		if ts, ok := pm["last_seen"].(string); ok {
			t, err := time.Parse(time.RFC3339Nano, ts)
			if err != nil {
				return engine.State{}, fmt.Errorf("peer %d last_seen: %w", p.ID, err)
			}
			p.LastSeen = t
		}
		for _, st := range list(pm["stamps"]) {
			pair := list(st)
			if len(pair) != 2 {
				return engine.State{}, fmt.Errorf("peer %d stamp has %d fields", p.ID, len(pair))
			}
			p.Stamps = append(p.Stamps, clock.Stamp{Version: uint8(num(pair[0])), Round: uint8(num(pair[1]))})
		}
		s.Peers = append(s.Peers, p)
	}
	return s, nil
}

func num(v any) float64 {
	f, _ := v.(float64)
	return f
}

func list(v any) []any {
	l, _ := v.([]any)
	return l
}
