package engine

import (
	"math/rand/v2"
	"testing"

	"localgroup/internal/clock"
	"localgroup/internal/wire"
)

// Property: no sequence of SEND_DATA and ACK messages lowers a stamp.
func TestProperty_FreshnessMonotonic(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for run := 0; run < 50; run++ {
		f := newFixture(t, 1, 1)
		prev := f.eng.Store().Stamp(0)

		for step := 0; step < 200; step++ {
			var m wire.Message
			sender := uint32(rng.IntN(6) + 2)
			if rng.IntN(2) == 0 {
				group := []uint32{sender}
				if rng.IntN(2) == 0 {
					group = append(group, 1)
				}
				m = &wire.SendData{
					Sender:  sender,
					Element: 0,
					Stamp:   clock.Stamp{Version: uint8(rng.IntN(4)), Round: uint8(rng.IntN(256))},
					Group:   group,
				}
			} else {
				m = &wire.Ack{Sender: sender, Element: 0}
			}
			f.receive(wire.Addr(sender), m)

			cur := f.eng.Store().Stamp(0)
			if cur.Compare(prev) == clock.Before {
				t.Fatalf("run %d step %d: stamp went from %v to %v after %T", run, step, prev, cur, m)
			}
			prev = cur
		}
	}
}

// Property: every element with a positive round has the local node in its
// agreeing set, whatever order seeds, views and ACKs arrive in.
func TestProperty_SelfInAgreeingSet(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))

	for run := 0; run < 20; run++ {
		f := newFixture(t, 1, 4)

		for step := 0; step < 300; step++ {
			e := uint8(rng.IntN(4))
			var desc string
			switch rng.IntN(3) {
			case 0:
				f.eng.BeginAgreement(e)
				desc = "begin agreement"
			case 1:
				group := []uint32{2}
				if rng.IntN(2) == 0 {
					group = append(group, 1)
				}
				st := clock.Stamp{Version: uint8(rng.IntN(4)), Round: uint8(rng.IntN(256))}
				f.receive(0, &wire.SendData{Sender: 2, Element: e, Stamp: st, Group: group})
				desc = "send data " + st.String()
			case 2:
				f.receive(0, &wire.Ack{Sender: uint32(rng.IntN(5) + 2), Element: e})
				desc = "ack"
			}

			for id := uint8(0); id < 4; id++ {
				st := f.eng.Store().Stamp(id)
				if st.Round > 0 && !f.eng.Store().ContainsAgreeingNode(id, 1) {
					t.Fatalf("run %d step %d (%s on %d): element %d at %v without self: %v",
						run, step, desc, e, id, st, f.eng.Store().Agreeing(id))
				}
			}
		}
	}
}
