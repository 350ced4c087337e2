package clock

import (
	"testing"
)

// allStamps enumerates a grid of stamps small enough to check exhaustively.
func allStamps() []Stamp {
	stamps := make([]Stamp, 0, 64)
	for v := 0; v < 8; v++ {
		for r := 0; r < 8; r++ {
			stamps = append(stamps, Stamp{Version: uint8(v), Round: uint8(r)})
		}
	}
	return stamps
}

// TestStamp_Property_CompareAntisymmetric tests that a<b implies b>a
func TestStamp_Property_CompareAntisymmetric(t *testing.T) {
	for _, a := range allStamps() {
		for _, b := range allStamps() {
			ab := a.Compare(b)
			ba := b.Compare(a)
			switch ab {
			case Before:
				if ba != After {
					t.Fatalf("%v before %v but reverse is %v", a, b, ba)
				}
			case After:
				if ba != Before {
					t.Fatalf("%v after %v but reverse is %v", a, b, ba)
				}
			case Equal:
				if ba != Equal || a != b {
					t.Fatalf("%v equal %v but reverse is %v", a, b, ba)
				}
			}
		}
	}
}

// TestStamp_Property_Transitive tests that the order is transitive
func TestStamp_Property_Transitive(t *testing.T) {
	stamps := allStamps()
	for _, a := range stamps {
		for _, b := range stamps {
			if !b.Newer(a) {
				continue
			}
			for _, c := range stamps {
				if c.Newer(b) && !c.Newer(a) {
					t.Fatalf("%v > %v > %v but not %v > %v", c, b, a, c, a)
				}
			}
		}
	}
}

// TestStamp_Property_NextRoundNeverDecreases tests monotonicity of NextRound
func TestStamp_Property_NextRoundNeverDecreases(t *testing.T) {
	for v := 0; v < 256; v += 17 {
		for r := 0; r < 256; r++ {
			s := Stamp{Version: uint8(v), Round: uint8(r)}
			if s.NextRound().Compare(s) == Before {
				t.Fatalf("NextRound decreased %v", s)
			}
		}
	}
}

// TestStamp_Property_MaxIsUpperBound tests that Max dominates or equals both inputs
func TestStamp_Property_MaxIsUpperBound(t *testing.T) {
	for _, a := range allStamps() {
		for _, b := range allStamps() {
			m := Max(a, b)
			if a.Newer(m) || b.Newer(m) {
				t.Fatalf("Max(%v, %v) = %v is not an upper bound", a, b, m)
			}
		}
	}
}
