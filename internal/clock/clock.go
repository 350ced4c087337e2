package clock

import (
	"fmt"
	"math"
)

// Stamp is the (version, round) pair a node holds for one element.
// Version is the content generation; Round counts synchronization
// activity within that generation.
type Stamp struct {
	Version uint8
	Round   uint8
}

// CompareResult represents the result of comparing two stamps.
type CompareResult int

const (
	// Before indicates this stamp is older than the other.
	Before CompareResult = iota
	// Equal indicates both stamps carry the same version and round.
	Equal
	// After indicates this stamp is fresher than the other.
	After
)

// String returns the string representation of CompareResult.
func (r CompareResult) String() string {
	switch r {
	case Before:
		return "BEFORE"
	case Equal:
		return "EQUAL"
	case After:
		return "AFTER"
	default:
		return "UNKNOWN"
	}
}

// Compare orders two stamps lexicographically, version first.
func (s Stamp) Compare(other Stamp) CompareResult {
	switch {
	case s.Version > other.Version:
		return After
	case s.Version < other.Version:
		return Before
	case s.Round > other.Round:
		return After
	case s.Round < other.Round:
		return Before
	default:
		return Equal
	}
}

// Newer reports whether s is strictly fresher than other.
func (s Stamp) Newer(other Stamp) bool {
	return s.Compare(other) == After
}

// Initialized reports whether the element has left the uninitialized
// state (round 0).
func (s Stamp) Initialized() bool {
	return s.Round > 0
}

// NextRound returns the stamp with its round advanced by one.
// The round saturates at 255 so a stamp never wraps to an older value.
func (s Stamp) NextRound() Stamp {
	s.Round = Inc(s.Round)
	return s
}

// Inc increments a counter, saturating at math.MaxUint8.
func Inc(v uint8) uint8 {
	if v == math.MaxUint8 {
		return v
	}
	return v + 1
}

// Max returns the fresher of two stamps.
func Max(a, b Stamp) Stamp {
	if b.Newer(a) {
		return b
	}
	return a
}

// String returns a string representation of the stamp.
func (s Stamp) String() string {
	return fmt.Sprintf("v%d/r%d", s.Version, s.Round)
}
