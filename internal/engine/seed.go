package engine

import (
	"fmt"
	"math/rand/v2"
)

// SeedStrategy picks the first round of an element that no peer knows
// better than we do.
type SeedStrategy int

const (
	// SeedNodeID seeds with uint8(nodeID+1), mapping 0 to 1.
	SeedNodeID SeedStrategy = iota
	// SeedRandom seeds with a uniform draw in [1, 10].
	SeedRandom
)

// String returns the flag spelling of the strategy.
func (s SeedStrategy) String() string {
	switch s {
	case SeedNodeID:
		return "node-id"
	case SeedRandom:
		return "random"
	default:
		return "unknown"
	}
}

// ParseSeedStrategy parses "node-id" or "random".
func ParseSeedStrategy(s string) (SeedStrategy, error) {
	switch s {
	case "node-id", "":
		return SeedNodeID, nil
	case "random":
		return SeedRandom, nil
	default:
		return 0, fmt.Errorf("unknown seed strategy %q (want node-id or random)", s)
	}
}

// Round returns the seed round for node id. The result is always positive.
func (s SeedStrategy) Round(id uint32, rng *rand.Rand) uint8 {
	if s == SeedRandom {
		return uint8(rng.IntN(10) + 1)
	}
	r := uint8(id + 1)
	if r == 0 {
		r = 1
	}
	return r
}
