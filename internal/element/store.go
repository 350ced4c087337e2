package element

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"localgroup/internal/clock"
)

// Point is a 2-D location.
type Point struct {
	X, Y float64
}

// DistSq returns the squared Euclidean distance between p and q.
func (p Point) DistSq(q Point) float64 {
	dx, dy := p.X-q.X, p.Y-q.Y
	return dx*dx + dy*dy
}

// Record is a copy of one element's state.
type Record struct {
	Stamp    clock.Stamp
	Location Point
	Agreeing []uint32 // sorted ascending
}

type record struct {
	stamp    clock.Stamp
	location Point
	agreeing map[uint32]struct{}
}

// Store holds one record per configured element.
type Store struct {
	records []record
}

// NewStore creates a store with one uninitialized record per location.
func NewStore(locations []Point) *Store {
	s := &Store{records: make([]record, len(locations))}
	for i, loc := range locations {
		s.records[i] = record{
			location: loc,
			agreeing: make(map[uint32]struct{}),
		}
	}
	return s
}

// Perturb returns a copy of base with each coordinate moved by a uniform
// offset in [-jitter, +jitter].
func Perturb(base []Point, jitter float64, rng *rand.Rand) []Point {
	out := make([]Point, len(base))
	for i, p := range base {
		out[i] = Point{
			X: p.X + (rng.Float64()*2-1)*jitter,
			Y: p.Y + (rng.Float64()*2-1)*jitter,
		}
	}
	return out
}

// Count returns the number of configured elements.
func (s *Store) Count() int {
	return len(s.records)
}

// ValidID reports whether id names a configured element.
func (s *Store) ValidID(id uint8) bool {
	return int(id) < len(s.records)
}

func (s *Store) at(id uint8) *record {
	if !s.ValidID(id) {
		panic(fmt.Sprintf("element: id %d out of range [0,%d)", id, len(s.records)))
	}
	return &s.records[id]
}

// Get returns a copy of the record for id.
func (s *Store) Get(id uint8) Record {
	r := s.at(id)
	return Record{
		Stamp:    r.stamp,
		Location: r.location,
		Agreeing: sortedIDs(r.agreeing),
	}
}

// Stamp returns the (version, round) pair for id.
func (s *Store) Stamp(id uint8) clock.Stamp {
	return s.at(id).stamp
}

// Location returns the believed location of id.
func (s *Store) Location(id uint8) Point {
	return s.at(id).location
}

// SetVersion overwrites the version of id.
func (s *Store) SetVersion(id uint8, v uint8) {
	s.at(id).stamp.Version = v
}

// SetRound overwrites the round of id.
func (s *Store) SetRound(id uint8, r uint8) {
	s.at(id).stamp.Round = r
}

// SetStamp overwrites both version and round of id.
func (s *Store) SetStamp(id uint8, st clock.Stamp) {
	s.at(id).stamp = st
}

// SetLocation overwrites the believed location of id.
func (s *Store) SetLocation(id uint8, p Point) {
	s.at(id).location = p
}

// MergeAgreeingNodes adds every node in nodes to the agreeing set of id.
func (s *Store) MergeAgreeingNodes(id uint8, nodes []uint32) {
	r := s.at(id)
	for _, n := range nodes {
		r.agreeing[n] = struct{}{}
	}
}

// ReplaceAgreeingNodes sets the agreeing set of id to exactly nodes.
func (s *Store) ReplaceAgreeingNodes(id uint8, nodes []uint32) {
	r := s.at(id)
	r.agreeing = make(map[uint32]struct{}, len(nodes))
	for _, n := range nodes {
		r.agreeing[n] = struct{}{}
	}
}

// AddAgreeingNode adds node to the agreeing set of id and reports whether
// it was newly added.
func (s *Store) AddAgreeingNode(id uint8, node uint32) bool {
	r := s.at(id)
	if _, ok := r.agreeing[node]; ok {
		return false
	}
	r.agreeing[node] = struct{}{}
	return true
}

// ContainsAgreeingNode reports whether node is in the agreeing set of id.
func (s *Store) ContainsAgreeingNode(id uint8, node uint32) bool {
	_, ok := s.at(id).agreeing[node]
	return ok
}

// Agreeing returns the agreeing set of id, sorted ascending.
func (s *Store) Agreeing(id uint8) []uint32 {
	return sortedIDs(s.at(id).agreeing)
}

func sortedIDs(m map[uint32]struct{}) []uint32 {
	ids := make([]uint32, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
