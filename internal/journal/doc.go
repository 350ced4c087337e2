// Package journal records element state transitions as JSON lines and
// summarizes a set of journals into per-node acknowledgement counts and
// time to convergence.
package journal
