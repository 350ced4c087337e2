// Package transport moves encoded datagrams between nodes.
//
// UDP is the deployed binding: every node listens on one network-wide port
// and either broadcasts or fans out to a known peer list. Hub is an
// in-process exchange for tests and simulation, with an optional
// reachability predicate standing in for radio range.
//
// Delivery is unreliable and unordered in both bindings. A send to an
// unknown or unreachable address is silently lost, as it would be on the
// air.
package transport
