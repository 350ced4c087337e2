// Package gossip holds the local group: the membership table of peers heard
// from recently, with the freshness stamps each one last advertised, and the
// scheduler that drives periodic advertisement and heartbeat pruning.
//
// Limitations:
// - Liveness is heartbeat-only; there is no indirect probing or suspicion
// - Peers are forgotten immediately on timeout, without notification
// - The table is owned by one node loop and is not safe for concurrent use
package gossip
