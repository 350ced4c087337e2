// Package engine implements the convergence protocol for one node.
//
// Each element moves through three states: uninitialized (round 0),
// settling (round > 0, contactable) and converged locally (no fresher peer
// known). BeginAgreement runs when an element comes into range or a peer
// advertises a fresher stamp for a nearby element. It either seeds the
// round, or pulls the fresher view from the best peer with REQUEST_DATA.
// The view then arrives as SEND_DATA and is acknowledged with ACK.
//
// An Engine is not safe for concurrent use. The node runtime calls every
// entry point from a single goroutine.
package engine
