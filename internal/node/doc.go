// Package node runs one protocol participant: a single goroutine owns the
// engine state and executes every event (timer ticks, inbound datagrams,
// inspection requests) to completion, one at a time.
package node
