// Package wire defines the four datagram kinds exchanged between nodes
// (advertisement, data request, data response, acknowledgment) and their
// fixed little-endian encoding.
//
// Messages form a closed set: every kind implements Message through an
// unexported method, and Dispatch routes a decoded message to exactly one
// Handler method. Adding a kind therefore means extending Handler, which
// breaks every implementation until it handles the new kind.
package wire
