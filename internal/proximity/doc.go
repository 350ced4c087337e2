// Package proximity tracks which elements are near the node. Only the edge
// where an element enters range triggers work; staying in range or leaving
// it does not.
package proximity
