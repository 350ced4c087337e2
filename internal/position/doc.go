// Package position supplies the node's current 2-D position.
package position
