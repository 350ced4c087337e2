// Package it runs whole clusters of nodes in one process over the
// in-memory transport hub.
package it
