// Package config holds node configuration: protocol timings, the element
// layout, transport binding and the optional admin, metrics, discovery and
// journal outputs.
package config
