// Package telemetry defines the Prometheus metrics a node exports.
package telemetry
