// Package discovery publishes node datagram addresses in etcd under a
// shared prefix and watches that prefix, so nodes without broadcast can
// fan out advertisements to everyone currently registered.
package discovery
