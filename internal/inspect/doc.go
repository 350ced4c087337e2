// Package inspect serves a node's protocol state over gRPC for operators
// and tests. The server registers the standard health service, reflection
// and a single unary method, localgroup.v1.Inspector/Snapshot, which takes
// google.protobuf.Empty and returns the state as a google.protobuf.Struct.
package inspect
