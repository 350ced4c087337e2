// Package element provides the local node's record of every configured
// element: its freshness stamp, believed location and the set of nodes
// thought to share that view.
//
// The element set is fixed by configuration. Indexing an element ID outside
// that set is a programming error and panics; callers holding peer input
// check Valid first. A Store is owned by a single node loop and is not safe
// for concurrent use.
package element
