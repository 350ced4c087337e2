// Package clock provides the freshness stamp that orders two views of the
// same element. A stamp is a (version, round) pair compared
// lexicographically: version dominates, round breaks ties between equal
// versions.
package clock
