// Package protocol groups wire framing primitives.
//
// Ownership boundary:
// - netstring: length-prefixed text frames and their decode limits
package protocol
