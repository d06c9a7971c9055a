// Package transport owns the stream contract consumed by a channel.
//
// Ownership boundary:
// - blocking read/write/flush over one byte stream
// - shutdown that unblocks a read parked in another goroutine
// - adapters for sockets, in-memory buffers and pipes
package transport
