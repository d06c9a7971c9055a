// Package channel turns a blocking netstring stream into an ordered,
// flow-controlled message pipe.
//
// Ownership boundary:
// - reader pump: transport -> frame decode -> Inbox
// - writer pump: outbound operation queue -> frame encode -> transport
// - handle API: Send, Flush, SendLast, Clone, Close
//
// Shutdown paths:
// - releasing every handle closes the outbound queue; the writer drains what
//   is already queued, exits, and shuts down the read side of the transport.
// - SendLast sets the shutdown flag, writes and flushes the final message,
//   shuts down the read side and exits the writer. Frames arriving after that
//   point are dropped and the Inbox is closed.
//
// A transport write or flush failure stops the writer pump. Every later
// operation returns a *ClosedError whose cause matches ErrWriteFailure.
package channel
