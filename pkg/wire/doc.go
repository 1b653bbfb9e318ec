// Package wire holds the frames exchanged on the push socket: versioned
// envelopes, topic names and the small join/leave control frames. Server and
// client packages share it.
package wire
