// Package transport owns the TCP link to the panel's integration module.
//
// Transport speaks either the plain frame stream or the encrypted PDU
// stream (selected by the presence of an integration key) and converts
// every I/O failure into a disconnection: the reader and writer are torn
// down and the error is returned, never panicked. Connection wraps a
// Transport with an infinite reconnect loop that only a terminal Close
// can stop.
//
// The socket is shared by exactly two callers: the driver's read loop
// (ReadFrame) and the message queue worker (SendFrame). No other
// component touches it.
package transport
