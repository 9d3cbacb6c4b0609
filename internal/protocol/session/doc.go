// Package session pumps control frames over a byte transport.
//
// Ownership boundary:
// - read loop: transport bytes -> frame.Reader -> protocol.Reader -> handler
// - write loop: queued frames -> transport
// - reconnect supervision with backoff
//
// The codec packages below stay free of I/O; this is the only place that
// blocks or runs goroutines.
package session
