// Package websocket pushes license gate events to connected clients.
//
// A Hub owns the set of clients and is registered as a gate listener: every
// authorize or lock of the process gate is broadcast as a "license:gate"
// message. New clients receive a "connect" message carrying the current gate
// state. The feed is read-only; client frames other than heartbeats are
// ignored.
package websocket
