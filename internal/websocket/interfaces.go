package websocket

import (
	"net"
	"time"

	"licensegate/internal/gate"
)

// Connection is the part of *websocket.Conn the client pumps use.
// It allows for proper mocking in tests.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	RemoteAddr() net.Addr
}

// StatusSource reports the gate state sent to new clients
type StatusSource interface {
	Snapshot() gate.Snapshot
}
