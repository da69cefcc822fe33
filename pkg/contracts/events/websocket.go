// Package events contains the WebSocket message contracts for license gate
// notifications.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeGateEvent is sent after every authorize or lock of the
	// process gate
	MessageTypeGateEvent MessageType = "license:gate"

	// Connection messages
	MessageTypeConnect MessageType = "connect"
	MessageTypeError   MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// GateEvent is the payload of a license:gate message
type GateEvent struct {
	From        string    `json:"from"`
	To          string    `json:"to"`
	Changed     bool      `json:"changed"`
	LicenseType string    `json:"license_type,omitempty"`
	At          time.Time `json:"at"`
}

// ConnectPayload greets a new client with the current gate state
type ConnectPayload struct {
	ClientID    string `json:"client_id"`
	State       string `json:"state"`
	LicenseType string `json:"license_type,omitempty"`
}

// ErrorPayload describes a protocol error
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
