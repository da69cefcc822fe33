// Package domain contains the request and response models shared by the
// license gate HTTP API, its clients and the WebSocket feed.
package domain

import (
	"time"
)

// AuthorizeRequest submits a license token to the process gate
type AuthorizeRequest struct {
	Token string `json:"token" validate:"required,max=8192"`
}

// AuthorizeResponse is the verdict of an authorize call. A malformed token
// yields Valid false, never an error.
type AuthorizeResponse struct {
	Valid       bool   `json:"valid"`
	LicenseType string `json:"license_type,omitempty"`
}

// KeySource tells whether the verifier runs on the built-in key
type KeySource string

const (
	KeySourceDefault    KeySource = "default"
	KeySourceConfigured KeySource = "configured"
)

// GateStatus reports the process gate
type GateStatus struct {
	State       string    `json:"state"`
	Authorized  bool      `json:"authorized"`
	LicenseType string    `json:"license_type,omitempty"`
	ChangedAt   time.Time `json:"changed_at"`
	CheckedAt   time.Time `json:"checked_at,omitempty"`
	KeySource   KeySource `json:"key_source"`
}

// TrimRequest carries the text for the gated trim operation. Value must be
// present but may be empty.
type TrimRequest struct {
	Value *string `json:"value" validate:"required"`
}

// TrimResponse holds the trimmed text
type TrimResponse struct {
	Value       string `json:"value"`
	LicenseType string `json:"license_type,omitempty"`
}

// OpenSessionRequest opens a per-session gate with a license token
type OpenSessionRequest struct {
	Token string `json:"token" validate:"required,max=8192"`
}

// SessionResponse describes a per-session gate
type SessionResponse struct {
	SessionID   string    `json:"session_id"`
	State       string    `json:"state"`
	LicenseType string    `json:"license_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]HealthCheck `json:"checks"`
}

// HealthCheck is one component of the health report
type HealthCheck struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
