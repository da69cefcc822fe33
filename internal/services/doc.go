// Package services implements the business logic behind the HTTP handlers.
// Handlers decode and validate requests; services talk to the license gate,
// the session store and the gated operations, and return contract types.
//
// # Available Services
//
//	- LicenseService: authorizes the process gate and manages per-session gates
//	- TrimService: the gated trim operation
//	- HealthService: reports the cipher self-test, gate and session health
//
// # Error Handling
//
// Services return the domain sentinels (gate.ErrNotAuthorized,
// gate.ErrSessionNotFound, license.ErrInvalidToken) wrapped with context.
// The internal/errors package maps them to problem documents.
package services
