package services

import (
	"context"
	"fmt"
	"log/slog"

	"licensegate/internal/gate"
	"licensegate/internal/license"
	"licensegate/pkg/contracts/domain"
)

// ProcessGate is the process-wide gate as seen by the license service
type ProcessGate interface {
	Authorize(ctx context.Context, token string) bool
	Snapshot() gate.Snapshot
}

// SessionStore is the per-session gate store as seen by the license service
type SessionStore interface {
	Open(ctx context.Context, token string) (*gate.Session, bool)
	Get(id string) (*gate.Session, bool)
	Close(ctx context.Context, id string) bool
	Stats() gate.StoreStats
}

// LicenseService authorizes gates and manages license sessions
type LicenseService interface {
	Authorize(ctx context.Context, token string) *domain.AuthorizeResponse
	Status(ctx context.Context) *domain.GateStatus
	OpenSession(ctx context.Context, token string) (*domain.SessionResponse, error)
	GetSession(ctx context.Context, id string) (*domain.SessionResponse, error)
	CloseSession(ctx context.Context, id string) error
	SessionGate(ctx context.Context, id string) (*gate.Gate, error)
	SessionStats() gate.StoreStats
}

// licenseService implements LicenseService
type licenseService struct {
	gate      ProcessGate
	sessions  SessionStore
	keySource domain.KeySource
	logger    *slog.Logger
}

// NewLicenseService creates a license service. usesDefaultKey selects the
// key source reported by Status.
func NewLicenseService(g ProcessGate, sessions SessionStore, usesDefaultKey bool, logger *slog.Logger) LicenseService {
	if logger == nil {
		logger = slog.Default()
	}
	keySource := domain.KeySourceConfigured
	if usesDefaultKey {
		keySource = domain.KeySourceDefault
	}
	return &licenseService{
		gate:      g,
		sessions:  sessions,
		keySource: keySource,
		logger:    logger.With(slog.String("service", "license")),
	}
}

// Authorize runs the token through the process gate. Every call re-evaluates
// the gate; an invalid token locks it again.
func (s *licenseService) Authorize(ctx context.Context, token string) *domain.AuthorizeResponse {
	valid := s.gate.Authorize(ctx, token)

	resp := &domain.AuthorizeResponse{Valid: valid}
	if valid {
		resp.LicenseType = s.gate.Snapshot().LicenseType
	}

	s.logger.InfoContext(ctx, "license authorize completed",
		slog.String("operation", "authorize"),
		slog.Bool("valid", valid),
		slog.String("token_hash", license.TokenFingerprint(token)),
	)
	return resp
}

// Status reports the process gate
func (s *licenseService) Status(ctx context.Context) *domain.GateStatus {
	snap := s.gate.Snapshot()
	return &domain.GateStatus{
		State:       snap.State.String(),
		Authorized:  snap.State == gate.Unlocked,
		LicenseType: snap.LicenseType,
		ChangedAt:   snap.ChangedAt,
		CheckedAt:   snap.CheckedAt,
		KeySource:   s.keySource,
	}
}

// OpenSession opens a per-session gate. An invalid token, or a store that
// holds no sessions, yields license.ErrInvalidToken.
func (s *licenseService) OpenSession(ctx context.Context, token string) (*domain.SessionResponse, error) {
	sess, ok := s.sessions.Open(ctx, token)
	if !ok {
		return nil, fmt.Errorf("open session: %w", license.ErrInvalidToken)
	}
	return sessionResponse(sess), nil
}

// GetSession describes a live session
func (s *licenseService) GetSession(ctx context.Context, id string) (*domain.SessionResponse, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, gate.ErrSessionNotFound)
	}
	return sessionResponse(sess), nil
}

// CloseSession locks and drops a session
func (s *licenseService) CloseSession(ctx context.Context, id string) error {
	if !s.sessions.Close(ctx, id) {
		return fmt.Errorf("session %s: %w", id, gate.ErrSessionNotFound)
	}
	return nil
}

// SessionGate returns the gate of a live session for gated operations
func (s *licenseService) SessionGate(ctx context.Context, id string) (*gate.Gate, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, gate.ErrSessionNotFound)
	}
	return sess.Gate, nil
}

// SessionStats returns session store statistics
func (s *licenseService) SessionStats() gate.StoreStats {
	return s.sessions.Stats()
}

func sessionResponse(sess *gate.Session) *domain.SessionResponse {
	snap := sess.Gate.Snapshot()
	return &domain.SessionResponse{
		SessionID:   sess.ID,
		State:       snap.State.String(),
		LicenseType: snap.LicenseType,
		CreatedAt:   sess.CreatedAt,
		ExpiresAt:   sess.ExpiresAt,
	}
}
