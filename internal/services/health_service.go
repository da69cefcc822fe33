package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"licensegate/pkg/contracts"
	"licensegate/pkg/contracts/domain"
)

// Health statuses
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// SelfTester runs the cipher self-test
type SelfTester interface {
	SelfTest() error
}

// ClientCounter reports connected WebSocket clients
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	cipher    SelfTester
	license   LicenseService
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// NewHealthService creates a new health service. clients may be nil when no
// WebSocket hub runs.
func NewHealthService(cipher SelfTester, license LicenseService, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		cipher:    cipher,
		license:   license,
		clients:   clients,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// Check runs every health check. A failing cipher self-test makes the whole
// service unhealthy; everything else is informational.
func (s *HealthService) Check(ctx context.Context) *domain.HealthResponse {
	resp := &domain.HealthResponse{
		Status:    StatusHealthy,
		Version:   contracts.Version,
		Timestamp: time.Now(),
		Checks:    make(map[string]domain.HealthCheck),
	}

	if err := s.cipher.SelfTest(); err != nil {
		s.logger.ErrorContext(ctx, "license cipher self-test failed", slog.String("error", err.Error()))
		resp.Status = StatusUnhealthy
		resp.Checks["license_cipher"] = domain.HealthCheck{Status: StatusUnhealthy, Message: err.Error()}
	} else {
		resp.Checks["license_cipher"] = domain.HealthCheck{Status: StatusHealthy}
	}

	status := s.license.Status(ctx)
	gateCheck := domain.HealthCheck{
		Status: StatusHealthy,
		Details: map[string]interface{}{
			"state":      status.State,
			"key_source": string(status.KeySource),
		},
	}
	if status.KeySource == domain.KeySourceDefault {
		gateCheck.Status = StatusDegraded
		gateCheck.Message = "built-in license key in use"
		if resp.Status == StatusHealthy {
			resp.Status = StatusDegraded
		}
	}
	resp.Checks["license_gate"] = gateCheck

	stats := s.license.SessionStats()
	resp.Checks["sessions"] = domain.HealthCheck{
		Status: StatusHealthy,
		Details: map[string]interface{}{
			"entries":   stats.Entries,
			"max_size":  stats.MaxSize,
			"evictions": stats.Evictions,
		},
	}

	if s.clients != nil {
		resp.Checks["websocket"] = domain.HealthCheck{
			Status:  StatusHealthy,
			Details: map[string]interface{}{"clients": s.clients.ClientCount()},
		}
	}

	resp.Checks["runtime"] = domain.HealthCheck{
		Status: StatusHealthy,
		Details: map[string]interface{}{
			"uptime_seconds": time.Since(s.startTime).Seconds(),
			"goroutines":     runtime.NumGoroutine(),
			"go_version":     runtime.Version(),
		},
	}

	return resp
}
