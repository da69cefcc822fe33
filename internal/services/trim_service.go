package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"licensegate/internal/gate"
	"licensegate/pkg/contracts/domain"
)

// OperationTrim names the trim operation in gate decisions and metrics
const OperationTrim = "trim"

// Guard admits or denies a gated operation
type Guard interface {
	Require(ctx context.Context, operation string) (gate.Grant, error)
}

// TrimService runs the gated trim operation
type TrimService struct {
	guard  Guard
	logger *slog.Logger
}

// NewTrimService creates a trim service guarded by the process gate
func NewTrimService(guard Guard, logger *slog.Logger) *TrimService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrimService{
		guard:  guard,
		logger: logger.With(slog.String("service", "trim")),
	}
}

// Trim removes leading and trailing whitespace from value once the process
// gate admits the call. A locked gate yields gate.ErrNotAuthorized.
func (s *TrimService) Trim(ctx context.Context, value string) (*domain.TrimResponse, error) {
	return s.TrimWith(ctx, s.guard, value)
}

// TrimWith is Trim guarded by an explicit gate, e.g. a session gate
func (s *TrimService) TrimWith(ctx context.Context, guard Guard, value string) (*domain.TrimResponse, error) {
	grant, err := guard.Require(ctx, OperationTrim)
	if err != nil {
		return nil, fmt.Errorf("trim: %w", err)
	}

	trimmed := strings.TrimSpace(value)
	s.logger.DebugContext(ctx, "trim completed",
		slog.Int("input_length", len(value)),
		slog.Int("output_length", len(trimmed)),
	)

	return &domain.TrimResponse{Value: trimmed, LicenseType: grant.LicenseType}, nil
}
