package license

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	TracerName = "license-verifier"
	MeterName  = "license-verifier"
)

// Metrics holds the license-specific OpenTelemetry instruments. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Verifications        metric.Int64Counter
	VerificationDuration metric.Float64Histogram
	GateTransitions      metric.Int64Counter
	GatedOperations      metric.Int64Counter
	SessionsActive       metric.Int64UpDownCounter
}

// InitializeMetrics creates all license instruments on the given meter
func InitializeMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.Verifications, err = meter.Int64Counter(
		"license_verifications_total",
		metric.WithDescription("Total number of license token verifications"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create verifications counter: %w", err)
	}

	m.VerificationDuration, err = meter.Float64Histogram(
		"license_verification_duration_seconds",
		metric.WithDescription("License token verification duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create verification duration histogram: %w", err)
	}

	m.GateTransitions, err = meter.Int64Counter(
		"license_gate_transitions_total",
		metric.WithDescription("Total number of session gate state changes"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gate transitions counter: %w", err)
	}

	m.GatedOperations, err = meter.Int64Counter(
		"license_gated_operations_total",
		metric.WithDescription("Total number of gated operation invocations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gated operations counter: %w", err)
	}

	m.SessionsActive, err = meter.Int64UpDownCounter(
		"license_sessions_active",
		metric.WithDescription("Number of live per-session gates"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions gauge: %w", err)
	}

	return m, nil
}

func (m *Metrics) recordVerification(ctx context.Context, result, reason string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("result", result),
		attribute.String("reason", reason),
	)
	m.Verifications.Add(ctx, 1, attrs)
	m.VerificationDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("result", result)))
}

// RecordTransition counts a gate state change
func (m *Metrics) RecordTransition(ctx context.Context, to string) {
	if m == nil {
		return
	}
	m.GateTransitions.Add(ctx, 1, metric.WithAttributes(attribute.String("to", to)))
}

// RecordGatedOperation counts a gated call, result is "allowed" or "denied"
func (m *Metrics) RecordGatedOperation(ctx context.Context, operation, result string) {
	if m == nil {
		return
	}
	m.GatedOperations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("result", result),
	))
}

// AddSessions moves the live session gauge by delta
func (m *Metrics) AddSessions(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.SessionsActive.Add(ctx, delta)
}
