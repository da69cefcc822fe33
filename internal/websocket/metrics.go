package websocket

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the WebSocket instruments. A nil *Metrics records nothing.
type Metrics struct {
	connectionsTotal  metric.Int64Counter
	connectionsActive metric.Int64UpDownCounter
	messagesSent      metric.Int64Counter
	droppedMessages   metric.Int64Counter
}

// NewMetrics creates the WebSocket instruments on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	connectionsTotal, err := meter.Int64Counter(
		"websocket_connections_total",
		metric.WithDescription("Total number of WebSocket connections"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create connections counter: %w", err)
	}

	connectionsActive, err := meter.Int64UpDownCounter(
		"websocket_connections_active",
		metric.WithDescription("Number of active WebSocket connections"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active connections gauge: %w", err)
	}

	messagesSent, err := meter.Int64Counter(
		"websocket_messages_sent_total",
		metric.WithDescription("Total number of WebSocket messages queued to clients"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create messages counter: %w", err)
	}

	droppedMessages, err := meter.Int64Counter(
		"websocket_dropped_messages_total",
		metric.WithDescription("Total number of dropped WebSocket messages"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dropped messages counter: %w", err)
	}

	return &Metrics{
		connectionsTotal:  connectionsTotal,
		connectionsActive: connectionsActive,
		messagesSent:      messagesSent,
		droppedMessages:   droppedMessages,
	}, nil
}

func (m *Metrics) recordConnect(ctx context.Context) {
	if m == nil {
		return
	}
	m.connectionsTotal.Add(ctx, 1)
	m.connectionsActive.Add(ctx, 1)
}

func (m *Metrics) recordDisconnect(ctx context.Context) {
	if m == nil {
		return
	}
	m.connectionsActive.Add(ctx, -1)
}

func (m *Metrics) recordSent(ctx context.Context, messageType string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.messagesSent.Add(ctx, int64(n), metric.WithAttributes(attribute.String("type", messageType)))
}

func (m *Metrics) recordDropped(ctx context.Context, where string) {
	if m == nil {
		return
	}
	m.droppedMessages.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", where)))
}
