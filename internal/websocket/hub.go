package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"licensegate/internal/gate"
	"licensegate/internal/infrastructure"
	"licensegate/pkg/contracts/events"
)

// broadcastBuffer bounds the queue between gate listeners and the hub loop
const broadcastBuffer = 64

type outbound struct {
	messageType events.MessageType
	data        []byte
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu      sync.RWMutex
	status  StatusSource
	metrics *Metrics
	logger  *slog.Logger

	dropped atomic.Int64
}

// NewHub creates a hub that greets clients with the state of status
func NewHub(status StatusSource, metrics *Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan outbound, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		status:     status,
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, after
// closing every client's send channel. Run must be called at most once.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.InfoContext(ctx, "Hub shutting down")
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()

			cctx := client.context()
			h.metrics.recordConnect(cctx)
			h.logger.InfoContext(cctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			h.greet(cctx, client)

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			if ok {
				cctx := client.context()
				h.metrics.recordDisconnect(cctx)
				h.logger.InfoContext(cctx, "Client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			}

		case msg := <-h.broadcast:
			h.fanOut(ctx, msg)
		}
	}
}

// fanOut queues msg on every client. Clients whose buffer is full are
// disconnected.
func (h *Hub) fanOut(ctx context.Context, msg outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for client := range h.clients {
		select {
		case client.send <- msg.data:
			sent++
		default:
			close(client.send)
			delete(h.clients, client)
			h.metrics.recordDropped(ctx, "client")
			h.metrics.recordDisconnect(ctx)
			h.logger.WarnContext(client.context(), "Client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}

	h.metrics.recordSent(ctx, string(msg.messageType), sent)
	h.logger.DebugContext(ctx, "Broadcast message to clients",
		slog.String("type", string(msg.messageType)),
		slog.Int("client_count", sent),
		slog.Int("message_size", len(msg.data)))
}

// greet sends the connect message carrying the current gate state
func (h *Hub) greet(ctx context.Context, client *Client) {
	payload := events.ConnectPayload{ClientID: client.id, State: gate.Locked.String()}
	if h.status != nil {
		snap := h.status.Snapshot()
		payload.State = snap.State.String()
		payload.LicenseType = snap.LicenseType
	}

	data, err := encode(events.MessageTypeConnect, client.traceID, time.Now(), payload)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling connect message", slog.String("error", err.Error()))
		return
	}

	select {
	case client.send <- data:
		h.metrics.recordSent(ctx, string(events.MessageTypeConnect), 1)
	default:
		h.logger.WarnContext(ctx, "Failed to send connect message - client buffer full",
			slog.String("client_id", client.id))
	}
}

// OnGateEvent is a gate.Listener that broadcasts ev. It never blocks; events
// are dropped when the hub queue is full or the hub has stopped.
func (h *Hub) OnGateEvent(ctx context.Context, ev gate.Event) {
	data, err := encode(events.MessageTypeGateEvent, infrastructure.GetTraceID(ctx), ev.At, events.GateEvent{
		From:        ev.From.String(),
		To:          ev.To.String(),
		Changed:     ev.From != ev.To,
		LicenseType: ev.LicenseType,
		At:          ev.At,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling gate event", slog.String("error", err.Error()))
		return
	}
	h.enqueue(ctx, outbound{messageType: events.MessageTypeGateEvent, data: data})
}

func (h *Hub) enqueue(ctx context.Context, msg outbound) {
	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Add(1)
		h.metrics.recordDropped(ctx, "hub")
		h.logger.WarnContext(ctx, "Hub broadcast queue full, dropping message",
			slog.String("type", string(msg.messageType)))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many broadcasts were discarded because the queue was full
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Register adds a client to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func encode(messageType events.MessageType, traceID string, at time.Time, data interface{}) ([]byte, error) {
	return json.Marshal(events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			ID:        uuid.New().String(),
			Type:      messageType,
			Timestamp: at,
			TraceID:   traceID,
		},
		Data: data,
	})
}
