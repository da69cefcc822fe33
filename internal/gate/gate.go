package gate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"licensegate/internal/license"
)

var (
	// ErrNotAuthorized is returned by Require while the gate is locked
	ErrNotAuthorized = errors.New("license not authorized")
	// ErrSessionNotFound is returned for unknown or expired session ids
	ErrSessionNotFound = errors.New("license session not found")
)

// State is the gate position
type State int

const (
	Locked State = iota
	Unlocked
)

// String returns the state name used in logs, metrics and API responses
func (s State) String() string {
	if s == Unlocked {
		return "unlocked"
	}
	return "locked"
}

// TokenVerifier is the part of license.Verifier the gate depends on
type TokenVerifier interface {
	VerifyToken(ctx context.Context, raw string) license.Result
}

// Grant is handed to a gated operation that is allowed to run
type Grant struct {
	LicenseType string
}

// Snapshot is a point-in-time copy of the gate
type Snapshot struct {
	State       State
	LicenseType string
	ChangedAt   time.Time
	CheckedAt   time.Time
}

// Event describes one authorize call that moved or re-confirmed the gate
type Event struct {
	From        State
	To          State
	LicenseType string
	At          time.Time
}

// Listener receives gate events. Listeners run synchronously after the gate
// lock is released and must not block.
type Listener func(ctx context.Context, ev Event)

type options struct {
	logger  *slog.Logger
	metrics *license.Metrics
	now     func() time.Time
}

// Option configures a Gate or a Store
type Option func(*options)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records transitions and gated calls on m
func WithMetrics(m *license.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock overrides the time source used for timestamps and expiry
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Gate is a latch in front of licensed operations. It starts Locked; every
// Authorize call re-evaluates the token and sets the state from scratch.
type Gate struct {
	verifier TokenVerifier
	logger   *slog.Logger
	metrics  *license.Metrics
	now      func() time.Time

	mu          sync.RWMutex
	state       State
	licenseType string
	changedAt   time.Time
	checkedAt   time.Time

	listenerMu sync.RWMutex
	listeners  []Listener
}

// New creates a locked gate backed by verifier
func New(verifier TokenVerifier, opts ...Option) *Gate {
	o := buildOptions(opts)
	return &Gate{
		verifier:  verifier,
		logger:    o.logger.With(slog.String("component", "license_gate")),
		metrics:   o.metrics,
		now:       o.now,
		state:     Locked,
		changedAt: o.now(),
	}
}

// Authorize verifies token and moves the gate to Unlocked when it is valid,
// Locked otherwise. It returns the verification verdict.
func (g *Gate) Authorize(ctx context.Context, token string) bool {
	res := g.verifier.VerifyToken(ctx, token)

	to := Locked
	licenseType := ""
	if res.Valid {
		to = Unlocked
		licenseType = res.LicenseType
	}

	now := g.now()
	g.mu.Lock()
	from := g.state
	g.state = to
	g.licenseType = licenseType
	g.checkedAt = now
	if from != to {
		g.changedAt = now
	}
	g.mu.Unlock()

	if from != to {
		g.metrics.RecordTransition(ctx, to.String())
		g.logger.InfoContext(ctx, "license gate transition",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
			slog.String("license_type", licenseType),
		)
	}

	g.notify(ctx, Event{From: from, To: to, LicenseType: licenseType, At: now})
	return res.Valid
}

// Lock moves the gate to Locked without a verification
func (g *Gate) Lock(ctx context.Context) {
	now := g.now()
	g.mu.Lock()
	from := g.state
	g.state = Locked
	g.licenseType = ""
	if from != Locked {
		g.changedAt = now
	}
	g.mu.Unlock()

	if from != Locked {
		g.metrics.RecordTransition(ctx, Locked.String())
		g.notify(ctx, Event{From: from, To: Locked, At: now})
	}
}

// Require returns a Grant when the gate is unlocked and ErrNotAuthorized
// otherwise. It never panics; the caller decides how fatal a denial is.
func (g *Gate) Require(ctx context.Context, operation string) (Grant, error) {
	g.mu.RLock()
	state, licenseType := g.state, g.licenseType
	g.mu.RUnlock()

	if state != Unlocked {
		g.metrics.RecordGatedOperation(ctx, operation, "denied")
		g.logger.WarnContext(ctx, "gated operation denied",
			slog.String("operation", operation),
			slog.String("state", state.String()),
		)
		return Grant{}, ErrNotAuthorized
	}

	g.metrics.RecordGatedOperation(ctx, operation, "allowed")
	return Grant{LicenseType: licenseType}, nil
}

// Snapshot returns the current state
func (g *Gate) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return Snapshot{
		State:       g.state,
		LicenseType: g.licenseType,
		ChangedAt:   g.changedAt,
		CheckedAt:   g.checkedAt,
	}
}

// OnTransition registers l for every subsequent Authorize or Lock event
func (g *Gate) OnTransition(l Listener) {
	g.listenerMu.Lock()
	defer g.listenerMu.Unlock()
	g.listeners = append(g.listeners, l)
}

func (g *Gate) notify(ctx context.Context, ev Event) {
	g.listenerMu.RLock()
	listeners := append([]Listener(nil), g.listeners...)
	g.listenerMu.RUnlock()

	for _, l := range listeners {
		l(ctx, ev)
	}
}
