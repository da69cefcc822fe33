package gate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"licensegate/internal/license"
)

// Session is a per-caller gate opened with a valid token
type Session struct {
	ID        string
	Gate      *Gate
	CreatedAt time.Time
	ExpiresAt time.Time
	HitCount  int
}

// StoreStats reports store usage
type StoreStats struct {
	Entries   int     `json:"entries"`
	MaxSize   int     `json:"max_size"`
	HitCount  int64   `json:"hit_count"`
	MissCount int64   `json:"miss_count"`
	HitRatio  float64 `json:"hit_ratio"`
	Evictions int64   `json:"evictions"`
	TTL       float64 `json:"ttl_seconds"`
}

// Store keeps per-session gates so concurrent callers do not share one
// process-wide latch. Sessions expire after ttl; when maxSize is reached the
// oldest session is evicted.
type Store struct {
	verifier TokenVerifier
	gateOpts []Option
	logger   *slog.Logger
	metrics  *license.Metrics
	now      func() time.Time

	entries   map[string]*Session
	mutex     sync.RWMutex
	ttl       time.Duration
	maxSize   int
	hitCount  int64
	missCount int64
	evictions int64

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewStore creates a session store and starts its cleanup loop. Stop must be
// called to release it.
func NewStore(verifier TokenVerifier, ttl time.Duration, maxSize int, opts ...Option) *Store {
	o := buildOptions(opts)
	s := &Store{
		verifier: verifier,
		gateOpts: opts,
		logger:   o.logger.With(slog.String("component", "license_sessions")),
		metrics:  o.metrics,
		now:      o.now,
		entries:  make(map[string]*Session),
		ttl:      ttl,
		maxSize:  maxSize,
		stopChan: make(chan struct{}),
	}

	go s.cleanup(cleanupInterval(ttl))

	return s
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > time.Minute {
		return time.Minute
	}
	return ttl
}

// Open verifies token on a fresh gate and stores it when the token is valid.
// Invalid tokens never create a session.
func (s *Store) Open(ctx context.Context, token string) (*Session, bool) {
	// Don't store anything if max size is 0
	if s.maxSize <= 0 {
		return nil, false
	}

	g := New(s.verifier, s.gateOpts...)
	if !g.Authorize(ctx, token) {
		return nil, false
	}

	now := s.now()
	sess := &Session{
		ID:        uuid.New().String(),
		Gate:      g,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mutex.Lock()
	if len(s.entries) >= s.maxSize {
		s.evictOldest(ctx)
	}
	s.entries[sess.ID] = sess
	s.mutex.Unlock()

	s.metrics.AddSessions(ctx, 1)
	s.logger.InfoContext(ctx, "license session opened",
		slog.String("session_id", sess.ID),
		slog.String("license_type", g.Snapshot().LicenseType),
		slog.Time("expires_at", sess.ExpiresAt),
	)
	return sess, true
}

// Get returns a live session by id
func (s *Store) Get(id string) (*Session, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sess, exists := s.entries[id]
	if !exists || s.now().After(sess.ExpiresAt) {
		s.missCount++
		return nil, false
	}

	sess.HitCount++
	s.hitCount++
	return sess, true
}

// Close locks and removes a session. It reports whether the session existed.
func (s *Store) Close(ctx context.Context, id string) bool {
	s.mutex.Lock()
	sess, exists := s.entries[id]
	delete(s.entries, id)
	s.mutex.Unlock()

	if !exists {
		return false
	}
	sess.Gate.Lock(ctx)
	s.metrics.AddSessions(ctx, -1)
	s.logger.InfoContext(ctx, "license session closed", slog.String("session_id", id))
	return true
}

// Len returns the number of stored sessions, expired ones included until the
// next cleanup
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.entries)
}

// Stats returns store statistics
func (s *Store) Stats() StoreStats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	total := s.hitCount + s.missCount
	hitRatio := float64(0)
	if total > 0 {
		hitRatio = float64(s.hitCount) / float64(total)
	}

	return StoreStats{
		Entries:   len(s.entries),
		MaxSize:   s.maxSize,
		HitCount:  s.hitCount,
		MissCount: s.missCount,
		HitRatio:  hitRatio,
		Evictions: s.evictions,
		TTL:       s.ttl.Seconds(),
	}
}

// evictOldest drops the session created first. Caller holds the mutex.
func (s *Store) evictOldest(ctx context.Context) {
	var oldest *Session
	for _, sess := range s.entries {
		if oldest == nil || sess.CreatedAt.Before(oldest.CreatedAt) {
			oldest = sess
		}
	}

	if oldest != nil {
		delete(s.entries, oldest.ID)
		s.evictions++
		s.metrics.AddSessions(ctx, -1)
	}
}

// Stop gracefully stops the cleanup goroutine
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// Sweep removes expired sessions and returns how many were dropped
func (s *Store) Sweep(ctx context.Context) int {
	s.mutex.Lock()
	now := s.now()
	removed := 0
	for id, sess := range s.entries {
		if now.After(sess.ExpiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	s.mutex.Unlock()

	if removed > 0 {
		s.metrics.AddSessions(ctx, -int64(removed))
		s.logger.DebugContext(ctx, "expired license sessions removed", slog.Int("count", removed))
	}
	return removed
}

func (s *Store) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopChan:
			return
		}
	}
}
