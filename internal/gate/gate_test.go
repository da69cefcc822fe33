package gate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"licensegate/internal/license"
)

// MockVerifier implements TokenVerifier for testing
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifyToken(ctx context.Context, raw string) license.Result {
	args := m.Called(ctx, raw)
	return args.Get(0).(license.Result)
}

func newMockVerifier() *MockVerifier {
	m := &MockVerifier{}
	m.On("VerifyToken", mock.Anything, "good").Return(license.Result{Valid: true, LicenseType: "pro"})
	m.On("VerifyToken", mock.Anything, "bad").Return(license.Result{Valid: false})
	return m
}

func TestGate_StartsLocked(t *testing.T) {
	g := New(newMockVerifier())

	snap := g.Snapshot()
	assert.Equal(t, Locked, snap.State)
	assert.Empty(t, snap.LicenseType)

	_, err := g.Require(context.Background(), "trim")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestGate_AuthorizeUnlocks(t *testing.T) {
	ctx := context.Background()
	g := New(newMockVerifier())

	require.True(t, g.Authorize(ctx, "good"))

	snap := g.Snapshot()
	assert.Equal(t, Unlocked, snap.State)
	assert.Equal(t, "pro", snap.LicenseType)

	grant, err := g.Require(ctx, "trim")
	require.NoError(t, err)
	assert.Equal(t, "pro", grant.LicenseType)
}

func TestGate_InvalidTokenRelocks(t *testing.T) {
	ctx := context.Background()
	g := New(newMockVerifier())

	require.True(t, g.Authorize(ctx, "good"))
	assert.False(t, g.Authorize(ctx, "bad"))

	snap := g.Snapshot()
	assert.Equal(t, Locked, snap.State)
	assert.Empty(t, snap.LicenseType)

	_, err := g.Require(ctx, "trim")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// and back again
	assert.True(t, g.Authorize(ctx, "good"))
	assert.Equal(t, Unlocked, g.Snapshot().State)
}

func TestGate_TimestampsAndListeners(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	g := New(newMockVerifier(), WithClock(func() time.Time { return now }))

	var events []Event
	g.OnTransition(func(_ context.Context, ev Event) { events = append(events, ev) })

	now = now.Add(time.Minute)
	g.Authorize(ctx, "good")
	changed := g.Snapshot().ChangedAt

	now = now.Add(time.Minute)
	g.Authorize(ctx, "good")
	snap := g.Snapshot()
	assert.Equal(t, changed, snap.ChangedAt, "re-confirming does not move ChangedAt")
	assert.Equal(t, now, snap.CheckedAt)

	now = now.Add(time.Minute)
	g.Lock(ctx)

	require.Len(t, events, 3)
	assert.Equal(t, Event{From: Locked, To: Unlocked, LicenseType: "pro", At: changed}, events[0])
	assert.Equal(t, Unlocked, events[1].From)
	assert.Equal(t, Unlocked, events[1].To)
	assert.Equal(t, Locked, events[2].To)
}

func TestGate_LockWhenLockedIsSilent(t *testing.T) {
	g := New(newMockVerifier())
	called := false
	g.OnTransition(func(context.Context, Event) { called = true })

	g.Lock(context.Background())
	assert.False(t, called)
}

func TestGate_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	g := New(newMockVerifier())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				g.Authorize(ctx, "good")
			} else {
				g.Authorize(ctx, "bad")
			}
		}(i)
		go func() {
			defer wg.Done()
			_, _ = g.Require(ctx, "trim")
			_ = g.Snapshot()
		}()
	}
	wg.Wait()

	g.Authorize(ctx, "bad")
	assert.Equal(t, Locked, g.Snapshot().State)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "locked", Locked.String())
	assert.Equal(t, "unlocked", Unlocked.String())
}
