package license

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer_IssueUsesMilliseconds(t *testing.T) {
	issuer, err := NewIssuer(nil)
	require.NoError(t, err)

	created := time.Date(2024, 3, 1, 12, 0, 0, 5_000_000, time.UTC)
	raw, err := issuer.Issue("a@b.com", created, "pro")
	require.NoError(t, err)

	tok, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(created.UnixMilli()), tok.CreatedAt)
	assert.Len(t, tok.Sign, 32)
}

func TestIssuer_RejectsPreEpoch(t *testing.T) {
	issuer, err := NewIssuer(nil)
	require.NoError(t, err)

	_, err = issuer.Issue("a@b.com", time.Unix(-10, 0), "pro")
	assert.Error(t, err)
}

func TestIssuer_InvalidKey(t *testing.T) {
	_, err := NewIssuer(make([]byte, 24))
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestIssuer_SignIsDeterministic(t *testing.T) {
	issuer, err := NewIssuer(testKey)
	require.NoError(t, err)

	a, err := issuer.Sign("a@b.com", 1000, "pro")
	require.NoError(t, err)
	b, err := issuer.Sign("a@b.com", 1000, "pro")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := issuer.Sign("a@b.com", 1001, "pro")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestSelfTest(t *testing.T) {
	assert.NoError(t, SelfTest(DefaultKey))
	assert.NoError(t, SelfTest(testKey))
	assert.ErrorIs(t, SelfTest([]byte("short")), ErrInvalidKeySize)
}
