package testutil

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"licensegate/internal/license"
)

// TestKeyHex is the deployment key the fixtures sign with
const TestKeyHex = "000102030405060708090a0b0c0d0e0f"

// TokenFixtures issues license tokens relative to a fixed clock
type TokenFixtures struct {
	t      *testing.T
	Key    []byte
	Issuer *license.Issuer
	Now    time.Time
}

// NewTokenFixtures creates fixtures signed with TestKeyHex and anchored at
// the current time
func NewTokenFixtures(t *testing.T) *TokenFixtures {
	t.Helper()
	key, err := license.ParseKey(TestKeyHex)
	require.NoError(t, err)
	issuer, err := license.NewIssuer(key)
	require.NoError(t, err)
	return &TokenFixtures{t: t, Key: key, Issuer: issuer, Now: time.Now()}
}

// IssuedAt returns a token for email with the given type created at createdAt
func (f *TokenFixtures) IssuedAt(createdAt time.Time, licenseType string) string {
	f.t.Helper()
	token, err := f.Issuer.Issue("licensee@example.com", createdAt, licenseType)
	require.NoError(f.t, err)
	return token
}

// Valid returns a token issued a day before Now
func (f *TokenFixtures) Valid(licenseType string) string {
	return f.IssuedAt(f.Now.Add(-24*time.Hour), licenseType)
}

// Expired returns a token issued just over a year before Now
func (f *TokenFixtures) Expired() string {
	age := time.Duration(license.OneYearMillis)*time.Millisecond + time.Hour
	return f.IssuedAt(f.Now.Add(-age), "pro")
}

// Future returns a token whose created_at is after Now
func (f *TokenFixtures) Future() string {
	return f.IssuedAt(f.Now.Add(time.Hour), "pro")
}

// Forged returns a well-formed token whose license type was changed after
// signing
func (f *TokenFixtures) Forged() string {
	f.t.Helper()
	ms := uint64(f.Now.Add(-time.Hour).UnixMilli())
	sign, err := f.Issuer.Sign("licensee@example.com", ms, "basic")
	require.NoError(f.t, err)
	token, err := license.Encode(license.Token{
		Email:       "licensee@example.com",
		CreatedAt:   ms,
		LicenseType: "enterprise",
		Sign:        sign,
	})
	require.NoError(f.t, err)
	return token
}

// WrongKey returns a valid-looking token signed with the built-in key
func (f *TokenFixtures) WrongKey() string {
	f.t.Helper()
	issuer, err := license.NewIssuer(nil)
	require.NoError(f.t, err)
	token, err := issuer.Issue("licensee@example.com", f.Now.Add(-time.Hour), "pro")
	require.NoError(f.t, err)
	return token
}

// Malformed returns tokens that fail to decode, keyed by what is wrong
func (f *TokenFixtures) Malformed() map[string]string {
	enc := base64.StdEncoding.EncodeToString
	return map[string]string{
		"not base64":      "%%%not-base64%%%",
		"not json":        enc([]byte("plain text")),
		"missing sign":    enc([]byte(`{"email":"a@b.com","created_at":1,"license_type":"pro"}`)),
		"sign not hex":    enc([]byte(`{"email":"a@b.com","created_at":1,"license_type":"pro","sign":"zz"}`)),
		"short signature": enc([]byte(`{"email":"a@b.com","created_at":1,"license_type":"pro","sign":"00ff"}`)),
		"empty":           "",
	}
}
