package license

import (
	"bytes"
	"context"
	"crypto/subtle"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OneYearMillis is the validity window of a token, measured from created_at
const OneYearMillis int64 = 1000 * 60 * 60 * 24 * 365

// Result is the outcome of a single verification
type Result struct {
	Valid       bool
	LicenseType string
}

// Verifier checks license tokens against a shared symmetric key
type Verifier struct {
	key     []byte
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures a Verifier
type Option func(*Verifier)

// WithLogger sets the logger used for verification audit entries
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithMetrics records verification outcomes on the given instruments
func WithMetrics(m *Metrics) Option {
	return func(v *Verifier) { v.metrics = m }
}

// WithClock overrides the time source used by VerifyToken
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVerifier creates a verifier for the given 16-byte key. A nil key selects
// DefaultKey.
func NewVerifier(key []byte, opts ...Option) (*Verifier, error) {
	if key == nil {
		key = DefaultKey
	}
	if len(key) != BlockSize {
		return nil, ErrInvalidKeySize
	}

	v := &Verifier{
		key:    append([]byte(nil), key...),
		logger: slog.Default(),
		tracer: otel.Tracer(TracerName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With(slog.String("component", "license_verifier"))
	return v, nil
}

// UsesDefaultKey reports whether the verifier holds the compiled-in key
func (v *Verifier) UsesDefaultKey() bool {
	return bytes.Equal(v.key, DefaultKey)
}

// SelfTest runs the block cipher self-test under the verifier's key
func (v *Verifier) SelfTest() error {
	return SelfTest(v.key)
}

// Verify checks the signature and validity window of a decoded token at now.
// It is pure: no logging, no metrics.
func (v *Verifier) Verify(tok Token, now time.Time) Result {
	res, _ := v.check(tok, now)
	return res
}

// VerifyToken decodes and verifies a raw token at the verifier's current
// time. Malformed tokens, forged signatures and expired tokens all collapse
// into Valid == false; the reason is only logged.
func (v *Verifier) VerifyToken(ctx context.Context, raw string) Result {
	ctx, span := v.tracer.Start(ctx, "license.verify")
	defer span.End()

	start := time.Now()
	res, reason, tok := v.verifyRaw(raw)
	duration := time.Since(start)

	outcome := "valid"
	if !res.Valid {
		outcome = "invalid"
	}

	span.SetAttributes(
		attribute.Bool("license.valid", res.Valid),
		attribute.String("license.type", res.LicenseType),
	)
	if !res.Valid {
		span.SetStatus(codes.Error, "license verification failed")
	} else {
		span.SetStatus(codes.Ok, "license verified")
	}

	v.metrics.recordVerification(ctx, outcome, reason, duration)

	attrs := []slog.Attr{
		slog.String("result", outcome),
		slog.String("token_hash", hashToken(raw)),
		slog.Duration("duration", duration),
	}
	if tok != nil {
		attrs = append(attrs,
			slog.String("user_email_masked", maskEmail(tok.Email)),
			slog.String("license_type", tok.LicenseType),
		)
	}
	if res.Valid {
		v.logger.LogAttrs(ctx, slog.LevelInfo, "license verified", attrs...)
	} else {
		attrs = append(attrs, slog.String("reason", reason))
		v.logger.LogAttrs(ctx, slog.LevelWarn, "license rejected", attrs...)
	}

	return res
}

func (v *Verifier) verifyRaw(raw string) (Result, string, *Token) {
	tok, err := Decode(raw)
	if err != nil {
		return Result{}, failureReason(err), nil
	}
	res, reason := v.check(tok, v.now())
	return res, reason, &tok
}

// check runs the comparison and the age test. The returned reason is empty
// for a valid token.
func (v *Verifier) check(tok Token, now time.Time) (Result, string) {
	res := Result{LicenseType: tok.LicenseType}

	expected := Hash(CanonicalPayload(tok))
	actual, err := DecryptSignature(tok.Sign, v.key)
	if err != nil {
		return res, failureReason(err)
	}
	signMatch := subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1

	reason := ""
	stillValid := true
	switch age, ok := tokenAge(tok.CreatedAt, now); {
	case !ok:
		stillValid, reason = false, "not_yet_valid"
	case age >= OneYearMillis:
		stillValid, reason = false, "expired"
	}
	if !signMatch {
		reason = "signature_mismatch"
	}

	res.Valid = signMatch && stillValid
	return res, reason
}

// tokenAge returns now - createdAt in milliseconds. ok is false when the
// token claims to be issued after now; such tokens are never valid.
func tokenAge(createdAt uint64, now time.Time) (int64, bool) {
	if createdAt > math.MaxInt64 {
		return 0, false
	}
	age := now.UnixMilli() - int64(createdAt)
	if age < 0 {
		return 0, false
	}
	return age, true
}
