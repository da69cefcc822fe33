package license

import (
	"errors"
	"fmt"
)

// Sentinel errors for token decoding and signature decryption
var (
	ErrBadEncoding          = errors.New("license token is not valid base64")
	ErrBadSchema            = errors.New("license token does not match the expected schema")
	ErrBadSignatureEncoding = errors.New("license signature is not valid hex")
	ErrInvalidBlockLength   = errors.New("license signature is not a positive multiple of the cipher block size")
	ErrInvalidKeySize       = errors.New("license key must be 16 bytes")

	// ErrInvalidToken is returned by callers that need an error for a
	// token that decoded but failed verification
	ErrInvalidToken = errors.New("license token is not valid")
)

// DecodeErrorKind classifies why a token could not be decoded
type DecodeErrorKind int

const (
	BadEncoding DecodeErrorKind = iota + 1
	BadSchema
	BadSignatureEncoding
)

// String returns the kind name used in logs and metrics
func (k DecodeErrorKind) String() string {
	switch k {
	case BadEncoding:
		return "bad_encoding"
	case BadSchema:
		return "bad_schema"
	case BadSignatureEncoding:
		return "bad_signature_encoding"
	default:
		return "unknown"
	}
}

// DecodeError is returned by Decode for malformed tokens
type DecodeError struct {
	Kind DecodeErrorKind
	Err  error
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("decode license token: %s", e.Kind)
	}
	return fmt.Sprintf("decode license token: %s: %v", e.Kind, e.Err)
}

// Unwrap exposes the underlying cause
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a DecodeError against the kind sentinels
func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrBadEncoding:
		return e.Kind == BadEncoding
	case ErrBadSchema:
		return e.Kind == BadSchema
	case ErrBadSignatureEncoding:
		return e.Kind == BadSignatureEncoding
	}
	return false
}

// DecryptError is returned when the signature ciphertext cannot be decrypted
type DecryptError struct {
	Length int
	Err    error
}

// Error implements the error interface
func (e *DecryptError) Error() string {
	return fmt.Sprintf("decrypt license signature (%d bytes): %v", e.Length, e.Err)
}

// Unwrap exposes the underlying cause
func (e *DecryptError) Unwrap() error {
	return e.Err
}

// failureReason maps an error from the verification pipeline to a short
// label for logs and metrics. It is never returned to callers.
func failureReason(err error) string {
	var decodeErr *DecodeError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &decodeErr):
		return decodeErr.Kind.String()
	case errors.Is(err, ErrInvalidBlockLength):
		return "invalid_block_length"
	case errors.Is(err, ErrInvalidKeySize):
		return "invalid_key_size"
	default:
		return "internal"
	}
}
