package license

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Issuer mints tokens that a Verifier holding the same key accepts. It is
// the encrypting direction of the scheme and is used by the token tool and
// tests; servers only verify.
type Issuer struct {
	key []byte
}

// NewIssuer creates an issuer for the given 16-byte key. A nil key selects
// DefaultKey.
func NewIssuer(key []byte) (*Issuer, error) {
	if key == nil {
		key = DefaultKey
	}
	if len(key) != BlockSize {
		return nil, ErrInvalidKeySize
	}
	return &Issuer{key: append([]byte(nil), key...)}, nil
}

// Sign returns the signature ciphertext for the given fields: the SHA-256
// digest of the canonical payload, encrypted block by block.
func (i *Issuer) Sign(email string, createdAt uint64, licenseType string) ([]byte, error) {
	digest := sha256.Sum256(Canonicalize(email, createdAt, licenseType))
	return EncryptSignature(digest[:], i.key)
}

// IssueAt builds a complete wire token with created_at in milliseconds
func (i *Issuer) IssueAt(email string, createdAt uint64, licenseType string) (string, error) {
	sign, err := i.Sign(email, createdAt, licenseType)
	if err != nil {
		return "", fmt.Errorf("failed to sign license: %w", err)
	}
	return Encode(Token{
		Email:       email,
		CreatedAt:   createdAt,
		LicenseType: licenseType,
		Sign:        sign,
	})
}

// Issue builds a wire token created at the given time
func (i *Issuer) Issue(email string, createdAt time.Time, licenseType string) (string, error) {
	ms := createdAt.UnixMilli()
	if ms < 0 {
		return "", fmt.Errorf("created_at %s is before the Unix epoch", createdAt.Format(time.RFC3339))
	}
	return i.IssueAt(email, uint64(ms), licenseType)
}

// selfTestPlaintext is "hello world" with PKCS#7 padding to one block
var selfTestPlaintext = []byte("hello world\x05\x05\x05\x05\x05")

// SelfTest checks that the block cipher round-trips a padded block under key
// and that padding survives decryption untouched.
func SelfTest(key []byte) error {
	ct, err := EncryptSignature(selfTestPlaintext, key)
	if err != nil {
		return fmt.Errorf("license self-test encrypt: %w", err)
	}
	if bytes.Equal(ct, selfTestPlaintext) {
		return fmt.Errorf("license self-test: ciphertext equals plaintext")
	}
	got, err := DecryptSignature(ct, key)
	if err != nil {
		return fmt.Errorf("license self-test decrypt: %w", err)
	}
	if got != hex.EncodeToString(selfTestPlaintext) {
		return fmt.Errorf("license self-test: decrypted block does not match")
	}
	return nil
}
