package license

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// BlockSize is the cipher block size in bytes. Signatures are a positive
// multiple of it.
const BlockSize = 16

// Token is a decoded license token
type Token struct {
	Email       string
	CreatedAt   uint64 // milliseconds since the Unix epoch
	LicenseType string
	Sign        []byte // raw signature ciphertext
}

// wireToken mirrors the JSON record inside the base64 wrapper. Pointer
// fields distinguish a missing key (or null) from a zero value.
type wireToken struct {
	Email       *string `json:"email" validate:"required"`
	CreatedAt   *uint64 `json:"created_at" validate:"required"`
	LicenseType *string `json:"license_type" validate:"required"`
	Sign        *string `json:"sign" validate:"required"`
}

var schemaValidator = validator.New()

// bind fills the record from exact keys only. Struct decoding would also
// accept "Email" or "SIGN".
func (w *wireToken) bind(fields map[string]json.RawMessage) error {
	targets := map[string]interface{}{
		"email":        &w.Email,
		"created_at":   &w.CreatedAt,
		"license_type": &w.LicenseType,
		"sign":         &w.Sign,
	}
	for key, target := range targets {
		value, ok := fields[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, target); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
	}
	return nil
}

// Decode unwraps a license token: base64, then the JSON record, then the
// hex signature. Any failure is reported as a *DecodeError.
func Decode(token string) (Token, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return Token{}, &DecodeError{Kind: BadEncoding, Err: err}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Token{}, &DecodeError{Kind: BadSchema, Err: err}
	}
	var wire wireToken
	if err := wire.bind(fields); err != nil {
		return Token{}, &DecodeError{Kind: BadSchema, Err: err}
	}
	if err := schemaValidator.Struct(wire); err != nil {
		return Token{}, &DecodeError{Kind: BadSchema, Err: err}
	}

	if n := len(*wire.Sign); n == 0 || n%(2*BlockSize) != 0 {
		return Token{}, &DecodeError{
			Kind: BadSignatureEncoding,
			Err:  fmt.Errorf("%w: got %d hex characters", ErrInvalidBlockLength, n),
		}
	}
	sign, err := hex.DecodeString(*wire.Sign)
	if err != nil {
		return Token{}, &DecodeError{Kind: BadSignatureEncoding, Err: err}
	}

	return Token{
		Email:       *wire.Email,
		CreatedAt:   *wire.CreatedAt,
		LicenseType: *wire.LicenseType,
		Sign:        sign,
	}, nil
}

// Encode wraps a token in its wire form. The signature is written as
// lowercase hex.
func Encode(tok Token) (string, error) {
	signHex := hex.EncodeToString(tok.Sign)
	wire := wireToken{
		Email:       &tok.Email,
		CreatedAt:   &tok.CreatedAt,
		LicenseType: &tok.LicenseType,
		Sign:        &signHex,
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("failed to marshal license token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
