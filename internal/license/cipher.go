package license

import (
	"crypto/aes"
	"encoding/hex"
	"fmt"
)

// DefaultKey is the shared AES-128 secret compiled into every verifier.
//
// Anyone holding this value can mint valid tokens: a symmetric scheme gives
// verifiers signing-equivalent material. Deployments should override it
// through configuration (license.secret_hex) and treat it as a secret.
var DefaultKey = []byte{
	100, 83, 103, 86, 107, 88, 112, 50, 115, 53, 118, 56, 121, 47, 66, 63,
}

// DecryptSignature decrypts the signature ciphertext block by block with no
// IV and no chaining, then hex-encodes the concatenated plaintext. Padding
// added at issuance is kept: the comparison is against the raw blocks.
func DecryptSignature(ciphertext, key []byte) (string, error) {
	if len(key) != aes.BlockSize {
		return "", &DecryptError{Length: len(ciphertext), Err: ErrInvalidKeySize}
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", &DecryptError{Length: len(ciphertext), Err: ErrInvalidBlockLength}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", &DecryptError{Length: len(ciphertext), Err: err}
	}

	plain := make([]byte, len(ciphertext))
	for off := 0; off < len(ciphertext); off += aes.BlockSize {
		block.Decrypt(plain[off:off+aes.BlockSize], ciphertext[off:off+aes.BlockSize])
	}
	return hex.EncodeToString(plain), nil
}

// EncryptSignature is the issuing direction of DecryptSignature: it encrypts
// each 16-byte block of plain independently. plain must already be a
// positive multiple of the block size; no padding is added.
func EncryptSignature(plain, key []byte) ([]byte, error) {
	if len(key) != aes.BlockSize {
		return nil, ErrInvalidKeySize
	}
	if len(plain) == 0 || len(plain)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidBlockLength, len(plain))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(plain))
	for off := 0; off < len(plain); off += aes.BlockSize {
		block.Encrypt(out[off:off+aes.BlockSize], plain[off:off+aes.BlockSize])
	}
	return out, nil
}

// ParseKey decodes a hex-encoded 16-byte key
func ParseKey(keyHex string) ([]byte, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid license key hex: %w", err)
	}
	if len(key) != aes.BlockSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeySize, len(key))
	}
	return key, nil
}
