package license

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef")

func TestDecryptSignature_RoundTrip(t *testing.T) {
	plain := []byte("0123456789abcdefFEDCBA9876543210")

	ct, err := EncryptSignature(plain, testKey)
	require.NoError(t, err)
	require.Len(t, ct, len(plain))
	assert.NotEqual(t, plain, ct)

	got, err := DecryptSignature(ct, testKey)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(plain), got)
}

func TestDecryptSignature_BlocksAreIndependent(t *testing.T) {
	block := []byte("sixteen byte blk")
	plain := append(append([]byte{}, block...), block...)

	ct, err := EncryptSignature(plain, testKey)
	require.NoError(t, err)

	// no chaining: equal plaintext blocks give equal ciphertext blocks
	assert.Equal(t, ct[:BlockSize], ct[BlockSize:])

	// corrupting the second block leaves the first one intact
	ct[BlockSize] ^= 0xff
	got, err := DecryptSignature(ct, testKey)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(block), got[:2*BlockSize])
	assert.NotEqual(t, hex.EncodeToString(block), got[2*BlockSize:])
}

func TestDecryptSignature_KeepsPadding(t *testing.T) {
	ct, err := EncryptSignature(selfTestPlaintext, DefaultKey)
	require.NoError(t, err)

	got, err := DecryptSignature(ct, DefaultKey)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, "0505050505"))
	assert.Len(t, got, 2*BlockSize)
}

func TestDecryptSignature_OutputIsLowercaseHex(t *testing.T) {
	ct := bytes.Repeat([]byte{0xab}, 2*BlockSize)

	got, err := DecryptSignature(ct, testKey)
	require.NoError(t, err)
	assert.Len(t, got, 4*BlockSize)
	assert.Equal(t, strings.ToLower(got), got)
}

func TestDecryptSignature_InvalidBlockLength(t *testing.T) {
	for _, n := range []int{0, 1, 15, 17, 31, 33} {
		_, err := DecryptSignature(make([]byte, n), testKey)
		require.Error(t, err, "length %d", n)
		assert.True(t, errors.Is(err, ErrInvalidBlockLength))

		var decryptErr *DecryptError
		require.True(t, errors.As(err, &decryptErr))
		assert.Equal(t, n, decryptErr.Length)
	}
}

func TestDecryptSignature_InvalidKeySize(t *testing.T) {
	_, err := DecryptSignature(make([]byte, BlockSize), []byte("short"))
	assert.True(t, errors.Is(err, ErrInvalidKeySize))

	_, err = EncryptSignature(make([]byte, BlockSize), make([]byte, 32))
	assert.True(t, errors.Is(err, ErrInvalidKeySize))
}

func TestEncryptSignature_RejectsUnalignedInput(t *testing.T) {
	_, err := EncryptSignature([]byte("hello"), testKey)
	assert.True(t, errors.Is(err, ErrInvalidBlockLength))
}

func TestParseKey(t *testing.T) {
	key, err := ParseKey("30313233343536373839616263646566")
	require.NoError(t, err)
	assert.Equal(t, testKey, key)

	_, err = ParseKey("xyz")
	assert.Error(t, err)

	_, err = ParseKey("0011")
	assert.True(t, errors.Is(err, ErrInvalidKeySize))
}
