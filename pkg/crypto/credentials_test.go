package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test key generated with: openssl rand -base64 32
const testKey = "dGVzdC1rZXktZm9yLXVuaXQtdGVzdHMtMzItYnl0ZXM=" // "test-key-for-unit-tests-32-bytes"

func TestNewCredentialEncryptor(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid 32-byte base64 key", testKey, false},
		{"empty key", "", true},
		{"passphrase hashed to 32 bytes", "my-simple-passphrase", false},
		{"short base64 key hashed", base64.StdEncoding.EncodeToString([]byte("sixteen-byte-key")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewCredentialEncryptor(tt.key)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, enc)
		})
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	enc, err := NewCredentialEncryptor(testKey)
	require.NoError(t, err)

	sealed, err := enc.Encrypt("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", sealed)

	plain, err := enc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", plain)

	// Random nonce: same input, different output.
	again, err := enc.Encrypt("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again)
}

func TestEncrypt_EmptyPassthrough(t *testing.T) {
	enc, err := NewCredentialEncryptor(testKey)
	require.NoError(t, err)

	out, err := enc.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", out)

	out, err = enc.Decrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestDecrypt_WrongKey(t *testing.T) {
	enc1, err := NewCredentialEncryptor(testKey)
	require.NoError(t, err)
	enc2, err := NewCredentialEncryptor("a-different-passphrase")
	require.NoError(t, err)

	sealed, err := enc1.Encrypt("payload")
	require.NoError(t, err)

	_, err = enc2.Decrypt(sealed)
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecrypt_Malformed(t *testing.T) {
	enc, err := NewCredentialEncryptor(testKey)
	require.NoError(t, err)

	_, err = enc.Decrypt("not base64!!")
	require.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = enc.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")))
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestConfigRoundTrip(t *testing.T) {
	enc, err := NewCredentialEncryptor(testKey)
	require.NoError(t, err)

	cfg := map[string]any{"host": "db.internal", "port": float64(5432), "password": "pw"}
	sealed, err := enc.EncryptConfig(cfg)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "db.internal")

	got, err := enc.DecryptConfig(sealed)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	empty, err := enc.DecryptConfig("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
