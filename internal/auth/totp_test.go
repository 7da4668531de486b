package auth

import (
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTOTPManager(t *testing.T) *TOTPManager {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	tm, err := NewTOTPManager(key, "CareLink")
	require.NoError(t, err)
	return tm
}

func TestNewTOTPManager_BadKeyLength(t *testing.T) {
	_, err := NewTOTPManager([]byte("short"), "CareLink")
	assert.Error(t, err)
}

func TestEncryptDecryptSecret_RoundTrip(t *testing.T) {
	tm := newTestTOTPManager(t)

	secret := []byte("JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP")
	encrypted, nonce, err := tm.EncryptSecret(secret)
	require.NoError(t, err)
	require.NotEqual(t, secret, encrypted)

	decrypted, err := tm.DecryptSecret(encrypted, nonce)
	require.NoError(t, err)
	assert.Equal(t, secret, decrypted)
}

func TestDecryptSecret_WrongNonce(t *testing.T) {
	tm := newTestTOTPManager(t)

	encrypted, _, err := tm.EncryptSecret([]byte("JBSWY3DPEHPK3PXP"))
	require.NoError(t, err)

	badNonce := make([]byte, 12)
	_, err = tm.DecryptSecret(encrypted, badNonce)
	assert.Error(t, err)
}

func TestGenerateSecretWithQR(t *testing.T) {
	tm := newTestTOTPManager(t)

	encrypted, nonce, qrDataURL, err := tm.GenerateSecretWithQR("nurse@carelink.example")
	require.NoError(t, err)
	assert.NotEmpty(t, encrypted)
	assert.Len(t, nonce, 12)
	assert.True(t, strings.HasPrefix(qrDataURL, "data:image/png;base64,"))
}

func TestValidateTOTP_ValidCode(t *testing.T) {
	tm := newTestTOTPManager(t)

	encrypted, nonce, _, err := tm.GenerateSecretWithQR("nurse@carelink.example")
	require.NoError(t, err)

	secretBytes, err := tm.DecryptSecret(encrypted, nonce)
	require.NoError(t, err)

	code, err := totp.GenerateCode(string(secretBytes), time.Now())
	require.NoError(t, err)

	valid, err := tm.ValidateTOTP(secretBytes, code)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestValidateTOTP_InvalidCode(t *testing.T) {
	tm := newTestTOTPManager(t)

	encrypted, nonce, _, err := tm.GenerateSecretWithQR("nurse@carelink.example")
	require.NoError(t, err)

	secretBytes, err := tm.DecryptSecret(encrypted, nonce)
	require.NoError(t, err)

	valid, err := tm.ValidateTOTP(secretBytes, "000000")
	require.NoError(t, err)
	assert.False(t, valid)
}
