package integration

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDB *TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	db, err := SetupTestDatabase(ctx)
	if err != nil {
		// No Docker available; integration tests cannot run.
		os.Exit(0)
	}
	testDB = db

	code := m.Run()

	_ = testDB.Teardown(ctx)
	os.Exit(code)
}

func freshServer(t *testing.T) *TestServer {
	t.Helper()

	require.NoError(t, testDB.CleanupTables(context.Background()))
	ts := NewTestServer(testDB.DB)
	t.Cleanup(ts.Close)
	return ts
}

func TestLogin_PasswordOnly(t *testing.T) {
	ts := freshServer(t)
	ctx := context.Background()

	email, password := TestIdentity("password-only")
	_, err := SeedIdentity(ctx, testDB.Pool, email, password, false)
	require.NoError(t, err)

	resp, err := ts.Request("POST", "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	accessToken, refreshToken, _, mfaRequired, err := ExtractTokensFromResponse(resp)
	require.NoError(t, err)
	assert.False(t, mfaRequired)
	assert.NotEmpty(t, accessToken)
	assert.NotEmpty(t, refreshToken)

	// The finalized session admits the access token to protected routes
	resp, err = ts.RequestWithAuth("GET", "/settings", accessToken, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogin_WrongPassword(t *testing.T) {
	ts := freshServer(t)
	ctx := context.Background()

	email, password := TestIdentity("wrong-password")
	_, err := SeedIdentity(ctx, testDB.Pool, email, password, false)
	require.NoError(t, err)

	resp, err := ts.Request("POST", "/auth/login", map[string]string{
		"email":    email,
		"password": "not-the-password",
	}, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_MFAEnrollAndVerify(t *testing.T) {
	ts := freshServer(t)
	ctx := context.Background()

	email, password := TestIdentity("mfa-verify")
	identity, err := SeedIdentity(ctx, testDB.Pool, email, password, true)
	require.NoError(t, err)

	resp, err := ts.Request("POST", "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	accessToken, _, mfaToken, mfaRequired, err := ExtractTokensFromResponse(resp)
	require.NoError(t, err)
	require.True(t, mfaRequired)
	require.NotEmpty(t, mfaToken)
	assert.Empty(t, accessToken)

	// Enroll an authenticator mid-login using the challenge token
	resp, err = ts.Request("POST", "/auth/mfa/enroll", map[string]string{
		"mfa_token": mfaToken,
	}, nil)
	require.NoError(t, err)
	var enrollment struct {
		QRCode string `json:"qr_code"`
	}
	require.NoError(t, ParseJSONResponse(resp, &enrollment))
	assert.NotEmpty(t, enrollment.QRCode)

	// Mint a valid code from the stored secret
	encrypted, nonce, err := GetStoredSecret(ctx, testDB.Pool, identity.ID)
	require.NoError(t, err)
	secret, err := ts.TOTPManager.DecryptSecret(encrypted, nonce)
	require.NoError(t, err)
	code, err := totp.GenerateCode(string(secret), time.Now())
	require.NoError(t, err)

	resp, err = ts.Request("POST", "/auth/mfa/verify", map[string]string{
		"mfa_token": mfaToken,
		"code":      code,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	accessToken, _, _, _, err = ExtractTokensFromResponse(resp)
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)

	// The session is now active and the first success completed enrollment
	resp, err = ts.RequestWithAuth("GET", "/auth/mfa/status", accessToken, nil)
	require.NoError(t, err)
	var status struct {
		Enrolled bool `json:"enrolled"`
		Verified bool `json:"verified"`
	}
	require.NoError(t, ParseJSONResponse(resp, &status))
	assert.True(t, status.Enrolled)
	assert.True(t, status.Verified)
}

func TestLogin_MFALockoutSendsAlert(t *testing.T) {
	ts := freshServer(t)
	ctx := context.Background()

	email, password := TestIdentity("mfa-lockout")
	_, err := SeedIdentity(ctx, testDB.Pool, email, password, true)
	require.NoError(t, err)

	resp, err := ts.Request("POST", "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	_, _, mfaToken, _, err := ExtractTokensFromResponse(resp)
	require.NoError(t, err)

	resp, err = ts.Request("POST", "/auth/mfa/enroll", map[string]string{
		"mfa_token": mfaToken,
	}, nil)
	require.NoError(t, err)
	resp.Body.Close()

	// Burn through the failure budget with a code that cannot be valid
	var lastStatus int
	for i := 0; i < ts.Config.MFA.MaxAttempts; i++ {
		resp, err = ts.Request("POST", "/auth/mfa/verify", map[string]string{
			"mfa_token": mfaToken,
			"code":      "000000",
		}, nil)
		require.NoError(t, err)
		lastStatus = resp.StatusCode
		resp.Body.Close()
	}

	assert.Equal(t, http.StatusTooManyRequests, lastStatus)

	alert := ts.Mailer.GetLastAlert()
	require.NotNil(t, alert)
	assert.Equal(t, email, alert.To)
	assert.True(t, alert.LockedUntil.After(time.Now()))
}
