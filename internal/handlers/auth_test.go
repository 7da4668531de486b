package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/carelinkhq/carelink/internal/auth"
	"github.com/carelinkhq/carelink/internal/models"
	"github.com/carelinkhq/carelink/internal/services"
	pkghttp "github.com/carelinkhq/carelink/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("test-secret-thats-long-enough", 15*time.Minute, 7*24*time.Hour, 5*time.Minute)
}

func newAuthHandler(login *MockLoginSubmitter, mfa *MockMFAVerifier) (*AuthHandler, *auth.TokenManager) {
	tokens := newTestTokenManager()
	return NewAuthHandler(login, mfa, &MockSessionDiscarder{}, tokens, &pkghttp.IPConfig{}), tokens
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestAuthHandler_Login_Success(t *testing.T) {
	login := &MockLoginSubmitter{
		SubmitFunc: func(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error) {
			return &services.LoginResult{
				Identity: &models.Identity{ID: "id_1", Email: req.Email, Role: models.RoleStaff},
				Tokens:   &models.AuthTokens{AccessToken: "access", RefreshToken: "refresh"},
				Settings: models.SettingsBlob{"theme": "dark"},
			}, nil
		},
	}
	h, _ := newAuthHandler(login, &MockMFAVerifier{})

	rec := postJSON(t, h.Login, LoginRequest{Email: "nurse@carelink.example", Password: "pw"})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "access", resp.AccessToken)
	assert.Equal(t, "dark", resp.Settings["theme"])
}

func TestAuthHandler_Login_MFARequired(t *testing.T) {
	login := &MockLoginSubmitter{
		SubmitFunc: func(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error) {
			return &services.LoginResult{
				MFARequired: true,
				MFAToken:    "challenge-token",
				Reason:      models.MFAReasonEnabled,
				Identity:    &models.Identity{ID: "id_1"},
			}, nil
		},
	}
	h, _ := newAuthHandler(login, &MockMFAVerifier{})

	rec := postJSON(t, h.Login, LoginRequest{Email: "nurse@carelink.example", Password: "pw"})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.MFARequiredResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.MFARequired)
	assert.Equal(t, "challenge-token", resp.MFAToken)
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	login := &MockLoginSubmitter{
		SubmitFunc: func(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error) {
			return nil, &models.InvalidCredentialsError{AttemptsRemaining: 3}
		},
	}
	h, _ := newAuthHandler(login, &MockMFAVerifier{})

	rec := postJSON(t, h.Login, LoginRequest{Email: "nurse@carelink.example", Password: "wrong"})

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_credentials", resp.Error)
	assert.Contains(t, resp.Details, "3 attempts remaining")
}

func TestAuthHandler_Login_Blocked(t *testing.T) {
	login := &MockLoginSubmitter{
		SubmitFunc: func(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error) {
			return nil, &models.BlockedError{RetryAfter: 10 * time.Minute}
		},
	}
	h, _ := newAuthHandler(login, &MockMFAVerifier{})

	rec := postJSON(t, h.Login, LoginRequest{Email: "nurse@carelink.example", Password: "pw"})

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "600", rec.Header().Get("Retry-After"))
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	h, _ := newAuthHandler(&MockLoginSubmitter{}, &MockMFAVerifier{})

	rec := postJSON(t, h.Login, LoginRequest{Email: "not-an-email", Password: "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h.Login, LoginRequest{Email: "nurse@carelink.example"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_MFAVerify_Success(t *testing.T) {
	verifier := &MockMFAVerifier{
		VerifyFunc: func(ctx context.Context, identityID, email, code string) (*services.AuthResult, error) {
			return &services.AuthResult{
				Identity: &models.Identity{ID: identityID, Email: email},
				Tokens:   &models.AuthTokens{AccessToken: "access", RefreshToken: "refresh"},
				Settings: models.SettingsBlob{},
			}, nil
		},
	}
	h, tokens := newAuthHandler(&MockLoginSubmitter{}, verifier)

	challenge, err := tokens.GenerateChallengeToken("id_1", "nurse@carelink.example")
	require.NoError(t, err)

	rec := postJSON(t, h.MFAVerify, MFAVerifyRequest{MFAToken: challenge, Code: "123456"})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "access", resp.AccessToken)
	assert.Equal(t, "id_1", resp.Identity.ID)
}

func TestAuthHandler_MFAVerify_RejectsAccessToken(t *testing.T) {
	// Only challenge-type tokens may drive verification. An access token
	// must not substitute.
	h, tokens := newAuthHandler(&MockLoginSubmitter{}, &MockMFAVerifier{})

	accessToken, err := tokens.GenerateAccessToken("id_1", "nurse@carelink.example")
	require.NoError(t, err)

	rec := postJSON(t, h.MFAVerify, MFAVerifyRequest{MFAToken: accessToken, Code: "123456"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_MFAVerify_Locked(t *testing.T) {
	verifier := &MockMFAVerifier{
		VerifyFunc: func(ctx context.Context, identityID, email, code string) (*services.AuthResult, error) {
			return nil, &models.MFALockedError{RemainingTime: 15 * time.Minute}
		},
	}
	h, tokens := newAuthHandler(&MockLoginSubmitter{}, verifier)

	challenge, err := tokens.GenerateChallengeToken("id_1", "nurse@carelink.example")
	require.NoError(t, err)

	rec := postJSON(t, h.MFAVerify, MFAVerifyRequest{MFAToken: challenge, Code: "000000"})

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "900", rec.Header().Get("Retry-After"))
}

func TestAuthHandler_MFAVerify_InvalidCode(t *testing.T) {
	verifier := &MockMFAVerifier{
		VerifyFunc: func(ctx context.Context, identityID, email, code string) (*services.AuthResult, error) {
			return nil, &models.MFAInvalidCodeError{AttemptsRemaining: 2}
		},
	}
	h, tokens := newAuthHandler(&MockLoginSubmitter{}, verifier)

	challenge, err := tokens.GenerateChallengeToken("id_1", "nurse@carelink.example")
	require.NoError(t, err)

	rec := postJSON(t, h.MFAVerify, MFAVerifyRequest{MFAToken: challenge, Code: "999999"})

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_code", resp.Error)
}

func TestAuthHandler_MFAVerify_CodeFormat(t *testing.T) {
	h, tokens := newAuthHandler(&MockLoginSubmitter{}, &MockMFAVerifier{})

	challenge, err := tokens.GenerateChallengeToken("id_1", "nurse@carelink.example")
	require.NoError(t, err)

	tests := []string{"", "12345", "1234567", "abcdef"}
	for _, code := range tests {
		rec := postJSON(t, h.MFAVerify, MFAVerifyRequest{MFAToken: challenge, Code: code})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "code %q should be rejected", code)
	}
}

func TestAuthHandler_MFACancel(t *testing.T) {
	var cancelled string
	verifier := &MockMFAVerifier{
		CancelFunc: func(ctx context.Context, identityID string) error {
			cancelled = identityID
			return nil
		},
	}
	h, tokens := newAuthHandler(&MockLoginSubmitter{}, verifier)

	challenge, err := tokens.GenerateChallengeToken("id_1", "nurse@carelink.example")
	require.NoError(t, err)

	rec := postJSON(t, h.MFACancel, MFACancelRequest{MFAToken: challenge})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "id_1", cancelled)
}
