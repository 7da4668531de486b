package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/carelinkhq/carelink/internal/auth"
	"github.com/carelinkhq/carelink/internal/config"
	"github.com/carelinkhq/carelink/internal/database"
	"github.com/carelinkhq/carelink/internal/handlers"
	middlewareCustom "github.com/carelinkhq/carelink/internal/middleware"
	"github.com/carelinkhq/carelink/internal/models"
	"github.com/carelinkhq/carelink/internal/repositories"
	"github.com/carelinkhq/carelink/internal/routes"
	"github.com/carelinkhq/carelink/internal/services"
	pkghttp "github.com/carelinkhq/carelink/pkg/http"
)

// TestMFAEncryptionKey is the AES-256 key used by test servers. Tests that
// need to mint valid TOTP codes decrypt stored secrets with it.
const TestMFAEncryptionKey = "test-mfa-encryption-key-32-char!"

// SentAlert is a captured lockout alert email
type SentAlert struct {
	To          string
	LockedUntil time.Time
}

// MockMailer captures lockout alerts for test assertions
type MockMailer struct {
	SentAlerts []SentAlert
	mu         sync.Mutex
}

// SendMFALockoutAlert records the alert
func (m *MockMailer) SendMFALockoutAlert(ctx context.Context, email string, lockedUntil time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SentAlerts = append(m.SentAlerts, SentAlert{To: email, LockedUntil: lockedUntil})
	return nil
}

// GetLastAlert returns the most recent alert sent
func (m *MockMailer) GetLastAlert() *SentAlert {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.SentAlerts) == 0 {
		return nil
	}
	return &m.SentAlerts[len(m.SentAlerts)-1]
}

// TestServer wraps httptest.Server with database and all dependencies
type TestServer struct {
	Server *httptest.Server
	Pool   *database.DB
	Mailer *MockMailer
	Config *config.Config

	// Dependency references for inspection in tests
	TokenManager *auth.TokenManager
	TOTPManager  *auth.TOTPManager
	logger       *slog.Logger
}

// NewTestServer initializes a complete HTTP server with a real database and
// a mocked mailer
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:          "test-secret-32-characters-long-for-testing",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
			ChallengeExpiry:    5 * time.Minute,
			CleanupInterval:    1 * time.Hour,
			TimingDelayBaseMs:  10,
			TimingDelayRandMs:  5,
		},
		Lockout: config.LockoutConfig{
			MaxFailedAttempts: 5,
			LookbackWindow:    15 * time.Minute,
			BlockWindow:       15 * time.Minute,
		},
		MFA: config.MFAConfig{
			MaxAttempts:     3,
			LockoutDuration: 15 * time.Minute,
			EncryptionKey:   TestMFAEncryptionKey,
			Issuer:          "CareLinkTest",
		},
		Server: config.ServerConfig{
			Port:           "0",
			Env:            "test",
			AllowedOrigins: []string{},
			TrustedProxies: []string{},
		},
	}

	policy := models.NewAuthPolicy(nil, nil)

	// Repositories
	identityRepo := repositories.NewIdentityRepository(db)
	loginAttemptRepo := repositories.NewLoginAttemptRepository(db)
	mfaLockoutRepo := repositories.NewMFALockoutRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	mfaSecretRepo := repositories.NewMFASecretRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)
	auditLogRepo := repositories.NewAuditLogRepository(db)
	workerRepo := repositories.NewWorkerRepository(db)

	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
		cfg.Auth.ChallengeExpiry,
	)

	totpManager, err := auth.NewTOTPManager([]byte(cfg.MFA.EncryptionKey), cfg.MFA.Issuer)
	if err != nil {
		panic(fmt.Sprintf("failed to create TOTP manager: %v", err))
	}

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandMs,
	})

	mockMailer := &MockMailer{}

	// Services
	auditService := services.NewAuditService(auditLogRepo, logger)
	directoryService := services.NewDirectoryService(identityRepo, policy, logger)
	mfaPolicyService := services.NewMFAPolicyService(directoryService, policy, auditService, logger)
	mfaLockoutService := services.NewMFALockoutService(mfaLockoutRepo, cfg.MFA.MaxAttempts, cfg.MFA.LockoutDuration, logger)
	sessionService := services.NewSessionService(sessionRepo, auditService, logger)
	settingsService := services.NewSettingsService(settingsRepo, logger)
	loginService := services.NewLoginService(
		directoryService,
		loginAttemptRepo,
		settingsRepo,
		mfaPolicyService,
		sessionService,
		tokenManager,
		timingDelay,
		auditService,
		policy,
		cfg.Lockout,
		logger,
	)
	mfaService := services.NewMFAService(
		mfaSecretRepo,
		identityRepo,
		settingsRepo,
		totpManager,
		tokenManager,
		mfaLockoutService,
		sessionService,
		mockMailer,
		auditService,
		logger,
	)
	workerService := services.NewWorkerService(workerRepo, auditService, logger)

	// Handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(loginService, mfaService, sessionService, tokenManager, ipConfig)
	mfaHandler := handlers.NewMFAHandler(mfaService, tokenManager)
	workerHandler := handlers.NewWorkerHandler(workerService)
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	auditHandler := handlers.NewAuditHandler(auditService)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(r, authHandler, mfaHandler, workerHandler, settingsHandler, auditHandler, tokenManager, sessionService, identityRepo)

	server := httptest.NewServer(r)

	return &TestServer{
		Server:       server,
		Pool:         db,
		Mailer:       mockMailer,
		Config:       cfg,
		TokenManager: tokenManager,
		TOTPManager:  totpManager,
		logger:       logger,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with an access token
func (ts *TestServer) RequestWithAuth(method, path, accessToken string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
	}
	return ts.Request(method, path, body, headers)
}

// ParseJSONResponse parses a JSON response body into the target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// ExtractTokensFromResponse extracts tokens from a login or verify response
func ExtractTokensFromResponse(resp *http.Response) (accessToken, refreshToken, mfaToken string, mfaRequired bool, err error) {
	defer resp.Body.Close()

	var authResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", "", "", false, fmt.Errorf("failed to parse response: %w", err)
	}

	if access, ok := authResp["access_token"].(string); ok {
		accessToken = access
	}
	if refresh, ok := authResp["refresh_token"].(string); ok {
		refreshToken = refresh
	}
	if mfa, ok := authResp["mfa_token"].(string); ok {
		mfaToken = mfa
	}
	if required, ok := authResp["mfa_required"].(bool); ok {
		mfaRequired = required
	}

	return
}

// GetErrorMessage extracts the error message from an error response
func GetErrorMessage(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var errResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", err
	}
	if msg, ok := errResp["message"].(string); ok {
		return msg, nil
	}
	return "", nil
}
