package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carelinkhq/carelink/internal/auth"
	"github.com/carelinkhq/carelink/internal/background"
	"github.com/carelinkhq/carelink/internal/config"
	"github.com/carelinkhq/carelink/internal/database"
	"github.com/carelinkhq/carelink/internal/handlers"
	middlewareCustom "github.com/carelinkhq/carelink/internal/middleware"
	"github.com/carelinkhq/carelink/internal/models"
	"github.com/carelinkhq/carelink/internal/repositories"
	"github.com/carelinkhq/carelink/internal/routes"
	"github.com/carelinkhq/carelink/internal/services"
	pkghttp "github.com/carelinkhq/carelink/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Load the auth policy table (fallback accounts, elevated identities)
	policy, err := models.LoadAuthPolicy(cfg.Auth.PolicyFile)
	if err != nil {
		logger.Error("failed to load auth policy", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize repositories
	identityRepo := repositories.NewIdentityRepository(db)
	loginAttemptRepo := repositories.NewLoginAttemptRepository(db)
	mfaLockoutRepo := repositories.NewMFALockoutRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	mfaSecretRepo := repositories.NewMFASecretRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)
	auditLogRepo := repositories.NewAuditLogRepository(db)
	workerRepo := repositories.NewWorkerRepository(db)

	// Initialize cleanup manager
	cleanupManager := background.NewCleanupManager(loginAttemptRepo, mfaLockoutRepo, sessionRepo, logger, cfg.Auth.CleanupInterval)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
		cfg.Auth.ChallengeExpiry,
	)

	// TOTP manager with encrypted secret storage
	totpManager, err := auth.NewTOTPManager([]byte(cfg.MFA.EncryptionKey), cfg.MFA.Issuer)
	if err != nil {
		logger.Error("failed to initialize TOTP manager", slog.Any("error", err))
		os.Exit(1)
	}

	// Timing delay for auth security
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandMs,
	})

	// Lockout alert mailer
	var mailer services.Mailer
	if cfg.Email.Enabled {
		mailer, err = services.NewAWSSESMailer(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		mailer = services.NewNoopMailer(logger)
	}

	// Initialize services
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
		mailer,
		auditService,
		logger,
	)
	workerService := services.NewWorkerService(workerRepo, auditService, logger)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(loginService, mfaService, sessionService, tokenManager, ipConfig)
	mfaHandler := handlers.NewMFAHandler(mfaService, tokenManager)
	workerHandler := handlers.NewWorkerHandler(workerService)
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	auditHandler := handlers.NewAuditHandler(auditService)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, mfaHandler, workerHandler, settingsHandler, auditHandler, tokenManager, sessionService, identityRepo)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
