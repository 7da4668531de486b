package routes

import (
	"github.com/carelinkhq/carelink/internal/auth"
	"github.com/carelinkhq/carelink/internal/handlers"
	"github.com/carelinkhq/carelink/internal/middleware"
	"github.com/carelinkhq/carelink/internal/models"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	mfaHandler *handlers.MFAHandler,
	workerHandler *handlers.WorkerHandler,
	settingsHandler *handlers.SettingsHandler,
	auditHandler *handlers.AuditHandler,
	tokenManager *auth.TokenManager,
	sessions auth.SessionChecker,
	identities auth.IdentityFetcher,
) {
	authRateLimit := middleware.DefaultAuthRateLimit()
	apiRateLimit := middleware.DefaultAPIRateLimit()

	// Public routes - no access token required. MFA verify, cancel, and
	// enroll authenticate via the short-lived challenge token instead.
	router.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/mfa/verify", authHandler.MFAVerify)
	router.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/mfa/cancel", authHandler.MFACancel)
	router.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/mfa/enroll", mfaHandler.Enroll)

	// Protected routes - valid access token plus an active session
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager, sessions))
		r.Use(middleware.RateLimitByIdentity(apiRateLimit))

		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/mfa/status", mfaHandler.Status)

		r.Get("/settings", settingsHandler.Get)
		r.Put("/settings", settingsHandler.Put)

		r.Get("/workers", workerHandler.List)
		r.Get("/workers/{workerID}", workerHandler.Get)
		r.Get("/workers/{workerID}/visits", workerHandler.Visits)
		r.Post("/workers/{workerID}/visits", workerHandler.ScheduleVisit)
		r.Post("/visits/{visitID}/checkin", workerHandler.CheckIn)
		r.Post("/visits/{visitID}/checkout", workerHandler.CheckOut)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(identities, models.RoleAdmin, models.RoleSuperUser))
			r.Get("/audit", auditHandler.GetTrail)
		})
	})
}
