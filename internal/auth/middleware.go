package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/carelinkhq/carelink/internal/models"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// IdentityContextKey is the key for storing token claims in context
	IdentityContextKey contextKey = "identity"
)

// SessionChecker verifies that an identity still holds an active session.
type SessionChecker interface {
	GetActive(ctx context.Context, identityID string) (*models.Session, error)
}

// Middleware validates access tokens and injects claims into the request
// context. Refresh and challenge tokens are rejected for API access.
func Middleware(tm *TokenManager, sessions SessionChecker) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateTokenOfType(parts[1], models.TokenTypeAccess)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			// A token is only as good as its finalized session.
			if sessions != nil {
				if _, err := sessions.GetActive(r.Context(), claims.IdentityID); err != nil {
					if errors.Is(err, models.ErrNotFound) {
						http.Error(w, "no active session", http.StatusUnauthorized)
						return
					}
					http.Error(w, "unable to verify session", http.StatusServiceUnavailable)
					return
				}
			}

			ctx := context.WithValue(r.Context(), IdentityContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFetcher fetches the current identity record for RBAC checks.
type IdentityFetcher interface {
	GetByID(ctx context.Context, id string) (*models.Identity, error)
}

// RequireRole creates a middleware that enforces role-based access control
func RequireRole(identities IdentityFetcher, roles ...string) func(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetIdentityFromContext(r)
			if claims == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			identity, err := identities.GetByID(r.Context(), claims.IdentityID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					http.Error(w, "identity not found", http.StatusUnauthorized)
					return
				}
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			if !allowed[identity.Role] {
				http.Error(w, "forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetIdentityFromContext extracts token claims from the request context
func GetIdentityFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(IdentityContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
