// Package middleware provides bearer-token authentication and role gating.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/accounthub/user-service/internal/models"
)

type contextKey string

const principalKey contextKey = "principal"

// TokenValidator is the interface that wraps bearer token validation
type TokenValidator interface {
	// Method Validate verifies a token and returns its subject.
	//
	// If the token is malformed, expired or has a bad signature, an error
	// will be returned together with an empty string.
	Validate(tokenString string) (string, error)
}

// PrincipalSource is the interface that wraps loading the user behind a token subject
type PrincipalSource interface {
	// Method GetByID retrieves a user by ID.
	//
	// If user with such ID does not exist, models.ErrNotFound will be returned together with "nil" value.
	GetByID(ctx context.Context, userID int) (*models.User, error)
}

// extractToken pulls the bearer token from the Authorization header or,
// failing that, the access_token cookie
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		// Expected format: "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	cookie, err := r.Cookie("access_token")
	if err == nil {
		return cookie.Value
	}

	return ""
}

// denyUnauthorized writes the single "could not validate credentials"
// response used for every authentication failure. Malformed tokens, stale
// tokens and tokens whose subject no longer exists are indistinguishable
// at the boundary.
func denyUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"could not validate credentials"}`))
}

// Authenticator validates the bearer token, resolves its subject to a user
// and stores the principal in the request context
func Authenticator(validator TokenValidator, users PrincipalSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r)
			if tokenString == "" {
				denyUnauthorized(w)
				return
			}

			subject, err := validator.Validate(tokenString)
			if err != nil {
				denyUnauthorized(w)
				return
			}

			userID, err := strconv.Atoi(subject)
			if err != nil {
				denyUnauthorized(w)
				return
			}

			principal, err := users.GetByID(r.Context(), userID)
			if err != nil {
				denyUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose principal is not an admin.
// Must run after Authenticator.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFrom(r.Context())
		if !ok {
			denyUnauthorized(w)
			return
		}

		if principal.Role != models.RoleAdmin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"the user doesn't have enough privileges"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// PrincipalFrom retrieves the authenticated user from context
func PrincipalFrom(ctx context.Context) (*models.User, bool) {
	principal, ok := ctx.Value(principalKey).(*models.User)
	return principal, ok
}

// WithPrincipal returns a context carrying the given principal.
// Intended for tests and internal callers.
func WithPrincipal(ctx context.Context, principal *models.User) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}
