package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "casefile/pkg/domain"
	"casefile/pkg/requestcontext"
)

// TokenValidator defines the interface for validating bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// TokenClaims represents the claims we expect from the token validator.
type TokenClaims struct {
	PrincipalID id.PrincipalID
	Role        id.Role
}

// RequireAuth rejects requests without a valid bearer token and places the
// authenticated principal in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := bearerClaims(r, validator)
			if !ok {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - missing or invalid token",
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"kind":"unauthorized","message":"missing or invalid bearer token"}`))
				return
			}

			ctx := requestcontext.WithPrincipal(r.Context(), id.Principal{
				ID:   claims.PrincipalID,
				Role: claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attributes the request to a principal when a valid token is
// present but lets anonymous callers through. Complaint intake is open to
// the public; everything else uses RequireAuth.
func OptionalAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, ok := bearerClaims(r, validator); ok {
				ctx := requestcontext.WithPrincipal(r.Context(), id.Principal{
					ID:   claims.PrincipalID,
					Role: claims.Role,
				})
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerClaims(r *http.Request, validator TokenValidator) (*TokenClaims, bool) {
	const bearerPrefix = "Bearer "
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	if !ok || token == "" {
		return nil, false
	}
	claims, err := validator.ValidateToken(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}
