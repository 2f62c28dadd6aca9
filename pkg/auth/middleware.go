package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Middleware provides HTTP authentication middleware.
type Middleware struct {
	authService AuthService
	required    bool
	logger      *zap.Logger
}

// NewMiddleware creates a new auth middleware. When required is false,
// requests without an Authorization header pass through anonymously; a
// header that is present must still be valid.
func NewMiddleware(authService AuthService, required bool, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		required:    required,
		logger:      logger,
	}
}

// RequireAuth validates the bearer token and sets claims and token in context.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, token, err := m.authService.ValidateRequest(r)
		if err != nil {
			if !m.required && errors.Is(err, ErrMissingAuthorization) {
				next(w, r)
				return
			}
			m.unauthorized(w, "Authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		ctx = context.WithValue(ctx, TokenKey, token)
		next(w, r.WithContext(ctx))
	}
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
