package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/faucetdb/driftguard/internal/model"
	"github.com/faucetdb/driftguard/internal/service"
)

type principalKey struct{}

// Authenticate validates the bearer token of every request and stores its
// principal in the context. A service without a secret lets everything
// through.
func Authenticate(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !authSvc.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				deny(w, r, http.StatusUnauthorized, "Authentication required. Provide a Bearer token.")
				return
			}
			principal, err := authSvc.ValidateJWT(token)
			switch {
			case errors.Is(err, service.ErrTokenExpired):
				deny(w, r, http.StatusUnauthorized, "Token expired")
				return
			case err != nil:
				deny(w, r, http.StatusUnauthorized, "Invalid token")
				return
			}
			noteSubject(r.Context(), principal.Subject)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, principal)))
		})
	}
}

// RequireScope rejects principals without scope. Mount it after
// Authenticate.
func RequireScope(authSvc *service.AuthService, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !authSvc.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !GetPrincipal(r.Context()).Allows(scope) {
				deny(w, r, http.StatusForbidden, "Token lacks the "+scope+" scope")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal returns the authenticated principal, nil when auth is off.
func GetPrincipal(ctx context.Context) *service.Principal {
	p, _ := ctx.Value(principalKey{}).(*service.Principal)
	return p
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// deny writes the same error envelope as the API handlers.
func deny(w http.ResponseWriter, r *http.Request, status int, message string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="driftguard"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{Error: model.ErrorDetail{ //nolint:errcheck
		Code:      status,
		Message:   message,
		RequestID: GetRequestID(r.Context()),
	}})
}
