package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit limits each caller to requestsPerMinute. Authenticated callers
// are keyed by token subject, everyone else by client IP. Zero disables the
// limit.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(callerKey),
	)
}

func callerKey(r *http.Request) (string, error) {
	if p := GetPrincipal(r.Context()); p != nil && p.Subject != "" {
		return "sub:" + p.Subject, nil
	}
	return httprate.KeyByIP(r)
}
