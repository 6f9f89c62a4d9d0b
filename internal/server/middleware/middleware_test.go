package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/faucetdb/driftguard/internal/model"
	"github.com/faucetdb/driftguard/internal/service"
)

// ---------------------------------------------------------------------------
// RequestID middleware tests
// ---------------------------------------------------------------------------

func TestRequestIDGeneratesUUID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Error("expected non-empty request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	respID := rr.Header().Get(RequestIDHeader)
	// UUID v7 format check: 36 chars with dashes
	if len(respID) != 36 {
		t.Errorf("expected UUID-length request ID, got %q (len=%d)", respID, len(respID))
	}
}

func TestRequestIDClientValue(t *testing.T) {
	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"trace id", "my-custom-trace-id-123", true},
		{"contains space", "bad id", false},
		{"too long", strings.Repeat("a", maxRequestIDLen+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set(RequestIDHeader, tt.header)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if got := seen == tt.header; got != tt.keep {
				t.Errorf("kept = %v, want %v (id %q)", got, tt.keep, seen)
			}
			if rr.Header().Get(RequestIDHeader) != seen {
				t.Errorf("response header %q != context %q", rr.Header().Get(RequestIDHeader), seen)
			}
		})
	}
}

func TestGetRequestIDEmptyContext(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("expected empty string from bare context, got %q", id)
	}
}

// ---------------------------------------------------------------------------
// Authenticate / RequireScope tests
// ---------------------------------------------------------------------------

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate(t *testing.T) {
	auth := service.NewAuthService("secret")
	valid, err := auth.IssueJWT("ci", nil, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	expired, err := auth.IssueJWT("ci", nil, -time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		auth   *service.AuthService
		header string
		want   int
	}{
		{"disabled", service.NewAuthService(""), "", http.StatusOK},
		{"missing", auth, "", http.StatusUnauthorized},
		{"not bearer", auth, "Basic abc", http.StatusUnauthorized},
		{"expired", auth, "Bearer " + expired, http.StatusUnauthorized},
		{"empty bearer", auth, "Bearer ", http.StatusUnauthorized},
		{"valid", auth, "Bearer " + valid, http.StatusOK},
		{"lowercase scheme", auth, "bearer " + valid, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/catalog", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			Authenticate(tt.auth)(okHandler()).ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestAuthenticateErrorEnvelope(t *testing.T) {
	auth := service.NewAuthService("secret")
	h := RequestID(Authenticate(auth)(okHandler()))

	req := httptest.NewRequest("GET", "/api/v1/catalog", nil)
	req.Header.Set(RequestIDHeader, "trace-7")
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("WWW-Authenticate"), "Bearer") {
		t.Errorf("WWW-Authenticate = %q", rr.Header().Get("WWW-Authenticate"))
	}
	var body model.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v; body = %s", err, rr.Body.String())
	}
	if body.Error.Code != http.StatusUnauthorized || body.Error.Message != "Invalid token" || body.Error.RequestID != "trace-7" {
		t.Errorf("body = %+v", body)
	}
}

func TestRequireScope(t *testing.T) {
	auth := service.NewAuthService("secret")
	readOnly, err := auth.IssueJWT("viewer", []string{service.ScopeRead}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	chain := func(scope string) http.Handler {
		return Authenticate(auth)(RequireScope(auth, scope)(okHandler()))
	}

	req := httptest.NewRequest("POST", "/api/v1/check", nil)
	req.Header.Set("Authorization", "Bearer "+readOnly)
	rr := httptest.NewRecorder()
	chain(service.ScopeCheck).ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("check scope: status = %d, want 403", rr.Code)
	}

	req = httptest.NewRequest("GET", "/api/v1/catalog", nil)
	req.Header.Set("Authorization", "Bearer "+readOnly)
	rr = httptest.NewRecorder()
	chain(service.ScopeRead).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("read scope: status = %d, want 200", rr.Code)
	}
}

func TestGetPrincipalWithoutValue(t *testing.T) {
	if p := GetPrincipal(context.Background()); p != nil {
		t.Errorf("expected nil principal, got %+v", p)
	}
}

// ---------------------------------------------------------------------------
// Logger tests
// ---------------------------------------------------------------------------

func TestLoggerRecordsSubject(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	auth := service.NewAuthService("secret")
	token, err := auth.IssueJWT("ci-bot", nil, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	h := RequestID(Logger(logger)(Authenticate(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))))

	req := httptest.NewRequest("GET", "/api/v1/rules", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{"level=WARN", "status=418", "subject=ci-bot", "path=/api/v1/rules"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q: %s", want, out)
		}
	}
}

// ---------------------------------------------------------------------------
// RateLimit tests
// ---------------------------------------------------------------------------

func TestRateLimit(t *testing.T) {
	h := RateLimit(2)(okHandler())
	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest("GET", "/healthz", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes[i] = rr.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	h := RateLimit(0)(okHandler())
	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rr.Code)
		}
	}
}
