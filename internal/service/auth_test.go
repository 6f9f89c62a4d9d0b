package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestAuth(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService("test-secret-key-for-jwt")
}

func TestJWTRoundTrip(t *testing.T) {
	auth := newTestAuth(t)

	token, err := auth.IssueJWT("ci", []string{ScopeCheck}, time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	principal, err := auth.ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if principal.Subject != "ci" {
		t.Errorf("Subject: got %q, want %q", principal.Subject, "ci")
	}
	if !principal.Allows(ScopeCheck) || principal.Allows(ScopeRead) {
		t.Errorf("Scopes: got %v", principal.Scopes)
	}
	if principal.ExpiresAt.IsZero() {
		t.Error("ExpiresAt not set")
	}
}

func TestJWTDefaultScopes(t *testing.T) {
	auth := newTestAuth(t)
	token, err := auth.IssueJWT("admin", nil, time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}
	p, err := auth.ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if !p.Allows(ScopeRead) || !p.Allows(ScopeCheck) {
		t.Errorf("Scopes: got %v", p.Scopes)
	}
}

func TestJWTUnknownScope(t *testing.T) {
	if _, err := newTestAuth(t).IssueJWT("x", []string{"admin"}, time.Hour); err == nil {
		t.Fatal("expected error for unknown scope")
	}
}

func TestJWTExpired(t *testing.T) {
	auth := newTestAuth(t)

	token, err := auth.IssueJWT("ci", nil, -1*time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}

	_, err = auth.ValidateJWT(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestJWTInvalidToken(t *testing.T) {
	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"garbage", func(t *testing.T) string { return "garbage.token.here" }},
		{"wrong secret", func(t *testing.T) string {
			tok, err := NewAuthService("other-secret").IssueJWT("ci", nil, time.Hour)
			if err != nil {
				t.Fatal(err)
			}
			return tok
		}},
		{"wrong issuer", func(t *testing.T) string {
			claims := jwt.RegisteredClaims{Issuer: "someone-else", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
			tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-key-for-jwt"))
			if err != nil {
				t.Fatal(err)
			}
			return tok
		}},
	}

	auth := newTestAuth(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.ValidateJWT(tt.token(t))
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestDisabledAuth(t *testing.T) {
	auth := NewAuthService("")
	if auth.Enabled() {
		t.Fatal("empty secret should disable auth")
	}
	if _, err := auth.IssueJWT("ci", nil, time.Hour); !errors.Is(err, ErrNoSecret) {
		t.Errorf("IssueJWT err = %v", err)
	}
	if _, err := auth.ValidateJWT("x"); !errors.Is(err, ErrNoSecret) {
		t.Errorf("ValidateJWT err = %v", err)
	}
}
