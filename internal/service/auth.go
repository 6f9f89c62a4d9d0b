// Package service holds the API's authentication service.
package service

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrMissingScope       = errors.New("missing scope")
	ErrNoSecret           = errors.New("jwt secret not configured")
)

// Scopes granted by API tokens.
const (
	ScopeRead  = "read"  // catalog, rules, run history
	ScopeCheck = "check" // running checks and suggestions
)

// Issuer is the iss claim of every issued token.
const Issuer = "driftguard"

// Principal is the authenticated caller of a request.
type Principal struct {
	Subject   string
	Scopes    []string
	ExpiresAt time.Time
}

// Allows reports whether the principal holds scope.
func (p *Principal) Allows(scope string) bool {
	return p != nil && slices.Contains(p.Scopes, scope)
}

// AuthService issues and validates HS256 bearer tokens.
type AuthService struct {
	jwtSecret []byte
	now       func() time.Time
}

// NewAuthService returns a service signing with secret. An empty secret
// disables authentication: Enabled reports false and IssueJWT fails.
func NewAuthService(jwtSecret string) *AuthService {
	return &AuthService{jwtSecret: []byte(jwtSecret), now: time.Now}
}

// Enabled reports whether requests must carry a token.
func (s *AuthService) Enabled() bool { return s != nil && len(s.jwtSecret) > 0 }

// IssueJWT creates a signed token for subject. No scopes grants all scopes.
func (s *AuthService) IssueJWT(subject string, scopes []string, ttl time.Duration) (string, error) {
	if !s.Enabled() {
		return "", ErrNoSecret
	}
	if len(scopes) == 0 {
		scopes = []string{ScopeRead, ScopeCheck}
	}
	for _, sc := range scopes {
		if sc != ScopeRead && sc != ScopeCheck {
			return "", fmt.Errorf("unknown scope %q", sc)
		}
	}

	now := s.now()
	claims := jwtClaims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateJWT verifies a bearer token and returns its principal.
func (s *AuthService) ValidateJWT(tokenStr string) (*Principal, error) {
	if !s.Enabled() {
		return nil, ErrNoSecret
	}
	claims := &jwtClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidCredentials
	}

	if !token.Valid {
		return nil, ErrInvalidCredentials
	}

	p := &Principal{Subject: claims.Subject, Scopes: claims.Scopes}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

type jwtClaims struct {
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}
