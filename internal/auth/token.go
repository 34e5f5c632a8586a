// Package auth signs and verifies the HS256 bearer tokens exchanged between
// the dashboard's feed client and the authority.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Issuer is stamped on every token the dashboard signs
const Issuer = "lb-dashboard"

// Signer mints short-lived HS256 tokens
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a signer. It returns nil when secret is empty, meaning
// requests go out unauthenticated.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if secret == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Sign returns a token for subject valid for the signer's TTL
func (s *Signer) Sign(subject string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Authorize sets the Authorization header on req
func (s *Signer) Authorize(req *http.Request, subject string) error {
	token, err := s.Sign(subject)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// Verify parses tokenString and checks its signature, algorithm and time
// claims against secret
func Verify(tokenString, secret string) (*jwt.RegisteredClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// ExtractBearer returns the bearer token of r, or "" when absent
func ExtractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
