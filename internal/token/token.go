// Package token issues and validates signed bearer tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for every validation failure: malformed
// string, wrong signature, expired token or missing subject. Callers must
// not be able to tell which check failed.
var ErrInvalidToken = errors.New("invalid or expired token")

// Service handles JWT token issuance and validation.
// Tokens are stateless: validity is fully determined by signature and expiry.
type Service struct {
	secret   string
	lifetime time.Duration
}

// NewService creates a new token service with a process-wide secret and a
// fixed token lifetime, both supplied by configuration at startup.
func NewService(secret string, lifetime time.Duration) *Service {
	return &Service{
		secret:   secret,
		lifetime: lifetime,
	}
}

// Issue creates a signed HS256 token carrying the subject and an
// expiration of issue time plus the configured lifetime
func (s *Service) Issue(subject string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": now.Add(s.lifetime).Unix(),
		"iat": now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Validate verifies the token's signature and expiry and returns its subject
func (s *Service) Validate(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})

	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	subject, ok := claims["sub"].(string)
	if !ok || subject == "" {
		return "", ErrInvalidToken
	}

	return subject, nil
}
