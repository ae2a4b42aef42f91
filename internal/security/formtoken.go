// Package security issues and verifies the short-lived tokens that tie a
// rendered form to its eventual submission.
package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidFormToken indicates a missing, malformed, expired, or
// wrongly-signed form token.
var ErrInvalidFormToken = errors.New("security: invalid form token")

// DefaultFormTokenTTL is how long a rendered form stays submittable.
const DefaultFormTokenTTL = 2 * time.Hour

const formTokenSubject = "form-submit"

// FormTokenIssuer mints and verifies HMAC-signed form tokens.
type FormTokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewFormTokenIssuer creates an issuer for the given signing secret. A zero
// ttl falls back to DefaultFormTokenTTL.
func NewFormTokenIssuer(secret string, ttl time.Duration) *FormTokenIssuer {
	if ttl <= 0 {
		ttl = DefaultFormTokenTTL
	}
	return &FormTokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Mint returns a signed token valid for the issuer's TTL.
func (i *FormTokenIssuer) Mint() (string, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   formTokenSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("security: sign form token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature, subject, and expiry.
func (i *FormTokenIssuer) Verify(tokenString string) error {
	if tokenString == "" {
		return ErrInvalidFormToken
	}
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil || !token.Valid || claims.Subject != formTokenSubject {
		return ErrInvalidFormToken
	}
	return nil
}
