// Package tokenstest mints credentials shaped like the identity service's,
// for fake backends in tests.
package tokenstest

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issue signs an HS256 credential for subject valid for ttl. A negative ttl
// yields an already expired credential.
func Issue(subject string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString(secret)
}
