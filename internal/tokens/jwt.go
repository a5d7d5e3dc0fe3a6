// Package tokens reads the expiry embedded in a credential issued by the
// identity service.
//
// The client does NOT verify the signature: it has no key, and it does not
// need one. Reading "exp" only lets the client notice an expired credential
// before spending a request on it. The identity and data services stay
// authoritative and reject bad credentials with 401.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed means the credential is not a decodable JWT.
	ErrMalformed = errors.New("malformed credential")
	// ErrNoExpiry means the credential decodes but carries no exp claim.
	ErrNoExpiry = errors.New("credential has no expiry")
)

// Claims are the claims the identity service puts into its credentials.
type Claims struct {
	jwt.RegisteredClaims
}

var parser = jwt.NewParser()

// Expiry returns the expiry instant embedded in credential.
func Expiry(credential string) (time.Time, error) {
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(credential, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}
