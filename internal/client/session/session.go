// Package session owns the durable pairing of the current credential and
// the user profile it belongs to.
//
// The Store is the single source of truth for "is a user logged in". Only the
// auth operations and the expiry path (Terminator) write to it; every other
// component reads.
package session

import (
	"context"
	"errors"
)

// ErrEmptyCredential is returned by Save when the credential is blank.
var ErrEmptyCredential = errors.New("empty credential")

// UserProfile is the minimal identity derived alongside a credential.
type UserProfile struct {
	Username string `json:"username"`
}

// Session pairs a credential with its user profile.
type Session struct {
	Credential string
	User       UserProfile
}

// Store persists the current session.
//
// Save writes credential and profile atomically, replacing any prior
// session. Read reports false when no session is stored. Clear is
// idempotent. HasCredential does not look at expiry.
type Store interface {
	Save(ctx context.Context, s Session) error
	Read(ctx context.Context) (Session, bool, error)
	Clear(ctx context.Context) error
	HasCredential(ctx context.Context) (bool, error)
}
