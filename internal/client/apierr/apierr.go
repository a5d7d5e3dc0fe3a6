// Package apierr defines the single error shape every backend failure is
// converted into before it reaches calling code.
//
// Callers branch on Kind (via errors.Is against the sentinels below) and
// show Message to the user; they never see transport-level errors.
package apierr

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/qfin/internal/common"
)

// Kind classifies a failure.
type Kind string

const (
	KindNetwork               Kind = "NETWORK_ERROR"
	KindSessionExpired        Kind = "SESSION_EXPIRED"
	KindAuthorizationRequired Kind = "AUTHORIZATION_REQUIRED"
	KindValidation            Kind = "VALIDATION_ERROR"
	KindNotFound              Kind = "NOT_FOUND"
	KindServer                Kind = "SERVER_ERROR"
	KindUnknown               Kind = "UNKNOWN_ERROR"
)

// User-facing messages of the fixed mappings.
const (
	MsgNetwork        = "Network error. Please check your connection and try again."
	MsgSessionExpired = "Your session has expired. Please log in again."
	MsgAuthRequired   = "Authentication required."
	MsgNotFound       = "The requested resource was not found."
	MsgServer         = "An internal server error occurred. Please try again later."
	MsgUnexpected     = "An unexpected error occurred."
)

// Error is the normalized failure.
type Error struct {
	Kind    Kind
	Message string // short, human readable
	Status  int    // HTTP status, 0 when no response was received
	Body    []byte // raw response body, nil when no response was received
	Cause   error  // underlying transport error, if any
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by kind, so errors.Is(err, apierr.ErrNotFound)
// works for any not-found failure.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is.
var (
	ErrNetwork               = &Error{Kind: KindNetwork, Message: MsgNetwork}
	ErrSessionExpired        = &Error{Kind: KindSessionExpired, Message: MsgSessionExpired}
	ErrAuthorizationRequired = &Error{Kind: KindAuthorizationRequired, Message: MsgAuthRequired}
	ErrValidation            = &Error{Kind: KindValidation, Message: "validation error"}
	ErrNotFound              = &Error{Kind: KindNotFound, Message: MsgNotFound}
	ErrServer                = &Error{Kind: KindServer, Message: MsgServer}
	ErrUnknown               = &Error{Kind: KindUnknown, Message: MsgUnexpected}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Network builds the error for a request that got no response.
func Network(cause error) *Error {
	return &Error{Kind: KindNetwork, Message: MsgNetwork, Cause: cause}
}

// As returns the *Error inside err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindUnknown for foreign errors and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// MessageOf returns the user-facing message of err, or fallback when err
// carries none.
func MessageOf(err error, fallback string) string {
	if e, ok := As(err); ok && e.Message != "" {
		return e.Message
	}
	return fallback
}

// IsOTPChallenge reports whether err is the identity service asking for a
// one-time password: status 403 with the OTP marker in the message.
//
// The service uses the same status for "need more information" and
// "rejected", so the message text is the only discriminator. Anything that
// does not match exactly is treated as an ordinary failure.
func IsOTPChallenge(err error) bool {
	e, ok := As(err)
	if !ok || e == nil {
		return false
	}
	return e.Status == 403 && strings.Contains(e.Message, common.OTPMarker)
}

const maxPlainMessage = 200

// ServerMessage extracts the human message a backend put into a response
// body: JSON "message", then JSON "error", then a short plain-text body.
// Returns "" when nothing usable is present.
func ServerMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(trimmed), &payload); err == nil {
		for _, key := range []string{"message", "error"} {
			if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		return ""
	}
	if json.Valid([]byte(trimmed)) {
		// JSON, but not an object carrying a message
		var s string
		if json.Unmarshal([]byte(trimmed), &s) == nil {
			return strings.TrimSpace(s)
		}
		return ""
	}

	if strings.HasPrefix(trimmed, "<") || !utf8.ValidString(trimmed) || len(trimmed) > maxPlainMessage {
		return ""
	}
	return trimmed
}
