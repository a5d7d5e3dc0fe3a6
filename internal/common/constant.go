// Package common contains shared constants and small helpers used across
// the qfin client packages.
package common

// AuthorizationHeaderName carries the bearer credential on outbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the authorization scheme prefix placed before the credential.
const BearerScheme = "Bearer"

// RequestIDHeaderName carries a per-request correlation id to both backends.
const RequestIDHeaderName = "X-Request-ID"

// OTPMarker is the substring the identity service puts into a 403 message
// when the login needs a one-time password instead of rejecting it.
const OTPMarker = "OTP"
