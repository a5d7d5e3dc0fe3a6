// Package client binds the identity service.
//
// # Overview
//
// Client is the transport-agnostic contract of the identity service:
// SignUp, Login, VerifyOTP, ResendOTP and ValidateToken. HTTPClient
// implements it over an api.Client configured for the identity backend,
// so credential attachment and error normalization come from that layer.
//
// # Error Handling
//
// Every error returned by HTTPClient is an *apierr.Error. Callers match
// kinds with errors.Is (apierr.ErrSessionExpired, apierr.ErrNetwork, ...)
// and use apierr.IsOTPChallenge to recognise the OTP challenge on login.
//
// # Endpoints
//
//	POST /auth/signup          SignUpRequest   -> MessageResponse
//	POST /auth/login           LoginRequest    -> TokenResponse
//	POST /auth/verify-otp      VerifyOTPRequest -> TokenResponse (token optional)
//	POST /auth/resend-otp      ResendOTPRequest -> MessageResponse
//	GET  /auth/validate-token                  -> ValidateTokenResponse
package client
