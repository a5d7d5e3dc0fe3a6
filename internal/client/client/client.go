package client

import (
	"context"
)

// Endpoint paths relative to the identity service base URL.
const (
	SignUpPath        = "/auth/signup"
	LoginPath         = "/auth/login"
	VerifyOTPPath     = "/auth/verify-otp"
	ResendOTPPath     = "/auth/resend-otp"
	ValidateTokenPath = "/auth/validate-token"
)

// PublicPaths are called without a credential on purpose.
var PublicPaths = []string{SignUpPath, LoginPath, VerifyOTPPath, ResendOTPPath}

type SignUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	DOB      string `json:"dob"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	OTP      string `json:"otp,omitempty"`
}

type VerifyOTPRequest struct {
	Username string `json:"username"`
	OTP      string `json:"otp"`
}

type ResendOTPRequest struct {
	Username string `json:"username"`
}

type MessageResponse struct {
	Message string `json:"message"`
	Email   string `json:"email,omitempty"`
}

type TokenResponse struct {
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
}

type ValidateTokenResponse struct {
	Valid    bool   `json:"valid"`
	Username string `json:"username"`
	Message  string `json:"message,omitempty"`
}

type Client interface {
	SignUp(ctx context.Context, req SignUpRequest) (MessageResponse, error)
	Login(ctx context.Context, req LoginRequest) (TokenResponse, error)
	VerifyOTP(ctx context.Context, req VerifyOTPRequest) (TokenResponse, error)
	ResendOTP(ctx context.Context, req ResendOTPRequest) (MessageResponse, error)
	ValidateToken(ctx context.Context) (ValidateTokenResponse, error)
}
