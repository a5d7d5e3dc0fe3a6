package client

import (
	"context"
	"net/http"
	"net/url"
)

// Transport is the part of api.Client the identity binding needs.
type Transport interface {
	Do(ctx context.Context, method, path string, query url.Values, in, out any) error
}

type HTTPClient struct {
	transport Transport
}

func NewHTTPClient(t Transport) *HTTPClient {
	return &HTTPClient{transport: t}
}

func (c *HTTPClient) SignUp(ctx context.Context, req SignUpRequest) (MessageResponse, error) {
	var resp MessageResponse
	if err := c.transport.Do(ctx, http.MethodPost, SignUpPath, nil, req, &resp); err != nil {
		return MessageResponse{}, err
	}
	return resp, nil
}

func (c *HTTPClient) Login(ctx context.Context, req LoginRequest) (TokenResponse, error) {
	var resp TokenResponse
	if err := c.transport.Do(ctx, http.MethodPost, LoginPath, nil, req, &resp); err != nil {
		return TokenResponse{}, err
	}
	return resp, nil
}

func (c *HTTPClient) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (TokenResponse, error) {
	var resp TokenResponse
	if err := c.transport.Do(ctx, http.MethodPost, VerifyOTPPath, nil, req, &resp); err != nil {
		return TokenResponse{}, err
	}
	return resp, nil
}

func (c *HTTPClient) ResendOTP(ctx context.Context, req ResendOTPRequest) (MessageResponse, error) {
	var resp MessageResponse
	if err := c.transport.Do(ctx, http.MethodPost, ResendOTPPath, nil, req, &resp); err != nil {
		return MessageResponse{}, err
	}
	return resp, nil
}

func (c *HTTPClient) ValidateToken(ctx context.Context) (ValidateTokenResponse, error) {
	var resp ValidateTokenResponse
	if err := c.transport.Do(ctx, http.MethodGet, ValidateTokenPath, nil, nil, &resp); err != nil {
		return ValidateTokenResponse{}, err
	}
	return resp, nil
}
