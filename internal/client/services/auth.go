// Package services contains the application services of the qfin client.
// This file defines the authentication service: register, login, OTP
// verification and re-issuance, and local logout.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/qfin/internal/client/apierr"
	"github.com/dmitrijs2005/qfin/internal/client/client"
	"github.com/dmitrijs2005/qfin/internal/client/nav"
	"github.com/dmitrijs2005/qfin/internal/client/session"
	"github.com/dmitrijs2005/qfin/internal/logging"
)

// MsgLoginFailed is shown for rejected credentials and for a login that
// succeeded without issuing a credential.
const MsgLoginFailed = "Login failed. Please check your credentials."

// RegisterRequest carries the profile fields of a new account.
type RegisterRequest struct {
	Username string
	Email    string
	Phone    string
	Password string
	DOB      string
}

// PendingRegistration is an account awaiting OTP confirmation. It lives in
// memory only; losing it (restart) means registering again.
type PendingRegistration struct {
	Username string
	Email    string
	Message  string
}

// VerifyResult reports a confirmed OTP. Session is nil when the identity
// service confirmed the account without issuing a credential and the user
// must log in separately.
type VerifyResult struct {
	Confirmed bool
	Session   *session.Session
}

// AuthService defines authentication operations.
//
// Contract:
//   - Register: create an unconfirmed account; never creates a session.
//   - Login: authenticate and persist the session. An OTP challenge comes
//     back as an *apierr.Error for which apierr.IsOTPChallenge is true.
//   - VerifyOTP: confirm an OTP; persists a session when one is issued.
//   - ResendOTP: ask the identity service to issue a new OTP.
//   - Logout: clear the local session and go to the landing view. No
//     network round trip; calling it twice is fine.
//   - ValidateSession: ask the identity service whether the stored
//     credential is still accepted and return the username it belongs to.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (PendingRegistration, error)
	Login(ctx context.Context, username, password, otp string) (session.Session, error)
	VerifyOTP(ctx context.Context, username, otp string) (VerifyResult, error)
	ResendOTP(ctx context.Context, username string) error
	Logout(ctx context.Context) error
	IsAuthenticated(ctx context.Context) bool
	CurrentUser(ctx context.Context) (session.UserProfile, bool)
	ValidateSession(ctx context.Context) (string, error)
}

type authService struct {
	client client.Client
	store  session.Store
	nav    nav.Navigator
	logger logging.Logger
}

// NewAuthService constructs an AuthService bound to the identity client,
// the session store and the navigator.
func NewAuthService(c client.Client, store session.Store, navigator nav.Navigator, logger logging.Logger) AuthService {
	return &authService{client: c, store: store, nav: navigator, logger: logger}
}

func (a *authService) Register(ctx context.Context, req RegisterRequest) (PendingRegistration, error) {
	resp, err := a.client.SignUp(ctx, client.SignUpRequest{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		DOB:      req.DOB,
	})
	if err != nil {
		return PendingRegistration{}, err
	}

	email := resp.Email
	if email == "" {
		email = req.Email
	}
	a.logger.Info(ctx, "registration pending confirmation", "username", req.Username)
	return PendingRegistration{Username: req.Username, Email: email, Message: resp.Message}, nil
}

func (a *authService) Login(ctx context.Context, username, password, otp string) (session.Session, error) {
	resp, err := a.client.Login(ctx, client.LoginRequest{Username: username, Password: password, OTP: otp})
	if err != nil {
		if apierr.IsOTPChallenge(err) {
			a.logger.Debug(ctx, "login requires otp", "username", username)
			return session.Session{}, err
		}
		if e, ok := apierr.As(err); ok && e.Status == http.StatusUnauthorized {
			return session.Session{}, &apierr.Error{
				Kind:    apierr.KindValidation,
				Message: MsgLoginFailed,
				Status:  e.Status,
				Body:    e.Body,
				Cause:   err,
			}
		}
		return session.Session{}, err
	}

	if strings.TrimSpace(resp.Token) == "" {
		return session.Session{}, apierr.New(apierr.KindUnknown, MsgLoginFailed)
	}
	return a.establish(ctx, username, resp.Token)
}

func (a *authService) VerifyOTP(ctx context.Context, username, otp string) (VerifyResult, error) {
	resp, err := a.client.VerifyOTP(ctx, client.VerifyOTPRequest{Username: username, OTP: otp})
	if err != nil {
		if e, ok := apierr.As(err); ok && e.Status == http.StatusUnauthorized {
			msg := apierr.ServerMessage(e.Body)
			if msg == "" {
				msg = "Invalid OTP"
			}
			return VerifyResult{}, &apierr.Error{
				Kind:    apierr.KindValidation,
				Message: msg,
				Status:  e.Status,
				Body:    e.Body,
				Cause:   err,
			}
		}
		return VerifyResult{}, err
	}

	if strings.TrimSpace(resp.Token) == "" {
		a.logger.Info(ctx, "otp confirmed without credential", "username", username)
		return VerifyResult{Confirmed: true}, nil
	}

	s, err := a.establish(ctx, username, resp.Token)
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{Confirmed: true, Session: &s}, nil
}

func (a *authService) ResendOTP(ctx context.Context, username string) error {
	_, err := a.client.ResendOTP(ctx, client.ResendOTPRequest{Username: username})
	return err
}

func (a *authService) Logout(ctx context.Context) error {
	if err := a.store.Clear(ctx); err != nil {
		// the credential may still be on disk; do not pretend otherwise
		return fmt.Errorf("logout: %w", err)
	}
	a.logger.Info(ctx, "logged out")
	a.nav.Navigate(ctx, nav.LandingPath)
	return nil
}

func (a *authService) IsAuthenticated(ctx context.Context) bool {
	ok, err := a.store.HasCredential(ctx)
	if err != nil {
		a.logger.Warn(ctx, "session store read failed", "error", err)
		return false
	}
	return ok
}

func (a *authService) CurrentUser(ctx context.Context) (session.UserProfile, bool) {
	s, ok, err := a.store.Read(ctx)
	if err != nil {
		a.logger.Warn(ctx, "session store read failed", "error", err)
		return session.UserProfile{}, false
	}
	if !ok {
		return session.UserProfile{}, false
	}
	return s.User, true
}

// ErrSessionInvalid is returned by ValidateSession when the identity
// service answers but does not accept the credential.
var ErrSessionInvalid = errors.New("session is not valid")

func (a *authService) ValidateSession(ctx context.Context) (string, error) {
	if !a.IsAuthenticated(ctx) {
		return "", apierr.ErrAuthorizationRequired
	}
	resp, err := a.client.ValidateToken(ctx)
	if err != nil {
		return "", err
	}
	if !resp.Valid {
		return "", ErrSessionInvalid
	}
	return resp.Username, nil
}

func (a *authService) establish(ctx context.Context, username, credential string) (session.Session, error) {
	s := session.Session{Credential: credential, User: session.UserProfile{Username: username}}
	if err := a.store.Save(ctx, s); err != nil {
		return session.Session{}, fmt.Errorf("save session: %w", err)
	}
	a.logger.Info(ctx, "session established", "username", username)
	return s, nil
}
