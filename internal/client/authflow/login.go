package authflow

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/qfin/internal/client/apierr"
	"github.com/dmitrijs2005/qfin/internal/client/nav"
	"github.com/dmitrijs2005/qfin/internal/client/services"
	"github.com/dmitrijs2005/qfin/internal/logging"
)

// LoginFlow is the login dialogue.
//
//	Idle -> Submitting -> Success | OTPRequired | Failed
//	OTPRequired -> VerifyingOTP -> Success | OTPRequired | Failed
//
// OTPRequired keeps the username and password so the OTP can be sent
// without retyping them. Failed is not terminal; Submit may be called again.
type LoginFlow struct {
	machine
	auth     services.AuthService
	nav      nav.Navigator
	logger   logging.Logger
	password string
}

func NewLoginFlow(auth services.AuthService, navigator nav.Navigator, logger logging.Logger) *LoginFlow {
	return &LoginFlow{auth: auth, nav: navigator, logger: logger}
}

// Submit posts the credentials. otp may be empty.
func (f *LoginFlow) Submit(ctx context.Context, username, password, otp string) (Snapshot, error) {
	f.mu.Lock()
	if f.state == Submitting || f.state == VerifyingOTP {
		s := f.snapshotLocked()
		f.mu.Unlock()
		return s, ErrBusy
	}
	gen := f.begin(Submitting)
	f.username, f.password = username, password
	f.mu.Unlock()

	_, err := f.auth.Login(ctx, username, password, otp)
	return f.settle(ctx, gen, err)
}

// VerifyOTP confirms the OTP of an outstanding challenge. When the identity
// service confirms without issuing a credential, the login is retried with
// the kept password and the OTP.
func (f *LoginFlow) VerifyOTP(ctx context.Context, otp string) (Snapshot, error) {
	f.mu.Lock()
	if f.state != OTPRequired {
		s := f.snapshotLocked()
		f.mu.Unlock()
		return s, ErrNoChallenge
	}
	if strings.TrimSpace(otp) == "" {
		f.message = MsgEnterOTP
		s := f.snapshotLocked()
		f.mu.Unlock()
		return s, apierr.New(apierr.KindValidation, MsgEnterOTP)
	}
	gen := f.begin(VerifyingOTP)
	username, password := f.username, f.password
	f.mu.Unlock()

	res, err := f.auth.VerifyOTP(ctx, username, otp)
	if err == nil && res.Session == nil {
		_, err = f.auth.Login(ctx, username, password, otp)
	}
	if err != nil && !apierr.IsOTPChallenge(err) {
		return f.keepChallenge(gen, err)
	}
	return f.settle(ctx, gen, err)
}

// ResendOTP asks for a new OTP. The state does not change.
func (f *LoginFlow) ResendOTP(ctx context.Context) (Snapshot, error) {
	f.mu.Lock()
	if f.state != OTPRequired {
		s := f.snapshotLocked()
		f.mu.Unlock()
		return s, ErrNoChallenge
	}
	if f.username == "" {
		f.message = MsgEnterUsername
		s := f.snapshotLocked()
		f.mu.Unlock()
		return s, apierr.New(apierr.KindValidation, MsgEnterUsername)
	}
	gen, username := f.gen, f.username
	f.mu.Unlock()

	err := f.auth.ResendOTP(ctx, username)
	return f.settleResend(ctx, gen, err)
}

// Abandon returns to Idle and discards whatever is in flight.
func (f *LoginFlow) Abandon() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begin(Idle)
	f.username, f.password = "", ""
}

func (f *LoginFlow) settleResend(ctx context.Context, gen uint64, err error) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.current(gen) {
		f.logger.Debug(ctx, "discarding stale resend response")
		return f.snapshotLocked(), ErrSuperseded
	}
	if err != nil {
		f.message = apierr.MessageOf(err, MsgVerifyFailed)
		return f.snapshotLocked(), err
	}
	f.message = MsgOTPResent
	return f.snapshotLocked(), nil
}

func (f *LoginFlow) settle(ctx context.Context, gen uint64, err error) (Snapshot, error) {
	f.mu.Lock()
	if !f.current(gen) {
		s := f.snapshotLocked()
		f.mu.Unlock()
		f.logger.Debug(ctx, "discarding stale login response")
		return s, ErrSuperseded
	}

	switch {
	case err == nil:
		f.state, f.message, f.password = Success, "", ""
	case apierr.IsOTPChallenge(err):
		f.state, f.message = OTPRequired, MsgEnterOTP
	default:
		f.state, f.message, f.password = Failed, apierr.MessageOf(err, MsgLoginFailed), ""
	}
	s := f.snapshotLocked()
	f.mu.Unlock()

	if s.State == Success {
		f.nav.Navigate(ctx, nav.DashboardPath)
		return s, nil
	}
	if s.State == OTPRequired {
		return s, nil
	}
	return s, err
}

// keepChallenge records a failed OTP attempt: the challenge stays open so
// the user can try another code.
func (f *LoginFlow) keepChallenge(gen uint64, err error) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.current(gen) {
		return f.snapshotLocked(), ErrSuperseded
	}
	f.state, f.message = OTPRequired, apierr.MessageOf(err, MsgVerifyFailed)
	return f.snapshotLocked(), err
}
