package authflow

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/qfin/internal/client/apierr"
	"github.com/dmitrijs2005/qfin/internal/client/nav"
	"github.com/dmitrijs2005/qfin/internal/client/services"
	"github.com/dmitrijs2005/qfin/internal/logging"
)

// RegistrationForm is the input of the registration dialogue.
type RegistrationForm struct {
	Name            string
	Email           string
	Phone           string
	DOB             string
	Password        string
	ConfirmPassword string
}

// Validate returns the message for the first problem, or "".
func (r RegistrationForm) Validate() string {
	required := []struct{ value, label string }{
		{r.Name, "name"},
		{r.Email, "email"},
		{r.Password, "password"},
		{r.ConfirmPassword, "confirm password"},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return "Please fill in your " + f.label
		}
	}
	if r.Password != r.ConfirmPassword {
		return MsgPasswordMatch
	}
	return ""
}

// RegisterFlow is the registration dialogue.
//
//	Idle -> Submitting -> OTPPending | Failed
//	OTPPending -> VerifyingOTP -> Completed | Failed
//
// The pending registration is held in memory only. A failed verification
// drops it, so the user registers again.
type RegisterFlow struct {
	machine
	auth    services.AuthService
	nav     nav.Navigator
	logger  logging.Logger
	pending *services.PendingRegistration
}

func NewRegisterFlow(auth services.AuthService, navigator nav.Navigator, logger logging.Logger) *RegisterFlow {
	return &RegisterFlow{auth: auth, nav: navigator, logger: logger}
}

// Pending returns the registration awaiting confirmation, if any.
func (f *RegisterFlow) Pending() (services.PendingRegistration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		return services.PendingRegistration{}, false
	}
	return *f.pending, true
}

func (f *RegisterFlow) Submit(ctx context.Context, form RegistrationForm) (Snapshot, error) {
	f.mu.Lock()
	if f.state == Submitting || f.state == VerifyingOTP {
		s := f.snapshotLocked()
		f.mu.Unlock()
		return s, ErrBusy
	}
	if msg := form.Validate(); msg != "" {
		f.gen++
		f.state, f.message, f.pending = Failed, msg, nil
		s := f.snapshotLocked()
		f.mu.Unlock()
		return s, apierr.New(apierr.KindValidation, msg)
	}
	gen := f.begin(Submitting)
	f.username, f.pending = form.Name, nil
	f.mu.Unlock()

	p, err := f.auth.Register(ctx, services.RegisterRequest{
		Username: form.Name,
		Email:    form.Email,
		Phone:    form.Phone,
		Password: form.Password,
		DOB:      form.DOB,
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.current(gen) {
		f.logger.Debug(ctx, "discarding stale registration response")
		return f.snapshotLocked(), ErrSuperseded
	}
	if err != nil {
		f.state, f.message = Failed, apierr.MessageOf(err, MsgRegisterFail)
		return f.snapshotLocked(), err
	}
	f.pending = &p
	f.state, f.message = OTPPending, MsgEnterOTP
	return f.snapshotLocked(), nil
}

func (f *RegisterFlow) VerifyOTP(ctx context.Context, otp string) (Snapshot, error) {
	f.mu.Lock()
	if f.state != OTPPending || f.pending == nil {
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
	username := f.pending.Username
	f.mu.Unlock()

	res, err := f.auth.VerifyOTP(ctx, username, otp)

	f.mu.Lock()
	if !f.current(gen) {
		s := f.snapshotLocked()
		f.mu.Unlock()
		f.logger.Debug(ctx, "discarding stale otp response")
		return s, ErrSuperseded
	}
	f.pending = nil
	if err != nil {
		f.state, f.message = Failed, apierr.MessageOf(err, MsgVerifyFailed)
		s := f.snapshotLocked()
		f.mu.Unlock()
		return s, err
	}

	target := nav.LoginPath
	f.state, f.message = Completed, "Registration successful! Please login with your credentials."
	if res.Session != nil {
		target = nav.DashboardPath
		f.message = "Registration successful! You are now logged in."
	}
	s := f.snapshotLocked()
	f.mu.Unlock()

	f.nav.Navigate(ctx, target)
	return s, nil
}

// ResendOTP asks for a new OTP for the pending registration. The state
// does not change.
func (f *RegisterFlow) ResendOTP(ctx context.Context) (Snapshot, error) {
	f.mu.Lock()
	if f.state != OTPPending || f.pending == nil {
		s := f.snapshotLocked()
		f.mu.Unlock()
		return s, ErrNoChallenge
	}
	gen, username := f.gen, f.pending.Username
	f.mu.Unlock()

	err := f.auth.ResendOTP(ctx, username)

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

// Abandon returns to Idle, drops the pending registration and discards
// whatever is in flight.
func (f *RegisterFlow) Abandon() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begin(Idle)
	f.username, f.pending = "", nil
}
