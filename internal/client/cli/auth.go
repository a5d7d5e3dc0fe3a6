package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/qfin/internal/client/authflow"
	"github.com/dmitrijs2005/qfin/internal/client/guard"
	"github.com/dmitrijs2005/qfin/internal/client/nav"
	"github.com/dmitrijs2005/qfin/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

func (a *App) ask(prompt string) (string, error) {
	return getSimpleText(a.reader, prompt, a.out)
}

func (a *App) askSecret(prompt string) (string, error) {
	pw, err := getPassword(a.reader, prompt, a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

func (a *App) show(s authflow.Snapshot) {
	if s.Message != "" {
		a.printf("%s\n", s.Message)
	}
}

// Register collects the registration form and submits it. When the
// identity service asks for an OTP the user is prompted right away; an
// empty answer leaves the registration pending for a later "verify".
func (a *App) Register(ctx context.Context) error {
	a.view.Navigate(ctx, nav.RegisterPath)

	var form authflow.RegistrationForm
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Full name", &form.Name},
		{"Email", &form.Email},
		{"Phone (optional)", &form.Phone},
		{"Date of birth (optional)", &form.DOB},
	}
	for _, f := range fields {
		v, err := a.ask(f.prompt)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	var err error
	if form.Password, err = a.askSecret("Password"); err != nil {
		return err
	}
	if form.ConfirmPassword, err = a.askSecret("Confirm password"); err != nil {
		return err
	}

	s, err := a.register.Submit(ctx, form)
	a.show(s)
	if err != nil {
		return err
	}
	return a.promptOTP(ctx)
}

// Login collects credentials and submits them, prompting for an OTP when
// the identity service asks for one.
func (a *App) Login(ctx context.Context) error {
	a.view.Navigate(ctx, nav.LoginPath)

	username, err := a.ask("Username")
	if err != nil {
		return err
	}
	password, err := a.askSecret("Password")
	if err != nil {
		return err
	}

	s, err := a.login.Submit(ctx, username, password, "")
	a.show(s)
	if err != nil {
		return err
	}
	if s.State == authflow.OTPRequired {
		return a.promptOTP(ctx)
	}
	return nil
}

func (a *App) promptOTP(ctx context.Context) error {
	otp, err := a.ask("OTP (empty to enter later with 'verify <otp>')")
	if err != nil || otp == "" {
		return err
	}
	return a.VerifyOTP(ctx, otp)
}

// VerifyOTP sends otp to whichever dialogue has an outstanding challenge.
func (a *App) VerifyOTP(ctx context.Context, otp string) error {
	var (
		s   authflow.Snapshot
		err error
	)
	switch {
	case a.login.Snapshot().State == authflow.OTPRequired:
		s, err = a.login.VerifyOTP(ctx, otp)
	case a.register.Snapshot().State == authflow.OTPPending:
		s, err = a.register.VerifyOTP(ctx, otp)
	default:
		err = authflow.ErrNoChallenge
	}
	a.show(s)
	if errors.Is(err, authflow.ErrNoChallenge) {
		a.printf("Nothing to verify. Use 'login' or 'register' first.\n")
	}
	return err
}

// ResendOTP asks for a new OTP for the outstanding challenge.
func (a *App) ResendOTP(ctx context.Context) error {
	var (
		s   authflow.Snapshot
		err error
	)
	switch {
	case a.login.Snapshot().State == authflow.OTPRequired:
		s, err = a.login.ResendOTP(ctx)
	case a.register.Snapshot().State == authflow.OTPPending:
		s, err = a.register.ResendOTP(ctx)
	default:
		err = authflow.ErrNoChallenge
	}
	a.show(s)
	if errors.Is(err, authflow.ErrNoChallenge) {
		a.printf("No OTP has been requested.\n")
	}
	return err
}

// Logout ends the local session. It never needs the network.
func (a *App) Logout(ctx context.Context) error {
	a.login.Abandon()
	a.register.Abandon()
	if err := a.auth.Logout(ctx); err != nil {
		a.printf("Logout failed: %v\n", err)
		return err
	}
	a.printf("Logged out.\n")
	return nil
}

// WhoAmI is a protected view: it shows the stored profile and what the
// identity service thinks of the credential.
func (a *App) WhoAmI(ctx context.Context) error {
	return a.protected(ctx, func(ctx context.Context) error {
		u, _ := a.auth.CurrentUser(ctx)
		a.printf("Logged in as %s\n", u.Username)

		name, err := a.auth.ValidateSession(ctx)
		if err != nil {
			a.printf("Server check failed: %v\n", err)
			return err
		}
		a.printf("Server confirms session for %s\n", name)
		return nil
	})
}

// Status is a protected view: it shows where the user is and asks the
// identity service whether the stored credential is still accepted.
func (a *App) Status(ctx context.Context) error {
	return a.protected(ctx, func(ctx context.Context) error {
		a.printf("View: %s\n", a.view.Current())
		name, err := a.auth.ValidateSession(ctx)
		if err != nil {
			a.printf("Session: invalid (%v)\n", err)
			return err
		}
		a.printf("Session: valid for %s\n", name)
		return nil
	})
}

// protected runs view behind the route guard and explains a denial.
func (a *App) protected(ctx context.Context, view func(ctx context.Context) error) error {
	err := a.guard.Enter(ctx, view)
	if errors.Is(err, guard.ErrAccessDenied) {
		if nav.HasExpiredMarker(a.view.Current()) {
			a.printf("Your session has expired. Please log in again.\n")
		} else {
			a.printf("Please log in first.\n")
		}
	}
	return err
}
