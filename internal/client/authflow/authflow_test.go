package authflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/qfin/internal/client/apierr"
	"github.com/dmitrijs2005/qfin/internal/client/nav"
	"github.com/dmitrijs2005/qfin/internal/client/services"
	"github.com/dmitrijs2005/qfin/internal/client/session"
	"github.com/dmitrijs2005/qfin/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuth implements services.AuthService with scripted results.
type fakeAuth struct {
	mu sync.Mutex

	RegisterRet services.PendingRegistration
	RegisterErr error

	// LoginFn, when set, overrides LoginErr.
	LoginFn  func(ctx context.Context, username, password, otp string) error
	LoginErr error

	VerifyRet services.VerifyResult
	VerifyErr error
	VerifyFn  func(ctx context.Context) error

	ResendErr error
	ResendFn  func(ctx context.Context) error

	LoginCalls  []string // otp of each call
	LastVerify  string
	ResendCalls int
	LastResend  string
}

func (f *fakeAuth) Register(_ context.Context, req services.RegisterRequest) (services.PendingRegistration, error) {
	if f.RegisterErr != nil {
		return services.PendingRegistration{}, f.RegisterErr
	}
	p := f.RegisterRet
	if p.Username == "" {
		p.Username = req.Username
	}
	return p, nil
}

func (f *fakeAuth) Login(ctx context.Context, username, password, otp string) (session.Session, error) {
	f.mu.Lock()
	f.LoginCalls = append(f.LoginCalls, otp)
	fn, err := f.LoginFn, f.LoginErr
	f.mu.Unlock()
	if fn != nil {
		err = fn(ctx, username, password, otp)
	}
	if err != nil {
		return session.Session{}, err
	}
	return session.Session{Credential: "abc", User: session.UserProfile{Username: username}}, nil
}

func (f *fakeAuth) VerifyOTP(ctx context.Context, username, otp string) (services.VerifyResult, error) {
	f.LastVerify = otp
	if f.VerifyFn != nil {
		if err := f.VerifyFn(ctx); err != nil {
			return services.VerifyResult{}, err
		}
	}
	return f.VerifyRet, f.VerifyErr
}

func (f *fakeAuth) ResendOTP(ctx context.Context, username string) error {
	f.mu.Lock()
	f.ResendCalls++
	f.LastResend = username
	fn, err := f.ResendFn, f.ResendErr
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return err
}

func (f *fakeAuth) Logout(context.Context) error                           { return nil }
func (f *fakeAuth) IsAuthenticated(context.Context) bool                   { return false }
func (f *fakeAuth) CurrentUser(context.Context) (session.UserProfile, bool) { return session.UserProfile{}, false }
func (f *fakeAuth) ValidateSession(context.Context) (string, error)         { return "", nil }

var (
	otpChallenge = apierr.FromStatus(403, []byte(`{"message":"OTP required"}`))
	forbidden    = apierr.FromStatus(403, []byte(`{"message":"Account locked"}`))
	badLogin     = &apierr.Error{Kind: apierr.KindValidation, Message: services.MsgLoginFailed, Status: 401}
)

func newLogin(fa *fakeAuth) (*LoginFlow, *nav.Recorder) {
	rec := nav.NewRecorder(nav.LoginPath, nil)
	return NewLoginFlow(fa, rec, logging.Discard()), rec
}

func newRegister(fa *fakeAuth) (*RegisterFlow, *nav.Recorder) {
	rec := nav.NewRecorder(nav.RegisterPath, nil)
	return NewRegisterFlow(fa, rec, logging.Discard()), rec
}

// ---- login ----

func TestLogin_Success(t *testing.T) {
	f, rec := newLogin(&fakeAuth{})

	s, err := f.Submit(context.Background(), "alice", "correct", "")
	require.NoError(t, err)
	require.Equal(t, Success, s.State)
	require.True(t, s.State.Terminal())
	require.Equal(t, nav.DashboardPath, rec.Current())
}

func TestLogin_OTPRequiredVersusFailed(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    State
		message string
	}{
		{"403 with OTP marker", otpChallenge, OTPRequired, MsgEnterOTP},
		{"403 unrelated message", forbidden, Failed, "Account locked"},
		{"403 empty body", apierr.FromStatus(403, nil), Failed, apierr.MsgAuthRequired},
		{"403 html body", apierr.FromStatus(403, []byte("<html>OTP</html>")), Failed, apierr.MsgAuthRequired},
		{"wrong password", badLogin, Failed, services.MsgLoginFailed},
		{"network", apierr.Network(errors.New("refused")), Failed, apierr.MsgNetwork},
		{"foreign error", errors.New("weird"), Failed, MsgLoginFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, rec := newLogin(&fakeAuth{LoginErr: tt.err})

			s, err := f.Submit(context.Background(), "alice", "pw", "")
			require.Equal(t, tt.want, s.State)
			require.Equal(t, tt.message, s.Message)
			require.Equal(t, "alice", s.Username)
			require.Equal(t, tt.want == OTPRequired, s.ShowOTP)
			if tt.want == OTPRequired {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
			require.Equal(t, nav.LoginPath, rec.Current())
		})
	}
}

func TestLogin_FailedIsNotTerminal(t *testing.T) {
	fa := &fakeAuth{LoginErr: badLogin}
	f, rec := newLogin(fa)

	s, _ := f.Submit(context.Background(), "alice", "wrong", "")
	require.Equal(t, Failed, s.State)
	require.False(t, s.State.Terminal())

	fa.LoginErr = nil
	s, err := f.Submit(context.Background(), "alice", "correct", "")
	require.NoError(t, err)
	require.Equal(t, Success, s.State)
	require.Equal(t, nav.DashboardPath, rec.Current())
}

func TestLogin_ResubmitWithOTP(t *testing.T) {
	fa := &fakeAuth{LoginErr: otpChallenge}
	f, _ := newLogin(fa)

	s, _ := f.Submit(context.Background(), "alice", "correct", "")
	require.Equal(t, OTPRequired, s.State)

	fa.LoginErr = nil
	s, err := f.Submit(context.Background(), "alice", "correct", "123456")
	require.NoError(t, err)
	require.Equal(t, Success, s.State)
	require.Equal(t, []string{"", "123456"}, fa.LoginCalls)
}

func TestLogin_VerifyOTPWithIssuedSession(t *testing.T) {
	fa := &fakeAuth{LoginErr: otpChallenge}
	f, rec := newLogin(fa)
	_, _ = f.Submit(context.Background(), "alice", "correct", "")

	fa.VerifyRet = services.VerifyResult{Confirmed: true, Session: &session.Session{Credential: "abc"}}
	s, err := f.VerifyOTP(context.Background(), "123456")
	require.NoError(t, err)
	require.Equal(t, Success, s.State)
	require.Equal(t, "123456", fa.LastVerify)
	require.Len(t, fa.LoginCalls, 1)
	require.Equal(t, nav.DashboardPath, rec.Current())
}

func TestLogin_VerifyOTPWithoutSessionRetriesLogin(t *testing.T) {
	fa := &fakeAuth{LoginErr: otpChallenge}
	f, _ := newLogin(fa)
	_, _ = f.Submit(context.Background(), "alice", "correct", "")

	fa.LoginErr = nil
	fa.VerifyRet = services.VerifyResult{Confirmed: true}
	s, err := f.VerifyOTP(context.Background(), "123456")
	require.NoError(t, err)
	require.Equal(t, Success, s.State)
	require.Equal(t, []string{"", "123456"}, fa.LoginCalls)
}

func TestLogin_WrongOTPKeepsChallenge(t *testing.T) {
	fa := &fakeAuth{LoginErr: otpChallenge}
	f, _ := newLogin(fa)
	_, _ = f.Submit(context.Background(), "alice", "correct", "")

	fa.VerifyErr = apierr.New(apierr.KindValidation, "Invalid OTP")
	s, err := f.VerifyOTP(context.Background(), "000000")
	require.Error(t, err)
	require.Equal(t, OTPRequired, s.State)
	require.Equal(t, "Invalid OTP", s.Message)
	require.True(t, s.ShowOTP)
}

func TestLogin_EmptyOTPNoNetwork(t *testing.T) {
	fa := &fakeAuth{LoginErr: otpChallenge}
	f, _ := newLogin(fa)
	_, _ = f.Submit(context.Background(), "alice", "correct", "")

	s, err := f.VerifyOTP(context.Background(), " ")
	require.ErrorIs(t, err, apierr.ErrValidation)
	require.Equal(t, OTPRequired, s.State)
	require.Empty(t, fa.LastVerify)
}

func TestLogin_VerifyWithoutChallenge(t *testing.T) {
	f, _ := newLogin(&fakeAuth{})
	_, err := f.VerifyOTP(context.Background(), "123456")
	require.ErrorIs(t, err, ErrNoChallenge)
}

func TestLogin_ResendIsIdempotent(t *testing.T) {
	fa := &fakeAuth{LoginErr: otpChallenge}
	f, _ := newLogin(fa)
	_, _ = f.Submit(context.Background(), "alice", "correct", "")

	for i := 0; i < 5; i++ {
		s, err := f.ResendOTP(context.Background())
		require.NoError(t, err)
		require.Equal(t, OTPRequired, s.State)
		require.Equal(t, MsgOTPResent, s.Message)
	}
	require.Equal(t, 5, fa.ResendCalls)
	require.Equal(t, "alice", fa.LastResend)

	fa.ResendErr = apierr.FromStatus(500, nil)
	s, err := f.ResendOTP(context.Background())
	require.Error(t, err)
	require.Equal(t, OTPRequired, s.State)
	require.Equal(t, apierr.MsgServer, s.Message)
}

func TestLogin_ResendOutsideChallenge(t *testing.T) {
	fa := &fakeAuth{}
	f, _ := newLogin(fa)

	s, err := f.ResendOTP(context.Background())
	require.ErrorIs(t, err, ErrNoChallenge)
	require.Equal(t, Idle, s.State)
	require.Zero(t, fa.ResendCalls)
}

func TestLogin_StaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	fa := &fakeAuth{}
	fa.LoginFn = func(ctx context.Context, username, password, otp string) error {
		if password == "slow" {
			close(entered)
			<-release
			return otpChallenge
		}
		return nil
	}
	f, _ := newLogin(fa)

	var wg sync.WaitGroup
	var staleErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, staleErr = f.Submit(context.Background(), "alice", "slow", "")
	}()
	<-entered

	// the user gives up on the slow attempt
	f.Abandon()
	s, err := f.Submit(context.Background(), "alice", "fast", "")
	require.NoError(t, err)
	require.Equal(t, Success, s.State)

	close(release)
	wg.Wait()

	require.ErrorIs(t, staleErr, ErrSuperseded)
	assert.Equal(t, Success, f.Snapshot().State)
}

func TestLogin_BusyWhileSubmitting(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	fa := &fakeAuth{LoginFn: func(context.Context, string, string, string) error {
		close(entered)
		<-release
		return nil
	}}
	f, _ := newLogin(fa)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.Submit(context.Background(), "alice", "pw", "")
	}()
	<-entered

	s, err := f.Submit(context.Background(), "alice", "pw", "")
	require.ErrorIs(t, err, ErrBusy)
	require.Equal(t, Submitting, s.State)

	close(release)
	<-done
	require.Equal(t, Success, f.Snapshot().State)
}

func TestLogin_VerifyingKeepsOTPVisible(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	fa := &fakeAuth{
		LoginErr:  otpChallenge,
		VerifyRet: services.VerifyResult{Confirmed: true, Session: &session.Session{Credential: "abc"}},
		VerifyFn: func(context.Context) error {
			close(entered)
			<-release
			return nil
		},
	}
	f, _ := newLogin(fa)
	_, _ = f.Submit(context.Background(), "alice", "correct", "")

	done := make(chan error)
	go func() {
		_, err := f.VerifyOTP(context.Background(), "123456")
		done <- err
	}()
	<-entered

	s := f.Snapshot()
	require.Equal(t, VerifyingOTP, s.State)
	require.True(t, s.ShowOTP)

	_, err := f.Submit(context.Background(), "alice", "correct", "")
	require.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, Success, f.Snapshot().State)
}

// blockingResend makes ResendOTP wait until release is closed.
func blockingResend(fa *fakeAuth) (entered, release chan struct{}) {
	entered, release = make(chan struct{}), make(chan struct{})
	fa.ResendFn = func(context.Context) error {
		close(entered)
		<-release
		return nil
	}
	return entered, release
}

func TestLogin_LateResendDiscarded(t *testing.T) {
	tests := []struct {
		name      string
		interrupt func(t *testing.T, f *LoginFlow, fa *fakeAuth)
		want      Snapshot
	}{
		{
			name: "resubmitted",
			interrupt: func(t *testing.T, f *LoginFlow, fa *fakeAuth) {
				fa.mu.Lock()
				fa.LoginErr = badLogin
				fa.mu.Unlock()
				s, err := f.Submit(context.Background(), "alice", "wrong", "")
				require.Error(t, err)
				require.Equal(t, Failed, s.State)
			},
			want: Snapshot{State: Failed, Username: "alice", Message: services.MsgLoginFailed},
		},
		{
			name:      "abandoned",
			interrupt: func(_ *testing.T, f *LoginFlow, _ *fakeAuth) { f.Abandon() },
			want:      Snapshot{State: Idle},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa := &fakeAuth{LoginErr: otpChallenge}
			f, _ := newLogin(fa)
			_, _ = f.Submit(context.Background(), "alice", "correct", "")
			entered, release := blockingResend(fa)

			done := make(chan error)
			go func() {
				_, err := f.ResendOTP(context.Background())
				done <- err
			}()
			<-entered
			tt.interrupt(t, f, fa)
			close(release)

			require.ErrorIs(t, <-done, ErrSuperseded)
			assert.Equal(t, tt.want, f.Snapshot())
		})
	}
}

// ---- register ----

func validForm() RegistrationForm {
	return RegistrationForm{Name: "alice", Email: "a@x.io", Password: "pw", ConfirmPassword: "pw"}
}

func TestRegistrationForm_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegistrationForm)
		want   string
	}{
		{"valid", func(*RegistrationForm) {}, ""},
		{"no name", func(r *RegistrationForm) { r.Name = "" }, "Please fill in your name"},
		{"no email", func(r *RegistrationForm) { r.Email = " " }, "Please fill in your email"},
		{"no password", func(r *RegistrationForm) { r.Password = "" }, "Please fill in your password"},
		{"no confirm", func(r *RegistrationForm) { r.ConfirmPassword = "" }, "Please fill in your confirm password"},
		{"mismatch", func(r *RegistrationForm) { r.ConfirmPassword = "other" }, MsgPasswordMatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)
			require.Equal(t, tt.want, f.Validate())
		})
	}
}

func TestRegister_InvalidFormNoNetwork(t *testing.T) {
	fa := &fakeAuth{RegisterErr: errors.New("must not be called")}
	f, _ := newRegister(fa)

	form := validForm()
	form.ConfirmPassword = "nope"
	s, err := f.Submit(context.Background(), form)
	require.ErrorIs(t, err, apierr.ErrValidation)
	require.Equal(t, Failed, s.State)
	require.Equal(t, MsgPasswordMatch, s.Message)
}

func TestRegister_HappyPathWithSession(t *testing.T) {
	fa := &fakeAuth{
		RegisterRet: services.PendingRegistration{Message: "OTP sent to your email"},
		VerifyRet:   services.VerifyResult{Confirmed: true, Session: &session.Session{Credential: "abc"}},
	}
	f, rec := newRegister(fa)

	s, err := f.Submit(context.Background(), validForm())
	require.NoError(t, err)
	require.Equal(t, OTPPending, s.State)
	require.True(t, s.ShowOTP)

	p, ok := f.Pending()
	require.True(t, ok)
	require.Equal(t, "alice", p.Username)

	s, err = f.VerifyOTP(context.Background(), "123456")
	require.NoError(t, err)
	require.Equal(t, Completed, s.State)
	require.True(t, s.State.Terminal())
	require.Equal(t, nav.DashboardPath, rec.Current())

	_, ok = f.Pending()
	require.False(t, ok)
}

func TestRegister_CompletedWithoutSessionGoesToLogin(t *testing.T) {
	fa := &fakeAuth{VerifyRet: services.VerifyResult{Confirmed: true}}
	f, rec := newRegister(fa)

	_, err := f.Submit(context.Background(), validForm())
	require.NoError(t, err)
	s, err := f.VerifyOTP(context.Background(), "123456")
	require.NoError(t, err)
	require.Equal(t, Completed, s.State)
	require.Equal(t, nav.LoginPath, rec.Current())
}

func TestRegister_ServerRejects(t *testing.T) {
	fa := &fakeAuth{RegisterErr: apierr.FromStatus(400, []byte(`{"error":"Email already registered"}`))}
	f, _ := newRegister(fa)

	s, err := f.Submit(context.Background(), validForm())
	require.Error(t, err)
	require.Equal(t, Failed, s.State)
	require.Equal(t, "Email already registered", s.Message)
}

func TestRegister_FailedVerificationDropsPending(t *testing.T) {
	fa := &fakeAuth{VerifyErr: apierr.New(apierr.KindValidation, "Invalid OTP")}
	f, _ := newRegister(fa)

	_, err := f.Submit(context.Background(), validForm())
	require.NoError(t, err)

	s, err := f.VerifyOTP(context.Background(), "000000")
	require.Error(t, err)
	require.Equal(t, Failed, s.State)
	require.Equal(t, "Invalid OTP", s.Message)

	_, ok := f.Pending()
	require.False(t, ok)

	_, err = f.VerifyOTP(context.Background(), "123456")
	require.ErrorIs(t, err, ErrNoChallenge)
}

func TestRegister_ResendIsIdempotent(t *testing.T) {
	fa := &fakeAuth{}
	f, _ := newRegister(fa)
	_, err := f.Submit(context.Background(), validForm())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		s, err := f.ResendOTP(context.Background())
		require.NoError(t, err)
		require.Equal(t, OTPPending, s.State)
	}
	require.Equal(t, 3, fa.ResendCalls)
	require.Equal(t, "alice", fa.LastResend)
}

func TestRegister_ResendWithoutPending(t *testing.T) {
	f, _ := newRegister(&fakeAuth{})
	_, err := f.ResendOTP(context.Background())
	require.ErrorIs(t, err, ErrNoChallenge)
}

func TestRegister_AbandonDiscardsInFlightVerification(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	fa := &fakeAuth{
		VerifyRet: services.VerifyResult{Confirmed: true, Session: &session.Session{Credential: "abc"}},
		VerifyFn: func(context.Context) error {
			close(entered)
			<-release
			return nil
		},
	}
	f, rec := newRegister(fa)
	_, err := f.Submit(context.Background(), validForm())
	require.NoError(t, err)

	done := make(chan error)
	go func() {
		_, err := f.VerifyOTP(context.Background(), "123456")
		done <- err
	}()
	<-entered
	f.Abandon()
	close(release)

	require.ErrorIs(t, <-done, ErrSuperseded)
	require.Equal(t, Idle, f.Snapshot().State)
	require.Equal(t, nav.RegisterPath, rec.Current())
}

func TestRegister_LateResendDiscarded(t *testing.T) {
	tests := []struct {
		name      string
		interrupt func(t *testing.T, f *RegisterFlow)
		want      Snapshot
	}{
		{
			name:      "abandoned",
			interrupt: func(_ *testing.T, f *RegisterFlow) { f.Abandon() },
			want:      Snapshot{State: Idle},
		},
		{
			name: "resubmitted",
			interrupt: func(t *testing.T, f *RegisterFlow) {
				form := validForm()
				form.ConfirmPassword = "nope"
				_, err := f.Submit(context.Background(), form)
				require.Error(t, err)
			},
			want: Snapshot{State: Failed, Username: "alice", Message: MsgPasswordMatch},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa := &fakeAuth{}
			f, _ := newRegister(fa)
			_, err := f.Submit(context.Background(), validForm())
			require.NoError(t, err)
			entered, release := blockingResend(fa)

			done := make(chan error)
			go func() {
				_, err := f.ResendOTP(context.Background())
				done <- err
			}()
			<-entered
			tt.interrupt(t, f)
			close(release)

			require.ErrorIs(t, <-done, ErrSuperseded)
			assert.Equal(t, tt.want, f.Snapshot())
		})
	}
}

func TestState_String(t *testing.T) {
	require.Equal(t, "otp required", OTPRequired.String())
	require.Equal(t, "State(42)", State(42).String())
}
