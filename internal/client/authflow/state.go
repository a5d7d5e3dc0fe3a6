// Package authflow drives the login and registration dialogues on top of
// the auth service: which state the dialogue is in, which message to show
// and whether the OTP input is revealed.
//
// Each submission gets a generation number. A response that arrives after
// a newer submission started (or after Abandon) is discarded and the call
// returns ErrSuperseded without touching the state.
package authflow

import (
	"errors"
	"fmt"
	"sync"
)

type State int

const (
	Idle State = iota
	Submitting
	Success
	OTPRequired
	Failed
	OTPPending
	VerifyingOTP
	Completed
)

var stateNames = [...]string{
	Idle:         "idle",
	Submitting:   "submitting",
	Success:      "success",
	OTPRequired:  "otp required",
	Failed:       "failed",
	OTPPending:   "otp pending",
	VerifyingOTP: "verifying otp",
	Completed:    "completed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether control has passed to the protected area.
func (s State) Terminal() bool {
	return s == Success || s == Completed
}

const (
	MsgEnterOTP      = "Please enter the OTP sent to your email"
	MsgEnterUsername = "Please enter your username"
	MsgOTPResent     = "OTP has been resent to your email"
	MsgLoginFailed   = "Login failed. Please try again."
	MsgRegisterFail  = "Registration failed. Please try again."
	MsgVerifyFailed  = "OTP verification failed. Please try again."
	MsgPasswordMatch = "Passwords do not match"
)

var (
	// ErrNoChallenge is returned by OTP operations when no OTP was asked for.
	ErrNoChallenge = errors.New("no otp challenge outstanding")
	// ErrSuperseded is returned when a response was discarded because a
	// newer submission started.
	ErrSuperseded = errors.New("superseded by a newer submission")
	// ErrBusy is returned when a submission is made while one is running.
	ErrBusy = errors.New("submission in progress")
)

// Snapshot is what a view renders.
type Snapshot struct {
	State    State
	Username string
	Message  string
	// ShowOTP is true while the OTP input should be visible.
	ShowOTP bool
}

// machine holds the state shared by both flows. Callers hold mu.
type machine struct {
	mu       sync.Mutex
	gen      uint64
	state    State
	username string
	message  string
}

func (m *machine) snapshotLocked() Snapshot {
	return Snapshot{
		State:    m.state,
		Username: m.username,
		Message:  m.message,
		ShowOTP:  m.state == OTPRequired || m.state == OTPPending || m.state == VerifyingOTP,
	}
}

// begin starts a submission and returns its generation.
func (m *machine) begin(next State) uint64 {
	m.gen++
	m.state = next
	m.message = ""
	return m.gen
}

func (m *machine) current(gen uint64) bool {
	return m.gen == gen
}

func (m *machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}
