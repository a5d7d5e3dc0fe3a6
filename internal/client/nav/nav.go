// Package nav models client-side navigation between the views of the
// application. Components that need to move the user elsewhere (logout,
// session expiry, route guarding, finished auth flows) depend only on the
// Navigator interface.
package nav

import (
	"context"
	"net/url"
	"sync"
)

const (
	LandingPath   = "/"
	LoginPath     = "/login"
	RegisterPath  = "/register"
	DashboardPath = "/dashboard"

	// ExpiredLoginPath is the login view with the "session expired" marker.
	ExpiredLoginPath = LoginPath + "?session=expired"
)

// Navigator moves the user to another view.
type Navigator interface {
	Navigate(ctx context.Context, location string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, location string)

func (f NavigatorFunc) Navigate(ctx context.Context, location string) { f(ctx, location) }

// HasExpiredMarker reports whether location points at a view carrying the
// session=expired query marker.
func HasExpiredMarker(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return u.Query().Get("session") == "expired"
}

// Recorder is a Navigator that remembers where the user currently is.
// It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	current  string
	history  []string
	onChange func(from, to string)
}

// NewRecorder returns a Recorder positioned at start. onChange, if not nil,
// is called after every navigation.
func NewRecorder(start string, onChange func(from, to string)) *Recorder {
	return &Recorder{current: start, onChange: onChange}
}

func (r *Recorder) Navigate(_ context.Context, location string) {
	r.mu.Lock()
	from := r.current
	r.current = location
	r.history = append(r.history, location)
	cb := r.onChange
	r.mu.Unlock()

	if cb != nil {
		cb(from, location)
	}
}

// Current returns the current location.
func (r *Recorder) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// History returns every location navigated to, oldest first.
func (r *Recorder) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.history...)
}
