// Package guard decides whether a protected view may be entered.
//
// The check is local: it reads the stored credential and its embedded
// expiry and never calls a backend. It complements the service clients,
// which notice expiry only when a backend rejects a request with 401; both
// paths end in the same Terminator effect.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/qfin/internal/client/apierr"
	"github.com/dmitrijs2005/qfin/internal/client/nav"
	"github.com/dmitrijs2005/qfin/internal/client/session"
	"github.com/dmitrijs2005/qfin/internal/logging"
	"github.com/dmitrijs2005/qfin/internal/tokens"
)

// ErrAccessDenied is returned by Enter when the view was not run.
var ErrAccessDenied = errors.New("access denied")

// Reason says why access was denied.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNoCredential
	ReasonMalformed
	ReasonExpired
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNoCredential:
		return "no credential"
	case ReasonMalformed:
		return "malformed credential"
	case ReasonExpired:
		return "expired"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// Decision is the outcome of one check. Redirect is empty when Allowed.
type Decision struct {
	Allowed  bool
	Reason   Reason
	Redirect string
}

// Expirer performs the "session expired" effect. *session.Terminator
// implements it.
type Expirer interface {
	Expire(ctx context.Context) bool
}

type Guard struct {
	store   session.Store
	nav     nav.Navigator
	expirer Expirer
	logger  logging.Logger
	now     func() time.Time
}

type Option func(*Guard)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

func New(store session.Store, navigator nav.Navigator, expirer Expirer, logger logging.Logger, opts ...Option) *Guard {
	g := &Guard{store: store, nav: navigator, expirer: expirer, logger: logger, now: time.Now}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Check evaluates access and applies the side effects of a denial that
// concern the session: a malformed credential is cleared, an expired one
// goes through the expirer. It does not navigate for the no-credential and
// malformed cases; Enter does.
func (g *Guard) Check(ctx context.Context) Decision {
	s, ok, err := g.store.Read(ctx)
	if err != nil {
		g.logger.Warn(ctx, "session store read failed", "error", err)
		ok = false
	}
	if !ok || s.Credential == "" {
		return Decision{Reason: ReasonNoCredential, Redirect: nav.LoginPath}
	}

	exp, err := tokens.Expiry(s.Credential)
	if err != nil {
		g.logger.Warn(ctx, "discarding undecodable credential", "error", err)
		if err := g.store.Clear(ctx); err != nil {
			g.logger.Error(ctx, "failed to clear session", "error", err)
		}
		return Decision{Reason: ReasonMalformed, Redirect: nav.LoginPath}
	}

	if !g.now().Before(exp) {
		g.logger.Info(ctx, "credential expired", "expired_at", exp)
		g.expirer.Expire(ctx)
		return Decision{Reason: ReasonExpired, Redirect: nav.ExpiredLoginPath}
	}

	return Decision{Allowed: true, Reason: ReasonNone}
}

// Enter runs view when access is allowed. Otherwise it sends the user to
// the decision's redirect and returns an error wrapping ErrAccessDenied
// (and apierr.ErrSessionExpired for an expired credential).
func (g *Guard) Enter(ctx context.Context, view func(ctx context.Context) error) error {
	d := g.Check(ctx)
	if d.Allowed {
		return view(ctx)
	}

	switch d.Reason {
	case ReasonExpired:
		// the expirer already navigated
		return fmt.Errorf("%w: %w", ErrAccessDenied, apierr.ErrSessionExpired)
	default:
		g.nav.Navigate(ctx, d.Redirect)
		return fmt.Errorf("%w: %s", ErrAccessDenied, d.Reason)
	}
}
