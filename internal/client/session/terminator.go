package session

import (
	"context"
	"sync/atomic"

	"github.com/dmitrijs2005/qfin/internal/client/nav"
	"github.com/dmitrijs2005/qfin/internal/logging"
)

// Terminator performs the "session expired" effect: clear the store and send
// the user to the login view with the expired marker. The service clients
// (on 401) and the route guard (on a past expiry) both go through it.
//
// While one Expire call is running, concurrent calls return immediately, so
// several requests failing with 401 at once produce a single clear and a
// single navigation.
type Terminator struct {
	store    Store
	nav      nav.Navigator
	logger   logging.Logger
	inFlight atomic.Bool
}

func NewTerminator(store Store, navigator nav.Navigator, logger logging.Logger) *Terminator {
	return &Terminator{store: store, nav: navigator, logger: logger}
}

// Expire reports whether this call performed the effect (false when another
// call was already doing it).
func (t *Terminator) Expire(ctx context.Context) bool {
	if !t.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer t.inFlight.Store(false)

	if err := t.store.Clear(ctx); err != nil {
		t.logger.Error(ctx, "failed to clear expired session", "error", err)
	}
	t.logger.Info(ctx, "session expired, redirecting to login")
	t.nav.Navigate(ctx, nav.ExpiredLoginPath)
	return true
}
