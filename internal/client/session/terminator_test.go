package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/qfin/internal/client/nav"
	"github.com/dmitrijs2005/qfin/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestTerminator_ClearsAndRedirectsWithMarker(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.Save(ctx, Session{Credential: "abc", User: UserProfile{Username: "alice"}}))
	rec := nav.NewRecorder(nav.DashboardPath, nil)

	term := NewTerminator(st, rec, logging.Discard())
	require.True(t, term.Expire(ctx))

	_, ok, err := st.Read(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, nav.ExpiredLoginPath, rec.Current())

	// a later expiry (after a new login) fires again
	require.True(t, term.Expire(ctx))
	require.Len(t, rec.History(), 2)
}

func TestTerminator_ConcurrentExpiryNavigatesOnce(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.Save(ctx, Session{Credential: "abc"}))

	release := make(chan struct{})
	entered := make(chan struct{})
	var navigations atomic.Int32
	blocking := nav.NavigatorFunc(func(context.Context, string) {
		navigations.Add(1)
		close(entered)
		<-release
	})
	term := NewTerminator(st, blocking, logging.Discard())

	first := make(chan bool)
	go func() { first <- term.Expire(ctx) }()
	<-entered

	var wg sync.WaitGroup
	var performed atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if term.Expire(ctx) {
				performed.Add(1)
			}
		}()
	}
	wg.Wait()
	close(release)

	require.True(t, <-first)
	require.Equal(t, int32(0), performed.Load())
	require.Equal(t, int32(1), navigations.Load())
}
