package nav

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasExpiredMarker(t *testing.T) {
	assert.True(t, HasExpiredMarker(ExpiredLoginPath))
	assert.True(t, HasExpiredMarker("/login?x=1&session=expired"))
	assert.False(t, HasExpiredMarker(LoginPath))
	assert.False(t, HasExpiredMarker("/login?session=other"))
	assert.False(t, HasExpiredMarker("%zz"))
}

func TestRecorder_TracksCurrentAndHistory(t *testing.T) {
	var changes [][2]string
	r := NewRecorder(LandingPath, func(from, to string) {
		changes = append(changes, [2]string{from, to})
	})

	r.Navigate(context.Background(), LoginPath)
	r.Navigate(context.Background(), DashboardPath)

	assert.Equal(t, DashboardPath, r.Current())
	assert.Equal(t, []string{LoginPath, DashboardPath}, r.History())
	assert.Equal(t, [][2]string{{LandingPath, LoginPath}, {LoginPath, DashboardPath}}, changes)
}

func TestNavigatorFunc(t *testing.T) {
	var got string
	var n Navigator = NavigatorFunc(func(_ context.Context, location string) { got = location })
	n.Navigate(context.Background(), RegisterPath)
	assert.Equal(t, RegisterPath, got)
}
