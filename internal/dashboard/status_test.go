package dashboard

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mickeymouse32/torii-frontend/internal/domain"
	"github.com/Mickeymouse32/torii-frontend/internal/remote"
	"github.com/Mickeymouse32/torii-frontend/internal/remote/remotetest"
)

func loaded(t *testing.T, listings ...domain.Listing) *fixture {
	t.Helper()
	f := newFixture(t, listings...)
	_, err := f.query.LoadPage(context.Background(), 1)
	require.NoError(t, err)
	return f
}

func shown(t *testing.T, f *fixture, id string) domain.Availability {
	t.Helper()
	a, ok := f.cache.Availability(id)
	require.True(t, ok)
	return a
}

func TestStatusModelAppliesImmediately(t *testing.T) {
	f := loaded(t, remotetest.Fixtures(1, 0)...)
	release := f.srv.Gate(remotetest.RoutePatch)
	f.status.ToggleMenu("listing-1")
	require.True(t, f.status.MenuOpen("listing-1"))

	w, err := f.status.Apply("listing-1", domain.Rented)
	require.NoError(t, err)

	assert.Equal(t, domain.Rented, shown(t, f, "listing-1"))
	assert.Equal(t, domain.Rented, f.query.Page().Items[0].Availability)
	assert.Equal(t, Pending, f.cache.State("listing-1"))
	assert.False(t, f.status.MenuOpen("listing-1"))

	done := make(chan error, 1)
	go func() { done <- w.Commit(context.Background()) }()
	release()

	require.NoError(t, <-done)
	assert.Equal(t, domain.Rented, shown(t, f, "listing-1"))
	assert.Equal(t, Confirmed, f.cache.State("listing-1"))

	l, _ := f.srv.Listing("listing-1")
	assert.Equal(t, domain.Rented, l.Availability)
}

func TestStatusModelFailureRollsBack(t *testing.T) {
	f := loaded(t, remotetest.Fixtures(1, 0)...)
	f.srv.Fail(remotetest.RoutePatch, http.StatusInternalServerError)

	err := f.status.SetAvailability(context.Background(), "listing-1", domain.Rented)

	require.Error(t, err)
	assert.True(t, remote.IsTransport(err))
	assert.Equal(t, domain.Available, shown(t, f, "listing-1"))
	assert.Equal(t, Failed, f.cache.State("listing-1"))
	assert.Zero(t, f.sess.ExpireCount())
	assert.Contains(t, f.logs.String(), "failed to update availability")
	assert.Contains(t, f.logs.String(), `"listing_id":"listing-1"`)
}

func TestStatusModelSessionExpiredKeepsOptimisticValue(t *testing.T) {
	f := loaded(t, remotetest.Fixtures(1, 0)...)
	f.sess.Credential = "expired"

	err := f.status.SetAvailability(context.Background(), "listing-1", domain.Rented)

	assert.ErrorIs(t, err, remote.ErrSessionExpired)
	assert.Equal(t, 1, f.sess.ExpireCount())
	assert.Equal(t, domain.Rented, shown(t, f, "listing-1"))
}

func TestStatusModelConfirmationDoesNotStompNewerWrite(t *testing.T) {
	f := loaded(t, remotetest.Fixtures(1, 0)...)
	ctx := context.Background()
	releaseFirst := f.srv.Gate(remotetest.RoutePatch)
	releaseSecond := f.srv.Gate(remotetest.RoutePatch)

	w1, err := f.status.Apply("listing-1", domain.Rented)
	require.NoError(t, err)
	w2, err := f.status.Apply("listing-1", domain.Available)
	require.NoError(t, err)
	assert.Equal(t, domain.Available, shown(t, f, "listing-1"))

	first := make(chan error, 1)
	second := make(chan error, 1)
	go func() { first <- w1.Commit(ctx) }()
	go func() { second <- w2.Commit(ctx) }()

	// The second request is not sent until the first completes.
	require.Eventually(t, func() bool { return f.srv.Count(remotetest.RoutePatch) == 1 }, time.Second, 5*time.Millisecond)
	releaseFirst()
	require.NoError(t, <-first)

	assert.Equal(t, domain.Available, shown(t, f, "listing-1"))
	assert.Equal(t, Pending, f.cache.State("listing-1"))

	releaseSecond()
	require.NoError(t, <-second)

	assert.Equal(t, domain.Available, shown(t, f, "listing-1"))
	assert.Equal(t, Confirmed, f.cache.State("listing-1"))
	l, _ := f.srv.Listing("listing-1")
	assert.Equal(t, domain.Available, l.Availability)
}

func TestStatusModelSupersededFailureKeepsNewerWrite(t *testing.T) {
	f := loaded(t, remotetest.Fixtures(1, 0)...)
	ctx := context.Background()
	f.srv.Fail(remotetest.RoutePatch, http.StatusInternalServerError)
	releaseFirst := f.srv.Gate(remotetest.RoutePatch)

	w1, err := f.status.Apply("listing-1", domain.Rented)
	require.NoError(t, err)
	w2, err := f.status.Apply("listing-1", domain.Rented)
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() { first <- w1.Commit(ctx) }()
	require.Eventually(t, func() bool { return f.srv.Count(remotetest.RoutePatch) == 1 }, time.Second, 5*time.Millisecond)
	releaseFirst()
	require.Error(t, <-first)

	assert.Equal(t, domain.Rented, shown(t, f, "listing-1"))
	assert.Equal(t, Pending, f.cache.State("listing-1"))

	require.NoError(t, w2.Commit(ctx))
	assert.Equal(t, domain.Rented, shown(t, f, "listing-1"))
	assert.Equal(t, Confirmed, f.cache.State("listing-1"))
}

func TestStatusModelLatestFailureRestoresEarlierPendingValue(t *testing.T) {
	f := loaded(t, remotetest.Fixtures(1, 0)...)
	ctx := context.Background()
	releaseFirst := f.srv.Gate(remotetest.RoutePatch)

	w1, err := f.status.Apply("listing-1", domain.Rented)
	require.NoError(t, err)
	w2, err := f.status.Apply("listing-1", domain.Available)
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() { first <- w1.Commit(ctx) }()
	require.Eventually(t, func() bool { return f.srv.Count(remotetest.RoutePatch) == 1 }, time.Second, 5*time.Millisecond)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, w2.Commit(cancelled), context.Canceled)

	assert.Equal(t, domain.Rented, shown(t, f, "listing-1"))
	assert.Equal(t, Failed, f.cache.State("listing-1"))

	releaseFirst()
	require.NoError(t, <-first)
	assert.Equal(t, domain.Rented, shown(t, f, "listing-1"))
	assert.Equal(t, 1, f.srv.Count(remotetest.RoutePatch))
}

func TestStatusModelSurvivesReload(t *testing.T) {
	f := loaded(t, remotetest.Fixtures(1, 0)...)
	ctx := context.Background()
	release := f.srv.Gate(remotetest.RoutePatch)

	w, err := f.status.Apply("listing-1", domain.Rented)
	require.NoError(t, err)

	_, err = f.query.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Rented, shown(t, f, "listing-1"))

	done := make(chan error, 1)
	go func() { done <- w.Commit(ctx) }()
	release()
	require.NoError(t, <-done)
}

func TestStatusModelRejectsUnknownInput(t *testing.T) {
	f := loaded(t, remotetest.Fixtures(1, 0)...)

	_, err := f.status.Apply("listing-1", domain.Availability("sold"))
	assert.Error(t, err)

	_, err = f.status.Apply("missing", domain.Rented)
	assert.ErrorIs(t, err, ErrUnknownListing)

	assert.Zero(t, f.srv.Count(remotetest.RoutePatch))
}

func TestStatusModelMenu(t *testing.T) {
	f := newFixture(t)

	f.status.ToggleMenu("a")
	assert.True(t, f.status.MenuOpen("a"))

	f.status.ToggleMenu("b")
	assert.False(t, f.status.MenuOpen("a"))
	assert.True(t, f.status.MenuOpen("b"))

	f.status.ToggleMenu("b")
	assert.False(t, f.status.MenuOpen("b"))

	f.status.ToggleMenu("a")
	f.status.CloseMenu()
	assert.False(t, f.status.MenuOpen("a"))
}
