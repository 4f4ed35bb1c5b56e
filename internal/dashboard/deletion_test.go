package dashboard

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mickeymouse32/torii-frontend/internal/domain"
	"github.com/Mickeymouse32/torii-frontend/internal/remote"
	"github.com/Mickeymouse32/torii-frontend/internal/remote/remotetest"
)

func TestDeletionRequiresConfirmation(t *testing.T) {
	f := loaded(t, remotetest.Fixtures(2, 0)...)
	ctx := context.Background()

	_, err := f.deletion.DeleteListing(ctx, "listing-1")
	assert.ErrorIs(t, err, ErrNotConfirmed)

	f.deletion.RequestDeletion("listing-2")
	_, err = f.deletion.DeleteListing(ctx, "listing-1")
	assert.ErrorIs(t, err, ErrNotConfirmed)

	f.deletion.RequestDeletion("listing-1")
	f.deletion.CancelDeletion()
	assert.Empty(t, f.deletion.Pending())
	_, err = f.deletion.DeleteListing(ctx, "listing-1")
	assert.ErrorIs(t, err, ErrNotConfirmed)

	assert.Zero(t, f.srv.Count(remotetest.RouteDelete))
	assert.Len(t, f.query.Page().Items, 2)
}

func TestDeletionRemovesAndRecountsLocally(t *testing.T) {
	tests := []struct {
		name   string
		page   int
		id     string
		totals domain.Totals
	}{
		{"available listing", 1, "listing-1", domain.Totals{Total: 14, Available: 9, Rented: 5}},
		{"rented listing", 2, "listing-15", domain.Totals{Total: 14, Available: 10, Rented: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, remotetest.Fixtures(10, 5)...)
			ctx := context.Background()
			before, err := f.query.LoadPage(ctx, tt.page)
			require.NoError(t, err)

			f.deletion.RequestDeletion(tt.id)
			res, err := f.deletion.DeleteListing(ctx, tt.id)
			require.NoError(t, err)
			assert.False(t, res.NeedsReload)

			page := f.query.Page()
			assert.Len(t, page.Items, len(before.Items)-1)
			assert.NotContains(t, ids(page), tt.id)
			assert.Equal(t, tt.totals, page.Totals)
			assert.Empty(t, f.deletion.Pending())
			assert.Equal(t, 1, f.srv.Count(remotetest.RouteList))
		})
	}
}

func TestDeletionFailureLeavesListing(t *testing.T) {
	f := loaded(t, remotetest.Fixtures(2, 1)...)
	before := f.query.Page()
	f.srv.Fail(remotetest.RouteDelete, http.StatusInternalServerError)

	f.deletion.RequestDeletion("listing-3")
	_, err := f.deletion.DeleteListing(context.Background(), "listing-3")

	require.Error(t, err)
	assert.True(t, remote.IsTransport(err))
	assert.Equal(t, before, f.query.Page())
	assert.Empty(t, f.deletion.Pending())
	assert.Contains(t, f.logs.String(), "failed to delete listing")
}

func TestDeletionSessionExpired(t *testing.T) {
	f := loaded(t, remotetest.Fixtures(1, 0)...)
	f.sess.Credential = "expired"

	f.deletion.RequestDeletion("listing-1")
	_, err := f.deletion.DeleteListing(context.Background(), "listing-1")

	assert.ErrorIs(t, err, remote.ErrSessionExpired)
	assert.Equal(t, 1, f.sess.ExpireCount())
	assert.Len(t, f.query.Page().Items, 1)
}

func TestDeletionOfLastItemOnPageAsksForReload(t *testing.T) {
	f := newFixture(t, remotetest.Fixtures(11, 0)...)
	ctx := context.Background()
	_, err := f.query.LoadPage(ctx, 2)
	require.NoError(t, err)

	f.deletion.RequestDeletion("listing-11")
	res, err := f.deletion.DeleteListing(ctx, "listing-11")
	require.NoError(t, err)

	assert.Equal(t, DeleteResult{NeedsReload: true, ReloadPage: 1}, res)
	assert.Equal(t, 10, f.query.Page().Totals.Total)

	page, err := f.query.LoadPage(ctx, res.ReloadPage)
	require.NoError(t, err)
	assert.Len(t, page.Items, 10)
	assert.False(t, f.query.ShowPager())
}

func TestDeletionOfOnlyListingIsEmpty(t *testing.T) {
	f := loaded(t, remotetest.Fixtures(0, 1)...)

	f.deletion.RequestDeletion("listing-1")
	res, err := f.deletion.DeleteListing(context.Background(), "listing-1")
	require.NoError(t, err)

	assert.False(t, res.NeedsReload)
	assert.True(t, f.query.Empty())
	assert.Equal(t, domain.Totals{}, f.query.Page().Totals)
}
