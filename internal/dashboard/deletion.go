package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Mickeymouse32/torii-frontend/internal/remote"
	"github.com/Mickeymouse32/torii-frontend/internal/session"
)

var ErrNotConfirmed = errors.New("deletion not confirmed")

// listingDeleter is the subset of remote.Client that DeletionModel requires.
type listingDeleter interface {
	DeleteListing(ctx context.Context, token, listingID string) error
}

// DeleteResult describes the cache after a successful deletion.
type DeleteResult struct {
	// NeedsReload is set when the current page is now empty but the landlord
	// still has listings elsewhere. ReloadPage is the page to fetch.
	NeedsReload bool
	ReloadPage  int
}

// DeletionModel removes listings behind a confirmation step.
type DeletionModel struct {
	cache   *Cache
	remote  listingDeleter
	session session.Capability
	logger  *slog.Logger

	mu    sync.Mutex
	armed string
}

func NewDeletionModel(cache *Cache, remote listingDeleter, sess session.Capability, logger *slog.Logger) *DeletionModel {
	return &DeletionModel{
		cache:   cache,
		remote:  remote,
		session: sess,
		logger:  logger,
	}
}

// RequestDeletion asks for confirmation before id can be deleted.
func (m *DeletionModel) RequestDeletion(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = id
}

func (m *DeletionModel) CancelDeletion() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = ""
}

// Pending returns the listing awaiting confirmation, if any.
func (m *DeletionModel) Pending() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}

// DeleteListing deletes id, which must be the listing passed to
// RequestDeletion. Either the service deletes it and it leaves the cache, or
// nothing changes.
func (m *DeletionModel) DeleteListing(ctx context.Context, id string) (DeleteResult, error) {
	m.mu.Lock()
	if id == "" || m.armed != id {
		m.mu.Unlock()
		return DeleteResult{}, fmt.Errorf("%w: %s", ErrNotConfirmed, id)
	}
	m.armed = ""
	m.mu.Unlock()

	if err := m.remote.DeleteListing(ctx, m.session.Token(), id); err != nil {
		if errors.Is(err, remote.ErrSessionExpired) {
			m.logger.Warn("session expired while deleting listing", "listing_id", id)
			m.session.Expire()
			return DeleteResult{}, err
		}
		m.logger.Error("failed to delete listing", "listing_id", id, "error", err)
		return DeleteResult{}, fmt.Errorf("failed to delete listing: %w", err)
	}

	removed, page := m.cache.remove(id)
	m.logger.Info("listing deleted", "listing_id", id, "cached", removed)

	var res DeleteResult
	if page != nil && len(page.Items) == 0 && page.Totals.Total > 0 {
		res.NeedsReload = true
		res.ReloadPage = max(page.Index-1, 1)
	}
	return res, nil
}
