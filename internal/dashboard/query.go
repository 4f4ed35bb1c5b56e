package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Mickeymouse32/torii-frontend/internal/domain"
	"github.com/Mickeymouse32/torii-frontend/internal/remote"
	"github.com/Mickeymouse32/torii-frontend/internal/session"
)

// ErrStale is returned by LoadPage when a newer load or Detach superseded the
// request before it completed. The cache is left as it was.
var ErrStale = errors.New("stale page response discarded")

// pageLister is the subset of remote.Client that QueryModel requires.
type pageLister interface {
	ListLandlordProperties(ctx context.Context, token string, page int) (*domain.Page, error)
}

// QueryModel loads pages of the landlord's listings into the shared cache.
type QueryModel struct {
	cache   *Cache
	remote  pageLister
	session session.Capability
	logger  *slog.Logger

	mu         sync.Mutex
	generation uint64
	loading    int
}

func NewQueryModel(cache *Cache, remote pageLister, sess session.Capability, logger *slog.Logger) *QueryModel {
	return &QueryModel{
		cache:   cache,
		remote:  remote,
		session: sess,
		logger:  logger,
	}
}

// LoadPage fetches page index and replaces the cached page with it in one
// step. On any error the cached page is untouched. Only the most recent call
// may apply its result.
func (m *QueryModel) LoadPage(ctx context.Context, index int) (*domain.Page, error) {
	if index < 1 {
		index = 1
	}

	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.loading++
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.loading--
		m.mu.Unlock()
	}()

	page, err := m.remote.ListLandlordProperties(ctx, m.session.Token(), index)
	if errors.Is(err, remote.ErrSessionExpired) {
		m.logger.Warn("session expired while loading listings", "page", index)
		m.session.Expire()
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		m.logger.Debug("discarding stale page", "page", index)
		return nil, ErrStale
	}
	if err != nil {
		m.logger.Error("failed to load listings", "page", index, "error", err)
		return nil, fmt.Errorf("failed to load page %d: %w", index, err)
	}

	m.cache.replace(page)
	return m.cache.Snapshot(), nil
}

// Reload fetches the current page again, or the first page before any load.
func (m *QueryModel) Reload(ctx context.Context) (*domain.Page, error) {
	return m.LoadPage(ctx, m.CurrentIndex())
}

func (m *QueryModel) NextPage(ctx context.Context) (*domain.Page, error) {
	if !m.HasNext() {
		return m.cache.Snapshot(), nil
	}
	return m.LoadPage(ctx, m.CurrentIndex()+1)
}

func (m *QueryModel) PrevPage(ctx context.Context) (*domain.Page, error) {
	if !m.HasPrev() {
		return m.cache.Snapshot(), nil
	}
	return m.LoadPage(ctx, m.CurrentIndex()-1)
}

// Detach is called when the dashboard view goes away. Loads still in flight
// will not touch the cache.
func (m *QueryModel) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
}

func (m *QueryModel) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading > 0
}

func (m *QueryModel) Page() *domain.Page {
	return m.cache.Snapshot()
}

// CurrentIndex is the page index last reported by the service, 1 before any
// load.
func (m *QueryModel) CurrentIndex() int {
	if p := m.cache.Snapshot(); p != nil && p.Index > 0 {
		return p.Index
	}
	return 1
}

func (m *QueryModel) HasNext() bool {
	p := m.cache.Snapshot()
	return p != nil && p.Index < p.TotalPages
}

func (m *QueryModel) HasPrev() bool {
	p := m.cache.Snapshot()
	return p != nil && p.Index > 1
}

// ShowPager reports whether there is more than one page to move between.
func (m *QueryModel) ShowPager() bool {
	p := m.cache.Snapshot()
	return p != nil && p.TotalPages > 1
}

// Empty reports the "no listings yet" state: a page has loaded and the
// landlord-wide total is zero.
func (m *QueryModel) Empty() bool {
	p := m.cache.Snapshot()
	return p != nil && p.Empty()
}
