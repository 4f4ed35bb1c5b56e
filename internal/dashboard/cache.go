package dashboard

import (
	"slices"
	"sync"

	"github.com/Mickeymouse32/torii-frontend/internal/domain"
)

// SyncState tracks where a listing's availability stands relative to the
// service.
type SyncState int

const (
	Confirmed SyncState = iota
	Pending
	Failed
)

func (s SyncState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Failed:
		return "failed"
	default:
		return "confirmed"
	}
}

// Cache is the listing page shared by the dashboard models. The page itself
// holds what the service last reported; optimistic availability writes live
// in an overlay on top of it until they are confirmed or rolled back.
type Cache struct {
	mu       sync.RWMutex
	page     *domain.Page
	overlay  map[string]domain.Availability
	state    map[string]SyncState
	revision map[string]uint64
	inflight map[string]int
}

func NewCache() *Cache {
	return &Cache{
		overlay:  make(map[string]domain.Availability),
		state:    make(map[string]SyncState),
		revision: make(map[string]uint64),
		inflight: make(map[string]int),
	}
}

// Snapshot returns a copy of the current page with pending availability
// applied, or nil before the first successful load.
func (c *Cache) Snapshot() *domain.Page {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Cache) snapshotLocked() *domain.Page {
	if c.page == nil {
		return nil
	}
	p := *c.page
	p.Items = slices.Clone(c.page.Items)
	for i := range p.Items {
		if a, ok := c.overlay[p.Items[i].ID]; ok {
			p.Items[i].Availability = a
		}
	}
	return &p
}

// replace swaps in a freshly fetched page. Overlays survive so writes still in
// flight keep showing their optimistic value.
func (c *Cache) replace(p *domain.Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *p
	cp.Items = slices.Clone(p.Items)
	c.page = &cp
}

// State reports the sync state of one listing.
func (c *Cache) State(id string) SyncState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state[id]
}

// Availability returns the displayed availability of a cached listing.
func (c *Cache) Availability(id string) (domain.Availability, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if a, ok := c.overlay[id]; ok {
		return a, true
	}
	if l := c.findLocked(id); l != nil {
		return l.Availability, true
	}
	return "", false
}

func (c *Cache) findLocked(id string) *domain.Listing {
	if c.page == nil {
		return nil
	}
	for i := range c.page.Items {
		if c.page.Items[i].ID == id {
			return &c.page.Items[i]
		}
	}
	return nil
}

// remove drops a deleted listing from the page and adjusts the totals by the
// availability the service last reported for it.
func (c *Cache) remove(id string) (removed bool, page *domain.Page) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.page != nil {
		idx := slices.IndexFunc(c.page.Items, func(l domain.Listing) bool { return l.ID == id })
		if idx >= 0 {
			gone := c.page.Items[idx]
			c.page.Items = slices.Delete(slices.Clone(c.page.Items), idx, idx+1)
			c.page.Totals.Total = max(c.page.Totals.Total-1, 0)
			switch gone.Availability {
			case domain.Available:
				c.page.Totals.Available = max(c.page.Totals.Available-1, 0)
			case domain.Rented:
				c.page.Totals.Rented = max(c.page.Totals.Rented-1, 0)
			}
			removed = true
		}
	}
	delete(c.overlay, id)
	delete(c.state, id)
	return removed, c.snapshotLocked()
}
