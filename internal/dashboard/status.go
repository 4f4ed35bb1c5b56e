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

var ErrUnknownListing = errors.New("listing not on the current page")

// availabilityUpdater is the subset of remote.Client that StatusModel requires.
type availabilityUpdater interface {
	UpdateAvailability(ctx context.Context, token, listingID string, availability domain.Availability) error
}

// StatusModel changes a listing's availability optimistically: the cache
// shows the new value at once and the service is told afterwards.
type StatusModel struct {
	cache   *Cache
	remote  availabilityUpdater
	session session.Capability
	logger  *slog.Logger

	mu       sync.Mutex
	menu     string
	lastSent map[string]chan struct{}
}

func NewStatusModel(cache *Cache, remote availabilityUpdater, sess session.Capability, logger *slog.Logger) *StatusModel {
	return &StatusModel{
		cache:    cache,
		remote:   remote,
		session:  sess,
		logger:   logger,
		lastSent: make(map[string]chan struct{}),
	}
}

// StatusWrite is one optimistic availability change that has been applied to
// the cache and still has to be sent. Every write returned by Apply must be
// committed, or later writes to the same listing will wait forever.
type StatusWrite struct {
	model    *StatusModel
	id       string
	value    domain.Availability
	prior    domain.Availability
	revision uint64
	prev     <-chan struct{}
	done     chan struct{}
}

// SetAvailability applies the new status and sends it.
func (m *StatusModel) SetAvailability(ctx context.Context, id string, a domain.Availability) error {
	w, err := m.Apply(id, a)
	if err != nil {
		return err
	}
	return w.Commit(ctx)
}

// Apply is the synchronous half of SetAvailability: the cache shows a
// straight away and the status menu closes.
func (m *StatusModel) Apply(id string, a domain.Availability) (*StatusWrite, error) {
	if _, err := domain.ParseAvailability(string(a)); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.menu = ""

	c := m.cache
	c.mu.Lock()
	defer c.mu.Unlock()

	l := c.findLocked(id)
	if l == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownListing, id)
	}
	prior := l.Availability
	if o, ok := c.overlay[id]; ok {
		prior = o
	}

	c.revision[id]++
	c.overlay[id] = a
	c.state[id] = Pending
	c.inflight[id]++

	done := make(chan struct{})
	w := &StatusWrite{
		model:    m,
		id:       id,
		value:    a,
		prior:    prior,
		revision: c.revision[id],
		prev:     m.lastSent[id],
		done:     done,
	}
	m.lastSent[id] = done
	return w, nil
}

// Commit sends the write once every earlier write to the same listing has
// finished, then reconciles the cache with the outcome.
func (w *StatusWrite) Commit(ctx context.Context) error {
	m := w.model
	defer w.finish()

	if w.prev != nil {
		select {
		case <-w.prev:
		case <-ctx.Done():
			err := fmt.Errorf("failed to update availability: %w", ctx.Err())
			w.reconcile(err)
			return err
		}
	}

	err := m.remote.UpdateAvailability(ctx, m.session.Token(), w.id, w.value)
	w.reconcile(err)

	switch {
	case err == nil:
		m.logger.Info("availability updated", "listing_id", w.id, "availability", w.value)
		return nil
	case errors.Is(err, remote.ErrSessionExpired):
		m.logger.Warn("session expired while updating availability", "listing_id", w.id)
		m.session.Expire()
		return err
	default:
		m.logger.Error("failed to update availability", "listing_id", w.id, "availability", w.value, "error", err)
		return fmt.Errorf("failed to update availability: %w", err)
	}
}

func (w *StatusWrite) finish() {
	m := w.model
	m.mu.Lock()
	defer m.mu.Unlock()
	close(w.done)
	if m.lastSent[w.id] == w.done {
		delete(m.lastSent, w.id)
	}
}

func (w *StatusWrite) reconcile(err error) {
	c := w.model.cache
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inflight[w.id]--
	current := c.revision[w.id] == w.revision

	switch {
	case err == nil:
		// The service now holds this value whether or not a newer local write
		// is waiting behind it.
		if l := c.findLocked(w.id); l != nil {
			l.Availability = w.value
		}
		if current {
			delete(c.overlay, w.id)
			c.state[w.id] = Confirmed
		}
	case errors.Is(err, remote.ErrSessionExpired):
		if current {
			c.state[w.id] = Failed
		}
	case current:
		if c.inflight[w.id] > 0 {
			c.overlay[w.id] = w.prior
		} else {
			delete(c.overlay, w.id)
		}
		c.state[w.id] = Failed
	}

	if c.inflight[w.id] <= 0 {
		delete(c.inflight, w.id)
		// The newest write already finished, so the page value is the best
		// known truth.
		if !current {
			delete(c.overlay, w.id)
		}
	}
}

// ToggleMenu opens the status menu for id, or closes it if it is already open.
// Only one menu is open at a time.
func (m *StatusModel) ToggleMenu(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.menu == id {
		m.menu = ""
		return
	}
	m.menu = id
}

func (m *StatusModel) MenuOpen(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.menu == id
}

func (m *StatusModel) CloseMenu() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.menu = ""
}
