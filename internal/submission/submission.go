package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Mickeymouse32/torii-frontend/internal/domain"
	"github.com/Mickeymouse32/torii-frontend/internal/remote"
	"github.com/Mickeymouse32/torii-frontend/internal/session"
	"github.com/Mickeymouse32/torii-frontend/internal/staging"
	"github.com/Mickeymouse32/torii-frontend/internal/store"
	"github.com/Mickeymouse32/torii-frontend/internal/validate"
)

var (
	ErrInsufficientImages = errors.New("all six images are required")
	ErrSubmitInProgress   = errors.New("a submission is already in progress")
)

type State int

const (
	Idle State = iota
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// listingCreator is the subset of remote.Client that Model requires.
type listingCreator interface {
	CreateListing(ctx context.Context, token string, fields domain.ListingFields, images []remote.Upload) (*domain.Listing, error)
}

// draftRepository is the subset of store.DraftStore that Model requires.
type draftRepository interface {
	Save(ctx context.Context, d store.Draft) error
	Load(ctx context.Context) (*store.Draft, error)
	Delete(ctx context.Context) error
}

// Model drives the creation form: the typed fields plus the staged images go
// to the service as one request.
type Model struct {
	remote  listingCreator
	images  *staging.Model
	drafts  draftRepository
	session session.Capability
	logger  *slog.Logger

	mu      sync.Mutex
	state   State
	form    domain.FormInput
	lastErr error
}

// New creates the form model. drafts may be nil, in which case nothing is
// persisted between runs.
func New(remote listingCreator, images *staging.Model, drafts draftRepository, sess session.Capability, logger *slog.Logger) *Model {
	return &Model{
		remote:  remote,
		images:  images,
		drafts:  drafts,
		session: sess,
		logger:  logger,
	}
}

// Submit validates form and the staged images and, only if both pass, sends
// the listing. On success the form and images are cleared; on failure they
// are kept for a retry and saved as a draft.
func (m *Model) Submit(ctx context.Context, form domain.FormInput) (*domain.Listing, error) {
	m.mu.Lock()
	if m.state == Submitting {
		m.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	m.form = form

	var problems []error
	fields, err := validate.Fields(form)
	if err != nil {
		problems = append(problems, err)
	}
	if filled := m.images.Filled(); filled < domain.ImageCount {
		problems = append(problems, fmt.Errorf("%w: %d of %d staged", ErrInsufficientImages, filled, domain.ImageCount))
	}
	if len(problems) > 0 {
		m.mu.Unlock()
		return nil, errors.Join(problems...)
	}

	m.state = Submitting
	m.lastErr = nil
	m.mu.Unlock()

	staged := m.images.Images()
	uploads := make([]remote.Upload, 0, len(staged))
	for _, img := range staged {
		uploads = append(uploads, remote.Upload{Name: img.Name, ContentType: img.MediaType, Data: img.Data})
	}

	listing, err := m.remote.CreateListing(ctx, m.session.Token(), fields, uploads)
	if err != nil {
		m.mu.Lock()
		m.state = Failed
		m.lastErr = err
		m.mu.Unlock()

		if saveErr := m.SaveDraft(ctx); saveErr != nil {
			m.logger.Error("failed to save draft", "error", saveErr)
		}

		if errors.Is(err, remote.ErrSessionExpired) {
			m.logger.Warn("session expired while creating listing")
			m.session.Expire()
			return nil, err
		}
		m.logger.Error("failed to create listing", "title", fields.Title, "error", err)
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	m.mu.Lock()
	m.state = Succeeded
	m.form = domain.FormInput{}
	m.mu.Unlock()

	m.images.ClearAll(ctx)
	if m.drafts != nil {
		if err := m.drafts.Delete(ctx); err != nil {
			m.logger.Warn("failed to delete draft", "error", err)
		}
	}

	m.logger.Info("listing created", "title", fields.Title)
	return listing, nil
}

// Reset returns a finished submission to idle. Fields and images are left as
// they are.
func (m *Model) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Submitting {
		return
	}
	m.state = Idle
	m.lastErr = nil
}

// Cancel abandons the form: fields, images and any saved draft are discarded.
func (m *Model) Cancel(ctx context.Context) error {
	m.mu.Lock()
	if m.state == Submitting {
		m.mu.Unlock()
		return ErrSubmitInProgress
	}
	m.state = Idle
	m.lastErr = nil
	m.form = domain.FormInput{}
	m.mu.Unlock()

	m.images.ClearAll(ctx)
	if m.drafts != nil {
		if err := m.drafts.Delete(ctx); err != nil {
			return fmt.Errorf("failed to discard draft: %w", err)
		}
	}
	return nil
}

// SetForm records what the user has typed so far without submitting it.
func (m *Model) SetForm(form domain.FormInput) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.form = form
}

func (m *Model) Form() domain.FormInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.form
}

func (m *Model) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError is the error of the last failed submission. Use errors.Is with
// remote.ErrSessionExpired to tell an expired session from other failures.
func (m *Model) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// SaveDraft persists the current fields and staged image previews.
func (m *Model) SaveDraft(ctx context.Context) error {
	if m.drafts == nil {
		return nil
	}

	d := store.Draft{Form: m.Form()}
	for _, img := range m.images.Images() {
		d.Images = append(d.Images, store.DraftImage{
			Slot:       img.Slot,
			Name:       img.Name,
			PreviewKey: img.Preview,
			MediaType:  img.MediaType,
		})
	}
	if d.Form.Blank() && len(d.Images) == 0 {
		return m.drafts.Delete(ctx)
	}
	return m.drafts.Save(ctx, d)
}

// RestoreDraft loads a saved draft into the form and the image slots. It
// reports false when there was nothing to restore. Images whose preview is
// gone are skipped.
func (m *Model) RestoreDraft(ctx context.Context) (bool, error) {
	if m.drafts == nil {
		return false, nil
	}

	d, err := m.drafts.Load(ctx)
	if err != nil {
		return false, err
	}
	if d == nil {
		return false, nil
	}

	m.SetForm(d.Form)
	for _, img := range d.Images {
		if err := m.images.Restore(ctx, img.Slot, img.Name, img.PreviewKey); err != nil {
			m.logger.Warn("failed to restore draft image", "slot", img.Slot, "error", err)
		}
	}
	m.logger.Info("draft restored", "images", m.images.Filled(), "saved_at", d.UpdatedAt)
	return true, nil
}
