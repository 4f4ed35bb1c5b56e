package staging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/Mickeymouse32/torii-frontend/internal/domain"
	"github.com/Mickeymouse32/torii-frontend/internal/photostore"
)

const maxImageSize = 50 * 1024 * 1024 // 50 MB

var (
	ErrInvalidMediaType = errors.New("not an image")
	ErrInvalidSlot      = errors.New("invalid image slot")
	ErrTooLarge         = errors.New("image too large")
)

// Candidate is a file the user picked for a slot.
type Candidate struct {
	Name        string
	ContentType string
	Data        []byte
}

// CandidateFromFile reads path, declaring the content type from its extension.
func CandidateFromFile(path string) (Candidate, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("failed to stat image: %w", err)
	}
	if info.Size() > maxImageSize {
		return Candidate{}, fmt.Errorf("%w: %s", ErrTooLarge, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("failed to read image: %w", err)
	}
	return Candidate{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	}, nil
}

// Image is a staged file together with its preview.
type Image struct {
	Slot      int
	Name      string
	MediaType string
	Data      []byte
	Preview   string
}

// Model holds up to domain.ImageCount staged images, one per slot.
type Model struct {
	previews photostore.Store
	logger   *slog.Logger

	mu    sync.Mutex
	slots [domain.ImageCount]*Image
}

func New(previews photostore.Store, logger *slog.Logger) *Model {
	return &Model{previews: previews, logger: logger}
}

// Stage puts c into slot, replacing and releasing whatever was there. A
// candidate that is not an image leaves the slot untouched.
func (m *Model) Stage(ctx context.Context, slot int, c Candidate) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	if len(c.Data) > maxImageSize {
		return fmt.Errorf("%w: %s", ErrTooLarge, c.Name)
	}
	mediaType, ok := imageMediaType(c.Data, c.ContentType)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidMediaType, c.Name)
	}

	key, err := m.previews.Save(ctx, "slot_"+strconv.Itoa(slot), mediaType, bytes.NewReader(c.Data))
	if err != nil {
		return fmt.Errorf("failed to save preview: %w", err)
	}

	m.swap(ctx, slot, &Image{
		Slot:      slot,
		Name:      c.Name,
		MediaType: mediaType,
		Data:      c.Data,
		Preview:   key,
	})
	return nil
}

// Restore re-stages slot from a preview saved by an earlier Stage, for
// example when a draft is reloaded after a restart.
func (m *Model) Restore(ctx context.Context, slot int, name, key string) error {
	if err := checkSlot(slot); err != nil {
		return err
	}

	rc, storedType, err := m.previews.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to open preview: %w", err)
	}
	data, err := io.ReadAll(io.LimitReader(rc, maxImageSize+1))
	if cerr := rc.Close(); cerr != nil {
		m.logger.Warn("failed to close preview", "key", key, "error", cerr)
	}
	if err != nil {
		return fmt.Errorf("failed to read preview: %w", err)
	}

	mediaType, ok := imageMediaType(data, storedType)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidMediaType, name)
	}

	m.swap(ctx, slot, &Image{
		Slot:      slot,
		Name:      name,
		MediaType: mediaType,
		Data:      data,
		Preview:   key,
	})
	return nil
}

// Remove empties one slot.
func (m *Model) Remove(ctx context.Context, slot int) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	m.swap(ctx, slot, nil)
	return nil
}

// ClearAll empties every slot and releases every preview.
func (m *Model) ClearAll(ctx context.Context) {
	for slot := range domain.ImageCount {
		m.swap(ctx, slot, nil)
	}
}

// Detach empties every slot but keeps the previews on disk, so a saved draft
// can still restore them.
func (m *Model) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots = [domain.ImageCount]*Image{}
}

func (m *Model) swap(ctx context.Context, slot int, img *Image) {
	m.mu.Lock()
	old := m.slots[slot]
	m.slots[slot] = img
	m.mu.Unlock()

	if old != nil && (img == nil || old.Preview != img.Preview) {
		m.release(ctx, old.Preview)
	}
}

func (m *Model) release(ctx context.Context, key string) {
	if err := m.previews.Delete(ctx, key); err != nil && !errors.Is(err, photostore.ErrNotFound) {
		m.logger.Warn("failed to release preview", "key", key, "error", err)
	}
}

// Slot returns a copy of the image staged in slot.
func (m *Model) Slot(slot int) (Image, bool) {
	if checkSlot(slot) != nil {
		return Image{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slots[slot] == nil {
		return Image{}, false
	}
	return *m.slots[slot], true
}

// Images returns the staged images in slot order.
func (m *Model) Images() []Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Image, 0, domain.ImageCount)
	for _, img := range m.slots {
		if img != nil {
			out = append(out, *img)
		}
	}
	return out
}

func (m *Model) Filled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, img := range m.slots {
		if img != nil {
			n++
		}
	}
	return n
}

// Complete reports whether every slot holds an image.
func (m *Model) Complete() bool {
	return m.Filled() == domain.ImageCount
}

func checkSlot(slot int) error {
	if slot < 0 || slot >= domain.ImageCount {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	return nil
}
