package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/Mickeymouse32/torii-frontend/internal/photostore"
)

var errInvalidKey = errors.New("invalid preview key")

// Extensions for the image types staging accepts; anything else is stored
// as .jpg.
var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// PreviewStore writes previews as files under one directory.
type PreviewStore struct {
	dir    string
	logger *slog.Logger
}

func NewPreviewStore(dir string, logger *slog.Logger) (*PreviewStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create preview directory: %w", err)
	}
	return &PreviewStore{dir: dir, logger: logger}, nil
}

// Save writes r to a temporary file and renames it into place, so a preview
// key never names a partly written file.
func (s *PreviewStore) Save(ctx context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".preview-*")
	if err != nil {
		return "", fmt.Errorf("failed to create preview: %w", err)
	}
	discard := func() {
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to remove partial preview", "path", tmp.Name(), "error", err)
		}
	}

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		discard()
		return "", fmt.Errorf("failed to write preview: %w", err)
	}
	if err := tmp.Close(); err != nil {
		discard()
		return "", fmt.Errorf("failed to write preview: %w", err)
	}

	key := prefix + "_" + uuid.NewString() + extFor(mimeType)
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, key)); err != nil {
		discard()
		return "", fmt.Errorf("failed to store preview: %w", err)
	}
	s.logger.Debug("preview saved", "key", key, "media_type", mimeType)
	return key, nil
}

// Get opens a preview. The media type comes from the key's extension.
func (s *PreviewStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	path, err := s.Path(key)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, "", fmt.Errorf("%w: %s", photostore.ErrNotFound, key)
	case err != nil:
		return nil, "", fmt.Errorf("failed to open preview: %w", err)
	}
	return f, typeFor(key), nil
}

func (s *PreviewStore) Delete(_ context.Context, key string) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", photostore.ErrNotFound, key)
	case err != nil:
		return fmt.Errorf("failed to delete preview: %w", err)
	}
	return nil
}

// Path is the file backing key. Keys that would leave the store directory
// are rejected.
func (s *PreviewStore) Path(key string) (string, error) {
	if key == "" || !filepath.IsLocal(key) || strings.ContainsRune(key, filepath.Separator) {
		return "", fmt.Errorf("%w: %q", errInvalidKey, key)
	}
	return filepath.Join(s.dir, key), nil
}

func extFor(mimeType string) string {
	if ext, ok := extensions[mimeType]; ok {
		return ext
	}
	return ".jpg"
}

func typeFor(key string) string {
	ext := strings.ToLower(filepath.Ext(key))
	for mt, e := range extensions {
		if e == ext {
			return mt
		}
	}
	return "image/jpeg"
}
