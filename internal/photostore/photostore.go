package photostore

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("preview not found")

// Store keeps the local preview copy of each staged image until the slot is
// cleared or the listing is submitted.
type Store interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (key string, err error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}
