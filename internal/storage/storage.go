// Package storage persists uploaded recipe images.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when deleting or resolving a key that does not exist
var ErrNotFound = errors.New("object not found")

// Storage stores objects under slash-separated keys
type Storage interface {
	Save(ctx context.Context, key string, body io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}
