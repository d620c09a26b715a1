package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStorage writes objects below a root directory that is served over HTTP at urlPrefix
type LocalStorage struct {
	root      string
	urlPrefix string
}

// NewLocalStorage creates the root directory if needed.
// baseURL may be empty, in which case URLs are host-relative.
func NewLocalStorage(root, baseURL, mediaURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	prefix := strings.TrimRight(baseURL, "/") + "/" + strings.Trim(mediaURL, "/")
	return &LocalStorage{root: root, urlPrefix: prefix}, nil
}

// Root returns the directory objects are written to
func (s *LocalStorage) Root() string {
	return s.root
}

func (s *LocalStorage) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Save writes body to key, replacing any existing object
func (s *LocalStorage) Save(ctx context.Context, key string, body io.Reader, contentType string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

// Delete removes key
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// URL returns the public URL of key
func (s *LocalStorage) URL(ctx context.Context, key string) (string, error) {
	if _, err := s.path(key); err != nil {
		return "", err
	}
	return s.urlPrefix + "/" + strings.TrimLeft(key, "/"), nil
}
