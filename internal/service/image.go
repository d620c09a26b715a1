package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"

	"github.com/pageza/recipe-app-api/backend/internal/metrics"
	"github.com/pageza/recipe-app-api/backend/internal/storage"
)

const (
	// DefaultMaxUploadBytes bounds the size of an uploaded image
	DefaultMaxUploadBytes int64 = 10 << 20
	// DefaultMaxImageDimension is the largest width or height stored without downscaling
	DefaultMaxImageDimension uint = 2048

	imageKeyPrefix = "uploads/recipe"
)

var formatExtensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
}

// ImageService validates, downsizes and stores recipe images
type ImageService struct {
	store    storage.Storage
	maxBytes int64
	maxDim   uint
}

var _ IImageService = (*ImageService)(nil)

// NewImageService creates an ImageService. Zero limits fall back to the defaults.
func NewImageService(store storage.Storage, maxBytes int64, maxDim uint) *ImageService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if maxDim == 0 {
		maxDim = DefaultMaxImageDimension
	}
	return &ImageService{store: store, maxBytes: maxBytes, maxDim: maxDim}
}

// ImageKey builds a unique storage key for an upload named filename. The
// filename's extension is kept only when it agrees with the decoded format.
func ImageKey(filename, format string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != formatExtensions[format] && !(format == "jpeg" && ext == ".jpeg") {
		ext = formatExtensions[format]
	}
	return fmt.Sprintf("%s/%s%s", imageKeyPrefix, uuid.NewString(), ext)
}

// Store validates body and saves it, returning the storage key
func (s *ImageService) Store(ctx context.Context, filename string, body io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrImageTooLarge
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", ErrInvalidImage
	}
	if _, ok := formatExtensions[format]; !ok {
		return "", ErrInvalidImage
	}

	bounds := img.Bounds()
	if uint(bounds.Dx()) > s.maxDim || uint(bounds.Dy()) > s.maxDim {
		resized := resize.Thumbnail(s.maxDim, s.maxDim, img, resize.Lanczos3)
		if data, err = encodeImage(resized, format); err != nil {
			return "", fmt.Errorf("encode resized image: %w", err)
		}
	}

	key := ImageKey(filename, format)
	if err := s.store.Save(ctx, key, bytes.NewReader(data), "image/"+format); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	metrics.ImageUploadBytes.Observe(float64(len(data)))
	return key, nil
}

// URL resolves key to a URL clients can fetch
func (s *ImageService) URL(ctx context.Context, key string) (string, error) {
	return s.store.URL(ctx, key)
}

// Delete removes the object stored under key. Missing objects are not an error.
func (s *ImageService) Delete(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

func encodeImage(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	return buf.Bytes(), err
}
