package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pageza/recipe-app-api/backend/config"
)

// S3API is the subset of the S3 client used by S3Storage
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage stores objects in a single bucket
type S3Storage struct {
	api       S3API
	cfg       *config.S3Config
	presign   bool
	expiresIn time.Duration
}

// NewS3Storage wraps an initialised S3Config. With presign set, URLs are
// short-lived signed GET links instead of public object URLs.
func NewS3Storage(cfg *config.S3Config, presign bool) *S3Storage {
	return &S3Storage{api: cfg.Client, cfg: cfg, presign: presign, expiresIn: time.Hour}
}

// NewS3StorageWithAPI is used by tests to substitute the client
func NewS3StorageWithAPI(api S3API, cfg *config.S3Config) *S3Storage {
	return &S3Storage{api: api, cfg: cfg, expiresIn: time.Hour}
}

// Save uploads body to key
func (s *S3Storage) Save(ctx context.Context, key string, body io.Reader, contentType string) error {
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.BucketName),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

// Delete removes key from the bucket
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// URL returns a URL the client can fetch key from
func (s *S3Storage) URL(ctx context.Context, key string) (string, error) {
	if s.presign {
		return s.cfg.GeneratePresignedURL(ctx, key, s.expiresIn)
	}
	return s.cfg.ObjectURL(key), nil
}
