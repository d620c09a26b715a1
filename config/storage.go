package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// publicPrefix is the key prefix that SetupBucketPolicy opens for anonymous reads
const publicPrefix = "uploads/"

// S3Config holds S3 client and bucket info
type S3Config struct {
	Client     *s3.Client
	BucketName string
	Region     string
	Endpoint   string
}

// NewS3Config initializes the S3 client from the storage settings.
// A custom endpoint (minio, localstack) switches the client to path-style addressing.
func NewS3Config(ctx context.Context, sc StorageConfig) (*S3Config, error) {
	if sc.S3Bucket == "" {
		return nil, fmt.Errorf("storage.s3_bucket is required for the s3 backend")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(sc.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if sc.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(sc.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Config{
		Client:     client,
		BucketName: sc.S3Bucket,
		Region:     sc.AWSRegion,
		Endpoint:   sc.S3Endpoint,
	}, nil
}

// ObjectURL is the unsigned URL of key, honouring a custom endpoint
func (s *S3Config) ObjectURL(key string) string {
	if s.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.Endpoint, "/"), s.BucketName, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.BucketName, key)
}

type policyStatement struct {
	Sid       string `json:"Sid"`
	Effect    string `json:"Effect"`
	Principal string `json:"Principal"`
	Action    string `json:"Action"`
	Resource  string `json:"Resource"`
}

type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

// publicReadPolicy allows anonymous GetObject on keys under prefix
func publicReadPolicy(bucket, prefix string) (string, error) {
	policy := bucketPolicy{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Sid:       "PublicReadRecipeImages",
			Effect:    "Allow",
			Principal: "*",
			Action:    "s3:GetObject",
			Resource:  fmt.Sprintf("arn:aws:s3:::%s/%s*", bucket, prefix),
		}},
	}
	data, err := json.Marshal(policy)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SetupBucketPolicy makes uploaded recipe images publicly readable
func (s *S3Config) SetupBucketPolicy(ctx context.Context) error {
	policy, err := publicReadPolicy(s.BucketName, publicPrefix)
	if err != nil {
		return err
	}
	_, err = s.Client.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(s.BucketName),
		Policy: aws.String(policy),
	})
	if err != nil {
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}
	return nil
}

// GeneratePresignedURL returns a GET link for objectKey valid for expiration
func (s *S3Config) GeneratePresignedURL(ctx context.Context, objectKey string, expiration time.Duration) (string, error) {
	req, err := s3.NewPresignClient(s.Client).PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.BucketName),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(expiration))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", objectKey, err)
	}
	return req.URL, nil
}
