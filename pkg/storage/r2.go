package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// DefaultLinkExpiry bounds presigned download links of private buckets.
const DefaultLinkExpiry = 15 * time.Minute

type R2Config struct {
	AccountID     string
	AccessKey     string
	SecretKey     string
	BucketName    string
	PublicURL     string // empty for private buckets; downloads are then presigned
	UploadTimeout time.Duration
	LinkExpiry    time.Duration
}

// Enabled reports whether enough is configured to reach a bucket.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKey != "" && c.SecretKey != "" && c.BucketName != ""
}

type R2Storage struct {
	client        *s3.Client
	presign       *s3.PresignClient
	bucketName    string
	publicURL     string
	uploadTimeout time.Duration
	linkExpiry    time.Duration
}

func NewR2Storage(ctx context.Context, c R2Config) (*R2Storage, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID))
		o.UsePathStyle = true
	})

	uploadTimeout := c.UploadTimeout
	if uploadTimeout <= 0 {
		uploadTimeout = 30 * time.Second
	}
	linkExpiry := c.LinkExpiry
	if linkExpiry <= 0 {
		linkExpiry = DefaultLinkExpiry
	}

	return &R2Storage{
		client:        client,
		presign:       s3.NewPresignClient(client),
		bucketName:    c.BucketName,
		publicURL:     strings.TrimSuffix(c.PublicURL, "/"),
		uploadTimeout: uploadTimeout,
		linkExpiry:    linkExpiry,
	}, nil
}

// UploadBuffer stores data under folder with a random name keeping ext, and
// returns a URL the browser can download it from.
func (s *R2Storage) UploadBuffer(ctx context.Context, folder, ext string, data []byte, contentType string) (string, error) {
	key := fmt.Sprintf("%s/%s%s", strings.Trim(folder, "/"), uuid.NewString(), ext)

	uploadCtx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	_, err := s.client.PutObject(uploadCtx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload buffer to R2: %w", err)
	}

	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s", s.publicURL, key), nil
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.linkExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign download link: %w", err)
	}
	return req.URL, nil
}
