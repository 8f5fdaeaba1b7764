// Package storage keeps chat attachments in S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"chatdesk_backend/platform/apperr"
	"chatdesk_backend/platform/config"
	"chatdesk_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var allowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// AttachmentStore uploads widget attachments and mints presigned download
// links. Objects are keyed by organization so keys never collide across
// tenants.
type AttachmentStore struct {
	client  *minio.Client
	bucket  string
	maxSize int64
	log     *logger.Logger
}

func NewAttachmentStore(cfg config.MinIOConfig, log *logger.Logger) (*AttachmentStore, error) {
	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &AttachmentStore{
		client:  client,
		bucket:  cfg.GetMinioBucketAttachments(),
		maxSize: cfg.GetMinIOMaxFileSize(),
		log:     log,
	}, nil
}

// EnsureBucket creates the attachment bucket if missing. Called once at
// startup.
func (s *AttachmentStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Upload stores one attachment and returns its object key.
func (s *AttachmentStore) Upload(ctx context.Context, orgID uuid.UUID, filename, contentType string, size int64, r io.Reader) (string, error) {
	if size > s.maxSize {
		return "", apperr.Validation(fmt.Sprintf("attachment exceeds %d bytes", s.maxSize))
	}
	if !allowedContentTypes[contentType] {
		return "", apperr.Validation("unsupported attachment type")
	}

	ext := strings.ToLower(path.Ext(filename))
	key := fmt.Sprintf("%s/%s/%s%s", orgID, time.Now().Format("2006/01"), uuid.NewString(), ext)

	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload attachment: %w", err)
	}

	s.log.Info("attachment uploaded", "key", key, "size", size)
	return key, nil
}

// PresignedURL returns a short-lived download link for an attachment key.
func (s *AttachmentStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 || expiry > 24*time.Hour {
		expiry = time.Hour
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign attachment url: %w", err)
	}
	return u.String(), nil
}

// Delete removes an attachment object.
func (s *AttachmentStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}
