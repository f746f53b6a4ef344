// Package storage archives receipt files in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config for the archive.
type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string        // when set, links are PublicBaseURL/<key> instead of presigned
	PresignExpiry time.Duration // default 7 days, the S3 maximum
}

// Archive stores uploads and hands back a link for the sheet row.
type Archive struct {
	client *minio.Client
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

const maxPresign = 7 * 24 * time.Hour

// NewArchive connects and makes sure the bucket exists.
func NewArchive(ctx context.Context, cfg Config, logger *slog.Logger) (*Archive, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PresignExpiry <= 0 || cfg.PresignExpiry > maxPresign {
		cfg.PresignExpiry = maxPresign
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Info("storage.bucket.created", "bucket", cfg.Bucket)
	}
	return &Archive{client: client, cfg: cfg, logger: logger, now: time.Now}, nil
}

// Put uploads one receipt and returns its link.
func (a *Archive) Put(ctx context.Context, submitterID int64, ext string, data []byte, contentType string) (string, error) {
	key := ObjectKey(a.now(), submitterID, uuid.New(), ext)
	_, err := a.client.PutObject(ctx, a.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	if a.cfg.PublicBaseURL != "" {
		link := PublicLink(a.cfg.PublicBaseURL, key)
		a.logger.Info("storage.put", "bucket", a.cfg.Bucket, "key", key, "bytes", len(data))
		return link, nil
	}
	u, err := a.client.PresignedGetObject(ctx, a.cfg.Bucket, key, a.cfg.PresignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	a.logger.Info("storage.put", "bucket", a.cfg.Bucket, "key", key, "bytes", len(data), "presigned", true)
	return u.String(), nil
}

// ObjectKey lays receipts out by month: receipts/2025/01/<submitter>_<id>.<ext>.
func ObjectKey(at time.Time, submitterID int64, id uuid.UUID, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("receipts/%s/%d_%s.%s", at.UTC().Format("2006/01"), submitterID, id, ext)
}

// PublicLink joins a public base URL and an object key.
func PublicLink(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
