// Package mirror materializes model files from an S3-compatible bucket that
// mirrors the LFS content of a repository.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Exit codes reported by Store, mirroring a subprocess.
const (
	CodeOK       = 0
	CodeMissing  = 1
	CodeNotStart = -1
)

// Config describes the bucket.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// Store downloads mirrored objects onto their working tree paths.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
	dir    string
	logger *slog.Logger
}

// New validates cfg and returns a store writing files relative to dir.
func New(cfg Config, dir string, logger *slog.Logger) (*Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, errors.New("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
		dir:    dir,
		logger: logger,
	}, nil
}

// Install checks that the bucket exists. A missing bucket reports CodeMissing.
func (s *Store) Install(ctx context.Context) (int, error) {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		s.logger.Warn("s3 bucket check failed", "bucket", s.bucket, "error", err)
		return CodeNotStart, fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		s.logger.Warn("s3 bucket does not exist", "bucket", s.bucket)
		return CodeMissing, nil
	}
	return CodeOK, nil
}

// Pull downloads the object mirroring p onto p. A missing object reports
// CodeMissing and leaves the file untouched.
func (s *Store) Pull(ctx context.Context, p string) (int, error) {
	key := objectKey(s.prefix, p)
	dest := p
	if !filepath.IsAbs(dest) && s.dir != "" {
		dest = filepath.Join(s.dir, dest)
	}
	err := s.client.FGetObject(ctx, s.bucket, key, dest, minio.GetObjectOptions{})
	if err == nil {
		s.logger.Debug("s3 object downloaded", "key", key, "path", dest)
		return CodeOK, nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
		s.logger.Debug("s3 object missing", "key", key, "code", resp.Code)
		return CodeMissing, nil
	}
	s.logger.Warn("s3 download failed", "key", key, "error", err)
	return CodeNotStart, fmt.Errorf("download %s: %w", key, err)
}

// objectKey maps a working tree path to its object key under prefix.
func objectKey(prefix, p string) string {
	clean := path.Clean(filepath.ToSlash(strings.TrimSpace(p)))
	clean = strings.TrimLeft(strings.TrimPrefix(clean, "./"), "/")
	if prefix == "" {
		return clean
	}
	return prefix + "/" + clean
}
