package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// RemoteConfig holds the connection settings for a remote artifact
// bucket.
type RemoteConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// RemoteStore resolves artifacts from an S3-compatible bucket, caching
// every download in a local store so subsequent runs stay off the
// network.
//
// Object layout: artifacts/<cache-key>. The remote is strictly a
// fallback; the local index is always consulted first.
type RemoteStore struct {
	client *minio.Client
	bucket string
	local  *LocalStore
}

// NewRemoteStore creates a RemoteStore backed by cfg, with local as the
// download cache.
func NewRemoteStore(cfg RemoteConfig, local *LocalStore) (*RemoteStore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("remote store endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("remote store access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("remote store bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	if local == nil {
		return nil, fmt.Errorf("remote store requires a local cache store")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init remote store client: %w", err)
	}

	return &RemoteStore{client: client, bucket: bucket, local: local}, nil
}

// objectKey returns the bucket object key for a cache key.
func objectKey(cacheKey string) string {
	return "artifacts/" + cacheKey
}

// ResolveArtifactPath resolves locally first, then falls back to the
// bucket. A bucket hit is written through to the local store and the
// local path returned.
//
// Resolution without a cache key never reaches the bucket: the remote
// is addressed by content only, so a keyless lookup is answered (or
// refused) by the local index alone.
func (s *RemoteStore) ResolveArtifactPath(ctx context.Context, target, cacheKey string) (string, error) {
	path, err := s.local.ResolveArtifactPath(ctx, target, cacheKey)
	if err == nil {
		return path, nil
	}
	if !errors.Is(err, ErrArtifactNotFound) || cacheKey == "" {
		return "", err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(cacheKey), minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("fetch remote artifact: %w", err)
	}
	defer obj.Close()

	content, err := io.ReadAll(obj)
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return "", fmt.Errorf("target %s (key %s) not in remote bucket: %w", target, cacheKey, ErrArtifactNotFound)
		}
		return "", fmt.Errorf("read remote artifact: %w", err)
	}

	return s.local.Put(ctx, target, cacheKey, content)
}

// Put uploads an artifact to the bucket and records it locally. Used by
// the external build step to publish artifacts for other machines.
func (s *RemoteStore) Put(ctx context.Context, target, cacheKey string, content []byte) (string, error) {
	if cacheKey == "" {
		return "", fmt.Errorf("cache key must not be empty")
	}
	_, err := s.client.PutObject(ctx, s.bucket, objectKey(cacheKey),
		bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return "", fmt.Errorf("upload artifact: %w", err)
	}
	return s.local.Put(ctx, target, cacheKey, content)
}
