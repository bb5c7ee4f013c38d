package storage

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrUnavailable marks failures of the storage collaborator. Handlers map it
// to a gateway error so the caller can keep their draft instead of treating
// the send as invalid.
var ErrUnavailable = errors.New("object storage unavailable")

// ObjectStore hands out pre-authorized upload targets and resolves handles
// to retrievable URLs. Message rows only ever hold the handle.
type ObjectStore interface {
	PresignUpload(ctx context.Context, handle string) (string, error)
	PresignDownload(ctx context.Context, handle string) (string, error)
}

// MinioStore is an S3-compatible ObjectStore backed by presigned URLs.
type MinioStore struct {
	client      *minio.Client
	bucket      string
	uploadTTL   time.Duration
	downloadTTL time.Duration
}

// NewMinioStore connects to an S3-compatible endpoint.
func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStore{
		client:      client,
		bucket:      bucket,
		uploadTTL:   15 * time.Minute,
		downloadTTL: time.Hour,
	}, nil
}

// PresignUpload returns a URL the client may PUT the object bytes to.
func (s *MinioStore) PresignUpload(ctx context.Context, handle string) (string, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, handle, s.uploadTTL)
	if err != nil {
		return "", errors.Join(ErrUnavailable, err)
	}
	return u.String(), nil
}

// PresignDownload returns a time-limited GET URL for the handle.
func (s *MinioStore) PresignDownload(ctx context.Context, handle string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, handle, s.downloadTTL, url.Values{})
	if err != nil {
		return "", errors.Join(ErrUnavailable, err)
	}
	return u.String(), nil
}

// Disabled is the ObjectStore used when no storage backend is configured.
// Every call fails with ErrUnavailable.
type Disabled struct{}

func (Disabled) PresignUpload(ctx context.Context, handle string) (string, error) {
	return "", ErrUnavailable
}

func (Disabled) PresignDownload(ctx context.Context, handle string) (string, error) {
	return "", ErrUnavailable
}
