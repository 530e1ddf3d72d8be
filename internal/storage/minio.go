package storage

import (
	"context"
	"fmt"
	"io"
	"mime"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Additional-Code/stitchbook/internal/config"
)

// Minio keeps artifacts as objects in a single bucket.
type Minio struct {
	client *minio.Client
	bucket string
	namer  *Namer
}

// NewMinio builds the client; no request is sent until first use.
func NewMinio(cfg config.Minio, namer *Namer) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Minio{client: client, bucket: cfg.Bucket, namer: namer}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (m *Minio) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func (m *Minio) Save(ctx context.Context, key string, payload io.Reader, size int64, ext string) (string, error) {
	name := m.namer.Name(key, ext)
	contentType := mime.TypeByExtension(sanitizeExt(ext))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := m.client.PutObject(ctx, m.bucket, name, payload, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", writeErr("put object", err)
	}
	return name, nil
}

func (m *Minio) Delete(ctx context.Context, ref string) error {
	if !validRef(ref) {
		return fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	if err := m.client.RemoveObject(ctx, m.bucket, ref, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}
