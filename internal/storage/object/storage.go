package object

import (
	"context"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/retry"
)

// Storage mirrors converted images into an S3-compatible bucket using MinIO.
// Objects are stored under an optional key prefix.
type Storage struct {
	client     *minio.Client
	bucketName string
	prefix     string
	strategy   retry.Strategy
}

// Options holds connection parameters for the mirror bucket.
type Options struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	BucketName string
	UseSSL     bool
	Prefix     string
}

// NewStorage creates a new Storage connected to the specified MinIO server.
// If the bucket does not exist, it will be created automatically.
func NewStorage(ctx context.Context, opts Options, s retry.Strategy) (*Storage, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, opts.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:     client,
		bucketName: opts.BucketName,
		prefix:     strings.Trim(opts.Prefix, "/"),
		strategy:   s,
	}, nil
}

// ObjectName maps a slash- or OS-separated relative path onto an object key
// under prefix.
func ObjectName(prefix, rel string) string {
	key := strings.TrimLeft(filepath.ToSlash(rel), "/")
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

// Upload copies the local file at localPath to the bucket under rel and
// returns the object name. Transient failures are retried.
func (s *Storage) Upload(ctx context.Context, localPath, rel string) (string, error) {
	objectName := ObjectName(s.prefix, rel)

	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	err := retry.Do(func() error {
		_, putErr := s.client.FPutObject(ctx, s.bucketName, objectName, localPath, minio.PutObjectOptions{
			ContentType: contentType,
		})
		return putErr
	}, s.strategy)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", localPath, err)
	}

	return objectName, nil
}
