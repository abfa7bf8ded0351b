package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const minioNoSuchKey = "NoSuchKey"

// Minio хранит блобы в бакете MinIO
type Minio struct {
	client *minio.Client
	bucket string
}

var _ Storage = (*Minio)(nil)

// NewMinio подключается к MinIO и создает бакет, если его еще нет
func NewMinio(cfg MinioConfig) (*Minio, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &Minio{client: client, bucket: cfg.Bucket}, nil
}

func (m *Minio) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	// размер -1: клиент сам режет поток на части
	_, err := m.client.PutObject(ctx, m.bucket, key, r, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file to minio: %w", err)
	}
	return nil
}

func (m *Minio) Get(ctx context.Context, key string) (Object, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.wrapErr(err, key, "failed to get object from minio")
	}

	// GetObject ленивый: отсутствие ключа видно только после Stat
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, m.wrapErr(err, key, "failed to get object from minio")
	}

	return &object{
		ReadCloser:    obj,
		contentLength: info.Size,
		contentType:   info.ContentType,
	}, nil
}

func (m *Minio) Stat(ctx context.Context, key string) (int64, error) {
	info, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, m.wrapErr(err, key, "failed to stat object in minio")
	}
	return info.Size, nil
}

// Delete проверяет наличие объекта: RemoveObject молча игнорирует
// отсутствующие ключи
func (m *Minio) Delete(ctx context.Context, key string) error {
	if _, err := m.Stat(ctx, key); err != nil {
		return err
	}
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return m.wrapErr(err, key, "failed to delete object from minio")
	}
	return nil
}

func (m *Minio) wrapErr(err error, key, msg string) error {
	if minio.ToErrorResponse(err).Code == minioNoSuchKey {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
