package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultChunkSize = 5 * 1024 * 1024 // 5MB
	defaultEndpoint  = "https://storage.yandexcloud.net"
	defaultRegion    = "ru-central1"
)

// S3 хранит блобы в S3-совместимом бакете
type S3 struct {
	client *s3.Client
	bucket string
}

var _ Storage = (*S3)(nil)

// NewS3 создает клиента и проверяет доступ к бакету
func NewS3(conf S3Config) (*S3, error) {
	if conf.AccessKeyID == "" || conf.SecretAccessKey == "" || conf.Bucket == "" {
		return nil, fmt.Errorf("missing required configuration: accessKeyID, secretAccessKey, and bucket are required")
	}
	if conf.Endpoint == "" {
		conf.Endpoint = defaultEndpoint
	}
	if conf.Region == "" {
		conf.Region = defaultRegion
	}

	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		conf.AccessKeyID,
		conf.SecretAccessKey,
		"",
	))

	client := s3.New(s3.Options{
		BaseEndpoint:     aws.String(conf.Endpoint),
		Region:           conf.Region,
		Credentials:      creds,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
	})

	st := &S3{client: client, bucket: conf.Bucket}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := st.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(conf.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to access bucket %s: %w", conf.Bucket, err)
	}

	return st, nil
}

// Put читает содержимое в буфер: подписанный PutObject требует
// перематываемое тело известной длины
func (h *S3) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	buf := bytes.NewBuffer(make([]byte, 0, defaultChunkSize))
	if _, err := io.Copy(buf, r); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if contentType == "" {
		contentType = defaultContentType
	}

	_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(h.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload file to S3: %w", err)
	}
	return nil
}

func (h *S3) Get(ctx context.Context, key string) (Object, error) {
	result, err := h.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}

	return &object{
		ReadCloser:    result.Body,
		contentLength: aws.ToInt64(result.ContentLength),
		contentType:   aws.ToString(result.ContentType),
	}, nil
}

func (h *S3) Stat(ctx context.Context, key string) (int64, error) {
	head, err := h.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return 0, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return 0, fmt.Errorf("failed to check object existence: %w", err)
	}
	return aws.ToInt64(head.ContentLength), nil
}

// Delete сначала проверяет наличие объекта: S3 не сообщает об удалении
// отсутствующего ключа
func (h *S3) Delete(ctx context.Context, key string) error {
	if _, err := h.Stat(ctx, key); err != nil {
		return err
	}

	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}
