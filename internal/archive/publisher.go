package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("archive-publisher")

// Publisher stores packaged archives and returns where they can be fetched.
type Publisher interface {
	Publish(ctx context.Context, name string, data []byte) (string, error)
}

// MinioPublisher uploads archives to a MinIO bucket.
type MinioPublisher struct {
	client   *minio.Client
	endpoint string
	bucket   string
	secure   bool
}

// NewMinioPublisher creates a publisher for bucket.
func NewMinioPublisher(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioPublisher, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinioPublisher{
		client:   client,
		endpoint: endpoint,
		bucket:   bucket,
		secure:   useSSL,
	}, nil
}

func (p *MinioPublisher) ensureBucket(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "minio_ensure_bucket")
	defer span.End()
	span.SetAttributes(attribute.String("minio.bucket", p.bucket))

	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{}); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Publish uploads the archive under name and returns its object URL.
func (p *MinioPublisher) Publish(ctx context.Context, name string, data []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "archive_publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("minio.bucket", p.bucket),
		attribute.String("minio.key", name),
		attribute.Int("minio.size", len(data)),
	)

	if err := p.ensureBucket(ctx); err != nil {
		return "", err
	}

	_, err := p.client.PutObject(ctx, p.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/zip",
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to upload to MinIO: %w", err)
	}

	protocol := "http"
	if p.secure {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", protocol, p.endpoint, p.bucket, name), nil
}
