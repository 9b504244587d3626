package kyc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
)

// MinioStore writes documents into a private bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewMinioStore ensures bucket exists and returns a store bound to it.
func NewMinioStore(ctx context.Context, client *minio.Client, bucket string, logger *slog.Logger) (*MinioStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		logger.Info("created kyc bucket", "bucket", bucket)
	}
	return &MinioStore{client: client, bucket: bucket, logger: logger}, nil
}

// Put uploads the document and returns "<bucket>/<object>".
func (s *MinioStore) Put(ctx context.Context, recordID, docType string, upload Upload) (string, error) {
	if err := validate(upload); err != nil {
		return "", err
	}
	name, err := ObjectName(recordID, docType, upload.ContentType, time.Now())
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	info, err := s.client.PutObject(ctx, s.bucket, name, upload.Reader, upload.Size, minio.PutObjectOptions{
		ContentType: upload.ContentType,
		UserMetadata: map[string]string{
			"record-id": recordID,
			"doc-type":  docType,
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload kyc document: %w", err)
	}
	s.logger.Info("kyc document stored", "record_id", recordID, "doc_type", docType, "size", info.Size)
	return s.bucket + "/" + name, nil
}
