package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/muneemjee/ledger/pkg/objectstore"
)

// Store implements objectstore.ObjectStore on an S3 bucket.
type Store struct {
	client  *awss3.Client
	presign *awss3.PresignClient
	bucket  string
}

// New creates an S3-backed object store from an already-loaded AWS
// configuration.
func New(awsCfg aws.Config, bucket, endpoint string) (*Store, error) {
	if bucket == "" {
		return nil, errors.New("s3: bucket must be configured")
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			// Path-style addressing for MinIO and other local endpoints.
			o.UsePathStyle = true
		}
	})

	return &Store{
		client:  client,
		presign: awss3.NewPresignClient(client),
		bucket:  bucket,
	}, nil
}

// Put stores the body under key with the given content type and metadata.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) error {
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		Metadata:    metadata,
	})
	if err != nil {
		return fmt.Errorf("PutObject operation failed: %w", err)
	}
	return nil
}

// SignedURL returns a presigned GET URL for key valid for ttl.
func (s *Store) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = objectstore.DefaultURLTTL
	}

	req, err := s.presign.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, awss3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign object URL: %w", err)
	}
	return req.URL, nil
}

// Delete removes the object under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("DeleteObject operation failed: %w", err)
	}
	return nil
}
