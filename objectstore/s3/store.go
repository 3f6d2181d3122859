// Package s3 implements objectstore.Store over an S3 bucket.
package s3

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lexrag/lexrag/objectstore"
)

// Store lists and downloads documents from one S3 bucket.
type Store struct {
	client *awss3.Client
	bucket string
	logger *slog.Logger
}

// New creates an S3-backed document store.
func New(client *awss3.Client, bucket string) (objectstore.Store, error) {
	if bucket == "" {
		return nil, objectstore.ErrBucketRequired
	}
	return &Store{
		client: client,
		bucket: bucket,
		logger: slog.Default().With("component", "s3-objectstore", "bucket", bucket),
	}, nil
}

// List returns every object key in the bucket, following pagination.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var keys []string

	paginator := awss3.NewListObjectsV2Paginator(s.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects in %s: %w", s.bucket, err)
		}
		for _, object := range page.Contents {
			keys = append(keys, aws.ToString(object.Key))
		}
	}

	s.logger.Debug("listed bucket", "objects", len(keys))
	return keys, nil
}

// Download streams the object body to the local destination path.
func (s *Store) Download(ctx context.Context, key, dest string) error {
	output, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("get object %s: %w", key, err)
	}
	defer output.Body.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, output.Body); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return out.Sync()
}

// OriginURI returns the canonical s3:// URI of an object.
func (s *Store) OriginURI(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, key)
}
