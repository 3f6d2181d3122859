// Package objectstore abstracts the raw-document store the ingestion
// pipeline reads from. The production implementation is S3 (objectstore/s3);
// DirStore serves local corpora and tests.
package objectstore

import (
	"context"
	"errors"
)

// ErrBucketRequired is returned when an S3 store is built without a bucket.
var ErrBucketRequired = errors.New("bucket name required")

// Store lists and downloads raw documents.
type Store interface {
	// List returns the identifiers (object keys) of every document.
	List(ctx context.Context) ([]string, error)

	// Download copies the object to the local destination path.
	Download(ctx context.Context, key, dest string) error

	// OriginURI returns the canonical URI of an object, stamped into chunk
	// metadata at ingestion time (e.g. "s3://bucket/key").
	OriginURI(key string) string
}
