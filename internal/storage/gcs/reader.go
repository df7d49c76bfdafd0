// Package gcs reads configuration artifacts from Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// maxObjectBytes bounds how much of an object is read into memory.
const maxObjectBytes = 1 << 20

// Reader fetches whole objects from GCS.
type Reader struct {
	client *storage.Client
}

// New creates a GCS-backed reader.
func New(client *storage.Client) (*Reader, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	return &Reader{client: client}, nil
}

// ReadObject returns the contents of gs://bucket/object.
func (r *Reader) ReadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if strings.TrimSpace(object) == "" {
		return nil, fmt.Errorf("object is required")
	}
	rc, err := r.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", bucket, object, err)
	}
	defer rc.Close() //nolint:errcheck // read-only handle

	data, err := io.ReadAll(io.LimitReader(rc, maxObjectBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", bucket, object, err)
	}
	if len(data) > maxObjectBytes {
		return nil, fmt.Errorf("gs://%s/%s exceeds %d bytes", bucket, object, maxObjectBytes)
	}
	return data, nil
}

// Close releases the underlying client.
func (r *Reader) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("close storage client: %w", err)
	}
	return nil
}
