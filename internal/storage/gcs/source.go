// Package gcs reads import sources from Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
)

const scheme = "gs://"

// IsURI reports whether s names a GCS object.
func IsURI(s string) bool {
	return strings.HasPrefix(s, scheme)
}

// ParseURI splits gs://bucket/object into its parts.
func ParseURI(uri string) (bucket, object string, err error) {
	if !IsURI(uri) {
		return "", "", fmt.Errorf("not a gs:// uri: %q", uri)
	}
	bucket, object, _ = strings.Cut(strings.TrimPrefix(uri, scheme), "/")
	if bucket == "" || strings.TrimSpace(object) == "" {
		return "", "", fmt.Errorf("gs uri %q needs a bucket and an object", uri)
	}
	return bucket, object, nil
}

// Spool persists a stream to local disk.
type Spool interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

type objectReader interface {
	NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

type clientReader struct {
	client *storage.Client
}

func (c clientReader) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	return c.client.Bucket(bucket).Object(object).NewReader(ctx)
}

// Source copies GCS objects into a local spool so the importer can read them
// like any upload.
type Source struct {
	objects objectReader
	spool   Spool
}

// New creates a GCS-backed source.
func New(client *storage.Client, spool Spool) (*Source, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	return newSource(clientReader{client: client}, spool)
}

func newSource(objects objectReader, spool Spool) (*Source, error) {
	if spool == nil {
		return nil, fmt.Errorf("spool is required")
	}
	return &Source{objects: objects, spool: spool}, nil
}

// Fetch downloads uri into the spool and returns the spooled path and the
// object's base name.
func (s *Source) Fetch(ctx context.Context, uri string) (spooled, name string, err error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return "", "", err
	}
	r, err := s.objects.NewReader(ctx, bucket, object)
	if err != nil {
		return "", "", fmt.Errorf("open %s: %w", uri, err)
	}
	name = path.Base(object)
	spooled, err = s.spool.Save(ctx, name, r)
	if closeErr := r.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close reader: %w", closeErr)
	}
	if err != nil {
		return "", "", fmt.Errorf("copy %s: %w", uri, err)
	}
	return spooled, name, nil
}
