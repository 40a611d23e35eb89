// Package artifact manages the file artifacts batch runs produce and
// consume: statements and export files are written to a local run
// directory and optionally mirrored to a GCS bucket; imports read local
// paths or gs:// URIs.
package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// Store resolves artifact names under a base directory. An empty bucket
// disables the GCS mirror.
type Store struct {
	dir    string
	bucket string
}

// NewStore creates a store rooted at dir.
func NewStore(dir, bucket string) *Store {
	return &Store{dir: dir, bucket: bucket}
}

// Create opens a new artifact file for writing, creating the base
// directory if needed. The returned path is what executors record on the
// batch result.
func (s *Store) Create(name string) (*os.File, string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("artifact: create dir %q: %w", s.dir, err)
	}
	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("artifact: create %q: %w", path, err)
	}
	return f, path, nil
}

// Publish uploads a finished artifact to the configured bucket under its
// base name. It is a no-op when no bucket is configured.
func (s *Store) Publish(ctx context.Context, path string) error {
	if s.bucket == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("artifact: open %q: %w", path, err)
	}
	defer f.Close()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("artifact: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	objectName := fmt.Sprintf("batch/%s/%s", time.Now().UTC().Format("2006/01/02"), filepath.Base(path))
	w := client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("artifact: copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("artifact: finalize upload: %w", err)
	}
	return nil
}

// Open returns a reader for an import source: a plain filesystem path or a
// gs://bucket/object URI.
func (s *Store) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if !strings.HasPrefix(path, "gs://") {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("artifact: open %q: %w", path, err)
		}
		return f, nil
	}

	trimmed := strings.TrimPrefix(path, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("artifact: invalid GCS URI (no object path): %s", path)
	}
	bucketName, objectPath := parts[0], parts[1]

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("artifact: create storage client: %w", err)
	}
	rc, err := client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("artifact: read object %s/%s: %w", bucketName, objectPath, err)
	}
	return &gcsReader{ReadCloser: rc, client: client}, nil
}

// gcsReader ties the storage client's lifetime to the object reader's.
type gcsReader struct {
	io.ReadCloser
	client *storage.Client
}

func (r *gcsReader) Close() error {
	err := r.ReadCloser.Close()
	if cerr := r.client.Close(); err == nil {
		err = cerr
	}
	return err
}
