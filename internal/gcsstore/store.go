package gcsstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const uploadTimeout = 2 * time.Minute

// StorageService abstracts the object store so archive logic can be tested
// without Cloud Storage.
type StorageService interface {
	// Upload writes data to bucket/object.
	Upload(ctx context.Context, bucket, object string, data []byte, contentType string) error

	// UploadFile copies a local file to bucket/object.
	UploadFile(ctx context.Context, bucket, object, filePath string) error

	// Fetch downloads the object named by a gs:// URI.
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Store is the Cloud Storage implementation of StorageService.
// It assumes Application Default Credentials are configured.
type Store struct {
	client *storage.Client
}

// NewStore creates a Store with its own storage client.
func NewStore(ctx context.Context) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Store{client: client}, nil
}

// Close releases the storage client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Upload writes data to bucket/object.
func (s *Store) Upload(ctx context.Context, bucket, object string, data []byte, contentType string) error {
	return s.write(ctx, bucket, object, bytes.NewReader(data), contentType)
}

// UploadFile copies a local file to bucket/object.
func (s *Store) UploadFile(ctx context.Context, bucket, object, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	return s.write(ctx, bucket, object, f, "")
}

func (s *Store) write(ctx context.Context, bucket, object string, r io.Reader, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy to GCS writer %s/%s: %w", bucket, object, err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload %s/%s: %w", bucket, object, err)
	}
	return nil
}

// Fetch downloads the object named by a gs:// URI.
func (s *Store) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("fetch: reading bytes: %w", err)
	}
	return data, nil
}

// ParseURI splits gs://bucket/path/to/object into bucket and object path.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// URI builds gs://bucket/object.
func URI(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}

// ExtractFilename returns the last path element of a GCS URI,
// e.g. "gs://bucket/folder/file.xlsx" → "file.xlsx".
func ExtractFilename(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}
