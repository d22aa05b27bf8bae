package gcsstore

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// XLSXContentType is the MIME type of provider exports and output workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Archive stores the artifacts of a run under <prefix>/<runID>/ in one bucket.
type Archive struct {
	storage StorageService
	bucket  string
	prefix  string
}

// NewArchive creates an Archive. prefix may be empty.
func NewArchive(svc StorageService, bucket, prefix string) *Archive {
	return &Archive{storage: svc, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Object returns the object path of name within a run.
func (a *Archive) Object(runID, name string) string {
	return path.Join(a.prefix, runID, name)
}

// SaveExport archives the raw bytes of one provider export, named like
// EXPENSE-PENDING, and returns its URI.
func (a *Archive) SaveExport(ctx context.Context, runID, name string, data []byte) (string, error) {
	return a.save(ctx, runID, name+".xlsx", data, XLSXContentType)
}

// SaveOutput archives a run output file and returns its URI.
func (a *Archive) SaveOutput(ctx context.Context, runID, filename string, data []byte) (string, error) {
	contentType := XLSXContentType
	if strings.HasSuffix(filename, ".csv") {
		contentType = "text/csv"
	}
	return a.save(ctx, runID, filename, data, contentType)
}

// Fetch downloads an archived artifact by its gs:// URI.
func (a *Archive) Fetch(ctx context.Context, uri string) ([]byte, error) {
	return a.storage.Fetch(ctx, uri)
}

func (a *Archive) save(ctx context.Context, runID, filename string, data []byte, contentType string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("archive: empty run id")
	}
	object := a.Object(runID, filename)
	if err := a.storage.Upload(ctx, a.bucket, object, data, contentType); err != nil {
		return "", fmt.Errorf("archive: upload %s: %w", object, err)
	}
	return URI(a.bucket, object), nil
}
