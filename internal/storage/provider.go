// Package storage archives finished output files to a blob store. The
// backends live in subpackages: gcs for Cloud Storage and local for a
// directory on disk.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// BlobStore uploads one object and returns its URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Content types for the archived output formats.
const (
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ObjectName builds the archive key <prefix>/<runID>/<file name>.
func ObjectName(prefix, runID, file string) string {
	parts := make([]string, 0, 3)
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	if runID != "" {
		parts = append(parts, runID)
	}
	return path.Join(append(parts, filepath.Base(file))...)
}

// ContentType guesses the content type of an output file from its extension.
func ContentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".csv":
		return ContentTypeCSV
	case ".xlsx":
		return ContentTypeXLSX
	default:
		return "application/octet-stream"
	}
}

// Archive uploads the local file at src under prefix/runID.
func Archive(ctx context.Context, store BlobStore, prefix, runID, src string) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open archive source: %w", err)
	}
	defer f.Close()
	uri, err := store.PutObject(ctx, ObjectName(prefix, runID, src), ContentType(src), f)
	if err != nil {
		return "", fmt.Errorf("archive %s: %w", filepath.Base(src), err)
	}
	return uri, nil
}
