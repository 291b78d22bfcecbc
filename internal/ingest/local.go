package ingest

import (
	"context"
	"mime"
	"os"
	"path/filepath"
)

// LocalAdapter reads files from the local filesystem.
type LocalAdapter struct{}

// NewLocalAdapter creates a local filesystem adapter.
func NewLocalAdapter() *LocalAdapter {
	return &LocalAdapter{}
}

// SourceType returns "local".
func (a *LocalAdapter) SourceType() string { return "local" }

// Fetch stats the file and builds a FileReference pointing at it.
func (a *LocalAdapter) Fetch(ctx context.Context, reference string) (*FileReference, error) {
	info, err := os.Stat(reference)
	if err != nil {
		return nil, &SourceError{SourceType: "local", Reference: reference, Reason: "file not found", Err: err}
	}
	if info.IsDir() {
		return nil, &SourceError{SourceType: "local", Reference: reference, Reason: "not a file"}
	}

	mimeType := mime.TypeByExtension(filepath.Ext(reference))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return &FileReference{
		SourceType:      "local",
		SourceReference: reference,
		Filename:        filepath.Base(reference),
		MIMEType:        mimeType,
		FileSizeBytes:   info.Size(),
		ContentPath:     reference,
	}, nil
}

// Exists reports whether the path is a regular file.
func (a *LocalAdapter) Exists(ctx context.Context, reference string) (bool, error) {
	info, err := os.Stat(reference)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}
