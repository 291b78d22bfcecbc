// Package ingest fetches submitted files from their sources and
// normalizes them into FileReference values. Adapters are registered
// per source type; the Service dispatches by the request's source type
// and enforces MIME-type and size limits.
package ingest

import (
	"context"
	"fmt"
)

// FileReference is a normalized reference to an ingested file.
type FileReference struct {
	SourceType      string
	SourceReference string
	Filename        string
	MIMEType        string
	FileSizeBytes   int64
	ContentPath     string
	Metadata        map[string]string
}

// SourceAdapter reads files from one kind of source.
type SourceAdapter interface {
	// SourceType returns the identifier this adapter registers under.
	SourceType() string

	// Fetch retrieves the file behind the reference.
	Fetch(ctx context.Context, reference string) (*FileReference, error)

	// Exists reports whether the reference is reachable.
	Exists(ctx context.Context, reference string) (bool, error)
}

// SourceError reports an unreachable or invalid source reference.
type SourceError struct {
	SourceType string
	Reference  string
	Reason     string
	Err        error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s (%s): %s", e.SourceType, e.Reference, e.Reason)
}

func (e *SourceError) Unwrap() error { return e.Err }

// UnsupportedTypeError reports a file whose MIME type is not accepted.
type UnsupportedTypeError struct {
	MIMEType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.MIMEType)
}

// FileTooLargeError reports a file exceeding the configured size limit.
type FileTooLargeError struct {
	SizeBytes int64
	MaxBytes  int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file size %d bytes exceeds limit of %d bytes", e.SizeBytes, e.MaxBytes)
}
