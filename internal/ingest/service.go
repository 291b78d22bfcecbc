package ingest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/spherical-ai/intellidoc/internal/observability"
)

// Service routes ingestion requests to the registered source adapter
// and validates the fetched file against pipeline limits.
type Service struct {
	mu       sync.RWMutex
	adapters map[string]SourceAdapter

	supportedMIMETypes map[string]struct{}
	maxFileSizeBytes   int64
	logger             *observability.Logger
}

// Config carries the ingestion limits enforced after fetch.
type Config struct {
	SupportedMIMETypes []string
	MaxFileSizeBytes   int64
}

// NewService creates an ingestion service with no adapters registered.
func NewService(cfg Config, logger *observability.Logger) *Service {
	supported := make(map[string]struct{}, len(cfg.SupportedMIMETypes))
	for _, mt := range cfg.SupportedMIMETypes {
		supported[mt] = struct{}{}
	}
	return &Service{
		adapters:           make(map[string]SourceAdapter),
		supportedMIMETypes: supported,
		maxFileSizeBytes:   cfg.MaxFileSizeBytes,
		logger:             logger,
	}
}

// Register adds an adapter, replacing any previous adapter for the
// same source type.
func (s *Service) Register(adapter SourceAdapter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adapters[adapter.SourceType()] = adapter
}

// SourceTypes returns the registered source types, sorted.
func (s *Service) SourceTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make([]string, 0, len(s.adapters))
	for t := range s.adapters {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Fetch resolves the source type to an adapter, fetches the file, and
// validates its MIME type and size.
func (s *Service) Fetch(ctx context.Context, sourceType, reference string) (*FileReference, error) {
	s.mu.RLock()
	adapter, ok := s.adapters[sourceType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no adapter registered for source type %q", sourceType)
	}

	file, err := adapter.Fetch(ctx, reference)
	if err != nil {
		return nil, err
	}

	if err := s.validate(file); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("source_type", sourceType).
		Str("filename", file.Filename).
		Str("mime_type", file.MIMEType).
		Int64("file_size_bytes", file.FileSizeBytes).
		Msg("File ingested")

	return file, nil
}

func (s *Service) validate(file *FileReference) error {
	if len(s.supportedMIMETypes) > 0 {
		if _, ok := s.supportedMIMETypes[file.MIMEType]; !ok {
			return &UnsupportedTypeError{MIMEType: file.MIMEType}
		}
	}
	if s.maxFileSizeBytes > 0 && file.FileSizeBytes > s.maxFileSizeBytes {
		return &FileTooLargeError{SizeBytes: file.FileSizeBytes, MaxBytes: s.maxFileSizeBytes}
	}
	return nil
}
