// Package preprocess normalizes ingested files into per-page images
// with quality scores. The actual image work (rasterization, rotation,
// enhancement) is done by a PageProcessor collaborator; this package
// owns the contract and the quality-floor policy.
package preprocess

import (
	"context"
	"fmt"

	"github.com/spherical-ai/intellidoc/internal/ingest"
	"github.com/spherical-ai/intellidoc/internal/observability"
)

// PageImage is one normalized page of the ingested file.
type PageImage struct {
	PageNumber          int
	ImagePath           string
	Width               int
	Height              int
	DPI                 int
	RotationApplied     float64
	EnhancementsApplied []string
	QualityScore        float64

	// BelowQualityFloor marks pages whose quality score fell under the
	// configured floor. Flagged pages stay in the pipeline.
	BelowQualityFloor bool
}

// Result holds the preprocessing output for a whole file.
type Result struct {
	Pages      []PageImage
	TotalPages int
}

// PageProcessor converts an ingested file into normalized page images.
type PageProcessor interface {
	Process(ctx context.Context, file ingest.FileReference) ([]PageImage, error)
}

// Config holds preprocessing policy settings.
type Config struct {
	QualityFloor    float64
	MaxPagesPerFile int
}

// Service applies the quality-floor policy on top of a PageProcessor.
type Service struct {
	logger    *observability.Logger
	processor PageProcessor
	cfg       Config
}

// NewService creates a preprocessing service.
func NewService(logger *observability.Logger, processor PageProcessor, cfg Config) *Service {
	return &Service{logger: logger, processor: processor, cfg: cfg}
}

// Preprocess normalizes the file's pages. Pages below the quality floor
// are flagged, not dropped. A file that yields no pages is an error.
func (s *Service) Preprocess(ctx context.Context, file ingest.FileReference) (*Result, error) {
	pages, err := s.processor.Process(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("process pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no readable pages in %s", file.Filename)
	}
	if s.cfg.MaxPagesPerFile > 0 && len(pages) > s.cfg.MaxPagesPerFile {
		return nil, fmt.Errorf("file has %d pages, maximum allowed is %d", len(pages), s.cfg.MaxPagesPerFile)
	}

	flagged := 0
	for i := range pages {
		if pages[i].QualityScore < s.cfg.QualityFloor {
			pages[i].BelowQualityFloor = true
			flagged++
		}
	}

	if flagged > 0 {
		s.logger.Warn().
			Int("flagged_pages", flagged).
			Int("total_pages", len(pages)).
			Float64("quality_floor", s.cfg.QualityFloor).
			Msg("Pages below quality floor")
	}

	return &Result{Pages: pages, TotalPages: len(pages)}, nil
}
