package preprocess

import (
	"context"
	"fmt"
	"image"
	"os"

	_ "image/jpeg"
	_ "image/png"

	"github.com/spherical-ai/intellidoc/internal/ingest"
)

// ImageProcessor handles single-image source files (PNG, JPEG, TIFF
// first frame via registered decoders). Multi-page formats such as PDF
// need a rasterizing PageProcessor plugged in instead.
type ImageProcessor struct {
	targetDPI int
}

// NewImageProcessor creates an image-file page processor.
func NewImageProcessor(targetDPI int) *ImageProcessor {
	if targetDPI <= 0 {
		targetDPI = 200
	}
	return &ImageProcessor{targetDPI: targetDPI}
}

// Process decodes the file and returns it as a single page.
func (p *ImageProcessor) Process(ctx context.Context, file ingest.FileReference) ([]PageImage, error) {
	f, err := os.Open(file.ContentPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.ContentPath, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", file.Filename, err)
	}

	return []PageImage{{
		PageNumber:   1,
		ImagePath:    file.ContentPath,
		Width:        cfg.Width,
		Height:       cfg.Height,
		DPI:          p.targetDPI,
		QualityScore: resolutionScore(cfg.Width, cfg.Height, p.targetDPI),
	}}, nil
}

// resolutionScore rates page quality by pixel density against a letter
// page at the target DPI. Resolution is the only signal available
// without decoding pixels.
func resolutionScore(width, height, dpi int) float64 {
	target := float64(dpi) * 8.5 * float64(dpi) * 11.0
	if target <= 0 {
		return 1.0
	}
	score := float64(width) * float64(height) / target
	if score > 1.0 {
		return 1.0
	}
	if score < 0.1 {
		return 0.1
	}
	return score
}
