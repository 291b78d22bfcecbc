package preprocess

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/intellidoc/internal/ingest"
	"github.com/spherical-ai/intellidoc/internal/observability"
)

type stubProcessor struct {
	pages []PageImage
	err   error
}

func (p stubProcessor) Process(ctx context.Context, file ingest.FileReference) ([]PageImage, error) {
	return p.pages, p.err
}

func TestService_Preprocess_FlagsLowQualityPages(t *testing.T) {
	svc := NewService(observability.NopLogger(), stubProcessor{pages: []PageImage{
		{PageNumber: 1, QualityScore: 0.9},
		{PageNumber: 2, QualityScore: 0.3},
		{PageNumber: 3, QualityScore: 0.5},
	}}, Config{QualityFloor: 0.5, MaxPagesPerFile: 10})

	result, err := svc.Preprocess(context.Background(), ingest.FileReference{Filename: "scan.pdf"})
	require.NoError(t, err)
	require.Equal(t, 3, result.TotalPages)

	assert.False(t, result.Pages[0].BelowQualityFloor)
	assert.True(t, result.Pages[1].BelowQualityFloor)
	assert.False(t, result.Pages[2].BelowQualityFloor, "pages at the floor are not flagged")
}

func TestService_Preprocess_NoPages(t *testing.T) {
	svc := NewService(observability.NopLogger(), stubProcessor{}, Config{})

	_, err := svc.Preprocess(context.Background(), ingest.FileReference{Filename: "empty.pdf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no readable pages")
}

func TestService_Preprocess_TooManyPages(t *testing.T) {
	svc := NewService(observability.NopLogger(), stubProcessor{pages: []PageImage{
		{PageNumber: 1}, {PageNumber: 2}, {PageNumber: 3},
	}}, Config{MaxPagesPerFile: 2})

	_, err := svc.Preprocess(context.Background(), ingest.FileReference{Filename: "big.pdf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum allowed is 2")
}

func TestService_Preprocess_ProcessorError(t *testing.T) {
	svc := NewService(observability.NopLogger(), stubProcessor{err: errors.New("corrupt file")}, Config{})

	_, err := svc.Preprocess(context.Background(), ingest.FileReference{Filename: "bad.pdf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt file")
}
