package split

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/intellidoc/internal/model"
	"github.com/spherical-ai/intellidoc/internal/observability"
	"github.com/spherical-ai/intellidoc/internal/preprocess"
)

func pages(n int) []preprocess.PageImage {
	out := make([]preprocess.PageImage, n)
	for i := range out {
		out[i] = preprocess.PageImage{PageNumber: i + 1}
	}
	return out
}

type boundaryAgent struct {
	model.Agent
	// newDocBefore holds page numbers that start a new document.
	newDocBefore map[int]bool
}

func (a boundaryAgent) AnswerVisualQuestion(ctx context.Context, req model.VisualRequest) (*model.VisualAnswer, error) {
	second := req.Pages[1].PageNumber
	if a.newDocBefore[second] {
		return &model.VisualAnswer{Answer: "layout change", Passed: true, Confidence: 0.9}, nil
	}
	return &model.VisualAnswer{Answer: "same document", Passed: false, Confidence: 0.9}, nil
}

func TestWholeDocumentSplitter(t *testing.T) {
	result, err := WholeDocumentSplitter{}.DetectBoundaries(context.Background(), pages(4))
	require.NoError(t, err)
	require.Len(t, result.Boundaries, 1)
	assert.Equal(t, 1, result.Boundaries[0].StartPage)
	assert.Equal(t, 4, result.Boundaries[0].EndPage)
	assert.Equal(t, 1, result.TotalDocuments)
	assert.Equal(t, 4, result.TotalPages)
}

func TestPageBasedSplitter(t *testing.T) {
	result, err := PageBasedSplitter{}.DetectBoundaries(context.Background(), pages(3))
	require.NoError(t, err)
	require.Len(t, result.Boundaries, 3)
	for i, b := range result.Boundaries {
		assert.Equal(t, i+1, b.StartPage)
		assert.Equal(t, i+1, b.EndPage)
	}
}

func TestVisualSplitter_BoundaryMidFile(t *testing.T) {
	splitter := NewVisualSplitter(boundaryAgent{newDocBefore: map[int]bool{3: true}})

	result, err := splitter.DetectBoundaries(context.Background(), pages(4))
	require.NoError(t, err)
	require.Len(t, result.Boundaries, 2)

	assert.Equal(t, 1, result.Boundaries[0].StartPage)
	assert.Equal(t, 2, result.Boundaries[0].EndPage)
	assert.Equal(t, 3, result.Boundaries[1].StartPage)
	assert.Equal(t, 4, result.Boundaries[1].EndPage)
	assert.Equal(t, "Final document segment", result.Boundaries[1].Reasoning)
}

func TestVisualSplitter_SinglePage(t *testing.T) {
	splitter := NewVisualSplitter(boundaryAgent{})

	result, err := splitter.DetectBoundaries(context.Background(), pages(1))
	require.NoError(t, err)
	require.Len(t, result.Boundaries, 1)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestService_Split_DefaultStrategy(t *testing.T) {
	svc := NewService("whole_document", observability.NopLogger())
	svc.Register(WholeDocumentSplitter{})
	svc.Register(PageBasedSplitter{})

	result, err := svc.Split(context.Background(), "", pages(2))
	require.NoError(t, err)
	assert.Equal(t, "whole_document", result.StrategyUsed)

	result, err = svc.Split(context.Background(), "page_based", pages(2))
	require.NoError(t, err)
	assert.Equal(t, "page_based", result.StrategyUsed)
}

func TestService_Split_UnknownStrategy(t *testing.T) {
	svc := NewService("whole_document", observability.NopLogger())
	svc.Register(WholeDocumentSplitter{})

	_, err := svc.Split(context.Background(), "by_vibes", pages(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown splitting strategy")
}

func TestService_Split_NoPages(t *testing.T) {
	svc := NewService("whole_document", observability.NopLogger())
	svc.Register(WholeDocumentSplitter{})

	_, err := svc.Split(context.Background(), "", nil)
	require.Error(t, err)
}

func TestService_Strategies(t *testing.T) {
	svc := NewService("whole_document", observability.NopLogger())
	svc.Register(PageBasedSplitter{})
	svc.Register(WholeDocumentSplitter{})

	assert.Equal(t, []string{"page_based", "whole_document"}, svc.Strategies())
}
