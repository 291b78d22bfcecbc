package split

import (
	"context"
	"fmt"

	"github.com/spherical-ai/intellidoc/internal/model"
	"github.com/spherical-ai/intellidoc/internal/preprocess"
)

// WholeDocumentSplitter treats the entire file as a single document.
type WholeDocumentSplitter struct{}

func (WholeDocumentSplitter) Name() string { return "whole_document" }

func (WholeDocumentSplitter) DetectBoundaries(ctx context.Context, pages []preprocess.PageImage) (*Result, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to split")
	}
	return &Result{
		Boundaries: []DocumentBoundary{{
			StartPage:  pages[0].PageNumber,
			EndPage:    pages[len(pages)-1].PageNumber,
			Confidence: 1.0,
			Reasoning:  "Entire file treated as one document",
		}},
		TotalDocuments: 1,
		TotalPages:     len(pages),
		StrategyUsed:   "whole_document",
		Confidence:     1.0,
	}, nil
}

// PageBasedSplitter treats every page as a separate document. Suitable
// for single-page documents such as receipts or ID cards.
type PageBasedSplitter struct{}

func (PageBasedSplitter) Name() string { return "page_based" }

func (PageBasedSplitter) DetectBoundaries(ctx context.Context, pages []preprocess.PageImage) (*Result, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to split")
	}
	boundaries := make([]DocumentBoundary, 0, len(pages))
	for _, p := range pages {
		boundaries = append(boundaries, DocumentBoundary{
			StartPage:  p.PageNumber,
			EndPage:    p.PageNumber,
			Confidence: 1.0,
			Reasoning:  "Single page per document",
		})
	}
	return &Result{
		Boundaries:     boundaries,
		TotalDocuments: len(boundaries),
		TotalPages:     len(pages),
		StrategyUsed:   "page_based",
		Confidence:     1.0,
	}, nil
}

// VisualSplitter asks the vision agent whether consecutive page pairs
// belong to different documents, based on layout and heading changes.
type VisualSplitter struct {
	agent model.Agent
}

// NewVisualSplitter creates a model-backed splitter.
func NewVisualSplitter(agent model.Agent) *VisualSplitter {
	return &VisualSplitter{agent: agent}
}

func (s *VisualSplitter) Name() string { return "visual" }

func (s *VisualSplitter) DetectBoundaries(ctx context.Context, pages []preprocess.PageImage) (*Result, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to split")
	}
	if len(pages) == 1 {
		return &Result{
			Boundaries: []DocumentBoundary{{
				StartPage:  pages[0].PageNumber,
				EndPage:    pages[0].PageNumber,
				Confidence: 1.0,
				Reasoning:  "Single page file",
			}},
			TotalDocuments: 1,
			TotalPages:     1,
			StrategyUsed:   "visual",
			Confidence:     1.0,
		}, nil
	}

	var boundaries []DocumentBoundary
	currentStart := pages[0].PageNumber

	for i := 0; i < len(pages)-1; i++ {
		answer, err := s.agent.AnswerVisualQuestion(ctx, model.VisualRequest{
			Pages: []preprocess.PageImage{pages[i], pages[i+1]},
			Question: fmt.Sprintf(
				"Do page %d and page %d belong to two different documents? "+
					"Look for different headers, footers, or logos, a change in "+
					"layout or style, a new document title, or a separator page.",
				pages[i].PageNumber, pages[i+1].PageNumber),
			Expected: "The second page starts a new document",
		})
		if err != nil {
			return nil, fmt.Errorf("analyze boundary between pages %d and %d: %w",
				pages[i].PageNumber, pages[i+1].PageNumber, err)
		}

		if answer.Passed {
			boundaries = append(boundaries, DocumentBoundary{
				StartPage:  currentStart,
				EndPage:    pages[i].PageNumber,
				Confidence: answer.Confidence,
				Reasoning:  answer.Answer,
			})
			currentStart = pages[i+1].PageNumber
		}
	}

	// Close the last document segment.
	boundaries = append(boundaries, DocumentBoundary{
		StartPage:  currentStart,
		EndPage:    pages[len(pages)-1].PageNumber,
		Confidence: 1.0,
		Reasoning:  "Final document segment",
	})

	total := 0.0
	for _, b := range boundaries {
		total += b.Confidence
	}

	return &Result{
		Boundaries:     boundaries,
		TotalDocuments: len(boundaries),
		TotalPages:     len(pages),
		StrategyUsed:   "visual",
		Confidence:     total / float64(len(boundaries)),
	}, nil
}
