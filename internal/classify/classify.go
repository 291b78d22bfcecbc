// Package classify matches document pages against the available
// document types using the vision agent. Low confidence is an outcome,
// not an error: the service always returns a result and leaves the
// threshold decision to the caller.
package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/model"
	"github.com/spherical-ai/intellidoc/internal/observability"
	"github.com/spherical-ai/intellidoc/internal/preprocess"
)

// AdHocType is a document type supplied inline with a processing
// request rather than registered in the catalog.
type AdHocType struct {
	Code                       string                  `json:"code"`
	Name                       string                  `json:"name"`
	Description                string                  `json:"description,omitempty"`
	Nature                     catalog.DocumentNature  `json:"nature,omitempty"`
	VisualDescription          string                  `json:"visual_description,omitempty"`
	VisualCues                 []string                `json:"visual_cues,omitempty"`
	SampleKeywords             []string                `json:"sample_keywords,omitempty"`
	ClassificationInstructions string                  `json:"classification_instructions,omitempty"`
	FieldCodes                 []string                `json:"field_codes,omitempty"`
	ExtractionInstructions     string                  `json:"extraction_instructions,omitempty"`
	ConfidenceThreshold        float64                 `json:"confidence_threshold,omitempty"`
}

// ToDocumentType converts an ad-hoc type into a transient catalog
// document type so it flows through classification and field
// resolution like any registered type.
func (t AdHocType) ToDocumentType() catalog.DocumentType {
	nature := t.Nature
	if nature == "" {
		nature = catalog.NatureOther
	}
	name := t.Name
	if name == "" {
		name = titleFromCode(t.Code)
	}
	return catalog.DocumentType{
		ID:                                uuid.New(),
		Code:                              t.Code,
		Name:                              name,
		Description:                       t.Description,
		Nature:                            nature,
		VisualDescription:                 t.VisualDescription,
		VisualCues:                        t.VisualCues,
		SampleKeywords:                    t.SampleKeywords,
		ClassificationInstructions:        t.ClassificationInstructions,
		ClassificationConfidenceThreshold: t.ConfidenceThreshold,
		DefaultFieldCodes:                 t.FieldCodes,
		ExtractionInstructions:            t.ExtractionInstructions,
		IsActive:                          true,
	}
}

// Candidate is one classification match.
type Candidate struct {
	DocumentType catalog.DocumentType
	Confidence   float64
	Reasoning    string
}

// Result is the classification outcome for one document. Alternatives
// holds the runner-up candidates in descending confidence order.
type Result struct {
	BestMatch    *Candidate
	Alternatives []Candidate
	Confidence   float64
	Reasoning    string
	Usage        model.Usage
}

// Request carries the pages and the runtime overrides that shape the
// candidate set.
type Request struct {
	Pages          []preprocess.PageImage
	ExpectedType   string
	ExpectedNature catalog.DocumentNature
	AdHocTypes     []AdHocType
}

// Service classifies documents against catalog, ad-hoc, and
// synthesized document types.
type Service struct {
	catalog catalog.Catalog
	agent   model.Agent
	logger  *observability.Logger
}

// NewService creates a classification service.
func NewService(cat catalog.Catalog, agent model.Agent, logger *observability.Logger) *Service {
	return &Service{catalog: cat, agent: agent, logger: logger}
}

// Classify gathers candidate types from the catalog and the request's
// ad-hoc types, then asks the agent to rank them. An ExpectedType
// narrows the candidate set to that single type (synthesizing it when
// unregistered) and the agent accepts or rejects it instead of
// ranking. A model call failure is returned as an error; an empty
// candidate set yields a zero-confidence result.
func (s *Service) Classify(ctx context.Context, req Request) (*Result, error) {
	types, err := s.gatherTypes(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(types) == 0 {
		return &Result{Confidence: 0, Reasoning: "no document types available"}, nil
	}

	candidates := make([]model.TypeCandidate, 0, len(types))
	byCode := make(map[string]catalog.DocumentType, len(types))
	for _, dt := range types {
		byCode[dt.Code] = dt
		candidates = append(candidates, model.TypeCandidate{
			Code:              dt.Code,
			Name:              dt.Name,
			Description:       dt.Description,
			VisualDescription: dt.VisualDescription,
			VisualCues:        dt.VisualCues,
			SampleKeywords:    dt.SampleKeywords,
			Instructions:      dt.ClassificationInstructions,
		})
	}

	answer, err := s.agent.Classify(ctx, model.ClassifyRequest{
		Pages:        req.Pages,
		Candidates:   candidates,
		ExpectedType: req.ExpectedType,
	})
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	result := &Result{
		Confidence: answer.Confidence,
		Reasoning:  answer.Reasoning,
		Usage:      answer.Usage,
	}
	if dt, ok := byCode[answer.TypeCode]; ok {
		result.BestMatch = &Candidate{
			DocumentType: dt,
			Confidence:   answer.Confidence,
			Reasoning:    answer.Reasoning,
		}
	}
	for _, alt := range answer.Alternatives {
		dt, ok := byCode[alt.TypeCode]
		if !ok || alt.TypeCode == answer.TypeCode {
			continue
		}
		result.Alternatives = append(result.Alternatives, Candidate{
			DocumentType: dt,
			Confidence:   alt.Confidence,
		})
	}

	code := "unknown"
	if result.BestMatch != nil {
		code = result.BestMatch.DocumentType.Code
	}
	s.logger.Info().
		Str("document_type", code).
		Float64("confidence", result.Confidence).
		Int("candidates", len(types)).
		Msg("Document classified")

	return result, nil
}

// gatherTypes merges candidate types in order: catalog, then ad-hoc.
// An ExpectedType narrows the set to that single type, synthesizing a
// transient one when no catalog or ad-hoc type carries the code.
func (s *Service) gatherTypes(ctx context.Context, req Request) ([]catalog.DocumentType, error) {
	types, err := s.catalog.ActiveDocumentTypes(ctx, req.ExpectedNature)
	if err != nil {
		return nil, fmt.Errorf("load catalog types: %w", err)
	}

	for _, ah := range req.AdHocTypes {
		dt := ah.ToDocumentType()
		if req.ExpectedNature != "" && dt.Nature != req.ExpectedNature {
			continue
		}
		types = append(types, dt)
	}

	if req.ExpectedType != "" {
		for _, dt := range types {
			if dt.Code == req.ExpectedType {
				return []catalog.DocumentType{dt}, nil
			}
		}
		return []catalog.DocumentType{{
			ID:       uuid.New(),
			Code:     req.ExpectedType,
			Name:     titleFromCode(req.ExpectedType),
			Nature:   catalog.NatureOther,
			IsActive: true,
		}}, nil
	}

	return types, nil
}

func titleFromCode(code string) string {
	words := strings.Split(strings.ReplaceAll(code, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
