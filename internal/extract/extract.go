// Package extract pulls structured field values out of document pages
// using the vision agent, guided by catalog field definitions.
package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/model"
	"github.com/spherical-ai/intellidoc/internal/observability"
	"github.com/spherical-ai/intellidoc/internal/preprocess"
)

// Result is the extraction outcome for one document.
type Result struct {
	Fields      map[string]any
	Confidences map[string]float64
	Usage       model.Usage
}

// Service orchestrates field-driven data extraction.
type Service struct {
	agent  model.Agent
	logger *observability.Logger
}

// NewService creates an extraction service.
func NewService(agent model.Agent, logger *observability.Logger) *Service {
	return &Service{agent: agent, logger: logger}
}

// Extract runs the agent over the pages with the given field
// definitions. The agent's output is validated against a JSON schema
// built from the definitions; malformed output is an error so the
// stage retry budget applies. Missing optional fields with catalog
// defaults are filled in at full confidence.
func (s *Service) Extract(ctx context.Context, pages []preprocess.PageImage, fields []catalog.CatalogField, instructions string) (*Result, error) {
	if len(fields) == 0 {
		return &Result{Fields: map[string]any{}, Confidences: map[string]float64{}}, nil
	}

	specs := make([]model.FieldSpec, 0, len(fields))
	for _, f := range fields {
		specs = append(specs, toFieldSpec(f))
	}

	out, err := s.agent.Extract(ctx, model.ExtractRequest{
		Pages:        pages,
		Fields:       specs,
		Instructions: instructions,
	})
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	schema := BuildFieldsJSONSchema(fields)
	raw, err := json.Marshal(out.Fields)
	if err != nil {
		return nil, fmt.Errorf("marshal extracted fields: %w", err)
	}
	if err := ValidateAgainstSchema(schema, raw); err != nil {
		return nil, err
	}

	// Fill catalog defaults for fields the model did not return.
	for _, f := range fields {
		if _, ok := out.Fields[f.Code]; !ok && f.DefaultValue != nil {
			out.Fields[f.Code] = f.DefaultValue
			out.Confidences[f.Code] = 1.0
		}
	}

	extracted := 0
	for _, v := range out.Fields {
		if v != nil {
			extracted++
		}
	}
	s.logger.Info().
		Int("fields_requested", len(fields)).
		Int("fields_extracted", extracted).
		Int("pages", len(pages)).
		Msg("Extraction completed")

	return &Result{
		Fields:      out.Fields,
		Confidences: out.Confidences,
		Usage:       out.Usage,
	}, nil
}

func toFieldSpec(f catalog.CatalogField) model.FieldSpec {
	spec := model.FieldSpec{
		Code:         f.Code,
		DisplayName:  f.DisplayName,
		FieldType:    string(f.FieldType),
		Description:  f.Description,
		Required:     f.Required,
		LocationHint: f.LocationHint,
	}
	for _, c := range f.TableColumns {
		spec.Columns = append(spec.Columns, toFieldSpec(c))
	}
	return spec
}
