package validation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/observability"
	"github.com/spherical-ai/intellidoc/internal/preprocess"
	"github.com/spherical-ai/intellidoc/internal/results"
)

// Service loads the validators assigned to a document type, filters
// them by applicability, materializes field-embedded rules, and runs
// everything through the engine.
type Service struct {
	catalog catalog.Catalog
	engine  *Engine
	logger  *observability.Logger
}

// NewService creates a validation service.
func NewService(cat catalog.Catalog, engine *Engine, logger *observability.Logger) *Service {
	return &Service{catalog: cat, engine: engine, logger: logger}
}

// Validate runs all applicable validators for the document. Validation
// never fails the call: every outcome, including handler errors, is a
// ValidationResult.
func (s *Service) Validate(
	ctx context.Context,
	pages []preprocess.PageImage,
	extracted map[string]any,
	docType *catalog.DocumentType,
	resolvedFields []catalog.CatalogField,
) ([]results.ValidationResult, error) {
	in := Input{Fields: extracted, Pages: pages}
	var out []results.ValidationResult

	if docType != nil && len(docType.ValidatorIDs) > 0 {
		defs, err := s.catalog.ValidatorsByIDs(ctx, docType.ValidatorIDs)
		if err != nil {
			return nil, fmt.Errorf("load validators: %w", err)
		}

		applicable := defs[:0]
		for _, def := range defs {
			if def.AppliesTo(docType) {
				applicable = append(applicable, def)
			}
		}

		s.logger.Info().
			Str("document_type", docType.Code).
			Int("validators", len(applicable)).
			Msg("Running document type validators")

		out = append(out, s.engine.Run(ctx, in, applicable)...)
	}

	if fieldDefs := materializeFieldRules(resolvedFields); len(fieldDefs) > 0 {
		s.logger.Info().
			Int("field_rules", len(fieldDefs)).
			Msg("Running field-level validation rules")
		out = append(out, s.engine.Run(ctx, in, fieldDefs)...)
	}

	passed, failed, warned := 0, 0, 0
	for _, r := range out {
		switch {
		case r.Passed:
			passed++
		case r.Severity == catalog.SeverityWarning:
			warned++
		default:
			failed++
		}
	}
	s.logger.Info().
		Int("passed", passed).
		Int("failed", failed).
		Int("warnings", warned).
		Msg("Validation complete")

	return out, nil
}

// materializeFieldRules converts field-embedded validation rules into
// ephemeral validator definitions scoped to their field. These are
// never persisted to the catalog.
func materializeFieldRules(fields []catalog.CatalogField) []catalog.ValidatorDefinition {
	var defs []catalog.ValidatorDefinition
	for _, f := range fields {
		for _, rule := range f.ValidationRules {
			name := rule.Message
			if name == "" {
				name = fmt.Sprintf("%s %s check", f.DisplayName, rule.RuleType)
			}
			defs = append(defs, catalog.ValidatorDefinition{
				ID:               uuid.New(),
				Code:             fmt.Sprintf("%s_%s", f.Code, rule.RuleType),
				Name:             name,
				Description:      rule.Message,
				Type:             rule.RuleType,
				Severity:         rule.Severity,
				Config:           rule.Config,
				ApplicableFields: []string{f.Code},
				IsActive:         true,
			})
		}
	}
	return defs
}
