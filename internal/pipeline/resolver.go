package pipeline

import (
	"context"
	"fmt"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/classify"
	"github.com/spherical-ai/intellidoc/internal/observability"
)

// FieldResolver decides which fields to extract for a document under
// the layered-override policy. Priority, first match wins:
//
//  1. Inline fields and/or explicit catalog field codes from the
//     request's target schema (unioned within this tier).
//  2. The matched document type's default field codes, only when the
//     classification confidence meets the type's threshold.
//  3. Empty set: extraction is a no-op for the document.
//
// Tiers never merge; unresolvable codes in tier 1 or 2 fail that
// document.
type FieldResolver struct {
	catalog          catalog.Catalog
	defaultThreshold float64
	logger           *observability.Logger
}

// NewFieldResolver creates a resolver with the given fallback
// confidence threshold for types that do not configure their own.
func NewFieldResolver(cat catalog.Catalog, defaultThreshold float64, logger *observability.Logger) *FieldResolver {
	return &FieldResolver{catalog: cat, defaultThreshold: defaultThreshold, logger: logger}
}

// Resolve returns the fields to extract for one document.
func (r *FieldResolver) Resolve(ctx context.Context, req Request, classification *classify.Result) ([]catalog.CatalogField, error) {
	// Tier 1: explicit request schema.
	inline := req.inlineFields()
	codes := req.fieldCodes()
	if len(inline) > 0 || len(codes) > 0 {
		fields := make([]catalog.CatalogField, 0, len(inline)+len(codes))
		seen := make(map[string]struct{}, len(inline))
		for _, f := range inline {
			fields = append(fields, f.ToCatalogField())
			seen[f.Code] = struct{}{}
		}
		if len(codes) > 0 {
			var missing []string
			for _, code := range codes {
				if _, ok := seen[code]; !ok {
					missing = append(missing, code)
				}
			}
			if len(missing) > 0 {
				resolved, err := r.catalog.ResolveFields(ctx, missing)
				if err != nil {
					return nil, fmt.Errorf("resolve target schema fields: %w", err)
				}
				fields = append(fields, resolved...)
			}
		}
		return fields, nil
	}

	// Tier 2: classified type's default fields, gated by confidence.
	if classification != nil && classification.BestMatch != nil {
		match := classification.BestMatch
		threshold := match.DocumentType.ClassificationConfidenceThreshold
		if threshold <= 0 {
			threshold = r.defaultThreshold
		}
		if match.Confidence < threshold {
			r.logger.Info().
				Str("document_type", match.DocumentType.Code).
				Float64("confidence", match.Confidence).
				Float64("threshold", threshold).
				Msg("Classification confidence below threshold, skipping default fields")
			return nil, nil
		}

		codes := match.DocumentType.DefaultFieldCodes
		if len(codes) == 0 {
			return nil, nil
		}
		fields, err := r.catalog.ResolveFields(ctx, codes)
		if err != nil {
			return nil, fmt.Errorf("resolve default fields for type %s: %w", match.DocumentType.Code, err)
		}
		return fields, nil
	}

	// Tier 3: nothing to extract.
	return nil, nil
}
