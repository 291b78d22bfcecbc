package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/results"
)

// CompletenessHandler checks document completeness: minimum page
// count, field coverage ratio, and specific required fields.
type CompletenessHandler struct{}

func (CompletenessHandler) Type() catalog.ValidatorType { return catalog.ValidatorCompleteness }

func (CompletenessHandler) Validate(ctx context.Context, in Input, def catalog.ValidatorDefinition) (results.ValidationResult, error) {
	if minPages, ok := configInt(def.Config, "min_pages"); ok {
		if len(in.Pages) < minPages {
			r := Fail(def, fmt.Sprintf("document has %d pages, minimum required: %d", len(in.Pages), minPages))
			r.ExpectedValue = fmt.Sprintf("%d", minPages)
			r.ActualValue = fmt.Sprintf("%d", len(in.Pages))
			return r, nil
		}
	}

	if minPercent, ok := configFloat(def.Config, "min_fields_percent"); ok {
		checked := def.ApplicableFields
		if len(checked) == 0 {
			for f := range in.Fields {
				checked = append(checked, f)
			}
		}
		if len(checked) > 0 {
			present := 0
			for _, f := range checked {
				if fieldPresent(in.Fields, f) {
					present++
				}
			}
			percent := float64(present) / float64(len(checked)) * 100
			if percent < minPercent {
				r := Fail(def, fmt.Sprintf("field completeness %.1f%% below minimum %.1f%%", percent, minPercent))
				r.ExpectedValue = fmt.Sprintf(">= %.1f%%", minPercent)
				r.ActualValue = fmt.Sprintf("%.1f%%", percent)
				return r, nil
			}
		}
	}

	var missing []string
	for _, f := range configStrings(def.Config, "required_fields") {
		if !fieldPresent(in.Fields, f) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return Fail(def, "missing required fields: "+strings.Join(missing, ", ")), nil
	}

	return Pass(def, "document completeness check passed"), nil
}

func fieldPresent(data map[string]any, field string) bool {
	v, ok := data[field]
	if !ok || v == nil {
		return false
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v)) != ""
}
