package validation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/results"
)

// RangeHandler checks a numeric field against configured min/max bounds.
type RangeHandler struct{}

func (RangeHandler) Type() catalog.ValidatorType { return catalog.ValidatorRange }

func (RangeHandler) Validate(ctx context.Context, in Input, def catalog.ValidatorDefinition) (results.ValidationResult, error) {
	fieldName := firstApplicableField(def)
	if fieldName == "" {
		return Pass(def, "no field configured"), nil
	}

	value, ok := in.Fields[fieldName]
	if !ok || value == nil {
		return Pass(def, "field not present, skipping range check"), nil
	}

	num, err := toFloat(value)
	if err != nil {
		return withField(Fail(def, fmt.Sprintf("value %v is not numeric", value)), fieldName), nil
	}

	if min, ok := configFloat(def.Config, "min"); ok && num < min {
		r := Fail(def, fmt.Sprintf("value %v below minimum %v", num, min))
		r.FieldName = fieldName
		r.ExpectedValue = fmt.Sprintf(">= %v", min)
		r.ActualValue = fmt.Sprintf("%v", num)
		return r, nil
	}
	if max, ok := configFloat(def.Config, "max"); ok && num > max {
		r := Fail(def, fmt.Sprintf("value %v above maximum %v", num, max))
		r.FieldName = fieldName
		r.ExpectedValue = fmt.Sprintf("<= %v", max)
		r.ActualValue = fmt.Sprintf("%v", num)
		return r, nil
	}

	return withField(Pass(def, ""), fieldName), nil
}

// RequiredHandler checks that a field is present and non-empty.
type RequiredHandler struct{}

func (RequiredHandler) Type() catalog.ValidatorType { return catalog.ValidatorRequired }

func (RequiredHandler) Validate(ctx context.Context, in Input, def catalog.ValidatorDefinition) (results.ValidationResult, error) {
	fieldName := firstApplicableField(def)
	if fieldName == "" {
		return Pass(def, "no field configured"), nil
	}

	value, ok := in.Fields[fieldName]
	if !ok || value == nil || strings.TrimSpace(fmt.Sprintf("%v", value)) == "" {
		return withField(Fail(def, fmt.Sprintf("required field %q is missing or empty", fieldName)), fieldName), nil
	}
	return withField(Pass(def, ""), fieldName), nil
}

// LookupHandler checks field membership against a configured reference
// value set.
type LookupHandler struct{}

func (LookupHandler) Type() catalog.ValidatorType { return catalog.ValidatorLookup }

func (LookupHandler) Validate(ctx context.Context, in Input, def catalog.ValidatorDefinition) (results.ValidationResult, error) {
	fieldName := firstApplicableField(def)
	if fieldName == "" {
		return Pass(def, "no field configured"), nil
	}

	value, ok := in.Fields[fieldName]
	if !ok || value == nil {
		return Pass(def, "field not present, skipping lookup"), nil
	}

	allowed := configStrings(def.Config, "values")
	if len(allowed) == 0 {
		return Pass(def, "no reference values configured"), nil
	}

	caseSensitive := true
	if v, ok := def.Config["case_sensitive"].(bool); ok {
		caseSensitive = v
	}

	valueStr := fmt.Sprintf("%v", value)
	for _, a := range allowed {
		if a == valueStr || (!caseSensitive && strings.EqualFold(a, valueStr)) {
			return withField(Pass(def, ""), fieldName), nil
		}
	}

	r := Fail(def, fmt.Sprintf("value %q not in reference set", valueStr))
	r.FieldName = fieldName
	r.ActualValue = valueStr
	return r, nil
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	}
	return 0, fmt.Errorf("cannot convert %T to number", v)
}
