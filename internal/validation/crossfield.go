package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/results"
)

// CrossFieldHandler checks consistency between multiple extracted
// fields: value matching, sum-with-tolerance, and date ordering.
type CrossFieldHandler struct{}

func (CrossFieldHandler) Type() catalog.ValidatorType { return catalog.ValidatorCrossField }

func (CrossFieldHandler) Validate(ctx context.Context, in Input, def catalog.ValidatorDefinition) (results.ValidationResult, error) {
	rule, _ := configString(def.Config, "rule")
	fields := configStrings(def.Config, "fields")

	switch rule {
	case "match":
		return checkMatch(def, in.Fields, fields), nil
	case "sum":
		totalField, _ := configString(def.Config, "total_field")
		return checkSum(def, in.Fields, fields, totalField), nil
	case "date_order":
		return checkDateOrder(def, in.Fields, fields), nil
	}

	return Pass(def, fmt.Sprintf("unknown cross-field rule: %s", rule)), nil
}

func checkMatch(def catalog.ValidatorDefinition, data map[string]any, fields []string) results.ValidationResult {
	if len(fields) < 2 {
		return Pass(def, "match requires at least 2 fields")
	}

	var present []string
	for _, f := range fields {
		if v, ok := data[f]; ok && v != nil {
			present = append(present, fmt.Sprintf("%v", v))
		}
	}
	if len(present) < 2 {
		return Pass(def, "not enough fields present to compare")
	}

	for _, v := range present[1:] {
		if v != present[0] {
			return Fail(def, fmt.Sprintf("fields %v do not match", fields))
		}
	}
	return Pass(def, fmt.Sprintf("fields %v match", fields))
}

func checkSum(def catalog.ValidatorDefinition, data map[string]any, fields []string, totalField string) results.ValidationResult {
	total, err := toFloat(valueOrZero(data, totalField))
	if err != nil {
		return Fail(def, fmt.Sprintf("cannot compute sum: %v", err))
	}

	partsSum := 0.0
	for _, f := range fields {
		v, err := toFloat(valueOrZero(data, f))
		if err != nil {
			return Fail(def, fmt.Sprintf("cannot compute sum: %v", err))
		}
		partsSum += v
	}

	tolerance := 0.01
	if t, ok := configFloat(def.Config, "tolerance"); ok {
		tolerance = t
	}

	diff := partsSum - total
	if diff < 0 {
		diff = -diff
	}
	if diff <= tolerance {
		return Pass(def, fmt.Sprintf("sum of %v (%v) matches %s (%v)", fields, partsSum, totalField, total))
	}

	r := Fail(def, fmt.Sprintf("sum of %v (%v) does not match %s (%v)", fields, partsSum, totalField, total))
	r.ExpectedValue = fmt.Sprintf("%v", total)
	r.ActualValue = fmt.Sprintf("%v", partsSum)
	return r
}

func checkDateOrder(def catalog.ValidatorDefinition, data map[string]any, fields []string) results.ValidationResult {
	if len(fields) < 2 {
		return Pass(def, "date order requires at least 2 fields")
	}

	type namedDate struct {
		name string
		t    time.Time
	}
	var dates []namedDate
	for _, f := range fields {
		v, ok := data[f]
		if !ok || v == nil {
			continue
		}
		parsed, err := parseDate(fmt.Sprintf("%v", v))
		if err != nil {
			return Fail(def, fmt.Sprintf("cannot parse date for field %q: %v", f, v))
		}
		dates = append(dates, namedDate{name: f, t: parsed})
	}

	if len(dates) < 2 {
		return Pass(def, "not enough dates to compare")
	}

	for i := 0; i < len(dates)-1; i++ {
		if dates[i].t.After(dates[i+1].t) {
			return Fail(def, fmt.Sprintf("date order violation: %s (%s) is after %s (%s)",
				dates[i].name, dates[i].t.Format("2006-01-02"),
				dates[i+1].name, dates[i+1].t.Format("2006-01-02")))
		}
	}
	return Pass(def, fmt.Sprintf("dates in correct order: %v", fields))
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %s", s)
}

func valueOrZero(data map[string]any, key string) any {
	if v, ok := data[key]; ok && v != nil {
		return v
	}
	return 0.0
}
