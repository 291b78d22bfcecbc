package validation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/results"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-().]{7,20}$`)
	ibanPattern  = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z0-9]{4,30}$`)
)

// FormatHandler checks field values against known formats (email,
// phone, IBAN) or a custom regex pattern.
type FormatHandler struct{}

func (FormatHandler) Type() catalog.ValidatorType { return catalog.ValidatorFormat }

func (FormatHandler) Validate(ctx context.Context, in Input, def catalog.ValidatorDefinition) (results.ValidationResult, error) {
	fieldName := firstApplicableField(def)
	if fieldName == "" {
		return Pass(def, "no field configured"), nil
	}

	value, ok := in.Fields[fieldName]
	if !ok || value == nil {
		return Pass(def, "field not present, skipping format check"), nil
	}
	valueStr := fmt.Sprintf("%v", value)

	format, _ := configString(def.Config, "format")
	pattern, _ := configString(def.Config, "pattern")

	switch format {
	case "email":
		return checkRegex(def, fieldName, valueStr, emailPattern, "email"), nil
	case "phone":
		return checkRegex(def, fieldName, valueStr, phonePattern, "phone"), nil
	case "iban":
		return checkIBAN(def, fieldName, valueStr), nil
	}

	if pattern != "" {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return withField(Fail(def, fmt.Sprintf("invalid regex pattern: %s", pattern)), fieldName), nil
		}
		return checkRegex(def, fieldName, valueStr, compiled, "pattern"), nil
	}

	return Pass(def, "no format rule configured"), nil
}

func checkRegex(def catalog.ValidatorDefinition, fieldName, value string, pattern *regexp.Regexp, formatName string) results.ValidationResult {
	if pattern.MatchString(value) {
		return withField(Pass(def, ""), fieldName)
	}
	r := Fail(def, fmt.Sprintf("value %q does not match %s format", value, formatName))
	r.FieldName = fieldName
	r.ExpectedValue = "pattern: " + pattern.String()
	r.ActualValue = value
	return r
}

func checkIBAN(def catalog.ValidatorDefinition, fieldName, value string) results.ValidationResult {
	cleaned := strings.ToUpper(strings.ReplaceAll(value, " ", ""))
	if !ibanPattern.MatchString(cleaned) {
		return withField(Fail(def, fmt.Sprintf("invalid IBAN format: %s", value)), fieldName)
	}
	if !mod97Valid(cleaned) {
		return withField(Fail(def, fmt.Sprintf("IBAN checksum failed: %s", value)), fieldName)
	}
	return withField(Pass(def, ""), fieldName)
}

// mod97Valid runs the ISO 7064 MOD 97-10 check: move the first four
// characters to the end, substitute letters with two-digit numbers, and
// verify the remainder modulo 97 is 1. The remainder is computed
// incrementally to stay within int range.
func mod97Valid(iban string) bool {
	rearranged := iban[4:] + iban[:4]
	remainder := 0
	for _, ch := range rearranged {
		var digits string
		switch {
		case ch >= '0' && ch <= '9':
			digits = string(ch)
		case ch >= 'A' && ch <= 'Z':
			digits = fmt.Sprintf("%d", ch-'A'+10)
		default:
			return false
		}
		for _, d := range digits {
			remainder = (remainder*10 + int(d-'0')) % 97
		}
	}
	return remainder == 1
}

func withField(r results.ValidationResult, fieldName string) results.ValidationResult {
	r.FieldName = fieldName
	return r
}

func firstApplicableField(def catalog.ValidatorDefinition) string {
	if len(def.ApplicableFields) == 0 {
		return ""
	}
	return def.ApplicableFields[0]
}
