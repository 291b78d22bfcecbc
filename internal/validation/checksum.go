package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/results"
)

// ChecksumHandler runs algorithmic integrity checks over a field value.
// Supported algorithms: "mod97" (IBAN) and "luhn" (card/identifier
// numbers).
type ChecksumHandler struct{}

func (ChecksumHandler) Type() catalog.ValidatorType { return catalog.ValidatorChecksum }

func (ChecksumHandler) Validate(ctx context.Context, in Input, def catalog.ValidatorDefinition) (results.ValidationResult, error) {
	fieldName := firstApplicableField(def)
	if fieldName == "" {
		return Pass(def, "no field configured"), nil
	}

	value, ok := in.Fields[fieldName]
	if !ok || value == nil {
		return Pass(def, "field not present, skipping checksum"), nil
	}
	valueStr := strings.ToUpper(strings.ReplaceAll(fmt.Sprintf("%v", value), " ", ""))

	algorithm, _ := configString(def.Config, "algorithm")
	switch algorithm {
	case "mod97", "iban":
		if !ibanPattern.MatchString(valueStr) || !mod97Valid(valueStr) {
			return withField(Fail(def, fmt.Sprintf("MOD-97 checksum failed: %v", value)), fieldName), nil
		}
		return withField(Pass(def, ""), fieldName), nil
	case "luhn":
		if !luhnValid(valueStr) {
			return withField(Fail(def, fmt.Sprintf("Luhn checksum failed: %v", value)), fieldName), nil
		}
		return withField(Pass(def, ""), fieldName), nil
	}

	return Pass(def, fmt.Sprintf("unknown checksum algorithm: %s", algorithm)), nil
}

// luhnValid checks a digit string with the Luhn algorithm.
func luhnValid(s string) bool {
	if len(s) < 2 {
		return false
	}
	sum := 0
	double := false
	for i := len(s) - 1; i >= 0; i-- {
		ch := s[i]
		if ch < '0' || ch > '9' {
			return false
		}
		d := int(ch - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
