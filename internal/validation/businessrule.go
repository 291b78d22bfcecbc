package validation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/results"
)

// Comparison operators, longest first so ">=" wins over ">".
var ruleOperators = []string{"==", "!=", ">=", "<=", ">", "<"}

// BusinessRuleHandler evaluates a restricted comparison expression over
// extracted field values. Supported forms: "field op literal" and
// "field_a op field_b". No arbitrary code execution.
type BusinessRuleHandler struct{}

func (BusinessRuleHandler) Type() catalog.ValidatorType { return catalog.ValidatorBusinessRule }

func (BusinessRuleHandler) Validate(ctx context.Context, in Input, def catalog.ValidatorDefinition) (results.ValidationResult, error) {
	expression := def.RuleExpression
	if expression == "" {
		expression, _ = configString(def.Config, "expression")
	}
	if expression == "" {
		return Pass(def, "no business rule expression configured"), nil
	}

	ok, err := evaluateRule(expression, in.Fields)
	if err != nil {
		return Fail(def, fmt.Sprintf("error evaluating rule %q: %v", expression, err)), nil
	}
	if ok {
		return Pass(def, "business rule passed: "+expression), nil
	}
	return Fail(def, "business rule failed: "+expression), nil
}

func evaluateRule(expression string, data map[string]any) (bool, error) {
	for _, op := range ruleOperators {
		idx := strings.Index(expression, op)
		if idx < 0 {
			continue
		}
		left := resolveToken(strings.TrimSpace(expression[:idx]), data)
		right := resolveToken(strings.TrimSpace(expression[idx+len(op):]), data)
		return compare(left, right, op)
	}
	return false, fmt.Errorf("unsupported expression format: %s", expression)
}

// resolveToken maps a token to a field value or a literal (number,
// boolean, quoted string, or bare string).
func resolveToken(token string, data map[string]any) any {
	if v, ok := data[token]; ok {
		return v
	}
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return f
	}
	switch strings.ToLower(token) {
	case "true":
		return true
	case "false":
		return false
	}
	if len(token) >= 2 {
		if (token[0] == '"' && token[len(token)-1] == '"') ||
			(token[0] == '\'' && token[len(token)-1] == '\'') {
			return token[1 : len(token)-1]
		}
	}
	return token
}

func compare(left, right any, op string) (bool, error) {
	lf, lerr := toFloat(left)
	rf, rerr := toFloat(right)
	if lerr == nil && rerr == nil {
		switch op {
		case "==":
			return lf == rf, nil
		case "!=":
			return lf != rf, nil
		case ">":
			return lf > rf, nil
		case ">=":
			return lf >= rf, nil
		case "<":
			return lf < rf, nil
		case "<=":
			return lf <= rf, nil
		}
	}

	ls := fmt.Sprintf("%v", left)
	rs := fmt.Sprintf("%v", right)
	switch op {
	case "==":
		return ls == rs, nil
	case "!=":
		return ls != rs, nil
	case ">":
		return ls > rs, nil
	case ">=":
		return ls >= rs, nil
	case "<":
		return ls < rs, nil
	case "<=":
		return ls <= rs, nil
	}
	return false, fmt.Errorf("unsupported operator: %s", op)
}
