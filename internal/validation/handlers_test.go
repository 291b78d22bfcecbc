package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/preprocess"
)

func fieldDef(typ catalog.ValidatorType, field string, config map[string]any) catalog.ValidatorDefinition {
	d := def(typ, string(typ)+"_"+field)
	d.ApplicableFields = []string{field}
	d.Config = config
	return d
}

func TestFormatHandler_Email(t *testing.T) {
	h := FormatHandler{}
	d := fieldDef(catalog.ValidatorFormat, "contact", map[string]any{"format": "email"})

	tests := []struct {
		value  any
		passed bool
	}{
		{"billing@example.com", true},
		{"first.last+tag@sub.example.co", true},
		{"not-an-email", false},
		{"missing@tld", false},
	}
	for _, tt := range tests {
		r, err := h.Validate(context.Background(), Input{Fields: map[string]any{"contact": tt.value}}, d)
		require.NoError(t, err)
		assert.Equal(t, tt.passed, r.Passed, "value %v", tt.value)
		assert.Equal(t, "contact", r.FieldName)
	}
}

func TestFormatHandler_AbsentFieldPasses(t *testing.T) {
	h := FormatHandler{}
	d := fieldDef(catalog.ValidatorFormat, "contact", map[string]any{"format": "email"})

	r, err := h.Validate(context.Background(), Input{Fields: map[string]any{}}, d)
	require.NoError(t, err)
	assert.True(t, r.Passed)
}

func TestFormatHandler_IBAN(t *testing.T) {
	h := FormatHandler{}
	d := fieldDef(catalog.ValidatorFormat, "iban", map[string]any{"format": "iban"})

	// Valid MOD-97 example, with spacing to exercise normalization.
	r, err := h.Validate(context.Background(), Input{Fields: map[string]any{"iban": "GB82 WEST 1234 5698 7654 32"}}, d)
	require.NoError(t, err)
	assert.True(t, r.Passed)

	r, err = h.Validate(context.Background(), Input{Fields: map[string]any{"iban": "GB82WEST12345698765431"}}, d)
	require.NoError(t, err)
	assert.False(t, r.Passed)
}

func TestFormatHandler_CustomPattern(t *testing.T) {
	h := FormatHandler{}
	d := fieldDef(catalog.ValidatorFormat, "invoice_number", map[string]any{"pattern": `^INV-\d{6}$`})

	r, _ := h.Validate(context.Background(), Input{Fields: map[string]any{"invoice_number": "INV-004211"}}, d)
	assert.True(t, r.Passed)

	r, _ = h.Validate(context.Background(), Input{Fields: map[string]any{"invoice_number": "INV-42"}}, d)
	assert.False(t, r.Passed)
	assert.Equal(t, "INV-42", r.ActualValue)
}

func TestRangeHandler(t *testing.T) {
	h := RangeHandler{}
	d := fieldDef(catalog.ValidatorRange, "total_amount", map[string]any{"min": 0.0, "max": 10000.0})

	r, _ := h.Validate(context.Background(), Input{Fields: map[string]any{"total_amount": 149.99}}, d)
	assert.True(t, r.Passed)

	r, _ = h.Validate(context.Background(), Input{Fields: map[string]any{"total_amount": -5}}, d)
	assert.False(t, r.Passed)

	r, _ = h.Validate(context.Background(), Input{Fields: map[string]any{"total_amount": "12500"}}, d)
	assert.False(t, r.Passed)
	assert.Equal(t, "<= 10000", r.ExpectedValue)

	r, _ = h.Validate(context.Background(), Input{Fields: map[string]any{"total_amount": "n/a"}}, d)
	assert.False(t, r.Passed)
}

func TestRequiredHandler(t *testing.T) {
	h := RequiredHandler{}
	d := fieldDef(catalog.ValidatorRequired, "invoice_number", nil)

	r, _ := h.Validate(context.Background(), Input{Fields: map[string]any{"invoice_number": "INV-1"}}, d)
	assert.True(t, r.Passed)

	r, _ = h.Validate(context.Background(), Input{Fields: map[string]any{}}, d)
	assert.False(t, r.Passed)

	r, _ = h.Validate(context.Background(), Input{Fields: map[string]any{"invoice_number": "   "}}, d)
	assert.False(t, r.Passed)
}

func TestLookupHandler_CaseInsensitive(t *testing.T) {
	h := LookupHandler{}
	d := fieldDef(catalog.ValidatorLookup, "currency", map[string]any{
		"values":         []any{"USD", "EUR", "GBP"},
		"case_sensitive": false,
	})

	r, _ := h.Validate(context.Background(), Input{Fields: map[string]any{"currency": "eur"}}, d)
	assert.True(t, r.Passed)

	r, _ = h.Validate(context.Background(), Input{Fields: map[string]any{"currency": "JPY"}}, d)
	assert.False(t, r.Passed)
}

func TestCrossFieldHandler_Sum(t *testing.T) {
	h := CrossFieldHandler{}
	d := def(catalog.ValidatorCrossField, "totals")
	d.Config = map[string]any{
		"rule":        "sum",
		"fields":      []any{"subtotal", "tax_amount"},
		"total_field": "total_amount",
	}

	in := Input{Fields: map[string]any{"subtotal": 100.0, "tax_amount": 8.25, "total_amount": 108.25}}
	r, _ := h.Validate(context.Background(), in, d)
	assert.True(t, r.Passed)

	in.Fields["total_amount"] = 110.0
	r, _ = h.Validate(context.Background(), in, d)
	assert.False(t, r.Passed)
}

func TestCrossFieldHandler_SumTolerance(t *testing.T) {
	h := CrossFieldHandler{}
	d := def(catalog.ValidatorCrossField, "totals")
	d.Config = map[string]any{
		"rule":        "sum",
		"fields":      []any{"subtotal", "tax_amount"},
		"total_field": "total_amount",
		"tolerance":   0.5,
	}

	in := Input{Fields: map[string]any{"subtotal": 100.0, "tax_amount": 8.0, "total_amount": 108.4}}
	r, _ := h.Validate(context.Background(), in, d)
	assert.True(t, r.Passed)
}

func TestCrossFieldHandler_DateOrder(t *testing.T) {
	h := CrossFieldHandler{}
	d := def(catalog.ValidatorCrossField, "dates")
	d.Config = map[string]any{
		"rule":   "date_order",
		"fields": []any{"invoice_date", "due_date"},
	}

	in := Input{Fields: map[string]any{"invoice_date": "2026-01-15", "due_date": "2026-02-14"}}
	r, _ := h.Validate(context.Background(), in, d)
	assert.True(t, r.Passed)

	in.Fields["due_date"] = "2026-01-01"
	r, _ = h.Validate(context.Background(), in, d)
	assert.False(t, r.Passed)
}

func TestCrossFieldHandler_Match(t *testing.T) {
	h := CrossFieldHandler{}
	d := def(catalog.ValidatorCrossField, "names")
	d.Config = map[string]any{
		"rule":   "match",
		"fields": []any{"payer_name", "account_holder"},
	}

	in := Input{Fields: map[string]any{"payer_name": "Acme Corp", "account_holder": "Acme Corp"}}
	r, _ := h.Validate(context.Background(), in, d)
	assert.True(t, r.Passed)

	in.Fields["account_holder"] = "Other LLC"
	r, _ = h.Validate(context.Background(), in, d)
	assert.False(t, r.Passed)
}

func TestBusinessRuleHandler(t *testing.T) {
	h := BusinessRuleHandler{}

	tests := []struct {
		expression string
		fields     map[string]any
		passed     bool
	}{
		{"total_amount > 0", map[string]any{"total_amount": 42.5}, true},
		{"total_amount > 0", map[string]any{"total_amount": -1}, false},
		{"subtotal <= total_amount", map[string]any{"subtotal": 90.0, "total_amount": 100.0}, true},
		{"currency == 'USD'", map[string]any{"currency": "USD"}, true},
		{"currency != 'USD'", map[string]any{"currency": "EUR"}, true},
		{"paid == true", map[string]any{"paid": true}, true},
	}
	for _, tt := range tests {
		d := def(catalog.ValidatorBusinessRule, "rule")
		d.RuleExpression = tt.expression
		r, err := h.Validate(context.Background(), Input{Fields: tt.fields}, d)
		require.NoError(t, err)
		assert.Equal(t, tt.passed, r.Passed, "expression %q", tt.expression)
	}
}

func TestBusinessRuleHandler_UnsupportedExpressionFails(t *testing.T) {
	h := BusinessRuleHandler{}
	d := def(catalog.ValidatorBusinessRule, "rule")
	d.RuleExpression = "total_amount plus one"

	r, err := h.Validate(context.Background(), Input{Fields: map[string]any{}}, d)
	require.NoError(t, err)
	assert.False(t, r.Passed)
	assert.Contains(t, r.Message, "error evaluating rule")
}

func TestChecksumHandler_Luhn(t *testing.T) {
	h := ChecksumHandler{}
	d := fieldDef(catalog.ValidatorChecksum, "card_number", map[string]any{"algorithm": "luhn"})

	r, _ := h.Validate(context.Background(), Input{Fields: map[string]any{"card_number": "4539 1488 0343 6467"}}, d)
	assert.True(t, r.Passed)

	r, _ = h.Validate(context.Background(), Input{Fields: map[string]any{"card_number": "4539148803436468"}}, d)
	assert.False(t, r.Passed)
}

func TestChecksumHandler_UnknownAlgorithmPasses(t *testing.T) {
	h := ChecksumHandler{}
	d := fieldDef(catalog.ValidatorChecksum, "ref", map[string]any{"algorithm": "crc32"})

	r, _ := h.Validate(context.Background(), Input{Fields: map[string]any{"ref": "123"}}, d)
	assert.True(t, r.Passed)
}

func TestCompletenessHandler(t *testing.T) {
	h := CompletenessHandler{}

	d := def(catalog.ValidatorCompleteness, "complete")
	d.Config = map[string]any{
		"min_pages":       2,
		"required_fields": []any{"invoice_number", "total_amount"},
	}

	pages := []preprocess.PageImage{{PageNumber: 1}, {PageNumber: 2}}
	in := Input{
		Pages:  pages,
		Fields: map[string]any{"invoice_number": "INV-1", "total_amount": 10.0},
	}
	r, _ := h.Validate(context.Background(), in, d)
	assert.True(t, r.Passed)

	in.Pages = pages[:1]
	r, _ = h.Validate(context.Background(), in, d)
	assert.False(t, r.Passed)

	in.Pages = pages
	delete(in.Fields, "total_amount")
	r, _ = h.Validate(context.Background(), in, d)
	assert.False(t, r.Passed)
	assert.Contains(t, r.Message, "total_amount")
}

func TestCompletenessHandler_FieldPercent(t *testing.T) {
	h := CompletenessHandler{}
	d := def(catalog.ValidatorCompleteness, "coverage")
	d.ApplicableFields = []string{"a", "b", "c", "d"}
	d.Config = map[string]any{"min_fields_percent": 50.0}

	in := Input{Fields: map[string]any{"a": "x", "b": "y"}}
	r, _ := h.Validate(context.Background(), in, d)
	assert.True(t, r.Passed)

	in.Fields = map[string]any{"a": "x"}
	r, _ = h.Validate(context.Background(), in, d)
	assert.False(t, r.Passed)
}
