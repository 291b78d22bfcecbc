package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/model"
	"github.com/spherical-ai/intellidoc/internal/observability"
)

type fakeAgent struct {
	model.Agent
	result *model.ExtractResult
}

func (a fakeAgent) Extract(ctx context.Context, req model.ExtractRequest) (*model.ExtractResult, error) {
	return a.result, nil
}

func TestService_Extract_NoFieldsShortCircuits(t *testing.T) {
	svc := NewService(fakeAgent{}, observability.NopLogger())

	result, err := svc.Extract(context.Background(), nil, nil, "")
	require.NoError(t, err)
	assert.Empty(t, result.Fields)
	assert.Empty(t, result.Confidences)
}

func TestService_Extract_FillsDefaults(t *testing.T) {
	svc := NewService(fakeAgent{result: &model.ExtractResult{
		Fields:      map[string]any{"invoice_number": "INV-001"},
		Confidences: map[string]float64{"invoice_number": 0.88},
		Usage:       model.Usage{Tokens: 200},
	}}, observability.NopLogger())

	fields := []catalog.CatalogField{
		{Code: "invoice_number", FieldType: catalog.FieldTypeText},
		{Code: "currency", FieldType: catalog.FieldTypeText, DefaultValue: "EUR"},
	}

	result, err := svc.Extract(context.Background(), nil, fields, "")
	require.NoError(t, err)

	assert.Equal(t, "INV-001", result.Fields["invoice_number"])
	assert.Equal(t, "EUR", result.Fields["currency"])
	assert.Equal(t, 1.0, result.Confidences["currency"])
	assert.Equal(t, 0.88, result.Confidences["invoice_number"])
	assert.Equal(t, int64(200), result.Usage.Tokens)
}

func TestService_Extract_SchemaRejectsWrongType(t *testing.T) {
	svc := NewService(fakeAgent{result: &model.ExtractResult{
		Fields:      map[string]any{"total_amount": "not a number"},
		Confidences: map[string]float64{},
	}}, observability.NopLogger())

	fields := []catalog.CatalogField{
		{Code: "total_amount", FieldType: catalog.FieldTypeNumber},
	}

	_, err := svc.Extract(context.Background(), nil, fields, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "do not match schema")
}

func TestService_Extract_SchemaRejectsUnknownField(t *testing.T) {
	svc := NewService(fakeAgent{result: &model.ExtractResult{
		Fields:      map[string]any{"surprise": "value"},
		Confidences: map[string]float64{},
	}}, observability.NopLogger())

	fields := []catalog.CatalogField{
		{Code: "invoice_number", FieldType: catalog.FieldTypeText},
	}

	_, err := svc.Extract(context.Background(), nil, fields, "")
	require.Error(t, err)
}

func TestBuildFieldsJSONSchema(t *testing.T) {
	minVal := 0.0
	fields := []catalog.CatalogField{
		{Code: "total", FieldType: catalog.FieldTypeCurrency, MinValue: &minVal},
		{Code: "issue_date", FieldType: catalog.FieldTypeDate},
		{Code: "status", FieldType: catalog.FieldTypeEnum, AllowedValues: []string{"paid", "open"}},
		{Code: "line_items", FieldType: catalog.FieldTypeTable, TableColumns: []catalog.CatalogField{
			{Code: "description", FieldType: catalog.FieldTypeText},
			{Code: "amount", FieldType: catalog.FieldTypeNumber},
		}},
	}

	schema := BuildFieldsJSONSchema(fields)

	valid := []byte(`{
		"total": 12.5,
		"issue_date": "2026-01-15",
		"status": "paid",
		"line_items": [{"description": "Widget", "amount": 12.5}]
	}`)
	require.NoError(t, ValidateAgainstSchema(schema, valid))

	badDate := []byte(`{"issue_date": "15/01/2026"}`)
	assert.Error(t, ValidateAgainstSchema(schema, badDate))

	badEnum := []byte(`{"status": "overdue"}`)
	assert.Error(t, ValidateAgainstSchema(schema, badEnum))

	belowMin := []byte(`{"total": -1}`)
	assert.Error(t, ValidateAgainstSchema(schema, belowMin))
}
