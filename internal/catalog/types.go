// Package catalog holds the runtime-configurable document catalog:
// document types, reusable field definitions, and validator definitions.
// The pipeline consumes the catalog read-only; management of catalog
// entries lives outside this service.
package catalog

// DocumentNature is a broad category a document belongs to.
type DocumentNature string

// Known document natures.
const (
	NatureIdentity       DocumentNature = "identity"
	NatureFinancial      DocumentNature = "financial"
	NatureLegal          DocumentNature = "legal"
	NatureMedical        DocumentNature = "medical"
	NatureGovernment     DocumentNature = "government"
	NatureEducational    DocumentNature = "educational"
	NatureCommercial     DocumentNature = "commercial"
	NatureInsurance      DocumentNature = "insurance"
	NatureRealEstate     DocumentNature = "real_estate"
	NatureHR             DocumentNature = "hr"
	NatureCorrespondence DocumentNature = "correspondence"
	NatureTechnical      DocumentNature = "technical"
	NatureOther          DocumentNature = "other"
)

// FieldType describes the value shape of an extractable field.
type FieldType string

// Known field types.
const (
	FieldTypeText     FieldType = "text"
	FieldTypeNumber   FieldType = "number"
	FieldTypeDate     FieldType = "date"
	FieldTypeCurrency FieldType = "currency"
	FieldTypeBoolean  FieldType = "boolean"
	FieldTypeEmail    FieldType = "email"
	FieldTypePhone    FieldType = "phone"
	FieldTypeAddress  FieldType = "address"
	FieldTypeTable    FieldType = "table"
	FieldTypeList     FieldType = "list"
	FieldTypeEnum     FieldType = "enum"
)

// ValidatorType identifies the handler a validator definition dispatches to.
type ValidatorType string

// The closed set of validator types.
const (
	ValidatorFormat       ValidatorType = "format"
	ValidatorRange        ValidatorType = "range"
	ValidatorRequired     ValidatorType = "required"
	ValidatorCrossField   ValidatorType = "cross_field"
	ValidatorVisual       ValidatorType = "visual"
	ValidatorBusinessRule ValidatorType = "business_rule"
	ValidatorCompleteness ValidatorType = "completeness"
	ValidatorChecksum     ValidatorType = "checksum"
	ValidatorLookup       ValidatorType = "lookup"
)

// ValidatorSeverity grades a validation failure.
type ValidatorSeverity string

// Validation severities.
const (
	SeverityError   ValidatorSeverity = "error"
	SeverityWarning ValidatorSeverity = "warning"
	SeverityInfo    ValidatorSeverity = "info"
)
