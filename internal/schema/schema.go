// Package schema declares the expected shape of raw order records and
// validates each record against it before any coercion happens.
package schema

// FieldType is the declared type of a schema field.
type FieldType string

const (
	// FieldTypeString accepts any value.
	FieldTypeString FieldType = "string"
	// FieldTypeInt requires the value to parse as an integer.
	FieldTypeInt FieldType = "int"
	// FieldTypeFloat requires the value to parse as a floating point number.
	FieldTypeFloat FieldType = "float"
	// FieldTypeDate marks calendar date fields. Parseability is checked by the
	// transformer, which owns date normalization; the validator only enforces
	// presence.
	FieldTypeDate FieldType = "date"
)

// FieldSpec declares one field of the batch schema.
type FieldSpec struct {
	// Name is the lowercased column name.
	Name string `yaml:"name"`
	// Type is the declared field type.
	Type FieldType `yaml:"type"`
	// Required fields must be present and non-blank. Whitespace-only values
	// count as missing.
	Required bool `yaml:"required"`
	// Allowed restricts the value to a fixed set when non-empty.
	Allowed []string `yaml:"allowed"`
	// Default is substituted for missing optional fields.
	Default string `yaml:"default"`
}

// Schema is an ordered list of field declarations.
type Schema struct {
	Fields []FieldSpec `yaml:"fields"`
}

// DefaultOrderSchema returns the schema of raw e-commerce order batches.
// Numeric fields default to zero when absent, matching the upstream feed
// contract where omitted quantities and prices mean zero.
func DefaultOrderSchema() Schema {
	return Schema{Fields: []FieldSpec{
		{Name: "order_id", Type: FieldTypeString, Required: true},
		{Name: "user_id", Type: FieldTypeString, Default: ""},
		{Name: "product_id", Type: FieldTypeString, Default: ""},
		{Name: "quantity", Type: FieldTypeInt, Default: "0"},
		{Name: "price", Type: FieldTypeFloat, Default: "0"},
		{Name: "total_price", Type: FieldTypeFloat, Default: "0"},
		{Name: "order_date", Type: FieldTypeDate, Required: true},
		{Name: "status", Type: FieldTypeString, Default: ""},
	}}
}
