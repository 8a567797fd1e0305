package schema

import (
	"strconv"
	"strings"

	"github.com/tigerroll/ordersink/internal/domain/entity"
)

// Validator checks raw records against a declared schema. Validation is pure:
// it never touches the clock, storage or the database.
type Validator struct {
	schema Schema
}

// NewValidator creates a Validator for the given schema.
func NewValidator(schema Schema) *Validator {
	return &Validator{schema: schema}
}

// ValidateRecord validates one raw record. It returns a normalized copy with
// optional-field defaults applied, plus the rejection reasons found. A record
// with any reason is rejected; reasons are reported in schema field order.
func (v *Validator) ValidateRecord(raw entity.RawRecord) (entity.RawRecord, []entity.Reason) {
	normalized := make(entity.RawRecord, len(v.schema.Fields))
	var reasons []entity.Reason

	for _, field := range v.schema.Fields {
		value, present := raw[field.Name]
		trimmed := strings.TrimSpace(value)

		// Whitespace-only values count as missing.
		if !present || trimmed == "" {
			if field.Required {
				reasons = append(reasons, entity.NewReason(entity.ReasonMissingField, "%s", field.Name))
				continue
			}
			normalized[field.Name] = field.Default
			continue
		}

		switch field.Type {
		case FieldTypeInt:
			if _, err := strconv.ParseInt(trimmed, 10, 64); err != nil {
				reasons = append(reasons, entity.NewReason(entity.ReasonTypeMismatch, "%s, int, %q", field.Name, trimmed))
				continue
			}
		case FieldTypeFloat:
			if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
				reasons = append(reasons, entity.NewReason(entity.ReasonTypeMismatch, "%s, float, %q", field.Name, trimmed))
				continue
			}
		}

		if len(field.Allowed) > 0 && !contains(field.Allowed, trimmed) {
			reasons = append(reasons, entity.NewReason(entity.ReasonInvalidEnum, "%s, %q", field.Name, trimmed))
			continue
		}

		normalized[field.Name] = trimmed
	}

	if len(reasons) > 0 {
		return nil, reasons
	}
	return normalized, nil
}

// ValidateBatch validates every record of a batch, splitting it into the
// normalized survivors and the rejected rows. Row order is preserved on both
// sides; a rejected record carries its first failing reason.
func (v *Validator) ValidateBatch(batch *entity.RawBatch) ([]entity.IndexedRecord, []entity.RejectedRecord) {
	accepted := make([]entity.IndexedRecord, 0, len(batch.Records))
	var rejected []entity.RejectedRecord

	for i, raw := range batch.Records {
		normalized, reasons := v.ValidateRecord(raw)
		if len(reasons) > 0 {
			rejected = append(rejected, entity.RejectedRecord{
				RowIndex: i,
				Raw:      raw,
				Stage:    entity.StageValidating,
				Reason:   reasons[0],
			})
			continue
		}
		accepted = append(accepted, entity.IndexedRecord{RowIndex: i, Record: normalized})
	}
	return accepted, rejected
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
