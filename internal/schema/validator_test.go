package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/ordersink/internal/domain/entity"
	"github.com/tigerroll/ordersink/internal/schema"
)

func newValidator() *schema.Validator {
	return schema.NewValidator(schema.DefaultOrderSchema())
}

func TestValidateRecordAppliesDefaults(t *testing.T) {
	v := newValidator()

	normalized, reasons := v.ValidateRecord(entity.RawRecord{
		"order_id":   "A1",
		"order_date": "2024-03-05",
	})

	assert.Empty(t, reasons)
	assert.Equal(t, "A1", normalized["order_id"])
	assert.Equal(t, "0", normalized["quantity"])
	assert.Equal(t, "0", normalized["price"])
	assert.Equal(t, "", normalized["user_id"])
	assert.Equal(t, "", normalized["status"])
}

func TestValidateRecordTrimsValues(t *testing.T) {
	v := newValidator()

	normalized, reasons := v.ValidateRecord(entity.RawRecord{
		"order_id":   "  A1  ",
		"user_id":    "U7",
		"quantity":   " 2 ",
		"order_date": "2024-03-05",
	})

	assert.Empty(t, reasons)
	assert.Equal(t, "A1", normalized["order_id"])
	assert.Equal(t, "U7", normalized["user_id"])
	assert.Equal(t, "2", normalized["quantity"])
}

func TestValidateRecordMissingRequiredField(t *testing.T) {
	v := newValidator()

	// Whitespace-only required values count as missing.
	_, reasons := v.ValidateRecord(entity.RawRecord{
		"order_id":   "   ",
		"order_date": "2024-03-05",
	})

	assert.Len(t, reasons, 1)
	assert.Equal(t, entity.ReasonMissingField, reasons[0].Code)
	assert.Equal(t, "order_id", reasons[0].Detail)
}

func TestValidateRecordTypeMismatch(t *testing.T) {
	v := newValidator()

	_, reasons := v.ValidateRecord(entity.RawRecord{
		"order_id":   "A1",
		"quantity":   "two",
		"price":      "9.99",
		"order_date": "2024-03-05",
	})

	assert.Len(t, reasons, 1)
	assert.Equal(t, entity.ReasonTypeMismatch, reasons[0].Code)
	assert.Contains(t, reasons[0].Detail, "quantity")
}

func TestValidateBatchSplitsAndIndexes(t *testing.T) {
	v := newValidator()

	batch := &entity.RawBatch{
		BatchID: "orders/batch.csv",
		Columns: []string{"order_id", "quantity", "price", "order_date"},
		Records: []entity.RawRecord{
			{"order_id": "A1", "quantity": "1", "price": "10", "order_date": "2024-03-05"},
			{"order_id": "", "quantity": "1", "price": "10", "order_date": "2024-03-05"},
			{"order_id": "A3", "quantity": "x", "price": "10", "order_date": "2024-03-05"},
			{"order_id": "A4", "quantity": "2", "price": "5.5", "order_date": "2024-03-05"},
		},
	}

	accepted, rejected := v.ValidateBatch(batch)

	assert.Len(t, accepted, 2)
	assert.Equal(t, 0, accepted[0].RowIndex)
	assert.Equal(t, 3, accepted[1].RowIndex)

	assert.Len(t, rejected, 2)
	assert.Equal(t, 1, rejected[0].RowIndex)
	assert.Equal(t, entity.StageValidating, rejected[0].Stage)
	assert.Equal(t, entity.ReasonMissingField, rejected[0].Reason.Code)
	assert.Equal(t, 2, rejected[1].RowIndex)
	assert.Equal(t, entity.ReasonTypeMismatch, rejected[1].Reason.Code)
}

func TestValidateRecordInvalidEnum(t *testing.T) {
	s := schema.Schema{Fields: []schema.FieldSpec{
		{Name: "status", Type: schema.FieldTypeString, Allowed: []string{"Pending", "Shipped"}},
	}}
	v := schema.NewValidator(s)

	_, reasons := v.ValidateRecord(entity.RawRecord{"status": "Lost"})

	assert.Len(t, reasons, 1)
	assert.Equal(t, entity.ReasonInvalidEnum, reasons[0].Code)
}
