package transform_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/ordersink/internal/config"
	"github.com/tigerroll/ordersink/internal/domain/entity"
	"github.com/tigerroll/ordersink/internal/transform"
)

func newTransformer(precision int) *transform.Transformer {
	return transform.NewTransformer(&config.PipelineConfig{Precision: precision})
}

func TestTransformBatchCoercesTypes(t *testing.T) {
	tr := newTransformer(2)

	orders, rejected := tr.TransformBatch([]entity.IndexedRecord{
		{RowIndex: 0, Record: entity.RawRecord{
			"order_id":   "A1",
			"user_id":    "U7",
			"product_id": "P3",
			"quantity":   "3",
			"price":      "10.00",
			"order_date": "2024-03-05",
			"status":     "shipped",
		}},
	})

	assert.Empty(t, rejected)
	assert.Len(t, orders, 1)

	order := orders[0].Order
	assert.Equal(t, "A1", order.OrderID)
	assert.Equal(t, "U7", order.UserID)
	assert.Equal(t, 3, order.Quantity)
	assert.Equal(t, 10.00, order.Price)
	assert.Equal(t, 30.00, order.TotalPrice)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), order.OrderDate)
	assert.Equal(t, "Shipped", order.Status)
}

func TestTransformBatchRecomputesTotalPrice(t *testing.T) {
	tr := newTransformer(2)

	// A total carried by the source is discarded and recomputed.
	orders, rejected := tr.TransformBatch([]entity.IndexedRecord{
		{RowIndex: 0, Record: entity.RawRecord{
			"order_id":    "A1",
			"quantity":    "4",
			"price":       "2.50",
			"total_price": "999.99",
			"order_date":  "2024-03-05",
		}},
	})

	assert.Empty(t, rejected)
	assert.Equal(t, 10.00, orders[0].Order.TotalPrice)
}

func TestTransformBatchRoundsHalfAwayFromZero(t *testing.T) {
	tr := newTransformer(0)

	orders, rejected := tr.TransformBatch([]entity.IndexedRecord{
		{RowIndex: 0, Record: entity.RawRecord{
			"order_id":   "A1",
			"quantity":   "1",
			"price":      "2.5",
			"order_date": "2024-03-05",
		}},
	})

	assert.Empty(t, rejected)
	assert.Equal(t, 3.0, orders[0].Order.Price)
	assert.Equal(t, 3.0, orders[0].Order.TotalPrice)
}

func TestTransformBatchRejectsUnparseableDate(t *testing.T) {
	tr := newTransformer(2)

	orders, rejected := tr.TransformBatch([]entity.IndexedRecord{
		{RowIndex: 7, Record: entity.RawRecord{
			"order_id":   "A1",
			"quantity":   "1",
			"price":      "1",
			"order_date": "yesterday",
		}},
	})

	assert.Empty(t, orders)
	assert.Len(t, rejected, 1)
	assert.Equal(t, 7, rejected[0].RowIndex)
	assert.Equal(t, entity.StageTransforming, rejected[0].Stage)
	assert.Equal(t, entity.ReasonInvalidDate, rejected[0].Reason.Code)
	assert.Contains(t, rejected[0].Reason.Detail, "yesterday")
}

func TestTransformBatchNormalizesStatus(t *testing.T) {
	tr := newTransformer(2)

	cases := map[string]string{
		"shipped":      "Shipped",
		" SHIPPED ":    "Shipped",
		"pEnDiNg":      "Pending",
		"":             "",
		"back ordered": "Back ordered",
	}

	for input, want := range cases {
		orders, rejected := tr.TransformBatch([]entity.IndexedRecord{
			{RowIndex: 0, Record: entity.RawRecord{
				"order_id":   "A1",
				"quantity":   "1",
				"price":      "1",
				"order_date": "2024-03-05",
				"status":     input,
			}},
		})
		assert.Empty(t, rejected)
		assert.Equal(t, want, orders[0].Order.Status, "input %q", input)
	}
}

func TestTransformBatchPreservesRowIndexAndRaw(t *testing.T) {
	tr := newTransformer(2)
	raw := entity.RawRecord{
		"order_id":   "A1",
		"quantity":   "1",
		"price":      "1",
		"order_date": "2024-03-05",
	}

	orders, _ := tr.TransformBatch([]entity.IndexedRecord{{RowIndex: 12, Record: raw}})

	assert.Equal(t, 12, orders[0].RowIndex)
	assert.Equal(t, raw, orders[0].Raw)
}
