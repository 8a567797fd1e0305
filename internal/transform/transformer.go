// Package transform coerces validated raw records into typed order rows
// ready for the warehouse. Transformation is deterministic: no clock, no
// randomness, no I/O.
package transform

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/tigerroll/ordersink/internal/config"
	"github.com/tigerroll/ordersink/internal/domain/entity"
)

// Transformer turns validated raw records into entity.OrderRecord values.
type Transformer struct {
	// precision is the number of decimal places monetary values are rounded to.
	precision int
}

// NewTransformer creates a Transformer from the pipeline configuration.
func NewTransformer(cfg *config.PipelineConfig) *Transformer {
	return &Transformer{precision: cfg.Precision}
}

// TransformBatch transforms every record, splitting the batch into typed
// orders and rejected rows. total_price is always recomputed from quantity
// and price; any total carried by the source is discarded.
func (t *Transformer) TransformBatch(records []entity.IndexedRecord) ([]entity.IndexedOrder, []entity.RejectedRecord) {
	orders := make([]entity.IndexedOrder, 0, len(records))
	var rejected []entity.RejectedRecord

	for _, rec := range records {
		order, reason, ok := t.transformRecord(rec.Record)
		if !ok {
			rejected = append(rejected, entity.RejectedRecord{
				RowIndex: rec.RowIndex,
				Raw:      rec.Record,
				Stage:    entity.StageTransforming,
				Reason:   reason,
			})
			continue
		}
		orders = append(orders, entity.IndexedOrder{RowIndex: rec.RowIndex, Raw: rec.Record, Order: order})
	}
	return orders, rejected
}

// transformRecord coerces one validated record. The schema validator has
// already guaranteed numeric fields parse, so parse errors here are treated
// as type mismatches rather than panics.
func (t *Transformer) transformRecord(raw entity.RawRecord) (entity.OrderRecord, entity.Reason, bool) {
	quantity, err := strconv.Atoi(raw.Get("quantity"))
	if err != nil {
		return entity.OrderRecord{}, entity.NewReason(entity.ReasonTypeMismatch, "quantity, int, %q", raw.Get("quantity")), false
	}

	price, err := strconv.ParseFloat(raw.Get("price"), 64)
	if err != nil {
		return entity.OrderRecord{}, entity.NewReason(entity.ReasonTypeMismatch, "price, float, %q", raw.Get("price")), false
	}

	orderDate, ok := entity.ParseOrderDate(raw.Get("order_date"))
	if !ok {
		return entity.OrderRecord{}, entity.NewReason(entity.ReasonInvalidDate, "order_date, %q", raw.Get("order_date")), false
	}

	price = roundHalfAway(price, t.precision)

	return entity.OrderRecord{
		OrderID:    raw.Get("order_id"),
		UserID:     raw.Get("user_id"),
		ProductID:  raw.Get("product_id"),
		Quantity:   quantity,
		Price:      price,
		TotalPrice: roundHalfAway(float64(quantity)*price, t.precision),
		OrderDate:  orderDate,
		Status:     normalizeStatus(raw.Get("status")),
	}, entity.Reason{}, true
}

// roundHalfAway rounds v to the given number of decimal places, with ties
// rounded away from zero.
func roundHalfAway(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

// normalizeStatus trims and title-cases a status value. Unknown statuses pass
// through unchanged in meaning; the pipeline does not constrain the value set.
func normalizeStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
