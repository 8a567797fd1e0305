// Package entity defines the domain model of the ordersink pipeline: raw
// source records, the cleaned warehouse row, rejection reasons and the run
// execution state machine.
package entity

import (
	"strings"
	"time"
)

// RawRecord is one source row, keyed by lowercased column name. Values are
// kept as strings until the transformer coerces them.
type RawRecord map[string]string

// Get returns the trimmed value of the named field. Missing fields return "".
func (r RawRecord) Get(name string) string {
	return strings.TrimSpace(r[name])
}

// RawBatch is an ordered batch of raw records as read from the source object.
type RawBatch struct {
	// BatchID identifies the batch, typically the source object key plus a
	// logical date.
	BatchID string
	// Columns preserves the source column order (lowercased).
	Columns []string
	// Records preserves the source row order.
	Records []RawRecord
}

// IndexedRecord pairs a raw record with its zero-based position in the source
// batch, so rejections reported by later stages can name the original row.
type IndexedRecord struct {
	RowIndex int
	Record   RawRecord
}

// IndexedOrder pairs a transformed order with its source row position and the
// raw record it came from.
type IndexedOrder struct {
	RowIndex int
	Raw      RawRecord
	Order    OrderRecord
}

// OrderRecord is one cleaned order row as stored in the warehouse.
type OrderRecord struct {
	OrderID    string    `gorm:"column:order_id;primaryKey"`
	UserID     string    `gorm:"column:user_id"`
	ProductID  string    `gorm:"column:product_id"`
	Quantity   int       `gorm:"column:quantity"`
	Price      float64   `gorm:"column:price"`
	TotalPrice float64   `gorm:"column:total_price"`
	OrderDate  time.Time `gorm:"column:order_date"`
	Status     string    `gorm:"column:status"`
}

// TableName returns the warehouse table OrderRecord maps to.
func (OrderRecord) TableName() string {
	return "orders_clean"
}

// orderDateLayouts are the accepted order_date representations, tried in order.
var orderDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// ParseOrderDate parses an order_date string against the accepted layouts and
// normalizes it to a calendar date in UTC. The boolean result reports whether
// any layout matched.
func ParseOrderDate(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range orderDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
