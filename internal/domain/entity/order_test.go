package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/ordersink/internal/domain/entity"
)

func TestParseOrderDate(t *testing.T) {
	expected := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		value string
		want  time.Time
		ok    bool
	}{
		{"ISO date", "2024-03-05", expected, true},
		{"slash date", "2024/03/05", expected, true},
		{"datetime truncated to midnight", "2024-03-05 14:30:45", expected, true},
		{"RFC3339 truncated to midnight", "2024-03-05T14:30:45Z", expected, true},
		{"surrounding whitespace", "  2024-03-05  ", expected, true},
		{"garbage", "not-a-date", time.Time{}, false},
		{"empty", "", time.Time{}, false},
		{"wrong ordering", "05-03-2024", time.Time{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := entity.ParseOrderDate(tc.value)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.True(t, got.Equal(tc.want), "got %s, want %s", got, tc.want)
				assert.Equal(t, time.UTC, got.Location())
			}
		})
	}
}

func TestRawRecordGetTrims(t *testing.T) {
	rec := entity.RawRecord{"order_id": "  A1  ", "status": "shipped"}
	assert.Equal(t, "A1", rec.Get("order_id"))
	assert.Equal(t, "shipped", rec.Get("status"))
	assert.Equal(t, "", rec.Get("missing"))
}

func TestRejectedRecordString(t *testing.T) {
	r := entity.RejectedRecord{
		RowIndex: 4,
		Stage:    entity.StageValidating,
		Reason:   entity.NewReason(entity.ReasonMissingField, "order_id"),
	}
	assert.Equal(t, "row 4 rejected at Validating: MissingField(order_id)", r.String())
}
