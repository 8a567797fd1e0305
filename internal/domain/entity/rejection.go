package entity

import "fmt"

// ReasonCode classifies why a record was rejected.
type ReasonCode string

const (
	// ReasonMissingField marks a required field that is absent or whitespace-only.
	ReasonMissingField ReasonCode = "MissingField"
	// ReasonTypeMismatch marks a field whose value cannot be coerced to its declared type.
	ReasonTypeMismatch ReasonCode = "TypeMismatch"
	// ReasonInvalidEnum marks a field whose value is outside its allowed set.
	ReasonInvalidEnum ReasonCode = "InvalidEnum"
	// ReasonInvalidDate marks an order_date that matches none of the accepted layouts.
	ReasonInvalidDate ReasonCode = "InvalidDate"
	// ReasonNonPositiveQuantity marks a quantity of zero or less.
	ReasonNonPositiveQuantity ReasonCode = "NonPositiveQuantity"
	// ReasonNegativePrice marks a price below zero.
	ReasonNegativePrice ReasonCode = "NegativePrice"
	// ReasonFutureOrderDate marks an order_date beyond the configured future tolerance.
	ReasonFutureOrderDate ReasonCode = "FutureOrderDate"
)

// Reason is one rejection reason: a code plus the detail it applies to,
// e.g. MissingField(order_id) or TypeMismatch(quantity, int, "abc").
type Reason struct {
	Code   ReasonCode
	Detail string
}

// String renders the reason as Code(Detail), or just Code when no detail exists.
func (r Reason) String() string {
	if r.Detail == "" {
		return string(r.Code)
	}
	return fmt.Sprintf("%s(%s)", r.Code, r.Detail)
}

// NewReason creates a Reason with a formatted detail.
func NewReason(code ReasonCode, detailFormat string, a ...interface{}) Reason {
	return Reason{Code: code, Detail: fmt.Sprintf(detailFormat, a...)}
}

// Stage names the pipeline stage that produced a rejection.
type Stage string

const (
	StageValidating      Stage = "Validating"
	StageTransforming    Stage = "Transforming"
	StageQualityChecking Stage = "QualityChecking"
	StageLoading         Stage = "Loading"
)

// RejectedRecord carries one rejected source row together with where and why
// it was rejected. Rejections are collected, never aborted on.
type RejectedRecord struct {
	// RowIndex is the zero-based position of the row in the source batch.
	RowIndex int
	// Raw is the offending source row.
	Raw RawRecord
	// Stage is the pipeline stage that rejected the row.
	Stage Stage
	// Reason is why the row was rejected.
	Reason Reason
}

// String renders a rejection in its log form.
func (r RejectedRecord) String() string {
	return fmt.Sprintf("row %d rejected at %s: %s", r.RowIndex, r.Stage, r.Reason)
}
