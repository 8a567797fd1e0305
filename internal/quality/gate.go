// Package quality applies data quality rules to transformed orders and
// escalates batch-level failures when the rejection rate exceeds the
// configured ceiling.
package quality

import (
	"fmt"
	"time"

	"github.com/tigerroll/ordersink/internal/config"
	"github.com/tigerroll/ordersink/internal/domain/entity"
	"github.com/tigerroll/ordersink/internal/support/exception"
	"github.com/tigerroll/ordersink/internal/support/logger"
)

// Rule is one quality check over a transformed order. It returns a rejection
// reason, or nil when the order passes.
type Rule struct {
	// Name identifies the rule in logs.
	Name string
	// Check inspects one order. now is the gate's reference time, shared by
	// all records of a batch.
	Check func(order entity.OrderRecord, now time.Time) *entity.Reason
}

// Gate runs an ordered list of rules over a batch. Per record, rules
// short-circuit on the first failure.
type Gate struct {
	rules           []Rule
	threshold       float64
	futureTolerance time.Duration
	now             func() time.Time
}

// NewGate creates a Gate with the standard order rules and the configured
// rejection-rate ceiling.
func NewGate(cfg *config.PipelineConfig) *Gate {
	g := &Gate{
		threshold:       cfg.RejectionRateThreshold,
		futureTolerance: time.Duration(cfg.FutureDateToleranceHours) * time.Hour,
		now:             time.Now,
	}
	g.rules = standardRules(g.futureTolerance)
	return g
}

// standardRules returns the quality rules in evaluation order.
func standardRules(futureTolerance time.Duration) []Rule {
	return []Rule{
		{
			Name: "order_id_present",
			Check: func(order entity.OrderRecord, _ time.Time) *entity.Reason {
				if order.OrderID == "" {
					r := entity.NewReason(entity.ReasonMissingField, "order_id")
					return &r
				}
				return nil
			},
		},
		{
			Name: "quantity_positive",
			Check: func(order entity.OrderRecord, _ time.Time) *entity.Reason {
				if order.Quantity <= 0 {
					r := entity.NewReason(entity.ReasonNonPositiveQuantity, "quantity, %d", order.Quantity)
					return &r
				}
				return nil
			},
		},
		{
			Name: "price_non_negative",
			Check: func(order entity.OrderRecord, _ time.Time) *entity.Reason {
				if order.Price < 0 {
					r := entity.NewReason(entity.ReasonNegativePrice, "price, %g", order.Price)
					return &r
				}
				return nil
			},
		},
		{
			Name: "order_date_not_future",
			Check: func(order entity.OrderRecord, now time.Time) *entity.Reason {
				if order.OrderDate.After(now.Add(futureTolerance)) {
					r := entity.NewReason(entity.ReasonFutureOrderDate, "order_date, %s", order.OrderDate.Format("2006-01-02"))
					return &r
				}
				return nil
			},
		},
	}
}

// EvaluateBatch applies the rules to every order. recordsTotal and
// rejectedSoFar describe the whole batch so the rejection rate covers
// rejections from earlier stages as well. When the rate exceeds the ceiling,
// or the batch carries no records at all, exception.ErrBatchQualityFailure is
// returned and the batch must not be loaded.
func (g *Gate) EvaluateBatch(orders []entity.IndexedOrder, recordsTotal, rejectedSoFar int) ([]entity.IndexedOrder, []entity.RejectedRecord, error) {
	if recordsTotal == 0 {
		logger.Errorf("Batch contains no records; refusing to complete an empty run.")
		return nil, nil, fmt.Errorf("%w: batch contains no records", exception.ErrBatchQualityFailure)
	}

	now := g.now()
	accepted := make([]entity.IndexedOrder, 0, len(orders))
	var rejected []entity.RejectedRecord

	for _, io := range orders {
		if reason := g.evaluateRecord(io.Order, now); reason != nil {
			rejected = append(rejected, entity.RejectedRecord{
				RowIndex: io.RowIndex,
				Raw:      io.Raw,
				Stage:    entity.StageQualityChecking,
				Reason:   *reason,
			})
			continue
		}
		accepted = append(accepted, io)
	}

	rate := float64(rejectedSoFar+len(rejected)) / float64(recordsTotal)
	if rate > g.threshold {
		logger.Errorf("Batch rejection rate %.4f exceeds threshold %.4f (%d of %d records rejected).",
			rate, g.threshold, rejectedSoFar+len(rejected), recordsTotal)
		return accepted, rejected, exception.ErrBatchQualityFailure
	}
	return accepted, rejected, nil
}

// evaluateRecord runs the rules in order and returns the first failure.
func (g *Gate) evaluateRecord(order entity.OrderRecord, now time.Time) *entity.Reason {
	for _, rule := range g.rules {
		if reason := rule.Check(order, now); reason != nil {
			logger.Debugf("Quality rule '%s' rejected order '%s': %s", rule.Name, order.OrderID, reason)
			return reason
		}
	}
	return nil
}
