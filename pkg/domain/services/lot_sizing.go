package services

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

var hundred = decimal.NewFromInt(100)

// RoundUp rounds a quantity up to the unit-of-measure precision
func RoundUp(q decimal.Decimal, precision int32) decimal.Decimal {
	return q.RoundCeil(precision)
}

// SafetyStockTarget computes the safety stock an item must hold in one bucket.
// bucketGross is the gross requirement of that bucket; dailyGross the average daily
// gross requirement over the horizon.
func SafetyStockTarget(item *entities.ItemPlanningRecord, bucketGross, dailyGross decimal.Decimal) decimal.Decimal {
	var target decimal.Decimal
	switch item.SafetyStockRule {
	case entities.SafetyStockFixed:
		target = item.SafetyStockParam
	case entities.SafetyStockDaysOfSupply:
		target = item.SafetyStockParam.Mul(dailyGross)
	case entities.SafetyStockPercentOfDemand:
		target = item.SafetyStockParam.Div(hundred).Mul(bucketGross)
	}
	if target.IsNegative() {
		return decimal.Zero
	}
	return RoundUp(target, item.Precision)
}

// LotSize is the outcome of applying a lot sizing rule to a net requirement
type LotSize struct {
	Quantity decimal.Decimal
	// Carryover is the part of the net requirement a maximum order quantity left uncovered
	Carryover decimal.Decimal
}

// ApplyLotSize turns a net requirement into an order quantity. A non-positive net yields zero.
func ApplyLotSize(item *entities.ItemPlanningRecord, net decimal.Decimal) LotSize {
	if !net.IsPositive() {
		return LotSize{}
	}
	net = RoundUp(net, item.Precision)

	switch item.LotSizeRule {
	case entities.FixedOrderQty:
		return LotSize{Quantity: roundToMultiple(net, item.FixedOrderQty)}

	case entities.MinMax:
		qty := decimal.Max(net, item.MinOrderQty)
		if item.MaxOrderQty.IsPositive() && qty.GreaterThan(item.MaxOrderQty) {
			return LotSize{Quantity: item.MaxOrderQty, Carryover: net.Sub(item.MaxOrderQty)}
		}
		return LotSize{Quantity: RoundUp(qty, item.Precision)}

	case entities.OrderMultiple:
		qty := roundToMultiple(net, item.OrderMultiple)
		if item.MinOrderQty.GreaterThan(qty) {
			qty = roundToMultiple(item.MinOrderQty, item.OrderMultiple)
		}
		return LotSize{Quantity: qty}

	default:
		return LotSize{Quantity: net}
	}
}

// ReleaseQuantity grosses a receipt up for scrap so that the expected yield covers it
func ReleaseQuantity(item *entities.ItemPlanningRecord, receipt decimal.Decimal) decimal.Decimal {
	if !item.ScrapPercent.IsPositive() || !receipt.IsPositive() {
		return receipt
	}
	yield := decimal.NewFromInt(1).Sub(item.ScrapPercent.Div(hundred))
	return RoundUp(receipt.DivRound(yield, 16), item.Precision)
}

// ExtendComponent computes a component's dependent demand for a parent release quantity
func ExtendComponent(line *entities.BOMLine, parentRelease decimal.Decimal, childPrecision int32) decimal.Decimal {
	return RoundUp(parentRelease.Mul(line.QtyPer), childPrecision)
}

func roundToMultiple(q, multiple decimal.Decimal) decimal.Decimal {
	if !multiple.IsPositive() {
		return q
	}
	return q.Div(multiple).Ceil().Mul(multiple)
}
