package entities

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PartNumber represents a unique item identifier (SKU)
type PartNumber string

// MakeBuyCode tells the planner whether an item is produced in-house or purchased
type MakeBuyCode int

const (
	MakeBuyBuy MakeBuyCode = iota
	MakeBuyMake
)

// String method for MakeBuyCode enum
func (m MakeBuyCode) String() string {
	switch m {
	case MakeBuyBuy:
		return "BUY"
	case MakeBuyMake:
		return "MAKE"
	default:
		return "UNKNOWN"
	}
}

// ParseMakeBuyCode parses the textual form of a MakeBuyCode
func ParseMakeBuyCode(s string) (MakeBuyCode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "":
		return MakeBuyBuy, nil
	case "MAKE":
		return MakeBuyMake, nil
	default:
		return MakeBuyBuy, fmt.Errorf("invalid make/buy code: %s (expected MAKE or BUY)", s)
	}
}

// SafetyStockRule selects how the safety stock target is derived
type SafetyStockRule int

const (
	SafetyStockFixed SafetyStockRule = iota
	SafetyStockDaysOfSupply
	SafetyStockPercentOfDemand
)

// String method for SafetyStockRule enum
func (s SafetyStockRule) String() string {
	switch s {
	case SafetyStockFixed:
		return "FIXED"
	case SafetyStockDaysOfSupply:
		return "DAYS_OF_SUPPLY"
	case SafetyStockPercentOfDemand:
		return "PERCENT_OF_DEMAND"
	default:
		return "UNKNOWN"
	}
}

// ParseSafetyStockRule parses the textual form of a SafetyStockRule
func ParseSafetyStockRule(s string) (SafetyStockRule, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FIXED", "":
		return SafetyStockFixed, nil
	case "DAYS_OF_SUPPLY":
		return SafetyStockDaysOfSupply, nil
	case "PERCENT_OF_DEMAND":
		return SafetyStockPercentOfDemand, nil
	default:
		return SafetyStockFixed, fmt.Errorf(
			"invalid safety stock rule: %s (expected FIXED, DAYS_OF_SUPPLY or PERCENT_OF_DEMAND)", s)
	}
}

// LotSizeRule represents the lot sizing rule for an item
type LotSizeRule int

const (
	LotForLot LotSizeRule = iota
	FixedOrderQty
	MinMax
	OrderMultiple
)

// String method for LotSizeRule enum
func (l LotSizeRule) String() string {
	switch l {
	case LotForLot:
		return "LOT_FOR_LOT"
	case FixedOrderQty:
		return "FIXED_ORDER_QTY"
	case MinMax:
		return "MIN_MAX"
	case OrderMultiple:
		return "ORDER_MULTIPLE"
	default:
		return "UNKNOWN"
	}
}

// ParseLotSizeRule parses the textual form of a LotSizeRule
func ParseLotSizeRule(s string) (LotSizeRule, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOT_FOR_LOT", "LOTFORLOT", "":
		return LotForLot, nil
	case "FIXED_ORDER_QTY":
		return FixedOrderQty, nil
	case "MIN_MAX":
		return MinMax, nil
	case "ORDER_MULTIPLE":
		return OrderMultiple, nil
	default:
		return LotForLot, fmt.Errorf(
			"invalid lot_size_rule: %s (expected LOT_FOR_LOT, FIXED_ORDER_QTY, MIN_MAX or ORDER_MULTIPLE)", s)
	}
}

// ItemPlanningRecord holds the per-item planning parameters the MRP core reads.
// It is owned by the master-data store; planning never mutates it.
type ItemPlanningRecord struct {
	PartNumber    PartNumber
	Description   string
	UnitOfMeasure string
	// Precision is the number of decimal places the unit of measure allows
	Precision int32
	// LeadTimeDays is nil when master data has no lead time
	LeadTimeDays *int
	MakeBuy      MakeBuyCode

	SafetyStockRule  SafetyStockRule
	SafetyStockParam decimal.Decimal

	LotSizeRule   LotSizeRule
	FixedOrderQty decimal.Decimal
	MinOrderQty   decimal.Decimal
	MaxOrderQty   decimal.Decimal // zero = no cap
	OrderMultiple decimal.Decimal

	OnHand       decimal.Decimal
	Allocated    decimal.Decimal
	ScrapPercent decimal.Decimal
}

// LeadTime returns the lead time in days and whether master data defined one
func (r *ItemPlanningRecord) LeadTime() (int, bool) {
	if r.LeadTimeDays == nil {
		return 0, false
	}
	return *r.LeadTimeDays, true
}

// AvailableBalance is the starting projected balance: on hand minus allocated
func (r *ItemPlanningRecord) AvailableBalance() decimal.Decimal {
	return r.OnHand.Sub(r.Allocated)
}

// OrderType maps the make/buy code onto the order type planning produces
func (r *ItemPlanningRecord) OrderType() OrderType {
	if r.MakeBuy == MakeBuyMake {
		return Production
	}
	return Purchase
}

// Validate checks the planning parameters that cannot be defaulted safely
func (r *ItemPlanningRecord) Validate() error {
	if r.PartNumber == "" {
		return &ConfigurationError{Field: "part_number", Reason: "cannot be empty"}
	}
	cfgErr := func(field, reason string, args ...any) error {
		return &ConfigurationError{PartNumber: r.PartNumber, Field: field, Reason: fmt.Sprintf(reason, args...)}
	}
	if r.Precision < 0 {
		return cfgErr("precision", "cannot be negative, got %d", r.Precision)
	}
	if r.LeadTimeDays != nil && *r.LeadTimeDays < 0 {
		return cfgErr("lead_time_days", "cannot be negative, got %d", *r.LeadTimeDays)
	}
	if r.SafetyStockParam.IsNegative() {
		return cfgErr("safety_stock_param", "cannot be negative, got %s", r.SafetyStockParam)
	}
	if r.ScrapPercent.IsNegative() || r.ScrapPercent.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return cfgErr("scrap_percent", "must be in [0, 100), got %s", r.ScrapPercent)
	}

	switch r.LotSizeRule {
	case LotForLot:
	case FixedOrderQty:
		if !r.FixedOrderQty.IsPositive() {
			return cfgErr("fixed_order_qty", "lot sizing rule %s requires a positive fixed order quantity", r.LotSizeRule)
		}
	case MinMax:
		if r.MinOrderQty.IsNegative() {
			return cfgErr("min_order_qty", "cannot be negative, got %s", r.MinOrderQty)
		}
		if r.MaxOrderQty.IsNegative() {
			return cfgErr("max_order_qty", "cannot be negative, got %s", r.MaxOrderQty)
		}
		if r.MaxOrderQty.IsPositive() && r.MaxOrderQty.LessThan(r.MinOrderQty) {
			return cfgErr("max_order_qty", "maximum order quantity (%s) cannot be less than minimum order quantity (%s)",
				r.MaxOrderQty, r.MinOrderQty)
		}
	case OrderMultiple:
		if !r.OrderMultiple.IsPositive() {
			return cfgErr("order_multiple", "lot sizing rule %s requires a positive order multiple", r.LotSizeRule)
		}
	default:
		return cfgErr("lot_size_rule", "unknown rule %d", int(r.LotSizeRule))
	}
	return nil
}

func (m MakeBuyCode) MarshalText() ([]byte, error)     { return []byte(m.String()), nil }
func (s SafetyStockRule) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
func (l LotSizeRule) MarshalText() ([]byte, error)     { return []byte(l.String()), nil }
