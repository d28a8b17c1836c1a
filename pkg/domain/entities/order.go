package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderType represents the type of planned or open order
type OrderType int

const (
	Purchase OrderType = iota
	Production
)

// String method for OrderType enum
func (o OrderType) String() string {
	switch o {
	case Purchase:
		return "PURCHASE"
	case Production:
		return "PRODUCTION"
	default:
		return "UNKNOWN"
	}
}

// ParseOrderType parses the textual form of an OrderType
func ParseOrderType(s string) (OrderType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PURCHASE", "BUY":
		return Purchase, nil
	case "PRODUCTION", "MAKE":
		return Production, nil
	default:
		return Purchase, fmt.Errorf("invalid order type: %s (expected PURCHASE or PRODUCTION)", s)
	}
}

func (o OrderType) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *OrderType) UnmarshalText(b []byte) error {
	v, err := ParseOrderType(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// OrderStatus is the lifecycle status of an order
type OrderStatus int

const (
	StatusPlanned OrderStatus = iota
	StatusFirmed
	StatusReleased
)

// String method for OrderStatus enum
func (s OrderStatus) String() string {
	switch s {
	case StatusPlanned:
		return "PLANNED"
	case StatusFirmed:
		return "FIRMED"
	case StatusReleased:
		return "RELEASED"
	default:
		return "UNKNOWN"
	}
}

// ParseOrderStatus parses the textual form of an OrderStatus
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PLANNED":
		return StatusPlanned, nil
	case "FIRMED":
		return StatusFirmed, nil
	case "RELEASED":
		return StatusReleased, nil
	default:
		return StatusPlanned, fmt.Errorf("invalid order status: %s (expected PLANNED, FIRMED or RELEASED)", s)
	}
}

func (s OrderStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *OrderStatus) UnmarshalText(b []byte) error {
	v, err := ParseOrderStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// PlannedOrder is a suggested purchase or production order produced by an MRP run.
// The whole set of PLANNED orders is replaced on every run.
type PlannedOrder struct {
	ID         string          `json:"id"`
	PartNumber PartNumber      `json:"part_number"`
	Bucket     int             `json:"bucket"`
	Type       OrderType       `json:"type"`
	Status     OrderStatus     `json:"status"`
	Quantity   decimal.Decimal `json:"quantity"`
	// ReceiptQuantity is what reaches stock after scrap; equals Quantity when the item has no scrap
	ReceiptQuantity decimal.Decimal `json:"receipt_quantity"`
	NeedDate        time.Time       `json:"need_date"`
	ReleaseDate     time.Time       `json:"release_date"`
	PastDue         bool            `json:"past_due"`
}

// NewPlannedOrder creates a validated PlannedOrder
func NewPlannedOrder(
	id string,
	partNumber PartNumber,
	bucket int,
	orderType OrderType,
	quantity, receiptQty decimal.Decimal,
	needDate, releaseDate time.Time,
) (*PlannedOrder, error) {
	if string(partNumber) == "" {
		return nil, fmt.Errorf("part number cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("quantity must be positive, got %s", quantity)
	}
	if receiptQty.GreaterThan(quantity) {
		return nil, fmt.Errorf("receipt quantity %s cannot exceed order quantity %s", receiptQty, quantity)
	}
	if releaseDate.After(needDate) {
		return nil, fmt.Errorf("release date %v cannot be after need date %v", releaseDate, needDate)
	}

	return &PlannedOrder{
		ID:              id,
		PartNumber:      partNumber,
		Bucket:          bucket,
		Type:            orderType,
		Status:          StatusPlanned,
		Quantity:        quantity,
		ReceiptQuantity: receiptQty,
		NeedDate:        needDate,
		ReleaseDate:     releaseDate,
	}, nil
}

// OpenOrder is an already firmed or released purchase/production order.
// Its open quantity is a scheduled receipt for netting.
type OpenOrder struct {
	ID               string          `json:"id"`
	PartNumber       PartNumber      `json:"part_number"`
	Type             OrderType       `json:"type"`
	Status           OrderStatus     `json:"status"`
	QuantityOrdered  decimal.Decimal `json:"quantity_ordered"`
	QuantityReceived decimal.Decimal `json:"quantity_received"`
	DueDate          time.Time       `json:"due_date"`
}

// QuantityOpen is ordered minus received, never below zero
func (o *OpenOrder) QuantityOpen() decimal.Decimal {
	open := o.QuantityOrdered.Sub(o.QuantityReceived)
	if open.IsNegative() {
		return decimal.Zero
	}
	return open
}

// Validate checks the invariants of an open order
func (o *OpenOrder) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("open order id cannot be empty")
	}
	if o.PartNumber == "" {
		return fmt.Errorf("open order %s: part number cannot be empty", o.ID)
	}
	if o.Status == StatusPlanned {
		return fmt.Errorf("open order %s: status must be FIRMED or RELEASED", o.ID)
	}
	if o.QuantityReceived.IsNegative() || o.QuantityOrdered.IsNegative() {
		return fmt.Errorf("open order %s: quantities cannot be negative", o.ID)
	}
	if o.QuantityReceived.GreaterThan(o.QuantityOrdered) {
		return fmt.Errorf("open order %s: received %s exceeds ordered %s", o.ID, o.QuantityReceived, o.QuantityOrdered)
	}
	return nil
}
