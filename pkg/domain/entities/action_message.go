package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ActionType is the kind of change an action message suggests
type ActionType int

const (
	ActionReleaseOrder ActionType = iota
	ActionRescheduleIn
	ActionRescheduleOut
	ActionCancelOrder
	ActionAdjustQuantity
	ActionExpedite
	ActionDeExpedite
)

// String method for ActionType enum
func (a ActionType) String() string {
	switch a {
	case ActionReleaseOrder:
		return "RELEASE_ORDER"
	case ActionRescheduleIn:
		return "RESCHEDULE_IN"
	case ActionRescheduleOut:
		return "RESCHEDULE_OUT"
	case ActionCancelOrder:
		return "CANCEL_ORDER"
	case ActionAdjustQuantity:
		return "ADJUST_QUANTITY"
	case ActionExpedite:
		return "EXPEDITE"
	case ActionDeExpedite:
		return "DE_EXPEDITE"
	default:
		return "UNKNOWN"
	}
}

// ParseActionType parses the textual form of an ActionType
func ParseActionType(s string) (ActionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RELEASE_ORDER":
		return ActionReleaseOrder, nil
	case "RESCHEDULE_IN":
		return ActionRescheduleIn, nil
	case "RESCHEDULE_OUT":
		return ActionRescheduleOut, nil
	case "CANCEL_ORDER":
		return ActionCancelOrder, nil
	case "ADJUST_QUANTITY":
		return ActionAdjustQuantity, nil
	case "EXPEDITE":
		return ActionExpedite, nil
	case "DE_EXPEDITE":
		return ActionDeExpedite, nil
	default:
		return ActionReleaseOrder, fmt.Errorf("invalid action type: %s", s)
	}
}

func (a ActionType) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *ActionType) UnmarshalText(b []byte) error {
	v, err := ParseActionType(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// OrderRefKind says whether an action message points at an open or a planned order
type OrderRefKind string

const (
	RefOpenOrder    OrderRefKind = "OPEN_ORDER"
	RefPlannedOrder OrderRefKind = "PLANNED_ORDER"
)

// ActionMessage is an advisory suggestion produced by comparing a fresh plan with open orders.
// Only review/implementation mutate it, and implementing it is done by the purchasing or
// production module, never by the generator.
type ActionMessage struct {
	ID         string       `json:"id"`
	PartNumber PartNumber   `json:"part_number"`
	Type       ActionType   `json:"action_type"`
	Priority   int          `json:"priority"`
	OrderType  OrderType    `json:"order_type"`
	OrderRef   string       `json:"order_ref"`
	RefKind    OrderRefKind `json:"ref_kind"`

	CurrentQuantity   decimal.Decimal `json:"current_quantity"`
	SuggestedQuantity decimal.Decimal `json:"suggested_quantity"`
	CurrentDate       time.Time       `json:"current_date"`
	SuggestedDate     time.Time       `json:"suggested_date"`
	DaysOverdue       int             `json:"days_overdue"`
	Reason            string          `json:"reason"`

	IsReviewed    bool `json:"is_reviewed"`
	IsImplemented bool `json:"is_implemented"`
}

// QuantityDelta is the absolute difference between the suggested and current quantity
func (m *ActionMessage) QuantityDelta() decimal.Decimal {
	return m.SuggestedQuantity.Sub(m.CurrentQuantity).Abs()
}

// Key identifies "the same suggestion" across runs so review state can carry over
func (m *ActionMessage) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		m.PartNumber, m.Type, m.OrderRef,
		m.SuggestedDate.Format("2006-01-02"),
		m.SuggestedQuantity.String(),
		m.OrderType)
}
