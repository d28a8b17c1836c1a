package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MatchStatus is the three-way match state of a purchase order line
type MatchStatus int

const (
	MatchPendingReceipt MatchStatus = iota
	MatchPartiallyReceived
	MatchFullyReceived
	MatchPendingInvoice
	MatchInvoiceReceived
	MatchVarianceDetected
	MatchMatched
	MatchDiscrepancyResolved
	MatchReadyToPay
	MatchPaid
)

// String method for MatchStatus enum
func (s MatchStatus) String() string {
	switch s {
	case MatchPendingReceipt:
		return "PENDING_RECEIPT"
	case MatchPartiallyReceived:
		return "PARTIALLY_RECEIVED"
	case MatchFullyReceived:
		return "FULLY_RECEIVED"
	case MatchPendingInvoice:
		return "PENDING_INVOICE"
	case MatchInvoiceReceived:
		return "INVOICE_RECEIVED"
	case MatchVarianceDetected:
		return "VARIANCE_DETECTED"
	case MatchMatched:
		return "MATCHED"
	case MatchDiscrepancyResolved:
		return "DISCREPANCY_RESOLVED"
	case MatchReadyToPay:
		return "READY_TO_PAY"
	case MatchPaid:
		return "PAID"
	default:
		return "UNKNOWN"
	}
}

// ParseMatchStatus parses the textual form of a MatchStatus
func ParseMatchStatus(s string) (MatchStatus, error) {
	for st := MatchPendingReceipt; st <= MatchPaid; st++ {
		if st.String() == strings.ToUpper(strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return MatchPendingReceipt, fmt.Errorf("invalid match status: %s", s)
}

func (s MatchStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *MatchStatus) UnmarshalText(b []byte) error {
	v, err := ParseMatchStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Rank orders statuses from least to most advanced. VARIANCE_DETECTED ranks below MATCHED
// so a single held line keeps the purchase order header behind.
func (s MatchStatus) Rank() int {
	return int(s)
}

// IsTerminal reports whether no further event may change the line
func (s MatchStatus) IsTerminal() bool {
	return s == MatchPaid
}

// CanTransition reports whether the state graph has an edge from s to next.
// Before evaluation a line may skip ahead as cumulative quantities grow.
// Reversals are the only way backwards and are checked separately.
func (s MatchStatus) CanTransition(next MatchStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case MatchPendingReceipt, MatchPartiallyReceived, MatchFullyReceived,
		MatchPendingInvoice, MatchInvoiceReceived:
		return next > s && next <= MatchMatched
	case MatchVarianceDetected:
		return next == MatchDiscrepancyResolved
	case MatchMatched:
		return next == MatchVarianceDetected || next == MatchReadyToPay
	case MatchDiscrepancyResolved:
		return next == MatchReadyToPay
	case MatchReadyToPay:
		return next == MatchPaid
	case MatchPaid:
		return false
	default:
		return false
	}
}

// AcceptsEvents reports whether receipts and invoices may still be recorded
func (s MatchStatus) AcceptsEvents() bool {
	return s < MatchDiscrepancyResolved
}

// MatchEventKind distinguishes receipts, invoices and reversals
type MatchEventKind string

const (
	EventReceipt  MatchEventKind = "RECEIPT"
	EventInvoice  MatchEventKind = "INVOICE"
	EventReversal MatchEventKind = "REVERSAL"
)

// MatchEvent is one immutable entry on a line. Cumulative quantities are always summed from events.
type MatchEvent struct {
	ID         string          `json:"id"`
	Kind       MatchEventKind  `json:"kind"`
	Key        string          `json:"key,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	Amount     decimal.Decimal `json:"amount"`
	ReversesID string          `json:"reverses_id,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Resolution records the human decision that released a held line
type Resolution struct {
	ResolvedBy string    `json:"resolved_by"`
	ResolvedAt time.Time `json:"resolved_at"`
	Notes      string    `json:"notes"`
}

// StatusChange is an entry of the line's status history
type StatusChange struct {
	From   MatchStatus `json:"from"`
	To     MatchStatus `json:"to"`
	At     time.Time   `json:"at"`
	Reason string      `json:"reason,omitempty"`
}

// MatchLine is the three-way match detail of a purchase order line.
// It is created when the line is issued and never deleted; corrections are reversal events.
type MatchLine struct {
	ID               string          `json:"id"`
	POID             string          `json:"po_id"`
	LineNumber       int             `json:"line_number"`
	PartNumber       PartNumber      `json:"part_number"`
	POQuantity       decimal.Decimal `json:"po_quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	POAmount         decimal.Decimal `json:"po_amount"`
	TolerancePercent decimal.Decimal `json:"tolerance_percent"`

	// Derived from Events by the recompute step
	ReceiptQuantity  decimal.Decimal  `json:"receipt_quantity"`
	ReceiptAmount    decimal.Decimal  `json:"receipt_amount"`
	InvoiceQuantity  decimal.Decimal  `json:"invoice_quantity"`
	InvoiceAmount    decimal.Decimal  `json:"invoice_amount"`
	QuantityVariance decimal.Decimal  `json:"quantity_variance"`
	AmountVariance   *decimal.Decimal `json:"amount_variance,omitempty"`
	VariancePercent  *decimal.Decimal `json:"variance_percent,omitempty"`

	Status     MatchStatus `json:"match_status"`
	IsMatchOK  bool        `json:"is_match_ok"`
	HoldReason string      `json:"hold_reason,omitempty"`
	Resolution *Resolution `json:"resolution,omitempty"`
	PaymentRef string      `json:"payment_ref,omitempty"`

	Events  []MatchEvent   `json:"events"`
	History []StatusChange `json:"history"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuantityOpen is ordered minus received, never below zero
func (l *MatchLine) QuantityOpen() decimal.Decimal {
	open := l.POQuantity.Sub(l.ReceiptQuantity)
	if open.IsNegative() {
		return decimal.Zero
	}
	return open
}

// FindEvent returns the event with the given id
func (l *MatchLine) FindEvent(id string) (*MatchEvent, bool) {
	for i := range l.Events {
		if l.Events[i].ID == id {
			return &l.Events[i], true
		}
	}
	return nil, false
}

// HasEventKey reports whether an external event key was already applied
func (l *MatchLine) HasEventKey(key string) bool {
	if key == "" {
		return false
	}
	for _, ev := range l.Events {
		if ev.Key == key {
			return true
		}
	}
	return false
}

// IsReversed reports whether a reversal already points at the event
func (l *MatchLine) IsReversed(id string) bool {
	for _, ev := range l.Events {
		if ev.Kind == EventReversal && ev.ReversesID == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to mutate
func (l *MatchLine) Clone() *MatchLine {
	c := *l
	c.Events = append([]MatchEvent(nil), l.Events...)
	c.History = append([]StatusChange(nil), l.History...)
	if l.Resolution != nil {
		r := *l.Resolution
		c.Resolution = &r
	}
	if l.AmountVariance != nil {
		v := *l.AmountVariance
		c.AmountVariance = &v
	}
	if l.VariancePercent != nil {
		v := *l.VariancePercent
		c.VariancePercent = &v
	}
	return &c
}
