package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// MoneyPlaces is the rounding applied to amounts and percentages
const MoneyPlaces = 2

// RecomputeTotals sums the event log into the line's cumulative quantities and amounts
func RecomputeTotals(line *entities.MatchLine) {
	line.ReceiptQuantity = decimal.Zero
	line.ReceiptAmount = decimal.Zero
	line.InvoiceQuantity = decimal.Zero
	line.InvoiceAmount = decimal.Zero

	kinds := make(map[string]entities.MatchEventKind, len(line.Events))
	for _, ev := range line.Events {
		kinds[ev.ID] = ev.Kind
	}

	for _, ev := range line.Events {
		kind, sign := ev.Kind, decimal.NewFromInt(1)
		if ev.Kind == entities.EventReversal {
			kind, sign = kinds[ev.ReversesID], decimal.NewFromInt(-1)
		}
		switch kind {
		case entities.EventReceipt:
			line.ReceiptQuantity = line.ReceiptQuantity.Add(ev.Quantity.Mul(sign))
			line.ReceiptAmount = line.ReceiptAmount.Add(ev.Amount.Mul(sign))
		case entities.EventInvoice:
			line.InvoiceQuantity = line.InvoiceQuantity.Add(ev.Quantity.Mul(sign))
			line.InvoiceAmount = line.InvoiceAmount.Add(ev.Amount.Mul(sign))
		}
	}

	line.QuantityVariance = line.POQuantity.Sub(line.ReceiptQuantity)
	line.AmountVariance = nil
	line.VariancePercent = nil
	if line.ReceiptQuantity.IsPositive() && line.InvoiceQuantity.IsPositive() {
		av := line.InvoiceAmount.Sub(line.ReceiptAmount).Round(MoneyPlaces)
		line.AmountVariance = &av
		if !line.POAmount.IsZero() {
			pct := av.Div(line.POAmount).Mul(hundred).Round(MoneyPlaces)
			line.VariancePercent = &pct
		}
	}
}

// DeriveStatus maps the cumulative totals onto a match status and, for a variance, its hold reason
func DeriveStatus(line *entities.MatchLine) (entities.MatchStatus, string) {
	receipt, invoice := line.ReceiptQuantity, line.InvoiceQuantity

	if !invoice.IsPositive() {
		switch {
		case !receipt.IsPositive():
			return entities.MatchPendingReceipt, ""
		case receipt.LessThan(line.POQuantity):
			return entities.MatchPartiallyReceived, ""
		default:
			return entities.MatchFullyReceived, ""
		}
	}
	if invoice.LessThan(receipt) {
		return entities.MatchPendingInvoice, ""
	}
	if receipt.LessThan(line.POQuantity) || !receipt.IsPositive() {
		return entities.MatchInvoiceReceived, ""
	}

	if invoice.GreaterThan(receipt) {
		return entities.MatchVarianceDetected,
			fmt.Sprintf("invoiced quantity %s exceeds received quantity %s", invoice, receipt)
	}
	if line.VariancePercent == nil {
		if line.AmountVariance != nil && !line.AmountVariance.IsZero() {
			return entities.MatchVarianceDetected,
				fmt.Sprintf("amount variance %s on a zero-value order", line.AmountVariance.StringFixed(MoneyPlaces))
		}
		return entities.MatchMatched, ""
	}
	if line.VariancePercent.Abs().GreaterThan(line.TolerancePercent) {
		return entities.MatchVarianceDetected,
			fmt.Sprintf("amount variance %s%% exceeds tolerance %s%%",
				line.VariancePercent.StringFixed(MoneyPlaces), line.TolerancePercent.String())
	}
	return entities.MatchMatched, ""
}

// ApplyMatchEvent appends a receipt, invoice or reversal to the line and advances its status.
// It returns the status change, or nil when the status did not move.
func ApplyMatchEvent(line *entities.MatchLine, ev entities.MatchEvent, now time.Time) (*entities.StatusChange, error) {
	if line.HasEventKey(ev.Key) {
		return nil, fmt.Errorf("event key %q on line %s: %w", ev.Key, line.ID, entities.ErrDuplicateEvent)
	}

	switch ev.Kind {
	case entities.EventReceipt, entities.EventInvoice:
		if !line.Status.AcceptsEvents() {
			return nil, &entities.TransitionError{From: line.Status, To: line.Status,
				Reason: fmt.Sprintf("%s events are not accepted once a line is %s", ev.Kind, line.Status)}
		}
		if !ev.Quantity.IsPositive() {
			return nil, fmt.Errorf("%s quantity must be positive, got %s: %w", ev.Kind, ev.Quantity, entities.ErrInvalidInput)
		}
		if ev.Amount.IsNegative() {
			return nil, fmt.Errorf("%s amount cannot be negative, got %s: %w", ev.Kind, ev.Amount, entities.ErrInvalidInput)
		}
		if ev.Kind == entities.EventReceipt && ev.Amount.IsZero() {
			ev.Amount = ev.Quantity.Mul(line.UnitPrice).Round(MoneyPlaces)
		}
	case entities.EventReversal:
		if line.Status == entities.MatchPaid {
			return nil, &entities.TransitionError{From: line.Status, To: line.Status, Reason: "paid lines cannot be reversed"}
		}
		target, ok := line.FindEvent(ev.ReversesID)
		if !ok {
			return nil, fmt.Errorf("event %s on line %s: %w", ev.ReversesID, line.ID, entities.ErrNotFound)
		}
		if target.Kind == entities.EventReversal {
			return nil, fmt.Errorf("a reversal cannot be reversed: %w", entities.ErrInvalidInput)
		}
		if line.IsReversed(target.ID) {
			return nil, fmt.Errorf("event %s is already reversed: %w", target.ID, entities.ErrInvalidInput)
		}
		ev.Quantity, ev.Amount = target.Quantity, target.Amount
	default:
		return nil, fmt.Errorf("unknown event kind %q: %w", ev.Kind, entities.ErrInvalidInput)
	}

	if ev.RecordedAt.IsZero() {
		ev.RecordedAt = now
	}
	line.Events = append(line.Events, ev)
	RecomputeTotals(line)

	derived, hold := DeriveStatus(line)
	next := derived
	if ev.Kind != entities.EventReversal {
		next, hold = forwardOnly(line, derived, hold)
	} else {
		line.Resolution = nil
		line.PaymentRef = ""
	}

	line.IsMatchOK = next != entities.MatchVarianceDetected
	line.HoldReason = ""
	if !line.IsMatchOK {
		line.HoldReason = hold
	}
	line.UpdatedAt = now

	reason := string(ev.Kind)
	if ev.Kind == entities.EventReversal {
		reason = fmt.Sprintf("reversal of %s: %s", ev.ReversesID, ev.Reason)
	}
	return setStatus(line, next, reason, now), nil
}

// forwardOnly keeps the status monotone for receipt and invoice events
func forwardOnly(line *entities.MatchLine, derived entities.MatchStatus, hold string) (entities.MatchStatus, string) {
	current := line.Status
	switch {
	case current == entities.MatchVarianceDetected:
		if hold == "" {
			hold = line.HoldReason
		}
		return current, hold
	case current == entities.MatchMatched && derived != entities.MatchMatched:
		if hold == "" {
			hold = fmt.Sprintf("quantities changed after match: received %s, invoiced %s",
				line.ReceiptQuantity, line.InvoiceQuantity)
		}
		return entities.MatchVarianceDetected, hold
	case current.CanTransition(derived):
		return derived, hold
	default:
		return current, hold
	}
}

// ResolveVariance records the human decision on a held line and moves it to READY_TO_PAY
func ResolveVariance(line *entities.MatchLine, res entities.Resolution, now time.Time) ([]entities.StatusChange, error) {
	if line.Status != entities.MatchVarianceDetected {
		return nil, &entities.TransitionError{From: line.Status, To: entities.MatchDiscrepancyResolved,
			Reason: "only lines with a detected variance can be resolved"}
	}
	if res.ResolvedBy == "" {
		return nil, fmt.Errorf("resolver cannot be empty: %w", entities.ErrInvalidInput)
	}
	if res.ResolvedAt.IsZero() {
		res.ResolvedAt = now
	}
	line.Resolution = &res
	line.IsMatchOK = true
	line.UpdatedAt = now

	var changes []entities.StatusChange
	for _, next := range []entities.MatchStatus{entities.MatchDiscrepancyResolved, entities.MatchReadyToPay} {
		if ch := setStatus(line, next, "resolved by "+res.ResolvedBy, now); ch != nil {
			changes = append(changes, *ch)
		}
	}
	return changes, nil
}

// ReleaseForPayment moves a MATCHED line to READY_TO_PAY
func ReleaseForPayment(line *entities.MatchLine, now time.Time) (*entities.StatusChange, error) {
	if line.Status != entities.MatchMatched {
		return nil, &entities.TransitionError{From: line.Status, To: entities.MatchReadyToPay,
			Reason: "only matched lines can be released"}
	}
	line.UpdatedAt = now
	return setStatus(line, entities.MatchReadyToPay, "released for payment", now), nil
}

// MarkPaid closes a READY_TO_PAY line
func MarkPaid(line *entities.MatchLine, paymentRef string, now time.Time) (*entities.StatusChange, error) {
	if line.Status != entities.MatchReadyToPay {
		return nil, &entities.TransitionError{From: line.Status, To: entities.MatchPaid,
			Reason: "only lines ready to pay can be paid"}
	}
	line.PaymentRef = paymentRef
	line.UpdatedAt = now
	return setStatus(line, entities.MatchPaid, "paid "+paymentRef, now), nil
}

// HeaderStatus is the least advanced status among a purchase order's lines
func HeaderStatus(lines []*entities.MatchLine) (entities.MatchStatus, bool) {
	if len(lines) == 0 {
		return entities.MatchPendingReceipt, false
	}
	status := lines[0].Status
	for _, l := range lines[1:] {
		if l.Status.Rank() < status.Rank() {
			status = l.Status
		}
	}
	return status, true
}

func setStatus(line *entities.MatchLine, next entities.MatchStatus, reason string, now time.Time) *entities.StatusChange {
	if line.Status == next {
		return nil
	}
	change := entities.StatusChange{From: line.Status, To: next, At: now, Reason: reason}
	line.History = append(line.History, change)
	line.Status = next
	return &change
}
