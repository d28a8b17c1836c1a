package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

var matchNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newLine() *entities.MatchLine {
	return &entities.MatchLine{
		ID:               "L1",
		POID:             "PO-1",
		LineNumber:       1,
		POQuantity:       d("100"),
		UnitPrice:        d("10"),
		POAmount:         d("1000"),
		TolerancePercent: d("5"),
		Status:           entities.MatchPendingReceipt,
		IsMatchOK:        true,
	}
}

func apply(t *testing.T, l *entities.MatchLine, kind entities.MatchEventKind, id, qty, amount string) {
	t.Helper()
	_, err := ApplyMatchEvent(l, entities.MatchEvent{ID: id, Kind: kind, Quantity: d(qty), Amount: d(amount)}, matchNow)
	require.NoError(t, err)
}

func TestApplyMatchEvent_ReceiptProgression(t *testing.T) {
	l := newLine()

	apply(t, l, entities.EventReceipt, "r1", "40", "400")
	assert.Equal(t, entities.MatchPartiallyReceived, l.Status)
	assert.Equal(t, "60", l.QuantityVariance.String())

	apply(t, l, entities.EventReceipt, "r2", "60", "600")
	assert.Equal(t, entities.MatchFullyReceived, l.Status)
	assert.Equal(t, "1000", l.ReceiptAmount.String())
	assert.Len(t, l.History, 2)
}

func TestApplyMatchEvent_WithinToleranceMatches(t *testing.T) {
	l := newLine()
	apply(t, l, entities.EventReceipt, "r1", "100", "1000")
	apply(t, l, entities.EventInvoice, "i1", "100", "1045")

	require.NotNil(t, l.VariancePercent)
	assert.Equal(t, "4.5", l.VariancePercent.String())
	assert.Equal(t, entities.MatchMatched, l.Status)
	assert.True(t, l.IsMatchOK)
	assert.Empty(t, l.HoldReason)
}

func TestApplyMatchEvent_OutsideToleranceHolds(t *testing.T) {
	l := newLine()
	apply(t, l, entities.EventReceipt, "r1", "100", "1000")
	apply(t, l, entities.EventInvoice, "i1", "100", "1060")

	require.NotNil(t, l.VariancePercent)
	assert.Equal(t, "6", l.VariancePercent.String())
	assert.Equal(t, entities.MatchVarianceDetected, l.Status)
	assert.False(t, l.IsMatchOK)
	assert.Contains(t, l.HoldReason, "exceeds tolerance")
}

func TestApplyMatchEvent_ReceiptAmountDefaultsToUnitPrice(t *testing.T) {
	l := newLine()
	apply(t, l, entities.EventReceipt, "r1", "100", "0")

	assert.Equal(t, "1000", l.ReceiptAmount.String())
}

func TestApplyMatchEvent_PartialInvoicePending(t *testing.T) {
	l := newLine()
	apply(t, l, entities.EventReceipt, "r1", "100", "1000")
	apply(t, l, entities.EventInvoice, "i1", "50", "500")
	assert.Equal(t, entities.MatchPendingInvoice, l.Status)

	apply(t, l, entities.EventInvoice, "i2", "50", "500")
	assert.Equal(t, entities.MatchMatched, l.Status)
}

func TestApplyMatchEvent_OverInvoicedQuantityIsVariance(t *testing.T) {
	l := newLine()
	apply(t, l, entities.EventReceipt, "r1", "100", "1000")
	apply(t, l, entities.EventInvoice, "i1", "101", "1000")

	assert.Equal(t, entities.MatchVarianceDetected, l.Status)
	assert.Contains(t, l.HoldReason, "exceeds received quantity")
}

func TestApplyMatchEvent_VarianceNeverAutoResolves(t *testing.T) {
	l := newLine()
	apply(t, l, entities.EventReceipt, "r1", "90", "900")
	apply(t, l, entities.EventInvoice, "i1", "100", "1000")
	assert.Equal(t, entities.MatchInvoiceReceived, l.Status)

	apply(t, l, entities.EventReceipt, "r2", "10", "160")
	require.Equal(t, entities.MatchVarianceDetected, l.Status)

	// further receipts do not clear the hold
	apply(t, l, entities.EventReceipt, "r3", "1", "0")
	assert.Equal(t, entities.MatchVarianceDetected, l.Status)
	assert.False(t, l.IsMatchOK)
}

func TestApplyMatchEvent_DuplicateKeyRejected(t *testing.T) {
	l := newLine()
	ev := entities.MatchEvent{ID: "r1", Kind: entities.EventReceipt, Key: "GRN-7", Quantity: d("10"), Amount: d("100")}
	_, err := ApplyMatchEvent(l, ev, matchNow)
	require.NoError(t, err)

	ev.ID = "r2"
	_, err = ApplyMatchEvent(l, ev, matchNow)
	assert.ErrorIs(t, err, entities.ErrDuplicateEvent)
	assert.Equal(t, "10", l.ReceiptQuantity.String())
}

func TestApplyMatchEvent_ReversalMovesBackwards(t *testing.T) {
	l := newLine()
	apply(t, l, entities.EventReceipt, "r1", "100", "1000")
	apply(t, l, entities.EventInvoice, "i1", "100", "1060")
	require.Equal(t, entities.MatchVarianceDetected, l.Status)

	change, err := ApplyMatchEvent(l, entities.MatchEvent{ID: "x1", Kind: entities.EventReversal, ReversesID: "i1", Reason: "wrong price"}, matchNow)
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.Equal(t, entities.MatchFullyReceived, l.Status)
	assert.True(t, l.InvoiceQuantity.IsZero())
	assert.Nil(t, l.VariancePercent)
	assert.True(t, l.IsMatchOK)

	_, err = ApplyMatchEvent(l, entities.MatchEvent{ID: "x2", Kind: entities.EventReversal, ReversesID: "i1"}, matchNow)
	assert.ErrorIs(t, err, entities.ErrInvalidInput)
}

func TestResolveVarianceThenPay(t *testing.T) {
	l := newLine()
	apply(t, l, entities.EventReceipt, "r1", "100", "1000")
	apply(t, l, entities.EventInvoice, "i1", "100", "1060")

	changes, err := ResolveVariance(l, entities.Resolution{ResolvedBy: "ap.clerk", Notes: "freight agreed"}, matchNow)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, entities.MatchDiscrepancyResolved, changes[0].To)
	assert.Equal(t, entities.MatchReadyToPay, l.Status)
	assert.Equal(t, matchNow, l.Resolution.ResolvedAt)

	_, err = ApplyMatchEvent(l, entities.MatchEvent{ID: "r2", Kind: entities.EventReceipt, Quantity: d("1")}, matchNow)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)

	_, err = MarkPaid(l, "PAY-1", matchNow)
	require.NoError(t, err)
	assert.Equal(t, entities.MatchPaid, l.Status)

	_, err = ApplyMatchEvent(l, entities.MatchEvent{ID: "x", Kind: entities.EventReversal, ReversesID: "r1"}, matchNow)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)
}

func TestResolveVariance_RequiresVariance(t *testing.T) {
	_, err := ResolveVariance(newLine(), entities.Resolution{ResolvedBy: "x"}, matchNow)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)
}

func TestReleaseForPayment(t *testing.T) {
	l := newLine()
	_, err := ReleaseForPayment(l, matchNow)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)

	apply(t, l, entities.EventReceipt, "r1", "100", "1000")
	apply(t, l, entities.EventInvoice, "i1", "100", "1000")
	change, err := ReleaseForPayment(l, matchNow)
	require.NoError(t, err)
	assert.Equal(t, entities.MatchReadyToPay, change.To)
}

func TestHeaderStatus_LeastAdvancedLineWins(t *testing.T) {
	a, b, c := newLine(), newLine(), newLine()
	a.Status = entities.MatchReadyToPay
	b.Status = entities.MatchVarianceDetected
	c.Status = entities.MatchMatched

	status, ok := HeaderStatus([]*entities.MatchLine{a, b, c})
	require.True(t, ok)
	assert.Equal(t, entities.MatchVarianceDetected, status)

	_, ok = HeaderStatus(nil)
	assert.False(t, ok)
}
