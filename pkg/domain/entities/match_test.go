package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchStatus_CanTransition(t *testing.T) {
	assert.True(t, MatchPendingReceipt.CanTransition(MatchPartiallyReceived))
	assert.True(t, MatchPartiallyReceived.CanTransition(MatchInvoiceReceived))
	assert.True(t, MatchMatched.CanTransition(MatchVarianceDetected))
	assert.True(t, MatchVarianceDetected.CanTransition(MatchDiscrepancyResolved))

	assert.False(t, MatchFullyReceived.CanTransition(MatchPartiallyReceived))
	assert.False(t, MatchVarianceDetected.CanTransition(MatchMatched))
	assert.False(t, MatchFullyReceived.CanTransition(MatchReadyToPay))
	assert.False(t, MatchPaid.CanTransition(MatchReadyToPay))
}

func TestMatchStatus_TextRoundTrip(t *testing.T) {
	for s := MatchPendingReceipt; s <= MatchPaid; s++ {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var back MatchStatus
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}
	assert.Error(t, new(MatchStatus).UnmarshalText([]byte("SETTLED")))
}

func TestMatchLine_EventHelpers(t *testing.T) {
	l := &MatchLine{POQuantity: d("10"), ReceiptQuantity: d("12"), Events: []MatchEvent{
		{ID: "e1", Kind: EventReceipt, Key: "GRN-1"},
		{ID: "e2", Kind: EventReversal, ReversesID: "e1"},
	}}

	assert.True(t, l.QuantityOpen().IsZero())
	assert.True(t, l.HasEventKey("GRN-1"))
	assert.False(t, l.HasEventKey(""))
	assert.True(t, l.IsReversed("e1"))

	c := l.Clone()
	c.Events[0].Key = "changed"
	assert.Equal(t, "GRN-1", l.Events[0].Key)
}
