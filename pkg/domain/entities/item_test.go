package entities

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemPlanningRecord_Validate(t *testing.T) {
	lt := 5
	valid := func() *ItemPlanningRecord {
		return &ItemPlanningRecord{PartNumber: "P-1", LeadTimeDays: &lt, LotSizeRule: LotForLot}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name  string
		mut   func(r *ItemPlanningRecord)
		field string
	}{
		{"fixed order qty missing", func(r *ItemPlanningRecord) { r.LotSizeRule = FixedOrderQty }, "fixed_order_qty"},
		{"order multiple missing", func(r *ItemPlanningRecord) { r.LotSizeRule = OrderMultiple }, "order_multiple"},
		{"max below min", func(r *ItemPlanningRecord) {
			r.LotSizeRule = MinMax
			r.MinOrderQty = d("50")
			r.MaxOrderQty = d("10")
		}, "max_order_qty"},
		{"scrap of 100 percent", func(r *ItemPlanningRecord) { r.ScrapPercent = d("100") }, "scrap_percent"},
		{"negative safety stock", func(r *ItemPlanningRecord) { r.SafetyStockParam = d("-1") }, "safety_stock_param"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mut(r)
			err := r.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration))
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestItemPlanningRecord_Derived(t *testing.T) {
	r := &ItemPlanningRecord{OnHand: d("120"), Allocated: d("20"), MakeBuy: MakeBuyMake}

	assert.Equal(t, "100", r.AvailableBalance().String())
	assert.Equal(t, Production, r.OrderType())
	_, ok := r.LeadTime()
	assert.False(t, ok)
}

func TestParseRules(t *testing.T) {
	rule, err := ParseLotSizeRule("min_max")
	require.NoError(t, err)
	assert.Equal(t, MinMax, rule)

	ss, err := ParseSafetyStockRule("DAYS_OF_SUPPLY")
	require.NoError(t, err)
	assert.Equal(t, SafetyStockDaysOfSupply, ss)

	_, err = ParseLotSizeRule("EOQ")
	assert.Error(t, err)
}
