package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApplyLotSize(t *testing.T) {
	tests := []struct {
		name          string
		item          entities.ItemPlanningRecord
		net           string
		wantQty       string
		wantCarryover string
	}{
		{
			name:    "lot for lot orders exactly the net requirement",
			item:    entities.ItemPlanningRecord{LotSizeRule: entities.LotForLot},
			net:     "137",
			wantQty: "137",
		},
		{
			name:    "fixed order quantity rounds up to a whole number of lots",
			item:    entities.ItemPlanningRecord{LotSizeRule: entities.FixedOrderQty, FixedOrderQty: d("100")},
			net:     "150",
			wantQty: "200",
		},
		{
			name:    "min max lifts small requirements to the minimum",
			item:    entities.ItemPlanningRecord{LotSizeRule: entities.MinMax, MinOrderQty: d("50"), MaxOrderQty: d("500")},
			net:     "20",
			wantQty: "50",
		},
		{
			name:          "min max caps at maximum and carries the remainder",
			item:          entities.ItemPlanningRecord{LotSizeRule: entities.MinMax, MinOrderQty: d("50"), MaxOrderQty: d("500")},
			net:           "600",
			wantQty:       "500",
			wantCarryover: "100",
		},
		{
			name:    "order multiple rounds up to the multiple",
			item:    entities.ItemPlanningRecord{LotSizeRule: entities.OrderMultiple, OrderMultiple: d("12")},
			net:     "25",
			wantQty: "36",
		},
		{
			name:    "fractional requirement rounds up to unit precision",
			item:    entities.ItemPlanningRecord{LotSizeRule: entities.LotForLot, Precision: 1},
			net:     "2.01",
			wantQty: "2.1",
		},
		{
			name:    "no net requirement orders nothing",
			item:    entities.ItemPlanningRecord{LotSizeRule: entities.FixedOrderQty, FixedOrderQty: d("100")},
			net:     "0",
			wantQty: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyLotSize(&tt.item, d(tt.net))
			assert.True(t, d(tt.wantQty).Equal(got.Quantity), "quantity: want %s, got %s", tt.wantQty, got.Quantity)
			wantCarry := decimal.Zero
			if tt.wantCarryover != "" {
				wantCarry = d(tt.wantCarryover)
			}
			assert.True(t, wantCarry.Equal(got.Carryover), "carryover: want %s, got %s", wantCarry, got.Carryover)
		})
	}
}

func TestSafetyStockTarget(t *testing.T) {
	fixed := &entities.ItemPlanningRecord{SafetyStockRule: entities.SafetyStockFixed, SafetyStockParam: d("40")}
	days := &entities.ItemPlanningRecord{SafetyStockRule: entities.SafetyStockDaysOfSupply, SafetyStockParam: d("5")}
	pct := &entities.ItemPlanningRecord{SafetyStockRule: entities.SafetyStockPercentOfDemand, SafetyStockParam: d("10")}

	assert.Equal(t, "40", SafetyStockTarget(fixed, d("999"), d("999")).String())
	assert.Equal(t, "17", SafetyStockTarget(days, d("0"), d("3.3")).String())
	assert.Equal(t, "13", SafetyStockTarget(pct, d("125"), d("0")).String())
}

func TestReleaseQuantity_GrossesUpForScrap(t *testing.T) {
	item := &entities.ItemPlanningRecord{ScrapPercent: d("10")}

	assert.Equal(t, "112", ReleaseQuantity(item, d("100")).String())
	assert.Equal(t, "100", ReleaseQuantity(&entities.ItemPlanningRecord{}, d("100")).String())
}

func TestExtendComponent(t *testing.T) {
	bl := &entities.BOMLine{QtyPer: d("2.5")}

	assert.Equal(t, "8", ExtendComponent(bl, d("3"), 0).String())
	assert.Equal(t, "7.5", ExtendComponent(bl, d("3"), 1).String())
}
