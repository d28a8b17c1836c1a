package csv

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const itemsCSV = `part_number,description,unit_of_measure,precision,lead_time_days,make_buy,safety_stock_rule,safety_stock_param,lot_size_rule,fixed_order_qty,min_order_qty,max_order_qty,order_multiple,on_hand,allocated,scrap_percent
BIKE,Bicycle,EA,0,5,MAKE,FIXED,2,LOT_FOR_LOT,,,,,10,3,
STEEL,Steel tube,M,2,,BUY,PERCENT_OF_DEMAND,10,MIN_MAX,,50,500,,0,0,5
`

const bomCSV = `parent_pn,child_pn,qty_per,find_number,offset_days
BIKE,STEEL,2.5,10,1
`

const demandsCSV = `part_number,quantity,need_date,demand_source,reference
BIKE,20,2025-03-17,SALES_ORDER,SO-1
`

func TestLoader_LoadItems(t *testing.T) {
	dir := t.TempDir()
	items, err := NewLoader().LoadItems(writeFile(t, dir, ItemsFile, itemsCSV))
	require.NoError(t, err)
	require.Len(t, items, 2)

	bike := items[0]
	assert.Equal(t, entities.PartNumber("BIKE"), bike.PartNumber)
	assert.Equal(t, entities.MakeBuyMake, bike.MakeBuy)
	lt, ok := bike.LeadTime()
	assert.True(t, ok)
	assert.Equal(t, 5, lt)
	assert.True(t, bike.OnHand.Equal(decimal.NewFromInt(10)))
	assert.True(t, bike.FixedOrderQty.IsZero())

	steel := items[1]
	_, ok = steel.LeadTime()
	assert.False(t, ok, "blank lead time stays undefined")
	assert.Equal(t, int32(2), steel.Precision)
	assert.Equal(t, entities.MinMax, steel.LotSizeRule)
	assert.Equal(t, entities.SafetyStockPercentOfDemand, steel.SafetyStockRule)
	assert.True(t, steel.MaxOrderQty.Equal(decimal.NewFromInt(500)))
	assert.True(t, steel.ScrapPercent.Equal(decimal.NewFromInt(5)))
}

func TestLoader_Errors(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader()

	tests := []struct {
		name    string
		load    func(string) error
		content string
		wantErr string
	}{
		{
			name:    "header mismatch",
			load:    func(p string) error { _, err := loader.LoadBOM(p); return err },
			content: "parent,child\nA,B\n",
			wantErr: "header mismatch",
		},
		{
			name:    "bad quantity reports row",
			load:    func(p string) error { _, err := loader.LoadDemands(p); return err },
			content: "part_number,quantity,need_date,demand_source,reference\nA,ten,2025-03-03,FORECAST,\n",
			wantErr: "row 2: invalid quantity",
		},
		{
			name:    "bad date",
			load:    func(p string) error { _, err := loader.LoadDemands(p); return err },
			content: "part_number,quantity,need_date,demand_source,reference\nA,1,03/03/2025,FORECAST,\n",
			wantErr: "expected YYYY-MM-DD",
		},
		{
			name:    "self referencing bom line",
			load:    func(p string) error { _, err := loader.LoadBOM(p); return err },
			content: "parent_pn,child_pn,qty_per,find_number,offset_days\nA,A,1,10,0\n",
			wantErr: "cyclic",
		},
		{
			name:    "planned status is not an open order",
			load:    func(p string) error { _, err := loader.LoadOpenOrders(p); return err },
			content: "order_id,part_number,order_type,status,quantity_ordered,quantity_received,due_date\nPO-1,A,PURCHASE,PLANNED,10,0,2025-03-03\n",
			wantErr: "FIRMED or RELEASED",
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, fmt.Sprintf("case%d.csv", i), tt.content)
			err := tt.load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoader_LoadScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ItemsFile, itemsCSV)
	writeFile(t, dir, BOMFile, bomCSV)
	writeFile(t, dir, DemandsFile, demandsCSV)
	writeFile(t, dir, OpenOrdersFile, "order_id,part_number,order_type,status,quantity_ordered,quantity_received,due_date\nPO-1,STEEL,PURCHASE,RELEASED,100,40,2025-03-10\n")
	writeFile(t, dir, RoutingsFile, "part_number,sequence,work_center_id,setup_hours,run_hours_per_unit,offset_days\nBIKE,10,ASSY,1,0.5,0\n")
	writeFile(t, dir, WorkCentersFile, "work_center_id,name,hours_per_day,working_days_per_week,efficiency_percent\nASSY,Assembly,8,5,100\n")
	writeFile(t, dir, ActualsFile, "work_center_id,date,hours\nASSY,2025-03-03,6\nASSY,2025-03-03,1.5\n")

	s, err := NewLoader().LoadScenario(dir)
	require.NoError(t, err)

	assert.Len(t, s.Items, 2)
	require.Len(t, s.BOMLines, 1)
	assert.True(t, s.BOMLines[0].QtyPer.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, 1, s.BOMLines[0].OffsetDays)
	require.Len(t, s.Demands, 1)
	assert.Equal(t, entities.SourceSalesOrder, s.Demands[0].Source)
	require.Len(t, s.OpenOrders, 1)
	assert.True(t, s.OpenOrders[0].QuantityOpen().Equal(decimal.NewFromInt(60)))
	require.Len(t, s.Routings, 1)
	require.Len(t, s.WorkCenters, 1)

	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	assert.True(t, s.WorkCenters[0].Actuals[day].Equal(decimal.RequireFromString("7.5")))
}

func TestLoader_LoadScenarioOptionalFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ItemsFile, itemsCSV)
	writeFile(t, dir, BOMFile, bomCSV)
	writeFile(t, dir, DemandsFile, demandsCSV)

	s, err := NewLoader().LoadScenario(dir)
	require.NoError(t, err)
	assert.Empty(t, s.OpenOrders)
	assert.Empty(t, s.Routings)
	assert.Empty(t, s.WorkCenters)

	_, err = NewLoader().LoadScenario(t.TempDir())
	require.Error(t, err, "items are required")
}
