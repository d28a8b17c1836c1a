// Package testing builds shared planning scenarios for tests.
package testing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/repositories/memory"
)

// Monday the bicycle scenario is planned from
var ScenarioStart = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

// Repositories bundles the in-memory master data stores of a scenario
type Repositories struct {
	Items       *memory.ItemRepository
	BOM         *memory.BOMRepository
	Demands     *memory.DemandRepository
	OpenOrders  *memory.OpenOrderRepository
	Routings    *memory.RoutingRepository
	WorkCenters *memory.WorkCenterRepository
}

// NewRepositories creates empty in-memory stores
func NewRepositories() *Repositories {
	return &Repositories{
		Items:       memory.NewItemRepository(16),
		BOM:         memory.NewBOMRepository(16),
		Demands:     memory.NewDemandRepository(),
		OpenOrders:  memory.NewOpenOrderRepository(),
		Routings:    memory.NewRoutingRepository(),
		WorkCenters: memory.NewWorkCenterRepository(),
	}
}

func Dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func LeadTime(days int) *int { return &days }

// BucketDate returns a date inside weekly bucket i of the scenario horizon
func BucketDate(i int) time.Time {
	return ScenarioStart.AddDate(0, 0, 7*i+2)
}

// Item builds a lot-for-lot planning record
func Item(pn string, makeBuy entities.MakeBuyCode, leadTime int) *entities.ItemPlanningRecord {
	return &entities.ItemPlanningRecord{
		PartNumber:    entities.PartNumber(pn),
		Description:   pn,
		UnitOfMeasure: "EA",
		LeadTimeDays:  LeadTime(leadTime),
		MakeBuy:       makeBuy,
		LotSizeRule:   entities.LotForLot,
	}
}

// BuildBicycleScenario loads a four-level bicycle structure:
//
//	BIKE
//	├── FRAME ── TUBE (2.5 m)
//	└── WHEEL x2 ── SPOKE x36
//
// with two sales orders for BIKE, one open spoke purchase order due late and
// routings on the ASSY and WELD work centers.
func BuildBicycleScenario() *Repositories {
	ctx := context.Background()
	repos := NewRepositories()

	frame := Item("FRAME", entities.MakeBuyMake, 10)
	frame.LotSizeRule = entities.FixedOrderQty
	frame.FixedOrderQty = Dec("50")

	spoke := Item("SPOKE", entities.MakeBuyBuy, 14)
	spoke.LotSizeRule = entities.OrderMultiple
	spoke.OrderMultiple = Dec("100")

	tube := Item("TUBE", entities.MakeBuyBuy, 21)
	tube.UnitOfMeasure = "M"
	tube.Precision = 2
	tube.LotSizeRule = entities.MinMax
	tube.MinOrderQty = Dec("50")
	tube.MaxOrderQty = Dec("500")

	bike := Item("BIKE", entities.MakeBuyMake, 5)
	bike.OnHand = Dec("5")
	bike.SafetyStockParam = Dec("2")

	must(repos.Items.LoadItems(ctx, []*entities.ItemPlanningRecord{
		bike, frame, Item("WHEEL", entities.MakeBuyMake, 7), spoke, tube,
	}))

	must(repos.BOM.LoadBOMLines(ctx, []*entities.BOMLine{
		bomLine("BIKE", "FRAME", "1", 10, 0),
		bomLine("BIKE", "WHEEL", "2", 20, 0),
		bomLine("WHEEL", "SPOKE", "36", 10, 0),
		bomLine("FRAME", "TUBE", "2.5", 10, 2),
	}))

	must(repos.Demands.LoadDemands(ctx, []*entities.DemandLine{
		{PartNumber: "BIKE", NeedDate: BucketDate(4), Quantity: Dec("20"), Source: entities.SourceSalesOrder, Reference: "SO-1"},
		{PartNumber: "BIKE", NeedDate: BucketDate(6), Quantity: Dec("30"), Source: entities.SourceSalesOrder, Reference: "SO-2"},
	}))

	must(repos.OpenOrders.LoadOpenOrders(ctx, []*entities.OpenOrder{{
		ID: "PO-SPOKE-1", PartNumber: "SPOKE", Type: entities.Purchase, Status: entities.StatusReleased,
		QuantityOrdered: Dec("1000"), DueDate: ScenarioStart.AddDate(0, 0, 7*7),
	}}))

	must(repos.Routings.LoadRoutings(ctx, []*entities.RoutingOperation{
		{PartNumber: "BIKE", Sequence: 10, WorkCenterID: "ASSY", SetupHours: Dec("1"), RunHoursPerUnit: Dec("0.5")},
		{PartNumber: "WHEEL", Sequence: 10, WorkCenterID: "ASSY", SetupHours: Dec("0.5"), RunHoursPerUnit: Dec("0.25")},
		{PartNumber: "FRAME", Sequence: 10, WorkCenterID: "WELD", SetupHours: Dec("2"), RunHoursPerUnit: Dec("1.5")},
		{PartNumber: "FRAME", Sequence: 20, WorkCenterID: "PAINT", SetupHours: Dec("1"), RunHoursPerUnit: Dec("0.1"), OffsetDays: 3},
	}))

	must(repos.WorkCenters.LoadWorkCenters(ctx, []*entities.WorkCenter{
		{ID: "ASSY", Name: "Assembly", HoursPerDay: Dec("8"), WorkingDaysPerWeek: 5},
		{ID: "WELD", Name: "Welding", HoursPerDay: Dec("16"), WorkingDaysPerWeek: 5},
		{ID: "PAINT", Name: "Paint line", HoursPerDay: Dec("8"), WorkingDaysPerWeek: 5},
	}))

	return repos
}

func bomLine(parent, child, qtyPer string, findNumber, offsetDays int) *entities.BOMLine {
	line, err := entities.NewBOMLine(entities.PartNumber(parent), entities.PartNumber(child), Dec(qtyPer), findNumber, offsetDays)
	must(err)
	return line
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
