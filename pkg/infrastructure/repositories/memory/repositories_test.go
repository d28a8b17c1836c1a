package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

func TestItemRepository_LoadAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(2)

	lt := 10
	require.NoError(t, repo.LoadItems(ctx, []*entities.ItemPlanningRecord{
		{PartNumber: "A", Description: "first", LeadTimeDays: &lt, OnHand: decimal.NewFromInt(5)},
		{PartNumber: "B", Description: "second"},
	}))

	item, err := repo.GetItem(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "first", item.Description)
	assert.True(t, item.OnHand.Equal(decimal.NewFromInt(5)))

	// mutating the returned copy does not touch the store
	item.Description = "changed"
	again, err := repo.GetItem(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "first", again.Description)
}

func TestItemRepository_ReplaceOnReload(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(1)

	require.NoError(t, repo.LoadItems(ctx, []*entities.ItemPlanningRecord{{PartNumber: "A", Description: "v1"}}))
	require.NoError(t, repo.LoadItems(ctx, []*entities.ItemPlanningRecord{{PartNumber: "A", Description: "v2"}}))

	all, err := repo.GetAllItems(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "v2", all[0].Description)
}

func TestItemRepository_NotFound(t *testing.T) {
	_, err := NewItemRepository(0).GetItem(context.Background(), "MISSING")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestBOMRepository_ChildrenByParent(t *testing.T) {
	ctx := context.Background()
	repo := NewBOMRepository(3)

	require.NoError(t, repo.LoadBOMLines(ctx, []*entities.BOMLine{
		{ParentPN: "BIKE", ChildPN: "FRAME", QtyPer: decimal.NewFromInt(1), FindNumber: 10},
		{ParentPN: "BIKE", ChildPN: "WHEEL", QtyPer: decimal.NewFromInt(2), FindNumber: 20},
		{ParentPN: "WHEEL", ChildPN: "SPOKE", QtyPer: decimal.NewFromInt(36), FindNumber: 10},
	}))

	lines, err := repo.GetBOMLines(ctx, "BIKE")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, entities.PartNumber("FRAME"), lines[0].ChildPN)
	assert.Equal(t, entities.PartNumber("WHEEL"), lines[1].ChildPN)

	none, err := repo.GetBOMLines(ctx, "SPOKE")
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := repo.GetAllBOMLines(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDemandRepository_Append(t *testing.T) {
	ctx := context.Background()
	repo := NewDemandRepository()
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.LoadDemands(ctx, []*entities.DemandLine{{PartNumber: "A", NeedDate: day, Quantity: decimal.NewFromInt(10)}}))
	require.NoError(t, repo.LoadDemands(ctx, []*entities.DemandLine{{PartNumber: "A", NeedDate: day, Quantity: decimal.NewFromInt(5)}}))

	demands, err := repo.GetDemands(ctx)
	require.NoError(t, err)
	assert.Len(t, demands, 2)
}

func TestOpenOrderRepository_UpsertAndFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewOpenOrderRepository()

	require.NoError(t, repo.LoadOpenOrders(ctx, []*entities.OpenOrder{
		{ID: "PO-1", PartNumber: "A", Status: entities.StatusReleased, QuantityOrdered: decimal.NewFromInt(10)},
		{ID: "PO-2", PartNumber: "B", Status: entities.StatusFirmed, QuantityOrdered: decimal.NewFromInt(4)},
	}))
	require.NoError(t, repo.LoadOpenOrders(ctx, []*entities.OpenOrder{
		{ID: "PO-1", PartNumber: "A", Status: entities.StatusReleased, QuantityOrdered: decimal.NewFromInt(12)},
	}))

	orders, err := repo.GetOpenOrders(ctx, "A")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.True(t, orders[0].QuantityOrdered.Equal(decimal.NewFromInt(12)))

	all, err := repo.GetAllOpenOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRoutingRepository_SortedBySequence(t *testing.T) {
	ctx := context.Background()
	repo := NewRoutingRepository()

	require.NoError(t, repo.LoadRoutings(ctx, []*entities.RoutingOperation{
		{PartNumber: "A", Sequence: 20, WorkCenterID: "PAINT"},
		{PartNumber: "A", Sequence: 10, WorkCenterID: "WELD"},
		{PartNumber: "B", Sequence: 10, WorkCenterID: "ASSY"},
	}))

	ops, err := repo.GetRouting(ctx, "A")
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "WELD", ops[0].WorkCenterID)
	assert.Equal(t, "PAINT", ops[1].WorkCenterID)

	all, err := repo.GetAllRoutings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestWorkCenterRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkCenterRepository()

	require.NoError(t, repo.LoadWorkCenters(ctx, []*entities.WorkCenter{
		{ID: "WELD", HoursPerDay: decimal.NewFromInt(16)},
		{ID: "ASSY", HoursPerDay: decimal.NewFromInt(8)},
	}))

	wc, err := repo.GetWorkCenter(ctx, "WELD")
	require.NoError(t, err)
	assert.True(t, wc.HoursPerDay.Equal(decimal.NewFromInt(16)))

	all, err := repo.GetAllWorkCenters(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ASSY", all[0].ID)

	_, err = repo.GetWorkCenter(ctx, "NOPE")
	assert.True(t, entities.IsNotFound(err))
}
