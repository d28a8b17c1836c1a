package orchestration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrp-planner/pkg/application/services/actions"
	"github.com/vsinha/mrp-planner/pkg/application/services/capacity"
	"github.com/vsinha/mrp-planner/pkg/application/services/mrp"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/events"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/repositories/memory"
	fixtures "github.com/vsinha/mrp-planner/pkg/infrastructure/testing"
)

type harness struct {
	orchestrator *PlanningOrchestrator
	repos        *fixtures.Repositories
	plans        repositories.PlanStore
	events       *events.InMemoryEventStore
}

func newHarness(t *testing.T, repos *fixtures.Repositories, plans repositories.PlanStore) *harness {
	t.Helper()
	if plans == nil {
		plans = memory.NewPlanStore()
	}
	eventStore := events.NewInMemoryEventStore(zerolog.Nop())
	o := NewPlanningOrchestrator(
		mrp.NewMRPService(mrp.EngineConfig{Parallelism: 2}, zerolog.Nop()),
		actions.NewGenerator(actions.Config{RescheduleThresholdDays: 3, QuantityTolerancePercent: fixtures.Dec("5")}),
		capacity.NewSnapshotCache(capacity.NewLeveler(), zerolog.Nop()),
		Repositories{
			Items:       repos.Items,
			BOM:         repos.BOM,
			Demands:     repos.Demands,
			OpenOrders:  repos.OpenOrders,
			Routings:    repos.Routings,
			WorkCenters: repos.WorkCenters,
		},
		plans,
		eventStore,
		Config{BucketDays: 7, HorizonBuckets: 10},
		zerolog.Nop(),
	)
	return &harness{orchestrator: o, repos: repos, plans: plans, events: eventStore}
}

func (h *harness) run(t *testing.T, scope entities.Scope) {
	t.Helper()
	_, err := h.orchestrator.RunMRP(context.Background(), RunRequest{Scope: scope, Today: fixtures.ScenarioStart})
	require.NoError(t, err)
}

func ordersOf(orders []*entities.PlannedOrder, pn entities.PartNumber) []*entities.PlannedOrder {
	var out []*entities.PlannedOrder
	for _, o := range orders {
		if o.PartNumber == pn {
			out = append(out, o)
		}
	}
	return out
}

func TestRunMRP_RegenerativeRun(t *testing.T) {
	h := newHarness(t, fixtures.BuildBicycleScenario(), nil)
	ctx := context.Background()

	result, err := h.orchestrator.RunMRP(ctx, RunRequest{Today: fixtures.ScenarioStart})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Version)
	assert.Equal(t, entities.RunCompleted, result.Status)
	assert.Zero(t, result.ErrorCount())

	bikes := ordersOf(result.PlannedOrders, "BIKE")
	require.Len(t, bikes, 2)
	assert.Equal(t, 4, bikes[0].Bucket)
	assert.True(t, bikes[0].Quantity.Equal(fixtures.Dec("17")), "20 demand - 5 on hand + 2 safety stock")
	assert.Equal(t, fixtures.ScenarioStart.AddDate(0, 0, 23), bikes[0].ReleaseDate)
	assert.True(t, bikes[1].Quantity.Equal(fixtures.Dec("30")))

	for _, pn := range []entities.PartNumber{"FRAME", "WHEEL", "SPOKE", "TUBE"} {
		assert.NotEmpty(t, ordersOf(result.PlannedOrders, pn), "expected planned orders for %s", pn)
	}

	var rescheduleIn *entities.ActionMessage
	for _, m := range result.ActionMessages {
		if m.Type == entities.ActionRescheduleIn && m.OrderRef == "PO-SPOKE-1" {
			rescheduleIn = m
		}
	}
	require.NotNil(t, rescheduleIn, "late spoke order should be pulled in")
	assert.Equal(t, fixtures.ScenarioStart.AddDate(0, 0, 14), rescheduleIn.SuggestedDate)

	runs, err := h.orchestrator.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, entities.RunCompleted, runs[0].Status)
	assert.Equal(t, 1, runs[0].Version)

	loads, err := h.orchestrator.GetCapacitySnapshot(ctx, fixtures.ScenarioStart.AddDate(0, 0, 23))
	require.NoError(t, err)
	assert.NotEmpty(t, loads)

	h.events.Flush()
	committed, err := h.events.ReadEvents("plan", 1)
	require.NoError(t, err)
	require.Len(t, committed, 1)
	assert.Equal(t, events.PlanCommittedEvent, committed[0].Type())
}

func TestRunMRP_RerunIsIdentical(t *testing.T) {
	h := newHarness(t, fixtures.BuildBicycleScenario(), nil)
	ctx := context.Background()

	first, err := h.orchestrator.RunMRP(ctx, RunRequest{Today: fixtures.ScenarioStart})
	require.NoError(t, err)
	second, err := h.orchestrator.RunMRP(ctx, RunRequest{Today: fixtures.ScenarioStart})
	require.NoError(t, err)

	assert.Equal(t, 2, second.Version)
	require.Equal(t, len(first.PlannedOrders), len(second.PlannedOrders))
	for i := range first.PlannedOrders {
		a, b := first.PlannedOrders[i], second.PlannedOrders[i]
		assert.Equal(t, a.ID, b.ID)
		assert.True(t, a.Quantity.Equal(b.Quantity))
		assert.Equal(t, a.ReleaseDate, b.ReleaseDate)
	}
	require.Equal(t, len(first.ActionMessages), len(second.ActionMessages))
	for i := range first.ActionMessages {
		assert.Equal(t, first.ActionMessages[i].ID, second.ActionMessages[i].ID)
	}
}

func TestRunMRP_NetChangeReplacesOnlyScopedItems(t *testing.T) {
	repos := fixtures.BuildBicycleScenario()
	h := newHarness(t, repos, nil)
	ctx := context.Background()

	h.run(t, entities.Scope{})
	before, err := h.orchestrator.LatestPlan(ctx)
	require.NoError(t, err)

	// spare wheel demand only affects WHEEL and SPOKE
	require.NoError(t, repos.Demands.LoadDemands(ctx, []*entities.DemandLine{{
		PartNumber: "WHEEL", NeedDate: fixtures.BucketDate(8), Quantity: fixtures.Dec("10"),
		Source: entities.SourceSalesOrder, Reference: "SO-SPARES",
	}}))

	result, err := h.orchestrator.RunMRP(ctx, RunRequest{Scope: entities.Scope{SKUs: []entities.PartNumber{"WHEEL"}}, Today: fixtures.ScenarioStart})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Version)

	assert.Len(t, ordersOf(result.PlannedOrders, "WHEEL"), len(ordersOf(before.PlannedOrders, "WHEEL"))+1)
	assert.Equal(t, ordersOf(before.PlannedOrders, "BIKE"), ordersOf(result.PlannedOrders, "BIKE"))
	assert.Equal(t, ordersOf(before.PlannedOrders, "FRAME"), ordersOf(result.PlannedOrders, "FRAME"))
	assert.Contains(t, result.Traces, entities.PartNumber("TUBE"), "unaffected traces are carried")

	for i, m := range result.ActionMessages {
		assert.Equal(t, i+1, m.Priority)
	}
}

// blockingItems parks GetAllItems until released
type blockingItems struct {
	repositories.ItemRepository
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingItems) GetAllItems(ctx context.Context) ([]*entities.ItemPlanningRecord, error) {
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return b.ItemRepository.GetAllItems(ctx)
}

func TestRunMRP_OverlappingScopeIsRejected(t *testing.T) {
	repos := fixtures.BuildBicycleScenario()
	h := newHarness(t, repos, nil)
	blocker := &blockingItems{ItemRepository: repos.Items, entered: make(chan struct{}), release: make(chan struct{})}
	h.orchestrator.repos.Items = blocker
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := h.orchestrator.RunMRP(ctx, RunRequest{Scope: entities.Scope{SKUs: []entities.PartNumber{"WHEEL"}}, Today: fixtures.ScenarioStart})
		done <- err
	}()

	select {
	case <-blocker.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never started")
	}

	// SPOKE sits below WHEEL, so the scopes overlap
	_, err := h.orchestrator.RunMRP(ctx, RunRequest{Scope: entities.Scope{SKUs: []entities.PartNumber{"SPOKE"}}, Today: fixtures.ScenarioStart})
	assert.ErrorIs(t, err, entities.ErrScopeLocked)
	assert.True(t, entities.IsRetryable(err))

	close(blocker.release)
	require.NoError(t, <-done)

	_, err = h.orchestrator.RunMRP(ctx, RunRequest{Scope: entities.Scope{SKUs: []entities.PartNumber{"SPOKE"}}, Today: fixtures.ScenarioStart})
	assert.NoError(t, err)
}

// failingCommit refuses every commit after the first
type failingCommit struct {
	*memory.PlanStore
	commits int
}

func (f *failingCommit) CommitPlan(ctx context.Context, s *entities.PlanSnapshot, baseVersion int) (*entities.PlanSnapshot, error) {
	f.commits++
	if f.commits > 1 {
		return nil, errors.New("disk full")
	}
	return f.PlanStore.CommitPlan(ctx, s, baseVersion)
}

// gatedPlans holds the first two LatestPlan reads until both have arrived, so two runs
// merge onto the same previous version
type gatedPlans struct {
	*memory.PlanStore
	armed   atomic.Bool
	reads   atomic.Int32
	arrived sync.WaitGroup
}

func (g *gatedPlans) LatestPlan(ctx context.Context) (*entities.PlanSnapshot, error) {
	if g.armed.Load() && g.reads.Add(1) <= 2 {
		g.arrived.Done()
		g.arrived.Wait()
	}
	return g.PlanStore.LatestPlan(ctx)
}

func TestRunMRP_ConcurrentNetChangeRunsKeepBothResults(t *testing.T) {
	repos := fixtures.BuildBicycleScenario()
	store := &gatedPlans{PlanStore: memory.NewPlanStore()}
	h := newHarness(t, repos, store)
	ctx := context.Background()

	h.run(t, entities.Scope{})

	require.NoError(t, repos.Items.LoadItems(ctx, []*entities.ItemPlanningRecord{
		fixtures.Item("SADDLE", entities.MakeBuyBuy, 7),
	}))
	require.NoError(t, repos.Demands.LoadDemands(ctx, []*entities.DemandLine{
		{PartNumber: "WHEEL", NeedDate: fixtures.BucketDate(8), Quantity: fixtures.Dec("4"), Source: entities.SourceSalesOrder, Reference: "SO-WHEEL"},
		{PartNumber: "SADDLE", NeedDate: fixtures.BucketDate(5), Quantity: fixtures.Dec("12"), Source: entities.SourceSalesOrder, Reference: "SO-SADDLE"},
	}))

	store.arrived.Add(2)
	store.armed.Store(true)

	scopes := []entities.PartNumber{"WHEEL", "SADDLE"}
	results := make([]error, len(scopes))
	var wg sync.WaitGroup
	for i, sku := range scopes {
		i, sku := i, sku
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = h.orchestrator.RunMRP(ctx, RunRequest{
				Scope: entities.Scope{SKUs: []entities.PartNumber{sku}},
				Today: fixtures.ScenarioStart,
			})
		}()
	}
	wg.Wait()
	for _, err := range results {
		require.NoError(t, err)
	}

	latest, err := h.orchestrator.LatestPlan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Version)

	assert.NotEmpty(t, ordersOf(latest.PlannedOrders, "SADDLE"))
	var wheelInBucket8 int
	for _, o := range ordersOf(latest.PlannedOrders, "WHEEL") {
		if o.Bucket == 8 {
			wheelInBucket8++
		}
	}
	assert.Equal(t, 1, wheelInBucket8, "WHEEL net-change result must survive the other commit")
	assert.NotEmpty(t, ordersOf(latest.PlannedOrders, "BIKE"), "items outside both scopes are carried")

	runs, err := h.orchestrator.ListRuns(ctx)
	require.NoError(t, err)
	versions := make(map[int]bool)
	for _, run := range runs {
		assert.Equal(t, entities.RunCompleted, run.Status)
		versions[run.Version] = true
	}
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, versions)
}

func TestRunMRP_FailedCommitKeepsPreviousPlan(t *testing.T) {
	store := &failingCommit{PlanStore: memory.NewPlanStore()}
	h := newHarness(t, fixtures.BuildBicycleScenario(), store)
	ctx := context.Background()

	h.run(t, entities.Scope{})

	_, err := h.orchestrator.RunMRP(ctx, RunRequest{Today: fixtures.ScenarioStart})
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrRunFailed)
	var failure *entities.RunFailure
	require.ErrorAs(t, err, &failure)

	latest, err := h.orchestrator.LatestPlan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, latest.Version)

	run, err := store.GetRun(ctx, failure.RunID)
	require.NoError(t, err)
	assert.Equal(t, entities.RunFailed, run.Status)
	assert.Contains(t, run.Error, "disk full")
	assert.NotNil(t, run.CompletedAt)
}

func TestRunMRP_CyclicBranchDoesNotStopRun(t *testing.T) {
	repos := fixtures.BuildBicycleScenario()
	ctx := context.Background()
	require.NoError(t, repos.Items.LoadItems(ctx, []*entities.ItemPlanningRecord{
		fixtures.Item("LOOP-A", entities.MakeBuyMake, 1),
		fixtures.Item("LOOP-B", entities.MakeBuyMake, 1),
	}))
	require.NoError(t, repos.BOM.LoadBOMLines(ctx, []*entities.BOMLine{
		{ParentPN: "LOOP-A", ChildPN: "LOOP-B", QtyPer: fixtures.Dec("1"), FindNumber: 10},
		{ParentPN: "LOOP-B", ChildPN: "LOOP-A", QtyPer: fixtures.Dec("1"), FindNumber: 10},
	}))
	h := newHarness(t, repos, nil)

	result, err := h.orchestrator.RunMRP(ctx, RunRequest{Today: fixtures.ScenarioStart})
	require.NoError(t, err)
	assert.Equal(t, entities.RunCompleted, result.Status)
	assert.Equal(t, 2, result.ErrorCount())
	assert.NotEmpty(t, ordersOf(result.PlannedOrders, "BIKE"))
	for _, issue := range result.Issues {
		if issue.Severity == entities.SeverityError {
			assert.Equal(t, entities.IssueCyclicDependency, issue.Code)
		}
	}
}

func TestActionMessageLifecycle(t *testing.T) {
	h := newHarness(t, fixtures.BuildBicycleScenario(), nil)
	ctx := context.Background()

	h.run(t, entities.Scope{})
	plan, err := h.orchestrator.LatestPlan(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(plan.ActionMessages), 2)
	reviewedID := plan.ActionMessages[0].ID
	implementedID := plan.ActionMessages[1].ID

	msg, err := h.orchestrator.MarkReviewed(ctx, reviewedID)
	require.NoError(t, err)
	assert.True(t, msg.IsReviewed)

	msg, err = h.orchestrator.MarkImplemented(ctx, implementedID)
	require.NoError(t, err)
	assert.True(t, msg.IsImplemented)

	h.run(t, entities.Scope{})
	next, err := h.orchestrator.LatestPlan(ctx)
	require.NoError(t, err)

	byID := make(map[string]*entities.ActionMessage)
	for _, m := range next.ActionMessages {
		byID[m.ID] = m
	}
	require.Contains(t, byID, reviewedID, "repeat of an unimplemented message keeps its id")
	assert.True(t, byID[reviewedID].IsReviewed)
	if m, ok := byID[implementedID]; ok {
		assert.False(t, m.IsImplemented, "a fresh suggestion starts unimplemented")
	}

	_, err = h.orchestrator.MarkReviewed(ctx, "no-such-message")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestGetCapacitySnapshot_NoPlan(t *testing.T) {
	h := newHarness(t, fixtures.BuildBicycleScenario(), nil)
	_, err := h.orchestrator.GetCapacitySnapshot(context.Background(), fixtures.ScenarioStart)
	assert.ErrorIs(t, err, entities.ErrNotFound)
}
