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

func TestPlanStore_CommitAssignsVersions(t *testing.T) {
	ctx := context.Background()
	store := NewPlanStore()

	_, err := store.LatestPlan(ctx)
	assert.ErrorIs(t, err, entities.ErrNotFound)

	first, err := store.CommitPlan(ctx, &entities.PlanSnapshot{RunID: "r1"}, 0)
	require.NoError(t, err)
	second, err := store.CommitPlan(ctx, &entities.PlanSnapshot{RunID: "r2"}, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 2, second.Version)

	latest, err := store.LatestPlan(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r2", latest.RunID)

	v1, err := store.GetPlan(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "r1", v1.RunID)

	_, err = store.GetPlan(ctx, 3)
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestPlanStore_CommitRejectsStaleBase(t *testing.T) {
	ctx := context.Background()
	store := NewPlanStore()

	_, err := store.CommitPlan(ctx, &entities.PlanSnapshot{RunID: "r1"}, 0)
	require.NoError(t, err)
	_, err = store.CommitPlan(ctx, &entities.PlanSnapshot{RunID: "r2"}, 1)
	require.NoError(t, err)

	// merged onto version 1 while version 2 landed
	_, err = store.CommitPlan(ctx, &entities.PlanSnapshot{RunID: "r3"}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrConcurrencyConflict)
	var conflict *entities.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 1, conflict.Expected)
	assert.Equal(t, 2, conflict.Actual)

	latest, err := store.LatestPlan(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r2", latest.RunID)
}

func TestPlanStore_UpdateActionMessageCopiesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewPlanStore()

	_, err := store.CommitPlan(ctx, &entities.PlanSnapshot{
		ActionMessages: []*entities.ActionMessage{{ID: "m1"}, {ID: "m2"}},
	}, 0)
	require.NoError(t, err)

	before, err := store.LatestPlan(ctx)
	require.NoError(t, err)

	msg, err := store.UpdateActionMessage(ctx, "m2", false, true)
	require.NoError(t, err)
	assert.True(t, msg.IsReviewed)
	assert.True(t, msg.IsImplemented)

	// a reader holding the earlier snapshot keeps seeing the old flags
	assert.False(t, before.ActionMessages[1].IsImplemented)

	after, err := store.LatestPlan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, after.Version)
	assert.True(t, after.ActionMessages[1].IsImplemented)

	_, err = store.UpdateActionMessage(ctx, "missing", true, false)
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestPlanStore_RunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewPlanStore()
	t0 := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveRun(ctx, &entities.MRPRun{ID: "old", StartedAt: t0, Status: entities.RunCompleted}))
	require.NoError(t, store.SaveRun(ctx, &entities.MRPRun{ID: "new", StartedAt: t0.Add(time.Hour), Status: entities.RunRunning}))
	require.NoError(t, store.SaveRun(ctx, &entities.MRPRun{ID: "new", StartedAt: t0.Add(time.Hour), Status: entities.RunFailed}))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, entities.RunFailed, runs[0].Status)

	_, err = store.GetRun(ctx, "none")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestMatchStore_OptimisticVersioning(t *testing.T) {
	ctx := context.Background()
	store := NewMatchStore()

	line := &entities.MatchLine{ID: "L1", POID: "PO-1", LineNumber: 1, POQuantity: decimal.NewFromInt(10)}
	require.NoError(t, store.SaveLine(ctx, line, 0))
	assert.Equal(t, 1, line.Version)

	a, err := store.GetLine(ctx, "L1")
	require.NoError(t, err)
	b, err := store.GetLine(ctx, "L1")
	require.NoError(t, err)

	a.HoldReason = "first writer"
	require.NoError(t, store.SaveLine(ctx, a, a.Version))

	b.HoldReason = "second writer"
	err = store.SaveLine(ctx, b, b.Version)
	var conflict *entities.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 1, conflict.Expected)
	assert.Equal(t, 2, conflict.Actual)
	assert.True(t, entities.IsRetryable(err))

	stored, err := store.GetLine(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, "first writer", stored.HoldReason)
}

func TestMatchStore_ListByPO(t *testing.T) {
	ctx := context.Background()
	store := NewMatchStore()

	require.NoError(t, store.SaveLine(ctx, &entities.MatchLine{ID: "L2", POID: "PO-1", LineNumber: 2}, 0))
	require.NoError(t, store.SaveLine(ctx, &entities.MatchLine{ID: "L1", POID: "PO-1", LineNumber: 1}, 0))
	require.NoError(t, store.SaveLine(ctx, &entities.MatchLine{ID: "X", POID: "PO-2", LineNumber: 1}, 0))

	lines, err := store.ListByPO(ctx, "PO-1")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "L1", lines[0].ID)
	assert.Equal(t, "L2", lines[1].ID)
}
