package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vsinha/mrp-planner/pkg/application/dto"
	"github.com/vsinha/mrp-planner/pkg/application/services/actions"
	"github.com/vsinha/mrp-planner/pkg/application/services/capacity"
	"github.com/vsinha/mrp-planner/pkg/application/services/mrp"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
	"github.com/vsinha/mrp-planner/pkg/domain/services"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/events"
)

// Repositories are the read-only master data stores a run plans from
type Repositories struct {
	Items       repositories.ItemRepository
	BOM         repositories.BOMRepository
	Demands     repositories.DemandRepository
	OpenOrders  repositories.OpenOrderRepository
	Routings    repositories.RoutingRepository
	WorkCenters repositories.WorkCenterRepository
}

// Config sets the bucket calendar of every run
type Config struct {
	BucketDays     int
	HorizonBuckets int
	// CommitRetries caps how many times a run re-merges after another run committed first
	CommitRetries int
}

// RunRequest selects what to plan. A zero Today plans from the current date.
type RunRequest struct {
	Scope entities.Scope
	Today time.Time
}

// PlanningOrchestrator coordinates one MRP run end to end: scope lock, run record, planning,
// action messages, atomic commit of a new plan version, capacity refresh and events.
type PlanningOrchestrator struct {
	mrpService *mrp.MRPService
	generator  *actions.Generator
	capacity   *capacity.SnapshotCache
	repos      Repositories
	plans      repositories.PlanStore
	events     events.EventStore
	config     Config
	logger     zerolog.Logger
	now        func() time.Time

	mu     sync.Mutex
	active map[string]entities.Scope
}

// NewPlanningOrchestrator creates a new planning orchestrator
func NewPlanningOrchestrator(
	mrpService *mrp.MRPService,
	generator *actions.Generator,
	capacityCache *capacity.SnapshotCache,
	repos Repositories,
	plans repositories.PlanStore,
	eventStore events.EventStore,
	config Config,
	logger zerolog.Logger,
) *PlanningOrchestrator {
	if config.CommitRetries <= 0 {
		config.CommitRetries = 3
	}
	return &PlanningOrchestrator{
		mrpService: mrpService,
		generator:  generator,
		capacity:   capacityCache,
		repos:      repos,
		plans:      plans,
		events:     eventStore,
		config:     config,
		logger:     logger.With().Str("component", "orchestrator").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
		active:     make(map[string]entities.Scope),
	}
}

// masterData is one consistent read of every collaborator
type masterData struct {
	items       []*entities.ItemPlanningRecord
	itemIndex   map[entities.PartNumber]*entities.ItemPlanningRecord
	bomLines    []*entities.BOMLine
	demands     []*entities.DemandLine
	openOrders  []*entities.OpenOrder
	routings    []*entities.RoutingOperation
	workCenters []*entities.WorkCenter
}

// RunMRP plans the scope and commits the result as a new plan version. A run whose scope
// overlaps a run in progress fails fast with ErrScopeLocked. Any failure after the run record
// is written leaves the previous version as the latest plan and returns a RunFailure.
func (o *PlanningOrchestrator) RunMRP(ctx context.Context, req RunRequest) (*dto.PlanResult, error) {
	bomLines, err := o.repos.BOM.GetAllBOMLines(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load bill of materials: %w", err)
	}
	graph := services.NewBOMGraph(bomLines)

	affected := expandScope(graph, req.Scope)
	lockScope := req.Scope
	if !req.Scope.IsFull() {
		lockScope.SKUs = sortedParts(affected)
	}
	runID := uuid.NewString()
	if err := o.lock(runID, lockScope); err != nil {
		return nil, err
	}
	defer o.unlock(runID)

	started := o.now()
	run := &entities.MRPRun{ID: runID, Scope: req.Scope, Status: entities.RunRunning, StartedAt: started}
	if err := o.plans.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	logger := o.logger.With().Str("run_id", runID).Str("scope", req.Scope.Key()).Logger()
	logger.Info().Msg("mrp run started")

	result, err := o.execute(ctx, run, req, bomLines, affected, logger)
	if err != nil {
		o.fail(ctx, run, err, logger)
		return nil, &entities.RunFailure{RunID: runID, Cause: err}
	}
	return result, nil
}

func (o *PlanningOrchestrator) execute(
	ctx context.Context,
	run *entities.MRPRun,
	req RunRequest,
	bomLines []*entities.BOMLine,
	affected map[entities.PartNumber]bool,
	logger zerolog.Logger,
) (*dto.PlanResult, error) {
	data, err := o.load(ctx, bomLines)
	if err != nil {
		return nil, err
	}

	today := req.Today
	if today.IsZero() {
		today = o.now()
	}
	today = entities.TruncateDay(today)
	horizon, err := entities.NewHorizon(today, o.config.BucketDays, o.config.HorizonBuckets)
	if err != nil {
		return nil, err
	}

	output, err := o.mrpService.Plan(ctx, mrp.PlanInput{
		Items:      data.items,
		BOMLines:   data.bomLines,
		Demands:    data.demands,
		OpenOrders: data.openOrders,
		Horizon:    horizon,
		Today:      today,
	})
	if err != nil {
		return nil, err
	}

	var (
		committed *entities.PlanSnapshot
		generated []*entities.ActionMessage
	)
	for attempt := 1; ; attempt++ {
		previous, err := o.plans.LatestPlan(ctx)
		if err != nil && !entities.IsNotFound(err) {
			return nil, fmt.Errorf("failed to read previous plan: %w", err)
		}
		baseVersion := 0
		if previous != nil {
			baseVersion = previous.Version
		}

		var snapshot *entities.PlanSnapshot
		snapshot, generated = o.assemble(run, req, output, data, horizon, today, affected, previous)
		committed, err = o.plans.CommitPlan(ctx, snapshot, baseVersion)
		if err == nil {
			break
		}
		if !errors.Is(err, entities.ErrConcurrencyConflict) || attempt >= o.config.CommitRetries {
			return nil, fmt.Errorf("failed to commit plan: %w", err)
		}
		logger.Debug().Err(err).Int("attempt", attempt).Msg("plan moved on during run, merging again")
	}

	completed := o.now()
	run.Status = entities.RunCompleted
	run.Version = committed.Version
	run.CompletedAt = &completed
	result := dto.FromSnapshot(committed, run)
	run.Errors = result.ErrorCount()
	run.Warnings = result.WarningCount()
	if err := o.plans.SaveRun(ctx, run); err != nil {
		// the plan is committed; a stale run record is logged, not failed
		logger.Error().Err(err).Msg("failed to record run completion")
	}

	o.capacity.Refresh(committed.Version, capacity.Input{
		PlannedOrders: committed.PlannedOrders,
		OpenOrders:    data.openOrders,
		Routings:      data.routings,
		WorkCenters:   data.workCenters,
		Items:         data.itemIndex,
		Horizon:       horizon,
	}, completed)

	o.publishCommitted(committed, run, generated)

	for _, issue := range committed.Issues {
		logger.Warn().
			Str("part_number", string(issue.PartNumber)).
			Str("code", issue.Code).
			Str("severity", string(issue.Severity)).
			Msg(issue.Message)
	}
	logger.Info().
		Int("version", committed.Version).
		Int("items", len(data.items)).
		Int("planned_orders", len(committed.PlannedOrders)).
		Int("action_messages", len(committed.ActionMessages)).
		Int("warnings", run.Warnings).
		Int("errors", run.Errors).
		Dur("elapsed", completed.Sub(run.StartedAt)).
		Msg("mrp run completed")

	return result, nil
}

// assemble builds the snapshot to commit on top of previous: the run's output for the
// affected items, fresh action messages, and for net-change runs everything else carried over.
func (o *PlanningOrchestrator) assemble(
	run *entities.MRPRun,
	req RunRequest,
	output *mrp.PlanOutput,
	data *masterData,
	horizon entities.Horizon,
	today time.Time,
	affected map[entities.PartNumber]bool,
	previous *entities.PlanSnapshot,
) (*entities.PlanSnapshot, []*entities.ActionMessage) {
	inScope := func(pn entities.PartNumber) bool { return req.Scope.IsFull() || affected[pn] }
	snapshot := &entities.PlanSnapshot{
		RunID:        run.ID,
		Scope:        req.Scope,
		CreatedAt:    o.now(),
		HorizonStart: horizon.Start(),
		BucketDays:   o.config.BucketDays,
		BucketCount:  len(horizon),
		Traces:       make(map[entities.PartNumber]*entities.ItemTrace),
	}
	for _, po := range output.PlannedOrders {
		if inScope(po.PartNumber) {
			snapshot.PlannedOrders = append(snapshot.PlannedOrders, po)
		}
	}
	for pn, trace := range output.Traces {
		if inScope(pn) {
			snapshot.Traces[pn] = trace
		}
	}
	for _, issue := range output.Issues {
		if issue.PartNumber == "" || inScope(issue.PartNumber) {
			snapshot.Issues = append(snapshot.Issues, issue)
		}
	}

	var previousMessages []*entities.ActionMessage
	if previous != nil {
		previousMessages = previous.ActionMessages
	}

	var scopedOpen []*entities.OpenOrder
	for _, oo := range data.openOrders {
		if inScope(oo.PartNumber) {
			scopedOpen = append(scopedOpen, oo)
		}
	}
	generated := o.generator.Generate(actions.Input{
		PlannedOrders: snapshot.PlannedOrders,
		OpenOrders:    scopedOpen,
		Traces:        snapshot.Traces,
		Items:         data.itemIndex,
		Horizon:       horizon,
		Today:         today,
		Previous:      previousMessages,
	})
	snapshot.ActionMessages = generated

	if previous != nil && !req.Scope.IsFull() {
		carryUnaffected(snapshot, previous, affected)
	}
	return snapshot, generated
}

func (o *PlanningOrchestrator) load(ctx context.Context, bomLines []*entities.BOMLine) (*masterData, error) {
	data := &masterData{bomLines: bomLines}
	var err error
	if data.items, err = o.repos.Items.GetAllItems(ctx); err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	if data.demands, err = o.repos.Demands.GetDemands(ctx); err != nil {
		return nil, fmt.Errorf("failed to load demand: %w", err)
	}
	if data.openOrders, err = o.repos.OpenOrders.GetAllOpenOrders(ctx); err != nil {
		return nil, fmt.Errorf("failed to load open orders: %w", err)
	}
	if o.repos.Routings != nil {
		if data.routings, err = o.repos.Routings.GetAllRoutings(ctx); err != nil {
			return nil, fmt.Errorf("failed to load routings: %w", err)
		}
	}
	if o.repos.WorkCenters != nil {
		if data.workCenters, err = o.repos.WorkCenters.GetAllWorkCenters(ctx); err != nil {
			return nil, fmt.Errorf("failed to load work centers: %w", err)
		}
	}
	data.itemIndex = make(map[entities.PartNumber]*entities.ItemPlanningRecord, len(data.items))
	for _, item := range data.items {
		data.itemIndex[item.PartNumber] = item
	}
	return data, nil
}

// carryUnaffected copies every item outside the net-change set from the previous version
func carryUnaffected(snapshot, previous *entities.PlanSnapshot, affected map[entities.PartNumber]bool) {
	for _, po := range previous.PlannedOrders {
		if !affected[po.PartNumber] {
			snapshot.PlannedOrders = append(snapshot.PlannedOrders, po)
		}
	}
	for pn, trace := range previous.Traces {
		if !affected[pn] {
			snapshot.Traces[pn] = trace
		}
	}
	for _, issue := range previous.Issues {
		if issue.PartNumber != "" && !affected[issue.PartNumber] {
			snapshot.Issues = append(snapshot.Issues, issue)
		}
	}
	for _, msg := range previous.ActionMessages {
		if !affected[msg.PartNumber] {
			carried := *msg
			snapshot.ActionMessages = append(snapshot.ActionMessages, &carried)
		}
	}

	sort.SliceStable(snapshot.PlannedOrders, func(i, j int) bool {
		a, b := snapshot.PlannedOrders[i], snapshot.PlannedOrders[j]
		if a.PartNumber != b.PartNumber {
			return a.PartNumber < b.PartNumber
		}
		return a.Bucket < b.Bucket
	})
	sort.SliceStable(snapshot.Issues, func(i, j int) bool {
		a, b := snapshot.Issues[i], snapshot.Issues[j]
		if a.PartNumber != b.PartNumber {
			return a.PartNumber < b.PartNumber
		}
		return a.Code < b.Code
	})
	actions.Rank(snapshot.ActionMessages)
}

func (o *PlanningOrchestrator) fail(ctx context.Context, run *entities.MRPRun, cause error, logger zerolog.Logger) {
	completed := o.now()
	run.Status = entities.RunFailed
	run.Error = cause.Error()
	run.CompletedAt = &completed

	// record the failure even when the caller's context is what failed
	if err := o.plans.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Error().Err(err).Msg("failed to record run failure")
	}
	o.publish(events.NewRunFailedEvent(events.RunFailed{RunID: run.ID, Scope: run.Scope, Error: run.Error}))
	logger.Error().Err(cause).Msg("mrp run failed")
}

func (o *PlanningOrchestrator) publishCommitted(snapshot *entities.PlanSnapshot, run *entities.MRPRun, generated []*entities.ActionMessage) {
	o.publish(events.NewPlanCommittedEvent(events.PlanCommitted{
		RunID:          run.ID,
		Version:        snapshot.Version,
		Scope:          snapshot.Scope,
		PlannedOrders:  len(snapshot.PlannedOrders),
		ActionMessages: len(snapshot.ActionMessages),
		Errors:         run.Errors,
		Warnings:       run.Warnings,
	}))
	for _, msg := range generated {
		o.publish(events.NewActionGeneratedEvent(snapshot.Version, *msg))
	}
}

func (o *PlanningOrchestrator) publish(e events.Event) {
	if o.events == nil {
		return
	}
	if err := o.events.AppendEvent(e.StreamID(), e); err != nil {
		o.logger.Error().Err(err).Str("event", e.Type()).Msg("failed to publish event")
	}
}

func (o *PlanningOrchestrator) lock(runID string, scope entities.Scope) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, other := range o.active {
		if scope.Overlaps(other) {
			return fmt.Errorf("scope %s overlaps run %s: %w", scope.Key(), id, entities.ErrScopeLocked)
		}
	}
	o.active[runID] = scope
	return nil
}

func (o *PlanningOrchestrator) unlock(runID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, runID)
}

// expandScope returns the scope's parts plus everything below them in the BOM
func expandScope(graph *services.BOMGraph, scope entities.Scope) map[entities.PartNumber]bool {
	if scope.IsFull() {
		return nil
	}
	return graph.Descendants(scope.SKUs)
}

func sortedParts(set map[entities.PartNumber]bool) []entities.PartNumber {
	parts := make([]entities.PartNumber, 0, len(set))
	for pn := range set {
		parts = append(parts, pn)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i] < parts[j] })
	return parts
}

// LatestPlan returns the latest committed plan as a result view
func (o *PlanningOrchestrator) LatestPlan(ctx context.Context) (*dto.PlanResult, error) {
	snapshot, err := o.plans.LatestPlan(ctx)
	if err != nil {
		return nil, err
	}
	return o.resultFor(ctx, snapshot), nil
}

// GetPlan returns one committed plan version
func (o *PlanningOrchestrator) GetPlan(ctx context.Context, version int) (*dto.PlanResult, error) {
	snapshot, err := o.plans.GetPlan(ctx, version)
	if err != nil {
		return nil, err
	}
	return o.resultFor(ctx, snapshot), nil
}

func (o *PlanningOrchestrator) resultFor(ctx context.Context, snapshot *entities.PlanSnapshot) *dto.PlanResult {
	run, err := o.plans.GetRun(ctx, snapshot.RunID)
	if err != nil {
		run = nil
	}
	return dto.FromSnapshot(snapshot, run)
}

// ListRuns returns the run records, newest first
func (o *PlanningOrchestrator) ListRuns(ctx context.Context) ([]*entities.MRPRun, error) {
	return o.plans.ListRuns(ctx)
}

// MarkReviewed flags an action message of the latest plan as reviewed
func (o *PlanningOrchestrator) MarkReviewed(ctx context.Context, messageID string) (*entities.ActionMessage, error) {
	return o.plans.UpdateActionMessage(ctx, messageID, true, false)
}

// MarkImplemented flags an action message of the latest plan as implemented
func (o *PlanningOrchestrator) MarkImplemented(ctx context.Context, messageID string) (*entities.ActionMessage, error) {
	return o.plans.UpdateActionMessage(ctx, messageID, true, true)
}

// GetCapacitySnapshot returns the load of every work center in the bucket containing period.
func (o *PlanningOrchestrator) GetCapacitySnapshot(ctx context.Context, period time.Time) ([]entities.WorkCenterLoad, error) {
	profile, err := o.CapacityProfile(ctx)
	if err != nil {
		return nil, err
	}
	return profile.LoadsAt(period), nil
}

// CapacityProfile returns the full load profile of the latest plan.
// The cached profile is rebuilt from the latest plan when nothing has been computed yet.
func (o *PlanningOrchestrator) CapacityProfile(ctx context.Context) (*dto.CapacitySnapshot, error) {
	if snap := o.capacity.Current(); snap != nil {
		return snap, nil
	}

	snapshot, err := o.plans.LatestPlan(ctx)
	if err != nil {
		return nil, fmt.Errorf("no capacity snapshot: %w", err)
	}
	if err := o.RefreshCapacity(ctx, snapshot); err != nil {
		return nil, err
	}
	return o.capacity.Current(), nil
}

// RefreshCapacity recomputes the load profile of a committed plan from current master data
func (o *PlanningOrchestrator) RefreshCapacity(ctx context.Context, snapshot *entities.PlanSnapshot) error {
	horizon, err := snapshot.Horizon()
	if err != nil {
		return fmt.Errorf("plan %d has no usable horizon: %w", snapshot.Version, err)
	}
	bomLines, err := o.repos.BOM.GetAllBOMLines(ctx)
	if err != nil {
		return fmt.Errorf("failed to load bill of materials: %w", err)
	}
	data, err := o.load(ctx, bomLines)
	if err != nil {
		return err
	}
	o.capacity.Refresh(snapshot.Version, capacity.Input{
		PlannedOrders: snapshot.PlannedOrders,
		OpenOrders:    data.openOrders,
		Routings:      data.routings,
		WorkCenters:   data.workCenters,
		Items:         data.itemIndex,
		Horizon:       horizon,
	}, o.now())
	return nil
}
