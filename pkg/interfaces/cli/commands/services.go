package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vsinha/mrp-planner/pkg/application/services/actions"
	"github.com/vsinha/mrp-planner/pkg/application/services/capacity"
	"github.com/vsinha/mrp-planner/pkg/application/services/matching"
	"github.com/vsinha/mrp-planner/pkg/application/services/mrp"
	"github.com/vsinha/mrp-planner/pkg/application/services/orchestration"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/config"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/events"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/repositories/sqlite"
)

// Services is the wired application shared by the CLI commands and the API server
type Services struct {
	Planner    *orchestration.PlanningOrchestrator
	Reconciler *matching.Reconciler
	Events     *events.InMemoryEventStore

	Items       *memory.ItemRepository
	BOM         *memory.BOMRepository
	Demands     *memory.DemandRepository
	OpenOrders  *memory.OpenOrderRepository
	Routings    *memory.RoutingRepository
	WorkCenters *memory.WorkCenterRepository

	closers []func() error
}

// BuildServices loads a scenario into memory repositories and wires the planner and
// reconciler. Plans and match lines persist to SQLite when cfg.DB.Path is set.
func BuildServices(ctx context.Context, cfg *config.Config, scenario *csv.Scenario, logger zerolog.Logger) (*Services, error) {
	s := &Services{
		Events:      events.NewInMemoryEventStore(logger),
		Items:       memory.NewItemRepository(len(scenario.Items)),
		BOM:         memory.NewBOMRepository(len(scenario.BOMLines)),
		Demands:     memory.NewDemandRepository(),
		OpenOrders:  memory.NewOpenOrderRepository(),
		Routings:    memory.NewRoutingRepository(),
		WorkCenters: memory.NewWorkCenterRepository(),
	}

	loads := []struct {
		name string
		fn   func() error
	}{
		{"items", func() error { return s.Items.LoadItems(ctx, scenario.Items) }},
		{"BOM lines", func() error { return s.BOM.LoadBOMLines(ctx, scenario.BOMLines) }},
		{"demands", func() error { return s.Demands.LoadDemands(ctx, scenario.Demands) }},
		{"open orders", func() error { return s.OpenOrders.LoadOpenOrders(ctx, scenario.OpenOrders) }},
		{"routings", func() error { return s.Routings.LoadRoutings(ctx, scenario.Routings) }},
		{"work centers", func() error { return s.WorkCenters.LoadWorkCenters(ctx, scenario.WorkCenters) }},
	}
	for _, l := range loads {
		if err := l.fn(); err != nil {
			return nil, fmt.Errorf("failed to load %s into repository: %w", l.name, err)
		}
	}

	var (
		plans   repositories.PlanStore
		matches repositories.MatchStore
	)
	if cfg.DB.Path != "" {
		store, err := sqlite.New(cfg.DB.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		s.closers = append(s.closers, store.Close)
		plans, matches = store, store
		logger.Info().Str("path", cfg.DB.Path).Msg("using sqlite plan and match stores")
	} else {
		plans, matches = memory.NewPlanStore(), memory.NewMatchStore()
	}

	s.Planner = orchestration.NewPlanningOrchestrator(
		mrp.NewMRPService(mrp.EngineConfig{Parallelism: cfg.Planning.Parallelism}, logger),
		actions.NewGenerator(actions.Config{
			RescheduleThresholdDays:  cfg.Actions.RescheduleThresholdDays,
			QuantityTolerancePercent: cfg.Actions.QuantityTolerancePercent,
		}),
		capacity.NewSnapshotCache(capacity.NewLeveler(), logger),
		orchestration.Repositories{
			Items:       s.Items,
			BOM:         s.BOM,
			Demands:     s.Demands,
			OpenOrders:  s.OpenOrders,
			Routings:    s.Routings,
			WorkCenters: s.WorkCenters,
		},
		plans,
		s.Events,
		orchestration.Config{
			BucketDays:     cfg.Planning.BucketDays,
			HorizonBuckets: cfg.Planning.HorizonBuckets,
			CommitRetries:  cfg.Planning.CommitRetries,
		},
		logger,
	)
	s.Reconciler = matching.NewReconciler(matches, s.Events, matching.Config{
		DefaultTolerancePercent: cfg.Matching.DefaultTolerancePercent,
		MaxRetries:              cfg.Matching.MaxRetries,
		AutoReleaseMatched:      cfg.Matching.AutoReleaseMatched,
	}, logger)

	if err := s.Events.Subscribe([]string{events.MatchReadyToPayEvent}, payablesTrigger(logger)); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to subscribe payables trigger: %w", err), s.Close())
	}
	return s, nil
}

// payablesTrigger hands lines that are ready to pay over to accounts payable
func payablesTrigger(logger zerolog.Logger) events.EventHandler {
	logger = logger.With().Str("component", "payables").Logger()
	return &events.HandlerFunc{
		Types: []string{events.MatchReadyToPayEvent},
		Fn: func(e events.Event) error {
			data, ok := e.Data().(events.MatchReadyToPay)
			if !ok {
				return fmt.Errorf("unexpected payload %T for %s", e.Data(), e.Type())
			}
			logger.Info().
				Str("match_id", data.MatchID).
				Str("po_id", data.POID).
				Str("invoice_amount", data.InvoiceAmount).
				Msg("line released to accounts payable")
			return nil
		},
	}
}

// Close flushes pending event deliveries and closes the database
func (s *Services) Close() error {
	s.Events.Flush()
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	s.closers = nil
	return errors.Join(errs...)
}
