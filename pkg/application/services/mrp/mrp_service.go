package mrp

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/services"
)

// EngineConfig holds configuration for the MRP engine
type EngineConfig struct {
	// Parallelism caps how many items of one low-level code are netted at once
	Parallelism int
}

// PlanInput is everything one run plans from, already loaded from the master stores
type PlanInput struct {
	Items      []*entities.ItemPlanningRecord
	BOMLines   []*entities.BOMLine
	Demands    []*entities.DemandLine
	OpenOrders []*entities.OpenOrder
	Horizon    entities.Horizon
	Today      time.Time
}

// PlanOutput is the computed plan for every item that could be planned
type PlanOutput struct {
	PlannedOrders []*entities.PlannedOrder
	Traces        map[entities.PartNumber]*entities.ItemTrace
	Issues        []entities.ItemIssue
}

// MRPService implements multi-level MRP: items are netted in low-level code order so
// every parent's dependent demand is complete before a component is planned.
type MRPService struct {
	config EngineConfig
	logger zerolog.Logger
}

// NewMRPService creates a new MRP service
func NewMRPService(config EngineConfig, logger zerolog.Logger) *MRPService {
	if config.Parallelism <= 0 {
		config.Parallelism = 1
	}
	return &MRPService{config: config, logger: logger.With().Str("component", "mrp").Logger()}
}

// Plan runs the gross-to-net calculation over every item in the input
func (s *MRPService) Plan(ctx context.Context, in PlanInput) (*PlanOutput, error) {
	if len(in.Horizon) == 0 {
		return nil, fmt.Errorf("planning horizon is empty: %w", entities.ErrInvalidInput)
	}

	out := &PlanOutput{Traces: make(map[entities.PartNumber]*entities.ItemTrace)}
	items := make(map[entities.PartNumber]*entities.ItemPlanningRecord, len(in.Items))
	for _, item := range in.Items {
		items[item.PartNumber] = item
	}

	graph := services.NewBOMGraph(in.BOMLines)
	for pn := range items {
		graph.AddPart(pn)
	}
	known := make(map[entities.PartNumber]bool, len(items))
	for pn := range items {
		known[pn] = true
	}
	validation := services.ValidateBOM(in.BOMLines, known)
	levels, blocked := graph.LowLevelCodes()
	out.Issues = append(out.Issues, cycleIssues(graph, validation.CyclePaths, blocked)...)
	out.Issues = append(out.Issues, bomLineIssues(validation)...)

	bucketCount := len(in.Horizon)
	gross := make(map[entities.PartNumber][]decimal.Decimal, len(levels))
	scheduled := make(map[entities.PartNumber][]decimal.Decimal, len(levels))
	for pn := range levels {
		gross[pn] = zeroSeries(bucketCount)
		scheduled[pn] = zeroSeries(bucketCount)
	}

	out.Issues = append(out.Issues, s.loadIndependentDemand(in, items, levels, gross)...)
	s.loadScheduledReceipts(in, levels, scheduled)

	for level, batch := range services.GroupByLevel(levels) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		results := make([]*NettingResult, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.config.Parallelism)

		for i, pn := range batch {
			i, pn := i, pn
			item, ok := items[pn]
			if !ok {
				continue
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := item.Validate(); err != nil {
					results[i] = &NettingResult{Issues: []entities.ItemIssue{{
						Severity:   entities.SeverityError,
						Code:       entities.IssueConfiguration,
						PartNumber: pn,
						Message:    err.Error(),
					}}}
					return nil
				}
				res, err := NetRequirements(ItemNetting{
					Item:      item,
					Horizon:   in.Horizon,
					Gross:     gross[pn],
					Scheduled: scheduled[pn],
					Today:     in.Today,
					Level:     level,
				})
				if err != nil {
					return err
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("failed to net level %d: %w", level, err)
		}

		// Explode sequentially, in part number order, so component gross is deterministic
		for i, pn := range batch {
			res := results[i]
			if res == nil {
				if _, ok := items[pn]; !ok && hasDemand(gross[pn]) {
					out.Issues = append(out.Issues, unknownItemIssue(pn, "has dependent demand but no planning record"))
				}
				continue
			}
			out.Issues = append(out.Issues, res.Issues...)
			if res.Trace == nil {
				continue
			}
			out.Traces[pn] = res.Trace
			out.PlannedOrders = append(out.PlannedOrders, res.Orders...)
			out.Issues = append(out.Issues, s.explode(in, items, graph, res.Orders, gross)...)
		}

		s.logger.Debug().Int("level", level).Int("items", len(batch)).Msg("level netted")
	}

	sortIssues(out.Issues)
	sort.SliceStable(out.PlannedOrders, func(i, j int) bool {
		a, b := out.PlannedOrders[i], out.PlannedOrders[j]
		if a.PartNumber != b.PartNumber {
			return a.PartNumber < b.PartNumber
		}
		return a.Bucket < b.Bucket
	})
	return out, nil
}

func (s *MRPService) loadIndependentDemand(
	in PlanInput,
	items map[entities.PartNumber]*entities.ItemPlanningRecord,
	levels map[entities.PartNumber]int,
	gross map[entities.PartNumber][]decimal.Decimal,
) []entities.ItemIssue {
	var issues []entities.ItemIssue
	for _, d := range in.Demands {
		if _, ok := items[d.PartNumber]; !ok {
			issues = append(issues, unknownItemIssue(d.PartNumber, "has demand but no planning record"))
			continue
		}
		if _, ok := levels[d.PartNumber]; !ok {
			continue // cyclic, already reported
		}
		idx, ok := in.Horizon.IndexOf(d.NeedDate)
		if !ok {
			issues = append(issues, entities.ItemIssue{
				Severity:   entities.SeverityWarning,
				Code:       entities.IssueOutsideHorizon,
				PartNumber: d.PartNumber,
				Message:    fmt.Sprintf("demand %s due %s is beyond the horizon", d.Reference, d.NeedDate.Format(time.DateOnly)),
			})
			continue
		}
		gross[d.PartNumber][idx] = gross[d.PartNumber][idx].Add(d.Quantity)
	}
	return issues
}

func (s *MRPService) loadScheduledReceipts(
	in PlanInput,
	levels map[entities.PartNumber]int,
	scheduled map[entities.PartNumber][]decimal.Decimal,
) {
	for _, o := range in.OpenOrders {
		if _, ok := levels[o.PartNumber]; !ok {
			continue
		}
		idx, ok := in.Horizon.IndexOf(o.DueDate)
		if !ok {
			continue
		}
		scheduled[o.PartNumber][idx] = scheduled[o.PartNumber][idx].Add(o.QuantityOpen())
	}
}

// explode turns a parent's planned orders into dependent demand on its components
func (s *MRPService) explode(
	in PlanInput,
	items map[entities.PartNumber]*entities.ItemPlanningRecord,
	graph *services.BOMGraph,
	orders []*entities.PlannedOrder,
	gross map[entities.PartNumber][]decimal.Decimal,
) []entities.ItemIssue {
	var issues []entities.ItemIssue
	for _, order := range orders {
		// purchased parents arrive complete, their BOM is not driven
		if item, ok := items[order.PartNumber]; !ok || item.MakeBuy != entities.MakeBuyMake {
			continue
		}
		for _, line := range graph.Children(order.PartNumber) {
			series, ok := gross[line.ChildPN]
			if !ok {
				continue
			}
			var precision int32
			if child, ok := items[line.ChildPN]; ok {
				precision = child.Precision
			}
			needDate := order.ReleaseDate.AddDate(0, 0, -line.OffsetDays)
			idx, ok := in.Horizon.IndexOf(needDate)
			if !ok {
				issues = append(issues, entities.ItemIssue{
					Severity:   entities.SeverityWarning,
					Code:       entities.IssueOutsideHorizon,
					PartNumber: line.ChildPN,
					Message:    fmt.Sprintf("dependent demand from %s falls outside the horizon", order.PartNumber),
				})
				continue
			}
			series[idx] = series[idx].Add(services.ExtendComponent(line, order.Quantity, precision))
		}
	}
	return issues
}

// cycleIssues reports every blocked part together with the cycle path that blocks it
func cycleIssues(graph *services.BOMGraph, paths [][]entities.PartNumber, blocked []entities.PartNumber) []entities.ItemIssue {
	cycles := make([]*entities.CyclicDependencyError, len(paths))
	onCycle := make(map[entities.PartNumber]*entities.CyclicDependencyError)
	for i, path := range paths {
		cycles[i] = &entities.CyclicDependencyError{Path: path}
		for _, pn := range path {
			if _, ok := onCycle[pn]; !ok {
				onCycle[pn] = cycles[i]
			}
		}
	}
	below := make(map[entities.PartNumber]*entities.CyclicDependencyError)
	for _, cycle := range cycles {
		for pn := range graph.Descendants(cycle.Path) {
			if _, ok := below[pn]; !ok {
				below[pn] = cycle
			}
		}
	}

	issues := make([]entities.ItemIssue, 0, len(blocked))
	for _, pn := range blocked {
		msg := "part is below a bill of materials cycle and was not planned"
		if cycle, ok := onCycle[pn]; ok {
			msg = cycle.Error() + "; part was not planned"
		} else if cycle, ok := below[pn]; ok {
			msg = fmt.Sprintf("part is below %v and was not planned", cycle)
		}
		issues = append(issues, entities.ItemIssue{
			Severity:   entities.SeverityError,
			Code:       entities.IssueCyclicDependency,
			PartNumber: pn,
			Message:    msg,
		})
	}
	return issues
}

// bomLineIssues turns duplicate lines and components without a planning record into warnings
func bomLineIssues(v *services.ValidationResult) []entities.ItemIssue {
	var issues []entities.ItemIssue
	for _, line := range v.DuplicateLines {
		issues = append(issues, entities.ItemIssue{
			Severity:   entities.SeverityWarning,
			Code:       entities.IssueDuplicateBOMLine,
			PartNumber: line.ParentPN,
			Message:    fmt.Sprintf("duplicate BOM line %s -> %s at find number %d", line.ParentPN, line.ChildPN, line.FindNumber),
		})
	}
	for _, pn := range v.UnknownParts {
		issues = append(issues, entities.ItemIssue{
			Severity:   entities.SeverityWarning,
			Code:       entities.IssueUnknownBOMPart,
			PartNumber: pn,
			Message:    "part appears in the bill of materials but has no planning record",
		})
	}
	return issues
}

func zeroSeries(n int) []decimal.Decimal {
	s := make([]decimal.Decimal, n)
	for i := range s {
		s[i] = decimal.Zero
	}
	return s
}

func hasDemand(series []decimal.Decimal) bool {
	for _, q := range series {
		if q.IsPositive() {
			return true
		}
	}
	return false
}

func unknownItemIssue(pn entities.PartNumber, msg string) entities.ItemIssue {
	return entities.ItemIssue{
		Severity:   entities.SeverityError,
		Code:       entities.IssueUnknownItem,
		PartNumber: pn,
		Message:    "part " + msg,
	}
}

func sortIssues(issues []entities.ItemIssue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].PartNumber != issues[j].PartNumber {
			return issues[i].PartNumber < issues[j].PartNumber
		}
		return issues[i].Code < issues[j].Code
	})
}
