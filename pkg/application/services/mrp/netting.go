package mrp

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/services"
)

// plannedOrderNamespace seeds deterministic planned order ids
var plannedOrderNamespace = uuid.MustParse("6f1c7c3e-3f0e-4a52-9d7a-2b1f6f0c8a11")

// ItemNetting is the per-item input to the netting calculation
type ItemNetting struct {
	Item    *entities.ItemPlanningRecord
	Horizon entities.Horizon
	// Gross and Scheduled are indexed by bucket
	Gross     []decimal.Decimal
	Scheduled []decimal.Decimal
	Today     time.Time
	Level     int
}

// NettingResult is the planned orders and trace of one item
type NettingResult struct {
	Orders []*entities.PlannedOrder
	Trace  *entities.ItemTrace
	Issues []entities.ItemIssue
}

// PlannedOrderID is stable for a part, bucket and order type so that re-runs produce the same ids
func PlannedOrderID(pn entities.PartNumber, bucket int, orderType entities.OrderType) string {
	key := fmt.Sprintf("%s|%d|%s", pn, bucket, orderType)
	return uuid.NewSHA1(plannedOrderNamespace, []byte(key)).String()
}

// NetRequirements runs the time-phased gross-to-net calculation for one item
func NetRequirements(in ItemNetting) (*NettingResult, error) {
	item := in.Item
	if len(in.Gross) != len(in.Horizon) || len(in.Scheduled) != len(in.Horizon) {
		return nil, fmt.Errorf("bucket series for %s do not match the horizon length", item.PartNumber)
	}

	result := &NettingResult{
		Trace: &entities.ItemTrace{
			PartNumber:   item.PartNumber,
			LowLevelCode: in.Level,
			Buckets:      make([]entities.BucketTrace, 0, len(in.Horizon)),
			Carryover:    decimal.Zero,
		},
	}

	leadTime, ok := item.LeadTime()
	if !ok {
		result.Issues = append(result.Issues, entities.ItemIssue{
			Severity:   entities.SeverityWarning,
			Code:       entities.IssueMissingLeadTime,
			PartNumber: item.PartNumber,
			Message:    "no lead time on item master, planning with 0 days",
		})
	}

	totalGross := decimal.Zero
	for _, g := range in.Gross {
		totalGross = totalGross.Add(g)
	}
	dailyGross := decimal.Zero
	if days := in.Horizon.TotalDays(); days > 0 {
		dailyGross = totalGross.DivRound(decimal.NewFromInt(int64(days)), 8)
	}

	today := entities.TruncateDay(in.Today)
	balance := item.AvailableBalance()
	orderType := item.OrderType()

	for i, bucket := range in.Horizon {
		trace := entities.BucketTrace{
			Bucket:            i,
			Start:             bucket.Start,
			GrossRequirement:  in.Gross[i],
			ScheduledReceipts: in.Scheduled[i],
			BeginningBalance:  balance,
			NetRequirement:    decimal.Zero,
			PlannedReceipt:    decimal.Zero,
			PlannedRelease:    decimal.Zero,
		}

		projected := balance.Add(in.Scheduled[i]).Sub(in.Gross[i])
		trace.SafetyStock = services.SafetyStockTarget(item, in.Gross[i], dailyGross)

		if shortfall := trace.SafetyStock.Sub(projected); shortfall.IsPositive() {
			trace.NetRequirement = services.RoundUp(shortfall, item.Precision)
			lot := services.ApplyLotSize(item, trace.NetRequirement)
			if lot.Carryover.IsPositive() {
				result.Issues = append(result.Issues, entities.ItemIssue{
					Severity:   entities.SeverityWarning,
					Code:       entities.IssueCarryover,
					PartNumber: item.PartNumber,
					Message: fmt.Sprintf("bucket %d: maximum order quantity %s leaves %s uncovered",
						i, item.MaxOrderQty, lot.Carryover),
				})
			}

			if lot.Quantity.IsPositive() {
				release := services.ReleaseQuantity(item, lot.Quantity)
				needDate := in.Horizon.NeedDate(i)
				releaseDate := needDate.AddDate(0, 0, -leadTime)

				order, err := entities.NewPlannedOrder(
					PlannedOrderID(item.PartNumber, i, orderType),
					item.PartNumber, i, orderType,
					release, lot.Quantity, needDate, releaseDate,
				)
				if err != nil {
					return nil, fmt.Errorf("failed to create planned order for %s bucket %d: %w", item.PartNumber, i, err)
				}
				order.PastDue = releaseDate.Before(today)
				result.Orders = append(result.Orders, order)

				trace.PlannedReceipt = lot.Quantity
				trace.PlannedRelease = release
				projected = projected.Add(lot.Quantity)
			}
		}

		trace.EndingBalance = projected
		balance = projected
		result.Trace.Buckets = append(result.Trace.Buckets, trace)
	}

	if n := len(result.Trace.Buckets); n > 0 {
		last := result.Trace.Buckets[n-1]
		if gap := last.SafetyStock.Sub(last.EndingBalance); gap.IsPositive() {
			result.Trace.Carryover = gap
			result.Issues = append(result.Issues, entities.ItemIssue{
				Severity:   entities.SeverityWarning,
				Code:       entities.IssueCarryover,
				PartNumber: item.PartNumber,
				Message:    fmt.Sprintf("%s still uncovered at the end of the horizon", gap),
			})
		}
	}
	return result, nil
}
