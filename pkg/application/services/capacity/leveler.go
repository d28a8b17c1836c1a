package capacity

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// Input is the order book and shop calendar a load profile is computed from
type Input struct {
	PlannedOrders []*entities.PlannedOrder
	OpenOrders    []*entities.OpenOrder
	Routings      []*entities.RoutingOperation
	WorkCenters   []*entities.WorkCenter
	Items         map[entities.PartNumber]*entities.ItemPlanningRecord
	Horizon       entities.Horizon
}

// Leveler computes work center load per bucket. It keeps no state between calls.
type Leveler struct{}

func NewLeveler() *Leveler {
	return &Leveler{}
}

// Compute returns one load per work center and bucket, sorted by work center then bucket,
// plus warnings for operations routed to unknown work centers
func (l *Leveler) Compute(in Input) ([]entities.WorkCenterLoad, []string) {
	routings := make(map[entities.PartNumber][]*entities.RoutingOperation)
	for _, op := range in.Routings {
		routings[op.PartNumber] = append(routings[op.PartNumber], op)
	}
	for pn := range routings {
		sort.Slice(routings[pn], func(i, j int) bool { return routings[pn][i].Sequence < routings[pn][j].Sequence })
	}

	centers := make([]*entities.WorkCenter, len(in.WorkCenters))
	copy(centers, in.WorkCenters)
	sort.Slice(centers, func(i, j int) bool { return centers[i].ID < centers[j].ID })

	planned := make(map[string][]decimal.Decimal, len(centers))
	for _, wc := range centers {
		series := make([]decimal.Decimal, len(in.Horizon))
		for i := range series {
			series[i] = decimal.Zero
		}
		planned[wc.ID] = series
	}

	var warnings []string
	load := func(pn entities.PartNumber, ref string, start time.Time, qty decimal.Decimal) {
		for _, op := range routings[pn] {
			series, ok := planned[op.WorkCenterID]
			if !ok {
				warnings = append(warnings, fmt.Sprintf("%s operation %d of %s is routed to unknown work center %s",
					ref, op.Sequence, pn, op.WorkCenterID))
				continue
			}
			idx, ok := in.Horizon.IndexOf(start.AddDate(0, 0, op.OffsetDays))
			if !ok {
				continue
			}
			series[idx] = series[idx].Add(op.RequiredHours(qty))
		}
	}

	for _, o := range in.PlannedOrders {
		if o.Type != entities.Production {
			continue
		}
		load(o.PartNumber, o.ID, o.ReleaseDate, o.Quantity)
	}
	for _, o := range in.OpenOrders {
		if o.Type != entities.Production || o.Status == entities.StatusPlanned {
			continue
		}
		lt := 0
		if item, ok := in.Items[o.PartNumber]; ok {
			lt, _ = item.LeadTime()
		}
		load(o.PartNumber, o.ID, o.DueDate.AddDate(0, 0, -lt), o.QuantityOpen())
	}

	loads := make([]entities.WorkCenterLoad, 0, len(centers)*len(in.Horizon))
	for _, wc := range centers {
		for i, bucket := range in.Horizon {
			loads = append(loads, entities.WorkCenterLoad{
				WorkCenterID:   wc.ID,
				Bucket:         bucket,
				AvailableHours: wc.AvailableHours(bucket),
				PlannedHours:   planned[wc.ID][i],
				ActualHours:    wc.ActualHours(bucket),
			})
		}
	}
	return loads, warnings
}

// Overloaded filters the loads whose planned hours exceed availability
func Overloaded(loads []entities.WorkCenterLoad) []entities.WorkCenterLoad {
	var out []entities.WorkCenterLoad
	for _, l := range loads {
		if l.IsOverloaded() {
			out = append(out, l)
		}
	}
	return out
}
