package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// CapacitySnapshot is the work center load computed from one plan version
type CapacitySnapshot struct {
	PlanVersion int                       `json:"plan_version"`
	ComputedAt  time.Time                 `json:"computed_at"`
	Loads       []entities.WorkCenterLoad `json:"loads"`
}

// LoadsAt returns the loads of the bucket containing the given date
func (s *CapacitySnapshot) LoadsAt(period time.Time) []entities.WorkCenterLoad {
	var out []entities.WorkCenterLoad
	for _, l := range s.Loads {
		if l.Bucket.Contains(period) {
			out = append(out, l)
		}
	}
	return out
}

// WorkCenterLoadView flattens a load with its derived figures for output
type WorkCenterLoadView struct {
	WorkCenterID       string           `json:"work_center_id"`
	BucketStart        time.Time        `json:"bucket_start"`
	BucketEnd          time.Time        `json:"bucket_end"`
	AvailableHours     decimal.Decimal  `json:"available_hours"`
	PlannedHours       decimal.Decimal  `json:"planned_hours"`
	ActualHours        *decimal.Decimal `json:"actual_hours,omitempty"`
	UtilizationPercent *decimal.Decimal `json:"utilization_percent"`
	IsOverloaded       bool             `json:"is_overloaded"`
	OverloadHours      decimal.Decimal  `json:"overload_hours"`
	UnderloadHours     decimal.Decimal  `json:"underload_hours"`
}

// NewWorkCenterLoadViews converts loads into output views
func NewWorkCenterLoadViews(loads []entities.WorkCenterLoad) []WorkCenterLoadView {
	views := make([]WorkCenterLoadView, 0, len(loads))
	for _, l := range loads {
		views = append(views, WorkCenterLoadView{
			WorkCenterID:       l.WorkCenterID,
			BucketStart:        l.Bucket.Start,
			BucketEnd:          l.Bucket.End,
			AvailableHours:     l.AvailableHours,
			PlannedHours:       l.PlannedHours,
			ActualHours:        l.ActualHours,
			UtilizationPercent: l.UtilizationPercent(),
			IsOverloaded:       l.IsOverloaded(),
			OverloadHours:      l.OverloadHours(),
			UnderloadHours:     l.UnderloadHours(),
		})
	}
	return views
}
