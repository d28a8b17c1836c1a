package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// WorkCenter is a production resource with a finite number of hours per period
type WorkCenter struct {
	ID                 string
	Name               string
	HoursPerDay        decimal.Decimal
	WorkingDaysPerWeek int
	// EfficiencyPercent scales nominal hours; zero means 100
	EfficiencyPercent decimal.Decimal
	// Overrides pin the available hours of the bucket starting at the given date
	Overrides map[time.Time]decimal.Decimal
	// Actuals are hours booked against the work center, keyed by day
	Actuals map[time.Time]decimal.Decimal
}

// AvailableHours computes the capacity of the work center inside a bucket
func (w *WorkCenter) AvailableHours(b TimeBucket) decimal.Decimal {
	if hours, ok := w.Overrides[TruncateDay(b.Start)]; ok {
		return hours
	}

	workingDays := 0
	for d := b.Start; d.Before(b.End); d = d.AddDate(0, 0, 1) {
		if isWorkingDay(d.Weekday(), w.WorkingDaysPerWeek) {
			workingDays++
		}
	}

	hours := w.HoursPerDay.Mul(decimal.NewFromInt(int64(workingDays)))
	if w.EfficiencyPercent.IsPositive() {
		hours = hours.Mul(w.EfficiencyPercent).Div(decimal.NewFromInt(100))
	}
	return hours.Round(2)
}

// ActualHours sums the booked hours inside a bucket, nil when nothing was booked
func (w *WorkCenter) ActualHours(b TimeBucket) *decimal.Decimal {
	var total *decimal.Decimal
	for day, hours := range w.Actuals {
		if !b.Contains(day) {
			continue
		}
		sum := hours
		if total != nil {
			sum = total.Add(hours)
		}
		total = &sum
	}
	return total
}

// isWorkingDay treats Monday as the first working day of the week
func isWorkingDay(day time.Weekday, perWeek int) bool {
	if perWeek <= 0 || perWeek >= 7 {
		return true
	}
	// Monday=0 ... Sunday=6
	offset := (int(day) + 6) % 7
	return offset < perWeek
}

// RoutingOperation is one step of an item's routing on a work center
type RoutingOperation struct {
	PartNumber      PartNumber
	Sequence        int
	WorkCenterID    string
	SetupHours      decimal.Decimal
	RunHoursPerUnit decimal.Decimal
	// OffsetDays places the operation relative to the order release date
	OffsetDays int
}

// RequiredHours is setup plus run time for a quantity
func (op *RoutingOperation) RequiredHours(quantity decimal.Decimal) decimal.Decimal {
	return op.SetupHours.Add(op.RunHoursPerUnit.Mul(quantity))
}

// Validate checks the routing operation for impossible values
func (op *RoutingOperation) Validate() error {
	if op.PartNumber == "" || op.WorkCenterID == "" {
		return fmt.Errorf("routing operation requires part number and work center")
	}
	if op.SetupHours.IsNegative() || op.RunHoursPerUnit.IsNegative() {
		return fmt.Errorf("routing %s/%d: hours cannot be negative", op.PartNumber, op.Sequence)
	}
	if op.OffsetDays < 0 {
		return fmt.Errorf("routing %s/%d: offset days cannot be negative", op.PartNumber, op.Sequence)
	}
	return nil
}

// WorkCenterLoad is the aggregate load of one work center in one bucket.
// Utilization and the over/under-load figures are derived from the stored hours.
type WorkCenterLoad struct {
	WorkCenterID   string           `json:"work_center_id"`
	Bucket         TimeBucket       `json:"bucket"`
	AvailableHours decimal.Decimal  `json:"available_hours"`
	PlannedHours   decimal.Decimal  `json:"planned_hours"`
	ActualHours    *decimal.Decimal `json:"actual_hours,omitempty"`
}

// UtilizationPercent is planned/available*100, nil when no hours are available
func (l WorkCenterLoad) UtilizationPercent() *decimal.Decimal {
	if !l.AvailableHours.IsPositive() {
		return nil
	}
	u := l.PlannedHours.Mul(decimal.NewFromInt(100)).DivRound(l.AvailableHours, 2)
	return &u
}

// IsOverloaded reports planned hours above available hours
func (l WorkCenterLoad) IsOverloaded() bool {
	return l.PlannedHours.GreaterThan(l.AvailableHours)
}

// OverloadHours is the excess of planned over available hours, zero otherwise
func (l WorkCenterLoad) OverloadHours() decimal.Decimal {
	if !l.IsOverloaded() {
		return decimal.Zero
	}
	return l.PlannedHours.Sub(l.AvailableHours)
}

// IsUnderloaded reports planned hours below available hours
func (l WorkCenterLoad) IsUnderloaded() bool {
	return l.PlannedHours.LessThan(l.AvailableHours)
}

// UnderloadHours is the unused capacity, zero otherwise
func (l WorkCenterLoad) UnderloadHours() decimal.Decimal {
	if !l.IsUnderloaded() {
		return decimal.Zero
	}
	return l.AvailableHours.Sub(l.PlannedHours)
}
