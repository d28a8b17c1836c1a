package entities

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// 2026-01-05 is a Monday
var monday = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func week() TimeBucket {
	return TimeBucket{Index: 0, Start: monday, End: monday.AddDate(0, 0, 7)}
}

func TestWorkCenterLoad_Overloaded(t *testing.T) {
	load := WorkCenterLoad{WorkCenterID: "WC-1", Bucket: week(), AvailableHours: d("80"), PlannedHours: d("95")}

	assert.True(t, load.IsOverloaded())
	assert.Equal(t, "15", load.OverloadHours().String())
	require.NotNil(t, load.UtilizationPercent())
	assert.Equal(t, "118.75", load.UtilizationPercent().String())
	assert.False(t, load.IsUnderloaded())
	assert.True(t, load.UnderloadHours().IsZero())
}

func TestWorkCenterLoad_UnderloadedAndUndefinedUtilization(t *testing.T) {
	load := WorkCenterLoad{AvailableHours: d("40"), PlannedHours: d("30")}
	assert.Equal(t, "10", load.UnderloadHours().String())
	assert.Equal(t, "75", load.UtilizationPercent().String())

	closed := WorkCenterLoad{AvailableHours: decimal.Zero, PlannedHours: d("3")}
	assert.Nil(t, closed.UtilizationPercent())
	assert.True(t, closed.IsOverloaded())
}

func TestWorkCenter_AvailableHours(t *testing.T) {
	wc := &WorkCenter{ID: "WC-1", HoursPerDay: d("8"), WorkingDaysPerWeek: 5}
	assert.Equal(t, "40", wc.AvailableHours(week()).String())

	wc.EfficiencyPercent = d("85")
	assert.Equal(t, "34", wc.AvailableHours(week()).String())

	wc.Overrides = map[time.Time]decimal.Decimal{monday: d("12")}
	assert.Equal(t, "12", wc.AvailableHours(week()).String())
}

func TestWorkCenter_ActualHours(t *testing.T) {
	wc := &WorkCenter{Actuals: map[time.Time]decimal.Decimal{
		monday:                  d("6.5"),
		monday.AddDate(0, 0, 2): d("7"),
		monday.AddDate(0, 0, 9): d("99"),
	}}

	got := wc.ActualHours(week())
	require.NotNil(t, got)
	assert.Equal(t, "13.5", got.String())

	assert.Nil(t, (&WorkCenter{}).ActualHours(week()))
}

func TestRoutingOperation_RequiredHours(t *testing.T) {
	op := &RoutingOperation{PartNumber: "P", WorkCenterID: "WC", SetupHours: d("1.5"), RunHoursPerUnit: d("0.25")}
	assert.Equal(t, "26.5", op.RequiredHours(d("100")).String())
	assert.NoError(t, op.Validate())

	op.RunHoursPerUnit = d("-1")
	assert.Error(t, op.Validate())
}
