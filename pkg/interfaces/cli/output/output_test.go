package output

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrp-planner/pkg/application/dto"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

func sampleReport() *Report {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	plan := &dto.PlanResult{
		RunID:   "run-1",
		Version: 3,
		Status:  entities.RunCompleted,
		PlannedOrders: []*entities.PlannedOrder{{
			ID: "po-1", PartNumber: "FRAME", Bucket: 2, Type: entities.Production, Status: entities.StatusPlanned,
			Quantity: decimal.NewFromInt(50), ReceiptQuantity: decimal.NewFromInt(50),
			ReleaseDate: day, NeedDate: day.AddDate(0, 0, 10),
		}},
		ActionMessages: []*entities.ActionMessage{{
			ID: "am-1", PartNumber: "SPOKE", Type: entities.ActionRescheduleIn, Priority: 1, OrderRef: "PO-SPOKE-1",
			CurrentQuantity: decimal.NewFromInt(1000), SuggestedQuantity: decimal.NewFromInt(1000),
			CurrentDate: day.AddDate(0, 0, 49), SuggestedDate: day.AddDate(0, 0, 14), Reason: "needed earlier",
		}},
		Issues: []entities.ItemIssue{{Severity: entities.SeverityWarning, Code: entities.IssueMissingLeadTime, PartNumber: "BOLT", Message: "no lead time"}},
	}
	capacity := &dto.CapacitySnapshot{PlanVersion: 3, Loads: []entities.WorkCenterLoad{{
		WorkCenterID:   "WELD",
		Bucket:         entities.TimeBucket{Index: 0, Start: day, End: day.AddDate(0, 0, 7)},
		AvailableHours: decimal.NewFromInt(80),
		PlannedHours:   decimal.NewFromInt(100),
	}}}
	return NewReport(plan, capacity)
}

func TestGenerate_Text(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Generate(sampleReport(), Config{Format: "text"}, &out))

	text := out.String()
	assert.Contains(t, text, "MRP plan version 3")
	assert.Contains(t, text, "FRAME")
	assert.Contains(t, text, "RESCHEDULE_IN")
	assert.Contains(t, text, "MISSING_LEAD_TIME")
	assert.Contains(t, text, "125.00")
}

func TestGenerate_CSV(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Generate(sampleReport(), Config{Format: "csv", OutputDir: dir}, &bytes.Buffer{}))

	f, err := os.Open(filepath.Join(dir, "capacity_loads.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"WELD", "2026-01-05", "2026-01-12", "80", "100", "125.00", "20", "0"}, rows[1])

	assert.Error(t, Generate(sampleReport(), Config{Format: "csv"}, &bytes.Buffer{}))
}

func TestGenerate_SVG(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Generate(sampleReport(), Config{Format: "svg"}, &out))
	assert.Contains(t, out.String(), "<svg")
	assert.Contains(t, out.String(), "FRAME")
	assert.Contains(t, out.String(), "#4CAF50")
}

func TestGenerate_UnknownFormat(t *testing.T) {
	assert.Error(t, Generate(sampleReport(), Config{Format: "pdf"}, &bytes.Buffer{}))
}
