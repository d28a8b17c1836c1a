package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	loader "github.com/vsinha/mrp-planner/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/mrp-planner/pkg/interfaces/cli/output"
)

func generateScenario(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cmd := NewGenerateCommand(GenerateConfig{
		Items:       60,
		MaxDepth:    4,
		Demands:     8,
		OpenOrders:  5,
		WorkCenters: 2,
		StartDate:   "2026-01-05",
		OutputDir:   dir,
		Seed:        42,
	}, &bytes.Buffer{})
	require.NoError(t, cmd.Execute(context.Background()))
	return dir
}

func TestGenerateCommand_WritesLoadableScenario(t *testing.T) {
	dir := generateScenario(t)

	for _, name := range []string{loader.ItemsFile, loader.BOMFile, loader.DemandsFile,
		loader.OpenOrdersFile, loader.RoutingsFile, loader.WorkCentersFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	scenario, err := loader.NewLoader().LoadScenario(dir)
	require.NoError(t, err)
	assert.Len(t, scenario.Items, 60)
	assert.Len(t, scenario.Demands, 8)
	assert.Len(t, scenario.WorkCenters, 2)
	assert.NotEmpty(t, scenario.BOMLines)
	assert.NotEmpty(t, scenario.Routings)
}

func TestGenerateCommand_SameSeedSameScenario(t *testing.T) {
	a, b := generateScenario(t), generateScenario(t)
	for _, name := range []string{loader.ItemsFile, loader.BOMFile, loader.DemandsFile} {
		left, err := os.ReadFile(filepath.Join(a, name))
		require.NoError(t, err)
		right, err := os.ReadFile(filepath.Join(b, name))
		require.NoError(t, err)
		assert.Equal(t, string(left), string(right), name)
	}
}

func TestGenerateCommand_RequiresOutput(t *testing.T) {
	err := NewGenerateCommand(GenerateConfig{Items: 10, MaxDepth: 2}, &bytes.Buffer{}).Execute(context.Background())
	assert.Error(t, err)
}

func TestMRPCommand_JSONReport(t *testing.T) {
	dir := generateScenario(t)
	var out bytes.Buffer

	cmd := NewMRPCommand(Config{ScenarioDir: dir, Format: "json", Today: "2026-01-05"}, &out)
	require.NoError(t, cmd.Execute(context.Background()))

	var report output.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	require.NotNil(t, report.Plan)
	assert.Equal(t, 1, report.Plan.Version)
	assert.Equal(t, entities.RunCompleted, report.Plan.Status)
	assert.NotEmpty(t, report.Plan.PlannedOrders)
	assert.NotEmpty(t, report.Capacity)
}

func TestMRPCommand_CSVExport(t *testing.T) {
	dir := generateScenario(t)
	outDir := t.TempDir()

	cmd := NewMRPCommand(Config{ScenarioDir: dir, Format: "csv", OutputDir: outDir, Today: "2026-01-05"}, &bytes.Buffer{})
	require.NoError(t, cmd.Execute(context.Background()))

	for _, name := range []string{"planned_orders.csv", "action_messages.csv", "capacity_loads.csv"} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
}

func TestMRPCommand_Validation(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewMRPCommand(Config{Help: true}, &out).Execute(context.Background()))
	assert.Contains(t, out.String(), "USAGE")

	assert.Error(t, NewMRPCommand(Config{}, &out).Execute(context.Background()))

	dir := generateScenario(t)
	err := NewMRPCommand(Config{ScenarioDir: dir, Today: "05/01/2026"}, &out).Execute(context.Background())
	assert.Error(t, err)
}

func TestParseScope(t *testing.T) {
	scope := parseScope("PLANT", " A, B ,,C")
	assert.Equal(t, "PLANT", scope.Entity)
	assert.Equal(t, []entities.PartNumber{"A", "B", "C"}, scope.SKUs)
	assert.True(t, parseScope("", "").IsFull())
}

func TestSessionCommand_Script(t *testing.T) {
	dir := generateScenario(t)
	script := strings.Join([]string{
		"run",
		"demand ASSY_001 5 2026-03-02",
		"run ASSY_001",
		"capacity 2026-02-02",
		"open-line L1 PO-9 1 PART_X 10 5",
		"receipt L1 10 50 GR-1",
		"invoice L1 10 51 INV-1",
		"po-status PO-9",
		"bogus",
		"events 2",
		"quit",
		"run",
	}, "\n")
	var out bytes.Buffer

	cmd := NewSessionCommand(SessionConfig{ScenarioDir: dir, Today: "2026-01-05"}, strings.NewReader(script), &out)
	require.NoError(t, cmd.Execute(context.Background()))

	text := out.String()
	assert.Contains(t, text, "plan version 1")
	assert.Contains(t, text, "Added demand: ASSY_001")
	assert.Contains(t, text, "plan version 2")
	assert.Contains(t, text, "WC01")
	assert.Contains(t, text, "PO-9: MATCHED")
	assert.Contains(t, text, "unknown command: bogus")
	assert.Contains(t, text, "Recent Events")
	assert.NotContains(t, text, "plan version 3", "commands after quit are not run")
}

func TestServeCommand_StopsOnCancel(t *testing.T) {
	t.Setenv("MRP_HTTP_HOST", "127.0.0.1")
	t.Setenv("MRP_HTTP_PORT", "0")
	dir := generateScenario(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, NewServeCommand(ServeConfig{ScenarioDir: dir}).Execute(ctx))

	assert.Error(t, NewServeCommand(ServeConfig{}).Execute(context.Background()))
}
