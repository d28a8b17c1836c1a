package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

const dateLayout = "2006-01-02"

// Scenario file names inside a scenario directory
const (
	ItemsFile       = "items.csv"
	BOMFile         = "bom.csv"
	DemandsFile     = "demands.csv"
	OpenOrdersFile  = "open_orders.csv"
	RoutingsFile    = "routings.csv"
	WorkCentersFile = "work_centers.csv"
	ActualsFile     = "work_center_actuals.csv"
)

var (
	itemsHeader = []string{
		"part_number", "description", "unit_of_measure", "precision", "lead_time_days", "make_buy",
		"safety_stock_rule", "safety_stock_param", "lot_size_rule", "fixed_order_qty",
		"min_order_qty", "max_order_qty", "order_multiple", "on_hand", "allocated", "scrap_percent",
	}
	bomHeader         = []string{"parent_pn", "child_pn", "qty_per", "find_number", "offset_days"}
	demandsHeader     = []string{"part_number", "quantity", "need_date", "demand_source", "reference"}
	openOrdersHeader  = []string{"order_id", "part_number", "order_type", "status", "quantity_ordered", "quantity_received", "due_date"}
	routingsHeader    = []string{"part_number", "sequence", "work_center_id", "setup_hours", "run_hours_per_unit", "offset_days"}
	workCentersHeader = []string{"work_center_id", "name", "hours_per_day", "working_days_per_week", "efficiency_percent"}
	actualsHeader     = []string{"work_center_id", "date", "hours"}
)

// Scenario is the master data of one planning run read from a directory
type Scenario struct {
	Items       []*entities.ItemPlanningRecord
	BOMLines    []*entities.BOMLine
	Demands     []*entities.DemandLine
	OpenOrders  []*entities.OpenOrder
	Routings    []*entities.RoutingOperation
	WorkCenters []*entities.WorkCenter
}

// Loader handles loading MRP data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadScenario reads every scenario file from dir. Items, BOM and demands are required;
// open orders, routings, work centers and actuals are optional.
func (l *Loader) LoadScenario(dir string) (*Scenario, error) {
	var (
		s   Scenario
		err error
	)
	if s.Items, err = l.LoadItems(filepath.Join(dir, ItemsFile)); err != nil {
		return nil, err
	}
	if s.BOMLines, err = l.LoadBOM(filepath.Join(dir, BOMFile)); err != nil {
		return nil, err
	}
	if s.Demands, err = l.LoadDemands(filepath.Join(dir, DemandsFile)); err != nil {
		return nil, err
	}
	if s.OpenOrders, err = optional(l.LoadOpenOrders, filepath.Join(dir, OpenOrdersFile)); err != nil {
		return nil, err
	}
	if s.Routings, err = optional(l.LoadRoutings, filepath.Join(dir, RoutingsFile)); err != nil {
		return nil, err
	}
	if s.WorkCenters, err = optional(l.LoadWorkCenters, filepath.Join(dir, WorkCentersFile)); err != nil {
		return nil, err
	}
	if len(s.WorkCenters) > 0 {
		if err := l.LoadActuals(filepath.Join(dir, ActualsFile), s.WorkCenters); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return &s, nil
}

func optional[T any](load func(string) ([]*T, error), filename string) ([]*T, error) {
	rows, err := load(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return rows, err
}

// LoadItems loads item planning records from a CSV file
func (l *Loader) LoadItems(filename string) ([]*entities.ItemPlanningRecord, error) {
	return loadRows(filename, "items", itemsHeader, parseItem)
}

// LoadBOM loads BOM lines from a CSV file
func (l *Loader) LoadBOM(filename string) ([]*entities.BOMLine, error) {
	return loadRows(filename, "BOM", bomHeader, parseBOMLine)
}

// LoadDemands loads independent demand from a CSV file
func (l *Loader) LoadDemands(filename string) ([]*entities.DemandLine, error) {
	return loadRows(filename, "demands", demandsHeader, parseDemand)
}

// LoadOpenOrders loads firmed and released orders from a CSV file
func (l *Loader) LoadOpenOrders(filename string) ([]*entities.OpenOrder, error) {
	return loadRows(filename, "open orders", openOrdersHeader, parseOpenOrder)
}

// LoadRoutings loads routing operations from a CSV file
func (l *Loader) LoadRoutings(filename string) ([]*entities.RoutingOperation, error) {
	return loadRows(filename, "routings", routingsHeader, parseRouting)
}

// LoadWorkCenters loads work centers from a CSV file
func (l *Loader) LoadWorkCenters(filename string) ([]*entities.WorkCenter, error) {
	return loadRows(filename, "work centers", workCentersHeader, parseWorkCenter)
}

// LoadActuals books actual hours onto the given work centers
func (l *Loader) LoadActuals(filename string, centers []*entities.WorkCenter) error {
	byID := make(map[string]*entities.WorkCenter, len(centers))
	for _, wc := range centers {
		byID[wc.ID] = wc
	}

	type actual struct {
		workCenter string
		day        time.Time
		hours      decimal.Decimal
	}
	rows, err := loadRows(filename, "actuals", actualsHeader, func(record []string) (actual, error) {
		day, err := parseDate("date", record[1])
		if err != nil {
			return actual{}, err
		}
		hours, err := parseDecimal("hours", record[2])
		if err != nil {
			return actual{}, err
		}
		if _, ok := byID[record[0]]; !ok {
			return actual{}, fmt.Errorf("unknown work_center_id: %s", record[0])
		}
		return actual{workCenter: record[0], day: day, hours: hours}, nil
	})
	if err != nil {
		return err
	}

	for _, a := range rows {
		wc := byID[a.workCenter]
		if wc.Actuals == nil {
			wc.Actuals = make(map[time.Time]decimal.Decimal)
		}
		wc.Actuals[a.day] = wc.Actuals[a.day].Add(a.hours)
	}
	return nil
}

func loadRows[T any](filename, kind string, expectedHeader []string, parse func([]string) (T, error)) ([]*T, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("%s CSV must have a header row", kind)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	rows := make([]*T, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", kind, i+2, len(expectedHeader), len(record))
		}

		row, err := parse(record)
		if err != nil {
			return nil, fmt.Errorf("%s CSV row %d: %w", kind, i+2, err)
		}
		rows = append(rows, &row)
	}

	return rows, nil
}

// Helper functions for parsing CSV records

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(strings.TrimPrefix(actual[i], "\ufeff"))) != col {
			return false
		}
	}

	return true
}

func parseItem(record []string) (entities.ItemPlanningRecord, error) {
	item := entities.ItemPlanningRecord{
		PartNumber:    entities.PartNumber(strings.TrimSpace(record[0])),
		Description:   record[1],
		UnitOfMeasure: record[2],
	}

	if record[3] != "" {
		precision, err := strconv.ParseInt(record[3], 10, 32)
		if err != nil {
			return item, fmt.Errorf("invalid precision: %s", record[3])
		}
		item.Precision = int32(precision)
	}

	if strings.TrimSpace(record[4]) != "" {
		leadTime, err := strconv.Atoi(strings.TrimSpace(record[4]))
		if err != nil {
			return item, fmt.Errorf("invalid lead_time_days: %s", record[4])
		}
		item.LeadTimeDays = &leadTime
	}

	var err error
	if item.MakeBuy, err = entities.ParseMakeBuyCode(record[5]); err != nil {
		return item, err
	}
	if item.SafetyStockRule, err = entities.ParseSafetyStockRule(record[6]); err != nil {
		return item, err
	}
	if item.LotSizeRule, err = entities.ParseLotSizeRule(record[8]); err != nil {
		return item, err
	}

	decimals := []struct {
		name   string
		column int
		target *decimal.Decimal
	}{
		{"safety_stock_param", 7, &item.SafetyStockParam},
		{"fixed_order_qty", 9, &item.FixedOrderQty},
		{"min_order_qty", 10, &item.MinOrderQty},
		{"max_order_qty", 11, &item.MaxOrderQty},
		{"order_multiple", 12, &item.OrderMultiple},
		{"on_hand", 13, &item.OnHand},
		{"allocated", 14, &item.Allocated},
		{"scrap_percent", 15, &item.ScrapPercent},
	}
	for _, d := range decimals {
		if *d.target, err = parseDecimal(d.name, record[d.column]); err != nil {
			return item, err
		}
	}

	return item, nil
}

func parseBOMLine(record []string) (entities.BOMLine, error) {
	qtyPer, err := parseDecimal("qty_per", record[2])
	if err != nil {
		return entities.BOMLine{}, err
	}

	findNumber, err := strconv.Atoi(record[3])
	if err != nil {
		return entities.BOMLine{}, fmt.Errorf("invalid find_number: %s", record[3])
	}

	offsetDays, err := parseInt("offset_days", record[4])
	if err != nil {
		return entities.BOMLine{}, err
	}

	line, err := entities.NewBOMLine(entities.PartNumber(record[0]), entities.PartNumber(record[1]), qtyPer, findNumber, offsetDays)
	if err != nil {
		return entities.BOMLine{}, err
	}
	return *line, nil
}

func parseDemand(record []string) (entities.DemandLine, error) {
	quantity, err := parseDecimal("quantity", record[1])
	if err != nil {
		return entities.DemandLine{}, err
	}
	if quantity.IsNegative() {
		return entities.DemandLine{}, fmt.Errorf("quantity cannot be negative: %s", record[1])
	}

	needDate, err := parseDate("need_date", record[2])
	if err != nil {
		return entities.DemandLine{}, err
	}

	source, err := entities.ParseDemandSource(record[3])
	if err != nil {
		return entities.DemandLine{}, err
	}

	return entities.DemandLine{
		PartNumber: entities.PartNumber(record[0]),
		Quantity:   quantity,
		NeedDate:   needDate,
		Source:     source,
		Reference:  record[4],
	}, nil
}

func parseOpenOrder(record []string) (entities.OpenOrder, error) {
	orderType, err := entities.ParseOrderType(record[2])
	if err != nil {
		return entities.OpenOrder{}, err
	}
	status, err := entities.ParseOrderStatus(record[3])
	if err != nil {
		return entities.OpenOrder{}, err
	}
	ordered, err := parseDecimal("quantity_ordered", record[4])
	if err != nil {
		return entities.OpenOrder{}, err
	}
	received, err := parseDecimal("quantity_received", record[5])
	if err != nil {
		return entities.OpenOrder{}, err
	}
	due, err := parseDate("due_date", record[6])
	if err != nil {
		return entities.OpenOrder{}, err
	}

	order := entities.OpenOrder{
		ID:               record[0],
		PartNumber:       entities.PartNumber(record[1]),
		Type:             orderType,
		Status:           status,
		QuantityOrdered:  ordered,
		QuantityReceived: received,
		DueDate:          due,
	}
	return order, order.Validate()
}

func parseRouting(record []string) (entities.RoutingOperation, error) {
	sequence, err := strconv.Atoi(record[1])
	if err != nil {
		return entities.RoutingOperation{}, fmt.Errorf("invalid sequence: %s", record[1])
	}
	setup, err := parseDecimal("setup_hours", record[3])
	if err != nil {
		return entities.RoutingOperation{}, err
	}
	run, err := parseDecimal("run_hours_per_unit", record[4])
	if err != nil {
		return entities.RoutingOperation{}, err
	}
	offset, err := parseInt("offset_days", record[5])
	if err != nil {
		return entities.RoutingOperation{}, err
	}

	op := entities.RoutingOperation{
		PartNumber:      entities.PartNumber(record[0]),
		Sequence:        sequence,
		WorkCenterID:    record[2],
		SetupHours:      setup,
		RunHoursPerUnit: run,
		OffsetDays:      offset,
	}
	return op, op.Validate()
}

func parseWorkCenter(record []string) (entities.WorkCenter, error) {
	hours, err := parseDecimal("hours_per_day", record[2])
	if err != nil {
		return entities.WorkCenter{}, err
	}
	days, err := parseInt("working_days_per_week", record[3])
	if err != nil {
		return entities.WorkCenter{}, err
	}
	efficiency, err := parseDecimal("efficiency_percent", record[4])
	if err != nil {
		return entities.WorkCenter{}, err
	}
	if record[0] == "" {
		return entities.WorkCenter{}, fmt.Errorf("work_center_id cannot be empty")
	}
	return entities.WorkCenter{
		ID:                 record[0],
		Name:               record[1],
		HoursPerDay:        hours,
		WorkingDaysPerWeek: days,
		EfficiencyPercent:  efficiency,
	}, nil
}

// parseDecimal treats an empty cell as zero
func parseDecimal(name, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", name, s)
	}
	return d, nil
}

func parseInt(name, s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", name, s)
	}
	return n, nil
}

func parseDate(name, s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s format: %s (expected YYYY-MM-DD)", name, s)
	}
	return t, nil
}
