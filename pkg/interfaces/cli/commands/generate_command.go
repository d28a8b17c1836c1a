package commands

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	loader "github.com/vsinha/mrp-planner/pkg/infrastructure/repositories/csv"
)

// GenerateConfig holds configuration for scenario generation
type GenerateConfig struct {
	Items       int    // Total number of items to generate
	MaxDepth    int    // Maximum depth of BOM tree
	Demands     int    // Number of top-level demand lines
	OpenOrders  int    // Number of open purchase orders on bought parts
	WorkCenters int    // Number of work centers make parts are routed through
	StartDate   string // First need date; demands spread over the following 26 weeks
	OutputDir   string // Output directory for generated files
	Seed        int64  // Random seed for reproducible generation
	Help        bool
	Verbose     bool
}

// GenerateCommand writes a synthetic scenario directory the mrp command can load
type GenerateCommand struct {
	config GenerateConfig
	rand   *rand.Rand
	start  time.Time
	out    io.Writer
}

// NewGenerateCommand creates a new generate command
func NewGenerateCommand(config GenerateConfig, out io.Writer) *GenerateCommand {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &GenerateCommand{
		config: config,
		rand:   rand.New(rand.NewSource(seed)),
		out:    out,
	}
}

// BOMNode is a part in the generated product structure
type BOMNode struct {
	PartNumber string
	Level      int
	Children   []*BOMNode
	Parents    []*BOMNode
	QtyPer     int
	IsRoot     bool
	Make       bool
}

// Execute runs the generate command
func (cmd *GenerateCommand) Execute(ctx context.Context) error {
	if cmd.config.Help {
		cmd.printHelp()
		return nil
	}
	if cmd.config.OutputDir == "" || cmd.config.Items <= 0 || cmd.config.MaxDepth <= 0 {
		return fmt.Errorf("validation error: --output, --items and --max-depth are required")
	}
	cmd.start = time.Now().UTC().Truncate(24 * time.Hour)
	if cmd.config.StartDate != "" {
		start, err := time.Parse(dateLayout, cmd.config.StartDate)
		if err != nil {
			return fmt.Errorf("invalid start date (use YYYY-MM-DD): %w", err)
		}
		cmd.start = start
	}
	if cmd.config.WorkCenters <= 0 {
		cmd.config.WorkCenters = 3
	}

	if err := os.MkdirAll(cmd.config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	nodes := cmd.generateBOMTree()
	ordered := make([]*BOMNode, 0, len(nodes))
	for _, n := range nodes {
		ordered = append(ordered, n)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Level != ordered[j].Level {
			return ordered[i].Level < ordered[j].Level
		}
		return ordered[i].PartNumber < ordered[j].PartNumber
	})

	files := []struct {
		name string
		rows [][]string
	}{
		{loader.ItemsFile, cmd.itemRows(ordered)},
		{loader.BOMFile, cmd.bomRows(ordered)},
		{loader.DemandsFile, cmd.demandRows(ordered)},
		{loader.OpenOrdersFile, cmd.openOrderRows(ordered)},
		{loader.WorkCentersFile, cmd.workCenterRows()},
		{loader.RoutingsFile, cmd.routingRows(ordered)},
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(cmd.config.OutputDir, f.name)
		if err := writeRows(path, f.rows); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		if cmd.config.Verbose {
			fmt.Fprintf(cmd.out, "wrote %s (%d rows)\n", path, len(f.rows)-1)
		}
	}
	return nil
}

func writeRows(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	w := csv.NewWriter(file)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return file.Close()
}

// generateBOMTree creates a level-by-level tree where some lower parts are shared
func (cmd *GenerateCommand) generateBOMTree() map[string]*BOMNode {
	nodes := make(map[string]*BOMNode)
	numRoots := max(1, cmd.config.Items/50+cmd.rand.Intn(3))
	numRoots = min(numRoots, cmd.config.Items)

	var current []*BOMNode
	for i := 0; i < numRoots; i++ {
		node := &BOMNode{PartNumber: fmt.Sprintf("ASSY_%03d", i+1), IsRoot: true, Make: true, QtyPer: 1}
		nodes[node.PartNumber] = node
		current = append(current, node)
	}
	generated := numRoots

	for level := 1; level <= cmd.config.MaxDepth && generated < cmd.config.Items && len(current) > 0; level++ {
		var next []*BOMNode
		for _, parent := range current {
			parent.Make = true
			numChildren := 2 + cmd.rand.Intn(5)
			for c := 0; c < numChildren && generated < cmd.config.Items; c++ {
				var child *BOMNode
				if level > 1 && cmd.rand.Float64() < 0.2 {
					if candidates := cmd.findShareableParts(nodes, level, parent); len(candidates) > 0 {
						child = candidates[cmd.rand.Intn(len(candidates))]
					}
				}
				if child == nil {
					child = &BOMNode{
						PartNumber: fmt.Sprintf("PART_L%d_%04d", level, generated),
						Level:      level,
						QtyPer:     1 + cmd.rand.Intn(4),
						Make:       cmd.rand.Float64() < 0.4,
					}
					nodes[child.PartNumber] = child
					next = append(next, child)
					generated++
				}
				parent.Children = append(parent.Children, child)
				child.Parents = append(child.Parents, parent)
			}
		}
		current = next
	}
	return nodes
}

// findShareableParts returns parts at the level being built that would not close a cycle under parent
func (cmd *GenerateCommand) findShareableParts(nodes map[string]*BOMNode, level int, parent *BOMNode) []*BOMNode {
	var candidates []*BOMNode
	for _, node := range nodes {
		if node.Level == level && len(node.Parents) < 3 && node != parent && !isAncestor(node, parent, map[string]bool{}) {
			candidates = append(candidates, node)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].PartNumber < candidates[j].PartNumber })
	return candidates
}

func isAncestor(candidate, node *BOMNode, visited map[string]bool) bool {
	if visited[node.PartNumber] {
		return false
	}
	visited[node.PartNumber] = true
	for _, p := range node.Parents {
		if p == candidate || isAncestor(candidate, p, visited) {
			return true
		}
	}
	return false
}

func (cmd *GenerateCommand) itemRows(nodes []*BOMNode) [][]string {
	rows := [][]string{{"part_number", "description", "unit_of_measure", "precision", "lead_time_days", "make_buy",
		"safety_stock_rule", "safety_stock_param", "lot_size_rule", "fixed_order_qty", "min_order_qty",
		"max_order_qty", "order_multiple", "on_hand", "allocated", "scrap_percent"}}
	for _, n := range nodes {
		makeBuy, leadTime := "BUY", 5+cmd.rand.Intn(25)
		if n.Make {
			makeBuy, leadTime = "MAKE", 3+cmd.rand.Intn(10)
		}
		lotRule, fixed, minQty, maxQty, multiple := "LOT_FOR_LOT", "", "", "", ""
		if !n.IsRoot {
			switch roll := cmd.rand.Float64(); {
			case roll < 0.2:
				lotRule, fixed = "FIXED_ORDER_QTY", strconv.Itoa(25*(1+cmd.rand.Intn(4)))
			case roll < 0.35:
				lo := 10 * (1 + cmd.rand.Intn(5))
				lotRule, minQty, maxQty = "MIN_MAX", strconv.Itoa(lo), strconv.Itoa(lo*20)
			case roll < 0.5:
				lotRule, multiple = "ORDER_MULTIPLE", strconv.Itoa(10*(1+cmd.rand.Intn(10)))
			}
		}
		scrap := ""
		if n.Make && cmd.rand.Float64() < 0.2 {
			scrap = strconv.Itoa(1 + cmd.rand.Intn(5))
		}
		rows = append(rows, []string{
			n.PartNumber, n.PartNumber + " " + describe(n), "EA", "0", strconv.Itoa(leadTime), makeBuy,
			"FIXED", strconv.Itoa(cmd.rand.Intn(5)), lotRule, fixed, minQty, maxQty, multiple,
			strconv.Itoa(cmd.rand.Intn(20)), "0", scrap,
		})
	}
	return rows
}

func describe(n *BOMNode) string {
	switch {
	case n.IsRoot:
		return "Final Assembly"
	case n.Make:
		return "Subassembly"
	default:
		return "Component"
	}
}

func (cmd *GenerateCommand) bomRows(nodes []*BOMNode) [][]string {
	rows := [][]string{{"parent_pn", "child_pn", "qty_per", "find_number", "offset_days"}}
	for _, parent := range nodes {
		for i, child := range parent.Children {
			rows = append(rows, []string{parent.PartNumber, child.PartNumber, strconv.Itoa(child.QtyPer),
				strconv.Itoa((i + 1) * 10), "0"})
		}
	}
	return rows
}

func (cmd *GenerateCommand) demandRows(nodes []*BOMNode) [][]string {
	rows := [][]string{{"part_number", "quantity", "need_date", "demand_source", "reference"}}
	var roots []*BOMNode
	for _, n := range nodes {
		if n.IsRoot {
			roots = append(roots, n)
		}
	}
	for i := 0; i < cmd.config.Demands; i++ {
		root := roots[cmd.rand.Intn(len(roots))]
		source := "SALES_ORDER"
		if cmd.rand.Float64() < 0.4 {
			source = "FORECAST"
		}
		need := cmd.start.AddDate(0, 0, 14+cmd.rand.Intn(26*7))
		rows = append(rows, []string{root.PartNumber, strconv.Itoa(1 + cmd.rand.Intn(20)), need.Format(dateLayout),
			source, fmt.Sprintf("SO-%04d", i+1)})
	}
	return rows
}

func (cmd *GenerateCommand) openOrderRows(nodes []*BOMNode) [][]string {
	rows := [][]string{{"order_id", "part_number", "order_type", "status", "quantity_ordered", "quantity_received", "due_date"}}
	var bought []*BOMNode
	for _, n := range nodes {
		if !n.Make {
			bought = append(bought, n)
		}
	}
	if len(bought) == 0 {
		return rows
	}
	for i := 0; i < cmd.config.OpenOrders; i++ {
		n := bought[cmd.rand.Intn(len(bought))]
		due := cmd.start.AddDate(0, 0, cmd.rand.Intn(60))
		rows = append(rows, []string{fmt.Sprintf("PO-%05d", i+1), n.PartNumber, "PURCHASE", "RELEASED",
			strconv.Itoa(50 * (1 + cmd.rand.Intn(10))), "0", due.Format(dateLayout)})
	}
	return rows
}

func (cmd *GenerateCommand) workCenterRows() [][]string {
	rows := [][]string{{"work_center_id", "name", "hours_per_day", "working_days_per_week", "efficiency_percent"}}
	for i := 0; i < cmd.config.WorkCenters; i++ {
		hours := []string{"8", "16", "24"}[cmd.rand.Intn(3)]
		rows = append(rows, []string{fmt.Sprintf("WC%02d", i+1), fmt.Sprintf("Work Center %d", i+1), hours, "5",
			strconv.Itoa(80 + cmd.rand.Intn(21))})
	}
	return rows
}

func (cmd *GenerateCommand) routingRows(nodes []*BOMNode) [][]string {
	rows := [][]string{{"part_number", "sequence", "work_center_id", "setup_hours", "run_hours_per_unit", "offset_days"}}
	for _, n := range nodes {
		if !n.Make {
			continue
		}
		ops := 1 + cmd.rand.Intn(3)
		for seq := 1; seq <= ops; seq++ {
			rows = append(rows, []string{n.PartNumber, strconv.Itoa(seq * 10),
				fmt.Sprintf("WC%02d", 1+cmd.rand.Intn(cmd.config.WorkCenters)),
				strconv.Itoa(cmd.rand.Intn(4)), fmt.Sprintf("0.%d", 1+cmd.rand.Intn(9)), strconv.Itoa(seq - 1)})
		}
	}
	return rows
}

func (cmd *GenerateCommand) printHelp() {
	fmt.Fprintln(cmd.out, `MRP Scenario Generator

USAGE:
    mrp generate [OPTIONS]

OPTIONS:
    -items <N>          Number of items to generate (required)
    -max-depth <N>      Maximum depth of the BOM tree (required)
    -demands <N>        Number of demand lines on top-level assemblies
    -open-orders <N>    Number of open purchase orders on bought parts
    -work-centers <N>   Number of work centers (default: 3)
    -start <date>       Start of the demand window, YYYY-MM-DD (default: today)
    -output <DIR>       Output directory for generated files (required)
    -seed <N>           Random seed for reproducible generation
    -verbose            List the written files
    -help               Show this help message

EXAMPLES:
    mrp generate -items 100 -max-depth 4 -demands 10 -open-orders 5 -output ./scenario
    mrp generate -items 5000 -max-depth 8 -demands 50 -output ./large -seed 12345`)
}
