// Package output renders plan results for the mrp command line tool.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/vsinha/mrp-planner/pkg/application/dto"
)

const dateLayout = "2006-01-02"

// Config holds configuration for output generation
type Config struct {
	Format    string // text, json, csv, svg
	OutputDir string
	Verbose   bool
}

// Report is everything one run produces for display
type Report struct {
	Plan     *dto.PlanResult          `json:"plan"`
	Capacity []dto.WorkCenterLoadView `json:"capacity"`
}

// NewReport pairs a plan with its capacity profile; capacity may be nil
func NewReport(plan *dto.PlanResult, capacity *dto.CapacitySnapshot) *Report {
	r := &Report{Plan: plan}
	if capacity != nil {
		r.Capacity = dto.NewWorkCenterLoadViews(capacity.Loads)
	}
	return r
}

// Generate writes the report in the configured format. Text and JSON go to w
// unless an output directory is set; CSV and SVG always need one.
func Generate(report *Report, config Config, w io.Writer) error {
	switch config.Format {
	case "text", "":
		return writeText(report, w)
	case "json":
		return writeJSON(report, config, w)
	case "csv":
		return writeCSVFiles(report, config, w)
	case "svg":
		return writeGantt(report, config, w)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

func writeText(report *Report, w io.Writer) error {
	plan := report.Plan
	fmt.Fprintf(w, "MRP plan version %d (run %s, %s)\n", plan.Version, plan.RunID, plan.Status)
	fmt.Fprintf(w, "Planned orders: %d  Action messages: %d  Errors: %d  Warnings: %d\n\n",
		len(plan.PlannedOrders), len(plan.ActionMessages), plan.ErrorCount(), plan.WarningCount())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(plan.PlannedOrders) > 0 {
		fmt.Fprintln(tw, "PART\tTYPE\tQTY\tRELEASE\tNEED\tPAST DUE")
		for _, o := range plan.PlannedOrders {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n", o.PartNumber, o.Type, o.Quantity.String(),
				o.ReleaseDate.Format(dateLayout), o.NeedDate.Format(dateLayout), o.PastDue)
		}
		fmt.Fprintln(tw)
	}

	if len(plan.ActionMessages) > 0 {
		fmt.Fprintln(tw, "PRIO\tACTION\tPART\tORDER\tCURRENT\tSUGGESTED\tREASON")
		for _, m := range plan.ActionMessages {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s %s\t%s %s\t%s\n", m.Priority, m.Type, m.PartNumber, m.OrderRef,
				m.CurrentQuantity.String(), dateOrDash(m.CurrentDate.IsZero(), m.CurrentDate.Format(dateLayout)),
				m.SuggestedQuantity.String(), dateOrDash(m.SuggestedDate.IsZero(), m.SuggestedDate.Format(dateLayout)),
				m.Reason)
		}
		fmt.Fprintln(tw)
	}

	if len(plan.Issues) > 0 {
		fmt.Fprintln(tw, "SEVERITY\tCODE\tPART\tMESSAGE")
		for _, issue := range plan.Issues {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", issue.Severity, issue.Code, issue.PartNumber, issue.Message)
		}
		fmt.Fprintln(tw)
	}

	if len(report.Capacity) > 0 {
		fmt.Fprintln(tw, "WORK CENTER\tBUCKET\tAVAILABLE\tPLANNED\tUTIL %\tOVERLOAD")
		for _, l := range report.Capacity {
			util := "-"
			if l.UtilizationPercent != nil {
				util = l.UtilizationPercent.StringFixed(2)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", l.WorkCenterID, l.BucketStart.Format(dateLayout),
				l.AvailableHours.String(), l.PlannedHours.String(), util, l.OverloadHours.String())
		}
	}
	return tw.Flush()
}

func dateOrDash(zero bool, formatted string) string {
	if zero {
		return "-"
	}
	return formatted
}

func writeJSON(report *Report, config Config, w io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if config.OutputDir == "" {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(config.OutputDir, "mrp_results.json")
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(w, "JSON results saved to: %s\n", filename)
	}
	return nil
}

func writeCSVFiles(report *Report, config Config, w io.Writer) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for CSV format")
	}
	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	files := []struct {
		name string
		rows [][]string
	}{
		{"planned_orders.csv", plannedOrderRows(report.Plan)},
		{"action_messages.csv", actionMessageRows(report.Plan)},
		{"capacity_loads.csv", capacityRows(report.Capacity)},
	}
	for _, f := range files {
		path := filepath.Join(config.OutputDir, f.name)
		if err := writeCSV(path, f.rows); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		if config.Verbose {
			fmt.Fprintf(w, "saved %s\n", path)
		}
	}
	return nil
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return file.Close()
}

func plannedOrderRows(plan *dto.PlanResult) [][]string {
	rows := [][]string{{"id", "part_number", "bucket", "order_type", "status", "quantity", "receipt_quantity", "release_date", "need_date", "past_due"}}
	for _, o := range plan.PlannedOrders {
		rows = append(rows, []string{
			o.ID, string(o.PartNumber), strconv.Itoa(o.Bucket), o.Type.String(), o.Status.String(),
			o.Quantity.String(), o.ReceiptQuantity.String(),
			o.ReleaseDate.Format(dateLayout), o.NeedDate.Format(dateLayout), strconv.FormatBool(o.PastDue),
		})
	}
	return rows
}

func actionMessageRows(plan *dto.PlanResult) [][]string {
	rows := [][]string{{"id", "priority", "action_type", "part_number", "order_ref", "current_quantity", "suggested_quantity", "current_date", "suggested_date", "days_overdue", "reason", "is_reviewed", "is_implemented"}}
	for _, m := range plan.ActionMessages {
		rows = append(rows, []string{
			m.ID, strconv.Itoa(m.Priority), m.Type.String(), string(m.PartNumber), m.OrderRef,
			m.CurrentQuantity.String(), m.SuggestedQuantity.String(),
			dateOrDash(m.CurrentDate.IsZero(), m.CurrentDate.Format(dateLayout)),
			dateOrDash(m.SuggestedDate.IsZero(), m.SuggestedDate.Format(dateLayout)),
			strconv.Itoa(m.DaysOverdue), m.Reason,
			strconv.FormatBool(m.IsReviewed), strconv.FormatBool(m.IsImplemented),
		})
	}
	return rows
}

func capacityRows(loads []dto.WorkCenterLoadView) [][]string {
	rows := [][]string{{"work_center_id", "bucket_start", "bucket_end", "available_hours", "planned_hours", "utilization_percent", "overload_hours", "underload_hours"}}
	for _, l := range loads {
		util := ""
		if l.UtilizationPercent != nil {
			util = l.UtilizationPercent.StringFixed(2)
		}
		rows = append(rows, []string{
			l.WorkCenterID, l.BucketStart.Format(dateLayout), l.BucketEnd.Format(dateLayout),
			l.AvailableHours.String(), l.PlannedHours.String(), util,
			l.OverloadHours.String(), l.UnderloadHours.String(),
		})
	}
	return rows
}

func writeGantt(report *Report, config Config, w io.Writer) error {
	orders := report.Plan.PlannedOrders
	svg := NewGanttChart(orders).GenerateSVG(orders)
	if config.OutputDir == "" {
		_, err := fmt.Fprintln(w, svg)
		return err
	}
	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(config.OutputDir, "planned_orders.svg")
	if err := os.WriteFile(filename, []byte(svg), 0o644); err != nil {
		return fmt.Errorf("failed to write SVG file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(w, "Gantt chart saved to: %s\n", filename)
	}
	return nil
}
