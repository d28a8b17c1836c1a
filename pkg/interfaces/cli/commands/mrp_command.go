package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vsinha/mrp-planner/pkg/application/services/orchestration"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/config"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/logging"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/mrp-planner/pkg/interfaces/cli/output"
)

const dateLayout = "2006-01-02"

// Config holds configuration for the MRP command
type Config struct {
	ConfigFile  string
	ScenarioDir string
	OutputDir   string
	Format      string
	Entity      string
	SKUs        string // comma separated; empty plans every item
	Today       string
	Verbose     bool
	Help        bool
}

// MRPCommand runs one MRP pass over a CSV scenario and prints the result
type MRPCommand struct {
	config Config
	out    io.Writer
}

// NewMRPCommand creates a new MRP command writing its report to out
func NewMRPCommand(config Config, out io.Writer) *MRPCommand {
	return &MRPCommand{config: config, out: out}
}

// Execute runs the MRP command
func (c *MRPCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}
	if c.config.ScenarioDir == "" {
		return fmt.Errorf("validation error: -scenario directory is required")
	}

	env, err := loadEnvironment(ctx, c.config.ConfigFile, c.config.ScenarioDir, c.config.Verbose)
	if err != nil {
		return err
	}
	defer env.services.Close()

	req := orchestration.RunRequest{Scope: parseScope(c.config.Entity, c.config.SKUs)}
	if c.config.Today != "" {
		if req.Today, err = time.Parse(dateLayout, c.config.Today); err != nil {
			return fmt.Errorf("invalid -today date (use YYYY-MM-DD): %w", err)
		}
	}

	start := time.Now()
	result, err := env.services.Planner.RunMRP(ctx, req)
	if err != nil {
		return fmt.Errorf("error running MRP: %w", err)
	}
	env.logger.Debug().Dur("elapsed", time.Since(start)).Msg("mrp run finished")

	profile, err := env.services.Planner.CapacityProfile(ctx)
	if err != nil {
		env.logger.Warn().Err(err).Msg("capacity profile unavailable")
	}

	return output.Generate(output.NewReport(result, profile), output.Config{
		Format:    c.config.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
	}, c.out)
}

type environment struct {
	cfg      *config.Config
	logger   zerolog.Logger
	services *Services
}

// loadEnvironment reads configuration, builds the stderr logger and loads the scenario
func loadEnvironment(ctx context.Context, configFile, scenarioDir string, verbose bool) (*environment, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger := logging.NewWithWriter(logging.Config{Env: cfg.App.Env, Level: level}, os.Stderr)

	scenario, err := csv.NewLoader().LoadScenario(scenarioDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario: %w", err)
	}
	logger.Debug().
		Str("scenario", scenarioDir).
		Int("items", len(scenario.Items)).
		Int("bom_lines", len(scenario.BOMLines)).
		Int("demands", len(scenario.Demands)).
		Int("open_orders", len(scenario.OpenOrders)).
		Int("routings", len(scenario.Routings)).
		Int("work_centers", len(scenario.WorkCenters)).
		Msg("scenario loaded")

	services, err := BuildServices(ctx, cfg, scenario, logger)
	if err != nil {
		return nil, err
	}
	return &environment{cfg: cfg, logger: logger, services: services}, nil
}

func parseScope(entity, skus string) entities.Scope {
	scope := entities.Scope{Entity: entity}
	for _, sku := range strings.Split(skus, ",") {
		if sku = strings.TrimSpace(sku); sku != "" {
			scope.SKUs = append(scope.SKUs, entities.PartNumber(sku))
		}
	}
	return scope
}

func (c *MRPCommand) showHelp() {
	fmt.Fprint(c.out, `MRP Planner - material requirements, capacity and action messages

USAGE:
    mrp -scenario <directory> [OPTIONS]
    mrp generate [OPTIONS]
    mrp session -scenario <directory>

OPTIONS:
    -scenario <dir>     Scenario directory containing CSV files (required)
    -config <file>      Configuration file (default: ./mrp.yaml if present)
    -skus <a,b>         Net-change scope; empty runs a regenerative plan
    -entity <name>      Planning entity of the scope
    -today <date>       Plan as of YYYY-MM-DD (default: today)
    -format <fmt>       Output format: text, json, csv, svg (default: text)
    -output <dir>       Output directory (required for csv)
    -verbose            Debug logging on stderr
    -help               Show this help message

SCENARIO DIRECTORY:
    items.csv           part_number,description,unit_of_measure,precision,lead_time_days,make_buy,
                        safety_stock_rule,safety_stock_param,lot_size_rule,fixed_order_qty,
                        min_order_qty,max_order_qty,order_multiple,on_hand,allocated,scrap_percent
    bom.csv             parent_pn,child_pn,qty_per,find_number,offset_days
    demands.csv         part_number,quantity,need_date,demand_source,reference
    open_orders.csv     order_id,part_number,order_type,status,quantity_ordered,quantity_received,due_date
    routings.csv        part_number,sequence,work_center_id,setup_hours,run_hours_per_unit,offset_days
    work_centers.csv    work_center_id,name,hours_per_day,working_days_per_week,efficiency_percent
    work_center_actuals.csv  work_center_id,date,hours

    open orders, routings, work centers and actuals are optional.

ENVIRONMENT:
    MRP_* variables override configuration keys, e.g. MRP_PLANNING_HORIZON_BUCKETS=52.
`)
}
