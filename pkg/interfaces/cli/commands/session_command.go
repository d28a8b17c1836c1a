package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-planner/pkg/application/dto"
	"github.com/vsinha/mrp-planner/pkg/application/services/matching"
	"github.com/vsinha/mrp-planner/pkg/application/services/orchestration"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/interfaces/cli/output"
)

var errQuit = errors.New("quit")

// SessionConfig holds configuration for the interactive planning session
type SessionConfig struct {
	ConfigFile  string
	ScenarioDir string
	Today       string
	Verbose     bool
	Help        bool
}

// SessionCommand is an interactive session over one loaded scenario: add demand,
// re-plan by net change, work action messages and drive three-way match lines.
type SessionCommand struct {
	config SessionConfig
	in     *bufio.Scanner
	out    io.Writer

	services *Services
	today    time.Time
}

func NewSessionCommand(config SessionConfig, in io.Reader, out io.Writer) *SessionCommand {
	return &SessionCommand{config: config, in: bufio.NewScanner(in), out: out}
}

// Execute runs the session until EOF or quit
func (c *SessionCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.printHelp()
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
	c.services = env.services

	if c.config.Today != "" {
		if c.today, err = time.Parse(dateLayout, c.config.Today); err != nil {
			return fmt.Errorf("invalid -today date (use YYYY-MM-DD): %w", err)
		}
	}

	fmt.Fprintln(c.out, "=== MRP Planning Session ===")
	fmt.Fprintln(c.out, "Type 'help' for available commands")
	for {
		fmt.Fprint(c.out, "mrp> ")
		if !c.in.Scan() {
			break
		}
		line := strings.TrimSpace(c.in.Text())
		if line == "" {
			continue
		}
		if err := c.processCommand(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
	}
	return c.in.Err()
}

func (c *SessionCommand) processCommand(ctx context.Context, line string) error {
	parts := strings.Fields(line)
	command, args := parts[0], parts[1:]

	switch command {
	case "help", "h":
		c.printInteractiveHelp()
	case "run":
		return c.handleRun(ctx, args)
	case "demand":
		return c.handleAddDemand(ctx, args)
	case "plan":
		return c.handlePlan(ctx)
	case "review", "implement":
		return c.handleAction(ctx, command, args)
	case "capacity":
		return c.handleCapacity(ctx, args)
	case "open-line":
		return c.handleOpenLine(ctx, args)
	case "receipt", "invoice":
		return c.handleMatchEvent(ctx, command, args)
	case "resolve":
		return c.handleResolve(ctx, args)
	case "release":
		return c.showLine(c.services.Reconciler.ReleaseForPayment(ctx, arg(args, 0)))
	case "pay":
		if len(args) < 2 {
			return fmt.Errorf("usage: pay <match-id> <payment-ref>")
		}
		return c.showLine(c.services.Reconciler.MarkPaid(ctx, args[0], args[1]))
	case "po-status":
		status, err := c.services.Reconciler.HeaderStatus(ctx, arg(args, 0))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s: %s\n", arg(args, 0), status)
	case "events":
		return c.handleShowEvents(args)
	case "quit", "q", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", command)
	}
	return nil
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func (c *SessionCommand) handleRun(ctx context.Context, skus []string) error {
	scope := parseScope("", strings.Join(skus, ","))
	result, err := c.services.Planner.RunMRP(ctx, orchestration.RunRequest{Scope: scope, Today: c.today})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "plan version %d: %d planned orders, %d action messages, %d errors, %d warnings\n",
		result.Version, len(result.PlannedOrders), len(result.ActionMessages), result.ErrorCount(), result.WarningCount())
	return nil
}

func (c *SessionCommand) handleAddDemand(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: demand <part-number> <quantity> <need-date> [source] [reference]")
	}
	quantity, err := decimal.NewFromString(args[1])
	if err != nil || quantity.IsNegative() {
		return fmt.Errorf("invalid quantity: %s", args[1])
	}
	needDate, err := time.Parse(dateLayout, args[2])
	if err != nil {
		return fmt.Errorf("invalid date format (use YYYY-MM-DD): %s", args[2])
	}
	source := entities.SourceSalesOrder
	if len(args) > 3 {
		if source, err = entities.ParseDemandSource(args[3]); err != nil {
			return err
		}
	}

	demand := &entities.DemandLine{
		PartNumber: entities.PartNumber(args[0]),
		NeedDate:   needDate,
		Quantity:   quantity,
		Source:     source,
		Reference:  arg(args, 4),
	}
	if err := c.services.Demands.LoadDemands(ctx, []*entities.DemandLine{demand}); err != nil {
		return fmt.Errorf("failed to add demand: %w", err)
	}
	fmt.Fprintf(c.out, "Added demand: %s qty %s needed by %s (run '%s' to re-plan)\n",
		demand.PartNumber, quantity.String(), needDate.Format(dateLayout), "run "+args[0])
	return nil
}

func (c *SessionCommand) handlePlan(ctx context.Context) error {
	plan, err := c.services.Planner.LatestPlan(ctx)
	if err != nil {
		return err
	}
	return output.Generate(output.NewReport(plan, nil), output.Config{Format: "text"}, c.out)
}

func (c *SessionCommand) handleAction(ctx context.Context, command string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <message-id>", command)
	}
	var (
		msg *entities.ActionMessage
		err error
	)
	if command == "review" {
		msg, err = c.services.Planner.MarkReviewed(ctx, args[0])
	} else {
		msg, err = c.services.Planner.MarkImplemented(ctx, args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s %s %s reviewed=%t implemented=%t\n",
		msg.ID, msg.Type, msg.PartNumber, msg.IsReviewed, msg.IsImplemented)
	return nil
}

func (c *SessionCommand) handleCapacity(ctx context.Context, args []string) error {
	period, err := time.Parse(dateLayout, arg(args, 0))
	if err != nil {
		return fmt.Errorf("usage: capacity <YYYY-MM-DD>")
	}
	loads, err := c.services.Planner.GetCapacitySnapshot(ctx, period)
	if err != nil {
		return err
	}
	for _, v := range dto.NewWorkCenterLoadViews(loads) {
		util := "-"
		if v.UtilizationPercent != nil {
			util = v.UtilizationPercent.StringFixed(2) + "%"
		}
		fmt.Fprintf(c.out, "%-10s available %-8s planned %-8s utilization %-8s overloaded=%t\n",
			v.WorkCenterID, v.AvailableHours.String(), v.PlannedHours.String(), util, v.IsOverloaded)
	}
	return nil
}

func (c *SessionCommand) handleOpenLine(ctx context.Context, args []string) error {
	if len(args) < 6 {
		return fmt.Errorf("usage: open-line <match-id> <po-id> <line> <part-number> <quantity> <unit-price>")
	}
	lineNumber, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid line number: %s", args[2])
	}
	quantity, err := decimal.NewFromString(args[4])
	if err != nil {
		return fmt.Errorf("invalid quantity: %s", args[4])
	}
	price, err := decimal.NewFromString(args[5])
	if err != nil {
		return fmt.Errorf("invalid unit price: %s", args[5])
	}
	return c.showLine(c.services.Reconciler.OpenLine(ctx, matching.OpenLineRequest{
		ID:         args[0],
		POID:       args[1],
		LineNumber: lineNumber,
		PartNumber: entities.PartNumber(args[3]),
		Quantity:   quantity,
		UnitPrice:  price,
	}))
}

func (c *SessionCommand) handleMatchEvent(ctx context.Context, command string, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: %s <match-id> <quantity> <amount> [event-key]", command)
	}
	quantity, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("invalid quantity: %s", args[1])
	}
	amount, err := decimal.NewFromString(args[2])
	if err != nil {
		return fmt.Errorf("invalid amount: %s", args[2])
	}
	if command == "receipt" {
		return c.showLine(c.services.Reconciler.RecordReceipt(ctx, args[0], quantity, amount, arg(args, 3)))
	}
	return c.showLine(c.services.Reconciler.RecordInvoice(ctx, args[0], quantity, amount, arg(args, 3)))
}

func (c *SessionCommand) handleResolve(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: resolve <match-id> <resolved-by> [notes...]")
	}
	return c.showLine(c.services.Reconciler.ResolveVariance(ctx, args[0], entities.Resolution{
		ResolvedBy: args[1],
		Notes:      strings.Join(args[2:], " "),
	}))
}

func (c *SessionCommand) showLine(line *entities.MatchLine, err error) error {
	if err != nil {
		return err
	}
	variance := "-"
	if line.VariancePercent != nil {
		variance = line.VariancePercent.StringFixed(2) + "%"
	}
	fmt.Fprintf(c.out, "%s %s/%d %s received %s invoiced %s (%s) variance %s\n",
		line.ID, line.POID, line.LineNumber, line.Status,
		line.ReceiptQuantity.String(), line.InvoiceQuantity.String(), line.InvoiceAmount.StringFixed(2), variance)
	return nil
}

func (c *SessionCommand) handleShowEvents(args []string) error {
	c.services.Events.Flush()
	limit := 10
	if len(args) > 0 {
		if l, err := strconv.Atoi(args[0]); err == nil {
			limit = l
		}
	}

	all, err := c.services.Events.ReadAllEvents(0)
	if err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}
	start := max(len(all)-limit, 0)
	fmt.Fprintf(c.out, "=== Recent Events (%d of %d) ===\n", len(all)-start, len(all))
	for _, e := range all[start:] {
		fmt.Fprintf(c.out, "[%s] %s -> %s\n", e.Timestamp().Format("15:04:05"), e.Type(), e.StreamID())
	}
	return nil
}

func (c *SessionCommand) printHelp() {
	fmt.Fprintln(c.out, `MRP Planning Session

USAGE:
    mrp session -scenario <DIR> [-config <FILE>] [-today <YYYY-MM-DD>] [-verbose]

DESCRIPTION:
    Loads a scenario and starts an interactive session where you can add demand,
    re-plan by net change, work action messages and reconcile purchase order lines.`)
}

func (c *SessionCommand) printInteractiveHelp() {
	fmt.Fprintln(c.out, `Available commands:

  run [part...]                      plan everything, or net change from the listed parts
  demand <part> <qty> <date> [source] [reference]
                                     add a demand line (source FORECAST or SALES_ORDER)
  plan                               show the latest plan
  review <msg-id> | implement <msg-id>
                                     action message lifecycle
  capacity <date>                    work center loads of the bucket containing date

  open-line <id> <po> <line> <part> <qty> <unit-price>
  receipt <id> <qty> <amount> [key]  record a goods receipt
  invoice <id> <qty> <amount> [key]  record a supplier invoice
  resolve <id> <who> [notes...]      resolve a variance
  release <id> | pay <id> <ref>      payment lifecycle
  po-status <po>                     header match status

  events [limit]                     recent events (default: 10)
  help, h                            this help
  quit, q, exit                      leave the session`)
}
