/*
Server exposes MRP runs, plan versions, action messages, capacity loads and
three-way match reconciliation over HTTP.

Master data is loaded from a CSV scenario directory at startup. Plans and match
lines live in SQLite when db.path is configured, in memory otherwise.

FLAGS:

	-scenario   scenario directory (required)
	-config     configuration file (default: ./mrp.yaml if present)
	-cors       comma separated allowed origins

ENVIRONMENT:

	MRP_HTTP_PORT, MRP_DB_PATH, MRP_LOG_LEVEL and every other MRP_* key.

On SIGINT/SIGTERM the server stops accepting connections and waits up to 30s
for active requests.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vsinha/mrp-planner/pkg/interfaces/cli/commands"
)

func main() {
	var (
		scenarioDir = flag.String("scenario", "", "Path to scenario directory containing CSV files")
		configFile  = flag.String("config", "", "Configuration file")
		origins     = flag.String("cors", "", "Comma separated allowed CORS origins")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config := commands.ServeConfig{
		ConfigFile:  *configFile,
		ScenarioDir: *scenarioDir,
		Verbose:     *verbose,
	}
	if *origins != "" {
		config.AllowedOrigins = strings.Split(*origins, ",")
	}

	if err := commands.NewServeCommand(config).Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
