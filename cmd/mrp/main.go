package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/vsinha/mrp-planner/pkg/interfaces/cli/commands"
)

type command interface {
	Execute(ctx context.Context) error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var cmd command
	args := os.Args[1:]
	switch {
	case len(args) > 0 && args[0] == "generate":
		cmd = generateCommand(args[1:])
	case len(args) > 0 && args[0] == "session":
		cmd = sessionCommand(args[1:])
	default:
		cmd = mrpCommand(args)
	}

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func mrpCommand(args []string) command {
	fs := flag.NewFlagSet("mrp", flag.ExitOnError)
	var config commands.Config
	fs.StringVar(&config.ScenarioDir, "scenario", "", "Path to scenario directory containing CSV files")
	fs.StringVar(&config.ConfigFile, "config", "", "Configuration file")
	fs.StringVar(&config.SKUs, "skus", "", "Comma separated net-change scope")
	fs.StringVar(&config.Entity, "entity", "", "Planning entity of the scope")
	fs.StringVar(&config.Today, "today", "", "Plan as of YYYY-MM-DD")
	fs.StringVar(&config.OutputDir, "output", "", "Output directory for results")
	fs.StringVar(&config.Format, "format", "text", "Output format: text, json, csv, svg")
	fs.BoolVar(&config.Verbose, "verbose", false, "Enable debug logging")
	fs.BoolVar(&config.Help, "help", false, "Show help message")
	_ = fs.Parse(args)
	return commands.NewMRPCommand(config, os.Stdout)
}

func generateCommand(args []string) command {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	var config commands.GenerateConfig
	fs.IntVar(&config.Items, "items", 0, "Number of items to generate")
	fs.IntVar(&config.MaxDepth, "max-depth", 0, "Maximum depth of the BOM tree")
	fs.IntVar(&config.Demands, "demands", 10, "Number of demand lines")
	fs.IntVar(&config.OpenOrders, "open-orders", 0, "Number of open purchase orders")
	fs.IntVar(&config.WorkCenters, "work-centers", 3, "Number of work centers")
	fs.StringVar(&config.StartDate, "start", "", "Start of the demand window, YYYY-MM-DD")
	fs.StringVar(&config.OutputDir, "output", "", "Output directory for generated files")
	fs.Int64Var(&config.Seed, "seed", 0, "Random seed for reproducible generation")
	fs.BoolVar(&config.Verbose, "verbose", false, "List the written files")
	fs.BoolVar(&config.Help, "help", false, "Show help message")
	_ = fs.Parse(args)
	return commands.NewGenerateCommand(config, os.Stdout)
}

func sessionCommand(args []string) command {
	fs := flag.NewFlagSet("session", flag.ExitOnError)
	var config commands.SessionConfig
	fs.StringVar(&config.ScenarioDir, "scenario", "", "Path to scenario directory containing CSV files")
	fs.StringVar(&config.ConfigFile, "config", "", "Configuration file")
	fs.StringVar(&config.Today, "today", "", "Plan as of YYYY-MM-DD")
	fs.BoolVar(&config.Verbose, "verbose", false, "Enable debug logging")
	fs.BoolVar(&config.Help, "help", false, "Show help message")
	_ = fs.Parse(args)
	return commands.NewSessionCommand(config, os.Stdin, os.Stdout)
}
