package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/limaJavier/roomtabling/internal/config"
	"github.com/limaJavier/roomtabling/internal/logger"
	"github.com/limaJavier/roomtabling/pkg/model"
	"github.com/limaJavier/roomtabling/pkg/solver"
	"github.com/samber/lo"
)

const (
	exitSolved       = 10
	exitVerification = 15
	exitUnsolved     = 20
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("cannot load configuration: %v", err)
	}

	// Define arguments
	strategyNames := lo.Map(model.Strategies(), func(strategy model.Strategy, _ int) string { return string(strategy) })
	strategyPtr := flag.String("strategy", "", fmt.Sprintf("Objective strategy overriding the one in the input file. Allowed values are: %v", strings.Join(strategyNames, ", ")))
	solverPtr := flag.String("solver", cfg.Solver.Default, fmt.Sprintf("Solver to use. Allowed values are: %v", strings.Join(solver.Names(), ", ")))
	timeLimitPtr := flag.Duration("time-limit", cfg.Solver.TimeLimit, "Time limit for the solver, zero means no limit")
	contiguousPtr := flag.Bool("contiguous", false, "Fill every room from the first hour of the day onwards, without gaps")
	filePathPtr := flag.String("file", "", "Path to the input file")
	outFilePathPtr := flag.String("out", "", "Path to the file where the output will be written; if empty, it'll be written into the Standard Output")
	flag.Parse()
	filePath := *filePathPtr
	outFile := *outFilePathPtr

	// Validate arguments
	if filePath == "" {
		log.Fatal("an input file must be specified")
	} else if *timeLimitPtr < 0 {
		log.Fatalf("time limit cannot be negative: %v", *timeLimitPtr)
	}

	// Extract input
	input, err := model.InputFromJson(filePath)
	if err != nil {
		log.Fatalf("cannot parse input file: %v", err)
	}
	if *strategyPtr != "" {
		input.ObjectiveStrategy = []model.Strategy{model.Strategy(*strategyPtr)}
	}
	if *contiguousPtr {
		input.Policies.ContiguousFill = true
	}

	// Initialize engines
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("cannot initialize logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	adapter, err := solver.New(*solverPtr, solver.Config{CbcPath: cfg.Solver.CbcPath, TempDir: cfg.Solver.TempDir})
	if err != nil {
		log.Fatalf("%v", err)
	}
	timetabler := model.NewTimetabler(adapter, solver.Options{TimeLimit: *timeLimitPtr, SolverName: *solverPtr}, logr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Build timetable
	result, err := timetabler.Build(ctx, input)
	if err != nil {
		log.Fatalf("an error occurred during timetable construction: %v", err)
	}

	if result.Schedule == nil {
		printSummary(result)
		fmt.Println(result.Diagnosis.Message)
		for _, finding := range result.Diagnosis.Findings {
			fmt.Printf("- %v\n", finding)
		}
		exit(stop, exitUnsolved)
	}

	// Verify timetable correctness
	if !timetabler.Verify(*result.Schedule, input) {
		printSummary(result)
		exit(stop, exitVerification)
	}

	// Marshal output into json
	resultJson, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("an error occurred while building output json: %v", err)
	}

	// Verify outfile is empty, if so then write the results to the Standard Output
	if outFile == "" {
		fmt.Println(string(resultJson))
	} else {
		err := os.WriteFile(outFile, resultJson, 0666)
		if err != nil {
			log.Fatalf("an error occurred while writing to the output file: %v", err)
		}
	}

	printSummary(result)
	fmt.Printf("Classes scheduled: %v\n", result.Schedule.Metrics.ClassesScheduled)
	fmt.Printf("Distinct slots used: %v\n", result.Schedule.Metrics.DistinctSlotsUsed)
	fmt.Printf("Objective value: %v\n", result.Schedule.Metrics.ObjectiveValue)
	exit(stop, exitSolved)
}

func printSummary(result model.Result) {
	fmt.Printf("Status: %v\n", result.Status)
	fmt.Printf("Variables: %v\n", result.Variables)
	fmt.Printf("Constraints: %v\n", result.Constraints)
	fmt.Printf("Elapsed: %v\n", result.Elapsed.Round(time.Millisecond))
}

// exit releases the signal handler before leaving, deferred calls do not run on os.Exit
func exit(stop context.CancelFunc, code int) {
	stop()
	os.Exit(code)
}
