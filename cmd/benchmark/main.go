package main

import (
	"bytes"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/limaJavier/roomtabling/pkg/model"
	"github.com/limaJavier/roomtabling/pkg/solver"

	"github.com/samber/lo"
)

const (
	executablePath             = "../../bin/roomtable"
	instancesDirectory         = "../../test/instances/"
	MB                 float32 = 1024 * 1024
)

type ResultType int

const (
	solved ResultType = iota
	unsolved
	unverified
)

var resultTypes = map[ResultType]string{
	solved:     "solved",
	unsolved:   "unsolved",
	unverified: "unverified",
}

// exitCodes maps the exit codes of the CLI to benchmark outcomes
var exitCodes = map[int]ResultType{
	10: solved,
	20: unsolved,
	15: unverified,
}

type TestMetadata struct {
	Name    string
	Classes int
	Rooms   int
	Days    int
	Slots   int64
	Pins    int
}

type BenchmarkResult struct {
	Solver        string
	Strategy      model.Strategy
	Test          TestMetadata
	Duration      int64
	Memory        float32
	CpuPercentage int64
	Result        ResultType
	Objective     string
}

func main() {
	timeLimitPtr := flag.Duration("time-limit", time.Minute, "Time limit handed to the solver for every run")
	outPtr := flag.String("out", "benchmark_results.csv", "Path of the CSV report")
	flag.Parse()

	tests := getTests()
	strategies := model.Strategies()
	solvers := solver.Names()
	results := make([]BenchmarkResult, 0, len(tests)*len(strategies)*len(solvers))

	for _, test := range tests {
		for _, strategy := range strategies {
			for _, solverName := range solvers {
				fmt.Printf("Benchmarking test \"%v\" with strategy \"%v\" and solver \"%v\"\n", test.Name, strategy, solverName)

				result := measure(strategy, solverName, *timeLimitPtr, test.Name)
				result.Test = test
				results = append(results, result)
			}
		}
	}

	toCsv(results, *outPtr)
}

func getTests() []TestMetadata {
	testFiles, err := os.ReadDir(instancesDirectory)
	if err != nil {
		log.Fatalf("cannot read directory: %v", err)
	}

	tests := make([]TestMetadata, 0, len(testFiles))
	for _, file := range testFiles {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}

		filename := instancesDirectory + file.Name()
		input, err := model.InputFromJson(filename)
		if err != nil {
			log.Fatalf("cannot parse input file: %v", err)
		}

		tests = append(tests, TestMetadata{
			Name:    filename,
			Classes: len(input.Classes),
			Rooms:   len(input.Rooms),
			Days:    max(len(input.Days), 1),
			Slots:   input.TimeGrid.End - input.TimeGrid.Start,
			Pins:    len(input.Pins),
		})
	}

	return tests
}

func measure(strategy model.Strategy, solverName string, timeLimit time.Duration, testFile string) BenchmarkResult {
	cmd := exec.Command("/usr/bin/time", "-v", executablePath,
		"-strategy", string(strategy),
		"-solver", solverName,
		"-time-limit", timeLimit.String(),
		"-file", testFile,
		"-out", os.DevNull,
	)

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stdErr bytes.Buffer
	cmd.Stderr = &stdErr

	if err := cmd.Run(); err != nil {
		var exitError *exec.ExitError
		if !errors.As(err, &exitError) {
			log.Fatalf("cannot run \"roomtable\" at test \"%v\": %v", testFile, err)
		}
	}
	result, ok := exitResult(cmd.ProcessState)
	if !ok {
		log.Fatalf("an error occurred during the execution \"roomtable\" at test \"%v\" using strategy \"%v\" and solver \"%v\": %v\n", testFile, strategy, solverName, stdErr.String())
	}

	splits := strings.Split(stdErr.String(), "\n")
	getLine := func(substr string) string {
		line, ok := lo.Find(splits, func(line string) bool {
			return strings.Contains(strings.ToLower(line), substr)
		})
		if !ok {
			log.Fatalf("Substring \"%v\" could not be found", substr)
		}
		return line
	}

	objective, _ := lo.Find(strings.Split(stdOut.String(), "\n"), func(line string) bool {
		return strings.HasPrefix(line, "Objective value:")
	})

	return BenchmarkResult{
		Solver:        solverName,
		Strategy:      strategy,
		Duration:      parseDurationLine(getLine("wall clock")),
		Memory:        parseMemoryLine(getLine("maximum resident set size")),
		CpuPercentage: parseCpuPercentageLine(getLine("percent of cpu")),
		Result:        result,
		Objective:     strings.TrimSpace(strings.TrimPrefix(objective, "Objective value:")),
	}
}

// exitResult maps the exit code of a finished CLI run, a process that never started has no state
func exitResult(state *os.ProcessState) (ResultType, bool) {
	if state == nil {
		return 0, false
	}
	result, ok := exitCodes[state.ExitCode()]
	return result, ok
}

func toCsv(results []BenchmarkResult, path string) {
	file, err := os.Create(path)
	if err != nil {
		log.Panicf("cannot create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Solver", "Strategy", "Test", "Classes", "Rooms", "Days", "Slots", "Pins", "Duration(ms)", "Memory(MB)", "CPU(%)", "Result", "Objective"}
	if err := writer.Write(header); err != nil {
		log.Panicf("cannot write CSV header: %v", err)
	}

	for _, result := range results {
		if err := writer.Write(toRecord(result)); err != nil {
			log.Panicf("cannot write CSV record: %v", err)
		}
	}
}

func toRecord(result BenchmarkResult) []string {
	return []string{
		result.Solver,
		string(result.Strategy),
		result.Test.Name,
		fmt.Sprintf("%d", result.Test.Classes),
		fmt.Sprintf("%d", result.Test.Rooms),
		fmt.Sprintf("%d", result.Test.Days),
		fmt.Sprintf("%d", result.Test.Slots),
		fmt.Sprintf("%d", result.Test.Pins),
		fmt.Sprintf("%d", result.Duration),
		fmt.Sprintf("%.1f", result.Memory),
		fmt.Sprintf("%d", result.CpuPercentage),
		resultTypes[result.Result],
		result.Objective,
	}
}

func parseDurationLine(line string) int64 {
	durationStr := strings.Split(line, "(h:mm:ss or m:ss):")[1][1:]
	return parseDuration(durationStr)
}

func parseDuration(durationStr string) int64 {
	parts := strings.Split(durationStr, ":")
	secondsStr := parts[len(parts)-1]
	secondsParts := strings.Split(secondsStr, ".")

	var duration int64
	if len(parts) == 3 { // h:mm:ss
		hours := lo.Must(strconv.Atoi(parts[0]))
		minutes := lo.Must(strconv.Atoi(parts[1]))
		seconds := lo.Must(strconv.Atoi(secondsParts[0]))
		hundredthOfSeconds := lo.Must(strconv.Atoi(secondsParts[1]))
		duration = int64(hours*3600+minutes*60+seconds)*1000 + int64(hundredthOfSeconds*10)
	} else if len(parts) == 2 { // m:ss
		minutes := lo.Must(strconv.Atoi(parts[0]))
		seconds := lo.Must(strconv.Atoi(secondsParts[0]))
		hundredthOfSeconds := lo.Must(strconv.Atoi(secondsParts[1]))
		duration = int64(minutes*60+seconds)*1000 + int64(hundredthOfSeconds*10)
	} else {
		log.Fatalf("unexpected duration format: %v", durationStr)
	}
	return duration
}

// parseMemoryLine converts the maximum resident set size, reported in KB, into MB
func parseMemoryLine(line string) float32 {
	memoryStr := strings.Split(line, ":")[1][1:]
	return float32(lo.Must(strconv.ParseFloat(memoryStr, 32))) * 1024 / MB
}

func parseCpuPercentageLine(line string) int64 {
	percentageStr := strings.Split(line, ":")[1][1:]
	percentageStr = percentageStr[:len(percentageStr)-1]
	return int64(lo.Must(strconv.Atoi(percentageStr)))
}
