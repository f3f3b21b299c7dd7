package solver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/limaJavier/roomtabling/pkg/program"
)

const defaultCbcPath = "cbc"

// cbcSolver shells out to the COIN-OR CBC binary through an LP file
type cbcSolver struct {
	path    string
	tempDir string
}

func NewCbcSolver(path, tempDir string) Solver {
	if path == "" {
		path = defaultCbcPath
	}
	return &cbcSolver{path: path, tempDir: tempDir}
}

func (solver *cbcSolver) Name() string {
	return CbcName
}

func (solver *cbcSolver) Solve(ctx context.Context, prog *program.Program, options Options) (Result, error) {
	if !prog.Objective().Expr.IsLinear() {
		return Result{}, solver.fail(fmt.Errorf("%w: cbc does not accept quadratic objectives", ErrUnsupported))
	}

	// Create a temporary directory to hold the model and the solution
	dir, err := os.MkdirTemp(solver.tempDir, "cbc-*")
	if err != nil {
		return Result{}, solver.fail(fmt.Errorf("failed to create temporary directory: %v", err))
	}
	defer os.RemoveAll(dir) // Ensure the files are removed after execution

	modelPath := filepath.Join(dir, "model.lp")
	solutionPath := filepath.Join(dir, "solution.txt")
	if err := os.WriteFile(modelPath, []byte(prog.ToLP()), 0o600); err != nil {
		return Result{}, solver.fail(fmt.Errorf("failed to write LP file: %v", err))
	}

	args := []string{modelPath}
	if options.TimeLimit > 0 {
		args = append(args, "sec", strconv.FormatFloat(math.Ceil(options.TimeLimit.Seconds()), 'f', 0, 64))
	}
	args = append(args, "solve", "solu", solutionPath)

	cmd := exec.CommandContext(ctx, solver.path, args...)
	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Result{}, solver.fail(ctx.Err())
		}
		return Result{}, solver.fail(fmt.Errorf("an error occurred during cbc execution: %v : %v", err, stderr.String()))
	}

	output, err := os.ReadFile(solutionPath)
	if err != nil {
		return Result{}, solver.fail(fmt.Errorf("failed to read solution file: %v", err))
	}

	result, err := parseCbcSolution(string(output), prog.NumVariables())
	if err != nil {
		return Result{}, solver.fail(err)
	}
	if result.Status.Solved() {
		result.ObjectiveValue = prog.Objective().Expr.Evaluate(result.Values)
	}
	return result, nil
}

func (solver *cbcSolver) fail(err error) error {
	return &Failure{Solver: CbcName, Err: err}
}

// parseCbcSolution reads the file written by the "solu" command: a status line followed by one line per non-zero
// variable (index, name, value, reduced cost), optionally prefixed by "**" when the value is infeasible.
func parseCbcSolution(output string, numVariables int) (Result, error) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	if !scanner.Scan() {
		return Result{}, errors.New("empty cbc solution")
	}

	header := strings.ToLower(strings.TrimSpace(scanner.Text()))
	var status Status
	switch {
	case strings.Contains(header, "infeasible"):
		return Result{Status: Infeasible}, nil
	case strings.HasPrefix(header, "optimal"):
		status = Optimal
	case strings.HasPrefix(header, "stopped"):
		status = Feasible
	default:
		return Result{}, fmt.Errorf("unexpected cbc status \"%v\"", header)
	}

	values := make([]float64, numVariables)
	found := false
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 && fields[0] == "**" {
			fields = fields[1:]
		}
		if len(fields) < 3 {
			continue
		}

		variable, err := strconv.Atoi(strings.TrimPrefix(fields[1], "v"))
		if err != nil || variable < 0 || variable >= numVariables {
			return Result{}, fmt.Errorf("unknown variable \"%v\" in cbc solution", fields[1])
		}
		value, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return Result{}, fmt.Errorf("invalid value \"%v\" in cbc solution: %v", fields[2], err)
		}
		values[variable] = math.Round(value) // Every variable is integral
		found = true
	}
	if err := scanner.Err(); err != nil {
		return Result{}, err
	}

	// Stopped without an incumbent
	if status == Feasible && !found && strings.Contains(header, "no integer") {
		return Result{Status: Unknown}, nil
	}
	return Result{Status: status, Values: values}, nil
}
