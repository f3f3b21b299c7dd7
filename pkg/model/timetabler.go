package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/limaJavier/roomtabling/pkg/solver"
	"go.uber.org/zap"
)

// Result is the outcome of a solve request. Schedule is set when the status is Optimal or Feasible, Diagnosis when
// it is Infeasible or Unknown.
type Result struct {
	RunId       string         `json:"runId"`
	Status      solver.Status  `json:"status"`
	Strategy    Strategy       `json:"strategy"`
	Solver      string         `json:"solver"`
	Schedule    *Schedule      `json:"schedule,omitempty"`
	Diagnosis   *Diagnosis     `json:"diagnosis,omitempty"`
	Variables   int            `json:"variables"`
	Constraints int            `json:"constraints"`
	Families    map[string]int `json:"families"`
	Elapsed     time.Duration  `json:"elapsed"`
}

type Timetabler interface {
	Build(ctx context.Context, modelInput ModelInput) (Result, error)

	Verify(schedule Schedule, modelInput ModelInput) bool
}

type timetabler struct {
	solver  solver.Solver
	options solver.Options
	logger  *zap.Logger
}

// NewTimetabler compiles, solves and decodes with the given adapter. A nil logger discards every entry.
func NewTimetabler(adapter solver.Solver, options solver.Options, logger *zap.Logger) Timetabler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &timetabler{
		solver:  adapter,
		options: options,
		logger:  logger,
	}
}

func (timetabler *timetabler) Build(ctx context.Context, modelInput ModelInput) (Result, error) {
	start := time.Now()
	result := Result{
		RunId:  uuid.NewString(),
		Solver: timetabler.solver.Name(),
	}
	logger := timetabler.logger.With(zap.String("run_id", result.RunId), zap.String("solver", result.Solver))

	//** Compile model
	model, err := Compile(modelInput)
	if err != nil {
		logger.Warn("model rejected", zap.Error(err))
		return Result{}, err
	}
	result.Strategy = model.Strategy
	result.Variables = model.Program.NumVariables()
	result.Constraints = model.Program.NumConstraints()
	result.Families = model.Program.Families()
	logger.Info("model compiled",
		zap.String("strategy", string(model.Strategy)),
		zap.Int("variables", result.Variables),
		zap.Int("constraints", result.Constraints),
	)

	//** Solve program
	solution, err := timetabler.solver.Solve(ctx, model.Program, timetabler.options)
	result.Elapsed = time.Since(start)
	if err != nil {
		logger.Error("solver failed", zap.Error(err), zap.Duration("elapsed", result.Elapsed))
		var failure *solver.Failure
		if errors.As(err, &failure) {
			return Result{}, err
		}
		return Result{}, &solver.Failure{Solver: result.Solver, Err: err}
	}
	result.Status = solution.Status

	//** Decode or diagnose
	if solution.Status.Solved() {
		schedule, err := model.Decode(solution)
		if err != nil {
			logger.Error("solver returned an invalid assignment", zap.Error(err))
			return Result{}, &solver.Failure{Solver: result.Solver, Err: err}
		}
		result.Schedule = &schedule
	} else {
		diagnosis := Diagnose(modelInput)
		result.Diagnosis = &diagnosis
	}

	logger.Info("model solved",
		zap.Stringer("status", result.Status),
		zap.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

func (timetabler *timetabler) Verify(schedule Schedule, modelInput ModelInput) bool {
	if err := verify(schedule, modelInput); err != nil {
		timetabler.logger.Warn("schedule verification failed", zap.Error(err))
		return false
	}
	return true
}

func (result Result) String() string {
	return fmt.Sprintf("run %v: %v with %v (%d variables, %d constraints)", result.RunId, result.Status, result.Solver, result.Variables, result.Constraints)
}
