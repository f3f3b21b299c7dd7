package solver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/limaJavier/roomtabling/pkg/program"
	"github.com/samber/lo"
)

type Status int

const (
	Unknown    Status = iota
	Optimal           // Objective proven best, values populated
	Feasible          // Values populated, optimality not proven
	Infeasible        // No feasible point exists, no values
)

func (status Status) String() string {
	switch status {
	case Optimal:
		return "optimal"
	case Feasible:
		return "feasible"
	case Infeasible:
		return "infeasible"
	}
	return "unknown"
}

// Solved reports whether the status carries variable values
func (status Status) Solved() bool {
	return status == Optimal || status == Feasible
}

func (status Status) MarshalText() ([]byte, error) {
	return []byte(status.String()), nil
}

func (status *Status) UnmarshalText(text []byte) error {
	for _, candidate := range []Status{Unknown, Optimal, Feasible, Infeasible} {
		if candidate.String() == string(text) {
			*status = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

type Options struct {
	TimeLimit  time.Duration // Zero means no limit
	SolverName string
}

type Result struct {
	Status         Status
	Values         []float64 // Indexed by program variable, nil unless Status.Solved()
	ObjectiveValue float64
}

// Solver consumes a compiled program. Infeasible and Unknown are valid outcomes (err shall be nil);
// errors are reserved for failures of the solver itself and are always of type *Failure.
type Solver interface {
	Name() string
	Solve(ctx context.Context, program *program.Program, options Options) (Result, error)
}

var (
	ErrUnsupported   = errors.New("unsupported program")
	ErrUnknownSolver = errors.New("unknown solver")
)

// Failure is an adapter-level fault, distinct from an infeasible program
type Failure struct {
	Solver string
	Err    error
}

func (failure *Failure) Error() string {
	return fmt.Sprintf("solver \"%v\" failed: %v", failure.Solver, failure.Err)
}

func (failure *Failure) Unwrap() error {
	return failure.Err
}

type Config struct {
	CbcPath  string
	TempDir  string
	Searches *SearchPool // Bounds in-process searches, nil leaves them unbounded
}

const (
	GophersatName = "gophersat"
	CbcName       = "cbc"
)

var constructors = map[string]func(Config) Solver{
	GophersatName: func(config Config) Solver { return NewGophersatSolver(config.Searches) },
	CbcName:       func(config Config) Solver { return NewCbcSolver(config.CbcPath, config.TempDir) },
}

func New(name string, config Config) (Solver, error) {
	constructor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w \"%v\", valid solvers are %v", ErrUnknownSolver, name, Names())
	}
	return constructor(config), nil
}

func Names() []string {
	names := lo.Keys(constructors)
	slices.Sort(names)
	return names
}

// withTimeLimit derives the context bounding a single solve
func withTimeLimit(ctx context.Context, options Options) (context.Context, context.CancelFunc) {
	if options.TimeLimit > 0 {
		return context.WithTimeout(ctx, options.TimeLimit)
	}
	return context.WithCancel(ctx)
}
