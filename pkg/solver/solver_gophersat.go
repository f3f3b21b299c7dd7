package solver

import (
	"context"
	"fmt"

	gophersat "github.com/crillab/gophersat/solver"
	"github.com/limaJavier/roomtabling/pkg/program"
)

// gophersatSolver runs an in-process pseudo-boolean solver. Optimization is incremental: gophersat streams every
// improving model and keeps its learned clauses while tightening the cost bound.
type gophersatSolver struct {
	searches *SearchPool
}

// NewGophersatSolver returns the in-process adapter. Searches hold a slot of the pool while they run; a nil pool
// leaves them unbounded.
func NewGophersatSolver(searches *SearchPool) Solver {
	return &gophersatSolver{searches: searches}
}

func (solver *gophersatSolver) Name() string {
	return GophersatName
}

func (solver *gophersatSolver) Solve(ctx context.Context, prog *program.Program, options Options) (Result, error) {
	if ctx.Err() != nil {
		return Result{}, &Failure{Solver: GophersatName, Err: ctx.Err()}
	}

	encoding, err := encodePseudoBoolean(prog)
	if err != nil {
		return Result{}, &Failure{Solver: GophersatName, Err: err}
	} else if encoding.infeasible {
		return Result{Status: Infeasible}, nil
	} else if len(encoding.constraints) == 0 {
		return solver.incumbent(prog, encoding, encoding.cheapestModel(), Optimal), nil
	}

	solveCtx, cancel := withTimeLimit(ctx, options)
	defer cancel()

	ticket, err := solver.searches.acquire(solveCtx)
	if err != nil {
		return solver.interrupted(ctx, prog, encoding, nil)
	}
	search := startSearch(encoding.gophersatProblem(), ticket)

	var best []bool
	for {
		select {
		case <-solveCtx.Done():
			search.abandon()
			return solver.interrupted(ctx, prog, encoding, best)
		case result, ok := <-search.results:
			if ok {
				if result.Status == gophersat.Sat {
					best = result.Model
				}
				continue
			}
			<-search.finished
		case <-search.finished:
		}

		if search.err != nil {
			return Result{}, &Failure{Solver: GophersatName, Err: search.err}
		}
		return solver.incumbent(prog, encoding, best, Optimal), nil
	}
}

// interrupted reports a search stopped before completion: a Failure when the caller gave up, the incumbent
// otherwise
func (solver *gophersatSolver) interrupted(ctx context.Context, prog *program.Program, encoding *pbEncoding, best []bool) (Result, error) {
	if ctx.Err() != nil {
		return Result{}, &Failure{Solver: GophersatName, Err: ctx.Err()}
	}
	return solver.incumbent(prog, encoding, best, Feasible), nil
}

// incumbent reports the best model found so far with the given status, or Infeasible/Unknown when there is none
func (solver *gophersatSolver) incumbent(prog *program.Program, encoding *pbEncoding, best []bool, status Status) Result {
	if best == nil {
		if status == Optimal { // Search completed without a single model
			return Result{Status: Infeasible}
		}
		return Result{Status: Unknown}
	}

	values := encoding.values(prog.NumVariables(), best)
	return Result{
		Status:         status,
		Values:         values,
		ObjectiveValue: prog.Objective().Expr.Evaluate(values),
	}
}

// gophersatSearch is an optimization running on its own goroutine. Improving models arrive on results, which is
// closed when the search ends; err is set before finished is closed.
type gophersatSearch struct {
	results  chan gophersat.Result
	finished chan struct{}
	err      error
	ticket   *searchTicket
}

func startSearch(problem *gophersat.Problem, ticket *searchTicket) *gophersatSearch {
	search := &gophersatSearch{
		results:  make(chan gophersat.Result),
		finished: make(chan struct{}),
		ticket:   ticket,
	}

	go func() {
		defer close(search.finished)
		defer ticket.finish()
		defer func() {
			if r := recover(); r != nil {
				search.err = fmt.Errorf("panic during search: %v", r)
			}
		}()

		gophersat.New(problem).Optimal(search.results, nil)
	}()

	return search
}

// abandon stops listening to the search. It cannot be interrupted, so its remaining models are drained until it
// ends on its own.
func (search *gophersatSearch) abandon() {
	search.ticket.abandon()
	go func() {
		for {
			select {
			case _, ok := <-search.results:
				if !ok {
					return
				}
			case <-search.finished:
				return
			}
		}
	}()
}
