package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/limaJavier/roomtabling/internal/apperrors"
	"github.com/limaJavier/roomtabling/internal/config"
	"github.com/limaJavier/roomtabling/internal/dto"
	"github.com/limaJavier/roomtabling/internal/metrics"
	"github.com/limaJavier/roomtabling/pkg/model"
	"github.com/limaJavier/roomtabling/pkg/solver"
)

// SolveService decodes requests, picks a solver adapter and runs the timetabler
type SolveService struct {
	cfg      config.SolverConfig
	searches *solver.SearchPool
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewSolveService shares one search pool among every request, so in-process searches left running past their time
// limit never exceed cfg.MaxSearches
func NewSolveService(cfg config.SolverConfig, metrics *metrics.Metrics, logger *zap.Logger) *SolveService {
	if logger == nil {
		logger = zap.NewNop()
	}

	searches := solver.NewSearchPool(cfg.MaxSearches)
	if err := metrics.TrackSearches(searches); err != nil {
		logger.Warn("search pool metrics not registered", zap.Error(err))
	}
	return &SolveService{cfg: cfg, searches: searches, metrics: metrics, logger: logger}
}

// Solve decodes body as model input and solves it. Infeasible and unknown outcomes are results, not errors.
func (s *SolveService) Solve(ctx context.Context, body []byte, query dto.SolveQuery) (model.Result, error) {
	start := time.Now()
	solverName := query.Solver
	if solverName == "" {
		solverName = s.cfg.Default
	}

	var strategy string
	result, err := func() (model.Result, error) {
		input, err := model.InputFromBytes(body)
		if err != nil {
			return model.Result{}, err
		}
		if len(input.ObjectiveStrategy) == 1 {
			strategy = string(input.ObjectiveStrategy[0])
		}

		timeLimit, err := s.timeLimit(query.TimeLimit)
		if err != nil {
			return model.Result{}, err
		}

		timetabler, err := s.timetabler(solverName, timeLimit)
		if err != nil {
			return model.Result{}, err
		}
		return timetabler.Build(ctx, input)
	}()

	if err != nil {
		s.metrics.ObserveSolve(strategy, solverName, apperrors.FromError(err).Code, 0, 0, time.Since(start))
		return model.Result{}, err
	}
	s.metrics.ObserveSolve(strategy, solverName, result.Status.String(), result.Variables, result.Constraints, time.Since(start))
	if result.Status == solver.Feasible || result.Status == solver.Unknown {
		s.logger.Warn("time limit reached before the search completed",
			zap.String("run_id", result.RunId),
			zap.Int64("searches_running", s.searches.Running()),
			zap.Int64("searches_abandoned", s.searches.Abandoned()),
		)
	}
	return result, nil
}

// Verify reports whether schedule satisfies every hard rule of the input
func (s *SolveService) Verify(ctx context.Context, request dto.VerifyRequest) (dto.VerifyResponse, error) {
	input, err := model.InputFromBytes(request.Input)
	if err != nil {
		return dto.VerifyResponse{}, err
	}

	timetabler, err := s.timetabler(s.cfg.Default, s.cfg.TimeLimit)
	if err != nil {
		return dto.VerifyResponse{}, err
	}
	return dto.VerifyResponse{Valid: timetabler.Verify(request.Schedule, input)}, nil
}

func (s *SolveService) Options() dto.OptionsResponse {
	return dto.OptionsResponse{
		Strategies:    model.Strategies(),
		Solvers:       solver.Names(),
		DefaultSolver: s.cfg.Default,
	}
}

func (s *SolveService) timetabler(solverName string, timeLimit time.Duration) (model.Timetabler, error) {
	adapter, err := solver.New(solverName, solver.Config{CbcPath: s.cfg.CbcPath, TempDir: s.cfg.TempDir, Searches: s.searches})
	if err != nil {
		return nil, err
	}
	options := solver.Options{TimeLimit: timeLimit, SolverName: solverName}
	return model.NewTimetabler(adapter, options, s.logger), nil
}

// timeLimit parses the requested limit, falling back to the configured one and never exceeding the maximum
func (s *SolveService) timeLimit(raw string) (time.Duration, error) {
	if raw == "" {
		return s.cfg.TimeLimit, nil
	}

	limit, err := time.ParseDuration(raw)
	if err != nil || limit <= 0 {
		return 0, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, fmt.Sprintf("invalid time limit %q", raw))
	}
	if s.cfg.MaxTimeLimit > 0 {
		limit = min(limit, s.cfg.MaxTimeLimit)
	}
	return limit, nil
}
