package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limaJavier/roomtabling/internal/apperrors"
	"github.com/limaJavier/roomtabling/internal/config"
	"github.com/limaJavier/roomtabling/internal/dto"
	"github.com/limaJavier/roomtabling/internal/metrics"
	"github.com/limaJavier/roomtabling/pkg/model"
	"github.com/limaJavier/roomtabling/pkg/solver"
)

const singleClass = `{
	"classes": [{"id": "C1", "studentCount": 30, "durationHours": 2}],
	"rooms": [{"id": "R1", "capacity": 40}],
	"timeGrid": {"start": 8, "end": 20},
	"objectiveStrategy": "minUnusedCapacity"
}`

func newTestService() (*SolveService, *metrics.Metrics) {
	m := metrics.New()
	cfg := config.SolverConfig{
		Default:      solver.GophersatName,
		TimeLimit:    30 * time.Second,
		MaxTimeLimit: time.Minute,
		MaxSearches:  2,
	}
	return NewSolveService(cfg, m, nil), m
}

func TestSolve(t *testing.T) {
	t.Run("Correct flow", func(t *testing.T) {
		//** Arrange
		svc, m := newTestService()

		//** Act
		result, err := svc.Solve(context.Background(), []byte(singleClass), dto.SolveQuery{})

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, solver.Optimal, result.Status)
		assert.Equal(t, model.MinUnusedCapacity, result.Strategy)
		require.NotNil(t, result.Schedule)
		assert.Len(t, result.Schedule.Entries, 1)
		count, err := testutil.GatherAndCount(m.Registry(), "timetable_solves_total")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("Time limit reached", func(t *testing.T) {
		svc, m := newTestService()
		body, err := json.Marshal(model.ModelInput{
			Classes: lo.Times(11, func(i int) model.Class {
				return model.Class{Id: fmt.Sprintf("C%d", i+1), StudentCount: 20, DurationHours: 1}
			}),
			Rooms:             []model.Room{{Id: "R1", Capacity: 40}, {Id: "R2", Capacity: 40}},
			TimeGrid:          model.TimeGrid{Start: 8, End: 13},
			ObjectiveStrategy: []model.Strategy{model.MinUnusedCapacity},
		})
		require.NoError(t, err)

		result, err := svc.Solve(context.Background(), body, dto.SolveQuery{TimeLimit: "300ms"})

		require.NoError(t, err)
		assert.Equal(t, solver.Unknown, result.Status)
		require.NotNil(t, result.Diagnosis)
		assert.True(t, result.Diagnosis.CapacityExceeded)
		assert.Equal(t, int64(1), svc.searches.AbandonedTotal())
		expected := `
# HELP timetable_searches_abandoned_total Total number of in-process searches abandoned at their time limit
# TYPE timetable_searches_abandoned_total counter
timetable_searches_abandoned_total 1
`
		assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "timetable_searches_abandoned_total"))
	})

	t.Run("Config error", func(t *testing.T) {
		svc, _ := newTestService()

		_, err := svc.Solve(context.Background(), []byte(`{"classes": []}`), dto.SolveQuery{})

		assert.True(t, model.IsConfigError(err))
		assert.Equal(t, apperrors.ErrConfig.Code, apperrors.FromError(err).Code)
	})

	t.Run("Unknown solver", func(t *testing.T) {
		svc, _ := newTestService()

		_, err := svc.Solve(context.Background(), []byte(singleClass), dto.SolveQuery{Solver: "kissat"})

		assert.True(t, errors.Is(err, solver.ErrUnknownSolver))
	})

	t.Run("Invalid time limit", func(t *testing.T) {
		svc, _ := newTestService()

		_, err := svc.Solve(context.Background(), []byte(singleClass), dto.SolveQuery{TimeLimit: "-3s"})

		assert.Equal(t, apperrors.ErrValidation.Code, apperrors.FromError(err).Code)
	})
}

func TestTimeLimit(t *testing.T) {
	svc, _ := newTestService()

	limit, err := svc.timeLimit("")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, limit)

	limit, err = svc.timeLimit("5s")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, limit)

	limit, err = svc.timeLimit("2h")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, limit)

	_, err = svc.timeLimit("soon")
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	svc, _ := newTestService()
	entry := model.Entry{ClassId: "C1", RoomId: "R1", SlotStart: 18, DurationHours: 2}

	response, err := svc.Verify(context.Background(), dto.VerifyRequest{
		Input:    []byte(singleClass),
		Schedule: model.Schedule{Entries: []model.Entry{entry}},
	})
	require.NoError(t, err)
	assert.True(t, response.Valid)

	entry.SlotStart = 19
	response, err = svc.Verify(context.Background(), dto.VerifyRequest{
		Input:    []byte(singleClass),
		Schedule: model.Schedule{Entries: []model.Entry{entry}},
	})
	require.NoError(t, err)
	assert.False(t, response.Valid)
}

func TestOptions(t *testing.T) {
	svc, _ := newTestService()

	options := svc.Options()

	assert.Equal(t, []string{solver.CbcName, solver.GophersatName}, options.Solvers)
	assert.Contains(t, options.Strategies, model.BalanceUsageVariance)
	assert.Equal(t, solver.GophersatName, options.DefaultSolver)
}
