package model

import (
	"errors"
	"testing"

	"github.com/limaJavier/roomtabling/pkg/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assign builds solver values setting the given keys to one
func assign(t *testing.T, model *CompiledModel, keys ...Key) []float64 {
	t.Helper()
	values := make([]float64, model.Program.NumVariables())
	for _, key := range keys {
		variable, ok := model.Variable(key)
		require.True(t, ok, "key %+v is not indexed", key)
		values[variable] = 1
	}
	return values
}

func TestDecode(t *testing.T) {
	input := weekly()
	input.ObjectiveStrategy = []Strategy{MaxScheduled}
	model, err := Compile(input)
	require.NoError(t, err)

	t.Run("Correct flow", func(t *testing.T) {
		//** Arrange
		values := assign(t, model,
			Key{Class: 1, Day: 1, Room: 1, Slot: 2}, // C2 on Tuesday at 10 in R2
			Key{Class: 0, Day: 0, Room: 0, Slot: 0}, // C1 on Monday at 8 in R1
		)

		//** Act
		schedule, err := model.Decode(solver.Result{Status: solver.Optimal, Values: values, ObjectiveValue: 2})

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, []Entry{
			{ClassId: "C1", RoomId: "R1", Day: "Monday", SlotStart: 8, DurationHours: 2},
			{ClassId: "C2", RoomId: "R2", Day: "Tuesday", SlotStart: 10, DurationHours: 1},
		}, schedule.Entries)
		assert.Equal(t, Metrics{
			ClassesScheduled:  2,
			DistinctSlotsUsed: 2,
			OccupiedSlots:     3,
			VacantSlots:       13,
			RoomUsage:         map[string]int{"R1": 1, "R2": 1},
			ObjectiveValue:    2,
			Unscheduled:       []Demand{{ClassId: "C2", Day: "Monday"}},
		}, schedule.Metrics)
	})

	t.Run("Empty schedule", func(t *testing.T) {
		schedule, err := model.Decode(solver.Result{Status: solver.Feasible, Values: assign(t, model)})

		require.NoError(t, err)
		assert.Empty(t, schedule.Entries)
		assert.Len(t, schedule.Metrics.Unscheduled, 3)
		assert.Equal(t, map[string]int{"R1": 0, "R2": 0}, schedule.Metrics.RoomUsage)
		assert.Equal(t, int64(16), schedule.Metrics.VacantSlots)
	})

	t.Run("Capacity violation", func(t *testing.T) {
		values := assign(t, model, Key{Class: 0, Day: 0, Room: 1, Slot: 0}) // C1 does not fit in R2

		_, err := model.Decode(solver.Result{Status: solver.Optimal, Values: values})

		assert.True(t, errors.Is(err, ErrInvalidAssignment))
	})

	t.Run("Overlap violation", func(t *testing.T) {
		values := assign(t, model,
			Key{Class: 0, Day: 0, Room: 0, Slot: 0},
			Key{Class: 1, Day: 0, Room: 0, Slot: 1},
		)

		_, err := model.Decode(solver.Result{Status: solver.Optimal, Values: values})

		assert.True(t, errors.Is(err, ErrInvalidAssignment))
	})

	t.Run("Unsolved result", func(t *testing.T) {
		_, err := model.Decode(solver.Result{Status: solver.Infeasible})

		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrInvalidAssignment))
	})

	t.Run("Missing completeness", func(t *testing.T) {
		exact, err := Compile(weekly())
		require.NoError(t, err)

		_, err = exact.Decode(solver.Result{Status: solver.Optimal, Values: assign(t, exact)})

		assert.True(t, errors.Is(err, ErrInvalidAssignment))
	})
}
