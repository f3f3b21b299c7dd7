package model

import (
	"errors"
	"testing"

	"github.com/limaJavier/roomtabling/pkg/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioA holds one 2-hour class of 30 students and one room for 40 over 8-20
func scenarioA() ModelInput {
	return ModelInput{
		Classes:           []Class{{Id: "C1", StudentCount: 30, DurationHours: 2}},
		Rooms:             []Room{{Id: "R1", Capacity: 40}},
		TimeGrid:          TimeGrid{Start: 8, End: 20},
		ObjectiveStrategy: []Strategy{MinUnusedCapacity},
	}
}

// weekly holds two days, a class restricted to Monday and a class allowed every day
func weekly() ModelInput {
	return ModelInput{
		Classes: []Class{
			{Id: "C1", StudentCount: 30, DurationHours: 2, AllowedDays: []string{"Monday"}},
			{Id: "C2", StudentCount: 20, DurationHours: 1},
		},
		Rooms:             []Room{{Id: "R1", Capacity: 40}, {Id: "R2", Capacity: 25}},
		TimeGrid:          TimeGrid{Start: 8, End: 12},
		Days:              []string{"Monday", "Tuesday"},
		ObjectiveStrategy: []Strategy{MinUnusedCapacity},
	}
}

func TestCompile(t *testing.T) {
	t.Run("Correct flow", func(t *testing.T) {
		//** Act
		model, err := Compile(scenarioA())

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, 11, model.Program.NumVariables()) // Starts 8 to 18
		assert.Equal(t, map[string]int{assignmentFamily: 1, capacityFamily: 11, noOverlapFamily: 10}, model.Program.Families())
		assert.Equal(t, program.Minimize, model.Program.Objective().Direction)
		assert.Equal(t, "x[C1,R1,8]", model.Program.Variable(0).Name)
	})

	t.Run("Explicit time bounds", func(t *testing.T) {
		input := scenarioA()
		input.Policies.ExplicitTimeBounds = true

		model, err := Compile(input)

		require.NoError(t, err)
		assert.Equal(t, 12, model.Program.NumVariables())
		assert.Equal(t, map[string]int{assignmentFamily: 1, capacityFamily: 12, noOverlapFamily: 11, validStartFamily: 1}, model.Program.Families())
		assert.Contains(t, model.Program.ToLP(), "\\ v11 = x[C1,R1,19]\n")
	})

	t.Run("Day gating", func(t *testing.T) {
		model, err := Compile(weekly())
		require.NoError(t, err)

		constraints := model.Program.Constraints()
		assignment := make(map[string]program.Constraint)
		for _, constraint := range constraints {
			if constraint.Family == assignmentFamily {
				assignment[constraint.Name] = constraint
			}
		}

		assert.Len(t, assignment, 4)
		assert.Equal(t, 1.0, assignment["assignment[C1,Monday]"].RHS)
		assert.Equal(t, 0.0, assignment["assignment[C1,Tuesday]"].RHS)
		assert.Equal(t, program.Equal, assignment["assignment[C1,Tuesday]"].Sense)
		assert.Equal(t, 1.0, assignment["assignment[C2,Tuesday]"].RHS)
	})

	t.Run("Relaxed completeness", func(t *testing.T) {
		input := weekly()
		input.ObjectiveStrategy = []Strategy{MaxScheduled}

		model, err := Compile(input)
		require.NoError(t, err)

		for _, constraint := range model.Program.Constraints() {
			if constraint.Name == "assignment[C1,Monday]" {
				assert.Equal(t, program.LessEqual, constraint.Sense)
			} else if constraint.Name == "assignment[C1,Tuesday]" {
				assert.Equal(t, program.Equal, constraint.Sense)
				assert.Equal(t, 0.0, constraint.RHS)
			}
		}
		assert.Equal(t, program.Maximize, model.Program.Objective().Direction)
	})

	t.Run("Room usage aggregates", func(t *testing.T) {
		input := weekly()
		input.ObjectiveStrategy = []Strategy{BalanceUsageVariance}

		model, err := Compile(input)
		require.NoError(t, err)

		keys := model.indexer.Len()
		usage := model.Program.Variable(keys)
		assert.Equal(t, "u[R1]", usage.Name)
		assert.Equal(t, program.NonNegativeInteger, usage.Kind)
		assert.Equal(t, int64(3), usage.Upper) // C1 on Monday, C2 on both days
		assert.Equal(t, keys+2, model.Program.NumVariables())
		assert.Equal(t, 2, model.Program.Families()[roomUsageFamily])
		assert.False(t, model.Program.Objective().Expr.IsLinear())
	})

	t.Run("Contiguous fill", func(t *testing.T) {
		input := weekly()
		input.Policies.ContiguousFill = true

		model, err := Compile(input)

		require.NoError(t, err)
		// Two rooms, two days, hours 9 to 11
		assert.Equal(t, 12, model.Program.Families()[contiguousFillFamily])
	})

	t.Run("Deterministic", func(t *testing.T) {
		first, err := Compile(weekly())
		require.NoError(t, err)
		second, err := Compile(weekly())
		require.NoError(t, err)

		assert.Equal(t, first.Program.ToLP(), second.Program.ToLP())
		assert.Equal(t, first.indexer.Keys(), second.indexer.Keys())
	})
}

func TestIndexer(t *testing.T) {
	model, err := Compile(weekly())
	require.NoError(t, err)

	keys := model.indexer.Keys()
	assert.Equal(t, Key{Class: 0, Day: 0, Room: 0, Slot: 0}, keys[0])
	assert.Equal(t, Key{Class: 0, Day: 0, Room: 0, Slot: 1}, keys[1])
	for i, key := range keys {
		index, ok := model.Variable(key)
		assert.True(t, ok)
		assert.Equal(t, i, index)
	}

	// C1 lasts two hours, a start at 11 is pruned
	_, ok := model.Variable(Key{Class: 0, Day: 0, Room: 0, Slot: 3})
	assert.False(t, ok)
	_, ok = model.Key(len(keys))
	assert.False(t, ok)
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(input *ModelInput)
		config bool // Caused by the data itself
	}{
		{"No strategy", func(input *ModelInput) { input.ObjectiveStrategy = nil }, false},
		{"Ambiguous strategy", func(input *ModelInput) { input.ObjectiveStrategy = []Strategy{MinUnusedCapacity, MaxScheduled} }, false},
		{"Unknown strategy", func(input *ModelInput) { input.ObjectiveStrategy = []Strategy{"minCost"} }, true},
		{"No allowed days", func(input *ModelInput) { input.Classes[0].AllowedDays = []string{} }, true},
		{"Non-positive capacity", func(input *ModelInput) { input.Rooms[1].Capacity = 0 }, true},
		{"Duration exceeding grid", func(input *ModelInput) { input.Classes[1].DurationHours = 4.5 }, true},
		{"Pin of unknown class", func(input *ModelInput) {
			input.Pins = []Pin{{ClassId: "C9", RoomId: "R1", SlotStart: 8, Day: "Monday"}}
		}, true},
		{"Pin without day", func(input *ModelInput) {
			input.Pins = []Pin{{ClassId: "C1", RoomId: "R1", SlotStart: 8}}
		}, true},
		{"Pin outside time bounds", func(input *ModelInput) {
			input.Pins = []Pin{{ClassId: "C1", RoomId: "R1", SlotStart: 11, Day: "Monday"}}
		}, false},
		{"Pin before the grid", func(input *ModelInput) {
			input.Pins = []Pin{{ClassId: "C1", RoomId: "R1", SlotStart: 7, Day: "Monday"}}
		}, false},
		{"Pin on a day not allowed", func(input *ModelInput) {
			input.Pins = []Pin{{ClassId: "C1", RoomId: "R1", SlotStart: 8, Day: "Tuesday"}}
		}, false},
		{"Pin over capacity", func(input *ModelInput) {
			input.Pins = []Pin{{ClassId: "C1", RoomId: "R2", SlotStart: 8, Day: "Monday"}}
		}, false},
		{"Pins scheduling a class twice", func(input *ModelInput) {
			input.Pins = []Pin{
				{ClassId: "C2", RoomId: "R1", SlotStart: 8, Day: "Tuesday"},
				{ClassId: "C2", RoomId: "R2", SlotStart: 10, Day: "Tuesday"},
			}
		}, false},
		{"Overlapping pins", func(input *ModelInput) {
			input.Pins = []Pin{
				{ClassId: "C1", RoomId: "R1", SlotStart: 8, Day: "Monday"},
				{ClassId: "C2", RoomId: "R1", SlotStart: 9, Day: "Monday"},
			}
		}, false},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			//** Arrange
			input := weekly()
			testCase.mutate(&input)

			//** Act
			model, err := Compile(input)

			//** Assert
			assert.Nil(t, model)
			var buildError *ModelBuildError
			require.True(t, errors.As(err, &buildError), "expected a build error, got %v", err)
			assert.Equal(t, testCase.config, IsConfigError(err))
		})
	}

	t.Run("Compatible pins", func(t *testing.T) {
		input := weekly()
		input.Pins = []Pin{
			{ClassId: "C1", RoomId: "R1", SlotStart: 8, Day: "Monday"},
			{ClassId: "C2", RoomId: "R1", SlotStart: 10, Day: "Monday"},
		}

		model, err := Compile(input)

		require.NoError(t, err)
		assert.Equal(t, 2, model.Program.Families()[pinFamily])
	})
}
