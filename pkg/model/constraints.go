package model

import (
	"fmt"
	"strings"

	"github.com/limaJavier/roomtabling/pkg/program"
	"github.com/samber/lo"
)

const (
	assignmentFamily     = "assignment"
	capacityFamily       = "capacity"
	noOverlapFamily      = "no_overlap"
	validStartFamily     = "valid_start"
	roomUsageFamily      = "room_usage"
	contiguousFillFamily = "contiguous_fill"
	pinFamily            = "pin"
)

type constraintState struct {
	input   ModelInput
	indexer indexer

	days    []string // Horizon labels
	allowed [][]bool // Class x day
	spans   []int64  // Occupied slots per class
	slots   int      // Hours in the grid

	relaxed bool  // Completeness is "at most one" instead of "exactly one"
	usage   []int // Room usage variables, nil unless the objective needs them
	pins    []Key
}

type constraintFamily struct {
	name     string
	generate func(state constraintState) []program.Constraint
}

// families lists the generated families in the order they are merged into the program
func families(state constraintState) []constraintFamily {
	families := []constraintFamily{
		{assignmentFamily, assignmentConstraints},
		{capacityFamily, capacityConstraints},
		{noOverlapFamily, noOverlapConstraints},
	}
	if state.input.Policies.ExplicitTimeBounds {
		families = append(families, constraintFamily{validStartFamily, validStartConstraints})
	}
	if state.usage != nil {
		families = append(families, constraintFamily{roomUsageFamily, roomUsageConstraints})
	}
	if state.input.Policies.ContiguousFill {
		families = append(families, constraintFamily{contiguousFillFamily, contiguousFillConstraints})
	}
	if len(state.pins) > 0 {
		families = append(families, constraintFamily{pinFamily, pinConstraints})
	}
	return families
}

// Per class and day: one (room, slot) when the day is allowed, none otherwise
func assignmentConstraints(state constraintState) []program.Constraint {
	constraints := make([]program.Constraint, 0, len(state.input.Classes)*len(state.days))

	for class := range state.input.Classes {
		for day := range state.days {
			variables := make([]int, 0, len(state.input.Rooms)*state.slots)
			for room := range state.input.Rooms {
				for slot := range state.slots {
					if variable, ok := state.indexer.Index(Key{class, day, room, slot}); ok {
						variables = append(variables, variable)
					}
				}
			}

			constraint := program.Constraint{
				Name:   constraintName(assignmentFamily, state.input.Classes[class].Id, state.days[day]),
				Family: assignmentFamily,
				Expr:   program.Sum(variables...),
				Sense:  program.Equal,
				RHS:    1,
			}
			if !state.allowed[class][day] {
				constraint.RHS = 0
			} else if state.relaxed {
				constraint.Sense = program.LessEqual
			}
			constraints = append(constraints, constraint)
		}
	}

	return constraints
}

// studentCount(c) * x <= capacity(r) for every key. Oversized rooms are forced to zero rather than pruned, so an
// oversized class surfaces as infeasibility.
func capacityConstraints(state constraintState) []program.Constraint {
	constraints := make([]program.Constraint, 0, state.indexer.Len())

	for variable, key := range state.indexer.Keys() {
		class, room := state.input.Classes[key.Class], state.input.Rooms[key.Room]
		constraints = append(constraints, program.Constraint{
			Name:   state.keyName(capacityFamily, key),
			Family: capacityFamily,
			Expr:   program.NewLinearExpr().AddTerm(variable, float64(class.StudentCount)),
			Sense:  program.LessEqual,
			RHS:    float64(room.Capacity),
		})
	}

	return constraints
}

// Per room, day and hour: at most one class interval covers the hour
func noOverlapConstraints(state constraintState) []program.Constraint {
	constraints := make([]program.Constraint, 0)

	permutations := newPermutationGenerator(len(state.input.Rooms), len(state.days), state.slots).ConstrainedPermutations(nil)
	for _, permutation := range permutations {
		room, day, hour := permutation[0], permutation[1], permutation[2]

		variables := state.occupancy(room, day, hour)
		if len(variables) < 2 { // Cannot be violated
			continue
		}

		constraints = append(constraints, program.Constraint{
			Name:   constraintName(noOverlapFamily, state.input.Rooms[room].Id, state.days[day], state.hourLabel(hour)),
			Family: noOverlapFamily,
			Expr:   program.Sum(variables...),
			Sense:  program.LessEqual,
			RHS:    1,
		})
	}

	return constraints
}

// Starts that run past the end of the grid are forced to zero
func validStartConstraints(state constraintState) []program.Constraint {
	constraints := make([]program.Constraint, 0)

	for variable, key := range state.indexer.Keys() {
		if state.fitsGrid(key.Class, key.Slot) {
			continue
		}
		constraints = append(constraints, program.Constraint{
			Name:   state.keyName(validStartFamily, key),
			Family: validStartFamily,
			Expr:   program.Sum(variable),
			Sense:  program.Equal,
			RHS:    0,
		})
	}

	return constraints
}

// u_r equals the number of assignments in room r
func roomUsageConstraints(state constraintState) []program.Constraint {
	perRoom := make([][]int, len(state.input.Rooms))
	for variable, key := range state.indexer.Keys() {
		perRoom[key.Room] = append(perRoom[key.Room], variable)
	}

	constraints := make([]program.Constraint, 0, len(state.input.Rooms))
	for room, usage := range state.usage {
		constraints = append(constraints, program.Constraint{
			Name:   constraintName(roomUsageFamily, state.input.Rooms[room].Id),
			Family: roomUsageFamily,
			Expr:   program.NewLinearExpr().AddTerm(usage, 1).Plus(program.Sum(perRoom[room]...), -1),
			Sense:  program.Equal,
			RHS:    0,
		})
	}

	return constraints
}

// Per room and day, occupancy(t) - occupancy(t-1) <= 0 for every hour after the first one of the day
func contiguousFillConstraints(state constraintState) []program.Constraint {
	constraints := make([]program.Constraint, 0)

	permutations := newPermutationGenerator(len(state.input.Rooms), len(state.days), state.slots).ConstrainedPermutations(
		[]func(permutation []int) bool{
			func(permutation []int) bool {
				hour := permutation[2]
				return hour == unassigned || hour > 0
			},
		},
	)
	for _, permutation := range permutations {
		room, day, hour := permutation[0], permutation[1], permutation[2]

		current := state.occupancy(room, day, hour)
		if len(current) == 0 { // Cannot be violated
			continue
		}

		constraints = append(constraints, program.Constraint{
			Name:   constraintName(contiguousFillFamily, state.input.Rooms[room].Id, state.days[day], state.hourLabel(hour)),
			Family: contiguousFillFamily,
			Expr:   program.Sum(current...).Plus(program.Sum(state.occupancy(room, day, hour-1)...), -1),
			Sense:  program.LessEqual,
			RHS:    0,
		})
	}

	return constraints
}

func pinConstraints(state constraintState) []program.Constraint {
	constraints := make([]program.Constraint, 0, len(state.pins))

	for _, key := range state.pins {
		variable, _ := state.indexer.Index(key) // Pins are checked against the index at compile time
		constraints = append(constraints, program.Constraint{
			Name:   state.keyName(pinFamily, key),
			Family: pinFamily,
			Expr:   program.Sum(variable),
			Sense:  program.Equal,
			RHS:    1,
		})
	}

	return constraints
}

// occupancy returns the variables of every class interval covering an hour of a room and day: a class starting at
// t' covers t iff t' is in [t - span + 1, t]
func (state constraintState) occupancy(room, day, hour int) []int {
	variables := make([]int, 0)
	for class := range state.input.Classes {
		first := max(hour-int(state.spans[class])+1, 0)
		for slot := first; slot <= hour; slot++ {
			if variable, ok := state.indexer.Index(Key{class, day, room, slot}); ok {
				variables = append(variables, variable)
			}
		}
	}
	return variables
}

func (state constraintState) fitsGrid(class, slot int) bool {
	return state.input.TimeGrid.Start+int64(slot)+state.spans[class] <= state.input.TimeGrid.End
}

func (state constraintState) hourLabel(slot int) string {
	return fmt.Sprint(state.input.TimeGrid.Start + int64(slot))
}

func (state constraintState) keyName(family string, key Key) string {
	return constraintName(
		family,
		state.input.Classes[key.Class].Id,
		state.input.Rooms[key.Room].Id,
		state.hourLabel(key.Slot),
		state.days[key.Day],
	)
}

// constraintName renders family[a,b,...], empty labels (the implicit day) are left out
func constraintName(family string, labels ...string) string {
	return family + "[" + strings.Join(lo.Without(labels, ""), ",") + "]"
}
