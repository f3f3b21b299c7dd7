package model

import (
	"fmt"
	"slices"

	"github.com/limaJavier/roomtabling/pkg/program"
)

// CompiledModel is an immutable program together with the key space needed to decode its solutions
type CompiledModel struct {
	Program  *program.Program
	Strategy Strategy

	input   ModelInput
	indexer indexer
	days    []string
	allowed [][]bool
	spans   []int64
	slots   int
	usage   []int
}

// Compile folds the variable index, the constraint families, the objective and the pins into a program.
// Every failure is a *ModelBuildError and happens before any solver is involved.
func Compile(input ModelInput) (*CompiledModel, error) {
	if err := checkInput(input); err != nil {
		return nil, &ModelBuildError{Reason: "inconsistent input", Err: err}
	}

	//** Select objective
	if len(input.ObjectiveStrategy) != 1 {
		return nil, buildError("exactly one objective strategy must be selected, got %v", input.ObjectiveStrategy)
	}
	strategy := strategies[input.ObjectiveStrategy[0]]

	//** Extract attributes' domains
	days := horizon(input)
	allowed := allowedDays(input)
	spans := make([]int64, len(input.Classes))
	for i, class := range input.Classes {
		spans[i] = span(class)
	}
	slots := int(input.TimeGrid.End - input.TimeGrid.Start)

	//** Index variables
	filters := make([]func(permutation []int) bool, 0)
	if !input.Policies.ExplicitTimeBounds {
		// Prune starts running past the end of the grid
		filters = append(filters, func(permutation []int) bool {
			class, slot := permutation[0], permutation[3]
			return class == unassigned ||
				slot == unassigned ||

				// Actual predicate
				input.TimeGrid.Start+int64(slot)+spans[class] <= input.TimeGrid.End
		})
	}
	indexer := newIndexer(len(input.Classes), len(days), len(input.Rooms), slots, filters)

	state := constraintState{
		input:   input,
		indexer: indexer,
		days:    days,
		allowed: allowed,
		spans:   spans,
		slots:   slots,
		relaxed: strategy.relaxed,
	}

	pins, err := resolvePins(state)
	if err != nil {
		return nil, err
	}
	state.pins = pins

	//** Declare variables
	builder := program.NewBuilder()
	for _, key := range indexer.Keys() {
		builder.AddBinary(state.keyName("x", key))
	}
	if strategy.usage {
		demands := int64(requiredDemands(allowed))
		state.usage = make([]int, len(input.Rooms))
		for room := range input.Rooms {
			state.usage[room] = builder.AddInteger(constraintName("u", input.Rooms[room].Id), demands)
		}
	}

	//** Generate constraints and objective
	builder.AddConstraints(generateConstraints(families(state), state)...)
	if err := builder.SetObjective(strategy.objective(state)); err != nil {
		return nil, &ModelBuildError{Reason: "ambiguous objective", Err: err}
	}

	prog, err := builder.Build()
	if err != nil {
		return nil, &ModelBuildError{Reason: "invalid program", Err: err}
	}

	return &CompiledModel{
		Program:  prog,
		Strategy: input.ObjectiveStrategy[0],
		input:    input,
		indexer:  indexer,
		days:     days,
		allowed:  allowed,
		spans:    spans,
		slots:    slots,
		usage:    state.usage,
	}, nil
}

// Key returns the assignment key of a variable, false for auxiliary variables
func (model *CompiledModel) Key(variable int) (Key, bool) {
	if variable < 0 || variable >= model.indexer.Len() {
		return Key{}, false
	}
	return model.indexer.Key(variable), true
}

// Variable returns the variable of an assignment key, false when the key is not part of the index
func (model *CompiledModel) Variable(key Key) (int, bool) {
	return model.indexer.Index(key)
}

// generateConstraints runs every family on its own goroutine and merges the results in family order
func generateConstraints(families []constraintFamily, state constraintState) []program.Constraint {
	type generated struct {
		position    int
		constraints []program.Constraint
	}

	constraintsChannel := make(chan generated, len(families)) // Channel to collect constraints
	for position, family := range families {
		go func() {
			constraintsChannel <- generated{position, family.generate(state)}
		}()
	}

	// Collect generated constraints
	collected := make([][]program.Constraint, len(families))
	total := 0
	for range families {
		result := <-constraintsChannel
		collected[result.position] = result.constraints
		total += len(result.constraints)
	}

	constraints := make([]program.Constraint, 0, total)
	for _, familyConstraints := range collected {
		constraints = append(constraints, familyConstraints...)
	}
	return constraints
}

// resolvePins maps pins to keys, rejecting the ones conflicting with the structural constraints
func resolvePins(state constraintState) ([]Key, error) {
	input := state.input
	keys := make([]Key, 0, len(input.Pins))

	for i, pin := range input.Pins {
		field := fmt.Sprintf("pins[%d]", i)

		class := slices.IndexFunc(input.Classes, func(class Class) bool { return class.Id == pin.ClassId })
		room := slices.IndexFunc(input.Rooms, func(room Room) bool { return room.Id == pin.RoomId })
		day := slices.Index(state.days, pin.Day)
		if class < 0 {
			return nil, pinError(pin, &ConfigError{Field: field + ".classId", Reason: fmt.Sprintf("unknown class \"%v\"", pin.ClassId)})
		} else if room < 0 {
			return nil, pinError(pin, &ConfigError{Field: field + ".roomId", Reason: fmt.Sprintf("unknown room \"%v\"", pin.RoomId)})
		} else if day < 0 {
			return nil, pinError(pin, &ConfigError{Field: field + ".day", Reason: fmt.Sprintf("unknown day \"%v\"", pin.Day)})
		}

		slot := int(pin.SlotStart - input.TimeGrid.Start)
		if pin.SlotStart < input.TimeGrid.Start || !state.fitsGrid(class, slot) {
			return nil, buildError("pin %v lies outside the valid time bounds [%d, %d)", describePin(pin), input.TimeGrid.Start, input.TimeGrid.End)
		} else if !state.allowed[class][day] {
			return nil, buildError("pin %v conflicts with the allowed days of class \"%v\"", describePin(pin), pin.ClassId)
		} else if input.Classes[class].StudentCount > input.Rooms[room].Capacity {
			return nil, buildError("pin %v conflicts with capacity: %d students in a room for %d", describePin(pin), input.Classes[class].StudentCount, input.Rooms[room].Capacity)
		}

		key := Key{Class: class, Day: day, Room: room, Slot: slot}
		if _, ok := state.indexer.Index(key); !ok {
			return nil, buildError("pin %v references a key outside the variable index", describePin(pin))
		}

		for j, other := range keys {
			if other.Class == key.Class && other.Day == key.Day {
				return nil, buildError("pins %v and %v schedule class \"%v\" twice on the same day", describePin(input.Pins[j]), describePin(pin), pin.ClassId)
			} else if other.Room == key.Room && other.Day == key.Day && overlap(other.Slot, state.spans[other.Class], key.Slot, state.spans[key.Class]) {
				return nil, buildError("pins %v and %v overlap in room \"%v\"", describePin(input.Pins[j]), describePin(pin), pin.RoomId)
			}
		}
		keys = append(keys, key)
	}

	return keys, nil
}

func pinError(pin Pin, err *ConfigError) error {
	return &ModelBuildError{Reason: fmt.Sprintf("pin %v is invalid", describePin(pin)), Err: err}
}

func describePin(pin Pin) string {
	return constraintName("pin", pin.ClassId, pin.RoomId, fmt.Sprint(pin.SlotStart), pin.Day)
}

// overlap reports whether [start1, start1+span1) and [start2, start2+span2) intersect
func overlap(start1 int, span1 int64, start2 int, span2 int64) bool {
	return int64(start1) < int64(start2)+span2 && int64(start2) < int64(start1)+span1
}
