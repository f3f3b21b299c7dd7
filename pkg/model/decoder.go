package model

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/limaJavier/roomtabling/pkg/solver"
	"github.com/samber/lo"
)

// valueTolerance absorbs the floating point noise of solver values
const valueTolerance = 1e-6

type Entry struct {
	ClassId       string  `json:"classId"`
	RoomId        string  `json:"roomId"`
	Day           string  `json:"day,omitempty"`
	SlotStart     int64   `json:"slotStart"`
	DurationHours float64 `json:"durationHours"`
}

// Demand is a (class, day) pair that had to be scheduled
type Demand struct {
	ClassId string `json:"classId"`
	Day     string `json:"day,omitempty"`
}

type Metrics struct {
	ClassesScheduled  int            `json:"classesScheduled"`
	DistinctSlotsUsed int            `json:"distinctSlotsUsed"` // Distinct start hours over every room and day
	OccupiedSlots     int64          `json:"occupiedSlots"`     // Covered (room, hour, day) triples
	VacantSlots       int64          `json:"vacantSlots"`
	RoomUsage         map[string]int `json:"roomUsage"`
	ObjectiveValue    float64        `json:"objectiveValue"`
	Unscheduled       []Demand       `json:"unscheduled,omitempty"`
}

// Schedule is a decoded solution, entries are sorted by day, slot start, room and class
type Schedule struct {
	Entries []Entry `json:"entries"`
	Metrics Metrics `json:"metrics"`
}

// Decode reconstructs the schedule of a solved result. Values are checked against every constraint of the program
// first, a violating assignment is reported with ErrInvalidAssignment and never decoded.
func (model *CompiledModel) Decode(result solver.Result) (Schedule, error) {
	if !result.Status.Solved() {
		return Schedule{}, fmt.Errorf("cannot decode a result with status %v", result.Status)
	}
	if violations := model.Program.Violations(result.Values, valueTolerance); len(violations) > 0 {
		return Schedule{}, fmt.Errorf("%w: %d violations, first: %v", ErrInvalidAssignment, len(violations), violations[0])
	}

	//** Collect positive assignment variables
	keys := make([]Key, 0)
	for variable, value := range result.Values {
		if key, ok := model.Key(variable); ok && value > 0.5 {
			keys = append(keys, key)
		}
	}
	slices.SortFunc(keys, func(a, b Key) int {
		return cmp.Or(
			cmp.Compare(a.Day, b.Day),
			cmp.Compare(a.Slot, b.Slot),
			cmp.Compare(a.Room, b.Room),
			cmp.Compare(a.Class, b.Class),
		)
	})

	input := model.input
	entries := lo.Map(keys, func(key Key, _ int) Entry {
		return Entry{
			ClassId:       input.Classes[key.Class].Id,
			RoomId:        input.Rooms[key.Room].Id,
			Day:           model.days[key.Day],
			SlotStart:     input.TimeGrid.Start + int64(key.Slot),
			DurationHours: input.Classes[key.Class].DurationHours,
		}
	})

	//** Derive metrics
	scheduled := make(map[[2]int]bool, len(keys))
	roomUsage := make(map[string]int, len(input.Rooms))
	for _, room := range input.Rooms {
		roomUsage[room.Id] = 0
	}
	var occupied int64
	for _, key := range keys {
		scheduled[[2]int{key.Class, key.Day}] = true
		roomUsage[input.Rooms[key.Room].Id]++
		occupied += model.spans[key.Class]
	}

	unscheduled := make([]Demand, 0)
	for class := range input.Classes {
		for day := range model.days {
			if model.allowed[class][day] && !scheduled[[2]int{class, day}] {
				unscheduled = append(unscheduled, Demand{ClassId: input.Classes[class].Id, Day: model.days[day]})
			}
		}
	}

	supply := int64(len(input.Rooms) * model.slots * len(model.days))
	return Schedule{
		Entries: entries,
		Metrics: Metrics{
			ClassesScheduled:  len(entries),
			DistinctSlotsUsed: len(lo.Uniq(lo.Map(entries, func(entry Entry, _ int) int64 { return entry.SlotStart }))),
			OccupiedSlots:     occupied,
			VacantSlots:       supply - occupied,
			RoomUsage:         roomUsage,
			ObjectiveValue:    result.ObjectiveValue,
			Unscheduled:       unscheduled,
		},
	}, nil
}
