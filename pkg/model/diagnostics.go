package model

import (
	"fmt"
	"strconv"

	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"github.com/samber/lo"
)

const tightnessMessage = "Check if room capacities or time constraints are too tight."

// Diagnosis estimates why no schedule was found. It is a heuristic, never a certificate of infeasibility.
type Diagnosis struct {
	Advisory         bool     `json:"advisory"`
	CapacityExceeded bool     `json:"capacityExceeded"`
	DemandHours      float64  `json:"demandHours"`
	SupplyHours      int64    `json:"supplyHours"`
	Message          string   `json:"message"`
	Findings         []string `json:"findings,omitempty"`
}

// Diagnose compares the required class time with the available room time, and looks for classes that fit no room
// and for days whose class-hours cannot all be matched to room-hours
func Diagnose(input ModelInput) Diagnosis {
	days := horizon(input)
	allowed := allowedDays(input)

	var demand float64
	for class := range input.Classes {
		demand += input.Classes[class].DurationHours * float64(lo.Count(allowed[class], true))
	}
	supply := int64(len(input.Rooms)) * (input.TimeGrid.End - input.TimeGrid.Start) * int64(len(days))

	diagnosis := Diagnosis{
		Advisory:         true,
		CapacityExceeded: demand > float64(supply),
		DemandHours:      demand,
		SupplyHours:      supply,
		Message:          tightnessMessage,
		Findings:         make([]string, 0),
	}
	if diagnosis.CapacityExceeded {
		diagnosis.Message = fmt.Sprintf(
			"The total required class time (%v hours) exceeds available time slots (%v hours).",
			strconv.FormatFloat(demand, 'f', -1, 64),
			supply,
		)
	}

	//** Classes that fit no room
	largest := lo.MaxBy(input.Rooms, func(a, b Room) bool { return a.Capacity > b.Capacity })
	for _, class := range input.Classes {
		if class.StudentCount > largest.Capacity {
			diagnosis.Findings = append(diagnosis.Findings, fmt.Sprintf(
				"class \"%v\" has %d students but the largest room \"%v\" holds %d",
				class.Id, class.StudentCount, largest.Id, largest.Capacity,
			))
		}
	}

	//** Per-day shortfalls
	for day, label := range days {
		required, hosted, err := dayMatching(input, allowed, day)
		if err != nil {
			diagnosis.Findings = append(diagnosis.Findings, fmt.Sprintf("cannot match class-hours of %v: %v", dayLabel(label), err))
		} else if hosted < required {
			diagnosis.Findings = append(diagnosis.Findings, fmt.Sprintf(
				"%v requires %d class-hours but at most %d can be hosted by fitting rooms",
				dayLabel(label), required, hosted,
			))
		}
	}

	return diagnosis
}

type classHour struct {
	class, hour int
}

type roomHour struct {
	room, hour int
}

// dayMatching matches every hour a class needs on a day to an hour of a room able to host the class. A maximum
// matching smaller than the required class-hours proves that day cannot be scheduled.
func dayMatching(input ModelInput, allowed [][]bool, day int) (required, hosted int, err error) {
	classHours := make([]any, 0)
	for class := range input.Classes {
		if !allowed[class][day] {
			continue
		}
		for hour := range span(input.Classes[class]) {
			classHours = append(classHours, classHour{class, int(hour)})
		}
	}
	if len(classHours) == 0 {
		return 0, 0, nil
	}

	slots := int(input.TimeGrid.End - input.TimeGrid.Start)
	roomHours := make([]any, 0, len(input.Rooms)*slots)
	for room := range input.Rooms {
		for hour := range slots {
			roomHours = append(roomHours, roomHour{room, hour})
		}
	}

	// Build neighbors predicate based on capacity
	neighbors := func(classHourAny any, roomHourAny any) (bool, error) {
		class := classHourAny.(classHour).class
		room := roomHourAny.(roomHour).room
		return input.Classes[class].StudentCount <= input.Rooms[room].Capacity, nil
	}

	graph, err := bipartitegraph.NewBipartiteGraph(classHours, roomHours, neighbors)
	if err != nil {
		return 0, 0, err
	}

	return len(classHours), len(graph.LargestMatching()), nil
}

func dayLabel(label string) string {
	if label == "" {
		return "the day"
	}
	return fmt.Sprintf("day \"%v\"", label)
}
