package model

import (
	"fmt"
	"slices"
)

// verify checks a schedule against the input without going through the compiled program
func verify(schedule Schedule, modelInput ModelInput) error {
	if len(modelInput.ObjectiveStrategy) != 1 {
		return fmt.Errorf("exactly one objective strategy expected, got %v", modelInput.ObjectiveStrategy)
	}
	relaxed := strategies[modelInput.ObjectiveStrategy[0]].relaxed

	//** Initialize dependencies
	days := horizon(modelInput)
	allowed := allowedDays(modelInput)
	classes := make(map[string]int, len(modelInput.Classes))
	for i, class := range modelInput.Classes {
		classes[class.Id] = i
	}
	rooms := make(map[string]int, len(modelInput.Rooms))
	for i, room := range modelInput.Rooms {
		rooms[room.Id] = i
	}

	//** Initialize room-assistance
	roomAssistance := make(map[[2]int][]bool) // (room, day) -> occupied hours
	entriesPerDemand := make(map[[2]int]int)   // (class, day) -> entries

	for _, entry := range schedule.Entries {
		class, classOk := classes[entry.ClassId]
		room, roomOk := rooms[entry.RoomId]
		day := slices.Index(days, entry.Day)
		if !classOk || !roomOk || day < 0 {
			return fmt.Errorf("entry %+v references unknown data", entry)
		}

		// Check that:
		// - Class fits in room
		// - Class starts within the grid and ends before its end
		// - Class is allowed on the day
		start, end := entry.SlotStart, float64(entry.SlotStart)+modelInput.Classes[class].DurationHours
		if modelInput.Classes[class].StudentCount > modelInput.Rooms[room].Capacity {
			return fmt.Errorf("class \"%v\" does not fit in room \"%v\"", entry.ClassId, entry.RoomId)
		} else if start < modelInput.TimeGrid.Start || end > float64(modelInput.TimeGrid.End) {
			return fmt.Errorf("class \"%v\" runs outside the grid: [%v, %v)", entry.ClassId, start, end)
		} else if !allowed[class][day] {
			return fmt.Errorf("class \"%v\" is scheduled on a day it is not allowed", entry.ClassId)
		}

		// Room must not be already assigned in any of the covered hours
		roomDay := [2]int{room, day}
		if _, ok := roomAssistance[roomDay]; !ok {
			roomAssistance[roomDay] = make([]bool, modelInput.TimeGrid.End-modelInput.TimeGrid.Start)
		}
		first := int(start - modelInput.TimeGrid.Start)
		for hour := first; hour < first+int(span(modelInput.Classes[class])); hour++ {
			if roomAssistance[roomDay][hour] {
				return fmt.Errorf("room \"%v\" is double-booked at %d", entry.RoomId, modelInput.TimeGrid.Start+int64(hour))
			}
			roomAssistance[roomDay][hour] = true // Store room assistance
		}
		entriesPerDemand[[2]int{class, day}]++
	}

	// Check every class is scheduled once per required day, or at most once when completeness is relaxed
	for class := range modelInput.Classes {
		for day := range days {
			count := entriesPerDemand[[2]int{class, day}]
			if !allowed[class][day] && count > 0 ||
				allowed[class][day] && !relaxed && count != 1 ||
				allowed[class][day] && relaxed && count > 1 {
				return fmt.Errorf("class \"%v\" has %d entries on %v", modelInput.Classes[class].Id, count, dayLabel(days[day]))
			}
		}
	}

	// Check pins are honored
	for _, pin := range modelInput.Pins {
		if !slices.ContainsFunc(schedule.Entries, func(entry Entry) bool {
			return entry.ClassId == pin.ClassId && entry.RoomId == pin.RoomId && entry.SlotStart == pin.SlotStart && entry.Day == pin.Day
		}) {
			return fmt.Errorf("pin %v is not honored", describePin(pin))
		}
	}

	return nil
}
