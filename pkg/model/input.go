package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"reflect"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

type Strategy string

const (
	MinUnusedCapacity    Strategy = "minUnusedCapacity"
	BalanceUsageVariance Strategy = "balanceUsageVariance"
	MaxScheduled         Strategy = "maxScheduled"
	MinVacantSlots       Strategy = "minVacantSlots"
)

type Class struct {
	Id            string   `mapstructure:"id" json:"id" validate:"required"`
	StudentCount  int64    `mapstructure:"studentCount" json:"studentCount" validate:"gt=0"`
	DurationHours float64  `mapstructure:"durationHours" json:"durationHours" validate:"gt=0"`
	AllowedDays   []string `mapstructure:"allowedDays" json:"allowedDays,omitempty"` // nil means every day of the horizon
}

type Room struct {
	Id       string `mapstructure:"id" json:"id" validate:"required"`
	Capacity int64  `mapstructure:"capacity" json:"capacity" validate:"gt=0"`
}

// TimeGrid is the hour range [Start, End)
type TimeGrid struct {
	Start int64 `mapstructure:"start" json:"start" validate:"gte=0"`
	End   int64 `mapstructure:"end" json:"end" validate:"gtfield=Start"`
}

type Pin struct {
	ClassId   string `mapstructure:"classId" json:"classId" validate:"required"`
	RoomId    string `mapstructure:"roomId" json:"roomId" validate:"required"`
	SlotStart int64  `mapstructure:"slotStart" json:"slotStart"`
	Day       string `mapstructure:"day" json:"day,omitempty"`
}

type Policies struct {
	// Occupancy of a room at an hour may not exceed its occupancy at the previous hour of the same day
	ContiguousFill bool `mapstructure:"contiguousFill" json:"contiguousFill"`
	// Keep starts past the end of the grid in the index and force them to zero with explicit constraints
	ExplicitTimeBounds bool `mapstructure:"explicitTimeBounds" json:"explicitTimeBounds"`
}

type ModelInput struct {
	Classes           []Class    `mapstructure:"classes" json:"classes" validate:"required,min=1,dive"`
	Rooms             []Room     `mapstructure:"rooms" json:"rooms" validate:"required,min=1,dive"`
	TimeGrid          TimeGrid   `mapstructure:"timeGrid" json:"timeGrid"`
	Days              []string   `mapstructure:"days" json:"days,omitempty"` // Empty means a single implicit day
	ObjectiveStrategy []Strategy `mapstructure:"objectiveStrategy" json:"objectiveStrategy"`
	Pins              []Pin      `mapstructure:"pins" json:"pins,omitempty" validate:"dive"`
	Policies          Policies   `mapstructure:"policies" json:"policies"`
}

var validate = validator.New()

func InputFromJson(file string) (ModelInput, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return ModelInput{}, err
	}
	return InputFromBytes(bytes)
}

// InputFromBytes decodes and validates a JSON document. Every failure is a *ConfigError.
func InputFromBytes(bytes []byte) (ModelInput, error) {
	var inputJson map[string]any
	if err := json.Unmarshal(bytes, &inputJson); err != nil {
		return ModelInput{}, &ConfigError{Field: "input", Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}

	var input ModelInput
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true, // A single strategy may be given as a plain string
		ErrorUnused:      true,
		DecodeHook:       mapstructure.DecodeHookFuncType(integralNumbers),
		Result:           &input,
	})
	if err != nil {
		return ModelInput{}, err
	}
	if err := decoder.Decode(inputJson); err != nil {
		return ModelInput{}, &ConfigError{Field: "input", Reason: err.Error()}
	}

	if err := checkInput(input); err != nil {
		return ModelInput{}, err
	}
	return input, nil
}

// integralNumbers rejects fractional numbers headed for integer fields, mapstructure would truncate them
func integralNumbers(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Float64 {
		return data, nil
	}

	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if value := data.(float64); value != math.Trunc(value) {
			return nil, fmt.Errorf("expected an integer, got %v", value)
		}
	}
	return data, nil
}

// checkInput verifies the data is consistent on its own, independently of any objective or pin
func checkInput(input ModelInput) error {
	if err := validate.Struct(input); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fieldError := validationErrors[0]
			return &ConfigError{
				Field:  fieldError.Namespace(),
				Reason: fmt.Sprintf("failed on \"%v\" rule with value %v", fieldError.Tag(), fieldError.Value()),
			}
		}
		return &ConfigError{Field: "input", Reason: err.Error()}
	}

	if field, duplicated := firstDuplicate(lo.Map(input.Classes, func(class Class, _ int) string { return class.Id })); duplicated {
		return &ConfigError{Field: "classes", Reason: fmt.Sprintf("duplicate class \"%v\"", field)}
	}
	if field, duplicated := firstDuplicate(lo.Map(input.Rooms, func(room Room, _ int) string { return room.Id })); duplicated {
		return &ConfigError{Field: "rooms", Reason: fmt.Sprintf("duplicate room \"%v\"", field)}
	}
	if day, duplicated := firstDuplicate(input.Days); duplicated {
		return &ConfigError{Field: "days", Reason: fmt.Sprintf("duplicate day \"%v\"", day)}
	}

	gridSpan := float64(input.TimeGrid.End - input.TimeGrid.Start)
	for i, class := range input.Classes {
		field := fmt.Sprintf("classes[%d]", i)
		if class.DurationHours > gridSpan {
			return &ConfigError{Field: field + ".durationHours", Reason: fmt.Sprintf("class \"%v\" lasts %v hours but the grid spans %v", class.Id, class.DurationHours, gridSpan)}
		} else if class.AllowedDays == nil {
			continue
		} else if len(class.AllowedDays) == 0 {
			return &ConfigError{Field: field + ".allowedDays", Reason: fmt.Sprintf("class \"%v\" has no allowed days", class.Id)}
		} else if len(input.Days) == 0 {
			return &ConfigError{Field: field + ".allowedDays", Reason: "allowed days require a list of days"}
		}
		for _, day := range class.AllowedDays {
			if !slices.Contains(input.Days, day) {
				return &ConfigError{Field: field + ".allowedDays", Reason: fmt.Sprintf("unknown day \"%v\"", day)}
			}
		}
	}

	for i, strategy := range input.ObjectiveStrategy {
		if _, ok := strategies[strategy]; !ok {
			return &ConfigError{
				Field:  fmt.Sprintf("objectiveStrategy[%d]", i),
				Reason: fmt.Sprintf("unknown strategy \"%v\", valid strategies are %v", strategy, Strategies()),
			}
		}
	}
	return nil
}

// horizon resolves the day labels, a single implicit day is labeled ""
func horizon(input ModelInput) []string {
	if len(input.Days) == 0 {
		return []string{""}
	}
	return input.Days
}

// allowedDays returns, per class and per horizon day, whether the class must be scheduled that day
func allowedDays(input ModelInput) [][]bool {
	days := horizon(input)
	allowed := make([][]bool, len(input.Classes))
	for class := range input.Classes {
		allowed[class] = make([]bool, len(days))
		for day, label := range days {
			allowed[class][day] = input.Classes[class].AllowedDays == nil || slices.Contains(input.Classes[class].AllowedDays, label)
		}
	}
	return allowed
}

// span is the number of whole hourly slots a class occupies
func span(class Class) int64 {
	return int64(math.Ceil(class.DurationHours))
}

func firstDuplicate(values []string) (string, bool) {
	seen := make(map[string]bool, len(values))
	for _, value := range values {
		if seen[value] {
			return value, true
		}
		seen[value] = true
	}
	return "", false
}
