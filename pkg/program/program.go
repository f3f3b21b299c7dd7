package program

import (
	"fmt"
	"math"
	"slices"
)

type VarKind int

const (
	Binary VarKind = iota
	NonNegativeInteger
)

func (kind VarKind) String() string {
	switch kind {
	case Binary:
		return "binary"
	case NonNegativeInteger:
		return "non-negative integer"
	}
	return fmt.Sprintf("VarKind(%d)", int(kind))
}

type Var struct {
	Index int
	Name  string
	Kind  VarKind
	Upper int64 // Inclusive upper bound, always 1 for binary variables
}

type Sense int

const (
	LessEqual Sense = iota
	Equal
	GreaterEqual
)

func (sense Sense) String() string {
	switch sense {
	case LessEqual:
		return "<="
	case Equal:
		return "="
	case GreaterEqual:
		return ">="
	}
	return fmt.Sprintf("Sense(%d)", int(sense))
}

type Direction int

const (
	Minimize Direction = iota
	Maximize
)

func (direction Direction) String() string {
	if direction == Maximize {
		return "maximize"
	}
	return "minimize"
}

type Constraint struct {
	Name   string
	Family string
	Expr   LinearExpr
	Sense  Sense
	RHS    float64
}

// Satisfied reports whether values (indexed by variable) satisfy the constraint within tolerance
func (constraint Constraint) Satisfied(values []float64, tolerance float64) bool {
	lhs := constraint.Expr.Evaluate(values)
	switch constraint.Sense {
	case LessEqual:
		return lhs <= constraint.RHS+tolerance
	case GreaterEqual:
		return lhs >= constraint.RHS-tolerance
	default:
		return math.Abs(lhs-constraint.RHS) <= tolerance
	}
}

type Objective struct {
	Name      string
	Direction Direction
	Expr      Expr
}

// Program is an immutable mathematical program: variables, named linear constraints and a single objective.
// It is built once through a Builder and never modified afterwards.
type Program struct {
	variables   []Var
	constraints []Constraint
	objective   Objective
}

func (program *Program) Variables() []Var {
	return slices.Clone(program.variables)
}

func (program *Program) Variable(index int) Var {
	return program.variables[index]
}

func (program *Program) NumVariables() int {
	return len(program.variables)
}

func (program *Program) Constraints() []Constraint {
	return slices.Clone(program.constraints)
}

func (program *Program) NumConstraints() int {
	return len(program.constraints)
}

func (program *Program) Objective() Objective {
	return program.objective
}

// Violations returns the names of the constraints not satisfied by values, together with domain violations
func (program *Program) Violations(values []float64, tolerance float64) []string {
	violations := make([]string, 0)
	if len(values) != len(program.variables) {
		return append(violations, fmt.Sprintf("expected %d values, got %d", len(program.variables), len(values)))
	}

	for _, variable := range program.variables {
		value := values[variable.Index]
		if value < -tolerance || value > float64(variable.Upper)+tolerance || math.Abs(value-math.Round(value)) > tolerance {
			violations = append(violations, fmt.Sprintf("domain of %v", variable.Name))
		}
	}

	for _, constraint := range program.constraints {
		if !constraint.Satisfied(values, tolerance) {
			violations = append(violations, constraint.Name)
		}
	}
	return violations
}

// Families returns the number of constraints per family
func (program *Program) Families() map[string]int {
	families := make(map[string]int)
	for _, constraint := range program.constraints {
		families[constraint.Family]++
	}
	return families
}
