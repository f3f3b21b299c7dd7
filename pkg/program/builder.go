package program

import (
	"errors"
	"fmt"
)

var (
	ErrObjectiveAlreadySet = errors.New("objective already set")
	ErrMissingObjective    = errors.New("program has no objective")
)

// Builder accumulates variables, constraints and an objective, and produces an immutable Program
type Builder struct {
	variables   []Var
	constraints []Constraint
	objective   *Objective
	built       bool
}

func NewBuilder() *Builder {
	return &Builder{
		variables:   make([]Var, 0),
		constraints: make([]Constraint, 0),
	}
}

func (builder *Builder) AddBinary(name string) int {
	return builder.addVar(name, Binary, 1)
}

func (builder *Builder) AddInteger(name string, upper int64) int {
	return builder.addVar(name, NonNegativeInteger, upper)
}

func (builder *Builder) addVar(name string, kind VarKind, upper int64) int {
	index := len(builder.variables)
	builder.variables = append(builder.variables, Var{
		Index: index,
		Name:  name,
		Kind:  kind,
		Upper: upper,
	})
	return index
}

func (builder *Builder) AddConstraints(constraints ...Constraint) {
	builder.constraints = append(builder.constraints, constraints...)
}

func (builder *Builder) SetObjective(objective Objective) error {
	if builder.objective != nil {
		return fmt.Errorf("%w: \"%v\" conflicts with \"%v\"", ErrObjectiveAlreadySet, objective.Name, builder.objective.Name)
	}
	builder.objective = &objective
	return nil
}

// Build validates every variable reference and freezes the program. The builder cannot be reused afterwards.
func (builder *Builder) Build() (*Program, error) {
	if builder.built {
		return nil, errors.New("builder already consumed")
	} else if builder.objective == nil {
		return nil, ErrMissingObjective
	}

	for _, constraint := range builder.constraints {
		if err := builder.checkLinear(constraint.Expr); err != nil {
			return nil, fmt.Errorf("constraint \"%v\": %w", constraint.Name, err)
		}
	}

	if err := builder.checkLinear(builder.objective.Expr.Linear); err != nil {
		return nil, fmt.Errorf("objective \"%v\": %w", builder.objective.Name, err)
	}
	for _, term := range builder.objective.Expr.Quadratic {
		if !builder.exists(term.Var1) || !builder.exists(term.Var2) {
			return nil, fmt.Errorf("objective \"%v\": unknown variable in product %d*%d", builder.objective.Name, term.Var1, term.Var2)
		}
	}

	builder.built = true
	return &Program{
		variables:   builder.variables,
		constraints: builder.constraints,
		objective:   *builder.objective,
	}, nil
}

func (builder *Builder) checkLinear(expr LinearExpr) error {
	for _, term := range expr.Terms {
		if !builder.exists(term.Var) {
			return fmt.Errorf("unknown variable %d", term.Var)
		}
	}
	return nil
}

func (builder *Builder) exists(variable int) bool {
	return variable >= 0 && variable < len(builder.variables)
}
