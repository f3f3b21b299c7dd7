package program

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// LPName is the identifier used for a variable in the LP rendering
func LPName(variable int) string {
	return "v" + strconv.Itoa(variable)
}

// ToLP renders the program in CPLEX LP format. Objective constants are dropped since the format does not carry them.
func (program *Program) ToLP() string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "\\ %d variables, %d constraints\n", len(program.variables), len(program.constraints))
	for _, variable := range program.variables {
		fmt.Fprintf(&builder, "\\ %v = %v\n", LPName(variable.Index), variable.Name)
	}

	//** Objective
	if program.objective.Direction == Maximize {
		builder.WriteString("Maximize\n")
	} else {
		builder.WriteString("Minimize\n")
	}
	builder.WriteString(" obj:")
	objective := program.objective.Expr.Linear.Compact()
	writeTerms(&builder, objective.Terms)
	if len(objective.Terms) == 0 && len(program.objective.Expr.Quadratic) == 0 {
		builder.WriteString(" 0 " + LPName(0))
	}
	if len(program.objective.Expr.Quadratic) > 0 {
		builder.WriteString(" + [")
		for i, term := range program.objective.Expr.Quadratic {
			coeff := 2 * term.Coeff // The LP format halves the bracketed products
			writeCoeff(&builder, coeff, i == 0)
			if term.Var1 == term.Var2 {
				fmt.Fprintf(&builder, " %v ^ 2", LPName(term.Var1))
			} else {
				fmt.Fprintf(&builder, " %v * %v", LPName(term.Var1), LPName(term.Var2))
			}
		}
		builder.WriteString(" ] / 2")
	}
	builder.WriteString("\n")

	//** Constraints
	builder.WriteString("Subject To\n")
	for i, constraint := range program.constraints {
		expr := constraint.Expr.Compact()
		fmt.Fprintf(&builder, " c%d:", i)
		writeTerms(&builder, expr.Terms)
		if len(expr.Terms) == 0 {
			builder.WriteString(" 0 " + LPName(0))
		}
		fmt.Fprintf(&builder, " %v %v\n", constraint.Sense, formatFloat(constraint.RHS-expr.Constant))
	}

	//** Bounds and domains
	integers := lo.Filter(program.variables, func(variable Var, _ int) bool { return variable.Kind == NonNegativeInteger })
	binaries := lo.Filter(program.variables, func(variable Var, _ int) bool { return variable.Kind == Binary })
	if len(integers) > 0 {
		builder.WriteString("Bounds\n")
		for _, variable := range integers {
			fmt.Fprintf(&builder, " 0 <= %v <= %d\n", LPName(variable.Index), variable.Upper)
		}
	}
	if len(binaries) > 0 {
		builder.WriteString("Binaries\n")
		writeNames(&builder, binaries)
	}
	if len(integers) > 0 {
		builder.WriteString("Generals\n")
		writeNames(&builder, integers)
	}
	builder.WriteString("End\n")

	return builder.String()
}

func writeTerms(builder *strings.Builder, terms []Term) {
	for i, term := range terms {
		writeCoeff(builder, term.Coeff, i == 0)
		builder.WriteString(" " + LPName(term.Var))
	}
}

func writeCoeff(builder *strings.Builder, coeff float64, first bool) {
	switch {
	case coeff < 0:
		builder.WriteString(" - ")
	case !first:
		builder.WriteString(" + ")
	default:
		builder.WriteString(" ")
	}
	builder.WriteString(formatFloat(math.Abs(coeff)))
}

func writeNames(builder *strings.Builder, variables []Var) {
	// Keep lines short, some readers limit the line length
	for _, chunk := range lo.Chunk(variables, 16) {
		names := lo.Map(chunk, func(variable Var, _ int) string { return LPName(variable.Index) })
		builder.WriteString(" " + strings.Join(names, " ") + "\n")
	}
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}
