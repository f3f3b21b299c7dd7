package solver

import (
	"fmt"
	"math"
	"slices"

	gophersat "github.com/crillab/gophersat/solver"
	"github.com/limaJavier/roomtabling/pkg/program"
	"github.com/samber/lo"
)

// Integer variables are order-encoded, one literal per unit, so their upper bound must stay small
const maxIntegerUpper = 1 << 12

// pbTerm is a weighted literal. Literals are 1-based and negative when negated.
type pbTerm struct {
	lit    int
	weight int64
}

// pbConstraint reads: sum(weight * lit) >= atLeast, with positive weights
type pbConstraint struct {
	terms   []pbTerm
	atLeast int64
}

type normalization int

const (
	regular normalization = iota
	tautology
	contradiction
)

// pbEncoding is the pseudo-boolean counterpart of a program
type pbEncoding struct {
	nbVars      int
	literals    map[int][]int // Program variable -> literals (one for binaries, one per unit for integers)
	constraints []pbConstraint
	cost        []pbTerm // Minimization cost with positive weights
	infeasible  bool     // Some constraint cannot be satisfied whatever the assignment
}

func encodePseudoBoolean(prog *program.Program) (*pbEncoding, error) {
	encoding := &pbEncoding{
		literals:    make(map[int][]int),
		constraints: make([]pbConstraint, 0, prog.NumConstraints()),
	}

	//** Variables
	for _, variable := range prog.Variables() {
		switch variable.Kind {
		case program.Binary:
			encoding.literals[variable.Index] = []int{encoding.newLiteral()}
		case program.NonNegativeInteger:
			if variable.Upper < 0 || variable.Upper > maxIntegerUpper {
				return nil, fmt.Errorf("%w: upper bound %d of \"%v\" is out of range", ErrUnsupported, variable.Upper, variable.Name)
			}
			bits := make([]int, variable.Upper)
			for k := range bits {
				bits[k] = encoding.newLiteral() // bits[k] holds iff value > k
			}
			for k := 1; k < len(bits); k++ {
				encoding.add([]pbTerm{{bits[k-1], 1}, {-bits[k], 1}}, 1)
			}
			encoding.literals[variable.Index] = bits
		default:
			return nil, fmt.Errorf("%w: variable kind %v", ErrUnsupported, variable.Kind)
		}
	}

	//** Constraints
	for _, constraint := range prog.Constraints() {
		expr := constraint.Expr.Compact()
		rhs := constraint.RHS - expr.Constant
		factor := scaleFactor(append(lo.Map(expr.Terms, func(term program.Term, _ int) float64 { return term.Coeff }), rhs))
		terms := encoding.expand(expr.Terms, factor)
		bound := int64(math.Round(rhs * factor))

		switch constraint.Sense {
		case program.GreaterEqual:
			encoding.add(terms, bound)
		case program.LessEqual:
			encoding.add(negate(terms), -bound)
		case program.Equal:
			encoding.add(terms, bound)
			encoding.add(negate(terms), -bound)
		}
	}

	//** Objective
	if err := encoding.encodeObjective(prog); err != nil {
		return nil, err
	}

	return encoding, nil
}

func (encoding *pbEncoding) newLiteral() int {
	encoding.nbVars++
	return encoding.nbVars
}

func (encoding *pbEncoding) expand(terms []program.Term, factor float64) []pbTerm {
	expanded := make([]pbTerm, 0, len(terms))
	for _, term := range terms {
		weight := int64(math.Round(term.Coeff * factor))
		for _, lit := range encoding.literals[term.Var] {
			expanded = append(expanded, pbTerm{lit, weight})
		}
	}
	return expanded
}

func (encoding *pbEncoding) add(terms []pbTerm, atLeast int64) {
	constraint, kind := normalize(terms, atLeast)
	switch kind {
	case contradiction:
		encoding.infeasible = true
	case regular:
		encoding.constraints = append(encoding.constraints, constraint)
	}
}

func (encoding *pbEncoding) encodeObjective(prog *program.Program) error {
	objective := prog.Objective()
	sign := 1.0
	if objective.Direction == program.Maximize {
		sign = -1
	}

	coeffs := make(map[int]float64) // Positive literal -> real coefficient
	for _, term := range objective.Expr.Linear.Compact().Terms {
		for _, lit := range encoding.literals[term.Var] {
			coeffs[lit] += sign * term.Coeff
		}
	}

	for _, term := range objective.Expr.Quadratic {
		variable1, variable2 := prog.Variable(term.Var1), prog.Variable(term.Var2)

		switch {
		case term.Var1 == term.Var2 && variable1.Kind == program.Binary: // x^2 = x
			coeffs[encoding.literals[term.Var1][0]] += sign * term.Coeff
		case term.Var1 == term.Var2: // u^2 = sum((2k+1) * [u > k])
			for k, bit := range encoding.literals[term.Var1] {
				coeffs[bit] += sign * term.Coeff * float64(2*k+1)
			}
		case variable1.Kind == program.Binary && variable2.Kind == program.Binary: // z <-> x and y
			x, y := encoding.literals[term.Var1][0], encoding.literals[term.Var2][0]
			z := encoding.newLiteral()
			encoding.add([]pbTerm{{-z, 1}, {x, 1}}, 1)
			encoding.add([]pbTerm{{-z, 1}, {y, 1}}, 1)
			encoding.add([]pbTerm{{z, 1}, {-x, 1}, {-y, 1}}, 1)
			coeffs[z] += sign * term.Coeff
		default:
			return fmt.Errorf("%w: product of \"%v\" and \"%v\"", ErrUnsupported, variable1.Name, variable2.Name)
		}
	}

	lits := lo.Keys(coeffs)
	slices.Sort(lits)
	factor := scaleFactor(lo.Map(lits, func(lit int, _ int) float64 { return coeffs[lit] }))

	encoding.cost = make([]pbTerm, 0, len(lits))
	for _, lit := range lits {
		weight := int64(math.Round(coeffs[lit] * factor))
		switch {
		case weight > 0:
			encoding.cost = append(encoding.cost, pbTerm{lit, weight})
		case weight < 0: // w*x = w + |w|*(not x), the constant does not affect the optimum
			encoding.cost = append(encoding.cost, pbTerm{-lit, -weight})
		}
	}
	return nil
}

// cheapestModel sets every cost literal to false, which is optimal when no constraint binds the literals
func (encoding *pbEncoding) cheapestModel() []bool {
	model := make([]bool, encoding.nbVars)
	for _, term := range encoding.cost {
		if term.lit < 0 {
			model[-term.lit-1] = true
		}
	}
	return model
}

// gophersatProblem renders the encoding as a gophersat problem minimizing the encoded cost
func (encoding *pbEncoding) gophersatProblem() *gophersat.Problem {
	constrs := make([]gophersat.PBConstr, 0, len(encoding.constraints)+1)
	for _, constraint := range encoding.constraints {
		lits, weights := pbLiterals(constraint.terms)
		constrs = append(constrs, gophersat.GtEq(lits, weights, int(constraint.atLeast)))
	}

	// A requirement of zero over the cost literals keeps them within the problem's variables
	costLits, costWeights := pbLiterals(encoding.cost)
	constrs = append(constrs, gophersat.GtEq(costLits, slices.Clone(costWeights), 0))

	problem := gophersat.ParsePBConstrs(constrs)
	if len(costLits) > 0 {
		problem.SetCostFunc(lo.Map(costLits, func(lit int, _ int) gophersat.Lit { return gophersat.IntToLit(int32(lit)) }), costWeights)
	}
	return problem
}

func pbLiterals(terms []pbTerm) (lits []int, weights []int) {
	lits, weights = make([]int, len(terms)), make([]int, len(terms))
	for i, term := range terms {
		lits[i], weights[i] = term.lit, int(term.weight)
	}
	return lits, weights
}

// values maps a model back to program variable values
func (encoding *pbEncoding) values(numVariables int, model []bool) []float64 {
	values := make([]float64, numVariables)
	for variable, lits := range encoding.literals {
		count := lo.CountBy(lits, func(lit int) bool { return literalValue(model, lit) })
		values[variable] = float64(count)
	}
	return values
}

// normalize rewrites sum(weight * lit) >= atLeast with arbitrary signed weights into an equivalent constraint with
// positive weights over distinct variables
func normalize(terms []pbTerm, atLeast int64) (pbConstraint, normalization) {
	coeffs := make(map[int]int64) // Positive variable -> coefficient
	for _, term := range terms {
		if term.lit > 0 {
			coeffs[term.lit] += term.weight
		} else { // w*(not x) = w - w*x
			atLeast -= term.weight
			coeffs[-term.lit] -= term.weight
		}
	}

	variables := lo.Keys(coeffs)
	slices.Sort(variables)

	constraint := pbConstraint{terms: make([]pbTerm, 0, len(variables))}
	var total int64
	for _, variable := range variables {
		coeff := coeffs[variable]
		switch {
		case coeff > 0:
			constraint.terms = append(constraint.terms, pbTerm{variable, coeff})
			total += coeff
		case coeff < 0: // c*x = c + |c|*(not x)
			atLeast -= coeff
			constraint.terms = append(constraint.terms, pbTerm{-variable, -coeff})
			total -= coeff
		}
	}
	constraint.atLeast = atLeast

	if atLeast <= 0 {
		return constraint, tautology
	} else if total < atLeast {
		return constraint, contradiction
	}
	return constraint, regular
}

func negate(terms []pbTerm) []pbTerm {
	return lo.Map(terms, func(term pbTerm, _ int) pbTerm { return pbTerm{term.lit, -term.weight} })
}

func literalValue(model []bool, lit int) bool {
	variable := lit
	if variable < 0 {
		variable = -variable
	}
	value := variable-1 < len(model) && model[variable-1]
	if lit < 0 {
		return !value
	}
	return value
}

// scaleFactor returns the smallest power of ten (up to 10^6) turning every value into an integer
func scaleFactor(values []float64) float64 {
	factor := 1.0
	for range 7 {
		if lo.EveryBy(values, func(value float64) bool {
			scaled := value * factor
			return math.Abs(scaled-math.Round(scaled)) < 1e-6
		}) {
			return factor
		}
		factor *= 10
	}
	return factor / 10
}
