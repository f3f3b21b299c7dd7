package program

import "slices"

type Term struct {
	Var   int
	Coeff float64
}

// LinearExpr is a sum of weighted variables plus a constant
type LinearExpr struct {
	Terms    []Term
	Constant float64
}

func NewLinearExpr() LinearExpr {
	return LinearExpr{Terms: make([]Term, 0)}
}

// Sum returns the expression x_1 + x_2 + ... + x_n
func Sum(vars ...int) LinearExpr {
	expr := LinearExpr{Terms: make([]Term, 0, len(vars))}
	for _, variable := range vars {
		expr.Terms = append(expr.Terms, Term{Var: variable, Coeff: 1})
	}
	return expr
}

func (expr LinearExpr) AddTerm(variable int, coeff float64) LinearExpr {
	expr.Terms = append(slices.Clip(expr.Terms), Term{Var: variable, Coeff: coeff})
	return expr
}

func (expr LinearExpr) AddConstant(constant float64) LinearExpr {
	expr.Constant += constant
	return expr
}

// Plus returns expr + other scaled by factor
func (expr LinearExpr) Plus(other LinearExpr, factor float64) LinearExpr {
	terms := make([]Term, 0, len(expr.Terms)+len(other.Terms))
	terms = append(terms, expr.Terms...)
	for _, term := range other.Terms {
		terms = append(terms, Term{Var: term.Var, Coeff: term.Coeff * factor})
	}
	return LinearExpr{Terms: terms, Constant: expr.Constant + other.Constant*factor}
}

// Compact merges repeated variables and drops zero coefficients. Terms are ordered by variable.
func (expr LinearExpr) Compact() LinearExpr {
	coeffs := make(map[int]float64, len(expr.Terms))
	for _, term := range expr.Terms {
		coeffs[term.Var] += term.Coeff
	}

	terms := make([]Term, 0, len(coeffs))
	for variable, coeff := range coeffs {
		if coeff != 0 {
			terms = append(terms, Term{Var: variable, Coeff: coeff})
		}
	}
	slices.SortFunc(terms, func(a, b Term) int { return a.Var - b.Var })

	return LinearExpr{Terms: terms, Constant: expr.Constant}
}

func (expr LinearExpr) Evaluate(values []float64) float64 {
	total := expr.Constant
	for _, term := range expr.Terms {
		total += term.Coeff * values[term.Var]
	}
	return total
}

type QuadTerm struct {
	Var1, Var2 int
	Coeff      float64
}

// Expr is an objective expression: a linear part plus products of two variables
type Expr struct {
	Linear    LinearExpr
	Quadratic []QuadTerm
}

func (expr Expr) IsLinear() bool {
	return len(expr.Quadratic) == 0
}

func (expr Expr) Evaluate(values []float64) float64 {
	total := expr.Linear.Evaluate(values)
	for _, term := range expr.Quadratic {
		total += term.Coeff * values[term.Var1] * values[term.Var2]
	}
	return total
}
