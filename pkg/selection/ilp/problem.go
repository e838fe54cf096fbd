package ilp

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInfeasible is returned by [Solve] when no 0/1 assignment satisfies
	// every constraint.
	ErrInfeasible = errors.New("ilp: problem is infeasible")

	// ErrNodeLimit is returned by [Solve] when the branch-and-bound search
	// visited Options.NodeLimit nodes without proving optimality.
	ErrNodeLimit = errors.New("ilp: node limit reached")

	// ErrInvalidProblem is returned by [Problem.Validate] for malformed models.
	ErrInvalidProblem = errors.New("ilp: invalid problem")
)

// Sense is the relation of a constraint's left-hand side to its right-hand side.
type Sense int

const (
	LessEq    Sense = iota // Σ a·x ≤ rhs
	GreaterEq              // Σ a·x ≥ rhs
	Equal                  // Σ a·x = rhs
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "="
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// Term is one coefficient of a linear expression.
type Term struct {
	Var  int
	Coef float64
}

// Constraint is a linear constraint over binary variables.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Problem is a minimization over binary variables x ∈ {0,1}^NumVars:
//
//	minimize   Σ Objective[i]·x[i]
//	subject to every Constraint
type Problem struct {
	NumVars     int
	Objective   []float64
	Constraints []Constraint
}

// NewProblem creates a problem with n binary variables and a zero objective.
func NewProblem(n int) *Problem {
	return &Problem{NumVars: n, Objective: make([]float64, n)}
}

// Add appends a constraint.
func (p *Problem) Add(name string, terms []Term, sense Sense, rhs float64) {
	p.Constraints = append(p.Constraints, Constraint{Name: name, Terms: terms, Sense: sense, RHS: rhs})
}

// Validate checks dimensions, variable indices and numeric values.
func (p *Problem) Validate() error {
	if p.NumVars < 0 || len(p.Objective) != p.NumVars {
		return fmt.Errorf("%w: objective has %d coefficients for %d variables", ErrInvalidProblem, len(p.Objective), p.NumVars)
	}
	for i, c := range p.Objective {
		if !finite(c) {
			return fmt.Errorf("%w: objective coefficient %d is %v", ErrInvalidProblem, i, c)
		}
	}
	for _, c := range p.Constraints {
		if !finite(c.RHS) {
			return fmt.Errorf("%w: constraint %q has rhs %v", ErrInvalidProblem, c.Name, c.RHS)
		}
		if c.Sense < LessEq || c.Sense > Equal {
			return fmt.Errorf("%w: constraint %q has %v", ErrInvalidProblem, c.Name, c.Sense)
		}
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= p.NumVars {
				return fmt.Errorf("%w: constraint %q references variable %d", ErrInvalidProblem, c.Name, t.Var)
			}
			if !finite(t.Coef) {
				return fmt.Errorf("%w: constraint %q has coefficient %v", ErrInvalidProblem, c.Name, t.Coef)
			}
		}
	}
	return nil
}

// Value returns the objective value of x.
func (p *Problem) Value(x []int) float64 {
	var v float64
	for i, c := range p.Objective {
		v += c * float64(x[i])
	}
	return v
}

// Feasible reports whether the 0/1 assignment x satisfies every constraint.
func (p *Problem) Feasible(x []int) bool {
	return p.Violated(x) == nil
}

// Violated returns the first constraint that x violates, or nil.
func (p *Problem) Violated(x []int) *Constraint {
	for i := range p.Constraints {
		c := &p.Constraints[i]
		var lhs float64
		for _, t := range c.Terms {
			lhs += t.Coef * float64(x[t.Var])
		}
		if !c.holds(lhs) {
			return c
		}
	}
	return nil
}

func (c *Constraint) holds(lhs float64) bool {
	switch c.Sense {
	case LessEq:
		return lhs <= c.RHS+feasTol
	case GreaterEq:
		return lhs >= c.RHS-feasTol
	default:
		return math.Abs(lhs-c.RHS) <= feasTol
	}
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
