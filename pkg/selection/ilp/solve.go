package ilp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	// DefaultNodeLimit bounds the branch-and-bound tree when Options.NodeLimit
	// is zero.
	DefaultNodeLimit = 200_000

	feasTol = 1e-6
	intTol  = 1e-6
	lpTol   = 1e-10
)

// Options configures [Solve].
type Options struct {
	// NodeLimit caps the number of search nodes. Zero means DefaultNodeLimit.
	NodeLimit int

	// Incumbent is an optional known feasible 0/1 point that seeds the
	// search. It is ignored when it is not feasible.
	Incumbent []int
}

// Solution is the result of a successful solve.
type Solution struct {
	X         []int
	Objective float64
	Nodes     int  // search nodes visited
	Optimal   bool // false only together with ErrNodeLimit
}

// Solve minimizes p over binary variables with depth-first branch and bound.
//
// Each node fixes a subset of variables and solves the LP relaxation of the
// rest with the simplex method. Nodes whose relaxation is infeasible, or whose
// bound cannot beat the incumbent, are pruned. A relaxation that fails
// numerically gives no bound and the node is branched on anyway, so the
// result stays exact at the cost of a larger tree.
//
// When the node limit is reached, Solve returns the best point found so far
// with Optimal=false together with ErrNodeLimit.
func Solve(ctx context.Context, p *Problem, opts Options) (Solution, error) {
	if err := p.Validate(); err != nil {
		return Solution{}, err
	}
	limit := opts.NodeLimit
	if limit <= 0 {
		limit = DefaultNodeLimit
	}

	s := &search{p: p, best: math.Inf(1), integral: integralObjective(p.Objective)}
	if x := opts.Incumbent; len(x) == p.NumVars && binary(x) && p.Feasible(x) {
		s.offer(x)
	}

	stack := [][]int8{freeAll(p.NumVars)}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return Solution{}, err
		}
		if s.nodes >= limit {
			if s.bestX == nil {
				return Solution{Nodes: s.nodes}, ErrNodeLimit
			}
			return s.solution(false), ErrNodeLimit
		}
		fix := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		s.nodes++
		stack = append(stack, s.visit(fix)...)
	}

	if s.bestX == nil {
		return Solution{Nodes: s.nodes}, ErrInfeasible
	}
	return s.solution(true), nil
}

type search struct {
	p        *Problem
	best     float64
	bestX    []int
	nodes    int
	integral bool
}

func (s *search) solution(optimal bool) Solution {
	return Solution{X: append([]int(nil), s.bestX...), Objective: s.best, Nodes: s.nodes, Optimal: optimal}
}

func (s *search) offer(x []int) {
	if v := s.p.Value(x); v < s.best {
		s.best = v
		s.bestX = append(s.bestX[:0], x...)
	}
}

// prunable reports whether a subtree with lower bound lb cannot improve the
// incumbent.
func (s *search) prunable(lb float64) bool {
	if s.bestX == nil {
		return false
	}
	if s.integral {
		lb = math.Ceil(lb - intTol)
	}
	return lb >= s.best-intTol
}

// visit evaluates one search node and returns its children, pushed in
// reverse order of exploration.
func (s *search) visit(fix []int8) [][]int8 {
	if !propagate(s.p, fix) {
		return nil
	}
	free := freeVars(fix)
	if len(free) == 0 {
		x := assignment(fix)
		if s.p.Feasible(x) {
			s.offer(x)
		}
		return nil
	}

	fixedObj := 0.0
	for i, v := range fix {
		if v == 1 {
			fixedObj += s.p.Objective[i]
		}
	}

	relaxed, xs, err := relax(s.p, fix, free)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return nil
	case err != nil:
		// No usable bound; branch on the first free variable.
		return branch(fix, free[0], 1)
	}
	lb := fixedObj + relaxed
	if s.prunable(lb) {
		return nil
	}

	pick, frac := -1, 0.0
	for k, i := range free {
		f := math.Abs(xs[k] - math.Round(xs[k]))
		if f > intTol && f > frac {
			pick, frac = i, f
		}
	}
	if pick < 0 {
		x := assignment(fix)
		for k, i := range free {
			x[i] = int(math.Round(xs[k]))
		}
		if s.p.Feasible(x) {
			s.offer(x)
			return nil
		}
		// Rounding drifted outside the feasible region; split explicitly.
		return branch(fix, free[0], 1)
	}

	// Rounding every fractional value up is feasible for covering-style
	// rows and often closes the gap without further branching.
	x := assignment(fix)
	for k, i := range free {
		x[i] = int(math.Ceil(xs[k] - intTol))
	}
	if s.p.Feasible(x) {
		s.offer(x)
		if s.prunable(lb) {
			return nil
		}
	}

	preferred := int8(0)
	for k, i := range free {
		if i == pick && xs[k] >= 0.5 {
			preferred = 1
		}
	}
	return branch(fix, pick, preferred)
}

// branch returns the two children fixing variable i. The child fixing i to
// first is explored first.
func branch(fix []int8, i int, first int8) [][]int8 {
	a := append([]int8(nil), fix...)
	b := append([]int8(nil), fix...)
	a[i] = 1 - first
	b[i] = first
	return [][]int8{a, b}
}

// relax solves the LP relaxation over the free variables with 0 <= x <= 1.
//
// Every constraint is turned into rows of G·x <= h (equalities become two
// rows) and the standard form A = [G I], b = h is handed to lp.Simplex, with
// one slack per row. The identity block keeps A at full row rank.
//
// When h has negative entries the variables are complemented (y = 1 - x),
// which gives -G·y <= h - G·1. If either form has h >= 0 the slacks are a
// feasible starting basis and the simplex skips its first phase.
func relax(p *Problem, fix []int8, free []int) (float64, []float64, error) {
	col := make(map[int]int, len(free))
	for k, i := range free {
		col[i] = k
	}

	var rows [][]float64
	var rhs []float64
	addRow := func(coef []float64, h float64, sign float64) {
		r := make([]float64, len(free))
		for k := range coef {
			r[k] = sign * coef[k]
		}
		rows = append(rows, r)
		rhs = append(rhs, sign*h)
	}

	for _, c := range p.Constraints {
		coef := make([]float64, len(free))
		h := c.RHS
		touched := false
		for _, t := range c.Terms {
			if k, ok := col[t.Var]; ok {
				coef[k] += t.Coef
				touched = true
			} else if fix[t.Var] == 1 {
				h -= t.Coef
			}
		}
		if !touched {
			continue // fully fixed, already checked by propagate
		}
		switch c.Sense {
		case LessEq:
			addRow(coef, h, 1)
		case GreaterEq:
			addRow(coef, h, -1)
		case Equal:
			addRow(coef, h, 1)
			addRow(coef, h, -1)
		}
	}

	complemented := false
	if !nonNegative(rhs) {
		alt := make([]float64, len(rhs))
		for r, row := range rows {
			alt[r] = rhs[r]
			for _, v := range row {
				alt[r] -= v
			}
		}
		if nonNegative(alt) {
			complemented = true
			rhs = alt
			for _, row := range rows {
				for k := range row {
					row[k] = -row[k]
				}
			}
		}
	}
	// Upper bounds are symmetric under complementing.
	for k := range free {
		coef := make([]float64, len(free))
		coef[k] = 1
		addRow(coef, 1, 1)
	}

	m, n := len(rows), len(free)
	A := mat.NewDense(m, n+m, nil)
	for r, row := range rows {
		for k, v := range row {
			A.Set(r, k, v)
		}
		A.Set(r, n+r, 1)
	}
	c := make([]float64, n+m)
	var offset float64
	for k, i := range free {
		c[k] = p.Objective[i]
		if complemented {
			offset += c[k]
			c[k] = -c[k]
		}
	}
	var basis []int
	if nonNegative(rhs) {
		basis = make([]int, m)
		for r := range basis {
			basis[r] = n + r
		}
	}
	opt, xs, err := simplex(c, A, rhs, n, basis)
	if err != nil || !complemented {
		return opt, xs, err
	}
	for k := range xs {
		xs[k] = 1 - xs[k]
	}
	return offset + opt, xs, nil
}

// simplex solves min c·x subject to A·x = b, x >= 0 and returns the first n
// components. A nil basis makes lp.Simplex find a feasible one first.
func simplex(c []float64, A mat.Matrix, b []float64, n int, basis []int) (opt float64, x []float64, err error) {
	// lp.Simplex panics on malformed input; treat that like a numeric failure.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ilp: simplex: %v", r)
		}
	}()
	opt, sol, err := lp.Simplex(c, A, b, lpTol, basis)
	if err != nil {
		return 0, nil, err
	}
	return opt, sol[:n], nil
}

func nonNegative(v []float64) bool {
	for _, x := range v {
		if x < 0 {
			return false
		}
	}
	return true
}

// propagate checks every constraint against the interval of values its
// left-hand side can still take under the current fixing, and fixes free
// variables whose other value would leave that interval infeasible. It
// repeats until nothing changes and reports false on a conflict.
func propagate(p *Problem, fix []int8) bool {
	for changed := true; changed; {
		changed = false
		for _, c := range p.Constraints {
			lo, hi := activity(c, fix)
			lessEq := c.Sense == LessEq || c.Sense == Equal
			greaterEq := c.Sense == GreaterEq || c.Sense == Equal
			if lessEq && lo > c.RHS+feasTol || greaterEq && hi < c.RHS-feasTol {
				return false
			}
			for _, t := range c.Terms {
				if fix[t.Var] >= 0 || t.Coef == 0 {
					continue
				}
				// Moving off the bound that minimizes (maximizes) the row
				// shifts lo (hi) by |coef|.
				w := math.Abs(t.Coef)
				switch {
				case lessEq && lo+w > c.RHS+feasTol:
					fix[t.Var] = lowValue(t.Coef)
				case greaterEq && hi-w < c.RHS-feasTol:
					fix[t.Var] = 1 - lowValue(t.Coef)
				default:
					continue
				}
				changed = true
				lo, hi = activity(c, fix)
				if lessEq && lo > c.RHS+feasTol || greaterEq && hi < c.RHS-feasTol {
					return false
				}
			}
		}
	}
	return true
}

// lowValue is the value of a variable with coefficient coef that minimizes
// its contribution.
func lowValue(coef float64) int8 {
	if coef > 0 {
		return 0
	}
	return 1
}

// activity returns the range of the left-hand side of c under fix.
func activity(c Constraint, fix []int8) (lo, hi float64) {
	for _, t := range c.Terms {
		switch fix[t.Var] {
		case 1:
			lo += t.Coef
			hi += t.Coef
		case -1:
			if t.Coef > 0 {
				hi += t.Coef
			} else {
				lo += t.Coef
			}
		}
	}
	return lo, hi
}

func freeAll(n int) []int8 {
	fix := make([]int8, n)
	for i := range fix {
		fix[i] = -1
	}
	return fix
}

func freeVars(fix []int8) []int {
	var free []int
	for i, v := range fix {
		if v < 0 {
			free = append(free, i)
		}
	}
	return free
}

func assignment(fix []int8) []int {
	x := make([]int, len(fix))
	for i, v := range fix {
		if v == 1 {
			x[i] = 1
		}
	}
	return x
}

func binary(x []int) bool {
	for _, v := range x {
		if v != 0 && v != 1 {
			return false
		}
	}
	return true
}

func integralObjective(obj []float64) bool {
	for _, c := range obj {
		if c != math.Trunc(c) {
			return false
		}
	}
	return true
}
