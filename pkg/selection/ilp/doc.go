// Package ilp solves small 0/1 integer linear programs.
//
// A [Problem] is a minimization over binary variables with linear
// constraints. [Solve] runs a depth-first branch and bound whose LP
// relaxations are solved with the simplex implementation in
// gonum.org/v1/gonum/optimize/convex/lp.
//
// The solver targets the reduction models built by package selection: a few
// hundred variables with mostly covering-type constraints. It is exact; a
// node limit guards against pathological inputs.
//
//	p := ilp.NewProblem(3)
//	p.Objective = []float64{1, 1, 1}
//	p.Add("cover", []ilp.Term{{Var: 0, Coef: 1}, {Var: 1, Coef: 1}}, ilp.GreaterEq, 1)
//	sol, err := ilp.Solve(ctx, p, ilp.Options{})
package ilp
