package ilp

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func ones(n int) []float64 {
	c := make([]float64, n)
	for i := range c {
		c[i] = 1
	}
	return c
}

func terms(vars ...int) []Term {
	ts := make([]Term, len(vars))
	for i, v := range vars {
		ts[i] = Term{Var: v, Coef: 1}
	}
	return ts
}

func TestSolve(t *testing.T) {
	tests := []struct {
		name string
		prob func() *Problem
		want float64
	}{
		{
			name: "empty",
			prob: func() *Problem { return NewProblem(0) },
			want: 0,
		},
		{
			name: "unconstrained minimum is zero",
			prob: func() *Problem {
				p := NewProblem(4)
				p.Objective = ones(4)
				return p
			},
			want: 0,
		},
		{
			name: "set cover",
			prob: func() *Problem {
				// Elements {a,b,c,d}; sets 0={a,b} 1={b,c} 2={c,d} 3={a,d} 4={a,b,c}.
				p := NewProblem(5)
				p.Objective = ones(5)
				p.Add("a", terms(0, 3, 4), GreaterEq, 1)
				p.Add("b", terms(0, 1, 4), GreaterEq, 1)
				p.Add("c", terms(1, 2, 4), GreaterEq, 1)
				p.Add("d", terms(2, 3), GreaterEq, 1)
				return p
			},
			want: 2,
		},
		{
			name: "odd cycle vertex cover needs integrality",
			prob: func() *Problem {
				// The LP optimum is 2.5 with every x=0.5.
				p := NewProblem(5)
				p.Objective = ones(5)
				for i := 0; i < 5; i++ {
					p.Add("edge", terms(i, (i+1)%5), GreaterEq, 1)
				}
				return p
			},
			want: 3,
		},
		{
			name: "implications",
			prob: func() *Problem {
				p := NewProblem(3)
				p.Objective = ones(3)
				p.Add("root", terms(0), GreaterEq, 1)
				p.Add("need two", terms(1, 2), GreaterEq, 2)
				p.Add("1 needs 0", []Term{{1, 1}, {0, -1}}, LessEq, 0)
				return p
			},
			want: 3,
		},
		{
			name: "equality",
			prob: func() *Problem {
				p := NewProblem(4)
				p.Objective = []float64{3, 1, 2, 1}
				p.Add("pick two", terms(0, 1, 2, 3), Equal, 2)
				return p
			},
			want: 2,
		},
		{
			name: "weighted",
			prob: func() *Problem {
				p := NewProblem(3)
				p.Objective = []float64{5, 2, 2}
				p.Add("a", terms(0, 1), GreaterEq, 1)
				p.Add("b", terms(0, 2), GreaterEq, 1)
				return p
			},
			want: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.prob()
			sol, err := Solve(context.Background(), p, Options{})
			if err != nil {
				t.Fatalf("Solve: %v", err)
			}
			if !sol.Optimal {
				t.Error("solution should be optimal")
			}
			if sol.Objective != tt.want {
				t.Errorf("objective = %v, want %v", sol.Objective, tt.want)
			}
			if c := p.Violated(sol.X); c != nil {
				t.Errorf("solution %v violates %q", sol.X, c.Name)
			}
			if got := p.Value(sol.X); got != sol.Objective {
				t.Errorf("Value(X) = %v, Objective = %v", got, sol.Objective)
			}
		})
	}
}

func TestSolveInfeasible(t *testing.T) {
	p := NewProblem(2)
	p.Objective = ones(2)
	p.Add("three of two", terms(0, 1), GreaterEq, 3)

	_, err := Solve(context.Background(), p, Options{})
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("err = %v, want ErrInfeasible", err)
	}
}

func TestSolveIncumbent(t *testing.T) {
	p := NewProblem(5)
	p.Objective = ones(5)
	for i := 0; i < 5; i++ {
		p.Add("edge", terms(i, (i+1)%5), GreaterEq, 1)
	}

	// A feasible seed never worsens the result.
	sol, err := Solve(context.Background(), p, Options{Incumbent: []int{1, 1, 1, 1, 1}})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if sol.Objective != 3 {
		t.Errorf("objective = %v, want 3", sol.Objective)
	}

	// An infeasible seed is ignored.
	sol, err = Solve(context.Background(), p, Options{Incumbent: []int{0, 0, 0, 0, 0}})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if sol.Objective != 3 {
		t.Errorf("objective = %v, want 3", sol.Objective)
	}
}

func TestSolveNodeLimit(t *testing.T) {
	p := NewProblem(5)
	p.Objective = ones(5)
	for i := 0; i < 5; i++ {
		p.Add("edge", terms(i, (i+1)%5), GreaterEq, 1)
	}

	sol, err := Solve(context.Background(), p, Options{NodeLimit: 1, Incumbent: []int{1, 1, 1, 1, 1}})
	if !errors.Is(err, ErrNodeLimit) {
		t.Fatalf("err = %v, want ErrNodeLimit", err)
	}
	if sol.Optimal {
		t.Error("solution should not be marked optimal")
	}
	if !p.Feasible(sol.X) {
		t.Errorf("returned point %v is not feasible", sol.X)
	}
}

func TestSolveCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProblem(1)
	_, err := Solve(ctx, p, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		prob *Problem
	}{
		{"objective length", &Problem{NumVars: 2, Objective: []float64{1}}},
		{"variable out of range", &Problem{
			NumVars:     1,
			Objective:   []float64{1},
			Constraints: []Constraint{{Name: "c", Terms: terms(1), Sense: LessEq}},
		}},
		{"bad sense", &Problem{
			NumVars:     1,
			Objective:   []float64{1},
			Constraints: []Constraint{{Name: "c", Terms: terms(0), Sense: Sense(9)}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.prob.Validate(); !errors.Is(err, ErrInvalidProblem) {
				t.Errorf("Validate() = %v, want ErrInvalidProblem", err)
			}
			if _, err := Solve(context.Background(), tt.prob, Options{}); !errors.Is(err, ErrInvalidProblem) {
				t.Errorf("Solve() = %v, want ErrInvalidProblem", err)
			}
		})
	}
}

func TestPropagate(t *testing.T) {
	tests := []struct {
		name string
		prob func() *Problem
		fix  []int8
		want []int8 // nil means a conflict
	}{
		{
			name: "tight cover fixes every member",
			prob: func() *Problem {
				p := NewProblem(3)
				p.Add("all", terms(0, 1, 2), GreaterEq, 3)
				return p
			},
			fix:  freeAll(3),
			want: []int8{1, 1, 1},
		},
		{
			name: "dropped parent drops its child",
			prob: func() *Problem {
				p := NewProblem(3)
				p.Add("parent", []Term{{Var: 1, Coef: 1}, {Var: 0, Coef: -1}}, LessEq, 0)
				p.Add("grandparent", []Term{{Var: 2, Coef: 1}, {Var: 1, Coef: -1}}, LessEq, 0)
				return p
			},
			fix:  []int8{0, -1, -1},
			want: []int8{0, 0, 0},
		},
		{
			name: "equality with a kept member clears the rest",
			prob: func() *Problem {
				p := NewProblem(3)
				p.Add("one", terms(0, 1, 2), Equal, 1)
				return p
			},
			fix:  []int8{-1, 1, -1},
			want: []int8{0, 1, 0},
		},
		{
			name: "loose rows fix nothing",
			prob: func() *Problem {
				p := NewProblem(3)
				p.Add("any", terms(0, 1, 2), GreaterEq, 1)
				return p
			},
			fix:  freeAll(3),
			want: freeAll(3),
		},
		{
			name: "conflict",
			prob: func() *Problem {
				p := NewProblem(2)
				p.Add("both", terms(0, 1), GreaterEq, 2)
				p.Add("at most one", terms(0, 1), LessEq, 1)
				return p
			},
			fix: freeAll(2),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fix := append([]int8(nil), tt.fix...)
			ok := propagate(tt.prob(), fix)
			if tt.want == nil {
				if ok {
					t.Fatalf("propagate = true with %v, want a conflict", fix)
				}
				return
			}
			if !ok {
				t.Fatal("propagate reported a conflict")
			}
			for i := range fix {
				if fix[i] != tt.want[i] {
					t.Fatalf("fix = %v, want %v", fix, tt.want)
				}
			}
		})
	}
}

func TestRelax(t *testing.T) {
	tests := []struct {
		name string
		prob func() *Problem
		want float64
	}{
		{
			// h >= 0 as written.
			name: "packing",
			prob: func() *Problem {
				p := NewProblem(2)
				p.Objective = []float64{-1, -1}
				p.Add("half", terms(0, 1), LessEq, 1.5)
				return p
			},
			want: -1.5,
		},
		{
			// Only the complemented form has h >= 0.
			name: "covering",
			prob: func() *Problem {
				p := NewProblem(3)
				p.Objective = ones(3)
				p.Add("two", terms(0, 1, 2), GreaterEq, 2)
				return p
			},
			want: 2,
		},
		{
			// Neither form starts feasible; the simplex finds its own basis.
			name: "mixed",
			prob: func() *Problem {
				p := NewProblem(3)
				p.Objective = []float64{1, 2, 3}
				p.Add("least", terms(0, 1, 2), GreaterEq, 1.5)
				p.Add("most", terms(0, 1), LessEq, 0.5)
				return p
			},
			want: 0.5 + 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.prob()
			fix := freeAll(p.NumVars)
			got, xs, err := relax(p, fix, freeVars(fix))
			if err != nil {
				t.Fatalf("relax: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("bound = %v, want %v", got, tt.want)
			}
			var v float64
			for i, x := range xs {
				if x < -1e-9 || x > 1+1e-9 {
					t.Errorf("x[%d] = %v outside [0, 1]", i, x)
				}
				v += p.Objective[i] * x
			}
			if math.Abs(v-got) > 1e-9 {
				t.Errorf("c·x = %v, bound = %v", v, got)
			}
		})
	}
}

func TestSolveMatchesExhaustive(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	senses := []Sense{LessEq, GreaterEq, Equal}
	for trial := 0; trial < 60; trial++ {
		const n = 7
		p := NewProblem(n)
		for i := range p.Objective {
			p.Objective[i] = float64(rng.IntN(9) - 3)
		}
		rows := 1 + rng.IntN(4)
		for r := 0; r < rows; r++ {
			var ts []Term
			for i := 0; i < n; i++ {
				if rng.IntN(2) == 0 {
					ts = append(ts, Term{Var: i, Coef: float64(rng.IntN(5) - 2)})
				}
			}
			p.Add("row", ts, senses[rng.IntN(len(senses))], float64(rng.IntN(5)-1))
		}

		best, found := math.Inf(1), false
		x := make([]int, n)
		for mask := 0; mask < 1<<n; mask++ {
			for i := range x {
				x[i] = (mask >> i) & 1
			}
			if p.Feasible(x) {
				best, found = min(best, p.Value(x)), true
			}
		}

		sol, err := Solve(context.Background(), p, Options{})
		if !found {
			if !errors.Is(err, ErrInfeasible) {
				t.Fatalf("trial %d: err = %v, want ErrInfeasible", trial, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("trial %d: Solve: %v", trial, err)
		}
		if sol.Objective != best {
			t.Errorf("trial %d: objective = %v, exhaustive minimum = %v", trial, sol.Objective, best)
		}
		if !p.Feasible(sol.X) {
			t.Errorf("trial %d: solution %v is infeasible", trial, sol.X)
		}
	}
}
