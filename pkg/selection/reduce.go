package selection

import (
	"context"
	"errors"
	"fmt"

	apperr "github.com/DavidWHallberg/iotlab-topologies/pkg/errors"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/selection/ilp"
)

var (
	// ErrLevelTooSmall is reported by [Verify] when a level holds fewer
	// nodes than the growth policy requires.
	ErrLevelTooSmall = errors.New("level below policy width")

	// ErrOrphan is reported by [Verify] when a non-root node has no
	// neighbor at a shallower depth.
	ErrOrphan = errors.New("node without shallower neighbor")
)

// solve is the 0/1 solver used by [Reduce]; tests replace it.
var solve = ilp.Solve

// Reduce shrinks s in place to a minimum node set that still satisfies the
// growth policy and returns the remaining node count.
//
// The selection is the optimum of a 0/1 program with one variable per node:
//
//	minimize   Σ x_n
//	subject to Σ_{levels[n]=j} x_n ≥ kappa.Width(j)   for j = 1..max depth
//	           x_n ≤ Σ_{p ~ n, levels[p] < levels[n]} x_p   for n ≠ root
//	           x_root = 1
//
// where p ~ n means p and n share an arc in either direction. Nodes set to 0
// are removed together with their arcs. Solver failures, including
// infeasibility, and selections that fail [Verify] are returned with code
// REDUCTION_FAILED. s is only modified once the selection has been verified.
func Reduce(ctx context.Context, s *Structure, levels Levels, root int, kappa Kappa) (int, error) {
	if !kappa.Valid() {
		return 0, apperr.New(apperr.ErrCodeInvalidConfig, "unknown growth policy %v", kappa)
	}
	if !s.HasNode(root) {
		return 0, fmt.Errorf("%w: %d", ErrUnknownRoot, root)
	}

	nodes := s.Nodes()
	p, err := reductionModel(s, nodes, levels, root, kappa)
	if err != nil {
		return 0, err
	}
	keepAll := make([]int, len(nodes))
	for i := range keepAll {
		keepAll[i] = 1
	}

	sol, err := solve(ctx, p, ilp.Options{Incumbent: keepAll})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, apperr.Wrap(apperr.ErrCodeReductionFailed, err, "reduce %d nodes rooted at %d", len(nodes), root)
	}

	reduced := s.Clone()
	for i, n := range nodes {
		if sol.X[i] != 1 {
			reduced.RemoveNode(n)
		}
	}
	if err := Verify(reduced, levels, root, kappa); err != nil {
		return 0, apperr.Wrap(apperr.ErrCodeReductionFailed, err, "reduced structure rooted at %d", root)
	}
	*s = *reduced
	return s.NodeCount(), nil
}

func reductionModel(s *Structure, nodes []int, levels Levels, root int, kappa Kappa) (*ilp.Problem, error) {
	idx := make(map[int]int, len(nodes))
	byLevel := make(map[int][]ilp.Term)
	maxDepth := 0
	for i, n := range nodes {
		d, ok := levels[n]
		if !ok {
			return nil, apperr.New(apperr.ErrCodeInvalidInput, "node %d has no level", n)
		}
		idx[n] = i
		byLevel[d] = append(byLevel[d], ilp.Term{Var: i, Coef: 1})
		maxDepth = max(maxDepth, d)
	}

	p := ilp.NewProblem(len(nodes))
	for i := range p.Objective {
		p.Objective[i] = 1
	}
	for j := 1; j <= maxDepth; j++ {
		p.Add(fmt.Sprintf("level %d", j), byLevel[j], ilp.GreaterEq, float64(kappa.Width(j)))
	}
	for _, n := range nodes {
		if n == root {
			p.Add("root", []ilp.Term{{Var: idx[n], Coef: 1}}, ilp.Equal, 1)
			continue
		}
		terms := []ilp.Term{{Var: idx[n], Coef: 1}}
		for _, q := range s.Neighbors(n) {
			if levels.Depth(q) < levels[n] {
				terms = append(terms, ilp.Term{Var: idx[q], Coef: -1})
			}
		}
		p.Add(fmt.Sprintf("parent of %d", n), terms, ilp.LessEq, 0)
	}
	return p, nil
}

// Verify checks that every level 1..max depth of s holds at least
// kappa.Width nodes and that every non-root node has an arc to a shallower
// node. Levels present in levels but emptied in s count as too small.
func Verify(s *Structure, levels Levels, root int, kappa Kappa) error {
	count := make(map[int]int)
	maxDepth := max(levels.Max(), 0)
	for _, n := range s.Nodes() {
		d := levels.Depth(n)
		count[d]++
		maxDepth = max(maxDepth, d)
		if n == root {
			continue
		}
		ok := false
		for _, q := range s.Neighbors(n) {
			if levels.Depth(q) < d {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: %d", ErrOrphan, n)
		}
	}
	for j := 1; j <= maxDepth; j++ {
		if count[j] < kappa.Width(j) {
			return fmt.Errorf("%w: depth %d has %d of %d", ErrLevelTooSmall, j, count[j], kappa.Width(j))
		}
	}
	return nil
}
