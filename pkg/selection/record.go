package selection

import (
	"context"

	"github.com/DavidWHallberg/iotlab-topologies/pkg/graph"
)

// Record summarizes one (bound, root) run. Kappa, Margin, BackEdges and
// Reduced are the settings it was computed with, so the structure can be
// rebuilt exactly with [Record.RunOptions].
type Record struct {
	Bound     Bound   `json:"bound"`
	Root      int     `json:"root"`
	Depth     int     `json:"depth"`
	AllNodes  int     `json:"allnodes"`
	Nodes     int     `json:"nodes"`
	MaxWeight float64 `json:"maxweight"`
	Kappa     Kappa   `json:"kappa"`
	Margin    float64 `json:"margin"`
	BackEdges bool    `json:"backedges"`
	Reduced   bool    `json:"reduced"`
}

// RunOptions returns the options that reproduce r. ok is false when r does
// not name a valid policy, as for rows of tables written without one.
func (r Record) RunOptions() (opts RunOptions, ok bool) {
	if !r.Kappa.Valid() {
		return RunOptions{}, false
	}
	return RunOptions{
		Options: Options{Policy: r.Kappa, Margin: r.Margin, BackEdges: r.BackEdges},
		Reduce:  r.Reduced,
	}, true
}

// RunOptions configures [Run].
type RunOptions struct {
	Options

	// Reduce minimizes the structure after expansion with [Reduce].
	Reduce bool
}

// Run expands from root under bound, optionally reduces the result, and
// summarizes it.
//
// Nodes is the number of admitted nodes, or the reduced node count when
// opts.Reduce is set. The returned expansion reflects the reduction.
func Run(ctx context.Context, g *graph.Graph, bound Bound, root int, opts RunOptions) (Record, *Expansion, error) {
	x, err := Expand(g, bound, root, opts.Options)
	if err != nil {
		return Record{}, nil, err
	}
	rec := Record{
		Bound:     bound,
		Root:      root,
		Depth:     x.Depth,
		AllNodes:  g.NodeCount(),
		Nodes:     x.Admitted,
		Kappa:     opts.Policy,
		Margin:    opts.Margin,
		BackEdges: opts.BackEdges,
		Reduced:   opts.Reduce,
	}
	if opts.Reduce {
		n, err := Reduce(ctx, x.Structure, x.Levels, root, opts.Policy)
		if err != nil {
			return Record{}, x, err
		}
		rec.Nodes = n
	}
	rec.MaxWeight = x.Structure.MaxWeight()
	return rec, x, nil
}
