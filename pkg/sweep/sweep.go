package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/DavidWHallberg/iotlab-topologies/pkg/graph"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/observability"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/selection"
)

// ErrNilGraph is returned by [Run] when no graph is given.
var ErrNilGraph = errors.New("sweep: nil graph")

// runOne executes a single selection; tests replace it.
var runOne = selection.Run

// Failure is a run that did not produce a record.
type Failure struct {
	Bound selection.Bound
	Root  int
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("bound %v root %d: %v", f.Bound, f.Root, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

type slot struct {
	rec selection.Record
	err error
}

// Run executes one selection per (bound, root) pair of g, with roots taken
// from g.Nodes(), and gathers the outcomes.
//
// The configuration is validated before anything runs. Each task writes its
// own slot, so the table order does not depend on scheduling: rows are
// sorted by (bound, root). Failed runs land in Table.Failures.
//
// Cancelling ctx stops dispatching new runs and Run returns ctx.Err().
func Run(ctx context.Context, g *graph.Graph, cfg Config) (*Table, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.logger()
	opts := cfg.RunOptions()
	bounds := cfg.Bounds.Bounds()
	roots := g.Nodes()

	tbl := &Table{
		ID:        uuid.New(),
		Created:   time.Now().UTC(),
		Kappa:     cfg.Kappa,
		Margin:    cfg.Margin,
		BackEdges: cfg.BackEdges,
		Reduce:    cfg.Reduce,
	}
	slots := make([]slot, len(bounds)*len(roots))
	hooks := observability.Sweep()
	hooks.OnSweepStart(ctx, tbl.ID.String(), len(slots))
	start := time.Now()

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(cfg.workers())

dispatch:
	for bi, b := range bounds {
		logger.Info("testing bound", "bound", b, "roots", len(roots))
		for ri, root := range roots {
			if gctx.Err() != nil {
				break dispatch
			}
			i := bi*len(roots) + ri
			grp.Go(func() error {
				t0 := time.Now()
				rec, _, err := runOne(gctx, g, b, root, opts)
				hooks.OnRunComplete(gctx, b.String(), root, time.Since(t0), err)
				slots[i] = slot{rec: rec, err: err}
				return nil
			})
		}
	}
	_ = grp.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, s := range slots {
		if s.err != nil {
			f := Failure{Bound: bounds[i/len(roots)], Root: roots[i%len(roots)], Err: s.err}
			logger.Warn("run failed", "bound", f.Bound, "root", f.Root, "err", f.Err)
			tbl.Failures = append(tbl.Failures, f)
			continue
		}
		tbl.Rows = append(tbl.Rows, s.rec)
	}
	tbl.Sort()

	hooks.OnSweepComplete(ctx, tbl.ID.String(), len(tbl.Rows), len(tbl.Failures), time.Since(start))
	logger.Debug("sweep complete", "id", tbl.ID, "rows", len(tbl.Rows), "failures", len(tbl.Failures))
	return tbl, nil
}
