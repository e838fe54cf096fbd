// Package sweep runs topology selection over every (bound, root) pair of a
// measurement graph and collects the results into a [Table].
//
// Runs are independent and read the graph concurrently through a bounded
// worker pool. A failing run is recorded as a [Failure] and never stops its
// siblings; only context cancellation aborts a sweep.
//
//	cfg := sweep.DefaultConfig()
//	cfg.Kappa = selection.Line
//	tbl, err := sweep.Run(ctx, g, cfg)
//	if err != nil {
//		return err
//	}
//	for _, rec := range tbl.Rank(5) {
//		fmt.Println(rec.Depth, rec.Root, rec.Bound)
//	}
//
// Tables persist as CSV with the columns
// bound,root,depth,allnodes,nodes,maxweight,kappa,margin.
package sweep
