// Package selection picks sparse, depth-bounded topologies out of a
// measurement graph.
//
// # Overview
//
// Given a root and a weight bound, [Expand] grows levels breadth first over
// the edges whose weight is within the bound. A level is kept only when it
// is at least as wide as the growth policy demands ([Tree] or [Line]), so the
// result is either a widening tree or a chain. Candidates that sit close to
// an already admitted shallower node are skipped (the avoidance filter,
// widened by Options.Margin) so that the depth of a node reflects real hop
// distance from the root.
//
// [Reduce] then keeps the fewest nodes that still satisfy the policy with
// every kept node attached to a shallower kept node. [Run] chains both steps
// and summarizes them as a [Record].
//
// # Usage
//
//	opts := selection.RunOptions{
//		Options: selection.Options{Policy: selection.Tree, Margin: 8},
//		Reduce:  true,
//	}
//	rec, x, err := selection.Run(ctx, g, 45, root, opts)
//	if err != nil {
//		return err
//	}
//	fmt.Println(rec.Depth, x.Structure.Nodes())
//
// All functions are deterministic and hold no shared state, so independent
// runs over one graph may execute concurrently.
package selection
