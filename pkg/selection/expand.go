package selection

import (
	"errors"
	"fmt"
	"math"

	"github.com/gammazero/deque"

	apperr "github.com/DavidWHallberg/iotlab-topologies/pkg/errors"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/graph"
)

var (
	// ErrUnknownRoot is returned when the requested root is not a node of
	// the measurement graph.
	ErrUnknownRoot = errors.New("root is not a node of the graph")

	// ErrNilGraph is returned when no measurement graph is given.
	ErrNilGraph = errors.New("nil graph")
)

// DefaultMargin is the avoidance margin used by the command line tool.
const DefaultMargin = 8

// Options configures a level expansion.
type Options struct {
	// Policy decides whether a level is large enough to be promoted.
	Policy Kappa

	// Margin widens the bound for the avoidance filter only. A candidate is
	// skipped when it has an edge of weight <= bound+Margin to a node
	// admitted at a shallower level than the one being processed.
	Margin float64

	// BackEdges records arcs from frontier nodes to already admitted,
	// shallower nodes in addition to the tree arcs.
	BackEdges bool
}

// Validate reports configuration errors.
func (o Options) Validate() error {
	if !o.Policy.Valid() {
		return apperr.New(apperr.ErrCodeInvalidConfig, "unknown growth policy %v", o.Policy)
	}
	if math.IsNaN(o.Margin) || math.IsInf(o.Margin, 0) || o.Margin < 0 {
		return apperr.New(apperr.ErrCodeInvalidConfig, "margin must be a finite non-negative number, got %v", o.Margin)
	}
	return nil
}

// Expansion is the outcome of [Expand].
type Expansion struct {
	// Depth is the depth of the last promoted level.
	Depth int
	// Levels holds the depth of every admitted node.
	Levels Levels
	// Structure holds the admitted nodes and the arcs between them.
	Structure *Structure
	// Admitted counts the nodes processed as part of a frontier.
	Admitted int
}

// Expand grows a level structure from root over the edges of g whose weight
// is at most bound.
//
// Levels are processed breadth first. Every node of the current frontier is
// admitted at the current depth, then its usable out-edges are visited in
// ascending target order:
//
//   - targets in the current frontier are ignored;
//   - already admitted targets are shallower; with BackEdges they get an arc;
//   - unseen targets pass through the avoidance filter and, if they survive,
//     are queued for the next level with the current node as parent.
//
// The queued level is promoted only if it holds at least Policy.Width(depth+1)
// nodes; otherwise expansion stops and the current depth is final.
func Expand(g *graph.Graph, bound Bound, root int, opts Options) (*Expansion, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := bound.validate(); err != nil {
		return nil, err
	}
	if !g.HasNode(root) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRoot, root)
	}

	x := &Expansion{Levels: Levels{}, Structure: newStructure()}
	x.Structure.addNode(root, 0)
	avoid := Bound(float64(bound) + opts.Margin)

	frontier := &deque.Deque[int]{}
	frontier.PushBack(root)
	inFrontier := map[int]bool{root: true}

	for depth := 0; ; depth++ {
		next := &deque.Deque[int]{}
		parent := make(map[int]int)

		for frontier.Len() > 0 {
			n := frontier.PopFront()
			x.Levels[n] = depth
			x.Admitted++

			for _, e := range g.Out(n) {
				if !bound.Admits(e.Weight) {
					continue
				}
				v := e.To
				if inFrontier[v] {
					continue
				}
				if _, seen := x.Levels[v]; seen {
					if opts.BackEdges {
						x.Structure.addArc(n, v, e.Weight)
					}
					continue
				}
				if _, queued := parent[v]; queued {
					continue
				}
				if nearShallower(g, v, avoid, depth, x.Levels) {
					continue
				}
				parent[v] = n
				next.PushBack(v)
			}
		}

		if next.Len() < opts.Policy.Width(depth+1) {
			x.Depth = depth
			return x, nil
		}

		inFrontier = make(map[int]bool, next.Len())
		for i := 0; i < next.Len(); i++ {
			v := next.At(i)
			p := parent[v]
			w, _ := g.Weight(p, v)
			x.Structure.addNode(v, depth+1)
			x.Structure.addArc(v, p, w)
			inFrontier[v] = true
		}
		frontier = next
	}
}

// nearShallower reports whether v has an edge within limit to a node
// admitted above depth.
func nearShallower(g *graph.Graph, v int, limit Bound, depth int, levels Levels) bool {
	for _, e := range g.Out(v) {
		if !limit.Admits(e.Weight) {
			continue
		}
		if d, ok := levels[e.To]; ok && d < depth {
			return true
		}
	}
	return false
}
