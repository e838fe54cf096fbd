package graph

import (
	"errors"
	"math"
	"slices"
)

var (
	// ErrSelfLoop is returned by [Graph.AddEdge] when source and target are
	// the same node. A node never measures a link to itself.
	ErrSelfLoop = errors.New("self loop")

	// ErrInvalidWeight is returned by [Graph.AddEdge] when the weight is
	// negative, NaN or infinite. Weights are link costs and must be finite.
	ErrInvalidWeight = errors.New("edge weight must be a finite non-negative number")

	// ErrDuplicateEdge is returned by [Graph.AddEdge] when the directed edge
	// already exists. The reverse direction is a different edge.
	ErrDuplicateEdge = errors.New("duplicate edge")

	// ErrUnknownNode is returned by lookups that reference a node that is not
	// part of the graph.
	ErrUnknownNode = errors.New("unknown node")
)

// Edge is a directed measurement from one node to another.
// Weight is the link cost (for example attenuation); lower is better.
type Edge struct {
	From   int
	To     int
	Weight float64
}

// Graph is a directed weighted measurement graph keyed by integer node IDs.
//
// Links may be asymmetric: u→v and v→u are independent edges with their own
// weights. Node and neighbor iteration is always in ascending ID order so
// that every algorithm running on a Graph is deterministic.
//
// A Graph is built once and then shared read-only. Concurrent readers are
// safe; mutation during reads is not.
type Graph struct {
	nodes  map[int]struct{}
	out    map[int][]Edge // sorted by To
	weight map[[2]int]float64
	sorted []int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:  make(map[int]struct{}),
		out:    make(map[int][]Edge),
		weight: make(map[[2]int]float64),
	}
}

// AddNode adds a node. Adding an existing node is a no-op.
func (g *Graph) AddNode(id int) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = struct{}{}
	i, _ := slices.BinarySearch(g.sorted, id)
	g.sorted = slices.Insert(g.sorted, i, id)
}

// AddEdge adds the directed edge from→to, creating missing endpoints.
func (g *Graph) AddEdge(from, to int, weight float64) error {
	if from == to {
		return ErrSelfLoop
	}
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return ErrInvalidWeight
	}
	key := [2]int{from, to}
	if _, ok := g.weight[key]; ok {
		return ErrDuplicateEdge
	}
	g.AddNode(from)
	g.AddNode(to)
	g.weight[key] = weight

	edges := g.out[from]
	i, _ := slices.BinarySearchFunc(edges, to, func(e Edge, t int) int { return e.To - t })
	g.out[from] = slices.Insert(edges, i, Edge{From: from, To: to, Weight: weight})
	return nil
}

// HasNode reports whether id is a node of the graph.
func (g *Graph) HasNode(id int) bool {
	_, ok := g.nodes[id]
	return ok
}

// HasEdge reports whether the directed edge from→to exists.
func (g *Graph) HasEdge(from, to int) bool {
	_, ok := g.weight[[2]int{from, to}]
	return ok
}

// Weight returns the weight of from→to and whether the edge exists.
func (g *Graph) Weight(from, to int) (float64, bool) {
	w, ok := g.weight[[2]int{from, to}]
	return w, ok
}

// Nodes returns all node IDs in ascending order.
// The returned slice is a copy.
func (g *Graph) Nodes() []int { return slices.Clone(g.sorted) }

// Out returns the outgoing edges of id ordered by target ID.
// The returned slice is shared with the graph and must not be modified.
func (g *Graph) Out(id int) []Edge { return g.out[id] }

// Edges returns every edge ordered by (From, To).
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, len(g.weight))
	for _, n := range g.sorted {
		edges = append(edges, g.out[n]...)
	}
	return edges
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of directed edges.
func (g *Graph) EdgeCount() int { return len(g.weight) }
