// Package graph provides the measurement graph that topology selection runs on.
//
// A measurement graph is a directed graph over integer node IDs where an edge
// u→v exists if node u was measured to reach node v, and its weight is the
// link cost (for example attenuation in dB). Links are frequently asymmetric,
// so u→v and v→u are stored independently.
//
// # Determinism
//
// [Graph.Nodes] and [Graph.Out] always return IDs in ascending order. The
// level expansion in package selection depends on this to make every run
// reproducible.
//
// # Serialization
//
// Graphs use a small node-link JSON format, shared with the graph cache:
//
//	{
//	  "nodes": [1, 2],
//	  "edges": [{"from": 1, "to": 2, "weight": 42.5}]
//	}
//
// Raw measurements can also be read as a comma-separated edge list
// ("from,to,weight", optional header line) with [ReadEdgeList] or [ReadFile].
//
// # Concurrency
//
// A Graph is safe for concurrent reads once built. It is not safe for
// concurrent writes.
package graph
