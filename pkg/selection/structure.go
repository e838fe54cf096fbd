package selection

import (
	"maps"
	"slices"
)

// Unreached is the depth reported for nodes the expander never admitted.
const Unreached = -1

// Levels maps each admitted node to its depth. The root has depth 0.
type Levels map[int]int

// Depth returns the depth of n, or Unreached.
func (l Levels) Depth(n int) int {
	if d, ok := l[n]; ok {
		return d
	}
	return Unreached
}

// Max returns the greatest depth in l, or Unreached when l is empty.
func (l Levels) Max() int {
	m := Unreached
	for _, d := range l {
		m = max(m, d)
	}
	return m
}

// At returns the nodes at depth d in ascending order.
func (l Levels) At(d int) []int {
	var nodes []int
	for n, nd := range l {
		if nd == d {
			nodes = append(nodes, n)
		}
	}
	slices.Sort(nodes)
	return nodes
}

// Arc is a child→parent edge of a result structure. The child is always
// strictly deeper than the parent.
type Arc struct {
	Child  int
	Parent int
	Weight float64
}

// Structure is the selected topology: the admitted nodes and the
// child→parent arcs between them.
//
// Arcs are only created during expansion. Afterwards the only mutation is
// [Structure.RemoveNode].
type Structure struct {
	depth map[int]int
	arcs  []Arc
	index map[[2]int]struct{}
}

func newStructure() *Structure {
	return &Structure{depth: make(map[int]int), index: make(map[[2]int]struct{})}
}

func (s *Structure) addNode(n, depth int) { s.depth[n] = depth }

// addArc records child→parent unless the pair is already joined in either
// direction. The first recorded arc wins.
func (s *Structure) addArc(child, parent int, w float64) {
	if _, ok := s.index[[2]int{child, parent}]; ok {
		return
	}
	if _, ok := s.index[[2]int{parent, child}]; ok {
		return
	}
	s.index[[2]int{child, parent}] = struct{}{}
	s.arcs = append(s.arcs, Arc{Child: child, Parent: parent, Weight: w})
}

// RemoveNode deletes n and every arc touching it.
func (s *Structure) RemoveNode(n int) {
	if _, ok := s.depth[n]; !ok {
		return
	}
	delete(s.depth, n)
	s.arcs = slices.DeleteFunc(s.arcs, func(a Arc) bool {
		if a.Child == n || a.Parent == n {
			delete(s.index, [2]int{a.Child, a.Parent})
			return true
		}
		return false
	})
}

// HasNode reports whether n is part of the structure.
func (s *Structure) HasNode(n int) bool {
	_, ok := s.depth[n]
	return ok
}

// Depth returns the depth n was admitted at.
func (s *Structure) Depth(n int) (int, bool) {
	d, ok := s.depth[n]
	return d, ok
}

// Nodes returns the node IDs in ascending order.
func (s *Structure) Nodes() []int { return slices.Sorted(maps.Keys(s.depth)) }

// Arcs returns the arcs in the order they were recorded.
func (s *Structure) Arcs() []Arc { return slices.Clone(s.arcs) }

// HasArc reports whether the arc child→parent exists.
func (s *Structure) HasArc(child, parent int) bool {
	_, ok := s.index[[2]int{child, parent}]
	return ok
}

// Parents returns the nodes n has an arc to, in ascending order.
func (s *Structure) Parents(n int) []int {
	var ps []int
	for _, a := range s.arcs {
		if a.Child == n {
			ps = append(ps, a.Parent)
		}
	}
	slices.Sort(ps)
	return ps
}

// Neighbors returns every node joined to n by an arc in either direction,
// in ascending order.
func (s *Structure) Neighbors(n int) []int {
	var ns []int
	for _, a := range s.arcs {
		switch n {
		case a.Child:
			ns = append(ns, a.Parent)
		case a.Parent:
			ns = append(ns, a.Child)
		}
	}
	slices.Sort(ns)
	return slices.Compact(ns)
}

// NodeCount returns the number of nodes.
func (s *Structure) NodeCount() int { return len(s.depth) }

// ArcCount returns the number of arcs.
func (s *Structure) ArcCount() int { return len(s.arcs) }

// MaxWeight returns the largest arc weight. Structures with at most one arc
// report 0.
func (s *Structure) MaxWeight() float64 {
	if len(s.arcs) <= 1 {
		return 0
	}
	var m float64
	for _, a := range s.arcs {
		m = max(m, a.Weight)
	}
	return m
}

// Clone returns a deep copy of s.
func (s *Structure) Clone() *Structure {
	return &Structure{depth: maps.Clone(s.depth), arcs: slices.Clone(s.arcs), index: maps.Clone(s.index)}
}
