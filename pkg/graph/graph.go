package graph

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// =============================================================================
// Serialization Types
// =============================================================================

// Document is the canonical JSON form of a measurement graph.
// It is used for the graph cache and for measurement files ending in .json.
//
//	{
//	  "nodes": [1, 2, 3],
//	  "edges": [{"from": 1, "to": 2, "weight": 42.5}]
//	}
//
// Nodes without edges must be listed in Nodes; endpoints of edges are added
// implicitly.
type Document struct {
	Nodes []int       `json:"nodes" bson:"nodes"`
	Edges []EdgeEntry `json:"edges" bson:"edges"`
}

// EdgeEntry is a serialized directed edge.
type EdgeEntry struct {
	From   int     `json:"from" bson:"from"`
	To     int     `json:"to" bson:"to"`
	Weight float64 `json:"weight" bson:"weight"`
}

// FromGraph converts g to its serialization form.
// Nodes and edges are sorted for deterministic output.
func FromGraph(g *Graph) Document {
	doc := Document{Nodes: g.Nodes()}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, EdgeEntry{From: e.From, To: e.To, Weight: e.Weight})
	}
	return doc
}

// ToGraph builds a Graph from its serialization form.
func ToGraph(doc Document) (*Graph, error) {
	g := New()
	for _, n := range doc.Nodes {
		g.AddNode(n)
	}
	for _, e := range doc.Edges {
		if err := g.AddEdge(e.From, e.To, e.Weight); err != nil {
			return nil, fmt.Errorf("add edge %d→%d: %w", e.From, e.To, err)
		}
	}
	return g, nil
}

// =============================================================================
// JSON API
// =============================================================================

// MarshalGraph converts g to JSON bytes.
func MarshalGraph(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteGraph(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraph writes g as indented JSON to w.
func WriteGraph(g *Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(FromGraph(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadGraph decodes a JSON graph from r.
func ReadGraph(r io.Reader) (*Graph, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return ToGraph(doc)
}

// =============================================================================
// Edge List API
// =============================================================================

// ReadEdgeList decodes a comma-separated edge list from r.
//
// Each record is "from,to,weight". A first record whose fields are not
// numeric is treated as a header and skipped. Blank lines are ignored.
// Errors report the 1-based line of the offending record.
func ReadEdgeList(r io.Reader) (*Graph, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	g := New()
	for first := true; ; first = false {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read edge list: %w", err)
		}
		line, _ := cr.FieldPos(0)

		from, errFrom := strconv.Atoi(strings.TrimSpace(rec[0]))
		to, errTo := strconv.Atoi(strings.TrimSpace(rec[1]))
		w, errW := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err := errors.Join(errFrom, errTo, errW); err != nil {
			if first {
				continue // header
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := g.AddEdge(from, to, w); err != nil {
			return nil, fmt.Errorf("line %d: edge %d→%d: %w", line, from, to, err)
		}
	}
	return g, nil
}

// =============================================================================
// File API
// =============================================================================

// ReadFile loads a measurement graph from path.
// Files ending in .json are decoded with [ReadGraph], anything else is read
// as an edge list with [ReadEdgeList].
func ReadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ReadGraph(f)
	}
	return ReadEdgeList(f)
}

// WriteFile writes g as JSON to path.
func WriteFile(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteGraph(g, f)
}
