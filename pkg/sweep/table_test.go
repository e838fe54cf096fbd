package sweep

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	apperr "github.com/DavidWHallberg/iotlab-topologies/pkg/errors"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/selection"
)

func rec(bound selection.Bound, root, depth, nodes int) selection.Record {
	return selection.Record{Bound: bound, Root: root, Depth: depth, Nodes: nodes, AllNodes: 10, Kappa: selection.Tree, Margin: 8}
}

func TestRank(t *testing.T) {
	tbl := &Table{Rows: []selection.Record{
		rec(35, 1, 2, 5),
		rec(35, 2, 3, 9),
		rec(36, 1, 3, 7),
		rec(36, 2, 3, 7),
		rec(selection.Unbounded, 1, 4, 9),
		rec(37, 4, 1, 2),
	}}
	got := tbl.Rank(4)
	want := []selection.Record{
		rec(selection.Unbounded, 1, 4, 9),
		rec(36, 1, 3, 7),
		rec(36, 2, 3, 7),
		rec(35, 2, 3, 9),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rank(4) =\n%v\nwant\n%v", got, want)
	}
	if len(tbl.Rank(0)) != 6 || len(tbl.Rank(100)) != 6 {
		t.Error("Rank should return all rows for count <= 0 or count > len")
	}
	if tbl.Rows[0] != rec(35, 1, 2, 5) {
		t.Error("Rank reordered the table")
	}
}

func TestCSVRoundTrip(t *testing.T) {
	tbl := &Table{Rows: []selection.Record{
		{Bound: 35, Root: 3, Depth: 2, AllNodes: 40, Nodes: 6, MaxWeight: 34.5, Kappa: selection.Tree, Margin: 8, Reduced: true},
		{Bound: selection.Unbounded, Root: 3, Depth: 4, AllNodes: 40, Nodes: 15, MaxWeight: 71, Kappa: selection.Tree, Margin: 8, Reduced: true},
	}}
	var buf bytes.Buffer
	if err := tbl.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	wantText := "bound,root,depth,allnodes,nodes,maxweight,kappa,margin,backedges,reduced\n" +
		"35,3,2,40,6,34.5,tree,8,false,true\n" +
		"unbounded,3,4,40,15,71,tree,8,false,true\n"
	if buf.String() != wantText {
		t.Errorf("CSV =\n%s\nwant\n%s", buf.String(), wantText)
	}

	back, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if !reflect.DeepEqual(back.Rows, tbl.Rows) {
		t.Errorf("rows = %v, want %v", back.Rows, tbl.Rows)
	}
	if back.Kappa != selection.Tree || back.Margin != 8 || back.BackEdges || !back.Reduce {
		t.Errorf("table settings = %v/%v/%v/%v", back.Kappa, back.Margin, back.BackEdges, back.Reduce)
	}
}

func TestReadCSVLegacyLayout(t *testing.T) {
	// An index column, reordered columns, float-typed integers and no
	// kappa/margin columns.
	in := ",root,bound,depth,allnodes,nodes,maxweight\n" +
		"0,12,40,3.0,50,8.0,39.5\n" +
		"1,7,1000,5.0,50,11.0,70.25\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	want := []selection.Record{
		{Bound: 40, Root: 12, Depth: 3, AllNodes: 50, Nodes: 8, MaxWeight: 39.5, BackEdges: true, Reduced: true},
		{Bound: 1000, Root: 7, Depth: 5, AllNodes: 50, Nodes: 11, MaxWeight: 70.25, BackEdges: true, Reduced: true},
	}
	if !reflect.DeepEqual(tbl.Rows, want) {
		t.Errorf("rows = %+v, want %+v", tbl.Rows, want)
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"missing column", "bound,root,depth\n35,1,2\n"},
		{"bad number", "bound,root,depth,allnodes,nodes,maxweight\n35,x,2,4,4,10\n"},
		{"bad bound", "bound,root,depth,allnodes,nodes,maxweight\n-3,1,2,4,4,10\n"},
		{"bad kappa", "bound,root,depth,allnodes,nodes,maxweight,kappa\n35,1,2,4,4,10,star\n"},
		{"bad flag", "bound,root,depth,allnodes,nodes,maxweight,backedges\n35,1,2,4,4,10,maybe\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in))
			if !apperr.Is(err, apperr.ErrCodeInvalidInput) {
				t.Errorf("ReadCSV() = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.Is(err, ErrNoTable) || !apperr.Is(err, apperr.ErrCodeTableNotFound) {
		t.Errorf("err = %v, want ErrNoTable", err)
	}
}

func TestWriteFile(t *testing.T) {
	path := Path(filepath.Join(t.TempDir(), "results"), "grenoble", "m3")
	if filepath.Base(path) != "grenoble-m3.csv" {
		t.Errorf("Path = %s", path)
	}
	tbl := &Table{Rows: []selection.Record{rec(40, 1, 2, 4)}}
	if err := tbl.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(back.Rows) != 1 || back.Rows[0] != tbl.Rows[0] {
		t.Errorf("rows = %v", back.Rows)
	}
}
