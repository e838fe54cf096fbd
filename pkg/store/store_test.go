package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	apperr "github.com/DavidWHallberg/iotlab-topologies/pkg/errors"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/selection"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/sweep"
)

func sampleTable() *sweep.Table {
	return &sweep.Table{
		ID:      uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2"),
		Site:    "grenoble",
		Name:    "m3",
		Created: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Kappa:     selection.Line,
		Margin:    8,
		BackEdges: true,
		Reduce:    true,
		Rows: []selection.Record{
			{Bound: 40, Root: 1, Depth: 3, AllNodes: 20, Nodes: 4, MaxWeight: 39, Kappa: selection.Line, Margin: 8, BackEdges: true, Reduced: true},
			{Bound: selection.Unbounded, Root: 1, Depth: 5, AllNodes: 20, Nodes: 6, MaxWeight: 80, Kappa: selection.Line, Margin: 8, BackEdges: true, Reduced: true},
		},
	}
}

func TestDir(t *testing.T) {
	ctx := context.Background()
	d := NewDir(t.TempDir())

	if _, err := d.Latest(ctx, "grenoble", "m3"); !errors.Is(err, sweep.ErrNoTable) {
		t.Fatalf("Latest on empty store = %v, want ErrNoTable", err)
	}
	tbl := sampleTable()
	if err := d.Save(ctx, tbl); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := d.Latest(ctx, "grenoble", "m3")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if !reflect.DeepEqual(got.Rows, tbl.Rows) || got.Site != "grenoble" || got.Name != "m3" {
		t.Errorf("Latest = %+v", got)
	}

	again, _ := d.Latest(ctx, "grenoble", "m3")
	if again.ID != got.ID {
		t.Error("ID of an unchanged table should be stable")
	}
	tbl.Rows = tbl.Rows[:1]
	if err := d.Save(ctx, tbl); err != nil {
		t.Fatal(err)
	}
	rewritten, _ := d.Latest(ctx, "grenoble", "m3")
	if rewritten.ID == got.ID {
		t.Error("ID should change when the table is rewritten")
	}
}

func TestDirRejectsBadNames(t *testing.T) {
	d := NewDir(t.TempDir())
	tbl := sampleTable()
	tbl.Site = "../up"
	if err := d.Save(context.Background(), tbl); !apperr.Is(err, apperr.ErrCodeInvalidName) {
		t.Errorf("Save = %v, want INVALID_NAME", err)
	}
	if _, err := d.Latest(context.Background(), "ok", "a/b"); !apperr.Is(err, apperr.ErrCodeInvalidName) {
		t.Errorf("Latest = %v, want INVALID_NAME", err)
	}
}

func TestDocumentMapping(t *testing.T) {
	tbl := sampleTable()
	raw := toDocuments(tbl)
	if len(raw) != 2 {
		t.Fatalf("got %d documents", len(raw))
	}
	docs := make([]rowDocument, len(raw))
	for i, d := range raw {
		docs[i] = d.(rowDocument)
	}
	if docs[0].SweepID != tbl.ID.String() || docs[0].Kappa != "line" || docs[1].Site != "grenoble" ||
		!docs[0].BackEdges || !docs[1].Reduced {
		t.Errorf("document fields: %+v", docs[0])
	}

	// Stored in reverse to check that loading restores table order.
	docs[0], docs[1] = docs[1], docs[0]
	back, err := fromDocuments(docs)
	if err != nil {
		t.Fatalf("fromDocuments: %v", err)
	}
	if back.ID != tbl.ID || back.Kappa != selection.Line || !back.BackEdges || !back.Reduce || !reflect.DeepEqual(back.Rows, tbl.Rows) {
		t.Errorf("fromDocuments = %+v", back)
	}

	if _, err := fromDocuments(nil); !errors.Is(err, sweep.ErrNoTable) {
		t.Errorf("fromDocuments(nil) = %v, want ErrNoTable", err)
	}
}

func TestNewMongoBadURI(t *testing.T) {
	_, err := NewMongo(context.Background(), "http://localhost:27017", "", "")
	if !apperr.Is(err, apperr.ErrCodeInvalidConfig) {
		t.Errorf("NewMongo = %v, want INVALID_CONFIG", err)
	}
}
