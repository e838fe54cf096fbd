package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperr "github.com/DavidWHallberg/iotlab-topologies/pkg/errors"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/graph"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/render/nodelink"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/sweep"
)

// writeChain stores a symmetric chain 1-2-3-4 with a weak shortcut 1-3 as
// <dir>/grenoble-m3.json.
func writeChain(t *testing.T, dir string) {
	t.Helper()
	g := graph.New()
	for _, e := range [][3]float64{{1, 2, 10}, {2, 3, 10}, {3, 4, 10}, {1, 3, 30}} {
		for _, d := range [][2]int{{int(e[0]), int(e[1])}, {int(e[1]), int(e[0])}} {
			if err := g.AddEdge(d[0], d[1], e[2]); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := graph.WriteFile(g, filepath.Join(dir, "grenoble-m3.json")); err != nil {
		t.Fatal(err)
	}
}

func testSweepOptions(t *testing.T) sweepOptions {
	opts := defaultSweepOptions()
	opts.dataDir = t.TempDir()
	opts.resultsDir = t.TempDir()
	opts.kappa = "line"
	opts.from, opts.to = 10, 12
	opts.count = 2
	opts.workers = 2
	opts.format = nodelink.FormatDOT
	opts.cache.noCache = true
	writeChain(t, opts.dataDir)
	return opts
}

func TestRunSweep(t *testing.T) {
	opts := testSweepOptions(t)
	c := New(io.Discard, LogInfo)

	var out bytes.Buffer
	if err := c.runSweep(context.Background(), &out, "grenoble", "m3", opts); err != nil {
		t.Fatalf("runSweep: %v", err)
	}

	tbl, err := sweep.ReadFile(sweep.Path(opts.resultsDir, "grenoble", "m3"))
	if err != nil {
		t.Fatalf("result table: %v", err)
	}
	// 3 bounds (10, 11, unbounded) times 4 roots.
	if len(tbl.Rows) != 12 {
		t.Errorf("table has %d rows, want 12", len(tbl.Rows))
	}

	for _, n := range []int{1, 2} {
		path := plotPath(opts.resultsDir, "grenoble", "m3", n, nodelink.FormatDOT)
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("plot %d: %v", n, err)
		}
		if !strings.HasPrefix(string(data), "digraph G {") {
			t.Errorf("plot %d is not DOT: %q", n, data)
		}
	}
	if _, err := os.Stat(plotPath(opts.resultsDir, "grenoble", "m3", 3, nodelink.FormatDOT)); err == nil {
		t.Error("only --count plots should be written")
	}

	text := out.String()
	for _, want := range []string{"Topology with", "depth", "Graph plot in", "grenoble-m3-01.dot"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRunSweepPrintOnly(t *testing.T) {
	opts := testSweepOptions(t)
	opts.printOnly = true
	c := New(io.Discard, LogInfo)

	err := c.runSweep(context.Background(), io.Discard, "grenoble", "m3", opts)
	if !apperr.Is(err, apperr.ErrCodeTableNotFound) {
		t.Fatalf("print-only without table: err = %v, want TABLE_NOT_FOUND", err)
	}
	if msg := apperr.UserMessage(err); msg != "No CSV result file to read from" {
		t.Errorf("message = %q", msg)
	}

	opts.printOnly = false
	if err := c.runSweep(context.Background(), io.Discard, "grenoble", "m3", opts); err != nil {
		t.Fatal(err)
	}
	opts.printOnly = true
	opts.count = 1
	var out bytes.Buffer
	if err := c.runSweep(context.Background(), &out, "grenoble", "m3", opts); err != nil {
		t.Fatalf("print-only: %v", err)
	}
	if !strings.Contains(out.String(), "Read 12 rows") {
		t.Errorf("output missing row count:\n%s", out.String())
	}
}

func TestSweepOptionsConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*sweepOptions)
		code   apperr.Code
	}{
		{"defaults", func(*sweepOptions) {}, ""},
		{"bad kappa", func(o *sweepOptions) { o.kappa = "star" }, apperr.ErrCodeInvalidConfig},
		{"negative margin", func(o *sweepOptions) { o.margin = -1 }, apperr.ErrCodeInvalidConfig},
		{"zero step", func(o *sweepOptions) { o.step = 0 }, apperr.ErrCodeInvalidConfig},
		{"negative count", func(o *sweepOptions) { o.count = -2 }, apperr.ErrCodeInvalidConfig},
		{"pdf", func(o *sweepOptions) { o.format = "pdf" }, apperr.ErrCodeInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultSweepOptions()
			tt.modify(&opts)
			cfg, err := opts.config()
			if tt.code == "" {
				if err != nil {
					t.Fatalf("config() = %v", err)
				}
				if !cfg.Reduce || !cfg.BackEdges || len(cfg.Bounds.Bounds()) != 41 {
					t.Errorf("unexpected defaults %+v", cfg)
				}
				return
			}
			if !apperr.Is(err, tt.code) {
				t.Errorf("config() = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestSweepBackEdgesFlag(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{nil, "true"},
		{[]string{"--back-edges=false"}, "false"},
	}
	for _, tt := range tests {
		cmd := New(io.Discard, LogInfo).sweepCommand()
		if err := cmd.ParseFlags(tt.args); err != nil {
			t.Fatal(err)
		}
		if got := cmd.Flags().Lookup("back-edges").Value.String(); got != tt.want {
			t.Errorf("%v: back-edges = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestPlotPath(t *testing.T) {
	got := plotPath("results", "lille", "a8", 3, "png")
	if want := filepath.Join("results", "lille-a8-03.png"); got != want {
		t.Errorf("plotPath = %q, want %q", got, want)
	}
}
