package loader

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/DavidWHallberg/iotlab-topologies/pkg/cache"
	apperr "github.com/DavidWHallberg/iotlab-topologies/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCaches(t *testing.T) {
	ctx := context.Background()
	data := t.TempDir()
	writeFile(t, data, "grenoble-m3.csv", "from,to,weight\n1,2,38\n2,1,40\n")

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	l := New(data, c, nil, nil)

	first, err := l.Load(ctx, "grenoble", "m3", false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if first.Cached || first.Graph.EdgeCount() != 2 {
		t.Errorf("first load: cached=%v edges=%d", first.Cached, first.Graph.EdgeCount())
	}

	// The cache now serves the graph even without the source file.
	if err := os.Remove(filepath.Join(data, "grenoble-m3.csv")); err != nil {
		t.Fatal(err)
	}
	second, err := l.Load(ctx, "grenoble", "m3", false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !second.Cached || second.Graph.EdgeCount() != 2 {
		t.Errorf("second load: cached=%v edges=%d", second.Cached, second.Graph.EdgeCount())
	}

	// A forced reload goes back to the (now missing) file.
	if _, err := l.Load(ctx, "grenoble", "m3", true); !apperr.Is(err, apperr.ErrCodeGraphNotFound) {
		t.Errorf("reload err = %v, want GRAPH_NOT_FOUND", err)
	}
}

func TestLoadReloadRefreshes(t *testing.T) {
	ctx := context.Background()
	data := t.TempDir()
	writeFile(t, data, "lille-a8.csv", "1,2,10\n")
	c, _ := cache.NewFileCache(t.TempDir())
	l := New(data, c, nil, nil)

	if _, err := l.Load(ctx, "lille", "a8", false); err != nil {
		t.Fatal(err)
	}
	writeFile(t, data, "lille-a8.csv", "1,2,10\n2,3,12\n")

	cached, _ := l.Load(ctx, "lille", "a8", false)
	if cached.Graph.EdgeCount() != 1 {
		t.Errorf("cached graph has %d edges, want 1", cached.Graph.EdgeCount())
	}
	fresh, err := l.Load(ctx, "lille", "a8", true)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.Cached || fresh.Graph.EdgeCount() != 2 {
		t.Errorf("reload: cached=%v edges=%d", fresh.Cached, fresh.Graph.EdgeCount())
	}
	again, _ := l.Load(ctx, "lille", "a8", false)
	if again.Graph.EdgeCount() != 2 {
		t.Errorf("cache not refreshed: %d edges", again.Graph.EdgeCount())
	}
}

func TestLoadPrefersJSON(t *testing.T) {
	data := t.TempDir()
	writeFile(t, data, "saclay-m3.csv", "1,2,10\n")
	want := writeFile(t, data, "saclay-m3.json", `{"nodes":[1,2,3],"edges":[{"from":1,"to":2,"weight":10}]}`)

	l := New(data, nil, nil, nil)
	res, err := l.Load(context.Background(), "saclay", "m3", false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Source != want || res.Graph.NodeCount() != 3 {
		t.Errorf("source %s with %d nodes, want %s with 3", res.Source, res.Graph.NodeCount(), want)
	}
}

func TestLoadErrors(t *testing.T) {
	data := t.TempDir()
	writeFile(t, data, "paris-bad.csv", "1,2,10\n3,4,x\n")
	l := New(data, nil, nil, nil)

	tests := []struct {
		site, name string
		code       apperr.Code
	}{
		{"../etc", "m3", apperr.ErrCodeInvalidName},
		{"grenoble", "", apperr.ErrCodeInvalidName},
		{"grenoble", "missing", apperr.ErrCodeGraphNotFound},
		{"paris", "bad", apperr.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		_, err := l.Load(context.Background(), tt.site, tt.name, false)
		if !apperr.Is(err, tt.code) {
			t.Errorf("Load(%q, %q) = %v, want %s", tt.site, tt.name, err, tt.code)
		}
	}
}

func TestLoadConcurrent(t *testing.T) {
	data := t.TempDir()
	writeFile(t, data, "strasbourg-wsn430.csv", "1,2,10\n2,3,10\n")
	c, _ := cache.NewFileCache(t.TempDir())
	l := New(data, c, nil, nil)

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := l.Load(context.Background(), "strasbourg", "wsn430", false)
			if err == nil && res.Graph.NodeCount() != 3 {
				t.Errorf("got %d nodes", res.Graph.NodeCount())
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Errorf("Load: %v", err)
		}
	}
}
