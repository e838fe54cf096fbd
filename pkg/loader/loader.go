// Package loader resolves testbed measurement graphs by site and
// experiment name, going through a cache.
//
// A graph is looked up under [cache.Keyer.GraphKey]. On a miss, or when a
// reload is forced, the measurement file <dir>/<site>-<name>.json (or .csv)
// is parsed and the result written back to the cache. Concurrent loads of
// the same graph share one parse.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/DavidWHallberg/iotlab-topologies/pkg/cache"
	apperr "github.com/DavidWHallberg/iotlab-topologies/pkg/errors"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/graph"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/observability"
)

// TTLGraph is the cache lifetime of a parsed graph. Measurements of a past
// experiment never change, so entries live until a forced reload.
const TTLGraph time.Duration = 0

// Extensions lists the measurement file extensions tried, in order.
var Extensions = []string{".json", ".csv"}

// Loader loads measurement graphs.
type Loader struct {
	Dir    string
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	group singleflight.Group
}

// New creates a loader reading measurement files from dir.
// A nil cache disables caching, a nil keyer uses [cache.DefaultKeyer] and a
// nil logger discards output.
func New(dir string, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Loader {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Loader{Dir: dir, Cache: c, Keyer: keyer, Logger: logger}
}

// Result is a loaded graph and whether it came from the cache.
type Result struct {
	Graph  *graph.Graph
	Cached bool
	Source string // measurement file, empty on a cache hit
}

// Load returns the graph for site and name. With reload set the cache is
// bypassed and refreshed from the measurement file.
func (l *Loader) Load(ctx context.Context, site, name string, reload bool) (*Result, error) {
	if err := apperr.ValidateName("site", site); err != nil {
		return nil, err
	}
	if err := apperr.ValidateName("name", name); err != nil {
		return nil, err
	}

	key := l.Keyer.GraphKey(site, name)
	flight := key
	if reload {
		flight += "#reload"
	}
	v, err, _ := l.group.Do(flight, func() (any, error) {
		return l.load(ctx, key, site, name, reload)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (l *Loader) load(ctx context.Context, key, site, name string, reload bool) (*Result, error) {
	if !reload {
		data, hit, err := l.Cache.Get(ctx, key)
		switch {
		case err != nil:
			l.Logger.Warn("graph cache unavailable", "key", key, "err", err)
		case hit:
			g, err := graph.ReadGraph(bytes.NewReader(data))
			if err == nil {
				observability.Cache().OnCacheHit(ctx, "graph")
				l.Logger.Debug("graph cache hit", "site", site, "name", name, "nodes", g.NodeCount())
				return &Result{Graph: g, Cached: true}, nil
			}
			l.Logger.Warn("discarding unreadable cache entry", "key", key, "err", err)
		}
		observability.Cache().OnCacheMiss(ctx, "graph")
	}

	path, err := l.find(site, name)
	if err != nil {
		return nil, err
	}
	g, err := graph.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidInput, err, "parse %s", path)
	}
	l.Logger.Info("loaded measurements", "file", path, "nodes", g.NodeCount(), "edges", g.EdgeCount())

	if data, err := graph.MarshalGraph(g); err == nil {
		if err := l.Cache.Set(ctx, key, data, TTLGraph); err != nil {
			l.Logger.Warn("graph cache write failed", "key", key, "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "graph", len(data))
		}
	}
	return &Result{Graph: g, Source: path}, nil
}

// Path returns the measurement file for site and name.
func (l *Loader) Path(site, name string) (string, error) { return l.find(site, name) }

func (l *Loader) find(site, name string) (string, error) {
	base := filepath.Join(l.Dir, fmt.Sprintf("%s-%s", site, name))
	for _, ext := range Extensions {
		path := base + ext
		_, err := os.Stat(path)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
	}
	return "", apperr.New(apperr.ErrCodeGraphNotFound, "no measurements for %s/%s in %s", site, name, l.Dir)
}
