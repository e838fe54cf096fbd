package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	apperr "github.com/DavidWHallberg/iotlab-topologies/pkg/errors"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/graph"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/loader"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/observability"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/render/nodelink"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/selection"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/store"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/sweep"
)

// sweepOptions holds the flags of the sweep command.
type sweepOptions struct {
	margin      float64
	kappa       string
	noReduction bool
	backEdges   bool
	reload      bool
	count       int
	printOnly   bool
	from        float64
	to          float64
	step        float64
	noUnbounded bool
	workers     int
	dataDir     string
	resultsDir  string
	configPath  string
	format      string
	interactive bool
	mongoURI    string
	mongoDB     string
	cache       cacheOptions
}

func defaultSweepOptions() sweepOptions {
	return sweepOptions{
		margin:     selection.DefaultMargin,
		kappa:      selection.Tree.String(),
		backEdges:  true,
		count:      5,
		from:       sweep.DefaultFrom,
		to:         sweep.DefaultTo,
		step:       sweep.DefaultStep,
		dataDir:    defaultDataDir,
		resultsDir: defaultResultsDir,
		format:     nodelink.FormatPNG,
		mongoDB:    store.DefaultDatabase,
	}
}

// sweepCommand creates the sweep command.
func (c *CLI) sweepCommand() *cobra.Command {
	opts := defaultSweepOptions()

	cmd := &cobra.Command{
		Use:   "sweep <site> <name>",
		Short: "Sweep link bounds and roots, then print and draw the deepest topologies",
		Long: `Sweep runs the topology selection for every link bound in the configured
range and every node of the measurement graph as root, writes the result
table to <results>/<site>-<name>.csv, and prints the deepest topologies.

The measurement graph is read from <data>/<site>-<name>.json or .csv and
cached; use --reload after a new channel measurement.`,
		Example: `  toposelect sweep grenoble m3-exp42
  toposelect sweep grenoble m3-exp42 --kappa line --margin 6 --count 10
  toposelect sweep grenoble m3-exp42 --print-only --format svg`,
		Args: cobra.ExactArgs(2),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.configPath == "" {
				return nil
			}
			fc, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			return fc.apply(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSweep(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], opts)
		},
	}

	f := cmd.Flags()
	f.Float64VarP(&opts.margin, "margin", "m", opts.margin, "avoidance margin added to the bound")
	f.StringVarP(&opts.kappa, "kappa", "k", opts.kappa, "growth policy: tree (depth+1 nodes per level) or line (one node per level)")
	f.BoolVarP(&opts.noReduction, "no-reduction", "n", false, "skip the node reduction step")
	f.BoolVar(&opts.backEdges, "back-edges", opts.backEdges, "record links from a node to already admitted shallower nodes (--back-edges=false to skip)")
	f.BoolVarP(&opts.reload, "reload", "r", false, "reload the cached graph (after a new channel measurement)")
	f.IntVarP(&opts.count, "count", "c", opts.count, "number of topologies to print, deepest first")
	f.BoolVarP(&opts.printOnly, "print-only", "p", false, "only read and print an existing result table")
	f.Float64Var(&opts.from, "from", opts.from, "first bound of the sweep")
	f.Float64Var(&opts.to, "to", opts.to, "end of the bound range (exclusive)")
	f.Float64Var(&opts.step, "step", opts.step, "bound increment")
	f.BoolVar(&opts.noUnbounded, "no-unbounded", false, "do not add the unbounded run")
	f.IntVar(&opts.workers, "workers", 0, "concurrent runs (default: number of CPUs)")
	f.StringVar(&opts.dataDir, "data", opts.dataDir, "directory holding measurement files")
	f.StringVar(&opts.resultsDir, "results", opts.resultsDir, "directory for result tables and plots")
	f.StringVar(&opts.configPath, "config", "", "TOML file with defaults for these flags")
	f.StringVarP(&opts.format, "format", "f", opts.format, "plot format: png, svg or dot")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "pick the topology to draw from the ranked table")
	f.BoolVar(&opts.cache.noCache, "no-cache", false, "disable the graph cache")
	f.StringVar(&opts.cache.redisURL, "redis-url", "", "use a Redis graph cache (redis://host:6379/0)")
	f.StringVar(&opts.mongoURI, "mongo-uri", "", "also store result tables in MongoDB")
	f.StringVar(&opts.mongoDB, "mongo-db", opts.mongoDB, "MongoDB database for result tables")

	_ = cmd.RegisterFlagCompletionFunc("kappa", cobra.FixedCompletions([]string{"tree", "line"}, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(nodelink.Formats, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

// config builds and validates the sweep configuration.
func (o sweepOptions) config() (sweep.Config, error) {
	kappa, err := selection.ParseKappa(o.kappa)
	if err != nil {
		return sweep.Config{}, err
	}
	cfg := sweep.Config{
		Bounds:    sweep.Range{From: o.from, To: o.to, Step: o.step, Unbounded: !o.noUnbounded},
		Kappa:     kappa,
		Margin:    o.margin,
		BackEdges: o.backEdges,
		Reduce:    !o.noReduction,
		Workers:   o.workers,
	}
	if err := cfg.Validate(); err != nil {
		return sweep.Config{}, err
	}
	if o.count < 0 {
		return sweep.Config{}, apperr.New(apperr.ErrCodeInvalidConfig, "count must not be negative, got %d", o.count)
	}
	if err := nodelink.ValidateFormat(o.format); err != nil {
		return sweep.Config{}, err
	}
	return cfg, nil
}

func (c *CLI) runSweep(ctx context.Context, w io.Writer, site, name string, opts sweepOptions) error {
	out := printer{w: w}
	cfg, err := opts.config()
	if err != nil {
		return err
	}

	gc, err := c.newCache(ctx, opts.cache)
	if err != nil {
		return err
	}
	defer gc.Close()

	ld := loader.New(opts.dataDir, gc, nil, c.Logger)
	res, err := ld.Load(ctx, site, name, opts.reload)
	if err != nil {
		return err
	}
	g := res.Graph
	out.info("Graph %s-%s", site, name)
	out.stats(g.NodeCount(), g.EdgeCount(), res.Cached)

	stores, err := c.openStores(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range stores {
			if err := s.Close(context.WithoutCancel(ctx)); err != nil {
				c.Logger.Warn("close store", "err", err)
			}
		}
	}()

	var tbl *sweep.Table
	if opts.printOnly {
		tbl, err = stores[len(stores)-1].Latest(ctx, site, name)
		if err != nil {
			return err
		}
		out.info("Read %d rows", len(tbl.Rows))
	} else {
		tbl, err = c.sweepGraph(ctx, g, cfg)
		if err != nil {
			return err
		}
		tbl.Site, tbl.Name = site, name
		for _, s := range stores {
			if err := s.Save(ctx, tbl); err != nil {
				return fmt.Errorf("save results: %w", err)
			}
		}
		out.success("Swept %d runs", len(tbl.Rows)+len(tbl.Failures))
		out.file(sweep.Path(opts.resultsDir, site, name))
		for _, f := range tbl.Failures {
			out.warning("%v", f)
		}
	}

	ranked := tbl.Rank(opts.count)
	if len(ranked) == 0 {
		out.warning("No topologies to print")
		return nil
	}
	if opts.interactive {
		rec, ok, err := pickRecord(ctx, ranked)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		ranked = []selection.Record{rec}
	} else {
		out.line(rankTable(ranked).Render())
	}

	runOpts := cfg.RunOptions()
	for i, rec := range ranked {
		if err := c.drawTopology(ctx, out, g, rec, runOpts, plotPath(opts.resultsDir, site, name, i+1, opts.format)); err != nil {
			return err
		}
	}
	return nil
}

// sweepGraph runs the bound sweep, animating progress when stderr is a terminal.
func (c *CLI) sweepGraph(ctx context.Context, g *graph.Graph, cfg sweep.Config) (*sweep.Table, error) {
	prog := newProgress(c.Logger)
	cfg.Logger = c.Logger

	if c.Logger.GetLevel() > log.DebugLevel && isatty.IsTerminal(os.Stderr.Fd()) {
		sp := newSweepSpinner(os.Stderr)
		prev := observability.Sweep()
		observability.SetSweepHooks(sp)
		defer observability.SetSweepHooks(prev)

		// Per-bound lines would tear through the animation.
		cfg.Logger = c.Logger.With()
		cfg.Logger.SetLevel(log.WarnLevel)

		sp.Start(ctx)
		defer sp.Stop()
	}

	tbl, err := sweep.Run(ctx, g, cfg)
	if err != nil {
		return nil, err
	}
	prog.done("sweep complete", "rows", len(tbl.Rows), "failures", len(tbl.Failures))
	return tbl, nil
}

// openStores returns the result stores, CSV first. The last store is the
// one read by --print-only.
func (c *CLI) openStores(ctx context.Context, opts sweepOptions) ([]store.Store, error) {
	stores := []store.Store{store.NewDir(opts.resultsDir)}
	if opts.mongoURI == "" {
		return stores, nil
	}
	m, err := store.NewMongo(ctx, opts.mongoURI, opts.mongoDB, store.DefaultCollection)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("storing results in mongodb", "db", opts.mongoDB)
	return append(stores, m), nil
}

// replayOptions returns the settings rec was computed with, or fallback for
// rows of tables that do not store them.
func replayOptions(rec selection.Record, fallback selection.RunOptions) selection.RunOptions {
	if opts, ok := rec.RunOptions(); ok {
		return opts
	}
	return fallback
}

// drawTopology recomputes rec, prints its summary and writes the plot.
// fallback applies only to rows without stored settings.
func (c *CLI) drawTopology(ctx context.Context, out printer, g *graph.Graph, rec selection.Record, fallback selection.RunOptions, path string) error {
	_, x, err := selection.Run(ctx, g, rec.Bound, rec.Root, replayOptions(rec, fallback))
	if err != nil {
		return fmt.Errorf("recompute bound %v root %d: %w", rec.Bound, rec.Root, err)
	}
	out.topology(rec, x.Structure.Nodes())

	dot := nodelink.ToDOT(x.Structure, nodelink.Options{Root: rec.Root})
	data, err := nodelink.Render(ctx, dot, filepath.Ext(path)[1:])
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	out.line("Graph plot in " + path)
	return nil
}

// plotPath returns <dir>/<site>-<name>-NN.<format>, NN counting from 1.
func plotPath(dir, site, name string, n int, format string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s-%02d.%s", site, name, n, format))
}
