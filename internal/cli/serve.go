package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/DavidWHallberg/iotlab-topologies/pkg/cache"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/loader"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/store"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	addr       string
	dataDir    string
	resultsDir string
	mongoURI   string
	mongoDB    string
	cache      cacheOptions
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOptions{
		addr:       "localhost:8080",
		dataDir:    defaultDataDir,
		resultsDir: defaultResultsDir,
		mongoDB:    store.DefaultDatabase,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored sweep results and rendered topologies over HTTP",
		Long: `Serve exposes the latest sweep of each site and experiment:

  GET /healthz
  GET /results/{site}/{name}?count=N
  GET /topologies/{site}/{name}/{rank}.{svg|png|dot}

Topologies are recomputed with the settings stored in their result row
and cached per sweep.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", opts.addr, "listen address")
	f.StringVar(&opts.dataDir, "data", opts.dataDir, "directory holding measurement files")
	f.StringVar(&opts.resultsDir, "results", opts.resultsDir, "directory of result tables")
	f.StringVar(&opts.mongoURI, "mongo-uri", "", "read result tables from MongoDB instead of CSV files")
	f.StringVar(&opts.mongoDB, "mongo-db", opts.mongoDB, "MongoDB database for result tables")
	f.BoolVar(&opts.cache.noCache, "no-cache", false, "disable the graph and render cache")
	f.StringVar(&opts.cache.redisURL, "redis-url", "", "use a Redis cache (redis://host:6379/0)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOptions) error {
	gc, err := c.newCache(ctx, opts.cache)
	if err != nil {
		return err
	}
	defer gc.Close()

	var st store.Store = store.NewDir(opts.resultsDir)
	if opts.mongoURI != "" {
		if st, err = store.NewMongo(ctx, opts.mongoURI, opts.mongoDB, store.DefaultCollection); err != nil {
			return err
		}
	}
	defer st.Close(context.WithoutCancel(ctx))

	keyer := cache.NewDefaultKeyer()
	s := &server{
		loader: loader.New(opts.dataDir, gc, keyer, c.Logger),
		store:  st,
		cache:  gc,
		keyer:  keyer,
		logger: c.Logger,
	}

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", opts.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
