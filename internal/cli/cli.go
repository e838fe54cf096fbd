// Package cli implements the toposelect command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/DavidWHallberg/iotlab-topologies/pkg/buildinfo"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/cache"
)

const (
	// appName is the application name used for directories and display.
	appName = "toposelect"

	// Default directories, relative to the working directory as in the
	// measurement tooling this CLI sits next to.
	defaultDataDir    = "data"
	defaultResultsDir = "results"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Select deep, sparse topologies from testbed link measurements",
		Long: `toposelect searches a measured IoT-lab link graph for root nodes and link
quality bounds that yield deep trees or line chains with few nodes, and
renders the best candidates.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.sweepCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// cacheOptions selects the graph cache backend.
type cacheOptions struct {
	noCache  bool
	redisURL string
}

func (c *CLI) newCache(ctx context.Context, opts cacheOptions) (cache.Cache, error) {
	switch {
	case opts.noCache:
		return cache.NewNullCache(), nil
	case opts.redisURL != "":
		c.Logger.Debug("using redis cache")
		return cache.NewRedisCache(ctx, opts.redisURL)
	}
	dir, err := cacheDir()
	if err != nil {
		c.Logger.Warn("no cache directory, caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// cacheDir returns the cache directory using XDG standard (~/.cache/toposelect/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
