package sweep

import (
	"io"
	"math"
	"runtime"

	"github.com/charmbracelet/log"

	apperr "github.com/DavidWHallberg/iotlab-topologies/pkg/errors"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/selection"
)

// Default bound range: every integer in [35, 75) and the unbounded sentinel.
const (
	DefaultFrom = 35
	DefaultTo   = 75
	DefaultStep = 1
)

// Range describes the bounds of a sweep: From, From+Step, ... while < To,
// followed by [selection.Unbounded] when Unbounded is set.
type Range struct {
	From      float64 `toml:"from"`
	To        float64 `toml:"to"`
	Step      float64 `toml:"step"`
	Unbounded bool    `toml:"unbounded"`
}

// DefaultRange returns the range used by the command line tool.
func DefaultRange() Range {
	return Range{From: DefaultFrom, To: DefaultTo, Step: DefaultStep, Unbounded: true}
}

// Validate reports empty or malformed ranges.
func (r Range) Validate() error {
	for _, v := range []float64{r.From, r.To, r.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return apperr.New(apperr.ErrCodeInvalidConfig, "bound range values must be finite numbers")
		}
	}
	if r.Step <= 0 {
		return apperr.New(apperr.ErrCodeInvalidConfig, "bound step must be positive, got %v", r.Step)
	}
	if r.From < 0 {
		return apperr.New(apperr.ErrCodeInvalidConfig, "bounds must be non-negative, got %v", r.From)
	}
	if r.To <= r.From && !r.Unbounded {
		return apperr.New(apperr.ErrCodeInvalidConfig, "empty bound range [%v, %v)", r.From, r.To)
	}
	return nil
}

// Bounds expands r into ascending bounds.
func (r Range) Bounds() []selection.Bound {
	var bounds []selection.Bound
	for i := 0; ; i++ {
		b := r.From + float64(i)*r.Step
		if b >= r.To {
			break
		}
		bounds = append(bounds, selection.Bound(b))
	}
	if r.Unbounded {
		bounds = append(bounds, selection.Unbounded)
	}
	return bounds
}

// Config configures a sweep.
type Config struct {
	Bounds    Range
	Kappa     selection.Kappa
	Margin    float64
	BackEdges bool
	Reduce    bool

	// Workers caps concurrent runs. Zero means runtime.GOMAXPROCS(0).
	Workers int

	// Logger receives progress lines. Nil discards them.
	Logger *log.Logger
}

// DefaultConfig mirrors the command line defaults: tree policy, margin 8,
// back-edges recorded, reduction on, bounds 35..74 plus unbounded.
func DefaultConfig() Config {
	return Config{
		Bounds:    DefaultRange(),
		Kappa:     selection.Tree,
		Margin:    selection.DefaultMargin,
		BackEdges: true,
		Reduce:    true,
	}
}

// Validate checks the whole configuration before any run starts.
func (c Config) Validate() error {
	if err := c.Bounds.Validate(); err != nil {
		return err
	}
	if c.Workers < 0 {
		return apperr.New(apperr.ErrCodeInvalidConfig, "workers must not be negative, got %d", c.Workers)
	}
	return c.RunOptions().Validate()
}

// RunOptions returns the per-run options derived from c.
func (c Config) RunOptions() selection.RunOptions {
	return selection.RunOptions{
		Options: selection.Options{Policy: c.Kappa, Margin: c.Margin, BackEdges: c.BackEdges},
		Reduce:  c.Reduce,
	}
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.New(io.Discard)
}
