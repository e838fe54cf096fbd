package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	apperr "github.com/DavidWHallberg/iotlab-topologies/pkg/errors"
)

// fileConfig is the optional TOML configuration file. Keys match the long
// flag names; a flag given on the command line wins over the file.
//
//	kappa = "line"
//	margin = 6
//	workers = 8
//	data = "/srv/measurements"
//
//	[bounds]
//	from = 40
//	to = 60
//	unbounded = false
type fileConfig struct {
	Margin      *float64 `toml:"margin"`
	Kappa       *string  `toml:"kappa"`
	NoReduction *bool    `toml:"no-reduction"`
	BackEdges   *bool    `toml:"back-edges"`
	Count       *int     `toml:"count"`
	Workers     *int     `toml:"workers"`
	Data        *string  `toml:"data"`
	Results     *string  `toml:"results"`
	Format      *string  `toml:"format"`
	RedisURL    *string  `toml:"redis-url"`
	MongoURI    *string  `toml:"mongo-uri"`
	MongoDB     *string  `toml:"mongo-db"`
	Bounds      struct {
		From      *float64 `toml:"from"`
		To        *float64 `toml:"to"`
		Step      *float64 `toml:"step"`
		Unbounded *bool    `toml:"unbounded"`
	} `toml:"bounds"`
}

// loadConfig decodes the TOML file at path. Unknown keys are rejected so
// that typos do not silently fall back to defaults.
func loadConfig(path string) (*fileConfig, error) {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.Wrap(apperr.ErrCodeNotFound, err, "config file %s", path)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, apperr.New(apperr.ErrCodeInvalidConfig, "config %s: unknown key %q", path, undecoded[0].String())
	}
	return &fc, nil
}

// apply sets every flag present in the file that was not given explicitly.
func (fc *fileConfig) apply(flags *pflag.FlagSet) error {
	set := func(name, value string) error {
		if flags.Lookup(name) == nil || flags.Changed(name) {
			return nil
		}
		if err := flags.Set(name, value); err != nil {
			return apperr.Wrap(apperr.ErrCodeInvalidConfig, err, "config key %s", name)
		}
		return nil
	}
	float := func(v *float64) string { return strconv.FormatFloat(*v, 'g', -1, 64) }

	var errs []error
	if fc.Margin != nil {
		errs = append(errs, set("margin", float(fc.Margin)))
	}
	if fc.Kappa != nil {
		errs = append(errs, set("kappa", *fc.Kappa))
	}
	if fc.NoReduction != nil {
		errs = append(errs, set("no-reduction", strconv.FormatBool(*fc.NoReduction)))
	}
	if fc.BackEdges != nil {
		errs = append(errs, set("back-edges", strconv.FormatBool(*fc.BackEdges)))
	}
	if fc.Count != nil {
		errs = append(errs, set("count", strconv.Itoa(*fc.Count)))
	}
	if fc.Workers != nil {
		errs = append(errs, set("workers", strconv.Itoa(*fc.Workers)))
	}
	for name, v := range map[string]*string{
		"data": fc.Data, "results": fc.Results, "format": fc.Format,
		"redis-url": fc.RedisURL, "mongo-uri": fc.MongoURI, "mongo-db": fc.MongoDB,
	} {
		if v != nil {
			errs = append(errs, set(name, *v))
		}
	}
	b := fc.Bounds
	if b.From != nil {
		errs = append(errs, set("from", float(b.From)))
	}
	if b.To != nil {
		errs = append(errs, set("to", float(b.To)))
	}
	if b.Step != nil {
		errs = append(errs, set("step", float(b.Step)))
	}
	if b.Unbounded != nil {
		errs = append(errs, set("no-unbounded", strconv.FormatBool(!*b.Unbounded)))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("apply config: %w", err)
	}
	return nil
}
