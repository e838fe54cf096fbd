// Package store persists sweep result tables.
//
// [Dir] keeps one CSV file per site and experiment name, the format the
// command line tool always writes. [Mongo] keeps every sweep as row
// documents in a MongoDB collection so that results from several machines
// can be queried together.
package store

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/google/uuid"

	apperr "github.com/DavidWHallberg/iotlab-topologies/pkg/errors"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/sweep"
)

// Store saves and loads result tables.
type Store interface {
	// Save persists t under t.Site and t.Name.
	Save(ctx context.Context, t *sweep.Table) error

	// Latest returns the most recent table for site and name, or an error
	// matching sweep.ErrNoTable.
	Latest(ctx context.Context, site, name string) (*sweep.Table, error)

	Close(ctx context.Context) error
}

// Dir stores tables as <dir>/<site>-<name>.csv.
type Dir struct {
	Path string
}

// NewDir creates a CSV store under path.
func NewDir(path string) *Dir { return &Dir{Path: path} }

// Save writes t, replacing any earlier table for the same site and name.
func (d *Dir) Save(_ context.Context, t *sweep.Table) error {
	if err := validate(t.Site, t.Name); err != nil {
		return err
	}
	return t.WriteFile(sweep.Path(d.Path, t.Site, t.Name))
}

// Latest reads the table for site and name. CSV files carry no sweep ID,
// so the ID is derived from the file contents: it changes exactly when the
// table is rewritten.
func (d *Dir) Latest(_ context.Context, site, name string) (*sweep.Table, error) {
	if err := validate(site, name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(sweep.Path(d.Path, site, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, sweep.ErrNoTable
	}
	if err != nil {
		return nil, err
	}
	t, err := sweep.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	t.ID = uuid.NewSHA1(uuid.NameSpaceOID, data)
	t.Site, t.Name = site, name
	return t, nil
}

// Close does nothing.
func (d *Dir) Close(context.Context) error { return nil }

func validate(site, name string) error {
	if err := apperr.ValidateName("site", site); err != nil {
		return err
	}
	return apperr.ValidateName("name", name)
}

var _ Store = (*Dir)(nil)
