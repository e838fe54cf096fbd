package sweep

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperr "github.com/DavidWHallberg/iotlab-topologies/pkg/errors"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/selection"
)

// ErrNoTable is returned when no stored result table exists.
var ErrNoTable = apperr.New(apperr.ErrCodeTableNotFound, "No CSV result file to read from")

// Columns is the CSV header.
var Columns = []string{"bound", "root", "depth", "allnodes", "nodes", "maxweight", "kappa", "margin", "backedges", "reduced"}

// required columns; the run settings are optional on read.
const requiredColumns = 6

// WriteCSV writes the table rows with a header line.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range t.Rows {
		rec := []string{
			r.Bound.String(),
			strconv.Itoa(r.Root),
			strconv.Itoa(r.Depth),
			strconv.Itoa(r.AllNodes),
			strconv.Itoa(r.Nodes),
			strconv.FormatFloat(r.MaxWeight, 'f', -1, 64),
			r.Kappa.String(),
			strconv.FormatFloat(r.Margin, 'f', -1, 64),
			strconv.FormatBool(r.BackEdges),
			strconv.FormatBool(r.Reduced),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a table written by [Table.WriteCSV]. Columns are matched by
// header name, so files with reordered columns or without the run settings
// are accepted. Missing backedges and reduced columns read as true, which is
// how tables without them were computed.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.New(apperr.ErrCodeInvalidInput, "empty result table")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidInput, err, "read header")
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range Columns[:requiredColumns] {
		if _, ok := col[name]; !ok {
			return nil, apperr.New(apperr.ErrCodeInvalidInput, "result table lacks column %q", name)
		}
	}

	t := &Table{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrCodeInvalidInput, err, "read result table")
		}
		line, _ := cr.FieldPos(0)
		row, err := parseRow(rec, col)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrCodeInvalidInput, err, "line %d", line)
		}
		t.Rows = append(t.Rows, row)
	}
	t.settingsFromRows()
	t.Sort()
	return t, nil
}

func parseRow(rec []string, col map[string]int) (selection.Record, error) {
	field := func(name string) (string, bool) {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return "", false
		}
		return strings.TrimSpace(rec[i]), true
	}
	ints := func(name string) (int, error) {
		s, _ := field(name)
		n, err := strconv.Atoi(s)
		if err != nil {
			// Older tables store integral columns as floats ("3.0").
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil || f != float64(int(f)) {
				return 0, fmt.Errorf("column %s: %w", name, err)
			}
			n = int(f)
		}
		return n, nil
	}

	r := selection.Record{BackEdges: true, Reduced: true}
	var err error
	s, _ := field("bound")
	if r.Bound, err = selection.ParseBound(s); err != nil {
		return r, err
	}
	if r.Root, err = ints("root"); err != nil {
		return r, err
	}
	if r.Depth, err = ints("depth"); err != nil {
		return r, err
	}
	if r.AllNodes, err = ints("allnodes"); err != nil {
		return r, err
	}
	if r.Nodes, err = ints("nodes"); err != nil {
		return r, err
	}
	s, _ = field("maxweight")
	if r.MaxWeight, err = strconv.ParseFloat(s, 64); err != nil {
		return r, fmt.Errorf("column maxweight: %w", err)
	}
	if s, ok := field("kappa"); ok && s != "" {
		if r.Kappa, err = selection.ParseKappa(s); err != nil {
			return r, err
		}
	}
	if s, ok := field("margin"); ok && s != "" {
		if r.Margin, err = strconv.ParseFloat(s, 64); err != nil {
			return r, fmt.Errorf("column margin: %w", err)
		}
	}
	if s, ok := field("backedges"); ok && s != "" {
		if r.BackEdges, err = strconv.ParseBool(s); err != nil {
			return r, fmt.Errorf("column backedges: %w", err)
		}
	}
	if s, ok := field("reduced"); ok && s != "" {
		if r.Reduced, err = strconv.ParseBool(s); err != nil {
			return r, fmt.Errorf("column reduced: %w", err)
		}
	}
	return r, nil
}

// Path returns the CSV location of the table for site and name.
func Path(dir, site, name string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s.csv", site, name))
}

// WriteFile writes t as CSV to path, creating parent directories.
func (t *Table) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ReadFile reads a CSV table from path. A missing file yields [ErrNoTable].
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoTable
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}
