package sweep

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/DavidWHallberg/iotlab-topologies/pkg/selection"
)

// Table is the result of a sweep.
type Table struct {
	ID      uuid.UUID
	Site    string
	Name    string
	Created time.Time

	// Settings the sweep ran with. Every row carries its own copy.
	Kappa     selection.Kappa
	Margin    float64
	BackEdges bool
	Reduce    bool

	Rows     []selection.Record
	Failures []Failure
}

// settingsFromRows takes the table settings from the first row, for tables
// loaded from storage.
func (t *Table) settingsFromRows() {
	if len(t.Rows) == 0 {
		return
	}
	r := t.Rows[0]
	t.Kappa, t.Margin, t.BackEdges, t.Reduce = r.Kappa, r.Margin, r.BackEdges, r.Reduced
}

// Sort orders rows by (bound, root).
func (t *Table) Sort() {
	slices.SortStableFunc(t.Rows, func(a, b selection.Record) int {
		return cmp.Or(cmp.Compare(a.Bound, b.Bound), cmp.Compare(a.Root, b.Root))
	})
}

// Rank returns up to count rows, deepest first. Ties prefer fewer nodes,
// then the smaller bound, then the smaller root. A count <= 0 returns every
// row. The table itself is not reordered.
func (t *Table) Rank(count int) []selection.Record {
	ranked := slices.Clone(t.Rows)
	slices.SortStableFunc(ranked, compareRank)
	if count > 0 && count < len(ranked) {
		ranked = ranked[:count]
	}
	return ranked
}

func compareRank(a, b selection.Record) int {
	return cmp.Or(
		cmp.Compare(b.Depth, a.Depth),
		cmp.Compare(a.Nodes, b.Nodes),
		cmp.Compare(a.Bound, b.Bound),
		cmp.Compare(a.Root, b.Root),
	)
}

// Lookup returns the row for (bound, root).
func (t *Table) Lookup(bound selection.Bound, root int) (selection.Record, bool) {
	for _, r := range t.Rows {
		if r.Bound == bound && r.Root == root {
			return r, true
		}
	}
	return selection.Record{}, false
}
