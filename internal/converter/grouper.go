package converter

import (
	"sort"

	"github.com/ginjaninja78/ttd-writer/internal/types"
)

// Column names of the path/value input format.
const (
	PathColumn  = "path"
	ValueColumn = "value"
)

// Group is the set of rows sharing one identifier tuple.
type Group struct {
	// Keys holds the identifier values in identifier-column order.
	Keys []string

	// Rows are the group's rows in input order.
	Rows []types.FlatRow
}

// GroupRows stable-sorts rows by their identifier tuple and groups
// consecutive rows sharing it. Groups come out in the sort order of the
// identifier values, not in file order.
func GroupRows(rows []types.FlatRow, idColumns []string) []Group {
	sorted := make([]types.FlatRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return compareKeys(keyOf(sorted[i], idColumns), keyOf(sorted[j], idColumns)) < 0
	})

	var groups []Group
	for _, row := range sorted {
		k := keyOf(row, idColumns)
		if n := len(groups); n > 0 && compareKeys(groups[n-1].Keys, k) == 0 {
			groups[n-1].Rows = append(groups[n-1].Rows, row)
			continue
		}
		groups = append(groups, Group{Keys: k, Rows: []types.FlatRow{row}})
	}
	return groups
}

// Document tangles the group's path/value pairs into one nested document.
// With includeID the identifier values are added as top-level fields named
// by idFields.
func (g Group) Document(idFields []string, includeID bool) (types.Document, error) {
	pairs := make([]types.PathValue, 0, len(g.Rows)+len(idFields))
	for _, row := range g.Rows {
		pairs = append(pairs, types.PathValue{Path: row[PathColumn], Value: row[ValueColumn]})
	}
	if includeID {
		for i, field := range idFields {
			pairs = append(pairs, types.PathValue{Path: field, Value: g.Keys[i]})
		}
	}
	return Tangle(pairs)
}

func keyOf(row types.FlatRow, idColumns []string) []string {
	k := make([]string, len(idColumns))
	for i, col := range idColumns {
		k[i] = row[col]
	}
	return k
}

func compareKeys(a, b []string) int {
	for i := range a {
		if i >= len(b) {
			return 1
		}
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	if len(a) < len(b) {
		return -1
	}
	return 0
}
