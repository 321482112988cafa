package engine

import (
	"sort"
	"strings"

	"github.com/lmikael/conntop/model"
)

// Project applies keyword filtering and column-driven sorting to a ledger
// snapshot. Pure read path: the input slice is never mutated.
//
// The keyword is a case-sensitive substring match against the connection's
// host field only; an empty keyword selects everything. sortKey names a
// registered column; an unknown or empty key leaves the input order intact.
func Project(entries []model.Entry, keyword, sortKey string, descending bool) []model.Entry {
	out := make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		if keyword != "" && !strings.Contains(e.Metadata.Host, keyword) {
			continue
		}
		out = append(out, e)
	}

	col, ok := ColumnByKey(sortKey)
	if !ok || col.Compare == nil {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := col.Compare(&out[i], &out[j])
		if descending {
			return c > 0
		}
		return c < 0
	})
	return out
}
