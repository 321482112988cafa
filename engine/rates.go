package engine

import (
	"github.com/lmikael/conntop/model"
	"github.com/lmikael/conntop/util"
)

// ComputeRates derives instantaneous throughput for one batch. prev holds
// the counters observed in the immediately preceding batch, keyed by
// identity; an identity with no previous counters gets a zero rate rather
// than a false spike from its already-nonzero cumulative totals.
//
// The returned map holds exactly the counters of this batch: identities that
// left the feed lose their baseline, so a reappearing identity starts from
// zero again instead of inheriting its closed record.
//
// All state is threaded through the arguments; the function itself holds
// none, so callers can pause by simply not invoking it.
func ComputeRates(prev map[string]model.Counters, batch []model.Connection) (map[string]model.Counters, []model.Entry) {
	next := make(map[string]model.Counters, len(batch))
	entries := make([]model.Entry, 0, len(batch))
	index := make(map[string]int, len(batch))

	for _, c := range batch {
		e := model.Entry{Connection: c}
		if p, ok := prev[c.ID]; ok {
			e.Rates = model.Rates{
				Upload:   util.Delta(p.Upload, c.Counters.Upload),
				Download: util.Delta(p.Download, c.Counters.Download),
			}
		}
		next[c.ID] = c.Counters

		// Duplicate identity within one batch: last occurrence wins.
		// Its delta is still measured against the previous batch, not
		// against the earlier duplicate.
		if i, ok := index[c.ID]; ok {
			entries[i] = e
			continue
		}
		index[c.ID] = len(entries)
		entries = append(entries, e)
	}
	return next, entries
}
