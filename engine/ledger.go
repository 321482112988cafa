package engine

import (
	"sync"

	"github.com/lmikael/conntop/model"
)

// Ledger is the authoritative in-memory connection store: a live set
// mirroring the kernel's current report and an append-only closed set of
// connections that dropped out of the feed. An identity moves live → closed
// at most once per session; closed is terminal except for an explicit
// ClearClosed. The closed set is unbounded on purpose — it mirrors the
// feed's accumulation semantics and is emptied only by the user.
//
// All mutation happens under an exclusive lock and readers get copies, so a
// concurrent projection never observes a half-applied batch.
type Ledger struct {
	mu     sync.RWMutex
	live   map[string]model.Entry
	order  []string // live identities in first-seen order
	closed []model.Entry
	batch  uint64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{live: make(map[string]model.Entry)}
}

// ApplyBatch replaces the live set with the batch's entries. Previously live
// identities absent from the batch are appended to the closed set in the
// order the diff discovers them (the kernel does not report closures
// explicitly). Entries are expected to be deduplicated already.
func (l *Ledger) ApplyBatch(entries []model.Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.batch++
	incoming := make(map[string]model.Entry, len(entries))
	for _, e := range entries {
		e.LastSeenBatch = l.batch
		incoming[e.ID] = e
	}

	order := make([]string, 0, len(entries))
	for _, id := range l.order {
		if _, ok := incoming[id]; ok {
			order = append(order, id)
			continue
		}
		// Dropped out of the live feed: move to closed.
		l.closed = append(l.closed, l.live[id])
	}
	for _, e := range entries {
		if _, existed := l.live[e.ID]; !existed {
			order = append(order, e.ID)
		}
	}

	l.live = incoming
	l.order = order
}

// Remove deletes an identity from the live set without adding it to closed.
// Used after an explicit, successful terminate action: the user closed it,
// it was not an observed drop.
func (l *Ledger) Remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.live[id]; !ok {
		return
	}
	delete(l.live, id)
	for i, o := range l.order {
		if o == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// ClearClosed empties the closed set. The live set is untouched.
func (l *Ledger) ClearClosed() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = nil
}

// Live returns a copy of the live set in first-seen order.
func (l *Ledger) Live() []model.Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Entry, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.live[id])
	}
	return out
}

// Closed returns a copy of the closed set, oldest closure first.
func (l *Ledger) Closed() []model.Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Entry, len(l.closed))
	copy(out, l.closed)
	return out
}

// LiveIDs returns the identities of the live set in first-seen order.
func (l *Ledger) LiveIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Find looks an identity up in the live set, then in the closed set.
func (l *Ledger) Find(id string) (model.Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if e, ok := l.live[id]; ok {
		return e, true
	}
	for i := len(l.closed) - 1; i >= 0; i-- {
		if l.closed[i].ID == id {
			return l.closed[i], true
		}
	}
	return model.Entry{}, false
}

// Batches returns the number of batches applied so far.
func (l *Ledger) Batches() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.batch
}
