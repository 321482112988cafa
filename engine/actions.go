package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lmikael/conntop/model"
)

// ConnectionCloser terminates a live connection on the kernel.
type ConnectionCloser interface {
	CloseConnection(ctx context.Context, id string) error
}

// RuleStore persists rule-set entries and refreshes their provider.
type RuleStore interface {
	SubmitRule(ctx context.Context, ruleSet, payload string) error
	RefreshRuleProvider(ctx context.Context, ruleSet string) error
}

// ActionError is a failed user action, carrying the operation, the
// connection it targeted and the underlying cause. Actions are never retried
// automatically; the error is surfaced for user-visible reporting.
type ActionError struct {
	Op  string
	ID  string
	Err error
}

func (e *ActionError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// Dispatcher executes user-triggered mutations against the kernel and keeps
// the ledger consistent with their outcomes.
type Dispatcher struct {
	closer ConnectionCloser
	rules  RuleStore
	ledger *Ledger
	logger *log.Logger
}

// NewDispatcher wires action collaborators to a ledger.
func NewDispatcher(closer ConnectionCloser, rules RuleStore, ledger *Ledger, logger *log.Logger) *Dispatcher {
	return &Dispatcher{closer: closer, rules: rules, ledger: ledger, logger: logger}
}

// CloseOne terminates a single connection. On success the entry leaves the
// live set immediately, without waiting for the next batch. On failure the
// ledger is untouched — no optimistic removal.
func (d *Dispatcher) CloseOne(ctx context.Context, id string) error {
	if err := d.closer.CloseConnection(ctx, id); err != nil {
		return &ActionError{Op: "close", ID: id, Err: err}
	}
	d.ledger.Remove(id)
	return nil
}

// CloseAll terminates every currently live connection concurrently,
// best-effort: one failure does not abort the others, and each failure is
// reported independently. The ledger is not proactively cleared — each close
// is observed through the normal batch diff on the next snapshot.
func (d *Dispatcher) CloseAll(ctx context.Context) []error {
	ids := d.ledger.LiveIDs()

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := d.closer.CloseConnection(ctx, id); err != nil {
				mu.Lock()
				errs = append(errs, &ActionError{Op: "close", ID: id, Err: err})
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()
	return errs
}

// AddToRuleSet derives a rule expression from the connection's metadata,
// submits it to the named rule set and asks the provider to refresh. A
// refresh failure does not roll back the submitted rule (at-least-applied,
// not exactly-once); it is still reported to the caller.
func (d *Dispatcher) AddToRuleSet(ctx context.Context, id, ruleSet string) error {
	entry, ok := d.ledger.Find(id)
	if !ok {
		return &ActionError{Op: "rule", ID: id, Err: fmt.Errorf("unknown connection")}
	}

	payload := RuleExpression(&entry)
	if err := d.rules.SubmitRule(ctx, ruleSet, payload); err != nil {
		return &ActionError{Op: "rule", ID: id, Err: err}
	}
	if err := d.rules.RefreshRuleProvider(ctx, ruleSet); err != nil {
		d.logger.Warn("rule submitted but provider refresh failed", "ruleSet", ruleSet, "err", err)
		return &ActionError{Op: "refresh", ID: id, Err: err}
	}
	return nil
}

// RuleExpression derives the persistent rule payload for a connection: a
// domain match when a sniffed or requested host is known, an IP match on the
// destination otherwise. The format is wire-exact for the rule-set store.
func RuleExpression(e *model.Entry) string {
	if e.Metadata.SniffHost != "" {
		return "DOMAIN," + e.Metadata.SniffHost
	}
	if e.Metadata.Host != "" {
		return "DOMAIN," + e.Metadata.Host
	}
	return "IP-CIDR," + e.Metadata.DestinationIP + "/32,no-resolve"
}
