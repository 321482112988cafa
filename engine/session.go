package engine

import (
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lmikael/conntop/kernel"
	"github.com/lmikael/conntop/model"
)

// BatchSource is the subscription primitive the transport exposes: it
// delivers raw snapshot frames to the handler, in order, until unsubscribed.
type BatchSource interface {
	Subscribe(handler func(frame []byte)) (kernel.Subscription, error)
}

// Session owns one attachment to the connections feed: the rate baseline,
// the ledger, and the view settings. Frames are applied strictly in delivery
// order on the transport's goroutine; projections may run concurrently from
// any goroutine and always see a fully applied batch.
type Session struct {
	ledger *Ledger
	logger *log.Logger

	mu       sync.Mutex
	prev     map[string]model.Counters
	paused   bool
	keyword  string
	sortKey  string
	sortDesc bool
	active   bool
	upTotal  uint64
	dnTotal  uint64
	dropped  uint64

	sub       kernel.Subscription
	closeOnce sync.Once
	closeErr  error

	updates chan struct{}
}

// NewSession creates a detached session showing the live set.
func NewSession(logger *log.Logger) *Session {
	return &Session{
		ledger:  NewLedger(),
		logger:  logger,
		prev:    make(map[string]model.Counters),
		active:  true,
		updates: make(chan struct{}, 1),
	}
}

// Attach subscribes the session to a batch source. Call Close to detach.
func (s *Session) Attach(src BatchSource) error {
	sub, err := src.Subscribe(s.HandleFrame)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
	return nil
}

// HandleFrame applies one raw snapshot frame: decode, derive rates, diff
// into the ledger. While paused, frames are discarded rather than queued, so
// resuming never replays a backlog. An undecodable frame is dropped whole;
// individually bad records are skipped by the decoder and only counted.
func (s *Session) HandleFrame(frame []byte) {
	s.mu.Lock()
	if s.paused {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	batch, err := kernel.DecodeBatch(frame)
	if err != nil {
		s.logger.Warn("discarding snapshot batch", "err", err)
		return
	}
	if batch.Dropped > 0 {
		s.logger.Debug("dropped malformed connection records", "count", batch.Dropped)
	}

	s.mu.Lock()
	if s.paused {
		s.mu.Unlock()
		return
	}
	next, entries := ComputeRates(s.prev, batch.Connections)
	s.prev = next
	s.upTotal = batch.UploadTotal
	s.dnTotal = batch.DownloadTotal
	s.dropped += uint64(batch.Dropped)
	s.mu.Unlock()

	s.ledger.ApplyBatch(entries)
	s.notify()
}

// Pause suspends applying new batches. The transport keeps delivering;
// frames that arrive while paused are discarded.
func (s *Session) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume re-enables batch application. The next frame received becomes the
// new baseline; there is no synthetic catch-up for the paused gap.
func (s *Session) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Paused reports whether batch application is suspended.
func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// SetKeyword sets the host filter applied by View.
func (s *Session) SetKeyword(keyword string) {
	s.mu.Lock()
	s.keyword = keyword
	s.mu.Unlock()
}

// SetSort selects the active sort column and direction.
func (s *Session) SetSort(key string, descending bool) {
	s.mu.Lock()
	s.sortKey = key
	s.sortDesc = descending
	s.mu.Unlock()
}

// SelectActive switches View between the live set (true) and the closed set.
func (s *Session) SelectActive(active bool) {
	s.mu.Lock()
	s.active = active
	s.mu.Unlock()
}

// View projects the selected set through the current filter and sort. The
// result is a fresh copy, recomputable at any time.
func (s *Session) View() []model.Entry {
	s.mu.Lock()
	keyword, sortKey, desc, active := s.keyword, s.sortKey, s.sortDesc, s.active
	s.mu.Unlock()

	var entries []model.Entry
	if active {
		entries = s.ledger.Live()
	} else {
		entries = s.ledger.Closed()
	}
	return Project(entries, keyword, sortKey, desc)
}

// Ledger exposes the session's connection store for action dispatch.
func (s *Session) Ledger() *Ledger { return s.ledger }

// Totals returns the kernel-reported cumulative upload/download totals from
// the most recent applied batch.
func (s *Session) Totals() (upload, download uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upTotal, s.dnTotal
}

// Dropped returns how many malformed records have been skipped this session.
func (s *Session) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Updates signals after each applied batch. The channel is never closed and
// holds at most one pending signal.
func (s *Session) Updates() <-chan struct{} { return s.updates }

func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// Close unsubscribes from the transport exactly once. Duplicate teardown is
// a no-op, including a transport that reports it was already unsubscribed.
// In-flight action calls are not cancelled; they complete or fail on their
// own.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		sub := s.sub
		s.mu.Unlock()
		if sub == nil {
			return
		}
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, kernel.ErrAlreadyUnsubscribed) {
			s.closeErr = err
		}
	})
	return s.closeErr
}
