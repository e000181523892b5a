package usecase

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/naka-gawa/repo-explorer/internal/domain"
)

// Slot is one logical search position in the presentation layer, such as a
// search box. Starting a new search in a Slot cancels the one in flight, and
// a superseded search can never publish its result.
type Slot struct {
	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	latest     atomic.Pointer[domain.SearchResult]
}

// Ticket identifies one search started in a Slot.
type Ticket struct {
	generation uint64
	cancel     context.CancelFunc
}

// NewSlot creates an empty Slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Begin starts a new generation and cancels the previous one. Searches are
// ordered by the time Begin returns, so callers that care about input order
// must call it synchronously. The returned context is cancelled when a newer
// search begins or the ticket is finished.
func (s *Slot) Begin(ctx context.Context) (context.Context, Ticket) {
	runCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	s.cancel = cancel
	return runCtx, Ticket{generation: s.generation, cancel: cancel}
}

// Finish completes the search identified by t.
//
// A ticket superseded by a newer Begin gets domain.ErrSuperseded and nothing
// is published. Otherwise result becomes Latest: a failure without partial
// results publishes an empty result, so Latest never shows data from a query
// that was replaced. publish, if set, is called with the result while the
// ticket is still current and only when there is something to show (success
// or a Truncated partial result). Finish returns publish's error first, then
// err.
func (s *Slot) Finish(t Ticket, result domain.SearchResult, err error, publish func(domain.SearchResult) error) error {
	t.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if t.generation != s.generation {
		return domain.ErrSuperseded
	}
	s.cancel = nil

	if err != nil && !result.Truncated {
		s.latest.Store(&domain.SearchResult{Items: []domain.RepositorySummary{}})
		return err
	}
	s.latest.Store(&result)
	if publish != nil {
		if pubErr := publish(result); pubErr != nil {
			return pubErr
		}
	}
	return err
}

// Run begins a search, runs fn and finishes it. The result is returned only
// if no newer search started meanwhile; otherwise domain.ErrSuperseded is.
func (s *Slot) Run(ctx context.Context, fn func(ctx context.Context) (domain.SearchResult, error)) (domain.SearchResult, error) {
	runCtx, t := s.Begin(ctx)
	result, err := fn(runCtx)

	var published domain.SearchResult
	finishErr := s.Finish(t, result, err, func(r domain.SearchResult) error {
		published = r
		return nil
	})
	if finishErr == domain.ErrSuperseded {
		return domain.SearchResult{}, finishErr
	}
	return published, finishErr
}

// Latest returns the result of the most recently finished current search.
// ok is false until one has finished.
func (s *Slot) Latest() (domain.SearchResult, bool) {
	r := s.latest.Load()
	if r == nil {
		return domain.SearchResult{}, false
	}
	return *r, true
}

// Generation returns the number of searches started in the slot.
func (s *Slot) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}
