// Package session holds the interface state of a search page and the
// operations that mutate it.
//
// A Session has one entry point per user event or backend response:
//
//   - LoadCollections: fetch the collection list and select the first entry
//   - Input: store the typed text and schedule a debounced autocomplete
//   - SelectSuggestion / SelectCollection: direct user edits
//   - Submit: run a search for the current text
//
// Backend failures are logged and leave the state unchanged. Every
// autocomplete and search request carries a sequence number and only the
// latest issued request may apply its response, so a slow stale response
// never overwrites a fresher one.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rubiojr/turnsearch/pkg/backend"
	"github.com/rubiojr/turnsearch/pkg/debounce"
	"github.com/rubiojr/turnsearch/pkg/log"
	"github.com/rubiojr/turnsearch/pkg/realtime"
	"github.com/rubiojr/turnsearch/pkg/textclean"
)

// DefaultDelay is the autocomplete quiet period.
const DefaultDelay = 750 * time.Millisecond

var ErrUnknownCollection = errors.New("unknown collection")

// Backend is the subset of the search API a session needs.
// *backend.Client implements it.
type Backend interface {
	Collections(ctx context.Context) ([]backend.Collection, error)
	Autocomplete(ctx context.Context, prefix string, collection backend.CollectionID) ([]string, error)
	Search(ctx context.Context, text string, collection backend.CollectionID) ([]backend.SearchResult, error)
}

type Options struct {
	// Delay is the autocomplete quiet period. Zero means DefaultDelay.
	Delay time.Duration
	// Clock drives the debouncer. Nil means the wall clock.
	Clock debounce.Clock
	// Clean sanitizes text before it is sent. Nil means textclean.Clean.
	Clean textclean.Func
	// Logger defaults to the "session" logger.
	Logger *log.Logger
}

type Session struct {
	backend   Backend
	clean     textclean.Func
	debouncer *debounce.Debouncer
	hub       *realtime.Hub
	log       *log.Logger

	// ctx scopes debounced requests to the session lifetime.
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	suggestSeq uint64
	searchSeq  uint64
	closed     bool
}

func New(b Backend, opts Options) *Session {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Clean == nil {
		opts.Clean = textclean.Clean
	}
	if opts.Logger == nil {
		opts.Logger = log.ForService("session")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		backend:   b,
		clean:     opts.Clean,
		debouncer: debounce.New(opts.Delay, opts.Clock),
		hub:       realtime.NewHub(0),
		log:       opts.Logger,
		ctx:       ctx,
		cancel:    cancel,
		state: State{
			Collections: []backend.Collection{},
			Suggestions: []string{},
			Results:     []backend.SearchResult{},
		},
	}
}

// Close stops pending work, aborts in-flight debounced requests and closes
// every subscription. Later calls to entry points are no-ops.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.debouncer.Cancel()
	s.cancel()
	s.hub.Close()
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers for change events. Call Unsubscribe with the returned
// id when done.
func (s *Session) Subscribe() (uint64, <-chan realtime.Event) {
	return s.hub.Register()
}

func (s *Session) Unsubscribe(id uint64) {
	s.hub.Unregister(id)
}

// bump must be called with mu held.
func (s *Session) bump() uint64 {
	s.state.Revision++
	return s.state.Revision
}

func (s *Session) notify(rev uint64, kinds ...realtime.Kind) {
	for _, k := range kinds {
		s.hub.Broadcast(realtime.Event{Kind: k, Revision: rev})
	}
}

// LoadCollections fetches the collection list, replaces the stored list and
// selects its first entry.
func (s *Session) LoadCollections(ctx context.Context) error {
	cols, err := s.backend.Collections(ctx)
	if err != nil {
		s.log.Warnf("loading collections failed: %v", err)
		return fmt.Errorf("loading collections: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.state.Collections = slices.Clone(cols)
	s.state.CurrentCollection = ""
	if len(cols) > 0 {
		s.state.CurrentCollection = cols[0].ID
	}
	rev := s.bump()
	s.mu.Unlock()

	if len(cols) == 0 {
		s.log.Warnf("backend returned no collections")
	} else {
		s.log.Debugf("loaded %d collections, default %q", len(cols), cols[0].ID)
	}
	s.notify(rev, realtime.KindCollections, realtime.KindCollection)
	return nil
}

// SelectCollection changes the collection that autocomplete and search are
// scoped to. The id must be one of the loaded collections.
func (s *Session) SelectCollection(id backend.CollectionID) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if !s.state.HasCollection(id) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownCollection, id)
	}
	s.state.CurrentCollection = id
	rev := s.bump()
	s.mu.Unlock()

	s.notify(rev, realtime.KindCollection)
	return nil
}

// Input records a keystroke. The raw text is stored right away; the
// autocomplete request fires once no further Input arrives within the
// quiet period.
func (s *Session) Input(text string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state.Term = text
	rev := s.bump()
	// Armed under mu so concurrent Inputs schedule in the order they store.
	s.debouncer.Do(func() {
		_ = s.Suggest(s.ctx, text)
	})
	s.mu.Unlock()

	s.notify(rev, realtime.KindTerm)
}

// Suggest runs one autocomplete cycle for text right away; Input schedules
// it through the debouncer. Text that sanitizes to nothing clears the
// suggestions without a request.
func (s *Session) Suggest(ctx context.Context, text string) error {
	prefix := s.clean(text)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.suggestSeq++
	seq := s.suggestSeq
	collection := s.state.CurrentCollection
	if prefix == "" {
		s.state.Suggestions = []string{}
		rev := s.bump()
		s.mu.Unlock()
		s.notify(rev, realtime.KindSuggestions)
		return nil
	}
	s.mu.Unlock()

	completions, err := s.backend.Autocomplete(ctx, prefix, collection)
	if err != nil {
		s.log.Warnf("autocomplete for %q failed: %v", prefix, err)
		return fmt.Errorf("autocomplete: %w", err)
	}

	s.mu.Lock()
	if s.closed || seq != s.suggestSeq {
		s.mu.Unlock()
		s.log.Debugf("discarding stale suggestions for %q", prefix)
		return nil
	}
	s.state.Suggestions = slices.Clone(completions)
	if s.state.Suggestions == nil {
		s.state.Suggestions = []string{}
	}
	rev := s.bump()
	s.mu.Unlock()

	s.notify(rev, realtime.KindSuggestions)
	return nil
}

// SelectSuggestion puts text into the search field and clears the
// suggestions. Pending and in-flight autocomplete requests are dropped.
func (s *Session) SelectSuggestion(text string) {
	s.debouncer.Cancel()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.suggestSeq++
	s.state.Term = text
	s.state.Suggestions = []string{}
	rev := s.bump()
	s.mu.Unlock()

	s.notify(rev, realtime.KindTerm, realtime.KindSuggestions)
}

// Submit searches for the current text in the current collection. Empty
// text yields an empty result list without a request. On success the
// results are replaced and suggestions cleared, unless an autocomplete was
// issued after the submit.
func (s *Session) Submit(ctx context.Context) error {
	s.debouncer.Cancel()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	query := s.clean(s.state.Term)
	collection := s.state.CurrentCollection
	s.suggestSeq++
	suggestSeq := s.suggestSeq
	s.searchSeq++
	seq := s.searchSeq
	s.state.Suggestions = []string{}

	if query == "" {
		s.state.Results = []backend.SearchResult{}
		rev := s.bump()
		s.mu.Unlock()
		s.log.Infof("search text is empty")
		s.notify(rev, realtime.KindSuggestions, realtime.KindResults)
		return nil
	}
	rev := s.bump()
	s.mu.Unlock()
	s.notify(rev, realtime.KindSuggestions)

	results, err := s.backend.Search(ctx, query, collection)
	if err != nil {
		s.log.Warnf("search for %q failed: %v", query, err)
		return fmt.Errorf("search: %w", err)
	}

	s.mu.Lock()
	if s.closed || seq != s.searchSeq {
		s.mu.Unlock()
		s.log.Debugf("discarding stale results for %q", query)
		return nil
	}
	s.state.Results = slices.Clone(results)
	if s.state.Results == nil {
		s.state.Results = []backend.SearchResult{}
	}
	kinds := []realtime.Kind{realtime.KindResults}
	// Autocomplete issued after this submit stays valid.
	if suggestSeq == s.suggestSeq {
		s.suggestSeq++
		s.state.Suggestions = []string{}
		kinds = append(kinds, realtime.KindSuggestions)
	}
	rev = s.bump()
	s.mu.Unlock()

	s.log.Debugf("search for %q returned %d results", query, len(results))
	s.notify(rev, kinds...)
	return nil
}
