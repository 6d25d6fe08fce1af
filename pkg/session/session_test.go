package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/rubiojr/turnsearch/pkg/backend"
	"github.com/rubiojr/turnsearch/pkg/debounce"
	"github.com/rubiojr/turnsearch/pkg/realtime"
)

type call struct {
	text       string
	collection backend.CollectionID
}

type fakeBackend struct {
	mu            sync.Mutex
	collections   []backend.Collection
	collectionErr error
	suggestCalls  []call
	searchCalls   []call
	autocomplete  func(prefix string) ([]string, error)
	search        func(text string) ([]backend.SearchResult, error)
}

func (f *fakeBackend) Collections(ctx context.Context) ([]backend.Collection, error) {
	if f.collectionErr != nil {
		return nil, f.collectionErr
	}
	return f.collections, nil
}

func (f *fakeBackend) Autocomplete(ctx context.Context, prefix string, collection backend.CollectionID) ([]string, error) {
	f.mu.Lock()
	f.suggestCalls = append(f.suggestCalls, call{prefix, collection})
	fn := f.autocomplete
	f.mu.Unlock()
	if fn != nil {
		return fn(prefix)
	}
	return []string{prefix + "den", prefix + "fish"}, nil
}

func (f *fakeBackend) Search(ctx context.Context, text string, collection backend.CollectionID) ([]backend.SearchResult, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, call{text, collection})
	fn := f.search
	f.mu.Unlock()
	if fn != nil {
		return fn(text)
	}
	return []backend.SearchResult{{Title: []string{"Result for " + text}}}, nil
}

func (f *fakeBackend) suggestions() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.suggestCalls...)
}

func (f *fakeBackend) searches() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.searchCalls...)
}

func newTestSession(t *testing.T, fb *fakeBackend) (*Session, *debounce.ManualClock) {
	t.Helper()
	clock := debounce.NewManualClock()
	s := New(fb, Options{Clock: clock})
	t.Cleanup(s.Close)
	return s, clock
}

func loadTestCollections(t *testing.T, s *Session) {
	t.Helper()
	if err := s.LoadCollections(context.Background()); err != nil {
		t.Fatalf("LoadCollections failed: %v", err)
	}
}

func defaultCollections() []backend.Collection {
	return []backend.Collection{{ID: "1", Name: "Turner Papers"}, {ID: "2", Name: "Letters"}}
}

func TestNewSessionStartsEmpty(t *testing.T) {
	s, _ := newTestSession(t, &fakeBackend{})

	st := s.Snapshot()
	if st.Term != "" || st.CurrentCollection != "" {
		t.Errorf("Expected empty term and collection, got %q and %q", st.Term, st.CurrentCollection)
	}
	if st.Collections == nil || st.Suggestions == nil || st.Results == nil {
		t.Errorf("Expected non-nil slices, got %+v", st)
	}
}

func TestLoadCollectionsSelectsFirst(t *testing.T) {
	s, _ := newTestSession(t, &fakeBackend{collections: defaultCollections()})
	loadTestCollections(t, s)

	st := s.Snapshot()
	if st.CurrentCollection != "1" {
		t.Errorf("Expected collection 1, got %q", st.CurrentCollection)
	}
	if len(st.Collections) != 2 {
		t.Errorf("Expected 2 collections, got %d", len(st.Collections))
	}
}

func TestLoadCollectionsFailureKeepsState(t *testing.T) {
	s, _ := newTestSession(t, &fakeBackend{collectionErr: backend.ErrRequestFailed})

	err := s.LoadCollections(context.Background())
	if !errors.Is(err, backend.ErrRequestFailed) {
		t.Fatalf("Expected ErrRequestFailed, got %v", err)
	}
	st := s.Snapshot()
	if len(st.Collections) != 0 || st.CurrentCollection != "" {
		t.Errorf("Expected state unchanged, got %+v", st)
	}
}

func TestLoadCollectionsEmptyList(t *testing.T) {
	s, _ := newTestSession(t, &fakeBackend{collections: []backend.Collection{}})
	loadTestCollections(t, s)

	if got := s.Snapshot().CurrentCollection; got != "" {
		t.Errorf("Expected no current collection, got %q", got)
	}
}

func TestSelectCollection(t *testing.T) {
	s, _ := newTestSession(t, &fakeBackend{collections: defaultCollections()})
	loadTestCollections(t, s)

	if err := s.SelectCollection("2"); err != nil {
		t.Fatalf("SelectCollection failed: %v", err)
	}
	if got := s.Snapshot().CurrentCollection; got != "2" {
		t.Errorf("Expected collection 2, got %q", got)
	}

	if err := s.SelectCollection("99"); !errors.Is(err, ErrUnknownCollection) {
		t.Fatalf("Expected ErrUnknownCollection, got %v", err)
	}
	if got := s.Snapshot().CurrentCollection; got != "2" {
		t.Errorf("Expected collection to stay 2, got %q", got)
	}
}

func TestInputDebouncesAutocomplete(t *testing.T) {
	fb := &fakeBackend{collections: defaultCollections()}
	s, clock := newTestSession(t, fb)
	loadTestCollections(t, s)

	for _, text := range []string{"g", "go", "gol"} {
		s.Input(text)
		clock.Advance(100 * time.Millisecond)
	}
	if n := len(fb.suggestions()); n != 0 {
		t.Fatalf("Expected no request before the quiet period, got %d", n)
	}

	clock.Advance(DefaultDelay)

	calls := fb.suggestions()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 autocomplete call, got %d", len(calls))
	}
	if calls[0] != (call{"gol", "1"}) {
		t.Errorf("Expected call {gol 1}, got %+v", calls[0])
	}
	st := s.Snapshot()
	if !slices.Equal(st.Suggestions, []string{"golden", "golfish"}) {
		t.Errorf("Unexpected suggestions %v", st.Suggestions)
	}
	if st.Term != "gol" {
		t.Errorf("Expected term gol, got %q", st.Term)
	}
}

func TestConcurrentInputSchedulesLatestTerm(t *testing.T) {
	fb := &fakeBackend{}
	s, clock := newTestSession(t, fb)

	var wg sync.WaitGroup
	for _, text := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Input(text)
		}()
	}
	wg.Wait()
	clock.Advance(DefaultDelay)

	calls := fb.suggestions()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 autocomplete call, got %d", len(calls))
	}
	if term := s.Snapshot().Term; calls[0].text != term {
		t.Errorf("Expected autocomplete for the stored term %q, got %q", term, calls[0].text)
	}
}

func TestInputStoresRawTerm(t *testing.T) {
	s, _ := newTestSession(t, &fakeBackend{})

	s.Input("  Turner's Sea! ")
	if got := s.Snapshot().Term; got != "  Turner's Sea! " {
		t.Errorf("Expected raw term, got %q", got)
	}
}

func TestAutocompleteSendsCleanedPrefix(t *testing.T) {
	fb := &fakeBackend{collections: defaultCollections()}
	s, clock := newTestSession(t, fb)
	loadTestCollections(t, s)

	s.Input("  Turner's  SEA-piece ")
	clock.Advance(DefaultDelay)

	calls := fb.suggestions()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 autocomplete call, got %d", len(calls))
	}
	if calls[0].text != "turners sea piece" {
		t.Errorf("Expected cleaned prefix, got %q", calls[0].text)
	}
}

func TestAutocompleteUsesSelectedCollection(t *testing.T) {
	fb := &fakeBackend{collections: defaultCollections()}
	s, clock := newTestSession(t, fb)
	loadTestCollections(t, s)
	if err := s.SelectCollection("2"); err != nil {
		t.Fatalf("SelectCollection failed: %v", err)
	}

	s.Input("sea")
	clock.Advance(DefaultDelay)

	calls := fb.suggestions()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 autocomplete call, got %d", len(calls))
	}
	if calls[0].collection != "2" {
		t.Errorf("Expected collection 2, got %q", calls[0].collection)
	}
}

func TestEmptyInputSkipsAutocomplete(t *testing.T) {
	fb := &fakeBackend{}
	s, clock := newTestSession(t, fb)

	s.Input("go")
	clock.Advance(DefaultDelay)
	if len(fb.suggestions()) != 1 || len(s.Snapshot().Suggestions) == 0 {
		t.Fatalf("Expected suggestions for go")
	}

	for _, text := range []string{"", "   ", "!?"} {
		s.Input(text)
		clock.Advance(DefaultDelay)
		if n := len(fb.suggestions()); n != 1 {
			t.Errorf("Input %q must not reach the backend, got %d calls", text, n)
		}
		if got := s.Snapshot().Suggestions; got == nil || len(got) != 0 {
			t.Errorf("Expected empty suggestions for %q, got %v", text, got)
		}
	}
}

func TestAutocompleteFailureKeepsSuggestions(t *testing.T) {
	fb := &fakeBackend{}
	s, clock := newTestSession(t, fb)

	s.Input("go")
	clock.Advance(DefaultDelay)
	before := s.Snapshot().Suggestions

	fb.mu.Lock()
	fb.autocomplete = func(string) ([]string, error) { return nil, backend.ErrRequestFailed }
	fb.mu.Unlock()

	if err := s.Suggest(context.Background(), "gol"); !errors.Is(err, backend.ErrRequestFailed) {
		t.Fatalf("Expected ErrRequestFailed, got %v", err)
	}
	if got := s.Snapshot().Suggestions; !slices.Equal(got, before) {
		t.Errorf("Expected suggestions %v, got %v", before, got)
	}
}

func TestStaleSuggestionsAreDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	fb := &fakeBackend{
		autocomplete: func(prefix string) ([]string, error) {
			if prefix == "go" {
				close(entered)
				<-release
				return []string{"stale"}, nil
			}
			return []string{"fresh"}, nil
		},
	}
	s, _ := newTestSession(t, fb)

	done := make(chan error, 1)
	go func() { done <- s.Suggest(context.Background(), "go") }()
	<-entered

	if err := s.Suggest(context.Background(), "gol"); err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}

	if got := s.Snapshot().Suggestions; !slices.Equal(got, []string{"fresh"}) {
		t.Errorf("Expected [fresh], got %v", got)
	}
}

func TestSelectSuggestion(t *testing.T) {
	fb := &fakeBackend{}
	s, clock := newTestSession(t, fb)

	s.Input("gol")
	clock.Advance(DefaultDelay)
	if len(s.Snapshot().Suggestions) == 0 {
		t.Fatalf("Expected suggestions for gol")
	}

	s.Input("gold")
	s.SelectSuggestion("golden")
	clock.Advance(DefaultDelay)

	st := s.Snapshot()
	if st.Term != "golden" {
		t.Errorf("Expected term golden, got %q", st.Term)
	}
	if len(st.Suggestions) != 0 {
		t.Errorf("Expected suggestions cleared, got %v", st.Suggestions)
	}
	if n := len(fb.suggestions()); n != 1 {
		t.Errorf("Expected pending autocomplete cancelled, got %d calls", n)
	}
}

func TestSubmitEmptyTextClearsResults(t *testing.T) {
	fb := &fakeBackend{}
	s, _ := newTestSession(t, fb)

	s.Input("sea")
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if n := len(s.Snapshot().Results); n != 1 {
		t.Fatalf("Expected 1 result, got %d", n)
	}

	s.Input("  ")
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if n := len(fb.searches()); n != 1 {
		t.Errorf("Expected 1 search call, got %d", n)
	}
	if got := s.Snapshot().Results; got == nil || len(got) != 0 {
		t.Errorf("Expected empty results, got %v", got)
	}
}

func TestSubmitSearches(t *testing.T) {
	fb := &fakeBackend{collections: defaultCollections()}
	s, clock := newTestSession(t, fb)
	loadTestCollections(t, s)
	if err := s.SelectCollection("2"); err != nil {
		t.Fatalf("SelectCollection failed: %v", err)
	}

	s.Input("Turner's Sea")
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	clock.Advance(DefaultDelay)

	calls := fb.searches()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 search call, got %d", len(calls))
	}
	if calls[0] != (call{"turners sea", "2"}) {
		t.Errorf("Expected call {turners sea 2}, got %+v", calls[0])
	}
	if n := len(fb.suggestions()); n != 0 {
		t.Errorf("Expected submit to cancel the pending autocomplete, got %d calls", n)
	}

	st := s.Snapshot()
	if len(st.Results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(st.Results))
	}
	if got := st.Results[0].FirstTitle(); got != "Result for turners sea" {
		t.Errorf("Unexpected title %q", got)
	}
	if len(st.Suggestions) != 0 {
		t.Errorf("Expected suggestions cleared, got %v", st.Suggestions)
	}
}

func TestSubmitKeepsLaterSuggestions(t *testing.T) {
	searching := make(chan struct{})
	releaseSearch := make(chan struct{})
	suggesting := make(chan struct{})
	releaseSuggest := make(chan struct{})
	fb := &fakeBackend{
		search: func(text string) ([]backend.SearchResult, error) {
			close(searching)
			<-releaseSearch
			return []backend.SearchResult{{Title: []string{text}}}, nil
		},
		autocomplete: func(prefix string) ([]string, error) {
			close(suggesting)
			<-releaseSuggest
			return []string{prefix + "rod"}, nil
		},
	}
	s, clock := newTestSession(t, fb)

	s.Input("gold")
	searchDone := make(chan error, 1)
	go func() { searchDone <- s.Submit(context.Background()) }()
	<-searching

	s.Input("golden")
	advanced := make(chan struct{})
	go func() {
		clock.Advance(DefaultDelay)
		close(advanced)
	}()
	<-suggesting

	close(releaseSearch)
	if err := <-searchDone; err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	close(releaseSuggest)
	<-advanced

	st := s.Snapshot()
	if len(st.Results) != 1 || st.Results[0].FirstTitle() != "gold" {
		t.Errorf("Expected results for gold, got %+v", st.Results)
	}
	if !slices.Equal(st.Suggestions, []string{"goldenrod"}) {
		t.Errorf("Expected suggestions typed after submit to apply, got %v", st.Suggestions)
	}
}

func TestSubmitEmptyResultList(t *testing.T) {
	fb := &fakeBackend{search: func(string) ([]backend.SearchResult, error) { return nil, nil }}
	s, _ := newTestSession(t, fb)

	s.Input("nothing")
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if got := s.Snapshot().Results; got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil results, got %#v", got)
	}
}

func TestSubmitFailureKeepsResults(t *testing.T) {
	fb := &fakeBackend{}
	s, _ := newTestSession(t, fb)

	s.Input("sea")
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	fb.mu.Lock()
	fb.search = func(string) ([]backend.SearchResult, error) {
		return nil, &backend.RequestError{Endpoint: backend.EndpointSearch, StatusCode: 500}
	}
	fb.mu.Unlock()

	s.Input("storm")
	err := s.Submit(context.Background())
	if !errors.Is(err, backend.ErrRequestFailed) {
		t.Fatalf("Expected ErrRequestFailed, got %v", err)
	}
	results := s.Snapshot().Results
	if len(results) != 1 || results[0].FirstTitle() != "Result for sea" {
		t.Errorf("Expected previous results kept, got %+v", results)
	}
}

func TestStaleResultsAreDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	fb := &fakeBackend{
		search: func(text string) ([]backend.SearchResult, error) {
			if text == "slow" {
				close(entered)
				<-release
			}
			return []backend.SearchResult{{Title: []string{text}}}, nil
		},
	}
	s, _ := newTestSession(t, fb)

	s.Input("slow")
	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background()) }()
	<-entered

	s.Input("fast")
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	results := s.Snapshot().Results
	if len(results) != 1 || results[0].FirstTitle() != "fast" {
		t.Errorf("Expected results for fast, got %+v", results)
	}
}

func TestSnapshotIsADeepCopy(t *testing.T) {
	fb := &fakeBackend{
		collections: defaultCollections(),
		search: func(text string) ([]backend.SearchResult, error) {
			return []backend.SearchResult{{
				Title: []string{"Storm"},
				Text:  []string{"Rain and steam"},
				EnrichedText: []backend.Enrichment{{
					Keywords: []backend.Keyword{{Text: "rain", Relevance: 0.9}},
					Entities: []backend.Entity{{Text: "Turner"}},
				}},
			}}, nil
		},
	}
	s, _ := newTestSession(t, fb)
	loadTestCollections(t, s)
	s.Input("storm")
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	st := s.Snapshot()
	st.Collections[0].Name = "changed"
	st.Results[0].Title[0] = "changed"
	st.Results[0].Text[0] = "changed"
	st.Results[0].EnrichedText[0].Keywords[0].Text = "changed"
	st.Results[0].EnrichedText[0].Entities[0].Text = "changed"

	fresh := s.Snapshot()
	if fresh.Collections[0].Name != "Turner Papers" {
		t.Errorf("Collection name leaked: %q", fresh.Collections[0].Name)
	}
	r := fresh.Results[0]
	if r.Title[0] != "Storm" || r.Text[0] != "Rain and steam" {
		t.Errorf("Result text leaked: %+v", r)
	}
	if r.EnrichedText[0].Keywords[0].Text != "rain" || r.EnrichedText[0].Entities[0].Text != "Turner" {
		t.Errorf("Enrichment leaked: %+v", r.EnrichedText[0])
	}
}

func TestSubscribeReceivesChanges(t *testing.T) {
	s, clock := newTestSession(t, &fakeBackend{})
	id, events := s.Subscribe()
	defer s.Unsubscribe(id)

	s.Input("go")
	ev := <-events
	if ev.Kind != realtime.KindTerm {
		t.Errorf("Expected term event, got %v", ev.Kind)
	}
	if ev.Revision != s.Snapshot().Revision {
		t.Errorf("Expected revision %d, got %d", s.Snapshot().Revision, ev.Revision)
	}

	clock.Advance(DefaultDelay)
	ev = <-events
	if ev.Kind != realtime.KindSuggestions {
		t.Errorf("Expected suggestions event, got %v", ev.Kind)
	}
}

func TestRevisionIncreases(t *testing.T) {
	s, _ := newTestSession(t, &fakeBackend{})

	r0 := s.Snapshot().Revision
	s.Input("a")
	r1 := s.Snapshot().Revision
	s.SelectSuggestion("ab")
	r2 := s.Snapshot().Revision
	if r0 >= r1 || r1 >= r2 {
		t.Errorf("Expected increasing revisions, got %d %d %d", r0, r1, r2)
	}
}

func TestCloseStopsPendingWork(t *testing.T) {
	fb := &fakeBackend{}
	s, clock := newTestSession(t, fb)
	_, events := s.Subscribe()

	s.Input("go")
	s.Close()
	clock.Advance(DefaultDelay)

	if n := len(fb.suggestions()); n != 0 {
		t.Errorf("Expected no autocomplete after close, got %d", n)
	}
	for range events {
	}
	s.Input("more")
	if got := s.Snapshot().Term; got != "go" {
		t.Errorf("Expected term unchanged after close, got %q", got)
	}
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit after close returned %v", err)
	}
	if n := len(fb.searches()); n != 0 {
		t.Errorf("Expected no search after close, got %d", n)
	}
}
