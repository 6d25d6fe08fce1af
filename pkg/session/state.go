package session

import (
	"slices"

	"github.com/rubiojr/turnsearch/pkg/backend"
)

// State is the interface state of one search session.
type State struct {
	Collections       []backend.Collection
	CurrentCollection backend.CollectionID
	Term              string
	Suggestions       []string
	Results           []backend.SearchResult
	// Revision increases with every mutation.
	Revision uint64
}

// HasCollection reports whether id is one of the loaded collections.
func (st State) HasCollection(id backend.CollectionID) bool {
	for _, c := range st.Collections {
		if c.ID == id {
			return true
		}
	}
	return false
}

// clone returns a deep copy. Nil slices become empty.
func (st State) clone() State {
	out := st
	out.Collections = slices.Clone(st.Collections)
	out.Suggestions = slices.Clone(st.Suggestions)
	out.Results = make([]backend.SearchResult, len(st.Results))
	for i, r := range st.Results {
		out.Results[i] = cloneResult(r)
	}
	if out.Collections == nil {
		out.Collections = []backend.Collection{}
	}
	if out.Suggestions == nil {
		out.Suggestions = []string{}
	}
	return out
}

func cloneResult(r backend.SearchResult) backend.SearchResult {
	r.Title = slices.Clone(r.Title)
	r.Text = slices.Clone(r.Text)
	if r.EnrichedText != nil {
		enriched := make([]backend.Enrichment, len(r.EnrichedText))
		for i, e := range r.EnrichedText {
			enriched[i] = backend.Enrichment{
				Keywords: slices.Clone(e.Keywords),
				Entities: slices.Clone(e.Entities),
			}
		}
		r.EnrichedText = enriched
	}
	return r
}
