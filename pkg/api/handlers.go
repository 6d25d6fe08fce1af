package api

import (
	"net/http"
	"time"

	"github.com/rubiojr/turnsearch/pkg/backend"
	"github.com/rubiojr/turnsearch/pkg/version"
)

func (s *Server) HandleCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := s.Upstream().Backend.Collections(r.Context())
	if err != nil {
		s.log.Warnf("collections: %v", err)
		s.writeUpstreamError(w, err)
		return
	}
	if cols == nil {
		cols = []backend.Collection{}
	}

	s.writeJSON(w, http.StatusOK, cols)
}

func (s *Server) HandleAutocomplete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prefix := s.clean(q.Get("prefix"))
	collection := backend.CollectionID(q.Get("collection"))

	response := AutocompleteResponse{Prefix: prefix, Completions: []string{}}
	if prefix == "" {
		s.writeJSON(w, http.StatusOK, response)
		return
	}

	completions, err := s.Upstream().Backend.Autocomplete(r.Context(), prefix, collection)
	if err != nil {
		s.log.Warnf("autocomplete %q: %v", prefix, err)
		s.writeUpstreamError(w, err)
		return
	}
	if completions != nil {
		response.Completions = completions
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := s.clean(q.Get("search"))
	collection := backend.CollectionID(q.Get("collection"))

	response := SearchResponse{Query: query, Results: []backend.SearchResult{}}
	if query == "" {
		s.log.Debugf("search text is empty")
		s.writeJSON(w, http.StatusOK, response)
		return
	}

	results, err := s.Upstream().Backend.Search(r.Context(), query, collection)
	if err != nil {
		s.log.Warnf("search %q: %v", query, err)
		s.writeUpstreamError(w, err)
		return
	}
	if results != nil {
		response.Results = results
	}
	response.Count = len(response.Results)

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
	}

	s.writeJSON(w, http.StatusOK, health)
}
