package api

import (
	"time"

	"github.com/rubiojr/turnsearch/pkg/backend"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type AutocompleteResponse struct {
	Prefix      string   `json:"prefix"`
	Completions []string `json:"completions"`
}

type SearchResponse struct {
	Query   string                 `json:"query"`
	Results []backend.SearchResult `json:"results"`
	Count   int                    `json:"count"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Live message types.
const (
	MessageInput      = "input"
	MessageSubmit     = "submit"
	MessageCollection = "collection"
	MessageSuggestion = "suggestion"
	MessageState      = "state"
	MessageError      = "error"
)

// ClientMessage is sent by the browser over the live socket.
type ClientMessage struct {
	Type string               `json:"type"`
	Text string               `json:"text,omitempty"`
	ID   backend.CollectionID `json:"id,omitempty"`
}

// StateMessage carries the full interface state of a live session.
type StateMessage struct {
	Type        string               `json:"type"`
	Revision    uint64               `json:"revision"`
	Term        string               `json:"term"`
	Collection  backend.CollectionID `json:"collection"`
	Collections []backend.Collection `json:"collections"`
	Suggestions []string             `json:"suggestions"`
	ResultsHTML string               `json:"results_html"`
	ResultCount int                  `json:"result_count"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
