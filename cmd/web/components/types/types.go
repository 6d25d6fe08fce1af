package types

import (
	"html/template"

	"github.com/rubiojr/turnsearch/pkg/backend"
)

// PageData represents data passed to templates
type PageData struct {
	Title       string
	Query       string
	Collection  backend.CollectionID
	Collections []backend.Collection
	// Searched is set when the page was requested with a query.
	Searched    bool
	ResultsHTML template.HTML
	ResultCount int
	Error       string
	Version     string // Application version (for footer display)
}
