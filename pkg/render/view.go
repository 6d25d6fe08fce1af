// Package render maps search results to display form.
//
// View builds a renderer-neutral view model: truncated strings plus keyword
// and entity pills with their relevance styling. HTML and Terminal turn the
// view model into page fragments and terminal text respectively.
package render

import (
	"strconv"

	"github.com/rubiojr/turnsearch/pkg/backend"
)

const (
	TitleLimit = 150
	TextLimit  = 1000

	MaxKeywords = 8
	MaxEntities = 3

	// Keyword pills above this relevance get light text on the darker
	// background.
	ContrastThreshold = 0.55

	ellipsis = "..."
)

// Pill is a keyword or entity label.
type Pill struct {
	Text string
	// Styled is false for entity pills, which carry no relevance.
	Styled    bool
	Relevance float64
	// Opacity is Relevance formatted for CSS, e.g. "0.9".
	Opacity string
	// Color is the text color, "white" or "black".
	Color string
}

// ResultView is one search result ready for display.
type ResultView struct {
	Title    string
	Text     string
	URL      string
	Keywords []Pill
	Entities []Pill
}

// Truncate shortens s to at most limit characters. Longer strings keep their
// first limit-3 characters followed by "...". Characters are runes.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= len(ellipsis) {
		return string(r[:limit])
	}
	return string(r[:limit-len(ellipsis)]) + ellipsis
}

// TextColor returns the pill text color for a keyword relevance.
func TextColor(relevance float64) string {
	if relevance > ContrastThreshold {
		return "white"
	}
	return "black"
}

// KeywordPill builds a styled pill from a keyword.
func KeywordPill(k backend.Keyword) Pill {
	rel := clamp01(k.Relevance)
	return Pill{
		Text:      k.Text,
		Styled:    true,
		Relevance: rel,
		Opacity:   strconv.FormatFloat(rel, 'f', -1, 64),
		Color:     TextColor(rel),
	}
}

// View maps results to display form. It never returns nil.
func View(results []backend.SearchResult) []ResultView {
	views := make([]ResultView, 0, len(results))
	for _, r := range results {
		views = append(views, ViewOf(r))
	}
	return views
}

// ViewOf maps a single result.
func ViewOf(r backend.SearchResult) ResultView {
	v := ResultView{
		Title: Truncate(r.FirstTitle(), TitleLimit),
		Text:  Truncate(r.FirstText(), TextLimit),
		URL:   r.URL(),
	}

	keywords := r.Keywords()
	if len(keywords) > MaxKeywords {
		keywords = keywords[:MaxKeywords]
	}
	for _, k := range keywords {
		v.Keywords = append(v.Keywords, KeywordPill(k))
	}

	entities := r.Entities()
	if len(entities) > MaxEntities {
		entities = entities[:MaxEntities]
	}
	for _, e := range entities {
		v.Entities = append(v.Entities, Pill{Text: e.Text})
	}
	return v
}

func clamp01(f float64) float64 {
	switch {
	case f != f: // NaN
		return 0
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
