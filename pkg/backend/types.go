package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// CollectionID identifies a collection. The backend may send it as a JSON
// string or number; both decode to the same textual form.
type CollectionID string

func (id *CollectionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = CollectionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("collection_id: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("collection_id: %w", err)
	}
	*id = CollectionID(n.String())
	return nil
}

// Collection is a named partition of the backend index.
type Collection struct {
	ID   CollectionID `json:"collection_id"`
	Name string       `json:"name"`
}

// SearchResult is one ranked document returned by /search.
type SearchResult struct {
	Title        []string     `json:"title"`
	Text         []string     `json:"text"`
	Metadata     Metadata     `json:"metadata"`
	EnrichedText []Enrichment `json:"enriched_text"`
}

type Metadata struct {
	Source Source `json:"source"`
}

type Source struct {
	URL string `json:"url"`
}

// Enrichment holds the keyword and entity extraction for a document.
type Enrichment struct {
	Keywords []Keyword `json:"keywords,omitempty"`
	Entities []Entity  `json:"entities,omitempty"`
}

// Keyword is an extracted keyword with a relevance score in [0,1].
type Keyword struct {
	Text      string  `json:"text"`
	Relevance float64 `json:"relevance"`
}

type Entity struct {
	Text string `json:"text"`
	Type string `json:"type,omitempty"`
}

// FirstTitle returns the first title or "".
func (r SearchResult) FirstTitle() string {
	if len(r.Title) == 0 {
		return ""
	}
	return r.Title[0]
}

// FirstText returns the first body text or "".
func (r SearchResult) FirstText() string {
	if len(r.Text) == 0 {
		return ""
	}
	return r.Text[0]
}

// URL returns metadata.source.url.
func (r SearchResult) URL() string {
	return r.Metadata.Source.URL
}

// Keywords returns the keywords of the first enrichment.
func (r SearchResult) Keywords() []Keyword {
	if len(r.EnrichedText) == 0 {
		return nil
	}
	return r.EnrichedText[0].Keywords
}

// Entities returns the entities of the first enrichment.
func (r SearchResult) Entities() []Entity {
	if len(r.EnrichedText) == 0 {
		return nil
	}
	return r.EnrichedText[0].Entities
}

type autocompleteResponse struct {
	Completions []string `json:"completions"`
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}
