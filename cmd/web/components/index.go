// Package components holds the page components of the web UI.
package components

import (
	_ "embed"
	"html/template"

	"github.com/a-h/templ"

	"github.com/rubiojr/turnsearch/cmd/web/components/types"
)

//go:embed index.html
var indexSource string

var indexTmpl = template.Must(template.New("index").Parse(indexSource))

// Index renders the search page.
func Index(data types.PageData) templ.Component {
	return templ.FromGoHTML(indexTmpl, data)
}
