package render

import (
	_ "embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed results.html
var resultsTemplate string

var resultsTmpl = template.Must(template.New("results.html").Parse(resultsTemplate))

// HTML renders the result list fragment. Every result item is a link that
// opens its source in a new browsing context without opener or referrer.
func HTML(views []ResultView) (template.HTML, error) {
	var buf strings.Builder
	if err := resultsTmpl.ExecuteTemplate(&buf, "results", views); err != nil {
		return "", fmt.Errorf("rendering results: %w", err)
	}
	return template.HTML(buf.String()), nil
}
