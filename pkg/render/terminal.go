package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	resultStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33"))

	entityStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("252")).
			Padding(0, 1)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// PillBackground returns the solid color that rgba(50, 50, 50, relevance)
// produces over a white background, as a hex string.
func PillBackground(relevance float64) string {
	a := clamp01(relevance)
	c := int(255 - (255-50)*a + 0.5)
	return fmt.Sprintf("#%02x%02x%02x", c, c, c)
}

func terminalPill(p Pill) string {
	if !p.Styled {
		return entityStyle.Render(p.Text)
	}
	fg := "#000000"
	if p.Color == "white" {
		fg = "#ffffff"
	}
	return lipgloss.NewStyle().
		Background(lipgloss.Color(PillBackground(p.Relevance))).
		Foreground(lipgloss.Color(fg)).
		Padding(0, 1).
		Render(p.Text)
}

func pillRow(pills []Pill) string {
	parts := make([]string, 0, len(pills))
	for _, p := range pills {
		parts = append(parts, terminalPill(p))
	}
	return strings.Join(parts, " ")
}

// Terminal renders results for a terminal, one bordered box per result.
func Terminal(views []ResultView) string {
	if len(views) == 0 {
		return emptyStyle.Render("No results found") + "\n"
	}

	var out strings.Builder
	for i, v := range views {
		var body strings.Builder
		body.WriteString(titleStyle.Render(fmt.Sprintf("%d. %s", i+1, v.Title)))
		body.WriteString("\n\n")
		body.WriteString(v.Text)
		if v.URL != "" {
			body.WriteString("\n\n")
			body.WriteString(urlStyle.Render("Source: " + v.URL))
		}
		if len(v.Keywords) > 0 {
			body.WriteString("\n\n")
			body.WriteString(pillRow(v.Keywords))
		}
		if len(v.Entities) > 0 {
			body.WriteString("\n")
			body.WriteString(pillRow(v.Entities))
		}
		out.WriteString(resultStyle.Render(body.String()))
		out.WriteString("\n")
	}
	return out.String()
}
