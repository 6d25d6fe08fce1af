package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rubiojr/turnsearch/pkg/backend"
	"github.com/rubiojr/turnsearch/pkg/render"
	"github.com/rubiojr/turnsearch/pkg/session"
	"github.com/rubiojr/turnsearch/pkg/textclean"
	"github.com/urfave/cli/v3"
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search a collection",
		ArgsUsage: "QUERY...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "collection",
				Usage: "Collection id (defaults to the first collection)",
			},
			&cli.BoolFlag{
				Name:  "no-pager",
				Usage: "Disable pager and output directly to terminal",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the raw results as JSON",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			query := strings.Join(c.Args().Slice(), " ")
			if textclean.Clean(query) == "" {
				return nil
			}

			sess, err := openSession(ctx, c.String("config"), backend.CollectionID(c.String("collection")))
			if err != nil {
				return err
			}
			defer sess.Close()

			results, err := searchSession(ctx, sess, query)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return writeResultsJSON(os.Stdout, results)
			}

			output := formatSearchOutput(query, sess.Snapshot().CurrentCollection, results)
			if c.Bool("no-pager") || !isTerminal() {
				fmt.Print(output)
				return nil
			}
			return displayWithPager(output)
		},
	}
}

// openSession loads the configuration, connects a session to the backend
// and selects collection, or the default one when empty.
func openSession(ctx context.Context, configPath string, collection backend.CollectionID) (*session.Session, error) {
	cfg, client, err := loadClient(configPath)
	if err != nil {
		return nil, err
	}

	sess := session.New(client, session.Options{Delay: cfg.AutocompleteDelay.Duration})
	if err := prepareSession(ctx, sess, collection); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

func prepareSession(ctx context.Context, sess *session.Session, collection backend.CollectionID) error {
	if err := sess.LoadCollections(ctx); err != nil {
		return err
	}
	if collection != "" {
		if err := sess.SelectCollection(collection); err != nil {
			return err
		}
	}
	return nil
}

func searchSession(ctx context.Context, sess *session.Session, query string) ([]backend.SearchResult, error) {
	sess.Input(query)
	if err := sess.Submit(ctx); err != nil {
		return nil, err
	}
	return sess.Snapshot().Results, nil
}

func writeResultsJSON(w io.Writer, results []backend.SearchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func formatSearchOutput(query string, collection backend.CollectionID, results []backend.SearchResult) string {
	var content strings.Builder

	content.WriteString(titleStyle.Render(fmt.Sprintf("Results for %q", query)))
	content.WriteString("\n")
	content.WriteString(metaStyle.Render(fmt.Sprintf("collection %s", collection)))
	content.WriteString("\n\n")
	content.WriteString(render.Terminal(render.View(results)))
	content.WriteString("\n")
	content.WriteString(summaryStyle.Render(fmt.Sprintf("%d results", len(results))))
	content.WriteString("\n")

	return content.String()
}
